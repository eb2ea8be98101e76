// Package exec models one atomic unit of work on the host ledger: a
// transaction collects emitted instructions and a FIFO queue of pending
// steps appended during execution. Pending steps run strictly after the
// step that appended them, with the contract's own identity as sender.
// Any error discards everything; the host ledger's all-or-nothing
// guarantee means there is no partial compensation logic anywhere.
package exec

import "context"

// Instruction is an external call emitted during a transaction. It is
// recorded, not executed; execution belongs to the host ledger.
type Instruction interface {
	InstructionKind() string
}

// Step is a pending operation appended to the transaction tail.
type Step interface {
	StepName() string
}

// Handler dispatches pending steps back into the contract.
type Handler interface {
	HandleStep(ctx context.Context, tx *Tx, step Step) error
}

// Tx is a single atomic transaction.
type Tx struct {
	self    string
	sender  string
	height  uint64
	steps   []Step
	emitted []Instruction
}

// New creates a transaction invoked by sender against the contract
// identified by self, at the given block height.
func New(self, sender string, height uint64) *Tx {
	return &Tx{self: self, sender: sender, height: height}
}

// Self returns the contract's own identity.
func (t *Tx) Self() string { return t.self }

// Sender returns the identity that invoked the current step.
func (t *Tx) Sender() string { return t.sender }

// Height returns the block height the transaction executes at.
func (t *Tx) Height() uint64 { return t.height }

// Emit records instructions for the host ledger to execute.
func (t *Tx) Emit(instructions ...Instruction) {
	t.emitted = append(t.emitted, instructions...)
}

// Append queues pending steps at the transaction tail.
func (t *Tx) Append(steps ...Step) {
	t.steps = append(t.steps, steps...)
}

// PendingSteps returns the queued steps in execution order.
func (t *Tx) PendingSteps() []Step {
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// Instructions returns the instructions emitted so far, in order.
func (t *Tx) Instructions() []Instruction {
	out := make([]Instruction, len(t.emitted))
	copy(out, t.emitted)
	return out
}

// Run executes the initial step and then drains the pending-step queue in
// FIFO order, dispatching each step with the contract's own identity as
// sender. On the first error nothing is returned: the transaction aborts
// as a whole and every emitted instruction is discarded.
func (t *Tx) Run(ctx context.Context, h Handler, initial func(ctx context.Context, tx *Tx) error) ([]Instruction, error) {
	if err := initial(ctx, t); err != nil {
		return nil, err
	}
	for len(t.steps) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step := t.steps[0]
		t.steps = t.steps[1:]
		t.sender = t.self
		if err := h.HandleStep(ctx, t, step); err != nil {
			return nil, err
		}
	}
	return t.Instructions(), nil
}
