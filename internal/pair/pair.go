// Package pair describes the swap-pool collaborator surface: the pool
// metadata, the typed instructions the compounder emits against pools and
// tokens, and the Querier used to read balances, pool metadata, and
// simulated swap output.
package pair

import (
	"math/big"

	"github.com/IDTOKENONE/spectrum-core/internal/asset"
)

// Kind identifies the pool pricing curve.
type Kind string

const (
	// KindXYK is a constant-product pool.
	KindXYK Kind = "xyk"
)

// Info captures immutable pool metadata.
type Info struct {
	ContractAddr   string        `json:"contract_addr"`
	AssetInfos     [2]asset.Info `json:"asset_infos"`
	LiquidityToken string        `json:"liquidity_token"`
	Kind           Kind          `json:"kind"`
}

// AssetIndex returns the position of info within the pool pair, or -1.
func (p Info) AssetIndex(info asset.Info) int {
	for i, candidate := range p.AssetInfos {
		if candidate.Equal(info) {
			return i
		}
	}
	return -1
}

// SwapInstruction trades an offer asset against a pool.
type SwapInstruction struct {
	Pair  string      `json:"pair"`
	Offer asset.Asset `json:"offer"`
	// To overrides the output recipient; empty means the caller.
	To string `json:"to,omitempty"`
}

func (SwapInstruction) InstructionKind() string { return "swap" }

// IncreaseAllowanceInstruction grants a spender a bounded, expiring
// allowance over a token-style asset.
type IncreaseAllowanceInstruction struct {
	Token     string   `json:"token"`
	Spender   string   `json:"spender"`
	Amount    *big.Int `json:"amount"`
	ExpiresAt uint64   `json:"expires_at"`
}

func (IncreaseAllowanceInstruction) InstructionKind() string { return "increase_allowance" }

// ProvideLiquidityInstruction deposits both pool assets. Native legs
// travel as attached funds; LP tokens go to Receiver.
type ProvideLiquidityInstruction struct {
	Pair        string         `json:"pair"`
	Assets      [2]asset.Asset `json:"assets"`
	SlippageBps uint32         `json:"slippage_bps"`
	Receiver    string         `json:"receiver"`
	Funds       []asset.Asset  `json:"funds,omitempty"`
}

func (ProvideLiquidityInstruction) InstructionKind() string { return "provide_liquidity" }

// TransferInstruction moves an asset to a recipient.
type TransferInstruction struct {
	Asset     asset.Asset `json:"asset"`
	Recipient string      `json:"recipient"`
}

func (TransferInstruction) InstructionKind() string { return "transfer" }
