package model

import "encoding/json"

// CompoundRecord is the audit record of one completed compound run.
type CompoundRecord struct {
	ChainID      uint64              `json:"chain_id,omitempty"`
	Height       uint64              `json:"height"`
	Pair         string              `json:"pair"`
	Caller       string              `json:"caller"`
	Receiver     string              `json:"receiver"`
	Rewards      []AssetAmount       `json:"rewards"`
	Instructions []InstructionRecord `json:"instructions"`
	ExecutedAt   string              `json:"executed_at"`
}

// AssetAmount is a string-encoded asset amount for storage.
type AssetAmount struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// InstructionRecord keeps the kind and serialized payload of an emitted
// instruction.
type InstructionRecord struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}
