package asset

import (
	"fmt"
	"math/big"
	"strings"
)

// Kind distinguishes chain-native coins from contract-managed tokens.
type Kind string

const (
	KindNative Kind = "native"
	KindToken  Kind = "token"
)

// Info identifies an asset: a native denom or a token contract address.
type Info struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// Native returns the Info for a native denom.
func Native(denom string) Info {
	return Info{Kind: KindNative, ID: denom}
}

// Token returns the Info for a token contract.
func Token(contract string) Info {
	return Info{Kind: KindToken, ID: contract}
}

// Equal reports whether two infos identify the same asset.
func (i Info) Equal(other Info) bool {
	return i.Kind == other.Kind && i.ID == other.ID
}

// IsToken reports whether the asset is a contract-managed token.
func (i Info) IsToken() bool {
	return i.Kind == KindToken
}

func (i Info) String() string {
	return string(i.Kind) + ":" + i.ID
}

// Validate checks that the info is well formed.
func (i Info) Validate() error {
	if i.Kind != KindNative && i.Kind != KindToken {
		return fmt.Errorf("unknown asset kind %q", i.Kind)
	}
	if i.ID == "" {
		return fmt.Errorf("empty asset id")
	}
	return nil
}

// WithAmount pairs the info with an amount.
func (i Info) WithAmount(amount *big.Int) Asset {
	return Asset{Info: i, Amount: amount}
}

// ParseInfo parses "token:<contract>" or "native:<denom>"; a bare
// identifier is treated as a native denom.
func ParseInfo(raw string) (Info, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Info{}, fmt.Errorf("empty asset")
	}
	if rest, ok := strings.CutPrefix(raw, "token:"); ok {
		info := Token(rest)
		return info, info.Validate()
	}
	if rest, ok := strings.CutPrefix(raw, "native:"); ok {
		info := Native(rest)
		return info, info.Validate()
	}
	info := Native(raw)
	return info, info.Validate()
}

// Asset is an asset identity together with an amount.
type Asset struct {
	Info   Info     `json:"info"`
	Amount *big.Int `json:"amount"`
}

// Validate checks the info and that the amount is present and non-negative.
func (a Asset) Validate() error {
	if err := a.Info.Validate(); err != nil {
		return err
	}
	if a.Amount == nil {
		return fmt.Errorf("%s: nil amount", a.Info)
	}
	if a.Amount.Sign() < 0 {
		return fmt.Errorf("%s: negative amount %s", a.Info, a.Amount)
	}
	return nil
}

// IsZero reports whether the amount is absent or zero.
func (a Asset) IsZero() bool {
	return a.Amount == nil || a.Amount.Sign() == 0
}

func (a Asset) String() string {
	if a.Amount == nil {
		return a.Info.String() + "=0"
	}
	return a.Info.String() + "=" + a.Amount.String()
}

// Basket is an ordered list of reward assets.
type Basket []Asset

// ParseBasket parses entries of the form "<asset>=<amount>", where <asset>
// follows ParseInfo syntax.
func ParseBasket(entries []string) (Basket, error) {
	basket := make(Basket, 0, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("reward %q: expected <asset>=<amount>", entry)
		}
		info, err := ParseInfo(key)
		if err != nil {
			return nil, fmt.Errorf("reward %q: %w", entry, err)
		}
		amount, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
		if !ok {
			return nil, fmt.Errorf("reward %q: invalid amount", entry)
		}
		a := info.WithAmount(amount)
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("reward %q: %w", entry, err)
		}
		basket = append(basket, a)
	}
	return basket, nil
}
