package compound

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/IDTOKENONE/spectrum-core/internal/asset"
	"github.com/IDTOKENONE/spectrum-core/internal/pair"
)

// ProxyEntry routes a reward asset through an alternate pair contract.
type ProxyEntry struct {
	Asset asset.Info `json:"asset"`
	Pair  string     `json:"pair"`
}

// Config is the instantiation configuration for a single pool instance.
type Config struct {
	// PairContract is the target pool.
	PairContract string
	// CommissionBps is the pool trading fee, in basis points, used by the
	// optimal-swap solver.
	CommissionBps uint32
	// SlippageBps bounds reserve drift between solving and depositing.
	SlippageBps uint32
	// FeeCollector, when set, receives FeeBps of every reward before the
	// solver runs. Empty disables the protocol fee.
	FeeCollector string
	FeeBps       uint32
	// DustThreshold skips swaps too small to be worth an external call.
	// Nil means no threshold.
	DustThreshold *big.Int
	// PairProxies routes reward assets that are neither pool asset.
	PairProxies []ProxyEntry
}

// Validate checks rate domains and proxy-key uniqueness.
func (c Config) Validate() error {
	if c.PairContract == "" {
		return fmt.Errorf("pair contract is required")
	}
	if c.CommissionBps >= 10000 {
		return fmt.Errorf("commission %d bps out of range [0, 10000)", c.CommissionBps)
	}
	if c.SlippageBps > 10000 {
		return fmt.Errorf("slippage %d bps out of range [0, 10000]", c.SlippageBps)
	}
	if c.FeeBps > 10000 {
		return fmt.Errorf("fee %d bps out of range [0, 10000]", c.FeeBps)
	}
	if c.DustThreshold != nil && c.DustThreshold.Sign() < 0 {
		return fmt.Errorf("dust threshold must be non-negative")
	}
	seen := make(map[string]struct{}, len(c.PairProxies))
	for _, entry := range c.PairProxies {
		if err := entry.Asset.Validate(); err != nil {
			return fmt.Errorf("pair proxy: %w", err)
		}
		if entry.Pair == "" {
			return fmt.Errorf("pair proxy for %s: empty pair", entry.Asset)
		}
		if _, dup := seen[entry.Asset.ID]; dup {
			return fmt.Errorf("pair proxy for %s: duplicate entry", entry.Asset)
		}
		seen[entry.Asset.ID] = struct{}{}
	}
	return nil
}

// registry is the pair-proxy lookup table, keyed by asset identity.
type registry map[string]ProxyEntry

func newRegistry(entries []ProxyEntry) registry {
	reg := make(registry, len(entries))
	for _, entry := range entries {
		reg[entry.Asset.ID] = entry
	}
	return reg
}

// lookup resolves the proxy pair for an asset.
func (r registry) lookup(info asset.Info) (string, bool) {
	entry, ok := r[info.ID]
	if !ok || !entry.Asset.Equal(info) {
		return "", false
	}
	return entry.Pair, true
}

// sorted returns the entries ordered by asset identity, independent of
// insertion order.
func (r registry) sorted() []ProxyEntry {
	entries := make([]ProxyEntry, 0, len(r))
	for _, entry := range r {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Asset.ID < entries[j].Asset.ID
	})
	return entries
}

// ConfigResponse is the Config query result.
type ConfigResponse struct {
	PairInfo      pair.Info    `json:"pair_info"`
	CommissionBps uint32       `json:"commission_bps"`
	SlippageBps   uint32       `json:"slippage_bps"`
	FeeCollector  string       `json:"fee_collector,omitempty"`
	FeeBps        uint32       `json:"fee_bps,omitempty"`
	PairProxies   []ProxyEntry `json:"pair_proxies"`
}
