// Package models implements the ModelRegistry (C1) and PerformanceTracker
// (C3): discovery/reachability of configured providers and their models, and
// the ranked-by-outcome view CycleHandler consults when choosing a model.
package models

import (
	"context"
	"sync"
	"time"
)

// Tier controls which models Catalog.ListAvailable exposes.
type Tier string

const (
	TierFree Tier = "FREE"
	TierAll  Tier = "ALL"
)

// Reacher probes a single provider for reachability and enumerates its
// models. Each LLMProvider adapter implements this in addition to the
// streaming contract (§4.4); ModelRegistry only depends on this narrower
// interface so it never needs to know about streaming.
type Reacher interface {
	Provider() string
	Ping(ctx context.Context) error
	Models(ctx context.Context) ([]Model, error)
}

// Model describes one (provider, model) pair as discovered or configured.
type Model struct {
	Provider  string `json:"provider"`
	ID        string `json:"id"`
	Local     bool   `json:"local"`
	FreeTier  bool   `json:"free_tier"`
	PriceIn   float64 `json:"price_in_per_mtok,omitempty"`
	PriceOut  float64 `json:"price_out_per_mtok,omitempty"`
}

// IsFree reports whether the model should survive the FREE tier filter:
// zero declared pricing, or an explicit free-tier marker.
func (m Model) IsFree() bool {
	return m.FreeTier || (m.PriceIn == 0 && m.PriceOut == 0)
}

// Catalog is the ModelRegistry (C1): it tracks provider reachability and the
// models each reachable provider exposes, filtered by Tier. Safe for
// concurrent use; Refresh serialises internally, so concurrent callers run
// their probe rounds one after another, never interleaved.
type Catalog struct {
	mu         sync.RWMutex
	reachers   map[string]Reacher
	reachable  map[string]bool
	models     map[string][]Model // provider -> models, last successful Models() call
	tier       Tier
	refreshing sync.Mutex
}

// NewCatalog creates an empty catalog for the given tier filter.
func NewCatalog(tier Tier) *Catalog {
	if tier == "" {
		tier = TierAll
	}
	return &Catalog{
		reachers:  make(map[string]Reacher),
		reachable: make(map[string]bool),
		models:    make(map[string][]Model),
		tier:      tier,
	}
}

// Register adds a provider to be probed on Refresh.
func (c *Catalog) Register(r Reacher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reachers[r.Provider()] = r
}

// IsReachable reports whether the given provider answered its last probe.
func (c *Catalog) IsReachable(provider string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reachable[provider]
}

// IsAvailable reports whether (provider, model) is currently listed, i.e.
// the provider is reachable and the model survived the tier filter.
func (c *Catalog) IsAvailable(provider, model string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.reachable[provider] {
		return false
	}
	for _, m := range c.models[provider] {
		if m.ID == model {
			return true
		}
	}
	return false
}

// ListAvailable returns every (provider, model) pair currently known to be
// available, across all registered providers.
func (c *Catalog) ListAvailable() []Model {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Model
	for provider, models := range c.models {
		if !c.reachable[provider] {
			continue
		}
		out = append(out, models...)
	}
	return out
}

// Refresh re-probes every registered provider. Idempotent and safe to call
// concurrently: a second caller waits for the in-flight round to finish and
// then runs its own full round.
func (c *Catalog) Refresh(ctx context.Context) {
	c.refreshing.Lock()
	defer c.refreshing.Unlock()

	c.mu.RLock()
	reachers := make([]Reacher, 0, len(c.reachers))
	for _, r := range c.reachers {
		reachers = append(reachers, r)
	}
	c.mu.RUnlock()

	for _, r := range reachers {
		reachable := r.Ping(ctx) == nil
		var models []Model
		if reachable {
			if ms, err := r.Models(ctx); err == nil {
				models = c.filterTier(ms)
			} else {
				reachable = false
			}
		}

		c.mu.Lock()
		c.reachable[r.Provider()] = reachable
		if reachable {
			c.models[r.Provider()] = models
		}
		c.mu.Unlock()
	}
}

func (c *Catalog) filterTier(models []Model) []Model {
	if c.tier == TierAll {
		return models
	}
	out := make([]Model, 0, len(models))
	for _, m := range models {
		if m.IsFree() {
			out = append(out, m)
		}
	}
	return out
}

// RefreshInterval is the re-probe period for callers that refresh the
// catalog periodically. Catalog owns no ticker, and nothing in this module
// calls Refresh on a schedule.
const RefreshInterval = 5 * time.Minute
