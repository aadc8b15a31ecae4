package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// minCallsForRanking is N in §4.3: models with fewer recorded calls are
// excluded from ranking, not penalised.
const minCallsForRanking = 3

// latencyAlpha is the weight given to normalised latency in the ranking
// score: score = success_rate - alpha*normalised_latency.
const latencyAlpha = 0.2

// Metric is the persisted per-(provider,model) outcome counter (§3).
type Metric struct {
	Successes      int64 `json:"successes"`
	Failures       int64 `json:"failures"`
	TotalLatencyNs int64 `json:"total_latency_ns"`
	Calls          int64 `json:"calls"`
}

// SuccessRate returns successes/calls, or 0 if there have been no calls.
func (m Metric) SuccessRate() float64 {
	if m.Calls == 0 {
		return 0
	}
	return float64(m.Successes) / float64(m.Calls)
}

// MeanLatency returns the average latency across all calls.
func (m Metric) MeanLatency() time.Duration {
	if m.Calls == 0 {
		return 0
	}
	return time.Duration(m.TotalLatencyNs / m.Calls)
}

type modelKey struct {
	Provider string
	Model    string
}

// PerformanceTracker records per-cycle outcomes and ranks (provider, model)
// pairs by a combination of success rate and latency (C3).
type PerformanceTracker struct {
	mu       sync.RWMutex
	metrics  map[modelKey]*Metric
	filePath string
}

// NewPerformanceTracker creates a tracker. filePath is where metrics persist
// (data/model_metrics.json per §6); pass "" to disable persistence.
func NewPerformanceTracker(filePath string) *PerformanceTracker {
	t := &PerformanceTracker{
		metrics:  make(map[modelKey]*Metric),
		filePath: filePath,
	}
	if filePath != "" {
		_ = t.load()
	}
	return t
}

// Record appends the outcome of one cycle for (provider, model).
func (t *PerformanceTracker) Record(provider, model string, success bool, latency time.Duration) {
	key := modelKey{provider, model}

	t.mu.Lock()
	m, ok := t.metrics[key]
	if !ok {
		m = &Metric{}
		t.metrics[key] = m
	}
	m.Calls++
	if success {
		m.Successes++
	} else {
		m.Failures++
	}
	m.TotalLatencyNs += int64(latency)
	t.mu.Unlock()
}

// RankedModel is one entry in Rank's output.
type RankedModel struct {
	Provider string
	Model    string
	Metric   Metric
	Score    float64
}

// Rank orders candidates by score = success_rate - alpha*normalised_latency,
// ignoring any candidate with fewer than minCallsForRanking recorded calls
// (those sort last, in input order, as "unranked but eligible").
func (t *PerformanceTracker) Rank(candidates []Model) []RankedModel {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var maxLatency time.Duration
	for _, c := range candidates {
		if m, ok := t.metrics[modelKey{c.Provider, c.ID}]; ok {
			if l := m.MeanLatency(); l > maxLatency {
				maxLatency = l
			}
		}
	}

	ranked := make([]RankedModel, 0, len(candidates))
	var unranked []RankedModel
	for _, c := range candidates {
		m := t.metrics[modelKey{c.Provider, c.ID}]
		if m == nil {
			unranked = append(unranked, RankedModel{Provider: c.Provider, Model: c.ID})
			continue
		}
		if m.Calls < minCallsForRanking {
			unranked = append(unranked, RankedModel{Provider: c.Provider, Model: c.ID, Metric: *m})
			continue
		}
		normLatency := 0.0
		if maxLatency > 0 {
			normLatency = float64(m.MeanLatency()) / float64(maxLatency)
		}
		score := m.SuccessRate() - latencyAlpha*normLatency
		ranked = append(ranked, RankedModel{Provider: c.Provider, Model: c.ID, Metric: *m, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return append(ranked, unranked...)
}

// Persist writes the current metrics to disk via write-temp + atomic rename.
func (t *PerformanceTracker) Persist() error {
	if t.filePath == "" {
		return nil
	}

	t.mu.RLock()
	type entry struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
		Metric   Metric `json:"metric"`
	}
	entries := make([]entry, 0, len(t.metrics))
	for k, m := range t.metrics {
		entries = append(entries, entry{k.Provider, k.Model, *m})
	}
	t.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.filePath), 0o755); err != nil {
		return err
	}
	tmp := t.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, t.filePath)
}

func (t *PerformanceTracker) load() error {
	data, err := os.ReadFile(t.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var entries []struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
		Metric   Metric `json:"metric"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range entries {
		m := e.Metric
		t.metrics[modelKey{e.Provider, e.Model}] = &m
	}
	return nil
}
