package models

import (
	"errors"
	"sort"
	"sync"
)

// MaxFailoverAttempts is MAX_FAILOVER_ATTEMPTS (§4.8): the total number of
// model-failover attempts permitted within one user-visible request.
const MaxFailoverAttempts = 5

// ErrFailoverExhausted is returned by FailoverState.Next once MaxFailoverAttempts
// have been spent without a success.
var ErrFailoverExhausted = errors.New("model failover attempts exhausted")

// ErrNoCandidates is returned when no (provider, model) pair remains after
// filtering out the excluded set.
var ErrNoCandidates = errors.New("no available model candidates")

// SelectBestAvailable implements §4.9's createAgent auto-selection and
// §4.8's model-failover candidate choice: the highest-ranked available
// (provider, model) not in exclude, tie-broken local > free > paid, then by
// alphabetical (provider, id).
func SelectBestAvailable(catalog *Catalog, tracker *PerformanceTracker, exclude map[string]bool) (Model, error) {
	available := catalog.ListAvailable()

	candidates := make([]Model, 0, len(available))
	byKey := make(map[string]Model, len(available))
	for _, m := range available {
		key := m.Provider + "/" + m.ID
		if exclude[key] {
			continue
		}
		candidates = append(candidates, m)
		byKey[key] = m
	}
	if len(candidates) == 0 {
		return Model{}, ErrNoCandidates
	}

	ranked := tracker.Rank(candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		mi, mj := byKey[ranked[i].Provider+"/"+ranked[i].Model], byKey[ranked[j].Provider+"/"+ranked[j].Model]
		if mi.Local != mj.Local {
			return mi.Local
		}
		if mi.IsFree() != mj.IsFree() {
			return mi.IsFree()
		}
		if mi.Provider != mj.Provider {
			return mi.Provider < mj.Provider
		}
		return mi.ID < mj.ID
	})

	top := ranked[0]
	return byKey[top.Provider+"/"+top.Model], nil
}

// FailoverState tracks model-failover attempts for a single user-visible
// request, enforcing invariant 6 (total attempts ≤ MaxFailoverAttempts). A
// request can span many cycles across many agents (reactivations via
// send_message, plan retries, tool follow-ups), so one FailoverState is
// shared by every cycle belonging to that request; Next is called from
// whichever worker goroutine is running that cycle, hence the mutex.
type FailoverState struct {
	mu       sync.Mutex
	Attempts int
	Excluded map[string]bool
}

// NewFailoverState creates empty failover tracking for one request.
func NewFailoverState() *FailoverState {
	return &FailoverState{Excluded: make(map[string]bool)}
}

// Next selects the next candidate model to fail over to, preferring the
// same provider as the failed model first, then any local provider, then
// free tier, then paid — all filtered through PerformanceTracker ranking.
// Returns ErrFailoverExhausted once MaxFailoverAttempts is reached.
func (s *FailoverState) Next(catalog *Catalog, tracker *PerformanceTracker, failedProvider, failedModel string) (Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Attempts >= MaxFailoverAttempts {
		return Model{}, ErrFailoverExhausted
	}
	s.Attempts++
	s.Excluded[failedProvider+"/"+failedModel] = true

	available := catalog.ListAvailable()
	sameProvider := make([]Model, 0)
	rest := make([]Model, 0)
	for _, m := range available {
		key := m.Provider + "/" + m.ID
		if s.Excluded[key] {
			continue
		}
		if m.Provider == failedProvider {
			sameProvider = append(sameProvider, m)
		} else {
			rest = append(rest, m)
		}
	}

	for _, pool := range [][]Model{sameProvider, rest} {
		if len(pool) == 0 {
			continue
		}
		exclude := make(map[string]bool, len(s.Excluded))
		for k := range s.Excluded {
			exclude[k] = true
		}
		for _, m := range available {
			inPool := false
			for _, p := range pool {
				if p.Provider == m.Provider && p.ID == m.ID {
					inPool = true
					break
				}
			}
			if !inPool {
				exclude[m.Provider+"/"+m.ID] = true
			}
		}
		if best, err := SelectBestAvailable(catalog, tracker, exclude); err == nil {
			return best, nil
		}
	}
	return Model{}, ErrNoCandidates
}
