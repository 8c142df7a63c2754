package ticker

import "sync"

// Registry is the set of tickers clients are currently watching.
// Membership is by exact string match; symbols are neither validated nor
// normalized, so "aapl" and "AAPL" are different entries. The set only grows.
type Registry struct {
	mu    sync.RWMutex
	set   map[string]struct{}
	order []string // first-insertion order, used for snapshots
}

func NewRegistry() *Registry {
	return &Registry{set: make(map[string]struct{})}
}

// Add inserts ticker unless it is already present.
func (r *Registry) Add(ticker string) {
	r.mu.RLock()
	_, ok := r.set[ticker]
	r.mu.RUnlock()
	if ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.set[ticker]; ok {
		return
	}
	r.set[ticker] = struct{}{}
	r.order = append(r.order, ticker)
}

// Contains reports whether ticker is watched.
func (r *Registry) Contains(ticker string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.set[ticker]
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Snapshot returns an independent copy of every watched ticker.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
