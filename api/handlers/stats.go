package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/notifier"
	"github.com/linesmerrill/civic-report-api/store"
)

const statsKey = "stats"

// Stats serves the dashboard counters from a short lived cache that is
// dropped whenever the report collection changes
type Stats struct {
	Store *store.Store
	cache *cache.Cache

	// gen moves on every invalidation; a fill computed under an older gen is discarded
	mu  sync.Mutex
	gen uint64
}

// NewStats creates a Stats handler whose cached value lives for at most ttl.
// A ttl of zero or less disables caching.
func NewStats(s *store.Store, ttl time.Duration) *Stats {
	st := &Stats{Store: s}
	if ttl > 0 {
		st.cache = cache.New(ttl, 2*ttl)
	}
	return st
}

// Invalidate drops the cached counters
func (st *Stats) Invalidate() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.gen++
	if st.cache != nil {
		st.cache.Delete(statsKey)
	}
}

// Watch invalidates the cache on every change signal until ctx is done
func (st *Stats) Watch(ctx context.Context, n *notifier.Notifier) {
	ch, unsubscribe := n.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			st.Invalidate()
		}
	}
}

// StatsHandler returns total, pending, resolved and per category counts
func (st *Stats) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if st.cache == nil {
		writeJSON(w, http.StatusOK, st.Store.Stats(r.Context()))
		return
	}
	if cached, ok := st.cache.Get(statsKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}
	gen := st.generation()
	stats := st.Store.Stats(r.Context())
	st.fill(gen, stats)
	writeJSON(w, http.StatusOK, stats)
}

func (st *Stats) generation() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.gen
}

// fill caches stats unless an invalidation happened since gen was read
func (st *Stats) fill(gen uint64, stats models.Stats) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if gen != st.gen {
		return false
	}
	st.cache.SetDefault(statsKey, stats)
	return true
}
