package store

import (
	"iter"
	"slices"
	"strings"

	"github.com/linesmerrill/civic-report-api/models"
)

// Order is the order List walks the collection in
type Order int

// Orders
const (
	NewestFirst Order = iota
	OldestFirst
)

// Filter narrows a List. Zero values match everything.
type Filter struct {
	StatusIn   []models.Status
	Query      string
	Department models.Department
	Order      Order
}

// Match reports whether r passes the filter
func (f Filter) Match(r models.Report) bool {
	if len(f.StatusIn) > 0 && !slices.Contains(f.StatusIn, r.Status) {
		return false
	}
	if f.Department != "" && r.Department != f.Department {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(r.Title), q) && !strings.Contains(strings.ToLower(r.ID), q) {
			return false
		}
	}
	return true
}

// List returns a lazy view over the reports matching f. Every range over the
// sequence reads the collection afresh, so it can be reused after changes.
func (s *Store) List(f Filter) iter.Seq[models.Report] {
	return func(yield func(models.Report) bool) {
		for _, e := range s.snapshot(f.Order) {
			r := e.read()
			if !f.Match(r) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Collect materializes List
func (s *Store) Collect(f Filter) []models.Report {
	out := []models.Report{}
	for r := range s.List(f) {
		out = append(out, r)
	}
	return out
}
