// Package store owns the canonical collection of reports. Each report is
// mutated inside its own critical section, so writes to one report serialize
// while writes to different reports run side by side.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/notifier"
)

// Persister is the durability collaborator. SaveReport is called inside the
// report's critical section before a mutation is committed in memory.
type Persister interface {
	SaveReport(ctx context.Context, report models.Report) error
	LoadReports(ctx context.Context) ([]models.Report, error)
}

// Store holds every report, most recent first
type Store struct {
	mu      sync.RWMutex
	order   []*entry // oldest first
	entries map[string]*entry

	notifier  *notifier.Notifier
	persister Persister
	now       func() time.Time
	newID     func() string
	log       *zap.SugaredLogger
}

type entry struct {
	mu     sync.Mutex
	report models.Report
}

func (e *entry) read() models.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.report.Clone()
}

// Option configures a Store
type Option func(*Store)

// WithNotifier sets the notifier fired after every successful mutation
func WithNotifier(n *notifier.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithPersister makes the store write through to p
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the uuid generator
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger, zap.S() by default
func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = l }
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*entry),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.S()
	}
	return s
}

// Load replaces the in-memory collection with what the persister holds
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	reports, err := s.persister.LoadReports(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load reports")
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].CreatedAt.Before(reports[j].CreatedAt)
	})

	s.mu.Lock()
	s.order = make([]*entry, 0, len(reports))
	s.entries = make(map[string]*entry, len(reports))
	for _, r := range reports {
		e := &entry{report: r.Clone()}
		s.order = append(s.order, e)
		s.entries[r.ID] = e
	}
	s.mu.Unlock()

	s.log.Infow("reports loaded", "count", len(reports))
	s.notifier.Publish()
	return nil
}

// Create validates a draft and inserts the new report at the head of the collection
func (s *Store) Create(ctx context.Context, d models.Draft) (models.Report, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return models.Report{}, errors.Wrap(models.ErrValidation, "title is required")
	}
	if !d.Location.Valid() {
		return models.Report{}, errors.Wrapf(models.ErrValidation, "coordinates out of range: %v,%v", d.Location.Latitude, d.Location.Longitude)
	}
	if d.Category == "" {
		d.Category = models.CategoryOther
	}
	if !d.Category.Valid() {
		return models.Report{}, errors.Wrapf(models.ErrValidation, "unknown category %q", d.Category)
	}
	if d.Urgency == "" {
		d.Urgency = models.UrgencyMedium
	}
	if !d.Urgency.Valid() {
		return models.Report{}, errors.Wrapf(models.ErrValidation, "unknown urgency %q", d.Urgency)
	}

	now := s.stamp(time.Time{})
	r := models.Report{
		ID:            s.newID(),
		Title:         title,
		Description:   strings.TrimSpace(d.Description),
		Category:      d.Category,
		Urgency:       d.Urgency,
		ImageRef:      d.ImageRef,
		Address:       d.Address,
		Location:      d.Location,
		ReporterID:    d.ReporterID,
		ReporterTrust: d.ReporterTrust,
		Status:        models.StatusSubmitted,
		Comments:      []models.Comment{},
		Validators:    []string{},
		Timeline: []models.TimelineEvent{{
			ID:        s.newID(),
			Status:    models.StatusSubmitted,
			Note:      "report submitted",
			ActorID:   d.ReporterID,
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.persister != nil {
		if err := s.persister.SaveReport(ctx, r); err != nil {
			return models.Report{}, errors.Wrap(err, "failed to persist report")
		}
	}

	e := &entry{report: r}
	s.mu.Lock()
	s.order = append(s.order, e)
	s.entries[r.ID] = e
	s.mu.Unlock()

	s.log.Debugw("report created", "id", r.ID, "category", r.Category)
	s.notifier.Publish()
	return r.Clone(), nil
}

// Get returns a copy of one report
func (s *Store) Get(ctx context.Context, id string) (models.Report, error) {
	e, err := s.lookup(id)
	if err != nil {
		return models.Report{}, err
	}
	return e.read(), nil
}

// Upvote adds one upvote. Repeat votes by the same citizen are not detected here.
func (s *Store) Upvote(ctx context.Context, id string) (models.Report, error) {
	return s.Mutate(ctx, id, func(r *models.Report, _ time.Time) error {
		r.Upvotes++
		return nil
	})
}

// AddComment appends a comment stamped with the server time
func (s *Store) AddComment(ctx context.Context, id, authorID, text string) (models.Report, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Report{}, errors.Wrap(models.ErrValidation, "comment text is required")
	}
	return s.Mutate(ctx, id, func(r *models.Report, now time.Time) error {
		r.Comments = append(r.Comments, models.Comment{
			ID:        s.newID(),
			AuthorID:  authorID,
			Text:      text,
			CreatedAt: now,
		})
		return nil
	})
}

// UpdateRequest is a set of field changes made by one actor. Check, when set,
// sees the current report under the report's lock and can veto the update.
type UpdateRequest struct {
	ActorID string
	Note    string
	Changes []Change
	Check   func(current models.Report) error
}

// Update applies the changes and records one timeline event carrying the
// resulting status and the note
func (s *Store) Update(ctx context.Context, id string, req UpdateRequest) (models.Report, error) {
	if len(req.Changes) == 0 {
		return models.Report{}, errors.Wrap(models.ErrValidation, "no changes requested")
	}
	return s.Mutate(ctx, id, func(r *models.Report, now time.Time) error {
		if req.Check != nil {
			if err := req.Check(r.Clone()); err != nil {
				return err
			}
		}
		for _, c := range req.Changes {
			if err := c.apply(r); err != nil {
				return err
			}
		}
		r.Timeline = append(r.Timeline, models.TimelineEvent{
			ID:        s.newID(),
			Status:    r.Status,
			Note:      req.Note,
			ActorID:   req.ActorID,
			CreatedAt: now,
		})
		return nil
	})
}

// NewEventID hands out an id for a timeline event built outside the store
func (s *Store) NewEventID() string {
	return s.newID()
}

// Mutate runs fn on a copy of the report while holding the report's lock. The
// copy replaces the stored report only if fn and the persister both succeed;
// otherwise nothing changes and no notification is sent. now is the timestamp
// to use for anything fn records and becomes the report's UpdatedAt.
func (s *Store) Mutate(ctx context.Context, id string, fn func(r *models.Report, now time.Time) error) (models.Report, error) {
	e, err := s.lookup(id)
	if err != nil {
		return models.Report{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.report.Clone()
	floor := next.UpdatedAt
	if last := next.LastEvent().CreatedAt; last.After(floor) {
		floor = last
	}
	now := s.stamp(floor)
	if err := fn(&next, now); err != nil {
		return models.Report{}, err
	}
	next.UpdatedAt = now

	if s.persister != nil {
		if err := s.persister.SaveReport(ctx, next); err != nil {
			return models.Report{}, errors.Wrapf(err, "failed to persist report %s", id)
		}
	}
	e.report = next

	s.notifier.Publish()
	return next.Clone(), nil
}

// Stats projects the current snapshot; it is recomputed on every call
func (s *Store) Stats(ctx context.Context) models.Stats {
	st := models.Stats{ByCategory: make(map[models.Category]int)}
	for _, e := range s.snapshot(NewestFirst) {
		r := e.read()
		st.Total++
		if r.Status.Pending() {
			st.Pending++
		}
		if r.Status == models.StatusResolved {
			st.Resolved++
		}
		st.ByCategory[r.Category]++
	}
	return st
}

// Len returns the number of reports
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(models.ErrNotFound, "report %s", id)
	}
	return e, nil
}

func (s *Store) snapshot(o Order) []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entry, len(s.order))
	if o == OldestFirst {
		copy(out, s.order)
		return out
	}
	for i, e := range s.order {
		out[len(s.order)-1-i] = e
	}
	return out
}

// stamp returns the current time at millisecond precision, the resolution
// mongo keeps, pushed strictly past floor
func (s *Store) stamp(floor time.Time) time.Time {
	t := s.now().UTC().Truncate(time.Millisecond)
	if !floor.IsZero() && !t.After(floor) {
		t = floor.Add(time.Millisecond)
	}
	return t
}
