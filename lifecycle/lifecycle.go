// Package lifecycle drives reports through their resolution workflow on behalf
// of authorities and settles the reporter's reputation when a report is
// resolved or thrown out.
package lifecycle

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/store"
	"github.com/linesmerrill/civic-report-api/trust"
)

// RejectReason says why an authority threw a report out
type RejectReason string

// Reject reasons
const (
	ReasonFalseReport RejectReason = "false_report"
	ReasonSpam        RejectReason = "spam"
	ReasonDuplicate   RejectReason = "duplicate"
)

// Penalty is the trust delta the reporter takes for a rejection
func (r RejectReason) Penalty() int {
	switch r {
	case ReasonFalseReport:
		return trust.FalseReportPenalty
	case ReasonSpam:
		return trust.SpamPenalty
	}
	return 0
}

// Valid reports whether r is a known reason
func (r RejectReason) Valid() bool {
	switch r {
	case ReasonFalseReport, ReasonSpam, ReasonDuplicate:
		return true
	}
	return false
}

// Coordinator applies authority actions to reports
type Coordinator struct {
	store  *store.Store
	users  store.UserDirectory
	policy Policy
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithPolicy picks the transition policy, Strict by default
func WithPolicy(p Policy) Option {
	return func(c *Coordinator) { c.policy = p }
}

// New creates a Coordinator over s, reading and crediting reporters through users
func New(s *store.Store, users store.UserDirectory, opts ...Option) *Coordinator {
	c := &Coordinator{store: s, users: users, policy: Strict}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the active transition policy
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// Submit files a new report for actor, snapshotting their trust score and
// counting the report against their profile
func (c *Coordinator) Submit(ctx context.Context, actor models.User, d models.Draft) (models.Report, error) {
	if _, err := c.users.Get(ctx, actor.ID); err != nil {
		return models.Report{}, err
	}
	d.ReporterID = actor.ID
	d.ReporterTrust = trust.Clamp(actor.TrustScore)

	r, err := c.store.Create(ctx, d)
	if err != nil {
		return models.Report{}, err
	}

	_, err = c.users.Update(ctx, actor.ID, func(u models.User) models.User {
		u.ReportsFiled++
		return u
	})
	if err != nil {
		zap.S().Errorw("failed to count filed report", "user", actor.ID, "report", r.ID, "error", err)
	}
	return r, nil
}

// Apply makes the requested changes on behalf of actor. A status change must
// be permitted by the policy or the report is left as it was and
// models.ErrInvalidTransition is returned. Department and urgency can change
// with or without a status change.
func (c *Coordinator) Apply(ctx context.Context, id string, actor models.User, note string, changes ...store.Change) (models.Report, error) {
	to, moving := store.TargetStatus(changes)

	r, err := c.store.Update(ctx, id, store.UpdateRequest{
		ActorID: actor.ID,
		Note:    note,
		Changes: changes,
		Check: func(current models.Report) error {
			if moving && !c.policy.Permits(current.Status, to) {
				return errors.Wrapf(models.ErrInvalidTransition, "%s -> %s", current.Status, to)
			}
			return nil
		},
	})
	if err != nil {
		return models.Report{}, err
	}

	zap.S().Infow("report updated",
		"report", r.ID,
		"status", r.Status,
		"actor", actor.ID,
	)

	if moving && to == models.StatusResolved {
		c.settle(ctx, r, trust.ResolvedReportDelta, true)
	}
	return r, nil
}

// Reject moves the report to REJECTED and charges the reporter the penalty for reason
func (c *Coordinator) Reject(ctx context.Context, id string, actor models.User, note string, reason RejectReason) (models.Report, error) {
	if !reason.Valid() {
		return models.Report{}, errors.Wrapf(models.ErrValidation, "unknown reject reason %q", reason)
	}
	if note == "" {
		note = "rejected: " + string(reason)
	}
	r, err := c.Apply(ctx, id, actor, note, store.SetStatus{Status: models.StatusRejected})
	if err != nil {
		return models.Report{}, err
	}
	if p := reason.Penalty(); p != 0 {
		c.settle(ctx, r, p, false)
	}
	return r, nil
}

// settle moves the reporter's trust after the report change has committed.
// Reports whose reporter is unknown to the directory are skipped.
func (c *Coordinator) settle(ctx context.Context, r models.Report, delta int, resolved bool) {
	u, err := c.users.Update(ctx, r.ReporterID, func(u models.User) models.User {
		u = trust.ApplyDelta(u, delta)
		if resolved {
			u.ReportsResolved++
		}
		return u
	})
	if err != nil {
		zap.S().Warnw("failed to settle reporter trust",
			"report", r.ID,
			"reporter", r.ReporterID,
			"delta", delta,
			"error", err,
		)
		return
	}
	zap.S().Debugw("reporter trust settled", "reporter", u.ID, "score", u.TrustScore, "tier", u.Tier)
}
