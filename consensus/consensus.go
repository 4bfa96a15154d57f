// Package consensus counts citizen validations of a report, weighting each
// vote by the validator's trust, and derives how confident the public view of
// the report should be.
package consensus

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/store"
	"github.com/linesmerrill/civic-report-api/trust"
)

// DefaultThreshold is the validation count at which a report is confirmed
const DefaultThreshold = 5

const guardianReviewNote = "review requested by civic guardian"

// Engine applies validations to reports
type Engine struct {
	store     *store.Store
	users     store.UserDirectory
	threshold int
}

// Option configures an Engine
type Option func(*Engine)

// WithThreshold sets the consensus threshold; values below 1 are ignored
func WithThreshold(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.threshold = n
		}
	}
}

// New creates an Engine
func New(s *store.Store, users store.UserDirectory, opts ...Option) *Engine {
	e := &Engine{store: s, users: users, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the consensus threshold
func (e *Engine) Threshold() int {
	return e.threshold
}

// Validate records validator's vote; a civic guardian's vote counts as a guardian vote
func (e *Engine) Validate(ctx context.Context, reportID string, validator models.User) (models.Report, error) {
	return e.ValidateAs(ctx, reportID, validator, trust.TierFor(validator.TrustScore) == models.TierCivicGuardian)
}

// ValidateAs records validator's vote on the report. Each validator counts once;
// a second vote fails with models.ErrDuplicateVote. The reporter is credited the
// verified-report delta scaled by the validator's weight. A guardian vote on a
// report still in SUBMITTED also puts it under review.
func (e *Engine) ValidateAs(ctx context.Context, reportID string, validator models.User, isGuardianVote bool) (models.Report, error) {
	if validator.ID == "" {
		return models.Report{}, errors.Wrap(models.ErrValidation, "validator id is required")
	}
	credit := trust.WeightedDelta(trust.VerifiedReportDelta, validator.TrustScore)

	r, err := e.store.Mutate(ctx, reportID, func(r *models.Report, now time.Time) error {
		if r.ReporterID == validator.ID {
			return errors.Wrap(models.ErrValidation, "reporters cannot validate their own report")
		}
		if r.HasValidator(validator.ID) {
			return errors.Wrapf(models.ErrDuplicateVote, "%s already validated report %s", validator.ID, r.ID)
		}
		r.Validators = append(r.Validators, validator.ID)
		r.ValidationCount = len(r.Validators)

		if isGuardianVote && r.Status == models.StatusSubmitted {
			r.Status = models.StatusUnderReview
			r.Timeline = append(r.Timeline, models.TimelineEvent{
				ID:        e.store.NewEventID(),
				Status:    models.StatusUnderReview,
				Note:      guardianReviewNote,
				ActorID:   validator.ID,
				CreatedAt: now,
			})
		}

		// an unknown reporter aborts the vote
		_, err := e.users.Get(ctx, r.ReporterID)
		return err
	})
	if err != nil {
		return models.Report{}, err
	}

	// credit only once the vote has committed
	reporter, err := e.users.Update(ctx, r.ReporterID, func(u models.User) models.User {
		return trust.ApplyDelta(u, credit)
	})
	if err != nil {
		zap.S().Warnw("failed to credit reporter",
			"report", r.ID,
			"reporter", r.ReporterID,
			"credit", credit,
			"error", err,
		)
	}

	zap.S().Debugw("report validated",
		"report", r.ID,
		"validator", validator.ID,
		"count", r.ValidationCount,
		"reporter", reporter.ID,
		"reporterScore", reporter.TrustScore,
	)
	return r, nil
}

// Confirmed reports whether r has reached the consensus threshold. It does not
// affect the report's status.
func (e *Engine) Confirmed(r models.Report) bool {
	return r.ValidationCount >= e.threshold
}

// ConfidenceIndex is a display ranking in [0,1] that grows with the validation
// count and saturates at the threshold
func (e *Engine) ConfidenceIndex(r models.Report) float64 {
	n := r.ValidationCount
	if n <= 0 {
		return 0
	}
	if n >= e.threshold {
		return 1
	}
	return float64(n) / float64(e.threshold)
}

// View decorates a report with its consensus fields
func (e *Engine) View(r models.Report) models.ReportView {
	return models.ReportView{
		Report:          r,
		ConfidenceIndex: e.ConfidenceIndex(r),
		Confirmed:       e.Confirmed(r),
	}
}
