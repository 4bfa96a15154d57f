package store

import (
	"github.com/pkg/errors"

	"github.com/linesmerrill/civic-report-api/models"
)

// Change is one field edit carried by an UpdateRequest. The set is closed:
// SetStatus, SetDepartment and SetUrgency are the only implementations.
type Change interface {
	apply(r *models.Report) error
}

// SetStatus moves the report to a new status
type SetStatus struct {
	Status models.Status
}

func (c SetStatus) apply(r *models.Report) error {
	if !c.Status.Valid() {
		return errors.Wrapf(models.ErrValidation, "unknown status %q", c.Status)
	}
	r.Status = c.Status
	return nil
}

// SetDepartment assigns the report to a department without touching its status
type SetDepartment struct {
	Department models.Department
}

func (c SetDepartment) apply(r *models.Report) error {
	if !c.Department.Valid() {
		return errors.Wrapf(models.ErrValidation, "unknown department %q", c.Department)
	}
	r.Department = c.Department
	return nil
}

// SetUrgency re-grades the report
type SetUrgency struct {
	Urgency models.Urgency
}

func (c SetUrgency) apply(r *models.Report) error {
	if !c.Urgency.Valid() {
		return errors.Wrapf(models.ErrValidation, "unknown urgency %q", c.Urgency)
	}
	r.Urgency = c.Urgency
	return nil
}

// TargetStatus returns the status the changes move to, if any. With several
// SetStatus entries the last one wins, as it would when applied in order.
func TargetStatus(changes []Change) (models.Status, bool) {
	var (
		to    models.Status
		found bool
	)
	for _, c := range changes {
		if s, ok := c.(SetStatus); ok {
			to, found = s.Status, true
		}
	}
	return to, found
}
