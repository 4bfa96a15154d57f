package lifecycle

import "github.com/linesmerrill/civic-report-api/models"

// Policy decides which status changes an authority may make
type Policy int

// Policies
const (
	// Strict only allows the moves in the transition table
	Strict Policy = iota
	// Relaxed lets an authority jump between any two statuses as long as the
	// report has not reached a terminal status
	Relaxed
)

// ParsePolicy maps a config value to a Policy; anything but "relaxed" is Strict
func ParsePolicy(raw string) Policy {
	if raw == "relaxed" {
		return Relaxed
	}
	return Strict
}

func (p Policy) String() string {
	if p == Relaxed {
		return "relaxed"
	}
	return "strict"
}

var transitions = map[models.Status][]models.Status{
	models.StatusSubmitted:   {models.StatusUnderReview, models.StatusRejected},
	models.StatusUnderReview: {models.StatusAssigned, models.StatusRejected},
	models.StatusAssigned:    {models.StatusInProgress},
	models.StatusInProgress:  {models.StatusResolved},
	models.StatusResolved:    {models.StatusClosed},
	models.StatusClosed:      nil,
	models.StatusRejected:    nil,
}

// Allowed lists the statuses reachable from one step under the strict table
func Allowed(from models.Status) []models.Status {
	return append([]models.Status(nil), transitions[from]...)
}

// Terminal is true for statuses nothing can leave
func Terminal(s models.Status) bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether the strict table allows from -> to
func CanTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Permits applies the policy to from -> to
func (p Policy) Permits(from, to models.Status) bool {
	if p == Relaxed {
		return to.Valid() && from != to && !Terminal(from)
	}
	return CanTransition(from, to)
}
