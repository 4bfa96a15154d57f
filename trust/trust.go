// Package trust maps citizen reputation scores to tiers and computes how much
// each action moves a score. Everything here is pure.
package trust

import (
	"math"

	"github.com/linesmerrill/civic-report-api/models"
)

// Score bounds
const (
	MinScore = 0
	MaxScore = 100
)

// Canonical score deltas applied to a reporter
const (
	VerifiedReportDelta = 2
	ResolvedReportDelta = 5
	FalseReportPenalty  = -10
	SpamPenalty         = -20
)

// Weight bounds for a validator's vote
const (
	MinWeight = 0.5
	MaxWeight = 2.0
)

// TierFor returns the tier a score falls into
func TierFor(score int) models.Tier {
	switch {
	case score >= 81:
		return models.TierCivicGuardian
	case score >= 61:
		return models.TierTrustedReporter
	case score >= 31:
		return models.TierContributor
	default:
		return models.TierNewUser
	}
}

// Clamp bounds a score to [MinScore, MaxScore]
func Clamp(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// ApplyDelta returns a copy of u with the delta applied and the tier recomputed.
// u itself is left untouched.
func ApplyDelta(u models.User, delta int) models.User {
	u.TrustScore = Clamp(u.TrustScore + delta)
	u.Tier = TierFor(u.TrustScore)
	return u
}

// Normalize recomputes the derived fields of a user loaded from outside the engine
func Normalize(u models.User) models.User {
	return ApplyDelta(u, 0)
}

// ReportWeight scales a validator's vote by their trust, linearly from 0.5 at
// score 0 to 2.0 at score 100
func ReportWeight(score int) float64 {
	s := float64(Clamp(score))
	return MinWeight + (s/100)*(MaxWeight-MinWeight)
}

// WeightedDelta rounds delta scaled by the validator's weight back into the
// integer score domain
func WeightedDelta(delta, validatorScore int) int {
	return int(math.Round(float64(delta) * ReportWeight(validatorScore)))
}
