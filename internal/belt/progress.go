package belt

import (
	"time"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

// Divisor for months-at-belt. The club counts elapsed months as blocks of
// thirty days rather than calendar months; exact month arithmetic would
// shift promotion timing.
const monthApprox = 30 * 24 * time.Hour

// ProgressResult describes a student's readiness for the next degree or
// belt. It is a pure derivation: evaluating the same inputs twice yields
// identical output, and applying an award is always a separate, explicit
// action.
type ProgressResult struct {
	StudentID             string      `json:"student_id"`
	CurrentBelt           models.Belt `json:"current_belt"`
	CurrentDegree         int         `json:"current_degree"`
	AttendedSinceBelt     int         `json:"attended_since_belt"`
	RequiredForNextDegree int         `json:"required_for_next_degree"`
	MonthsAtBelt          int         `json:"months_at_belt"`
	ReadyForDegree        bool        `json:"ready_for_degree"`
	ReadyForBeltPromotion bool        `json:"ready_for_belt_promotion"`
	Alert                 bool        `json:"alert"`
	NextDegreeIfAwarded   int         `json:"next_degree_if_awarded"`
	NextBeltIfPromoted    models.Belt `json:"next_belt_if_promoted,omitempty"`
}

// EvaluateProgress computes readiness for the next degree or belt from
// the attendance recorded since the student's current rank started.
// attendances must already be restricted to timestamps at or after
// BeltSince. maxDegree <= 0 falls back to models.MaxDegree.
func EvaluateProgress(student *models.Student, attendances []time.Time, cfg ClubConfig, now time.Time, maxDegree int) ProgressResult {
	if maxDegree <= 0 {
		maxDegree = models.MaxDegree
	}

	attended := len(attendances)
	required := cfg.RequiredClasses(student.CurrentBelt)
	monthsRequired := cfg.RequiredMonths(student.CurrentBelt)
	monthsAtBelt := int(now.Sub(student.BeltSince) / monthApprox)

	// Either qualifying path suffices: enough classes, or enough time at
	// the belt.
	readyForDegree := attended >= required || monthsAtBelt >= monthsRequired

	nextDegree := student.CurrentDegree
	readyForBelt := false
	var nextBelt models.Belt
	if readyForDegree {
		if student.CurrentDegree < maxDegree {
			nextDegree = student.CurrentDegree + 1
		} else {
			nextDegree = 0
			nextBelt = student.CurrentBelt.Next()
			readyForBelt = nextBelt != ""
		}
	}

	alert := required > 0 && float64(attended)/float64(required) >= cfg.AlertThreshold()

	return ProgressResult{
		StudentID:             student.ID,
		CurrentBelt:           student.CurrentBelt,
		CurrentDegree:         student.CurrentDegree,
		AttendedSinceBelt:     attended,
		RequiredForNextDegree: required,
		MonthsAtBelt:          monthsAtBelt,
		ReadyForDegree:        readyForDegree,
		ReadyForBeltPromotion: readyForBelt,
		Alert:                 alert,
		NextDegreeIfAwarded:   nextDegree,
		NextBeltIfPromoted:    nextBelt,
	}
}

// NextRankState returns the rank state that results from applying an
// award now: the next degree while below maxDegree, otherwise a belt
// advance with the degree reset. ok is false at the top belt and degree,
// where no further award exists.
func NextRankState(current models.Belt, degree, maxDegree int, now time.Time) (models.RankState, bool) {
	if maxDegree <= 0 {
		maxDegree = models.MaxDegree
	}
	if degree < maxDegree {
		return models.RankState{Belt: current, Degree: degree + 1, BeltSince: now}, true
	}
	next := current.Next()
	if next == "" {
		return models.RankState{}, false
	}
	return models.RankState{Belt: next, Degree: 0, BeltSince: now}, true
}

// FilterSince returns the attendance timestamps at or after since.
func FilterSince(since time.Time, times []time.Time) []time.Time {
	out := make([]time.Time, 0, len(times))
	for _, t := range times {
		if !t.Before(since) {
			out = append(out, t)
		}
	}
	return out
}
