// Package belt implements the attendance admission and graduation
// progression rules of the academy. Everything in this package is pure
// computation over snapshots supplied by the caller; persistence and
// transport belong to the surrounding services.
package belt

import (
	"time"

	"github.com/dojoflow/dojoflow-api/internal/models"
)

// Fallbacks applied when a belt is missing from the per-belt maps.
const (
	DefaultClassesPerDegree = 20
	DefaultMonthsPerDegree  = 6
	DefaultAlertThreshold   = 0.9
)

// ClubConfig holds the tunable graduation thresholds of the club.
type ClubConfig struct {
	ClassesPerDegree      map[models.Belt]int
	MonthsPerDegree       map[models.Belt]int
	AlertThresholdPercent float64
}

// DefaultClubConfig returns the thresholds used when no overrides are
// configured.
func DefaultClubConfig() ClubConfig {
	return ClubConfig{
		ClassesPerDegree: map[models.Belt]int{
			models.BeltBranca: 20,
			models.BeltAzul:   40,
			models.BeltRoxa:   60,
			models.BeltMarrom: 80,
			models.BeltPreta:  120,
		},
		MonthsPerDegree: map[models.Belt]int{
			models.BeltBranca: 6,
			models.BeltAzul:   12,
			models.BeltRoxa:   18,
			models.BeltMarrom: 24,
			models.BeltPreta:  36,
		},
		AlertThresholdPercent: DefaultAlertThreshold,
	}
}

// ClubConfigFrom overlays configured overrides, keyed by belt name, on
// top of the defaults. Unknown belt names are ignored.
func ClubConfigFrom(classes, months map[string]int, alert float64) ClubConfig {
	cfg := DefaultClubConfig()
	for name, n := range classes {
		if b := models.Belt(name); b.Valid() {
			cfg.ClassesPerDegree[b] = n
		}
	}
	for name, n := range months {
		if b := models.Belt(name); b.Valid() {
			cfg.MonthsPerDegree[b] = n
		}
	}
	if alert > 0 && alert <= 1 {
		cfg.AlertThresholdPercent = alert
	}
	return cfg
}

// RequiredClasses returns the attendance count needed for the next degree
// at the given belt, falling back to the documented default.
func (c ClubConfig) RequiredClasses(b models.Belt) int {
	if v, ok := c.ClassesPerDegree[b]; ok && v > 0 {
		return v
	}
	return DefaultClassesPerDegree
}

// RequiredMonths returns the minimum months at the given belt that
// qualify for the next degree, falling back to the documented default.
func (c ClubConfig) RequiredMonths(b models.Belt) int {
	if v, ok := c.MonthsPerDegree[b]; ok && v > 0 {
		return v
	}
	return DefaultMonthsPerDegree
}

// AlertThreshold returns the configured alert fraction, falling back to
// the default when unset or out of range.
func (c ClubConfig) AlertThreshold() float64 {
	if c.AlertThresholdPercent > 0 && c.AlertThresholdPercent <= 1 {
		return c.AlertThresholdPercent
	}
	return DefaultAlertThreshold
}

// Rules holds the admission-time constraints applied to check-ins.
type Rules struct {
	Capacity        int
	DuplicateWindow time.Duration
}

// DefaultRules returns the admission constraints used when no overrides
// are configured.
func DefaultRules() Rules {
	return Rules{Capacity: 20, DuplicateWindow: 2 * time.Hour}
}

// MonthRange returns the first instant of the calendar month containing
// now and the first instant of the following month.
func MonthRange(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}
