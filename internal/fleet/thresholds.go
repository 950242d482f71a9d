package fleet

import (
	"math"
	"time"

	"github.com/ecvirtual/fleetops/internal/config"
)

// Thresholds holds the check-hour intervals, grounding durations and the
// hard-landing limit. All methods are pure.
type Thresholds struct {
	intervals    map[CheckTier]float64
	durations    map[CheckTier]time.Duration
	hardLanding  float64
	baseAirport  string
	gatedOnBase  map[CheckTier]bool
}

// NewThresholds builds the threshold table from configuration.
func NewThresholds(cfg config.MaintenanceConfig) *Thresholds {
	gated := make(map[CheckTier]bool)
	for _, tier := range cfg.BaseGatedTiers {
		gated[CheckTier(tier)] = true
	}
	return &Thresholds{
		intervals: map[CheckTier]float64{
			CheckA: cfg.CheckIntervalA,
			CheckB: cfg.CheckIntervalB,
			CheckC: cfg.CheckIntervalC,
			CheckD: cfg.CheckIntervalD,
		},
		durations: map[CheckTier]time.Duration{
			CheckA: time.Duration(cfg.CheckDurationHoursA) * time.Hour,
			CheckB: time.Duration(cfg.CheckDurationHoursB) * time.Hour,
			CheckC: time.Duration(cfg.CheckDurationHoursC) * time.Hour,
			CheckD: time.Duration(cfg.CheckDurationHoursD) * time.Hour,
		},
		hardLanding: cfg.HardLandingRateFPM,
		baseAirport: cfg.BaseAirport,
		gatedOnBase: gated,
	}
}

// Interval returns the hour interval for a tier.
func (t *Thresholds) Interval(tier CheckTier) float64 {
	return t.intervals[tier]
}

// Duration returns the grounding duration for a tier.
func (t *Thresholds) Duration(tier CheckTier) time.Duration {
	return t.durations[tier]
}

// Evaluate determines which check tier, if any, became due when the hour
// counter moved from the per-tier last-reset marks to newHours. A tier is
// due when the number of completed intervals since its mark increased.
// When several tiers cross at once the most severe wins.
func (t *Thresholds) Evaluate(newHours float64, lastMarks map[CheckTier]float64) (CheckTier, bool) {
	// Walk from D down so the most severe due tier wins
	for i := len(Tiers) - 1; i >= 0; i-- {
		tier := Tiers[i]
		interval := t.intervals[tier]
		if interval <= 0 {
			continue
		}
		if math.Floor(newHours/interval) > math.Floor(lastMarks[tier]/interval) {
			return tier, true
		}
	}
	return "", false
}

// HardLanding reports whether a landing rate crosses the hard-landing
// limit. Rates are fpm at touchdown; more negative is harder.
func (t *Thresholds) HardLanding(landingRate float64) bool {
	return landingRate <= t.hardLanding
}

// GatedOnBase reports whether a due tier may only ground the aircraft
// when the triggering flight arrived at the maintenance base.
func (t *Thresholds) GatedOnBase(tier CheckTier, arrivalICAO string) bool {
	if t.baseAirport == "" || !t.gatedOnBase[tier] {
		return false
	}
	return arrivalICAO != t.baseAirport
}
