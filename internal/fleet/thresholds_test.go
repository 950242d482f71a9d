package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ecvirtual/fleetops/internal/config"
)

func defaultMaintenanceConfig() config.MaintenanceConfig {
	return config.MaintenanceConfig{
		CheckIntervalA:      500,
		CheckIntervalB:      1000,
		CheckIntervalC:      4000,
		CheckIntervalD:      20000,
		CheckDurationHoursA: 12,
		CheckDurationHoursB: 48,
		CheckDurationHoursC: 336,
		CheckDurationHoursD: 720,
		HardLandingRateFPM:  -600,
		BaseAirport:         "EGHH",
		BaseGatedTiers:      []string{"C", "D"},
		SweepIntervalSecs:   60,
	}
}

func zeroMarks() map[CheckTier]float64 {
	return map[CheckTier]float64{CheckA: 0, CheckB: 0, CheckC: 0, CheckD: 0}
}

func TestEvaluate(t *testing.T) {
	th := NewThresholds(defaultMaintenanceConfig())

	tests := []struct {
		name     string
		newHours float64
		marks    map[CheckTier]float64
		wantTier CheckTier
		wantDue  bool
	}{
		{
			name:     "below first interval",
			newHours: 499.9,
			marks:    zeroMarks(),
			wantDue:  false,
		},
		{
			name:     "A check due at 500",
			newHours: 505,
			marks:    zeroMarks(),
			wantTier: CheckA,
			wantDue:  true,
		},
		{
			name:     "C wins over A and B when all cross",
			newHours: 4010,
			marks:    zeroMarks(),
			wantTier: CheckC,
			wantDue:  true,
		},
		{
			name:     "D wins over everything",
			newHours: 20001,
			marks:    zeroMarks(),
			wantTier: CheckD,
			wantDue:  true,
		},
		{
			name:     "advanced mark suppresses re-trigger",
			newHours: 520,
			marks:    map[CheckTier]float64{CheckA: 505, CheckB: 0, CheckC: 0, CheckD: 0},
			wantDue:  false,
		},
		{
			name:     "second A interval after reset at 505",
			newHours: 1001,
			marks:    map[CheckTier]float64{CheckA: 505, CheckB: 0, CheckC: 0, CheckD: 0},
			wantTier: CheckB,
			wantDue:  true,
		},
		{
			name:     "exactly on the boundary counts as crossed",
			newHours: 500,
			marks:    zeroMarks(),
			wantTier: CheckA,
			wantDue:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, due := th.Evaluate(tt.newHours, tt.marks)
			assert.Equal(t, tt.wantDue, due)
			if tt.wantDue {
				assert.Equal(t, tt.wantTier, tier)
			}
		})
	}
}

func TestHardLanding(t *testing.T) {
	th := NewThresholds(defaultMaintenanceConfig())

	assert.True(t, th.HardLanding(-600))
	assert.True(t, th.HardLanding(-700))
	assert.False(t, th.HardLanding(-599.9))
	assert.False(t, th.HardLanding(-200))
	assert.False(t, th.HardLanding(0))
}

func TestGatedOnBase(t *testing.T) {
	th := NewThresholds(defaultMaintenanceConfig())

	// C and D are gated: away from base they wait
	assert.True(t, th.GatedOnBase(CheckC, "LFPG"))
	assert.True(t, th.GatedOnBase(CheckD, "LFPG"))
	assert.False(t, th.GatedOnBase(CheckC, "EGHH"))
	assert.False(t, th.GatedOnBase(CheckD, "EGHH"))

	// A and B ground anywhere
	assert.False(t, th.GatedOnBase(CheckA, "LFPG"))
	assert.False(t, th.GatedOnBase(CheckB, "LFPG"))

	// Gating disabled entirely without a base airport
	cfg := defaultMaintenanceConfig()
	cfg.BaseAirport = ""
	ungated := NewThresholds(cfg)
	assert.False(t, ungated.GatedOnBase(CheckC, "LFPG"))
}

func TestDurations(t *testing.T) {
	th := NewThresholds(defaultMaintenanceConfig())

	assert.Equal(t, 12*time.Hour, th.Duration(CheckA))
	assert.Equal(t, 48*time.Hour, th.Duration(CheckB))
	assert.Equal(t, 336*time.Hour, th.Duration(CheckC))
	assert.Equal(t, 720*time.Hour, th.Duration(CheckD))
}
