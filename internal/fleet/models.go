package fleet

import (
	"time"
)

// CheckTier identifies a scheduled maintenance check level. Higher tiers
// are more severe and implicitly satisfy the lower ones.
type CheckTier string

const (
	CheckA CheckTier = "A"
	CheckB CheckTier = "B"
	CheckC CheckTier = "C"
	CheckD CheckTier = "D"
)

// Tiers lists all check tiers in ascending severity order.
var Tiers = []CheckTier{CheckA, CheckB, CheckC, CheckD}

// AircraftStatus is the persistent maintenance record for one airframe,
// keyed by registration.
type AircraftStatus struct {
	Registration     string     `json:"registration"`
	TotalFlightHours float64    `json:"total_flight_hours"`
	LastCheckA       float64    `json:"last_check_a"`
	LastCheckB       float64    `json:"last_check_b"`
	LastCheckC       float64    `json:"last_check_c"`
	LastCheckD       float64    `json:"last_check_d"`
	IsAOG            bool       `json:"is_aog"`
	MaintEndAt       *time.Time `json:"maint_end_at,omitempty"`
	LastPirepID      *string    `json:"last_pirep_id,omitempty"`
	FleetID          *string    `json:"fleet_id,omitempty"`
	VamsysInternalID *string    `json:"vamsys_internal_id,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewAircraftStatus synthesizes the default record for a registration the
// store has never seen. The result is not persisted until the caller
// upserts it.
func NewAircraftStatus(registration string) *AircraftStatus {
	return &AircraftStatus{
		Registration: registration,
	}
}

// LastCheck returns the hour mark at which the given tier was last
// satisfied.
func (a *AircraftStatus) LastCheck(tier CheckTier) float64 {
	switch tier {
	case CheckA:
		return a.LastCheckA
	case CheckB:
		return a.LastCheckB
	case CheckC:
		return a.LastCheckC
	case CheckD:
		return a.LastCheckD
	}
	return 0
}

// SetLastCheck advances the mark for the given tier.
func (a *AircraftStatus) SetLastCheck(tier CheckTier, hours float64) {
	switch tier {
	case CheckA:
		a.LastCheckA = hours
	case CheckB:
		a.LastCheckB = hours
	case CheckC:
		a.LastCheckC = hours
	case CheckD:
		a.LastCheckD = hours
	}
}

// GroundingReason describes why an aircraft entered the AOG state.
type GroundingReason string

const (
	ReasonScheduledCheck GroundingReason = "scheduled_check"
	ReasonHardLanding    GroundingReason = "hard_landing"
	ReasonManual         GroundingReason = "manual"
)

// Transition is the outcome of applying a flight report or sweep to an
// aircraft record. It drives the external sync fan-out.
type Transition struct {
	Registration string
	Grounded     bool            // true = entered AOG, false = released
	Reason       GroundingReason // set when Grounded
	Tier         CheckTier       // set when Reason == ReasonScheduledCheck
	TotalHours   float64
	MaintEndAt   *time.Time // nil for indefinite (hard landing) holds
	FleetID      *string
	InternalID   *string
}
