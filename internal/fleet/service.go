package fleet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ecvirtual/fleetops/pkg/logger"
)

// Store is the persistence boundary for aircraft maintenance records.
type Store interface {
	Get(registration string) (*AircraftStatus, bool, error)
	GetAll() ([]*AircraftStatus, error)
	Upsert(status *AircraftStatus) error
	DueForRelease(now time.Time) ([]*AircraftStatus, error)
	Release(registration string) error
}

// VisibilityToggler hides or unhides an aircraft on the flight-ops
// platform's public scheduling surface.
type VisibilityToggler interface {
	Enabled() bool
	SetAircraftVisibility(ctx context.Context, fleetID, aircraftID string, hidden bool) error
}

// SheetMirror pushes row updates to the operations spreadsheet.
type SheetMirror interface {
	Enabled() bool
	Update(ctx context.Context, registration, checkLabel, returnToService string) error
}

// Notifier posts messages to the monitoring channel.
type Notifier interface {
	Enabled() bool
	Post(ctx context.Context, message string) error
}

// Broadcaster pushes lifecycle transitions to connected dashboards.
// Optional; a nil broadcaster is ignored.
type Broadcaster interface {
	BroadcastTransition(t Transition)
}

// FlightReport is the slice of a flight-report event the engine consumes.
type FlightReport struct {
	PirepID      string
	Registration string
	FlightHours  float64
	LandingRate  float64
	Arrival      string
	FleetID      *string
	InternalID   *string
}

// Service owns the maintenance lifecycle: it accumulates flight hours,
// deduplicates events, grounds aircraft when checks come due or landings
// are hard, and fans state changes out to the external systems of record.
type Service struct {
	store      Store
	thresholds *Thresholds
	visibility VisibilityToggler
	sheets     SheetMirror
	notify     Notifier
	broadcast  Broadcaster
	logger     *logger.Logger

	// now is replaceable for tests
	now func() time.Time
}

// NewService creates a new fleet maintenance service
func NewService(
	store Store,
	thresholds *Thresholds,
	visibility VisibilityToggler,
	sheets SheetMirror,
	notify Notifier,
	broadcast Broadcaster,
	log *logger.Logger,
) *Service {
	return &Service{
		store:      store,
		thresholds: thresholds,
		visibility: visibility,
		sheets:     sheets,
		notify:     notify,
		broadcast:  broadcast,
		logger:     log.Named("fleet-service"),
		now:        time.Now,
	}
}

// ApplyFlightReport applies one flight-report event to the aircraft's
// record: hour accumulation (idempotent per pirep id), threshold
// evaluation and any resulting grounding. The persisted state change and
// the fan-out happen here; the caller has already acknowledged the
// webhook.
func (s *Service) ApplyFlightReport(ctx context.Context, report FlightReport) error {
	status, found, err := s.store.Get(report.Registration)
	if err != nil {
		return fmt.Errorf("failed to load aircraft %s: %w", report.Registration, err)
	}
	if !found {
		status = NewAircraftStatus(report.Registration)
	}

	// Deduplicate on the externally supplied pirep id: hours accumulate
	// at most once per distinct id. The id is re-affirmed in the same
	// write either way, so a redelivery after a partial failure still
	// lands on the dedup path.
	applied := status.LastPirepID == nil || *status.LastPirepID != report.PirepID
	if applied {
		status.TotalFlightHours += report.FlightHours
	} else {
		s.logger.Info("Duplicate pirep ignored",
			logger.String("registration", report.Registration),
			logger.String("pirep_id", report.PirepID))
	}
	pirepID := report.PirepID
	status.LastPirepID = &pirepID

	// External identifiers ride along on every report; keep the latest
	if report.FleetID != nil {
		status.FleetID = report.FleetID
	}
	if report.InternalID != nil {
		status.VamsysInternalID = report.InternalID
	}

	var transition *Transition
	if applied {
		transition = s.evaluateGrounding(status, report)
	}

	if err := s.store.Upsert(status); err != nil {
		return fmt.Errorf("failed to persist aircraft %s: %w", report.Registration, err)
	}

	s.logger.Info("Flight report applied",
		logger.String("registration", report.Registration),
		logger.String("pirep_id", report.PirepID),
		logger.Bool("hours_applied", applied),
		logger.Float64("total_hours", status.TotalFlightHours),
		logger.Bool("grounded", transition != nil))

	if transition != nil {
		s.dispatch(ctx, *transition)
	}
	return nil
}

// evaluateGrounding mutates the record for any grounding the report
// causes and returns the transition to fan out, or nil.
func (s *Service) evaluateGrounding(status *AircraftStatus, report FlightReport) *Transition {
	// Hard landing takes emergency precedence over any tier check and
	// holds the aircraft indefinitely pending inspection
	if s.thresholds.HardLanding(report.LandingRate) {
		wasAOG := status.IsAOG
		status.IsAOG = true
		status.MaintEndAt = nil
		s.logger.Warn("Hard landing detected",
			logger.String("registration", status.Registration),
			logger.Float64("landing_rate", report.LandingRate))
		if wasAOG {
			return nil
		}
		return &Transition{
			Registration: status.Registration,
			Grounded:     true,
			Reason:       ReasonHardLanding,
			TotalHours:   status.TotalFlightHours,
			FleetID:      status.FleetID,
			InternalID:   status.VamsysInternalID,
		}
	}

	if status.IsAOG {
		return nil
	}

	marks := map[CheckTier]float64{
		CheckA: status.LastCheckA,
		CheckB: status.LastCheckB,
		CheckC: status.LastCheckC,
		CheckD: status.LastCheckD,
	}
	tier, due := s.thresholds.Evaluate(status.TotalFlightHours, marks)
	if !due {
		return nil
	}

	// Heavy checks only happen at the maintenance base; a gated tier
	// stays due (mark untouched) until the aircraft next lands there
	if s.thresholds.GatedOnBase(tier, report.Arrival) {
		s.logger.Info("Check due but aircraft away from maintenance base, deferring",
			logger.String("registration", status.Registration),
			logger.String("tier", string(tier)),
			logger.String("arrival", report.Arrival))
		return nil
	}

	endAt := s.now().Add(s.thresholds.Duration(tier)).UTC()
	status.IsAOG = true
	status.MaintEndAt = &endAt

	// A heavier check satisfies the lighter ones; advance every mark up
	// to and including the due tier
	for _, t := range Tiers {
		status.SetLastCheck(t, status.TotalFlightHours)
		if t == tier {
			break
		}
	}

	s.logger.Info("Maintenance check due, aircraft grounded",
		logger.String("registration", status.Registration),
		logger.String("tier", string(tier)),
		logger.Float64("total_hours", status.TotalFlightHours),
		logger.Time("release_at", endAt))

	return &Transition{
		Registration: status.Registration,
		Grounded:     true,
		Reason:       ReasonScheduledCheck,
		Tier:         tier,
		TotalHours:   status.TotalFlightHours,
		MaintEndAt:   &endAt,
		FleetID:      status.FleetID,
		InternalID:   status.VamsysInternalID,
	}
}

// StartMaintenance grounds an aircraft manually for the given number of
// hours, creating the record if needed.
func (s *Service) StartMaintenance(ctx context.Context, registration string, hours int) (*AircraftStatus, error) {
	if hours <= 0 {
		return nil, fmt.Errorf("maintenance duration must be positive")
	}

	status, found, err := s.store.Get(registration)
	if err != nil {
		return nil, fmt.Errorf("failed to load aircraft %s: %w", registration, err)
	}
	if !found {
		status = NewAircraftStatus(registration)
	}

	endAt := s.now().Add(time.Duration(hours) * time.Hour).UTC()
	status.IsAOG = true
	status.MaintEndAt = &endAt

	if err := s.store.Upsert(status); err != nil {
		return nil, fmt.Errorf("failed to persist aircraft %s: %w", registration, err)
	}

	s.dispatch(ctx, Transition{
		Registration: registration,
		Grounded:     true,
		Reason:       ReasonManual,
		TotalHours:   status.TotalFlightHours,
		MaintEndAt:   &endAt,
		FleetID:      status.FleetID,
		InternalID:   status.VamsysInternalID,
	})
	return status, nil
}

// ResetCheck closes out a check performed outside the automated flow.
// checkType "AOG" clears the grounding flags (the manual release path for
// hard-landing holds); "A".."D" advances that tier's mark to the current
// hour count.
func (s *Service) ResetCheck(ctx context.Context, registration, checkType string) (*AircraftStatus, error) {
	status, found, err := s.store.Get(registration)
	if err != nil {
		return nil, fmt.Errorf("failed to load aircraft %s: %w", registration, err)
	}
	if !found {
		return nil, fmt.Errorf("unknown aircraft: %s", registration)
	}

	checkType = strings.ToUpper(checkType)
	switch checkType {
	case "AOG":
		wasAOG := status.IsAOG
		status.IsAOG = false
		status.MaintEndAt = nil
		if err := s.store.Upsert(status); err != nil {
			return nil, fmt.Errorf("failed to persist aircraft %s: %w", registration, err)
		}
		if wasAOG {
			s.dispatch(ctx, Transition{
				Registration: registration,
				Grounded:     false,
				TotalHours:   status.TotalFlightHours,
				FleetID:      status.FleetID,
				InternalID:   status.VamsysInternalID,
			})
		}
	case "A", "B", "C", "D":
		status.SetLastCheck(CheckTier(checkType), status.TotalFlightHours)
		if err := s.store.Upsert(status); err != nil {
			return nil, fmt.Errorf("failed to persist aircraft %s: %w", registration, err)
		}
	default:
		return nil, fmt.Errorf("invalid check type: %s", checkType)
	}

	s.logger.Info("Check reset applied",
		logger.String("registration", registration),
		logger.String("type", checkType))

	return status, nil
}

// GetStatus returns the record for one aircraft, synthesizing the default
// for an unseen registration without persisting it.
func (s *Service) GetStatus(registration string) (*AircraftStatus, error) {
	status, found, err := s.store.Get(registration)
	if err != nil {
		return nil, err
	}
	if !found {
		status = NewAircraftStatus(registration)
	}
	return status, nil
}

// FleetEntry is one aircraft's status plus the derived hours remaining
// until each check tier next comes due.
type FleetEntry struct {
	*AircraftStatus
	NextDue map[CheckTier]float64 `json:"next_due_hours"`
	Label   string                `json:"label"`
}

// FleetOverview returns every aircraft with derived next-due figures for
// the fleet status surface.
func (s *Service) FleetOverview() ([]*FleetEntry, error) {
	statuses, err := s.store.GetAll()
	if err != nil {
		return nil, err
	}

	entries := make([]*FleetEntry, 0, len(statuses))
	for _, status := range statuses {
		entry := &FleetEntry{
			AircraftStatus: status,
			NextDue:        make(map[CheckTier]float64, len(Tiers)),
		}
		anyDue := false
		for _, tier := range Tiers {
			interval := s.thresholds.Interval(tier)
			remaining := interval - mod(status.TotalFlightHours, interval)
			entry.NextDue[tier] = remaining
			if remaining <= 0.1 || remaining >= interval-0.1 {
				// Counter sits at or just past a threshold
				anyDue = true
			}
		}
		if status.IsAOG {
			if anyDue || status.MaintEndAt != nil {
				entry.Label = "MAINTENANCE"
			} else {
				entry.Label = "CONDITIONAL INSPECTION"
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func mod(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	m := a - float64(int64(a/b))*b
	return m
}

// dispatch fans a lifecycle transition out to the external systems of
// record. Sinks are best-effort and independent: one failing is logged
// and never blocks the others or rolls back the persisted state.
func (s *Service) dispatch(ctx context.Context, t Transition) {
	if s.broadcast != nil {
		s.broadcast.BroadcastTransition(t)
	}

	if s.visibility != nil && s.visibility.Enabled() {
		if t.FleetID != nil && t.InternalID != nil {
			if err := s.visibility.SetAircraftVisibility(ctx, *t.FleetID, *t.InternalID, t.Grounded); err != nil {
				s.logger.Error("Visibility sync failed",
					logger.String("registration", t.Registration),
					logger.Error(err))
			}
		} else {
			s.logger.Debug("Skipping visibility sync, external identifiers unknown",
				logger.String("registration", t.Registration))
		}
	}

	if s.sheets != nil && s.sheets.Enabled() {
		label, rts := sheetRow(t)
		if err := s.sheets.Update(ctx, t.Registration, label, rts); err != nil {
			s.logger.Error("Sheet sync failed",
				logger.String("registration", t.Registration),
				logger.Error(err))
		}
	}

	if s.notify != nil && s.notify.Enabled() {
		if err := s.notify.Post(ctx, transitionMessage(t)); err != nil {
			s.logger.Error("Notification failed",
				logger.String("registration", t.Registration),
				logger.Error(err))
		}
	}
}

// sheetRow maps a transition to the spreadsheet's check label and
// formatted return-to-service columns.
func sheetRow(t Transition) (label, rts string) {
	if !t.Grounded {
		return "Active", ""
	}
	switch t.Reason {
	case ReasonScheduledCheck:
		label = string(t.Tier)
	case ReasonHardLanding:
		label = "INSPECTION"
	case ReasonManual:
		label = "MAINTENANCE"
	}
	if t.MaintEndAt != nil {
		rts = t.MaintEndAt.UTC().Format("02 Jan 2006 15:04") + "Z"
	} else {
		rts = "TBD"
	}
	return label, rts
}

// transitionMessage renders the monitoring-channel summary.
func transitionMessage(t Transition) string {
	if !t.Grounded {
		return fmt.Sprintf("%s released from maintenance, back in service at %.1fh total time",
			t.Registration, t.TotalHours)
	}
	switch t.Reason {
	case ReasonHardLanding:
		return fmt.Sprintf("%s grounded after hard landing at %.1fh total time, inspection required before release",
			t.Registration, t.TotalHours)
	case ReasonManual:
		return fmt.Sprintf("%s grounded for maintenance at %.1fh total time, return to service %s",
			t.Registration, t.TotalHours, t.MaintEndAt.UTC().Format("02 Jan 2006 15:04 MST"))
	default:
		return fmt.Sprintf("%s grounded for %s check at %.1fh total time, return to service %s",
			t.Registration, t.Tier, t.TotalHours, t.MaintEndAt.UTC().Format("02 Jan 2006 15:04 MST"))
	}
}
