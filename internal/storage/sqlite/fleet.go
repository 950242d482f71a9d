package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ecvirtual/fleetops/internal/fleet"
	"github.com/ecvirtual/fleetops/pkg/logger"
	_ "modernc.org/sqlite"
)

// FleetStorage is a SQLite-based store for per-airframe maintenance
// records. It is the single source of truth; the webhook path and the
// release sweep both mutate records only through it.
type FleetStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewFleetStorage creates a new SQLite-based fleet storage
func NewFleetStorage(dbPath string, log *logger.Logger) (*FleetStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	// Open the database
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool limits
	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	// Set pragmas for better performance and concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Create tables if they don't exist
	if err := initDatabase(db, storageLogger); err != nil {
		db.Close()
		return nil, err
	}

	return &FleetStorage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// Close closes the database connection
func (s *FleetStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *FleetStorage) GetDB() *sql.DB {
	return s.db
}

// initDatabase initializes the database schema
func initDatabase(db *sql.DB, log *logger.Logger) error {
	log.Info("Initializing database schema")

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS aircraft_status (
			registration TEXT PRIMARY KEY,
			total_flight_hours REAL NOT NULL DEFAULT 0,
			last_check_a REAL NOT NULL DEFAULT 0,
			last_check_b REAL NOT NULL DEFAULT 0,
			last_check_c REAL NOT NULL DEFAULT 0,
			last_check_d REAL NOT NULL DEFAULT 0,
			is_aog INTEGER NOT NULL DEFAULT 0,
			maint_end_at TIMESTAMP,
			last_pirep_id TEXT,
			fleet_id TEXT,
			vamsys_internal_id TEXT,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create aircraft_status table: %w", err)
	}

	// The release sweep queries on the timer fields every interval
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_aircraft_status_maint_end ON aircraft_status(is_aog, maint_end_at)`)
	if err != nil {
		return fmt.Errorf("failed to create index on aircraft_status.maint_end_at: %w", err)
	}

	return nil
}

const statusColumns = `registration, total_flight_hours,
	last_check_a, last_check_b, last_check_c, last_check_d,
	is_aog, maint_end_at, last_pirep_id, fleet_id, vamsys_internal_id, updated_at`

// Get returns the record for a registration. The second return value is
// false when the store has never seen the registration; the caller
// synthesizes the default record and nothing is persisted until the
// first Upsert.
func (s *FleetStorage) Get(registration string) (*fleet.AircraftStatus, bool, error) {
	row := s.db.QueryRow(`SELECT `+statusColumns+` FROM aircraft_status WHERE registration = ?`, registration)

	status, err := scanStatus(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get aircraft status: %w", err)
	}
	return status, true, nil
}

// GetAll returns every record ordered by registration.
func (s *FleetStorage) GetAll() ([]*fleet.AircraftStatus, error) {
	rows, err := s.db.Query(`SELECT ` + statusColumns + ` FROM aircraft_status ORDER BY registration ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aircraft status: %w", err)
	}
	defer rows.Close()

	var statuses []*fleet.AircraftStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aircraft status: %w", err)
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

// Upsert merges the record by registration in a single atomic statement,
// so concurrent writers for the same airframe cannot interleave partial
// updates.
func (s *FleetStorage) Upsert(status *fleet.AircraftStatus) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO aircraft_status (
			registration, total_flight_hours,
			last_check_a, last_check_b, last_check_c, last_check_d,
			is_aog, maint_end_at, last_pirep_id, fleet_id, vamsys_internal_id, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(registration) DO UPDATE SET
			total_flight_hours = excluded.total_flight_hours,
			last_check_a = excluded.last_check_a,
			last_check_b = excluded.last_check_b,
			last_check_c = excluded.last_check_c,
			last_check_d = excluded.last_check_d,
			is_aog = excluded.is_aog,
			maint_end_at = excluded.maint_end_at,
			last_pirep_id = excluded.last_pirep_id,
			fleet_id = excluded.fleet_id,
			vamsys_internal_id = excluded.vamsys_internal_id,
			updated_at = excluded.updated_at
	`,
		status.Registration, status.TotalFlightHours,
		status.LastCheckA, status.LastCheckB, status.LastCheckC, status.LastCheckD,
		boolToInt(status.IsAOG), nullableTime(status.MaintEndAt),
		nullableString(status.LastPirepID), nullableString(status.FleetID),
		nullableString(status.VamsysInternalID), now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert aircraft status: %w", err)
	}
	return nil
}

// DueForRelease returns grounded aircraft whose maintenance end time has
// passed. Aircraft grounded indefinitely (null maint_end_at) never match.
func (s *FleetStorage) DueForRelease(now time.Time) ([]*fleet.AircraftStatus, error) {
	rows, err := s.db.Query(`
		SELECT `+statusColumns+` FROM aircraft_status
		WHERE is_aog = 1 AND maint_end_at IS NOT NULL AND maint_end_at <= ?
		ORDER BY registration ASC
	`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query due releases: %w", err)
	}
	defer rows.Close()

	var statuses []*fleet.AircraftStatus
	for rows.Next() {
		status, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan aircraft status: %w", err)
		}
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

// Release atomically clears the grounding fields for one registration.
// Only the two timer fields are touched, so a concurrent hour update on
// the same record cannot be lost.
func (s *FleetStorage) Release(registration string) error {
	_, err := s.db.Exec(`
		UPDATE aircraft_status
		SET is_aog = 0, maint_end_at = NULL, updated_at = ?
		WHERE registration = ?
	`, time.Now().UTC(), registration)
	if err != nil {
		return fmt.Errorf("failed to release aircraft: %w", err)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (*fleet.AircraftStatus, error) {
	var status fleet.AircraftStatus
	var isAOG int
	var maintEndAt sql.NullTime
	var lastPirepID, fleetID, internalID sql.NullString

	err := row.Scan(
		&status.Registration, &status.TotalFlightHours,
		&status.LastCheckA, &status.LastCheckB, &status.LastCheckC, &status.LastCheckD,
		&isAOG, &maintEndAt, &lastPirepID, &fleetID, &internalID, &status.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	status.IsAOG = isAOG != 0
	if maintEndAt.Valid {
		t := maintEndAt.Time.UTC()
		status.MaintEndAt = &t
	}
	if lastPirepID.Valid {
		status.LastPirepID = &lastPirepID.String
	}
	if fleetID.Valid {
		status.FleetID = &fleetID.String
	}
	if internalID.Valid {
		status.VamsysInternalID = &internalID.String
	}

	return &status, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
