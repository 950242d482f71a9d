package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecvirtual/fleetops/internal/config"
	"github.com/ecvirtual/fleetops/internal/fleet"
	"github.com/ecvirtual/fleetops/pkg/logger"
)

const testPirepSecret = "pirep-secret"
const testRosterSecret = "roster-secret"

// memStore is an in-memory fleet.Store for handler tests.
type memStore struct {
	records map[string]*fleet.AircraftStatus
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*fleet.AircraftStatus)}
}

func (m *memStore) Get(registration string) (*fleet.AircraftStatus, bool, error) {
	status, ok := m.records[registration]
	if !ok {
		return nil, false, nil
	}
	clone := *status
	return &clone, true, nil
}

func (m *memStore) GetAll() ([]*fleet.AircraftStatus, error) {
	regs := make([]string, 0, len(m.records))
	for reg := range m.records {
		regs = append(regs, reg)
	}
	sort.Strings(regs)

	statuses := make([]*fleet.AircraftStatus, 0, len(regs))
	for _, reg := range regs {
		clone := *m.records[reg]
		statuses = append(statuses, &clone)
	}
	return statuses, nil
}

func (m *memStore) Upsert(status *fleet.AircraftStatus) error {
	clone := *status
	m.records[status.Registration] = &clone
	return nil
}

func (m *memStore) DueForRelease(now time.Time) ([]*fleet.AircraftStatus, error) {
	var due []*fleet.AircraftStatus
	for _, status := range m.records {
		if status.IsAOG && status.MaintEndAt != nil && !status.MaintEndAt.After(now) {
			clone := *status
			due = append(due, &clone)
		}
	}
	return due, nil
}

func (m *memStore) Release(registration string) error {
	if status, ok := m.records[registration]; ok {
		status.IsAOG = false
		status.MaintEndAt = nil
	}
	return nil
}

type memNotifier struct {
	messages []string
}

func (n *memNotifier) Enabled() bool { return true }

func (n *memNotifier) Post(ctx context.Context, message string) error {
	n.messages = append(n.messages, message)
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *memStore, *memNotifier) {
	t.Helper()

	store := newMemStore()
	notify := &memNotifier{}
	log := logger.NewNop()

	cfg := &config.Config{
		Webhooks: config.WebhooksConfig{
			PirepSecret:  testPirepSecret,
			RosterSecret: testRosterSecret,
		},
		Maintenance: config.MaintenanceConfig{
			CheckIntervalA:      500,
			CheckIntervalB:      1000,
			CheckIntervalC:      4000,
			CheckIntervalD:      20000,
			CheckDurationHoursA: 12,
			CheckDurationHoursB: 48,
			CheckDurationHoursC: 336,
			CheckDurationHoursD: 720,
			HardLandingRateFPM:  -600,
		},
	}

	thresholds := fleet.NewThresholds(cfg.Maintenance)
	service := fleet.NewService(store, thresholds, nil, nil, notify, nil, log)

	return NewHandler(service, notify, cfg, log), store, notify
}

func newTestServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()

	handler, store, _ := newTestHandler(t)
	router := &Router{handler: handler, logger: logger.NewNop()}

	server := httptest.NewServer(router.Routes())
	t.Cleanup(server.Close)
	return server, store
}

func signedRequest(t *testing.T, method, url, secret string, body []byte) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, sign(secret, body))
	return req
}

func pirepBody(pirepID, registration string, lengthSeconds float64) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "pirep.filed",
		"data": {"pirep": {
			"id": %q,
			"flight_length": %g,
			"aircraft": {"registration": %q}
		}}
	}`, pirepID, lengthSeconds, registration))
}

func TestPirepWebhookRejectsInvalidSignature(t *testing.T) {
	server, store := newTestServer(t)

	body := pirepBody("ev1", "F-TEST", 3600)
	req := signedRequest(t, http.MethodPost, server.URL+"/vamsys/pirep", "wrong-secret", body)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, store.records)
}

func TestPirepWebhookAcknowledges(t *testing.T) {
	server, _ := newTestServer(t)

	body := pirepBody("ev1", "F-TEST", 3600)
	req := signedRequest(t, http.MethodPost, server.URL+"/vamsys/pirep", testPirepSecret, body)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var ack map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.True(t, ack["received"])
}

func TestProcessPirepUpdatesRecord(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	handler.processPirep(pirepBody("ev1", "F-TEST", 36000))

	status, ok := store.records["F-TEST"]
	require.True(t, ok)
	assert.Equal(t, 10.0, status.TotalFlightHours)
	require.NotNil(t, status.LastPirepID)
	assert.Equal(t, "ev1", *status.LastPirepID)
}

func TestProcessPirepDropsOtherEvents(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	handler.processPirep([]byte(`{"event": "booking.created", "data": {}}`))
	handler.processPirep([]byte(`{"event": "pirep.filed", "data": {"pirep": {}}}`))
	handler.processPirep([]byte(`not json at all`))

	assert.Empty(t, store.records)
}

func TestProcessRosterNotifies(t *testing.T) {
	handler, _, notify := newTestHandler(t)

	handler.processRoster([]byte(`{
		"event": "pilot.registered",
		"data": {"pilot": {"callsign": "ECV042", "user": {"name": "Jane Doe"}}}
	}`))

	require.Len(t, notify.messages, 1)
	assert.Equal(t, "Roster: Jane Doe (ECV042) registered", notify.messages[0])
}

func TestGetAircraftUnknownRegistration(t *testing.T) {
	server, store := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/fleet/f-new")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status fleet.AircraftStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "F-NEW", status.Registration)
	assert.Equal(t, 0.0, status.TotalFlightHours)
	assert.False(t, status.IsAOG)

	// The synthesized record is not persisted by the read
	assert.Empty(t, store.records)
}

func TestGetFleet(t *testing.T) {
	server, store := newTestServer(t)

	status := fleet.NewAircraftStatus("F-TEST")
	status.TotalFlightHours = 120
	require.NoError(t, store.Upsert(status))

	resp, err := http.Get(server.URL + "/api/fleet")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Count    int               `json:"count"`
		Aircraft []json.RawMessage `json:"aircraft"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 1, payload.Count)
	assert.Len(t, payload.Aircraft, 1)
}

func TestStartMaintenanceEndpoint(t *testing.T) {
	server, store := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/fleet/F-TEST/maintenance",
		"application/json", bytes.NewReader([]byte(`{"hours": 24}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	status, ok := store.records["F-TEST"]
	require.True(t, ok)
	assert.True(t, status.IsAOG)
	require.NotNil(t, status.MaintEndAt)
}

func TestStartMaintenanceRejectsBadHours(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/fleet/F-TEST/maintenance",
		"application/json", bytes.NewReader([]byte(`{"hours": 0}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResetCheckEndpoint(t *testing.T) {
	server, store := newTestServer(t)

	grounded := fleet.NewAircraftStatus("F-TEST")
	grounded.TotalFlightHours = 505
	grounded.IsAOG = true
	require.NoError(t, store.Upsert(grounded))

	resp, err := http.Post(server.URL+"/api/fleet/F-TEST/reset",
		"application/json", bytes.NewReader([]byte(`{"type": "aog"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, store.records["F-TEST"].IsAOG)
}

func TestResetCheckRejectsUnknownType(t *testing.T) {
	server, store := newTestServer(t)

	require.NoError(t, store.Upsert(fleet.NewAircraftStatus("F-TEST")))

	resp, err := http.Post(server.URL+"/api/fleet/F-TEST/reset",
		"application/json", bytes.NewReader([]byte(`{"type": "z"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
