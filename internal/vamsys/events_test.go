package vamsys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePirepEventNestedShape(t *testing.T) {
	body := []byte(`{
		"event": "pirep.filed",
		"data": {
			"pirep": {
				"id": "ev1",
				"callsign": "BAW123",
				"status": "accepted",
				"flight_length": 36000,
				"landing_rate": -180.5,
				"departure_airport": {"icao": "EGHH"},
				"arrival_airport": {"icao": "lfpg"},
				"aircraft": {
					"id": 4242,
					"registration": "g-eclb",
					"fleet_id": 17
				}
			}
		}
	}`)

	ev, err := ParsePirepEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "pirep.filed", ev.Event)
	assert.Equal(t, "ev1", ev.PirepID)
	assert.Equal(t, "G-ECLB", ev.Registration)
	assert.Equal(t, 10.0, ev.FlightHours)
	assert.Equal(t, -180.5, ev.LandingRate)
	assert.Equal(t, "EGHH", ev.Departure)
	assert.Equal(t, "LFPG", ev.Arrival)
	assert.Equal(t, "accepted", ev.Status)
	require.NotNil(t, ev.FleetID)
	assert.Equal(t, "17", *ev.FleetID)
	require.NotNil(t, ev.InternalID)
	assert.Equal(t, "4242", *ev.InternalID)
}

func TestParsePirepEventDirectShape(t *testing.T) {
	// Older payloads place the pirep object directly under data and carry
	// the duration as flight_time in minutes.
	body := []byte(`{
		"event": "pirep.filed",
		"data": {
			"id": "ev2",
			"flight_time": 90,
			"aircraft": {"registration": "G-ECLA"}
		}
	}`)

	ev, err := ParsePirepEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "ev2", ev.PirepID)
	assert.Equal(t, "G-ECLA", ev.Registration)
	assert.Equal(t, 1.5, ev.FlightHours)
	assert.Nil(t, ev.FleetID)
	assert.Nil(t, ev.InternalID)
}

func TestParsePirepEventStringIDs(t *testing.T) {
	body := []byte(`{
		"event": "pirep.filed",
		"data": {"pirep": {
			"id": "a1b2c3",
			"flight_length": 3600,
			"aircraft": {"id": "99", "registration": "F-TEST", "fleet_id": "3"}
		}}
	}`)

	ev, err := ParsePirepEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "a1b2c3", ev.PirepID)
	require.NotNil(t, ev.FleetID)
	assert.Equal(t, "3", *ev.FleetID)
	require.NotNil(t, ev.InternalID)
	assert.Equal(t, "99", *ev.InternalID)
}

func TestParsePirepEventMissingDuration(t *testing.T) {
	body := []byte(`{
		"event": "pirep.filed",
		"data": {"pirep": {
			"id": "ev3",
			"aircraft": {"registration": "F-TEST"}
		}}
	}`)

	ev, err := ParsePirepEvent(body)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.FlightHours)
	assert.Equal(t, 0.0, ev.LandingRate)
}

func TestParsePirepEventRegistrationFallback(t *testing.T) {
	body := []byte(`{
		"event": "pirep.filed",
		"data": {"pirep": {
			"id": "ev4",
			"aircraft": {"name": "g-ecla"}
		}}
	}`)

	ev, err := ParsePirepEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "G-ECLA", ev.Registration)
}

func TestParsePirepEventErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{`},
		{"missing event type", `{"data": {"pirep": {"id": "e", "aircraft": {"registration": "F-X"}}}}`},
		{"missing data", `{"event": "pirep.filed"}`},
		{"missing pirep id", `{"event": "pirep.filed", "data": {"pirep": {"aircraft": {"registration": "F-X"}}}}`},
		{"missing registration", `{"event": "pirep.filed", "data": {"pirep": {"id": "e"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePirepEvent([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestParseEventType(t *testing.T) {
	assert.Equal(t, "pirep.filed", ParseEventType([]byte(`{"event": "pirep.filed", "data": {}}`)))
	assert.Equal(t, "", ParseEventType([]byte(`not json`)))
	assert.Equal(t, "", ParseEventType([]byte(`{"data": {}}`)))
}

func TestParseRosterEvent(t *testing.T) {
	body := []byte(`{
		"event": "pilot.registered",
		"data": {"pilot": {
			"callsign": "ECV042",
			"user": {"name": "Jane Doe"},
			"rank": {"name": "First Officer"}
		}}
	}`)

	ev, err := ParseRosterEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "pilot.registered", ev.Event)
	assert.Equal(t, "Jane Doe", ev.PilotName)
	assert.Equal(t, "ECV042", ev.Callsign)
	assert.Equal(t, "First Officer", ev.Rank)
}

func TestParseRosterEventDirectShape(t *testing.T) {
	body := []byte(`{
		"event": "pilot.promoted",
		"data": {"name": "John Smith", "username": "ECV007"}
	}`)

	ev, err := ParseRosterEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", ev.PilotName)
	assert.Equal(t, "ECV007", ev.Callsign)
}
