package vamsys

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PirepEvent is the canonical internal form of a flight-report
// notification. Raw vAMSYS payloads appear in several shapes depending on
// platform version; ParsePirepEvent maps all observed shapes into this one.
type PirepEvent struct {
	Event        string  // full event type, e.g. "pirep.filed"
	PirepID      string  // unique event identifier, the deduplication key
	Registration string  // airframe registration, e.g. "G-ECLB"
	FlightHours  float64 // flight duration in hours (0 when absent)
	LandingRate  float64 // touchdown vertical speed in fpm (negative = descending)
	Departure    string  // origin ICAO
	Arrival      string  // destination ICAO
	Status       string  // pirep review status, e.g. "accepted"
	Callsign     string
	FleetID      *string // vAMSYS fleet identifier (needed for the visibility API)
	InternalID   *string // vAMSYS internal aircraft identifier
}

// RosterEvent is the canonical form of a pilot roster notification.
type RosterEvent struct {
	Event     string // e.g. "pilot.registered"
	PilotName string
	Callsign  string
	Rank      string
}

// flexString decodes a JSON value that may arrive as a string or a
// number into its string form.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Raw payload shapes. The pirep object nests under data.pirep on current
// platform versions and directly under data on older ones.

type rawEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type rawPirepWrapper struct {
	Pirep *rawPirep `json:"pirep"`
}

type rawPirep struct {
	ID            flexString  `json:"id"`
	Callsign      string      `json:"callsign"`
	Status        string      `json:"status"`
	FlightLength  *float64    `json:"flight_length"`  // seconds
	FlightTime    *float64    `json:"flight_time"`    // minutes, older shape
	LandingRate   *float64    `json:"landing_rate"`   // fpm
	Network       string      `json:"network"`
	Departure     *rawAirport `json:"departure_airport"`
	Arrival       *rawAirport `json:"arrival_airport"`
	Aircraft      *rawAircraft `json:"aircraft"`
}

type rawAirport struct {
	ICAO string `json:"icao"`
}

type rawAircraft struct {
	ID           flexString `json:"id"`
	Registration string     `json:"registration"`
	Name         string     `json:"name"`
	FleetID      flexString `json:"fleet_id"`
}

type rawPilotWrapper struct {
	Pilot *rawPilot `json:"pilot"`
}

type rawPilot struct {
	Name     string   `json:"name"`
	Callsign string   `json:"callsign"`
	Username string   `json:"username"`
	User     *rawUser `json:"user"`
	Rank     *rawRank `json:"rank"`
}

type rawUser struct {
	Name string `json:"name"`
}

type rawRank struct {
	Name string `json:"name"`
}

// ParseEventType extracts only the event type string from a payload.
// Returns an empty string when the payload is not valid JSON or carries
// no event field.
func ParseEventType(body []byte) string {
	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Event
}

// ParsePirepEvent maps a raw flight-report payload into the canonical
// event. It is total over the observed payload shapes: a missing or zero
// duration is valid, only a missing event type, pirep object, identifier
// or registration is an error.
func ParsePirepEvent(body []byte) (*PirepEvent, error) {
	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("event type missing")
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("event data missing")
	}

	// Current shape: data.pirep; older shape: data is the pirep itself
	var pirep *rawPirep
	var wrapper rawPirepWrapper
	if err := json.Unmarshal(env.Data, &wrapper); err == nil && wrapper.Pirep != nil {
		pirep = wrapper.Pirep
	} else {
		var direct rawPirep
		if err := json.Unmarshal(env.Data, &direct); err != nil {
			return nil, fmt.Errorf("failed to parse pirep data: %w", err)
		}
		pirep = &direct
	}

	id := strings.TrimSpace(string(pirep.ID))
	if id == "" {
		return nil, fmt.Errorf("pirep id missing")
	}

	ev := &PirepEvent{
		Event:    env.Event,
		PirepID:  id,
		Callsign: pirep.Callsign,
		Status:   pirep.Status,
	}

	// Duration: flight_length is seconds, flight_time (older shape) is
	// minutes. Absent duration accumulates zero hours.
	if pirep.FlightLength != nil {
		ev.FlightHours = *pirep.FlightLength / 3600.0
	} else if pirep.FlightTime != nil {
		ev.FlightHours = *pirep.FlightTime / 60.0
	}

	if pirep.LandingRate != nil {
		ev.LandingRate = *pirep.LandingRate
	}
	if pirep.Departure != nil {
		ev.Departure = strings.ToUpper(pirep.Departure.ICAO)
	}
	if pirep.Arrival != nil {
		ev.Arrival = strings.ToUpper(pirep.Arrival.ICAO)
	}

	if pirep.Aircraft != nil {
		reg := pirep.Aircraft.Registration
		if reg == "" {
			reg = pirep.Aircraft.Name
		}
		ev.Registration = strings.ToUpper(strings.TrimSpace(reg))
		if fleetID := string(pirep.Aircraft.FleetID); fleetID != "" {
			ev.FleetID = &fleetID
		}
		if internalID := string(pirep.Aircraft.ID); internalID != "" {
			ev.InternalID = &internalID
		}
	}
	if ev.Registration == "" {
		return nil, fmt.Errorf("aircraft registration missing")
	}

	return ev, nil
}

// ParseRosterEvent maps a raw pilot roster payload into the canonical
// event. The pilot object nests under data.pilot or directly under data.
func ParseRosterEvent(body []byte) (*RosterEvent, error) {
	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("event type missing")
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("event data missing")
	}

	var pilot *rawPilot
	var wrapper rawPilotWrapper
	if err := json.Unmarshal(env.Data, &wrapper); err == nil && wrapper.Pilot != nil {
		pilot = wrapper.Pilot
	} else {
		var direct rawPilot
		if err := json.Unmarshal(env.Data, &direct); err != nil {
			return nil, fmt.Errorf("failed to parse pilot data: %w", err)
		}
		pilot = &direct
	}

	ev := &RosterEvent{Event: env.Event}

	ev.PilotName = pilot.Name
	if ev.PilotName == "" && pilot.User != nil {
		ev.PilotName = pilot.User.Name
	}
	ev.Callsign = pilot.Callsign
	if ev.Callsign == "" {
		ev.Callsign = pilot.Username
	}
	if pilot.Rank != nil {
		ev.Rank = pilot.Rank.Name
	}

	return ev, nil
}
