package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlightPlan represents a scheduled flight as read from the flights file
type FlightPlan struct {
	ACID             string  `json:"ACID"`
	PlaneType        string  `json:"Plane type"`
	Route            string  `json:"route"`
	DepartureAirport string  `json:"departure airport"`
	ArrivalAirport   string  `json:"arrival airport"`
	DepartureTime    int64   `json:"departure time"`
	Speed            float64 `json:"aircraft speed"`
	Altitude         int     `json:"altitude"`
}

// AltitudeLimits bounds the cruise altitude of an aircraft type, in feet
type AltitudeLimits struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// SpeedLimits bounds the cruise speed of an aircraft type, in knots
type SpeedLimits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AircraftType holds the performance envelope of an aircraft type
type AircraftType struct {
	Altitude AltitudeLimits `json:"altitude"`
	Speed    SpeedLimits    `json:"speed"`
}

// TypeTable maps aircraft type names to their performance envelope
type TypeTable map[string]AircraftType

// StateEntry is the mutable simulation state of a single aircraft
type StateEntry struct {
	ACID      string  `json:"ACID"`
	PlaneType string  `json:"Plane type"`
	Altitude  int     `json:"altitude"`
	Speed     float64 `json:"aircraft speed"`
	Changes   int     `json:"changes"`
}

// State is the full simulation state collection
type State []StateEntry

// Index returns pointers into the collection keyed by ACID. The pointers
// stay valid as long as the slice is not grown.
func (s State) Index() map[string]*StateEntry {
	idx := make(map[string]*StateEntry, len(s))
	for i := range s {
		idx[s[i].ACID] = &s[i]
	}
	return idx
}

// Clone returns an independent copy of the collection
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	copy(out, s)
	return out
}

// Position is the location of one airborne aircraft at a snapshot
type Position struct {
	ACID      string  `json:"acid"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Altitude  int     `json:"alt"`
}

// Snapshot holds the airborne positions at one sampled time. Timestamp is
// expressed in minutes since the start of the simulation.
type Snapshot struct {
	Timestamp int        `json:"timestamp"`
	Positions []Position `json:"planes"`
}

// Cluster is a set of aircraft in mutual (possibly transitive) conflict at
// one snapshot. It serialises as [acid_1, ..., acid_k, timestamp].
type Cluster struct {
	ACIDs     []string
	Timestamp int
}

// MarshalJSON encodes the cluster as a flat array
func (c Cluster) MarshalJSON() ([]byte, error) {
	out := make([]interface{}, 0, len(c.ACIDs)+1)
	for _, acid := range c.ACIDs {
		out = append(out, acid)
	}
	out = append(out, c.Timestamp)
	return json.Marshal(out)
}

// UnmarshalJSON decodes a flat [acid..., timestamp] array
func (c *Cluster) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid cluster: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("invalid cluster: empty array")
	}

	var ts int
	if err := json.Unmarshal(raw[len(raw)-1], &ts); err != nil {
		return fmt.Errorf("invalid cluster timestamp: %w", err)
	}

	acids := make([]string, 0, len(raw)-1)
	for _, r := range raw[:len(raw)-1] {
		var acid string
		if err := json.Unmarshal(r, &acid); err != nil {
			return fmt.Errorf("invalid cluster member: %w", err)
		}
		acids = append(acids, acid)
	}

	c.ACIDs = acids
	c.Timestamp = ts
	return nil
}

// PassEvent summarises one simulate/detect/resolve pass
type PassEvent struct {
	RunID           string    `json:"run_id"`
	Pass            int       `json:"pass"`
	Conflicts       int       `json:"conflicts"`
	AltitudeChanges int       `json:"altitude_changes"`
	SpeedChanges    int       `json:"speed_changes"`
	Unresolved      int       `json:"unresolved"`
	Skipped         int       `json:"skipped"`
	Duration        float64   `json:"duration_ms"`
	Timestamp       time.Time `json:"timestamp"`
}

// RunSummary describes how an iterative run ended
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Outcome    string    `json:"outcome"`
	Success    bool      `json:"success"`
	Passes     int       `json:"passes"`
	FinalCount int       `json:"final_count"`
	History    []int     `json:"history"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// RunTotals holds the cumulative counters of a run
type RunTotals struct {
	RunID            string        `json:"run_id"`
	Passes           uint64        `json:"passes"`
	ClustersDetected uint64        `json:"clusters_detected"`
	AltitudeChanges  uint64        `json:"altitude_changes"`
	SpeedChanges     uint64        `json:"speed_changes"`
	Unresolved       uint64        `json:"unresolved"`
	Skipped          uint64        `json:"skipped"`
	ProcessingTime   time.Duration `json:"processing_time"`
	LastPassTime     time.Time     `json:"last_pass_time"`
}
