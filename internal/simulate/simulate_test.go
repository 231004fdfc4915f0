package simulate

import (
	"testing"

	"github.com/saviobatista/sbs-deconflict/internal/parser"
	"github.com/saviobatista/sbs-deconflict/internal/route"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// One degree of longitude along the equator is about 60.04 nm, so at
// 60 kt the flight lasts just over 60 minutes.
var testAirports = map[string]parser.Point{
	"AAAA": {Latitude: 0, Longitude: 0},
	"BBBB": {Latitude: 0, Longitude: 1},
}

func newSimulator(t *testing.T, interval int) *Simulator {
	t.Helper()
	routes, err := route.New(testAirports, 16)
	if err != nil {
		t.Fatalf("Failed to create route provider: %v", err)
	}
	return New(routes, interval, nil)
}

func equatorPlan(acid string, dep int64) types.FlightPlan {
	return types.FlightPlan{
		ACID:             acid,
		PlaneType:        "Test",
		DepartureAirport: "AAAA",
		ArrivalAirport:   "BBBB",
		DepartureTime:    dep,
		Speed:            60,
		Altitude:         35000,
	}
}

func countAppearances(snaps []types.Snapshot, acid string) int {
	n := 0
	for _, s := range snaps {
		for _, p := range s.Positions {
			if p.ACID == acid {
				n++
			}
		}
	}
	return n
}

func TestSnapshots_AirborneWindow(t *testing.T) {
	sim := newSimulator(t, 1)
	plans := []types.FlightPlan{equatorPlan("ACA101", 0)}

	snaps, err := sim.Snapshots(plans, nil)
	if err != nil {
		t.Fatalf("Snapshots failed: %v", err)
	}

	if len(snaps) != 61 {
		t.Fatalf("Expected 61 snapshots (minutes 0..60), got %d", len(snaps))
	}
	if len(snaps[0].Positions) != 0 {
		t.Error("Aircraft should not be airborne at its departure minute")
	}
	if got := countAppearances(snaps, "ACA101"); got != 60 {
		t.Errorf("Expected 60 airborne samples, got %d", got)
	}
	for i, s := range snaps {
		if s.Timestamp != i {
			t.Fatalf("Snapshot %d has timestamp %d", i, s.Timestamp)
		}
	}
}

func TestSnapshots_StartsAtEarliestDeparture(t *testing.T) {
	sim := newSimulator(t, 1)
	plans := []types.FlightPlan{
		equatorPlan("LATE", 600),
		equatorPlan("EARLY", 0),
	}

	snaps, err := sim.Snapshots(plans, nil)
	if err != nil {
		t.Fatalf("Snapshots failed: %v", err)
	}

	if countAppearances(snaps, "EARLY") != 60 {
		t.Errorf("Early flight lost samples, got %d", countAppearances(snaps, "EARLY"))
	}
	if countAppearances(snaps, "LATE") != 60 {
		t.Errorf("Late flight lost samples, got %d", countAppearances(snaps, "LATE"))
	}
	for _, p := range snaps[5].Positions {
		if p.ACID == "LATE" {
			t.Error("Late flight airborne before its departure")
		}
	}
}

func TestSnapshots_StateDrivesAltitudeAndSpeed(t *testing.T) {
	plans := []types.FlightPlan{equatorPlan("ACA101", 0)}
	st := types.State{{ACID: "ACA101", PlaneType: "Test", Altitude: 31000, Speed: 120}}

	t.Run("state speed", func(t *testing.T) {
		sim := newSimulator(t, 1)
		snaps, err := sim.Snapshots(plans, st)
		if err != nil {
			t.Fatalf("Snapshots failed: %v", err)
		}
		if got := countAppearances(snaps, "ACA101"); got != 30 {
			t.Errorf("Expected 30 airborne samples at 120 kt, got %d", got)
		}
		if snaps[1].Positions[0].Altitude != 31000 {
			t.Errorf("Expected state altitude 31000, got %d", snaps[1].Positions[0].Altitude)
		}
	})

	t.Run("filed speed", func(t *testing.T) {
		sim := newSimulator(t, 1)
		sim.UseStateSpeed = false
		snaps, err := sim.Snapshots(plans, st)
		if err != nil {
			t.Fatalf("Snapshots failed: %v", err)
		}
		if got := countAppearances(snaps, "ACA101"); got != 60 {
			t.Errorf("Expected 60 airborne samples at 60 kt, got %d", got)
		}
		if snaps[1].Positions[0].Altitude != 31000 {
			t.Errorf("Expected state altitude regardless of speed source, got %d", snaps[1].Positions[0].Altitude)
		}
	})
}

func TestSnapshots_PositionsMoveEast(t *testing.T) {
	sim := newSimulator(t, 10)
	snaps, err := sim.Snapshots([]types.FlightPlan{equatorPlan("ACA101", 0)}, nil)
	if err != nil {
		t.Fatalf("Snapshots failed: %v", err)
	}

	prev := -1.0
	for _, s := range snaps {
		for _, p := range s.Positions {
			if p.Longitude <= prev {
				t.Errorf("Longitude not increasing at minute %d: %v <= %v", s.Timestamp, p.Longitude, prev)
			}
			prev = p.Longitude
		}
	}
	if prev < 0.8 {
		t.Errorf("Expected aircraft near destination by the last sample, got lon %v", prev)
	}
}

func TestSnapshots_UnknownAirportExcluded(t *testing.T) {
	sim := newSimulator(t, 1)
	bad := equatorPlan("LOST", 0)
	bad.ArrivalAirport = "ZZZZ"

	snaps, err := sim.Snapshots([]types.FlightPlan{bad, equatorPlan("ACA101", 0)}, nil)
	if err != nil {
		t.Fatalf("Snapshots failed: %v", err)
	}
	if countAppearances(snaps, "LOST") != 0 {
		t.Error("Flight with unknown airport should never be airborne")
	}
	if countAppearances(snaps, "ACA101") != 60 {
		t.Error("Valid flight should still be simulated")
	}
}

func TestSnapshots_EdgeCases(t *testing.T) {
	sim := newSimulator(t, 1)
	snaps, err := sim.Snapshots(nil, nil)
	if err != nil || snaps != nil {
		t.Errorf("Expected no snapshots and no error for empty input, got %v, %v", snaps, err)
	}

	sim.Interval = 0
	if _, err := sim.Snapshots([]types.FlightPlan{equatorPlan("A", 0)}, nil); err == nil {
		t.Error("Expected error for zero interval")
	}
}
