package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/saviobatista/sbs-deconflict/internal/state"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// MockDeparture is the departure time used by mock flight plans
const MockDeparture int64 = 1736244000

// MockFlightPlan creates a CYVR to CYYZ flight plan for testing
func MockFlightPlan(acid string, altitude int) types.FlightPlan {
	return types.FlightPlan{
		ACID:             acid,
		PlaneType:        "Boeing 737-800",
		Route:            "49.97N/110.935W 49.64N/92.114W",
		DepartureAirport: "CYVR",
		ArrivalAirport:   "CYYZ",
		DepartureTime:    MockDeparture,
		Speed:            453,
		Altitude:         altitude,
	}
}

// MockTypeTable creates an aircraft type table covering the mock plans
func MockTypeTable() types.TypeTable {
	return types.TypeTable{
		"Boeing 737-800": {
			Altitude: types.AltitudeLimits{Min: 28000, Max: 41000},
			Speed:    types.SpeedLimits{Min: 400, Max: 470},
		},
	}
}

// MockState creates the initial state of the given plans
func MockState(plans ...types.FlightPlan) types.State {
	return state.FromFlightPlans(plans)
}

// WriteJSON encodes v into a file under the test's temp directory and
// returns its path
func WriteJSON(t *testing.T, name string, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal %s: %v", name, err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}
