package testutils

import (
	"encoding/json"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/saviobatista/sbs-deconflict/internal/types"
)

func TestMockFlightPlan(t *testing.T) {
	fp := MockFlightPlan("ACA101", 36000)

	if fp.ACID != "ACA101" {
		t.Errorf("Expected ACID ACA101, got %s", fp.ACID)
	}
	if fp.Altitude != 36000 {
		t.Errorf("Expected altitude 36000, got %d", fp.Altitude)
	}
	if _, ok := MockTypeTable()[fp.PlaneType]; !ok {
		t.Errorf("Expected plane type %q in mock type table", fp.PlaneType)
	}
}

func TestMockState(t *testing.T) {
	st := MockState(MockFlightPlan("A", 35000), MockFlightPlan("B", 36000))

	if len(st) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(st))
	}
	if st[1].ACID != "B" || st[1].Altitude != 36000 || st[1].Changes != 0 {
		t.Errorf("Unexpected entry: %+v", st[1])
	}
}

func TestWriteJSON(t *testing.T) {
	path := WriteJSON(t, "flights.json", []types.FlightPlan{MockFlightPlan("A", 35000)})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	var plans []types.FlightPlan
	if err := json.Unmarshal(data, &plans); err != nil {
		t.Fatalf("Failed to decode file: %v", err)
	}
	if len(plans) != 1 || plans[0].ACID != "A" {
		t.Errorf("Unexpected contents: %+v", plans)
	}
}

func TestWaitForCondition_Success(t *testing.T) {
	condition := func() bool {
		return true
	}

	err := WaitForCondition(condition, 1*time.Second)
	if err != nil {
		t.Errorf("WaitForCondition() should succeed, got error: %v", err)
	}
}

func TestWaitForCondition_Timeout(t *testing.T) {
	condition := func() bool {
		return false
	}

	err := WaitForCondition(condition, 100*time.Millisecond)
	if err == nil {
		t.Error("WaitForCondition() should timeout")
	}
}

func TestWaitForCondition_EventuallyTrue(t *testing.T) {
	var calls int32
	condition := func() bool {
		return atomic.AddInt32(&calls, 1) >= 3
	}

	if err := WaitForCondition(condition, 2*time.Second); err != nil {
		t.Errorf("WaitForCondition() should succeed, got error: %v", err)
	}
}
