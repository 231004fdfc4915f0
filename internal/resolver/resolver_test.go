package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/saviobatista/sbs-deconflict/internal/conflict"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// memStore is an in-memory state store that counts full reads and writes
type memStore struct {
	state   types.State
	loads   int
	saves   int
	loadErr error
	saveErr error
}

func (s *memStore) LoadAll(ctx context.Context) (types.State, error) {
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.state.Clone(), nil
}

func (s *memStore) SaveAll(ctx context.Context, st types.State) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.state = st.Clone()
	return nil
}

func (s *memStore) get(t *testing.T, acid string) types.StateEntry {
	t.Helper()
	for _, e := range s.state {
		if e.ACID == acid {
			return e
		}
	}
	t.Fatalf("ACID %s not in state", acid)
	return types.StateEntry{}
}

var testTypes = types.TypeTable{
	"B738": {
		Altitude: types.AltitudeLimits{Min: 28000, Max: 41000},
		Speed:    types.SpeedLimits{Min: 400, Max: 470},
	},
	"FIXED": {
		Altitude: types.AltitudeLimits{Min: 35000, Max: 35000},
		Speed:    types.SpeedLimits{Min: 400, Max: 470},
	},
	"PINNED": {
		Altitude: types.AltitudeLimits{Min: 35000, Max: 35000},
		Speed:    types.SpeedLimits{Min: 450, Max: 450},
	},
}

func entry(acid, planeType string, alt int, speed float64, changes int) types.StateEntry {
	return types.StateEntry{ACID: acid, PlaneType: planeType, Altitude: alt, Speed: speed, Changes: changes}
}

func cluster(ts int, acids ...string) types.Cluster {
	return types.Cluster{ACIDs: acids, Timestamp: ts}
}

func newResolver(st types.State) (*Resolver, *memStore) {
	store := &memStore{state: st}
	return New(store, testTypes, nil), store
}

func TestResolve_TwoAircraftGainSeparation(t *testing.T) {
	r, store := newResolver(types.State{
		entry("ACA101", "B738", 35000, 450, 0),
		entry("WJA202", "B738", 36000, 450, 0),
	})

	res, err := r.Resolve(context.Background(), []types.Cluster{cluster(12, "ACA101", "WJA202")})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	low, high := store.get(t, "ACA101"), store.get(t, "WJA202")
	if high.Altitude != 37000 {
		t.Errorf("Expected highest to climb to 37000, got %d", high.Altitude)
	}
	if low.Altitude != 34000 {
		t.Errorf("Expected lowest to descend to 34000, got %d", low.Altitude)
	}
	if low.Changes != 1 || high.Changes != 1 {
		t.Errorf("Expected one change each, got %d and %d", low.Changes, high.Changes)
	}

	if res.Resolved != 1 || res.AltitudeChanges != 2 || res.SpeedChanges != 0 {
		t.Errorf("Unexpected result: %+v", res)
	}
	if store.saves != 2 {
		t.Errorf("Expected one full save per mutation (2), got %d", store.saves)
	}
	if store.loads != 2 {
		t.Errorf("Expected a load for the pass and one per cluster (2), got %d", store.loads)
	}

	a := types.Position{ACID: low.ACID, Latitude: 45, Longitude: -75, Altitude: low.Altitude}
	b := types.Position{ACID: high.ACID, Latitude: 45, Longitude: -75, Altitude: high.Altitude}
	if conflict.InConflict(a, b) {
		t.Error("Aircraft still in conflict after resolution")
	}
}

func TestResolve_SeparationFloor(t *testing.T) {
	tests := []struct {
		name        string
		low, high   int
		wantSkipped bool
	}{
		{name: "spread above floor is skipped", low: 33000, high: 35500, wantSkipped: true},
		{name: "spread at floor is adjusted", low: 33000, high: 35000, wantSkipped: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newResolver(types.State{
				entry("A", "B738", tt.low, 450, 0),
				entry("B", "B738", tt.high, 450, 0),
			})

			res, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "A", "B")})
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}

			if tt.wantSkipped {
				if res.Skipped != 1 || store.saves != 0 {
					t.Errorf("Expected cluster skipped without writes, got %+v and %d saves", res, store.saves)
				}
				if store.get(t, "A").Speed != 450 || store.get(t, "B").Changes != 0 {
					t.Error("Skipped cluster must not fall back to speed changes")
				}
				return
			}
			if res.Resolved != 1 || store.get(t, "B").Altitude != tt.high+1000 {
				t.Errorf("Expected highest to climb, got %+v", store.state)
			}
		})
	}
}

func TestResolve_EqualAltitudesMovesFirstMemberDown(t *testing.T) {
	r, store := newResolver(types.State{
		entry("A", "B738", 35000, 450, 2),
		entry("B", "FIXED", 35000, 450, 0),
		entry("C", "B738", 35000, 450, 1),
	})

	res, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "A", "B", "C")})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// B has the fewest changes but cannot descend, so C goes next
	if store.get(t, "B").Altitude != 35000 {
		t.Error("B moved outside its envelope")
	}
	if c := store.get(t, "C"); c.Altitude != 34000 || c.Changes != 2 {
		t.Errorf("Expected C at 34000 with 2 changes, got %+v", c)
	}
	if store.get(t, "A").Altitude != 35000 {
		t.Error("Only one member should move when altitudes are equal")
	}
	if res.AltitudeChanges != 1 || store.saves != 1 {
		t.Errorf("Expected exactly one mutation, got %+v", res)
	}
}

func TestResolve_EqualAltitudesAboveCeilingDescend(t *testing.T) {
	r, store := newResolver(types.State{
		entry("A", "B738", 43000, 450, 0),
		entry("B", "B738", 43000, 450, 1),
	})

	res, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "A", "B")})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if a := store.get(t, "A"); a.Altitude != 42000 || a.Changes != 1 {
		t.Errorf("Expected A to descend to 42000, got %+v", a)
	}
	if store.get(t, "B").Altitude != 43000 {
		t.Error("Only one member should move when altitudes are equal")
	}
	if res.AltitudeChanges != 1 || res.Resolved != 1 {
		t.Errorf("Expected one resolving altitude change, got %+v", res)
	}
}

func TestResolve_SpeedFallback(t *testing.T) {
	tests := []struct {
		name      string
		speed     float64
		wantSpeed float64
	}{
		{name: "increase when below max", speed: 450, wantSpeed: 470},
		{name: "decrease at max", speed: 470, wantSpeed: 450},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newResolver(types.State{
				entry("A", "FIXED", 35000, tt.speed, 0),
				entry("B", "FIXED", 35000, 430, 3),
			})

			res, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "A", "B")})
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}

			a := store.get(t, "A")
			if a.Speed != tt.wantSpeed || a.Changes != 1 {
				t.Errorf("Expected A at %v kt with 1 change, got %+v", tt.wantSpeed, a)
			}
			if store.get(t, "B").Changes != 3 {
				t.Error("Only the first adjustable member should change speed")
			}
			if res.SpeedChanges != 1 || res.AltitudeChanges != 0 || res.Resolved != 1 {
				t.Errorf("Unexpected result: %+v", res)
			}
		})
	}
}

func TestResolve_Unresolvable(t *testing.T) {
	r, store := newResolver(types.State{
		entry("A", "PINNED", 35000, 450, 0),
		entry("B", "PINNED", 35000, 450, 0),
	})

	res, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "A", "B")})
	if err != nil {
		t.Fatalf("Unresolvable cluster must not be an error: %v", err)
	}
	if res.Unresolved != 1 || len(res.Mutations) != 0 || store.saves != 0 {
		t.Errorf("Expected unresolved without mutations, got %+v", res)
	}
}

func TestResolve_UnknownTypeIsNotAdjusted(t *testing.T) {
	r, store := newResolver(types.State{
		entry("HIGH", "Mystery Jet", 36000, 450, 0),
		entry("LOW", "B738", 35000, 450, 0),
	})

	if _, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "HIGH", "LOW")}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if h := store.get(t, "HIGH"); h.Altitude != 36000 || h.Changes != 0 {
		t.Errorf("Aircraft of unknown type was adjusted: %+v", h)
	}
	if l := store.get(t, "LOW"); l.Altitude != 34000 || l.Changes != 1 {
		t.Errorf("Expected LOW to descend, got %+v", l)
	}
}

func TestResolve_MissingMembers(t *testing.T) {
	r, store := newResolver(types.State{
		entry("A", "B738", 35000, 450, 0),
	})

	res, err := r.Resolve(context.Background(), []types.Cluster{
		cluster(0, "GHOST1", "GHOST2"),
		cluster(1, "A", "GHOST3"),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Skipped != 1 {
		t.Errorf("Expected the all-missing cluster to be skipped, got %+v", res)
	}
	if res.Resolved != 1 || store.get(t, "A").Altitude != 34000 {
		t.Errorf("Expected remaining member to be adjusted, got %+v", store.state)
	}
	if len(store.state) != 1 {
		t.Error("Missing ACIDs must not be added to the state")
	}
}

func TestResolve_InteriorMemberMovesAwayFromNearerNeighbour(t *testing.T) {
	tests := []struct {
		name    string
		above   int
		wantAlt int
	}{
		{name: "nearer above moves down", above: 35500, wantAlt: 34000},
		{name: "tie moves up", above: 36000, wantAlt: 36000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newResolver(types.State{
				entry("LOW", "B738", 34000, 450, 1),
				entry("MID", "B738", 35000, 450, 0),
				entry("TOP", "B738", tt.above, 450, 1),
			})

			if _, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "LOW", "MID", "TOP")}); err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}

			if got := store.get(t, "MID").Altitude; got != tt.wantAlt {
				t.Errorf("Expected MID at %d, got %d", tt.wantAlt, got)
			}
			if store.saves != 1 {
				t.Errorf("Expected one mutation for a three-member cluster, got %d", store.saves)
			}
		})
	}
}

func TestResolve_HighestAboveCeilingStepsDown(t *testing.T) {
	r, store := newResolver(types.State{
		entry("OVER", "B738", 42000, 450, 0),
		entry("B", "B738", 41000, 450, 1),
	})

	if _, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "OVER", "B")}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got := store.get(t, "OVER").Altitude; got != 41000 {
		t.Errorf("Expected OVER to step down to 41000, got %d", got)
	}
	if b := store.get(t, "B"); b.Changes != 1 {
		t.Errorf("No complementary move expected after a downward step, got %+v", b)
	}
}

func TestResolve_ClusterOrderAndVisibility(t *testing.T) {
	r, store := newResolver(types.State{
		entry("A", "B738", 35000, 450, 0),
		entry("B", "B738", 36000, 450, 0),
		entry("C", "B738", 37000, 450, 0),
		entry("X", "B738", 30000, 450, 5),
		entry("Y", "B738", 30000, 450, 5),
	})

	res, err := r.Resolve(context.Background(), []types.Cluster{
		cluster(3, "X", "Y"),
		cluster(1, "A", "B"),
		cluster(2, "B", "C"),
	})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// {X,Y} carries 10 changes so it runs last. {A,B} runs first and
	// lifts B to 37000, which {B,C} must observe as an equal-altitude pair.
	want := []string{"A", "B", "C", "X"}
	if len(res.Mutations) != len(want) {
		t.Fatalf("Expected %d mutations, got %+v", len(want), res.Mutations)
	}
	for i, acid := range want {
		if res.Mutations[i].ACID != acid {
			t.Errorf("Mutation %d: expected %s, got %s", i, acid, res.Mutations[i].ACID)
		}
	}
	if c := store.get(t, "C"); c.Altitude != 36000 {
		t.Errorf("Expected C to descend to 36000 after seeing B at 37000, got %d", c.Altitude)
	}
	if store.loads != 4 {
		t.Errorf("Expected one load for the pass and one per cluster, got %d", store.loads)
	}
}

func TestResolve_ChangesIncrementByOnePerMutation(t *testing.T) {
	r, store := newResolver(types.State{
		entry("A", "B738", 35000, 450, 7),
		entry("B", "B738", 36000, 450, 7),
	})

	res, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "A", "B")})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for _, m := range res.Mutations {
		if m.Changes != 8 {
			t.Errorf("Expected changes 8 after one mutation, got %+v", m)
		}
		lim := testTypes["B738"].Altitude
		if int(m.To) < lim.Min || int(m.To) > lim.Max {
			t.Errorf("Mutation left the envelope: %+v", m)
		}
	}
	if store.get(t, "A").Changes+store.get(t, "B").Changes != 16 {
		t.Error("Total changes should grow by the number of mutations")
	}
}

func TestResolve_StoreErrors(t *testing.T) {
	boom := errors.New("disk full")

	t.Run("load error is fatal", func(t *testing.T) {
		r, store := newResolver(nil)
		store.loadErr = boom
		if _, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "A", "B")}); !errors.Is(err, boom) {
			t.Errorf("Expected wrapped load error, got %v", err)
		}
	})

	t.Run("save error is fatal", func(t *testing.T) {
		r, store := newResolver(types.State{
			entry("A", "B738", 35000, 450, 0),
			entry("B", "B738", 36000, 450, 0),
		})
		store.saveErr = boom
		res, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "A", "B")})
		if !errors.Is(err, boom) {
			t.Errorf("Expected wrapped save error, got %v", err)
		}
		if res == nil || len(res.Mutations) != 1 {
			t.Errorf("Expected partial result with the failed mutation, got %+v", res)
		}
	})

	t.Run("no clusters touches nothing", func(t *testing.T) {
		r, store := newResolver(nil)
		store.loadErr = boom
		res, err := r.Resolve(context.Background(), nil)
		if err != nil || res.Clusters != 0 || store.loads != 0 {
			t.Errorf("Expected a no-op, got %+v, %v, %d loads", res, err, store.loads)
		}
	})
}

func TestPolicy_Priority(t *testing.T) {
	p := DefaultPolicy()

	if p.priority(50) != 50 {
		t.Errorf("Threshold itself is not penalised, got %d", p.priority(50))
	}
	if p.priority(51) != 51+p.OscillationPenalty {
		t.Errorf("Expected penalty above threshold, got %d", p.priority(51))
	}
	if p.priority(51) <= p.priority(50) {
		t.Error("Chronically adjusted aircraft must sort last")
	}
}

func TestResolve_PenalisedMemberSortsLast(t *testing.T) {
	r, store := newResolver(types.State{
		entry("BUSY", "B738", 35000, 450, 51),
		entry("CALM", "B738", 35000, 450, 40),
	})

	if _, err := r.Resolve(context.Background(), []types.Cluster{cluster(0, "BUSY", "CALM")}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if store.get(t, "CALM").Altitude != 34000 || store.get(t, "BUSY").Altitude != 35000 {
		t.Errorf("Expected CALM to move ahead of BUSY, got %+v", store.state)
	}
}
