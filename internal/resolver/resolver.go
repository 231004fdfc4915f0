package resolver

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/saviobatista/sbs-deconflict/internal/log"
	"github.com/saviobatista/sbs-deconflict/internal/state"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// Mutation kinds
const (
	KindAltitude = "altitude"
	KindSpeed    = "speed"
)

// Mutation records one single-aircraft adjustment
type Mutation struct {
	ACID    string  `json:"acid"`
	Kind    string  `json:"kind"`
	From    float64 `json:"from"`
	To      float64 `json:"to"`
	Changes int     `json:"changes"`
}

// Result summarises one resolver pass
type Result struct {
	Clusters        int        `json:"clusters"`
	Resolved        int        `json:"resolved"`
	Unresolved      int        `json:"unresolved"`
	Skipped         int        `json:"skipped"`
	AltitudeChanges int        `json:"altitude_changes"`
	SpeedChanges    int        `json:"speed_changes"`
	Mutations       []Mutation `json:"mutations"`
}

type outcome int

const (
	outcomeResolved outcome = iota
	outcomeUnresolved
	outcomeSkipped
)

// Resolver nudges aircraft altitude and speed to break up conflict
// clusters, within the envelope of each aircraft type
type Resolver struct {
	store  state.Store
	types  types.TypeTable
	Policy Policy
	lg     *log.Logger
}

// New creates a resolver using the default policy
func New(store state.Store, table types.TypeTable, lg *log.Logger) *Resolver {
	return &Resolver{
		store:  store,
		types:  table,
		Policy: DefaultPolicy(),
		lg:     lg,
	}
}

// Resolve processes the clusters of one pass. Clusters touching the least
// adjusted aircraft go first. The state is re-read before every cluster
// and written back after every single-aircraft mutation, so later
// clusters see the effect of earlier ones. A store error aborts the pass
// and the partial result is returned with it.
func (r *Resolver) Resolve(ctx context.Context, clusters []types.Cluster) (*Result, error) {
	res := &Result{Clusters: len(clusters)}
	if len(clusters) == 0 {
		return res, nil
	}

	st, err := r.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	for _, cl := range r.order(clusters, st) {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		o, err := r.resolveCluster(ctx, cl, res)
		if err != nil {
			return res, err
		}
		switch o {
		case outcomeResolved:
			res.Resolved++
		case outcomeUnresolved:
			res.Unresolved++
			r.lg.Debug("cluster unresolved", "members", cl.ACIDs, "timestamp", cl.Timestamp)
		case outcomeSkipped:
			res.Skipped++
		}
	}

	r.lg.Info("resolver pass complete",
		"clusters", res.Clusters,
		"resolved", res.Resolved,
		"unresolved", res.Unresolved,
		"skipped", res.Skipped,
		"altitude_changes", res.AltitudeChanges,
		"speed_changes", res.SpeedChanges)
	return res, nil
}

// order sorts clusters by ascending total member changes, stable
func (r *Resolver) order(clusters []types.Cluster, st types.State) []types.Cluster {
	idx := st.Index()
	cost := make([]int, len(clusters))
	for i, cl := range clusters {
		for _, acid := range cl.ACIDs {
			if e, ok := idx[acid]; ok {
				cost[i] += e.Changes
			}
		}
	}

	order := make([]int, len(clusters))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return cost[order[a]] < cost[order[b]]
	})

	out := make([]types.Cluster, len(clusters))
	for i, o := range order {
		out[i] = clusters[o]
	}
	return out
}

func (r *Resolver) resolveCluster(ctx context.Context, cl types.Cluster, res *Result) (outcome, error) {
	st, err := r.store.LoadAll(ctx)
	if err != nil {
		return outcomeUnresolved, fmt.Errorf("failed to load state: %w", err)
	}
	idx := st.Index()

	members := make([]*types.StateEntry, 0, len(cl.ACIDs))
	seen := make(map[string]bool, len(cl.ACIDs))
	for _, acid := range cl.ACIDs {
		e, ok := idx[acid]
		if !ok || seen[acid] {
			continue
		}
		seen[acid] = true
		members = append(members, e)
	}
	if len(members) == 0 {
		r.lg.Debug("cluster skipped, no members in state", "members", cl.ACIDs)
		return outcomeSkipped, nil
	}

	sort.SliceStable(members, func(a, b int) bool {
		return r.Policy.priority(members[a].Changes) < r.Policy.priority(members[b].Changes)
	})

	changed, separated, err := r.resolveAltitude(ctx, st, members, res)
	if err != nil {
		return outcomeUnresolved, err
	}
	if separated {
		r.lg.Debug("cluster skipped, already separated", "members", cl.ACIDs)
		return outcomeSkipped, nil
	}
	if changed {
		return outcomeResolved, nil
	}

	changed, err = r.resolveSpeed(ctx, st, members, res)
	if err != nil {
		return outcomeUnresolved, err
	}
	if changed {
		return outcomeResolved, nil
	}
	return outcomeUnresolved, nil
}

// resolveAltitude applies at most one primary altitude change, plus the
// complementary change for two-aircraft clusters. separated reports a
// cluster whose altitude spread already exceeds the separation floor.
func (r *Resolver) resolveAltitude(ctx context.Context, st types.State, members []*types.StateEntry, res *Result) (changed, separated bool, err error) {
	step := r.Policy.AltitudeStep

	highest, lowest := members[0], members[0]
	for _, m := range members[1:] {
		if m.Altitude > highest.Altitude {
			highest = m
		}
		if m.Altitude < lowest.Altitude {
			lowest = m
		}
	}

	if highest.Altitude == lowest.Altitude {
		for _, m := range members {
			t, ok := r.types[m.PlaneType]
			if !ok {
				continue
			}
			// only the floor applies: a descent from above the ceiling is
			// a move back toward the envelope
			if m.Altitude-step >= t.Altitude.Min {
				return true, false, r.setAltitude(ctx, st, m, m.Altitude-step, res)
			}
		}
		return false, false, nil
	}

	if highest.Altitude-lowest.Altitude > r.Policy.SeparationFloor {
		return false, true, nil
	}

	for _, m := range members {
		t, ok := r.types[m.PlaneType]
		if !ok {
			continue
		}
		proposed, ok := r.proposeAltitude(m, t.Altitude, highest, lowest, members)
		if !ok {
			continue
		}

		movedUp := proposed > m.Altitude
		if err := r.setAltitude(ctx, st, m, proposed, res); err != nil {
			return true, false, err
		}

		if len(members) == 2 {
			switch {
			case m == highest && movedUp:
				err = r.tryAltitude(ctx, st, lowest, -step, res)
			case m == lowest && !movedUp:
				err = r.tryAltitude(ctx, st, highest, step, res)
			}
		}
		return true, false, err
	}
	return false, false, nil
}

// proposeAltitude returns the candidate altitude for one member, if any
func (r *Resolver) proposeAltitude(m *types.StateEntry, lim types.AltitudeLimits, highest, lowest *types.StateEntry, members []*types.StateEntry) (int, bool) {
	step := r.Policy.AltitudeStep
	up, down := m.Altitude+step, m.Altitude-step

	switch m {
	case highest:
		if fits(up, lim.Min, lim.Max) {
			return up, true
		}
		// above the type ceiling: step back toward the envelope
		if m.Altitude > lim.Max && down >= lim.Min {
			return down, true
		}
	case lowest:
		if fits(down, lim.Min, lim.Max) {
			return down, true
		}
		if fits(up, lim.Min, lim.Max) {
			return up, true
		}
	default:
		distAbove, distBelow := math.MaxInt, math.MaxInt
		for _, o := range members {
			switch {
			case o.Altitude > m.Altitude && o.Altitude-m.Altitude < distAbove:
				distAbove = o.Altitude - m.Altitude
			case o.Altitude < m.Altitude && m.Altitude-o.Altitude < distBelow:
				distBelow = m.Altitude - o.Altitude
			}
		}
		if distAbove < distBelow {
			if fits(down, lim.Min, lim.Max) {
				return down, true
			}
		} else if fits(up, lim.Min, lim.Max) {
			return up, true
		}
	}
	return 0, false
}

// tryAltitude moves a member by delta when its type allows it
func (r *Resolver) tryAltitude(ctx context.Context, st types.State, m *types.StateEntry, delta int, res *Result) error {
	t, ok := r.types[m.PlaneType]
	if !ok || !fits(m.Altitude+delta, t.Altitude.Min, t.Altitude.Max) {
		return nil
	}
	return r.setAltitude(ctx, st, m, m.Altitude+delta, res)
}

func (r *Resolver) resolveSpeed(ctx context.Context, st types.State, members []*types.StateEntry, res *Result) (bool, error) {
	step := r.Policy.SpeedStep
	for _, m := range members {
		t, ok := r.types[m.PlaneType]
		if !ok {
			continue
		}
		switch {
		case fitsSpeed(m.Speed+step, t.Speed):
			return true, r.setSpeed(ctx, st, m, m.Speed+step, res)
		case fitsSpeed(m.Speed-step, t.Speed):
			return true, r.setSpeed(ctx, st, m, m.Speed-step, res)
		}
	}
	return false, nil
}

func (r *Resolver) setAltitude(ctx context.Context, st types.State, m *types.StateEntry, alt int, res *Result) error {
	from := m.Altitude
	m.Altitude = alt
	m.Changes++
	res.AltitudeChanges++
	return r.commit(ctx, st, Mutation{ACID: m.ACID, Kind: KindAltitude, From: float64(from), To: float64(alt), Changes: m.Changes}, res)
}

func (r *Resolver) setSpeed(ctx context.Context, st types.State, m *types.StateEntry, speed float64, res *Result) error {
	from := m.Speed
	m.Speed = speed
	m.Changes++
	res.SpeedChanges++
	return r.commit(ctx, st, Mutation{ACID: m.ACID, Kind: KindSpeed, From: from, To: speed, Changes: m.Changes}, res)
}

// commit writes the whole state back after a single mutation
func (r *Resolver) commit(ctx context.Context, st types.State, mu Mutation, res *Result) error {
	res.Mutations = append(res.Mutations, mu)
	r.lg.Debug("aircraft adjusted",
		"acid", mu.ACID,
		"kind", mu.Kind,
		"from", mu.From,
		"to", mu.To,
		"changes", mu.Changes)

	if err := r.store.SaveAll(ctx, st); err != nil {
		return fmt.Errorf("failed to save state after adjusting %s: %w", mu.ACID, err)
	}
	return nil
}

func fits(v, lo, hi int) bool {
	return v >= lo && v <= hi
}

func fitsSpeed(v float64, lim types.SpeedLimits) bool {
	return v >= lim.Min && v <= lim.Max
}
