package simulate

import (
	"fmt"

	"github.com/saviobatista/sbs-deconflict/internal/log"
	"github.com/saviobatista/sbs-deconflict/internal/route"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// Simulator samples airborne positions of a flight plan collection at a
// fixed interval
type Simulator struct {
	routes *route.Provider

	// Interval is the sampling step in minutes
	Interval int
	// UseStateSpeed flies each aircraft at its state speed rather than
	// its filed speed, so speed adjustments move it along its route
	UseStateSpeed bool

	lg *log.Logger
}

// New creates a simulator sampling every interval minutes
func New(routes *route.Provider, interval int, lg *log.Logger) *Simulator {
	return &Simulator{
		routes:        routes,
		Interval:      interval,
		UseStateSpeed: true,
		lg:            lg,
	}
}

type flight struct {
	plan     *types.FlightPlan
	speed    float64
	altitude int
	arrival  int64
}

// Snapshots samples the whole simulation window. The window starts at the
// earliest departure and ends at the latest arrival. An aircraft appears
// in a snapshot when it has been airborne for more than zero whole
// minutes and has not yet reached its total flight time.
func (s *Simulator) Snapshots(plans []types.FlightPlan, st types.State) ([]types.Snapshot, error) {
	if s.Interval < 1 {
		return nil, fmt.Errorf("invalid sampling interval %d", s.Interval)
	}

	idx := st.Index()
	flights := make([]flight, 0, len(plans))
	var start, end int64
	for i := range plans {
		plan := &plans[i]

		f := flight{plan: plan, speed: plan.Speed, altitude: plan.Altitude}
		if e, ok := idx[plan.ACID]; ok {
			f.altitude = e.Altitude
			if s.UseStateSpeed && e.Speed > 0 {
				f.speed = e.Speed
			}
		}

		arrival, err := s.routes.ArrivalUnix(plan, f.speed)
		if err != nil {
			s.lg.Warn("flight excluded from simulation", "acid", plan.ACID, "error", err)
			continue
		}
		f.arrival = arrival

		if len(flights) == 0 || plan.DepartureTime < start {
			start = plan.DepartureTime
		}
		if len(flights) == 0 || arrival > end {
			end = arrival
		}
		flights = append(flights, f)
	}

	if len(flights) == 0 {
		return nil, nil
	}

	step := int64(s.Interval) * 60
	snapshots := make([]types.Snapshot, 0, (end-start)/step+1)
	for now := start; now <= end; now += step {
		snap := types.Snapshot{Timestamp: int((now - start) / 60)}
		for _, f := range flights {
			minutes := (now - f.plan.DepartureTime) / 60
			if minutes <= 0 {
				continue
			}
			lat, lon, ok := s.routes.PositionAt(f.plan, f.speed, float64(minutes))
			if !ok {
				continue
			}
			snap.Positions = append(snap.Positions, types.Position{
				ACID:      f.plan.ACID,
				Latitude:  lat,
				Longitude: lon,
				Altitude:  f.altitude,
			})
		}
		snapshots = append(snapshots, snap)
	}

	s.lg.Debug("simulation sampled",
		"flights", len(flights),
		"snapshots", len(snapshots),
		"interval_min", s.Interval)
	return snapshots, nil
}
