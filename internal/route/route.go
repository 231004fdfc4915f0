package route

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/saviobatista/sbs-deconflict/internal/geo"
	"github.com/saviobatista/sbs-deconflict/internal/parser"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// DefaultCacheSize is the number of flight paths kept in memory
const DefaultCacheSize = 4096

// DefaultAirports holds the airport reference points used by the flight
// schedules
var DefaultAirports = map[string]parser.Point{
	"CYYZ": {Latitude: 43.68, Longitude: -79.63},
	"CYVR": {Latitude: 49.19, Longitude: -123.18},
	"CYUL": {Latitude: 45.47, Longitude: -73.74},
	"CYYC": {Latitude: 51.11, Longitude: -114.02},
	"CYOW": {Latitude: 45.32, Longitude: -75.67},
	"CYWG": {Latitude: 49.91, Longitude: -97.24},
	"CYHZ": {Latitude: 44.88, Longitude: -63.51},
	"CYEG": {Latitude: 53.31, Longitude: -113.58},
	"CYQB": {Latitude: 46.79, Longitude: -71.39},
	"CYYJ": {Latitude: 48.65, Longitude: -123.43},
	"CYYT": {Latitude: 47.62, Longitude: -52.75},
	"CYXE": {Latitude: 52.17, Longitude: -106.70},
}

// Path is the resolved geometry of a flight: departure airport, route
// points and arrival airport, with the length of every leg
type Path struct {
	Points  []parser.Point
	Legs    []float64
	TotalNM float64
}

// Provider computes great-circle positions along flight plan routes
type Provider struct {
	airports map[string]parser.Point
	cache    *lru.Cache[string, *Path]
}

// New creates a Provider over the given airport table
func New(airports map[string]parser.Point, cacheSize int) (*Provider, error) {
	if airports == nil {
		airports = DefaultAirports
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, *Path](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create path cache: %w", err)
	}

	return &Provider{airports: airports, cache: cache}, nil
}

// Path returns the geometry of a flight plan
func (p *Provider) Path(plan *types.FlightPlan) (*Path, error) {
	key := plan.ACID + "|" + plan.DepartureAirport + "|" + plan.Route + "|" + plan.ArrivalAirport
	if path, ok := p.cache.Get(key); ok {
		return path, nil
	}

	dep, ok := p.airports[plan.DepartureAirport]
	if !ok {
		return nil, fmt.Errorf("unknown departure airport %q for %s", plan.DepartureAirport, plan.ACID)
	}
	arr, ok := p.airports[plan.ArrivalAirport]
	if !ok {
		return nil, fmt.Errorf("unknown arrival airport %q for %s", plan.ArrivalAirport, plan.ACID)
	}

	routePoints, err := parser.ParseRoute(plan.Route)
	if err != nil {
		return nil, fmt.Errorf("failed to parse route for %s: %w", plan.ACID, err)
	}

	points := make([]parser.Point, 0, len(routePoints)+2)
	points = append(points, dep)
	points = append(points, routePoints...)
	points = append(points, arr)

	path := &Path{Points: points, Legs: make([]float64, 0, len(points)-1)}
	for i := 0; i < len(points)-1; i++ {
		d := geo.HaversineNM(points[i].Latitude, points[i].Longitude, points[i+1].Latitude, points[i+1].Longitude)
		path.Legs = append(path.Legs, d)
		path.TotalNM += d
	}

	p.cache.Add(key, path)
	return path, nil
}

// FlightMinutes returns the en-route time of a flight at the given speed
func (p *Provider) FlightMinutes(plan *types.FlightPlan, speed float64) (float64, error) {
	if speed <= 0 {
		return 0, fmt.Errorf("invalid speed %v for %s", speed, plan.ACID)
	}
	path, err := p.Path(plan)
	if err != nil {
		return 0, err
	}
	return path.TotalNM / speed * 60, nil
}

// ArrivalUnix returns the arrival time in epoch seconds at the given speed
func (p *Provider) ArrivalUnix(plan *types.FlightPlan, speed float64) (int64, error) {
	minutes, err := p.FlightMinutes(plan, speed)
	if err != nil {
		return 0, err
	}
	return plan.DepartureTime + int64(minutes*60), nil
}

// PositionAt returns the position of a flight the given number of minutes
// after departure. ok is false when the flight has not departed yet, has
// already arrived, or its path cannot be resolved.
func (p *Provider) PositionAt(plan *types.FlightPlan, speed, minutesSinceDep float64) (lat, lon float64, ok bool) {
	if minutesSinceDep < 0 || speed <= 0 {
		return 0, 0, false
	}

	path, err := p.Path(plan)
	if err != nil {
		return 0, 0, false
	}

	totalMinutes := path.TotalNM / speed * 60
	if minutesSinceDep >= totalMinutes {
		return 0, 0, false
	}

	traveled := minutesSinceDep / 60 * speed
	cum := 0.0
	for i, leg := range path.Legs {
		if traveled <= cum+leg {
			fraction := 0.0
			if leg > 0 {
				fraction = (traveled - cum) / leg
			}
			start, end := path.Points[i], path.Points[i+1]
			lat, lon = geo.Interpolate(start.Latitude, start.Longitude, end.Latitude, end.Longitude, fraction)
			return lat, lon, true
		}
		cum += leg
	}

	return 0, 0, false
}

// WaypointIndex maps each route token to the ACIDs whose route contains it.
// A flight is listed at most once per waypoint.
func WaypointIndex(plans []types.FlightPlan) map[string][]string {
	index := make(map[string][]string)
	for _, plan := range plans {
		if plan.ACID == "" || plan.Route == "" {
			continue
		}
		seen := make(map[string]bool)
		for _, tok := range parser.RouteTokens(plan.Route) {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			index[tok] = append(index[tok], plan.ACID)
		}
	}
	return index
}

// BusiestWaypoints returns the n waypoints with the most flights, busiest
// first, ties broken by name
func BusiestWaypoints(index map[string][]string, n int) []string {
	names := make([]string, 0, len(index))
	for wp := range index {
		names = append(names, wp)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(index[names[i]]) != len(index[names[j]]) {
			return len(index[names[i]]) > len(index[names[j]])
		}
		return names[i] < names[j]
	})
	if n >= 0 && n < len(names) {
		names = names[:n]
	}
	return names
}
