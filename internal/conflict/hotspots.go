package conflict

import (
	"math"
	"sort"

	"github.com/saviobatista/sbs-deconflict/internal/types"
)

const (
	// DefaultHotspotGrid is the hotspot cell size in degrees
	DefaultHotspotGrid = 0.5
	// MaxHotspotExamples caps the clusters kept per hotspot
	MaxHotspotExamples = 10
)

// Hotspot is a grid cell where conflicts concentrate
type Hotspot struct {
	Latitude  float64         `json:"lat"`
	Longitude float64         `json:"lon"`
	Count     int             `json:"count"`
	Conflicts []types.Cluster `json:"conflicts"`
}

type cell struct {
	lat, lon int
}

// Hotspots bins each cluster by the centroid of its members at the
// cluster's snapshot and returns the cells, busiest first. Clusters whose
// members are not airborne in any snapshot are skipped. Cells are
// gridDeg degrees square; a non-positive size falls back to
// DefaultHotspotGrid.
func Hotspots(snapshots []types.Snapshot, clusters []types.Cluster, gridDeg float64) []Hotspot {
	if gridDeg <= 0 {
		gridDeg = DefaultHotspotGrid
	}

	byTime := make(map[int]map[string]types.Position, len(snapshots))
	for _, s := range snapshots {
		positions := make(map[string]types.Position, len(s.Positions))
		for _, p := range s.Positions {
			if _, ok := positions[p.ACID]; !ok {
				positions[p.ACID] = p
			}
		}
		byTime[s.Timestamp] = positions
	}

	cells := make(map[cell]*Hotspot)
	for _, c := range clusters {
		lat, lon, ok := centroid(byTime[c.Timestamp], c.ACIDs)
		if !ok {
			continue
		}
		key := cell{lat: int(math.Floor(lat / gridDeg)), lon: int(math.Floor(lon / gridDeg))}
		h, ok := cells[key]
		if !ok {
			h = &Hotspot{
				Latitude:  (float64(key.lat) + 0.5) * gridDeg,
				Longitude: (float64(key.lon) + 0.5) * gridDeg,
			}
			cells[key] = h
		}
		h.Count++
		if len(h.Conflicts) < MaxHotspotExamples {
			h.Conflicts = append(h.Conflicts, c)
		}
	}

	out := make([]Hotspot, 0, len(cells))
	for _, h := range cells {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Latitude != out[j].Latitude {
			return out[i].Latitude < out[j].Latitude
		}
		return out[i].Longitude < out[j].Longitude
	})
	return out
}

func centroid(positions map[string]types.Position, acids []string) (float64, float64, bool) {
	var lat, lon float64
	n := 0
	for _, acid := range acids {
		p, ok := positions[acid]
		if !ok {
			continue
		}
		lat += p.Latitude
		lon += p.Longitude
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return lat / float64(n), lon / float64(n), true
}
