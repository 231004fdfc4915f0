// Package conflict detects losses of separation between airborne aircraft
// and groups them into conflict clusters.
package conflict

import (
	"math"
	"sort"

	"github.com/saviobatista/sbs-deconflict/internal/geo"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

const (
	// HorizontalMinimumNM is the lateral separation minimum
	HorizontalMinimumNM = 5.0
	// VerticalMinimumFt is the vertical separation minimum
	VerticalMinimumFt = 2000
)

// InConflict reports whether two aircraft are closer than both separation
// minima. Both comparisons are strict.
func InConflict(a, b types.Position) bool {
	vertical := math.Abs(float64(a.Altitude - b.Altitude))
	if vertical >= VerticalMinimumFt {
		return false
	}
	return geo.HaversineNM(a.Latitude, a.Longitude, b.Latitude, b.Longitude) < HorizontalMinimumNM
}

// Graph is the undirected proximity graph of one snapshot. Edges are not
// materialised; adjacency is evaluated on demand.
type Graph struct {
	nodes    []types.Position
	adjacent func(a, b types.Position) bool
}

// NewGraph builds a proximity graph using InConflict as the edge relation
func NewGraph(nodes []types.Position) *Graph {
	return &Graph{nodes: nodes, adjacent: InConflict}
}

// Neighbors returns the members of pool adjacent to node, in pool order
func (g *Graph) Neighbors(node int, pool []int) []int {
	var out []int
	for _, other := range pool {
		if other != node && g.adjacent(g.nodes[node], g.nodes[other]) {
			out = append(out, other)
		}
	}
	return out
}

// Components returns the connected components of the graph as index
// lists, members in admission order. Each node is removed from the
// unvisited pool as soon as it is admitted. The search is iterative and
// costs O(n²) predicate evaluations in the worst case, which bounds the
// fleet sizes this is suitable for.
func (g *Graph) Components() [][]int {
	pool := make([]int, len(g.nodes))
	for i := range pool {
		pool[i] = i
	}

	var components [][]int
	for len(pool) > 0 {
		seed := pool[0]
		pool = pool[1:]

		component := []int{seed}
		frontier := []int{seed}
		for len(frontier) > 0 {
			node := frontier[0]
			frontier = frontier[1:]

			admitted := g.Neighbors(node, pool)
			if len(admitted) == 0 {
				continue
			}
			pool = without(pool, admitted)
			component = append(component, admitted...)
			frontier = append(frontier, admitted...)
		}
		components = append(components, component)
	}
	return components
}

// without returns pool minus the given members, preserving order
func without(pool, remove []int) []int {
	drop := make(map[int]bool, len(remove))
	for _, r := range remove {
		drop[r] = true
	}
	out := pool[:0:0]
	for _, p := range pool {
		if !drop[p] {
			out = append(out, p)
		}
	}
	return out
}

// FindClusters groups positions into connected components under the
// proximity predicate and returns only those with two or more members
func FindClusters(positions []types.Position) [][]types.Position {
	g := NewGraph(positions)

	var clusters [][]types.Position
	for _, comp := range g.Components() {
		if len(comp) < 2 {
			continue
		}
		cluster := make([]types.Position, len(comp))
		for i, idx := range comp {
			cluster[i] = positions[idx]
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// Detector finds conflict clusters in snapshots
type Detector struct {
	// Waypoints maps a waypoint to the ACIDs routed through it
	Waypoints map[string][]string
	// Prefilter restricts pairwise checks to aircraft that share a
	// waypoint with at least one other airborne aircraft. Aircraft in
	// genuine proximity without a shared waypoint are never tested.
	Prefilter bool
}

// NewDetector creates a Detector with the waypoint pre-filter enabled
func NewDetector(waypoints map[string][]string) *Detector {
	return &Detector{Waypoints: waypoints, Prefilter: true}
}

// Candidates returns the aircraft that take part in pairwise detection for
// this snapshot, deduplicated by ACID
func (d *Detector) Candidates(snapshot types.Snapshot) []types.Position {
	if !d.Prefilter {
		return dedup(snapshot.Positions)
	}

	airborne := make(map[string]types.Position, len(snapshot.Positions))
	for _, p := range snapshot.Positions {
		airborne[p.ACID] = p
	}

	waypoints := make([]string, 0, len(d.Waypoints))
	for wp := range d.Waypoints {
		waypoints = append(waypoints, wp)
	}
	sort.Strings(waypoints)

	var candidates []types.Position
	for _, wp := range waypoints {
		var group []types.Position
		for _, acid := range d.Waypoints[wp] {
			if p, ok := airborne[acid]; ok {
				group = append(group, p)
			}
		}
		if len(group) > 1 {
			candidates = append(candidates, group...)
		}
	}
	return dedup(candidates)
}

func dedup(positions []types.Position) []types.Position {
	seen := make(map[string]bool, len(positions))
	out := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		if seen[p.ACID] {
			continue
		}
		seen[p.ACID] = true
		out = append(out, p)
	}
	return out
}

// Detect returns the conflict clusters of one snapshot
func (d *Detector) Detect(snapshot types.Snapshot) []types.Cluster {
	var out []types.Cluster
	for _, cluster := range FindClusters(d.Candidates(snapshot)) {
		acids := make([]string, len(cluster))
		for i, p := range cluster {
			acids[i] = p.ACID
		}
		out = append(out, types.Cluster{ACIDs: acids, Timestamp: snapshot.Timestamp})
	}
	return out
}

// DetectAll runs Detect over every snapshot and merges the result
func (d *Detector) DetectAll(snapshots []types.Snapshot) []types.Cluster {
	var all []types.Cluster
	for _, s := range snapshots {
		all = append(all, d.Detect(s)...)
	}
	return Merge(all)
}

// Merge removes clusters whose member set is contained in a larger (or
// earlier, equally sized) cluster. Clusters are ordered by descending
// member count; timestamps play no part in the comparison.
func Merge(clusters []types.Cluster) []types.Cluster {
	sorted := make([]types.Cluster, len(clusters))
	copy(sorted, clusters)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].ACIDs) > len(sorted[j].ACIDs)
	})

	var kept []types.Cluster
	var keptSets []map[string]bool
	for _, c := range sorted {
		if isSubsetOfAny(c.ACIDs, keptSets) {
			continue
		}
		set := make(map[string]bool, len(c.ACIDs))
		for _, acid := range c.ACIDs {
			set[acid] = true
		}
		kept = append(kept, c)
		keptSets = append(keptSets, set)
	}
	return kept
}

func isSubsetOfAny(acids []string, sets []map[string]bool) bool {
	for _, set := range sets {
		subset := true
		for _, acid := range acids {
			if !set[acid] {
				subset = false
				break
			}
		}
		if subset {
			return true
		}
	}
	return false
}
