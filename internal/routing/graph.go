// Package routing answers shortest-route questions over the whole network.
//
// A Graph is an immutable projection of every line's sections: vertices are
// station ids, and each section contributes one edge that can be ridden in
// both directions at the same cost. Parallel edges from different lines are
// all kept; the search simply prefers the cheapest.
package routing

import "subway-network/internal/subway"

type edge struct {
	to       int64
	distance int
}

type Graph struct {
	stations map[int64]subway.Station
	adj      map[int64][]edge
	edges    int
}

// Build projects the given lines into a Graph. The lines are only read.
func Build(lines []subway.Line) *Graph {
	g := &Graph{
		stations: make(map[int64]subway.Station),
		adj:      make(map[int64][]edge),
	}
	for _, l := range lines {
		for _, sec := range l.Sections.All() {
			g.stations[sec.Up.ID] = sec.Up
			g.stations[sec.Down.ID] = sec.Down
			g.adj[sec.Up.ID] = append(g.adj[sec.Up.ID], edge{to: sec.Down.ID, distance: sec.Distance})
			g.adj[sec.Down.ID] = append(g.adj[sec.Down.ID], edge{to: sec.Up.ID, distance: sec.Distance})
			g.edges++
		}
	}
	return g
}

func (g *Graph) HasStation(id int64) bool {
	_, ok := g.stations[id]
	return ok
}

func (g *Graph) StationCount() int { return len(g.stations) }

// EdgeCount is the number of sections projected into the graph.
func (g *Graph) EdgeCount() int { return g.edges }

// distance returns the cheapest direct edge between a and b.
func (g *Graph) distance(a, b int64) (int, bool) {
	best, found := 0, false
	for _, e := range g.adj[a] {
		if e.to == b && (!found || e.distance < best) {
			best, found = e.distance, true
		}
	}
	return best, found
}
