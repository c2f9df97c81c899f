package routing

import (
	"container/heap"

	"subway-network/internal/subway"
)

// Result is a route from source to target, both inclusive. Distance is the
// exact sum of the section distances between consecutive stations.
type Result struct {
	Stations []subway.Station
	Distance int
}

// FindPath runs Dijkstra from source and stops as soon as target is settled.
func (g *Graph) FindPath(source, target int64) (Result, error) {
	const op = "routing.find"
	if source == target {
		return Result{}, subway.Errorf(op, subway.KindSameSourceAndTarget, "station %d", source)
	}
	for _, id := range []int64{source, target} {
		if !g.HasStation(id) {
			return Result{}, subway.Errorf(op, subway.KindStationNotFound, "station %d is not on any line", id)
		}
	}

	dist := map[int64]int{source: 0}
	prev := make(map[int64]int64, len(g.stations))
	settled := make(map[int64]bool, len(g.stations))
	pq := &queue{{station: source}}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(item)
		if settled[cur.station] {
			continue
		}
		settled[cur.station] = true
		if cur.station == target {
			break
		}
		for _, e := range g.adj[cur.station] {
			if settled[e.to] {
				continue
			}
			nd := cur.distance + e.distance
			if d, seen := dist[e.to]; !seen || nd < d {
				dist[e.to] = nd
				prev[e.to] = cur.station
				heap.Push(pq, item{station: e.to, distance: nd})
			}
		}
	}

	if !settled[target] {
		return Result{}, subway.Errorf(op, subway.KindNoPathExists, "%d is unreachable from %d", target, source)
	}

	var ids []int64
	for at := target; ; at = prev[at] {
		ids = append(ids, at)
		if at == source {
			break
		}
	}
	res := Result{Stations: make([]subway.Station, len(ids))}
	for i, id := range ids {
		res.Stations[len(ids)-1-i] = g.stations[id]
	}
	for i := 1; i < len(res.Stations); i++ {
		d, _ := g.distance(res.Stations[i-1].ID, res.Stations[i].ID)
		res.Distance += d
	}
	return res, nil
}

type item struct {
	station  int64
	distance int
}

// queue is a min-heap of tentative distances.
type queue []item

func (q queue) Len() int           { return len(q) }
func (q queue) Less(i, j int) bool { return q[i].distance < q[j].distance }
func (q queue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)        { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}
