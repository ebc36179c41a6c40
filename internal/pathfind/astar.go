package pathfind

import (
	"container/heap"
)

// Graph describes a search space for A*.
type Graph[N comparable] struct {
	// Neighbors lists the successors of n in a deterministic order.
	Neighbors func(n N) []N

	// Heuristic estimates the remaining cost from n to the goal. Nil means 0 (Dijkstra).
	Heuristic func(n N) float64

	// Cost is the price of the edge from a to b. Nil means 1.
	Cost func(a, b N) float64
}

// FindPath runs A* from start to goal. The path includes both endpoints.
// start == goal yields [start]. Ties on f-score are broken by insertion order,
// so equal inputs always give equal paths.
func FindPath[N comparable](g Graph[N], start, goal N) ([]N, bool) {
	if start == goal {
		return []N{start}, true
	}

	h := g.Heuristic
	if h == nil {
		h = func(N) float64 { return 0 }
	}
	cost := g.Cost
	if cost == nil {
		cost = func(N, N) float64 { return 1 }
	}

	open := &frontier[N]{}
	var seq uint64
	heap.Push(open, &entry[N]{node: start, f: h(start), seq: seq})

	gScore := map[N]float64{start: 0}
	cameFrom := make(map[N]N)
	closed := make(map[N]bool)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*entry[N]).node
		if cur == goal {
			return reconstruct(cameFrom, start, goal), true
		}
		if closed[cur] {
			continue
		}
		closed[cur] = true

		for _, next := range g.Neighbors(cur) {
			if closed[next] {
				continue
			}
			tentative := gScore[cur] + cost(cur, next)
			if old, seen := gScore[next]; seen && tentative >= old {
				continue
			}
			gScore[next] = tentative
			cameFrom[next] = cur
			seq++
			heap.Push(open, &entry[N]{node: next, f: tentative + h(next), seq: seq})
		}
	}
	return nil, false
}

func reconstruct[N comparable](cameFrom map[N]N, start, goal N) []N {
	path := []N{goal}
	for cur := goal; cur != start; {
		cur = cameFrom[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// FindAllReachable returns every node reachable from start within maxDepth
// edges, in breadth-first discovery order (start first).
func FindAllReachable[N comparable](neighbors func(N) []N, start N, maxDepth int) []N {
	out := []N{start}
	depth := map[N]int{start: 0}
	queue := []N{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if depth[cur] >= maxDepth {
			continue
		}
		for _, next := range neighbors(cur) {
			if _, seen := depth[next]; seen {
				continue
			}
			depth[next] = depth[cur] + 1
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

type entry[N comparable] struct {
	node N
	f    float64
	seq  uint64
}

type frontier[N comparable] []*entry[N]

func (q frontier[N]) Len() int { return len(q) }
func (q frontier[N]) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].seq < q[j].seq
}
func (q frontier[N]) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *frontier[N]) Push(x any)   { *q = append(*q, x.(*entry[N])) }
func (q *frontier[N]) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}
