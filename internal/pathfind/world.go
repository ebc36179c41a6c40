package pathfind

import (
	"math"

	"github.com/VasyaLutiy/daqs-v5.0/pkg/domain"
	"github.com/VasyaLutiy/daqs-v5.0/pkg/world"
)

// DefaultMaxDepth bounds reachability searches.
const DefaultMaxDepth = 10

// unvisitedPenalty makes the dialogue heuristic prefer contexts already seen.
const unvisitedPenalty = 0.5

func difficulty(view *world.Store, id string) float64 {
	c, _ := view.Context(id)
	if c.Properties.Difficulty > 0 {
		return c.Properties.Difficulty
	}
	return 1
}

// DialogueNeighbors returns the contexts enterable from id by a plain shift.
func DialogueNeighbors(view *world.Store, unlocked domain.Set) func(string) []string {
	return func(id string) []string {
		var out []string
		for _, n := range view.Neighbors(id) {
			if view.Open(n, unlocked) {
				out = append(out, n)
			}
		}
		return out
	}
}

// DialoguePath finds a route between two contexts over currently open edges.
// The heuristic adds context difficulties and penalises unvisited contexts;
// it is a hint ranking, not an admissible estimate.
func DialoguePath(view *world.Store, start, goal string, unlocked, visited domain.Set) ([]string, bool) {
	if !view.HasContext(start) || !view.HasContext(goal) {
		return nil, false
	}
	goalDifficulty := difficulty(view, goal)
	return FindPath(Graph[string]{
		Neighbors: DialogueNeighbors(view, unlocked),
		Heuristic: func(id string) float64 {
			if id == goal {
				return 0
			}
			h := 1 + difficulty(view, id) + goalDifficulty
			if !visited.Has(id) {
				h += unvisitedPenalty
			}
			return h
		},
	}, start, goal)
}

// ReachableContexts lists contexts reachable from start over open edges within maxDepth.
func ReachableContexts(view *world.Store, start string, unlocked domain.Set, maxDepth int) []string {
	if !view.HasContext(start) {
		return nil
	}
	return FindAllReachable(DialogueNeighbors(view, unlocked), start, maxDepth)
}

// NavigationNeighbors returns the locations adjacent to id that are discovered.
// A nil discovered set treats the whole map as discovered.
func NavigationNeighbors(view *world.Store, discovered domain.Set) func(string) []string {
	return func(id string) []string {
		if discovered == nil {
			return view.LocationNeighbors(id)
		}
		var out []string
		for _, n := range view.LocationNeighbors(id) {
			if discovered.Has(n) {
				out = append(out, n)
			}
		}
		return out
	}
}

// Distance is the Euclidean distance between two located places, or 0 when
// either has no position.
func Distance(view *world.Store, a, b string) float64 {
	la, _ := view.Location(a)
	lb, _ := view.Location(b)
	pa, pb := la.Properties.Position, lb.Properties.Position
	if pa == nil || pb == nil {
		return 0
	}
	return math.Hypot(pa.X-pb.X, pa.Y-pb.Y)
}

func movementCost(view *world.Store) func(a, b string) float64 {
	return func(_, b string) float64 {
		l, _ := view.Location(b)
		if l.Properties.MovementCost > 0 {
			return l.Properties.MovementCost
		}
		return 1
	}
}

// NavigationPath finds a route on the world map through discovered locations.
func NavigationPath(view *world.Store, start, goal string, discovered domain.Set) ([]string, bool) {
	if _, ok := view.Location(start); !ok {
		return nil, false
	}
	if _, ok := view.Location(goal); !ok {
		return nil, false
	}
	return FindPath(Graph[string]{
		Neighbors: NavigationNeighbors(view, discovered),
		Heuristic: func(id string) float64 { return Distance(view, id, goal) },
		Cost:      movementCost(view),
	}, start, goal)
}

// ReachableLocations lists locations reachable from start through discovered ones.
func ReachableLocations(view *world.Store, start string, discovered domain.Set, maxDepth int) []string {
	if _, ok := view.Location(start); !ok {
		return nil
	}
	return FindAllReachable(NavigationNeighbors(view, discovered), start, maxDepth)
}

// ExplorationPath walks from start preferring undiscovered neighbors closest to
// the first pending goal, and otherwise steps along the known route toward it.
// Goals are dropped as they are reached. The walk stops after maxSteps moves,
// when all goals are reached, or when no step is possible.
func ExplorationPath(view *world.Store, start string, goals []string, discovered domain.Set, maxSteps int) []string {
	path := []string{start}
	known := discovered.Clone()
	known.Add(start)
	pending := append([]string(nil), goals...)
	cur := start

	for steps := 0; steps < maxSteps; steps++ {
		for len(pending) > 0 && pending[0] == cur {
			pending = pending[1:]
		}
		if len(pending) == 0 {
			break
		}
		target := pending[0]

		next := ""
		best := math.Inf(1)
		for _, n := range view.LocationNeighbors(cur) {
			if known.Has(n) {
				continue
			}
			if d := Distance(view, n, target); d < best {
				next, best = n, d
			}
		}
		if next == "" {
			route, ok := NavigationPath(view, cur, target, known)
			if !ok || len(route) < 2 {
				break
			}
			next = route[1]
		}
		known.Add(next)
		path = append(path, next)
		cur = next
	}
	return path
}
