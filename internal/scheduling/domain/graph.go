package domain

import "github.com/google/uuid"

// DependencyGraph is the directed acyclic graph of tasks: explicit
// DependencyEdge sources, plus the implicit edges every container has on its
// children (a parent's start depends on the earliest child start; its end on
// the latest child end).
type DependencyGraph struct {
	order        []uuid.UUID // declaration order, used for Kahn tie-breaks
	adjacency    map[uuid.UUID][]uuid.UUID // source -> []target (explicit deps and implicit child -> container edges)
	indegree     map[uuid.UUID]int
	topological  []uuid.UUID
	reverseTopo  []uuid.UUID
}

// BuildDependencyGraph accepts every task (already holding its own incoming
// DependencyEdge list) and produces the ordered graph, or ErrCycleDetected.
func BuildDependencyGraph(tasks []*Task) (*DependencyGraph, error) {
	g := &DependencyGraph{
		adjacency: make(map[uuid.UUID][]uuid.UUID),
		indegree:  make(map[uuid.UUID]int),
	}

	for _, t := range tasks {
		g.order = append(g.order, t.ID())
		if _, ok := g.indegree[t.ID()]; !ok {
			g.indegree[t.ID()] = 0
		}
	}

	addEdge := func(source, target uuid.UUID) {
		g.adjacency[source] = append(g.adjacency[source], target)
		g.indegree[target]++
	}

	for _, t := range tasks {
		for _, dep := range t.Dependencies() {
			addEdge(dep.Source, t.ID())
		}
		// Implicit container edges: children determine the parent's window,
		// so the parent "depends" on every child finishing layout first.
		for _, childID := range t.Children() {
			addEdge(childID, t.ID())
		}
	}

	topo, err := g.kahn()
	if err != nil {
		return nil, err
	}
	g.topological = topo

	reverse := make([]uuid.UUID, len(topo))
	for i, id := range topo {
		reverse[len(topo)-1-i] = id
	}
	g.reverseTopo = reverse

	return g, nil
}

// kahn runs Kahn's algorithm, breaking ties by declaration order so that the
// resulting topological order is deterministic across runs.
func (g *DependencyGraph) kahn() ([]uuid.UUID, error) {
	indegree := make(map[uuid.UUID]int, len(g.indegree))
	for k, v := range g.indegree {
		indegree[k] = v
	}

	posInOrder := make(map[uuid.UUID]int, len(g.order))
	for i, id := range g.order {
		posInOrder[id] = i
	}

	var ready []uuid.UUID
	for _, id := range g.order {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var out []uuid.UUID
	for len(ready) > 0 {
		// Pick the lowest declaration-order id among ready nodes.
		bestIdx := 0
		for i := 1; i < len(ready); i++ {
			if posInOrder[ready[i]] < posInOrder[ready[bestIdx]] {
				bestIdx = i
			}
		}
		next := ready[bestIdx]
		ready = append(ready[:bestIdx], ready[bestIdx+1:]...)
		out = append(out, next)

		for _, target := range g.adjacency[next] {
			indegree[target]--
			if indegree[target] == 0 {
				ready = append(ready, target)
			}
		}
	}

	if len(out) != len(g.order) {
		return nil, &SchedulingError{Kind: ErrKindCycleDetected, Message: "dependency graph has a cycle"}
	}
	return out, nil
}

// TopologicalOrder returns tasks source-before-target.
func (g *DependencyGraph) TopologicalOrder() []uuid.UUID { return g.topological }

// ReverseTopologicalOrder returns tasks target-before-source.
func (g *DependencyGraph) ReverseTopologicalOrder() []uuid.UUID { return g.reverseTopo }

// TopoPosition returns a task's index in the topological order, used by the
// driver's round-visiting comparator (ascending topological order).
func (g *DependencyGraph) TopoPosition() map[uuid.UUID]int {
	pos := make(map[uuid.UUID]int, len(g.topological))
	for i, id := range g.topological {
		pos[id] = i
	}
	return pos
}
