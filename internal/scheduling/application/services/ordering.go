// Package services holds the scheduling engine's application-layer
// components: constraint propagation, allocation, and the fixed-point driver
// that repeats them to convergence.
package services

import (
	"sort"

	schedulingDomain "github.com/felixgeelhaar/chronoforge/internal/scheduling/domain"
	"github.com/google/uuid"
)

// visitOrder sorts a round's candidate tasks by priority (descending), then
// topological position (ascending), then declaration order (ascending) — the
// deterministic tie-break chain used for round visiting.
func visitOrder(tasks []*schedulingDomain.Task, topoPos map[uuid.UUID]int) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Priority() != b.Priority() {
			return a.Priority() > b.Priority()
		}
		pa, pb := topoPos[a.ID()], topoPos[b.ID()]
		if pa != pb {
			return pa < pb
		}
		return a.DeclarationOrder() < b.DeclarationOrder()
	})
}
