package orchestrator

import (
	"sort"

	"github.com/yourusername/loom/internal/hierarchy"
)

// missingDependencies returns dependency ids that do not exist in the
// plan, sorted for stable error output. Self-references are handled by
// cycle detection, not here.
func missingDependencies(plan *hierarchy.Plan, deps []string) []string {
	var missing []string
	seen := map[string]bool{}
	for _, dep := range deps {
		if seen[dep] {
			continue
		}
		seen[dep] = true
		if _, ok := plan.Tasks[dep]; !ok {
			missing = append(missing, dep)
		}
	}
	sort.Strings(missing)
	return missing
}

// findCycle runs a DFS over the plan's dependency graph, with the
// candidate edges overlaid, and returns one cycle as a witness path
// ending where it begins. Returns nil when the graph is acyclic.
//
// The walk visits ids in sorted order so the same graph always yields
// the same witness.
func findCycle(plan *hierarchy.Plan, extraFrom string, extraDeps []string) []string {
	edges := make(map[string][]string, len(plan.Tasks)+1)
	ids := make([]string, 0, len(plan.Tasks)+1)
	for id, task := range plan.Tasks {
		edges[id] = append(edges[id], task.DependsOn...)
		ids = append(ids, id)
	}
	if extraFrom != "" {
		if _, ok := edges[extraFrom]; !ok {
			ids = append(ids, extraFrom)
		}
		edges[extraFrom] = append(edges[extraFrom], extraDeps...)
	}
	sort.Strings(ids)
	for _, deps := range edges {
		sort.Strings(deps)
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	parent := map[string]string{}
	var cycle []string

	var dfs func(u string) bool
	dfs = func(u string) bool {
		color[u] = gray
		for _, v := range edges[u] {
			if _, exists := edges[v]; !exists {
				// Dangling reference; caught separately by
				// missingDependencies.
				continue
			}
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// Back edge u -> v closes a cycle. Walk parents
				// from u back to v, then reverse.
				path := []string{v}
				for cur := u; cur != v && cur != ""; cur = parent[cur] {
					path = append(path, cur)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				cycle = append(path, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for _, id := range ids {
		if color[id] == white && dfs(id) {
			return cycle
		}
	}
	return nil
}
