package mapping

import (
	"github.com/clarvo-ai/modelgen/internal/schema"
)

// Dependencies returns the tables that table depends on: the targets of its
// key-owning relationships, in relationship order, without itself.
func (r Relationships) Dependencies(table string) []string {
	var deps []string
	seen := make(map[string]bool)
	for _, rel := range r[table] {
		if !rel.OwnsKey || rel.Target == table || seen[rel.Target] {
			continue
		}
		seen[rel.Target] = true
		deps = append(deps, rel.Target)
	}
	return deps
}

// SortByDependencies orders table names so each table follows the tables it
// depends on. Traversal is an iterative depth-first search starting from each
// table in input order. Meeting a table that is still on the stack means a
// cycle; that edge is treated as already satisfied, so cyclic schemas get a
// deterministic best-effort order instead of an error.
func SortByDependencies(tables []schema.Table, rels Relationships) []string {
	const (
		unvisited = iota
		visiting
		done
	)

	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		known[t.Name] = true
	}

	type frame struct {
		name string
		deps []string
		next int
	}

	state := make(map[string]int, len(tables))
	sorted := make([]string, 0, len(tables))

	for _, t := range tables {
		if state[t.Name] != unvisited {
			continue
		}

		state[t.Name] = visiting
		stack := []frame{{name: t.Name, deps: rels.Dependencies(t.Name)}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.deps) {
				dep := top.deps[top.next]
				top.next++
				if known[dep] && state[dep] == unvisited {
					state[dep] = visiting
					stack = append(stack, frame{name: dep, deps: rels.Dependencies(dep)})
				}
				continue
			}

			state[top.name] = done
			sorted = append(sorted, top.name)
			stack = stack[:len(stack)-1]
		}
	}

	return sorted
}
