package mapping

import (
	"sort"

	"github.com/clarvo-ai/modelgen/internal/schema"
)

// FKEdge represents a foreign key relationship in the graph.
type FKEdge struct {
	ChildTable    string
	ChildColumns  []string
	ParentTable   string
	ParentColumns []string
	FKName        string
}

// Composite reports whether the edge comes from a multi-column key.
func (e FKEdge) Composite() bool {
	return len(e.ChildColumns) > 1
}

// SelfReference reports whether the edge points back at its own table.
func (e FKEdge) SelfReference() bool {
	return e.ChildTable == e.ParentTable
}

// JoinTableInfo describes a many-to-many join table.
type JoinTableInfo struct {
	JoinTable   string
	LeftTable   string
	LeftColumn  string
	LeftRef     string
	RightTable  string
	RightColumn string
	RightRef    string
}

// FKGraph represents the foreign key relationships between tables.
type FKGraph struct {
	tables map[string]*schema.Table
	order  []string
	edges  []FKEdge
	// adjacency: child -> parents
	parents map[string][]FKEdge
}

// NewFKGraph builds a FK relationship graph from a set of tables. Keys
// pointing outside the table set are ignored.
func NewFKGraph(tables []schema.Table) *FKGraph {
	g := &FKGraph{
		tables:  make(map[string]*schema.Table, len(tables)),
		parents: make(map[string][]FKEdge),
	}

	for i := range tables {
		t := &tables[i]
		g.tables[t.Name] = t
		g.order = append(g.order, t.Name)
	}

	for _, name := range g.order {
		t := g.tables[name]
		for _, fk := range t.ForeignKeys {
			if _, ok := g.tables[fk.ReferencedTable]; !ok {
				continue
			}
			edge := FKEdge{
				ChildTable:    t.Name,
				ChildColumns:  fk.Columns,
				ParentTable:   fk.ReferencedTable,
				ParentColumns: fk.ReferencedColumns,
				FKName:        fk.Name,
			}
			g.edges = append(g.edges, edge)
			g.parents[t.Name] = append(g.parents[t.Name], edge)
		}
	}

	return g
}

// Tables returns the table names in input order.
func (g *FKGraph) Tables() []string {
	return g.order
}

// Edges returns all FK edges in the graph.
func (g *FKGraph) Edges() []FKEdge {
	return g.edges
}

// SelfReferences returns all FK edges where a table references itself.
func (g *FKGraph) SelfReferences() []FKEdge {
	var result []FKEdge
	for _, e := range g.edges {
		if e.SelfReference() {
			result = append(result, e)
		}
	}
	return result
}

// CompositeKeys returns all multi-column FK edges.
func (g *FKGraph) CompositeKeys() []FKEdge {
	var result []FKEdge
	for _, e := range g.edges {
		if e.Composite() {
			result = append(result, e)
		}
	}
	return result
}

// singleColumnKey returns the single-column, non-self edge whose child column
// is col, if any.
func (g *FKGraph) singleColumnKey(table, col string) (FKEdge, bool) {
	for _, e := range g.parents[table] {
		if e.Composite() || e.SelfReference() {
			continue
		}
		if e.ChildColumns[0] == col {
			return e, true
		}
	}
	return FKEdge{}, false
}

// IsJoinTable reports whether the table has exactly two foreign-key-bearing
// columns and its primary key is exactly those two columns.
func IsJoinTable(t *schema.Table) bool {
	fkCols := t.ForeignKeyColumns()
	if len(fkCols) != 2 {
		return false
	}
	pkCols := t.PrimaryKeyColumns()
	if len(pkCols) != len(fkCols) {
		return false
	}
	fkSet := map[string]bool{fkCols[0]: true, fkCols[1]: true}
	for _, c := range pkCols {
		if !fkSet[c] {
			return false
		}
	}
	return true
}

// JoinTables returns every join table in input order. Join tables whose keys
// are composite or self-referencing are classified but carry no sides.
func (g *FKGraph) JoinTables() []JoinTableInfo {
	var result []JoinTableInfo
	for _, name := range g.order {
		t := g.tables[name]
		if !IsJoinTable(t) {
			continue
		}
		info := JoinTableInfo{JoinTable: name}
		cols := t.ForeignKeyColumns()
		left, lok := g.singleColumnKey(name, cols[0])
		right, rok := g.singleColumnKey(name, cols[1])
		if lok && rok {
			info.LeftTable, info.LeftColumn, info.LeftRef = left.ParentTable, cols[0], left.ParentColumns[0]
			info.RightTable, info.RightColumn, info.RightRef = right.ParentTable, cols[1], right.ParentColumns[0]
		}
		result = append(result, info)
	}
	return result
}

// DetectCycles finds cycles in the FK graph using DFS, following keys from
// child to parent. Self-references are skipped. Each cycle is returned as the
// list of table names forming it.
func (g *FKGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	adj := make(map[string][]string)
	for _, e := range g.edges {
		if e.SelfReference() {
			continue
		}
		adj[e.ChildTable] = append(adj[e.ChildTable], e.ParentTable)
	}

	var path []string
	var dfs func(node string)
	dfs = func(node string) {
		visited[node] = true
		inStack[node] = true
		path = append(path, node)

		for _, neighbor := range adj[node] {
			if !visited[neighbor] {
				dfs(neighbor)
			} else if inStack[neighbor] {
				start := -1
				for i, n := range path {
					if n == neighbor {
						start = i
						break
					}
				}
				if start >= 0 {
					cycle := make([]string, len(path)-start)
					copy(cycle, path[start:])
					cycles = append(cycles, cycle)
				}
			}
		}

		path = path[:len(path)-1]
		inStack[node] = false
	}

	names := append([]string(nil), g.order...)
	sort.Strings(names)
	for _, name := range names {
		if !visited[name] {
			dfs(name)
		}
	}

	return cycles
}
