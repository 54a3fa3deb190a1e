package mapping

import (
	"unicode"
	"unicode/utf8"

	"github.com/clarvo-ai/modelgen/internal/schema"
)

// Cardinality is the multiplicity of the target side of a relationship.
type Cardinality string

const (
	One  Cardinality = "one"
	Many Cardinality = "many"
)

// Relationship is a directed edge from Source to Target. Every relationship
// has an inverse on Target whose Name equals this BackRef.
type Relationship struct {
	Source      string      `yaml:"source" json:"source"`
	Name        string      `yaml:"name" json:"name"`
	Target      string      `yaml:"target" json:"target"`
	BackRef     string      `yaml:"back_ref" json:"back_ref"`
	Cardinality Cardinality `yaml:"cardinality" json:"cardinality"`

	// ForeignKey is the key column and References the column it points at.
	// The key lives on Source when OwnsKey is set, otherwise on Target.
	ForeignKey string `yaml:"foreign_key" json:"foreign_key"`
	References string `yaml:"references" json:"references"`
	OwnsKey    bool   `yaml:"owns_key" json:"owns_key"`
}

// Relationships maps a table name to its relationships in inference order.
type Relationships map[string][]Relationship

// DeriveFieldName turns a table name into a relationship field name by
// lower-casing its first character. It is the only naming rule: renaming a
// table renames every field generated from it.
func DeriveFieldName(tableName string) string {
	r, size := utf8.DecodeRuneInString(tableName)
	if r == utf8.RuneError {
		return tableName
	}
	return string(unicode.ToLower(r)) + tableName[size:]
}

// InferRelationships classifies tables as entities or join tables and
// derives the bidirectional relationship graph. Every table gets an entry,
// possibly empty. Self-referencing and composite keys produce no
// relationships.
func InferRelationships(tables []schema.Table) Relationships {
	g := NewFKGraph(tables)
	rels := make(Relationships, len(tables))
	for _, name := range g.Tables() {
		rels[name] = []Relationship{}
	}

	type pair struct{ a, b string }
	unordered := func(a, b string) pair {
		if a > b {
			a, b = b, a
		}
		return pair{a, b}
	}
	handled := make(map[pair]bool)
	joinTables := make(map[string]bool)

	for _, jt := range g.JoinTables() {
		joinTables[jt.JoinTable] = true
		if jt.LeftTable == "" {
			continue
		}
		handled[unordered(jt.LeftTable, jt.RightTable)] = true

		j := jt.JoinTable
		rels[jt.LeftTable] = append(rels[jt.LeftTable], Relationship{
			Source: jt.LeftTable, Name: DeriveFieldName(j), Target: j, BackRef: DeriveFieldName(jt.LeftTable),
			Cardinality: Many, ForeignKey: jt.LeftColumn, References: jt.LeftRef,
		})
		rels[jt.RightTable] = append(rels[jt.RightTable], Relationship{
			Source: jt.RightTable, Name: DeriveFieldName(j), Target: j, BackRef: DeriveFieldName(jt.RightTable),
			Cardinality: Many, ForeignKey: jt.RightColumn, References: jt.RightRef,
		})
		rels[j] = append(rels[j],
			Relationship{
				Source: j, Name: DeriveFieldName(jt.LeftTable), Target: jt.LeftTable, BackRef: DeriveFieldName(j),
				Cardinality: One, ForeignKey: jt.LeftColumn, References: jt.LeftRef, OwnsKey: true,
			},
			Relationship{
				Source: j, Name: DeriveFieldName(jt.RightTable), Target: jt.RightTable, BackRef: DeriveFieldName(j),
				Cardinality: One, ForeignKey: jt.RightColumn, References: jt.RightRef, OwnsKey: true,
			},
		)
	}

	for i := range tables {
		t := &tables[i]
		if joinTables[t.Name] {
			continue
		}
		for _, col := range t.Columns {
			edge, ok := g.singleColumnKey(t.Name, col.Name)
			if !ok {
				continue
			}
			target := edge.ParentTable
			if handled[unordered(t.Name, target)] {
				continue
			}

			inverse := Many
			if t.IsUniqueColumn(col.Name) {
				inverse = One
			}

			rels[t.Name] = append(rels[t.Name], Relationship{
				Source: t.Name, Name: DeriveFieldName(target), Target: target, BackRef: DeriveFieldName(t.Name),
				Cardinality: One, ForeignKey: col.Name, References: edge.ParentColumns[0], OwnsKey: true,
			})
			rels[target] = append(rels[target], Relationship{
				Source: target, Name: DeriveFieldName(t.Name), Target: t.Name, BackRef: DeriveFieldName(target),
				Cardinality: inverse, ForeignKey: col.Name, References: edge.ParentColumns[0],
			})
		}
	}

	for name, list := range rels {
		rels[name] = Dedupe(list)
	}
	return rels
}

// Dedupe drops relationships whose name repeats an earlier one; the first
// occurrence wins.
func Dedupe(rels []Relationship) []Relationship {
	seen := make(map[string]bool, len(rels))
	out := make([]Relationship, 0, len(rels))
	for _, r := range rels {
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out
}

// Count returns the total number of relationship edges.
func (r Relationships) Count() int {
	n := 0
	for _, list := range r {
		n += len(list)
	}
	return n
}
