package mapping

import (
	"reflect"
	"testing"

	"github.com/clarvo-ai/modelgen/internal/schema"
)

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func TestSortByDependencies_ReferencedFirst(t *testing.T) {
	tables := userPostTables()
	// Post is listed after User here; reverse it to make the sort do work.
	tables[0], tables[1] = tables[1], tables[0]

	order := SortByDependencies(tables, InferRelationships(tables))
	if len(order) != 2 {
		t.Fatalf("expected 2 tables, got %v", order)
	}
	if indexOf(order, "User") > indexOf(order, "Post") {
		t.Errorf("expected User before Post, got %v", order)
	}
}

func TestSortByDependencies_JoinTableLast(t *testing.T) {
	tables := studentCourseTables()
	order := SortByDependencies(tables, InferRelationships(tables))
	want := []string{"Course", "Student", "Enrollment"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
}

func TestSortByDependencies_Cycle(t *testing.T) {
	tables := []schema.Table{
		{
			Name:    "A",
			Columns: []schema.Column{{Name: "id"}, {Name: "bId"}},
			ForeignKeys: []schema.ForeignKey{
				{Columns: []string{"bId"}, ReferencedTable: "B", ReferencedColumns: []string{"id"}},
			},
		},
		{
			Name:    "B",
			Columns: []schema.Column{{Name: "id"}, {Name: "aId"}},
			ForeignKeys: []schema.ForeignKey{
				{Columns: []string{"aId"}, ReferencedTable: "A", ReferencedColumns: []string{"id"}},
			},
		},
	}
	rels := InferRelationships(tables)

	first := SortByDependencies(tables, rels)
	if len(first) != 2 {
		t.Fatalf("expected every table once, got %v", first)
	}
	for i := 0; i < 5; i++ {
		if again := SortByDependencies(tables, rels); !reflect.DeepEqual(first, again) {
			t.Fatalf("non-deterministic order: %v vs %v", first, again)
		}
	}
	if !reflect.DeepEqual(first, []string{"B", "A"}) {
		t.Errorf("expected [B A], got %v", first)
	}
}

func TestSortByDependencies_UnknownTargetIgnored(t *testing.T) {
	tables := []schema.Table{{Name: "Solo"}}
	rels := Relationships{"Solo": {{Source: "Solo", Name: "ghost", Target: "Ghost", OwnsKey: true}}}
	order := SortByDependencies(tables, rels)
	if !reflect.DeepEqual(order, []string{"Solo"}) {
		t.Errorf("expected [Solo], got %v", order)
	}
}

func TestDependencies(t *testing.T) {
	rels := InferRelationships(userPostTables())
	if deps := rels.Dependencies("Post"); !reflect.DeepEqual(deps, []string{"User"}) {
		t.Errorf("expected Post to depend on User, got %v", deps)
	}
	if deps := rels.Dependencies("User"); len(deps) != 0 {
		t.Errorf("expected User to depend on nothing, got %v", deps)
	}
}
