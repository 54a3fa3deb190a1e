package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/clarvo-ai/modelgen/internal/mapping"
	"github.com/clarvo-ai/modelgen/internal/schema"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{
				Name:    "User",
				Columns: []schema.Column{{Name: "id"}, {Name: "role", DataType: "USER-DEFINED", UDTName: "Role"}},
			},
			{
				Name:    "Profile",
				Columns: []schema.Column{{Name: "id"}, {Name: "userId", Unique: true}},
				ForeignKeys: []schema.ForeignKey{
					{Columns: []string{"userId"}, ReferencedTable: "User", ReferencedColumns: []string{"id"}},
				},
			},
		},
		Enums:       map[string][]string{"Role": {"ADMIN", "MEMBER"}},
		EnumColumns: map[string]string{"user.role": "Role"},
	}
}

func testReport(s *schema.Schema, cycles [][]string) *GenerationReport {
	rels := mapping.InferRelationships(s.Tables)
	order := mapping.SortByDependencies(s.Tables, rels)
	out := NewOutputSummary("models/models_gen.go", "models", []byte("package models\n"))
	return GenerateReport("pgx", "", s, mapping.NewFKGraph(s.Tables), order, rels, nil, cycles, out)
}

func TestJSON_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reports", "report.json")

	report := testReport(testSchema(), nil)
	if err := WriteJSON(report, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	loaded, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}

	if loaded.Version != "1" {
		t.Errorf("expected version 1, got %s", loaded.Version)
	}
	if loaded.Source.Tables != 2 || loaded.Source.ForeignKeys != 1 {
		t.Errorf("unexpected source summary %+v", loaded.Source)
	}
	if loaded.Relationships.Total != 2 || loaded.Relationships.OneToOne != 1 {
		t.Errorf("unexpected relationship summary %+v", loaded.Relationships)
	}
	if len(loaded.Order) != 2 || loaded.Order[0] != "User" {
		t.Errorf("expected User first, got %v", loaded.Order)
	}
	if loaded.Output.Bytes != len("package models\n") || len(loaded.Output.SHA256) != 64 {
		t.Errorf("unexpected output summary %+v", loaded.Output)
	}
	if len(loaded.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", loaded.Warnings)
	}
}

func TestReport_DegradedEnums(t *testing.T) {
	s := testSchema()
	s.Enums = nil
	s.EnumColumns = nil

	report := testReport(s, [][]string{{"A", "B"}})
	if len(report.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", report.Warnings)
	}
	for _, c := range report.Checks {
		if c.Passed {
			t.Errorf("expected check %s to fail", c.Name)
		}
	}
	if !strings.Contains(report.Warnings[0], "1 user-defined columns") {
		t.Errorf("unexpected enum warning %q", report.Warnings[0])
	}
}

func TestFormatText(t *testing.T) {
	report := testReport(testSchema(), nil)
	report.Relationships.JoinTables = []string{"Membership"}

	text := FormatText(report)
	for _, want := range []string{
		"modelgen Generation Report",
		"Driver:       pgx",
		"Enums: 1 types, 1 columns, 0 defaults",
		"Join tables: Membership",
		"Foreign keys: 1 (0 composite, 0 self-referencing)",
		"[PASS] enums",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q\n%s", want, text)
		}
	}
}

func TestReport_KeyCountsFromGraph(t *testing.T) {
	s := testSchema()
	s.Tables = append(s.Tables,
		schema.Table{
			Name:    "Category",
			Columns: []schema.Column{{Name: "id"}, {Name: "parentId"}},
			ForeignKeys: []schema.ForeignKey{
				{Columns: []string{"parentId"}, ReferencedTable: "Category", ReferencedColumns: []string{"id"}},
			},
		},
		schema.Table{
			Name:    "Ticket",
			Columns: []schema.Column{{Name: "id"}, {Name: "orgId"}, {Name: "userId"}},
			ForeignKeys: []schema.ForeignKey{
				{Columns: []string{"orgId", "userId"}, ReferencedTable: "User", ReferencedColumns: []string{"orgId", "id"}},
				{Columns: []string{"userId"}, ReferencedTable: "Archive", ReferencedColumns: []string{"id"}},
			},
		},
	)

	rels := mapping.InferRelationships(s.Tables)
	out := NewOutputSummary("models/models_gen.go", "models", nil)
	report := GenerateReport("pgx", "", s, nil, nil, rels, nil, nil, out)

	// The key to Archive points outside the reflected tables.
	if report.Source.ForeignKeys != 3 {
		t.Errorf("expected 3 foreign keys, got %d", report.Source.ForeignKeys)
	}
	if report.Source.CompositeKeys != 1 {
		t.Errorf("expected 1 composite key, got %d", report.Source.CompositeKeys)
	}
	if report.Source.SelfReferences != 1 {
		t.Errorf("expected 1 self reference, got %d", report.Source.SelfReferences)
	}
}
