package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clarvo-ai/modelgen/internal/mapping"
	"github.com/clarvo-ai/modelgen/internal/schema"
)

// GenerationReport summarizes one generator run.
type GenerationReport struct {
	Version       string              `json:"version"`
	GeneratedAt   time.Time           `json:"generated_at"`
	Source        SourceSummary       `json:"source"`
	Enums         EnumSummary         `json:"enums"`
	Relationships RelationshipSummary `json:"relationships"`
	Order         []string            `json:"order"`
	Output        OutputSummary       `json:"output"`
	Checks        []Check             `json:"checks"`
	Warnings      []string            `json:"warnings,omitempty"`
}

// SourceSummary describes the reflected catalog. Key counts cover foreign
// keys between reflected tables.
type SourceSummary struct {
	Driver         string `json:"driver"`
	Schema         string `json:"schema"`
	Snapshot       string `json:"snapshot,omitempty"`
	Tables         int    `json:"tables"`
	Columns        int    `json:"columns"`
	ForeignKeys    int    `json:"foreign_keys"`
	CompositeKeys  int    `json:"composite_keys"`
	SelfReferences int    `json:"self_references"`
}

// EnumSummary describes the enum metadata that was recovered.
type EnumSummary struct {
	Types    int `json:"types"`
	Columns  int `json:"columns"`
	Defaults int `json:"defaults"`
}

// RelationshipSummary describes the inferred relationship graph.
type RelationshipSummary struct {
	Total      int        `json:"total"`
	OneToOne   int        `json:"one_to_one"`
	JoinTables []string   `json:"join_tables,omitempty"`
	Cycles     [][]string `json:"cycles,omitempty"`
}

// OutputSummary describes the written models file.
type OutputSummary struct {
	Path    string `json:"path"`
	Package string `json:"package"`
	Bytes   int    `json:"bytes"`
	SHA256  string `json:"sha256"`
}

// Check is a single post-generation condition.
type Check struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// NewOutputSummary describes generated source written to path.
func NewOutputSummary(path, pkg string, src []byte) OutputSummary {
	sum := sha256.Sum256(src)
	return OutputSummary{
		Path:    path,
		Package: pkg,
		Bytes:   len(src),
		SHA256:  hex.EncodeToString(sum[:]),
	}
}

// GenerateReport creates a GenerationReport from the provided parameters.
func GenerateReport(
	driver, snapshot string,
	s *schema.Schema,
	graph *mapping.FKGraph,
	order []string,
	rels mapping.Relationships,
	joinTables []string,
	cycles [][]string,
	output OutputSummary,
) *GenerationReport {
	if graph == nil {
		graph = mapping.NewFKGraph(s.Tables)
	}
	src := SourceSummary{
		Driver:         driver,
		Schema:         s.SchemaName,
		Snapshot:       snapshot,
		Tables:         len(s.Tables),
		ForeignKeys:    len(graph.Edges()),
		CompositeKeys:  len(graph.CompositeKeys()),
		SelfReferences: len(graph.SelfReferences()),
	}
	userDefined := 0
	for _, t := range s.Tables {
		src.Columns += len(t.Columns)
		for _, c := range t.Columns {
			if strings.EqualFold(c.DataType, "USER-DEFINED") {
				userDefined++
			}
		}
	}

	relSummary := RelationshipSummary{
		Total:      rels.Count(),
		JoinTables: joinTables,
		Cycles:     cycles,
	}
	for _, list := range rels {
		for _, r := range list {
			if !r.OwnsKey && r.Cardinality == mapping.One {
				relSummary.OneToOne++
			}
		}
	}

	var checks []Check
	enumsOK := len(s.Enums) > 0 || userDefined == 0
	enumMsg := "enum metadata recovered"
	if !enumsOK {
		enumMsg = fmt.Sprintf("no enum metadata; %d user-defined columns rendered as text", userDefined)
	}
	checks = append(checks, Check{Name: "enums", Passed: enumsOK, Message: enumMsg})

	cycleMsg := "dependency order is a topological order"
	if len(cycles) > 0 {
		cycleMsg = fmt.Sprintf("%d foreign key cycles; dependency order is best effort", len(cycles))
	}
	checks = append(checks, Check{Name: "cycles", Passed: len(cycles) == 0, Message: cycleMsg})

	var warnings []string
	for _, c := range checks {
		if !c.Passed {
			warnings = append(warnings, c.Message)
		}
	}

	return &GenerationReport{
		Version:     "1",
		GeneratedAt: time.Now(),
		Source:      src,
		Enums: EnumSummary{
			Types:    len(s.Enums),
			Columns:  len(s.EnumColumns),
			Defaults: len(s.EnumDefaults),
		},
		Relationships: relSummary,
		Order:         order,
		Output:        output,
		Checks:        checks,
		Warnings:      warnings,
	}
}

// WriteJSON writes the report as JSON.
func WriteJSON(report *GenerationReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*GenerationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &GenerationReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// FormatText renders the report as human-readable text.
func FormatText(report *GenerationReport) string {
	var b strings.Builder

	b.WriteString("=== modelgen Generation Report ===\n")
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format(time.RFC3339)))

	b.WriteString("Source:\n")
	b.WriteString(fmt.Sprintf("  Driver:       %s\n", report.Source.Driver))
	b.WriteString(fmt.Sprintf("  Schema:       %s\n", report.Source.Schema))
	if report.Source.Snapshot != "" {
		b.WriteString(fmt.Sprintf("  Snapshot:     %s\n", report.Source.Snapshot))
	}
	b.WriteString(fmt.Sprintf("  Tables:       %d\n", report.Source.Tables))
	b.WriteString(fmt.Sprintf("  Foreign keys: %d (%d composite, %d self-referencing)\n\n",
		report.Source.ForeignKeys, report.Source.CompositeKeys, report.Source.SelfReferences))

	b.WriteString(fmt.Sprintf("Enums: %d types, %d columns, %d defaults\n", report.Enums.Types, report.Enums.Columns, report.Enums.Defaults))
	b.WriteString(fmt.Sprintf("Relationships: %d (%d one-to-one)\n", report.Relationships.Total, report.Relationships.OneToOne))
	if len(report.Relationships.JoinTables) > 0 {
		b.WriteString(fmt.Sprintf("Join tables: %s\n", strings.Join(report.Relationships.JoinTables, ", ")))
	}
	b.WriteString("\n")

	b.WriteString("Output:\n")
	b.WriteString(fmt.Sprintf("  Path:    %s\n", report.Output.Path))
	b.WriteString(fmt.Sprintf("  Package: %s\n", report.Output.Package))
	b.WriteString(fmt.Sprintf("  Bytes:   %d\n\n", report.Output.Bytes))

	b.WriteString("Checks:\n")
	for _, c := range report.Checks {
		status := "PASS"
		if !c.Passed {
			status = "WARN"
		}
		b.WriteString(fmt.Sprintf("  [%s] %s: %s\n", status, c.Name, c.Message))
	}

	return b.String()
}
