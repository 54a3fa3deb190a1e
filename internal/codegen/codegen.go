package codegen

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/clarvo-ai/modelgen/internal/config"
	"github.com/clarvo-ai/modelgen/internal/mapping"
	"github.com/clarvo-ai/modelgen/internal/schema"
	"github.com/clarvo-ai/modelgen/internal/typemap"
)

// Generator produces Go model source from a reflected schema.
type Generator struct {
	Config  *config.Config
	Schema  *schema.Schema
	TypeMap *typemap.TypeMap
	Logger  *slog.Logger
}

// GenerateResult contains the generated models and the graph they came from.
type GenerateResult struct {
	Source        []byte
	Order         []string
	Relationships mapping.Relationships
	Graph         *mapping.FKGraph
	JoinTables    []string
	Cycles        [][]string
}

// Generate infers relationships, orders the tables, renders every entity and
// returns the sorted, formatted source.
func (g *Generator) Generate() (*GenerateResult, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := g.Config
	if cfg == nil {
		cfg = config.Default()
	}
	tm := g.TypeMap
	if tm == nil {
		tm = TypeMapFor(cfg)
	}

	tables := append([]schema.Table(nil), g.Schema.Tables...)
	sort.SliceStable(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	rels := mapping.InferRelationships(tables)
	order := mapping.SortByDependencies(tables, rels)
	logger.Debug("dependency order", "tables", order)

	graph := mapping.NewFKGraph(tables)
	var joins []string
	for _, jt := range graph.JoinTables() {
		joins = append(joins, jt.JoinTable)
	}
	for _, e := range graph.SelfReferences() {
		logger.Info("self-referencing foreign key has no relationship field", "table", e.ChildTable, "columns", e.ChildColumns)
	}
	cycles := graph.DetectCycles()
	for _, cycle := range cycles {
		logger.Warn("foreign key cycle, ordering is best effort", "tables", cycle)
	}

	b := newBuilder(g.Schema, tm, cfg.KeyOverrides)
	file, err := b.build(cfg.Output.Package, order, rels)
	if err != nil {
		return nil, fmt.Errorf("building models: %w", err)
	}

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, file); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}

	src, err := Format(cfg.Output.Path, SortDeclarations(buf.Bytes()))
	if err != nil {
		return nil, err
	}

	logger.Info("models generated",
		"entities", len(file.Entities),
		"enums", len(file.Enums),
		"relationships", rels.Count(),
		"join_tables", len(joins),
	)

	return &GenerateResult{
		Source:        src,
		Order:         order,
		Relationships: rels,
		Graph:         graph,
		JoinTables:    joins,
		Cycles:        cycles,
	}, nil
}

// TypeMapFor returns the default PostgreSQL type table with the configured
// overrides applied.
func TypeMapFor(cfg *config.Config) *typemap.TypeMap {
	tm := typemap.DefaultPostgres()
	if cfg == nil {
		return tm
	}
	for name, o := range cfg.TypeOverrides {
		tm.Override(name, typemap.Mapping{
			GoType:      o.GoType,
			StorageType: o.StorageType,
			Import:      o.Import,
			Slice:       strings.HasPrefix(o.GoType, "[]"),
		})
	}
	return tm
}
