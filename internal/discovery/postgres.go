package discovery

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver

	"github.com/clarvo-ai/modelgen/internal/config"
	"github.com/clarvo-ai/modelgen/internal/logging"
	"github.com/clarvo-ai/modelgen/internal/schema"
)

// Postgres implements Discoverer for PostgreSQL databases.
type Postgres struct {
	cfg    *config.SourceConfig
	db     *sql.DB
	schema string // pg schema to discover, defaults to "public"
	logger *slog.Logger
}

// NewPostgres creates a new PostgreSQL discoverer.
func NewPostgres(cfg *config.SourceConfig, logger *slog.Logger) (*Postgres, error) {
	s := cfg.Schema
	if s == "" {
		s = "public"
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Postgres{cfg: cfg, schema: s, logger: logger}, nil
}

func (p *Postgres) Connect(ctx context.Context) error {
	driver := p.cfg.Driver
	if driver == "" {
		driver = "pgx"
	}

	db, err := sql.Open(driver, p.cfg.URL)
	if err != nil {
		return fmt.Errorf("opening %s connection: %w", driver, err)
	}
	// A generator run is a handful of sequential read-only queries.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("pinging PostgreSQL: %w", err)
	}

	p.db = db
	return nil
}

func (p *Postgres) Discover(ctx context.Context) (*schema.Schema, error) {
	if p.db == nil {
		return nil, ErrNotConnected
	}

	if err := p.checkSchemaExists(ctx); err != nil {
		return nil, err
	}

	tables, err := p.discoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering tables: %w", err)
	}

	tableMap := make(map[string]*schema.Table, len(tables))
	for i := range tables {
		tableMap[tables[i].Name] = &tables[i]
	}

	steps := []struct {
		name string
		fn   func(context.Context, map[string]*schema.Table) error
	}{
		{"columns", p.discoverColumns},
		{"primary keys", p.discoverPrimaryKeys},
		{"foreign keys", p.discoverForeignKeys},
		{"unique constraints", p.discoverUniqueConstraints},
		{"indexes", p.discoverIndexes},
		{"check constraints", p.discoverCheckConstraints},
	}
	for _, step := range steps {
		if err := step.fn(ctx, tableMap); err != nil {
			return nil, fmt.Errorf("discovering %s: %w", step.name, err)
		}
	}

	for i := range tables {
		annotateColumns(&tables[i])
	}

	s := &schema.Schema{
		DatabaseType: "postgresql",
		SchemaName:   p.schema,
		Tables:       tables,
		Enums:        map[string][]string{},
		EnumColumns:  map[string]string{},
		EnumDefaults: map[string]string{},
	}
	p.discoverEnums(ctx, s)

	p.logger.Info("catalog reflected",
		"schema", p.schema,
		"tables", len(s.Tables),
		"enums", len(s.Enums),
		"enum_columns", len(s.EnumColumns))
	return s, nil
}

func (p *Postgres) Close() error {
	if p.db != nil {
		err := p.db.Close()
		p.db = nil
		return err
	}
	return nil
}

func (p *Postgres) checkSchemaExists(ctx context.Context) error {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_namespace WHERE nspname = $1)`, p.schema).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !exists {
		return &SchemaNotFoundError{Schema: p.schema}
	}
	return nil
}

// discoverTables lists ordinary and partitioned tables in name order.
func (p *Postgres) discoverTables(ctx context.Context) ([]schema.Table, error) {
	query := `
		SELECT c.relname AS table_name
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
		  AND c.relkind IN ('r', 'p')
		  AND NOT c.relispartition
		ORDER BY c.relname`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []schema.Table
	for rows.Next() {
		t := schema.Table{Schema: p.schema}
		if err := rows.Scan(&t.Name); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// discoverColumns fetches all columns for all tables in the schema.
func (p *Postgres) discoverColumns(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT
			table_name,
			column_name,
			data_type,
			udt_name,
			is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tableName, colName, dataType, udtName, nullable string
			defaultVal                                      sql.NullString
		)
		if err := rows.Scan(&tableName, &colName, &dataType, &udtName, &nullable, &defaultVal); err != nil {
			return err
		}

		t, ok := tableMap[tableName]
		if !ok {
			continue
		}

		col := schema.Column{
			Name:     colName,
			DataType: dataType,
			UDTName:  udtName,
			Nullable: nullable == "YES",
		}
		if defaultVal.Valid {
			v := defaultVal.String
			col.DefaultValue = &v
		}
		t.Columns = append(t.Columns, col)
	}
	return rows.Err()
}

// discoverPrimaryKeys fetches primary key constraints.
func (p *Postgres) discoverPrimaryKeys(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT
			tc.table_name,
			tc.constraint_name,
			kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		  AND tc.table_schema = kcu.table_schema
		  AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.ordinal_position`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, constraintName, colName string
		if err := rows.Scan(&tableName, &constraintName, &colName); err != nil {
			return err
		}

		t, ok := tableMap[tableName]
		if !ok {
			continue
		}

		if t.PrimaryKey == nil {
			t.PrimaryKey = &schema.PrimaryKey{Name: constraintName}
		}
		t.PrimaryKey.Columns = append(t.PrimaryKey.Columns, colName)
	}
	return rows.Err()
}

// discoverForeignKeys fetches foreign keys from pg_constraint so composite
// keys keep their column pairing.
func (p *Postgres) discoverForeignKeys(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT
			cl.relname AS table_name,
			con.conname AS constraint_name,
			att.attname AS column_name,
			rn.nspname AS referenced_schema,
			rcl.relname AS referenced_table,
			ratt.attname AS referenced_column,
			con.confdeltype::text AS on_delete
		FROM pg_constraint con
		JOIN pg_class cl ON cl.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		JOIN pg_class rcl ON rcl.oid = con.confrelid
		JOIN pg_namespace rn ON rn.oid = rcl.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refnum, ord)
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.attnum
		JOIN pg_attribute ratt ON ratt.attrelid = con.confrelid AND ratt.attnum = k.refnum
		WHERE con.contype = 'f'
		  AND n.nspname = $1
		ORDER BY cl.relname, con.conname, k.ord`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	type fkKey struct{ table, constraint string }
	grouped := make(map[fkKey]*schema.ForeignKey)
	var order []fkKey

	for rows.Next() {
		var tableName, constraintName, column, refSchema, refTable, refColumn, onDelete string
		if err := rows.Scan(&tableName, &constraintName, &column, &refSchema, &refTable, &refColumn, &onDelete); err != nil {
			return err
		}

		k := fkKey{tableName, constraintName}
		fk, exists := grouped[k]
		if !exists {
			fk = &schema.ForeignKey{
				Name:             constraintName,
				ReferencedSchema: refSchema,
				ReferencedTable:  refTable,
				OnDelete:         referentialAction(onDelete),
			}
			grouped[k] = fk
			order = append(order, k)
		}
		fk.Columns = append(fk.Columns, column)
		fk.ReferencedColumns = append(fk.ReferencedColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if t, ok := tableMap[k.table]; ok {
			t.ForeignKeys = append(t.ForeignKeys, *grouped[k])
		}
	}
	return nil
}

// discoverUniqueConstraints fetches UNIQUE constraints with ordered columns.
func (p *Postgres) discoverUniqueConstraints(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT
			cl.relname AS table_name,
			con.conname AS constraint_name,
			att.attname AS column_name
		FROM pg_constraint con
		JOIN pg_class cl ON cl.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.attnum
		WHERE con.contype = 'u'
		  AND n.nspname = $1
		ORDER BY cl.relname, con.conname, k.ord`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	type conKey struct{ table, constraint string }
	grouped := make(map[conKey]*schema.Constraint)
	var order []conKey

	for rows.Next() {
		var tableName, constraintName, colName string
		if err := rows.Scan(&tableName, &constraintName, &colName); err != nil {
			return err
		}
		k := conKey{tableName, constraintName}
		c, exists := grouped[k]
		if !exists {
			c = &schema.Constraint{Name: constraintName, Type: "unique"}
			grouped[k] = c
			order = append(order, k)
		}
		c.Columns = append(c.Columns, colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if t, ok := tableMap[k.table]; ok {
			t.Constraints = append(t.Constraints, *grouped[k])
		}
	}
	return nil
}

// discoverIndexes fetches all non-primary indexes.
func (p *Postgres) discoverIndexes(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT
			t.relname AS table_name,
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			a.attname AS column_name
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		CROSS JOIN LATERAL unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1
		  AND NOT ix.indisprimary
		ORDER BY t.relname, i.relname, k.ord`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	type idxKey struct{ table, index string }
	grouped := make(map[idxKey]*schema.Index)
	var order []idxKey

	for rows.Next() {
		var tableName, indexName, colName string
		var isUnique bool
		if err := rows.Scan(&tableName, &indexName, &isUnique, &colName); err != nil {
			return err
		}

		k := idxKey{tableName, indexName}
		idx, exists := grouped[k]
		if !exists {
			idx = &schema.Index{Name: indexName, Unique: isUnique}
			grouped[k] = idx
			order = append(order, k)
		}
		idx.Columns = append(idx.Columns, colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range order {
		if t, ok := tableMap[k.table]; ok {
			t.Indexes = append(t.Indexes, *grouped[k])
		}
	}
	return nil
}

// discoverCheckConstraints fetches CHECK constraints (excluding NOT NULL which is on the column).
func (p *Postgres) discoverCheckConstraints(ctx context.Context, tableMap map[string]*schema.Table) error {
	query := `
		SELECT
			tc.table_name,
			tc.constraint_name,
			cc.check_clause
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
		  ON tc.constraint_name = cc.constraint_name
		  AND tc.constraint_schema = cc.constraint_schema
		WHERE tc.constraint_type = 'CHECK'
		  AND tc.table_schema = $1
		  AND tc.constraint_name NOT LIKE '%_not_null'
		ORDER BY tc.table_name, tc.constraint_name`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, constraintName, checkClause string
		if err := rows.Scan(&tableName, &constraintName, &checkClause); err != nil {
			return err
		}

		t, ok := tableMap[tableName]
		if !ok {
			continue
		}

		t.Constraints = append(t.Constraints, schema.Constraint{
			Name:       constraintName,
			Type:       "check",
			Definition: checkClause,
		})
	}
	return rows.Err()
}

// discoverEnums fills the enum maps. Each query may fail on its own; the
// failure is logged and the affected map stays empty.
func (p *Postgres) discoverEnums(ctx context.Context, s *schema.Schema) {
	if err := p.discoverEnumTypes(ctx, s); err != nil {
		p.logger.Warn("could not extract enum types; enum columns will be rendered as text", "error", err)
		s.Enums = map[string][]string{}
	}
	if err := p.discoverEnumColumns(ctx, s); err != nil {
		p.logger.Warn("could not extract enum column usage; enum columns will be rendered as text", "error", err)
		s.EnumColumns = map[string]string{}
	}
	if err := p.discoverEnumDefaults(ctx, s); err != nil {
		p.logger.Warn("could not extract enum column defaults", "error", err)
		s.EnumDefaults = map[string]string{}
	}

	for i := range s.Tables {
		t := &s.Tables[i]
		for j := range t.Columns {
			if _, ok := s.EnumDefault(t.Name, t.Columns[j].Name); ok {
				t.Columns[j].Default = schema.DefaultEnum
			}
		}
	}
}

func (p *Postgres) discoverEnumTypes(ctx context.Context, s *schema.Schema) error {
	query := `
		SELECT
			t.typname AS enum_name,
			e.enumlabel AS enum_value
		FROM pg_type t
		JOIN pg_namespace n ON n.oid = t.typnamespace
		JOIN pg_enum e ON e.enumtypid = t.oid
		WHERE t.typtype = 'e'
		  AND n.nspname = $1
		ORDER BY t.typname, e.enumsortorder`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, label string
		if err := rows.Scan(&name, &label); err != nil {
			return err
		}
		s.Enums[name] = append(s.Enums[name], label)
	}
	return rows.Err()
}

func (p *Postgres) discoverEnumColumns(ctx context.Context, s *schema.Schema) error {
	query := `
		SELECT
			c.table_name,
			c.column_name,
			c.udt_name
		FROM information_schema.columns c
		JOIN pg_type t ON t.typname = c.udt_name
		JOIN pg_namespace n ON n.oid = t.typnamespace AND n.nspname = c.udt_schema
		WHERE t.typtype = 'e'
		  AND c.table_schema = $1
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, enumType string
		if err := rows.Scan(&table, &column, &enumType); err != nil {
			return err
		}
		s.EnumColumns[schema.ColumnKey(table, column)] = enumType
	}
	return rows.Err()
}

func (p *Postgres) discoverEnumDefaults(ctx context.Context, s *schema.Schema) error {
	query := `
		SELECT
			cl.relname AS table_name,
			a.attname AS column_name,
			pg_get_expr(d.adbin, d.adrelid) AS default_expr
		FROM pg_attrdef d
		JOIN pg_attribute a ON a.attrelid = d.adrelid AND a.attnum = d.adnum
		JOIN pg_class cl ON cl.oid = d.adrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		WHERE n.nspname = $1
		  AND pg_get_expr(d.adbin, d.adrelid) IS NOT NULL
		ORDER BY cl.relname, a.attnum`

	rows, err := p.db.QueryContext(ctx, query, p.schema)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, expr string
		if err := rows.Scan(&table, &column, &expr); err != nil {
			return err
		}
		key := schema.ColumnKey(table, column)
		if _, isEnum := s.EnumColumns[key]; !isEnum {
			continue
		}
		if lit, ok := CastLiteral(expr); ok {
			s.EnumDefaults[key] = lit
		}
	}
	return rows.Err()
}

var castLiteralPattern = regexp.MustCompile(`^'((?:[^']|'')*)'::`)

// CastLiteral extracts LIT from a default expression of the form 'LIT'::type.
func CastLiteral(expr string) (string, bool) {
	m := castLiteralPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], "''", "'"), true
}

// annotateColumns copies key information from table-level constraints onto
// the columns themselves.
func annotateColumns(t *schema.Table) {
	pk := make(map[string]bool)
	for _, c := range t.PrimaryKeyColumns() {
		pk[c] = true
	}

	for i := range t.Columns {
		col := &t.Columns[i]
		col.PrimaryKey = pk[col.Name]
		for _, con := range t.Constraints {
			if con.Type == "unique" && len(con.Columns) == 1 && con.Columns[0] == col.Name {
				col.Unique = true
			}
		}
		for _, fk := range t.ForeignKeys {
			if !fk.Composite() && fk.Columns[0] == col.Name {
				col.ForeignKey = &schema.ColumnRef{Table: fk.ReferencedTable, Column: fk.ReferencedColumns[0]}
				break
			}
		}
		if col.DefaultValue != nil && isNowExpr(*col.DefaultValue) {
			col.Default = schema.DefaultNow
		}
	}
}

func isNowExpr(expr string) bool {
	e := strings.ToLower(expr)
	return strings.Contains(e, "now()") || strings.Contains(e, "current_timestamp")
}

func referentialAction(code string) string {
	switch code {
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default: // "a" is NO ACTION, the default
		return ""
	}
}

// compile-time interface check
var _ Discoverer = (*Postgres)(nil)
