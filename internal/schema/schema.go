package schema

import "strings"

// Schema is a read-only snapshot of one catalog namespace at generation time.
type Schema struct {
	DatabaseType string  `yaml:"database_type"`
	Database     string  `yaml:"database,omitempty"`
	SchemaName   string  `yaml:"schema_name"`
	Tables       []Table `yaml:"tables"`

	// Enums maps an enum type name to its labels in declaration order.
	Enums map[string][]string `yaml:"enums,omitempty"`
	// EnumColumns maps "table.column" (lower-cased) to the enum type it uses.
	EnumColumns map[string]string `yaml:"enum_columns,omitempty"`
	// EnumDefaults maps "table.column" (lower-cased) to the literal of a
	// default expression of the form 'LITERAL'::type.
	EnumDefaults map[string]string `yaml:"enum_defaults,omitempty"`
}

// Table represents a database table.
type Table struct {
	Name        string       `yaml:"name"`
	Schema      string       `yaml:"schema,omitempty"`
	Columns     []Column     `yaml:"columns"`
	PrimaryKey  *PrimaryKey  `yaml:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty"`
	Indexes     []Index      `yaml:"indexes,omitempty"`
	Constraints []Constraint `yaml:"constraints,omitempty"`
}

// DefaultOrigin classifies where a column default comes from.
type DefaultOrigin string

const (
	DefaultNone DefaultOrigin = ""
	DefaultNow  DefaultOrigin = "now"
	DefaultEnum DefaultOrigin = "enum"
)

// Column represents a table column.
type Column struct {
	Name         string        `yaml:"name"`
	DataType     string        `yaml:"data_type"`
	UDTName      string        `yaml:"udt_name,omitempty"`
	Nullable     bool          `yaml:"nullable"`
	PrimaryKey   bool          `yaml:"primary_key,omitempty"`
	Unique       bool          `yaml:"unique,omitempty"`
	ForeignKey   *ColumnRef    `yaml:"foreign_key,omitempty"`
	DefaultValue *string       `yaml:"default_value,omitempty"`
	Default      DefaultOrigin `yaml:"default_origin,omitempty"`
}

// ColumnRef points at a column of another table.
type ColumnRef struct {
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
}

// PrimaryKey represents a table's primary key.
type PrimaryKey struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
}

// ForeignKey represents a foreign key constraint. Composite keys list more
// than one column.
type ForeignKey struct {
	Name              string   `yaml:"name"`
	Columns           []string `yaml:"columns"`
	ReferencedSchema  string   `yaml:"referenced_schema,omitempty"`
	ReferencedTable   string   `yaml:"referenced_table"`
	ReferencedColumns []string `yaml:"referenced_columns"`
	OnDelete          string   `yaml:"on_delete,omitempty"`
}

// Composite reports whether the key spans more than one column.
func (fk ForeignKey) Composite() bool {
	return len(fk.Columns) > 1
}

// Index represents a database index.
type Index struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

// Constraint represents a unique or check constraint.
type Constraint struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"` // unique, check
	Columns    []string `yaml:"columns,omitempty"`
	Definition string   `yaml:"definition,omitempty"`
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (*Table, bool) {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i], true
		}
	}
	return nil, false
}

// EnumFor returns the enum type used by table.column, if it is a known enum.
func (s *Schema) EnumFor(table, column string) (string, bool) {
	name, ok := s.EnumColumns[ColumnKey(table, column)]
	if !ok {
		return "", false
	}
	if _, known := s.Enums[name]; !known {
		return "", false
	}
	return name, true
}

// EnumDefault returns the extracted default literal for table.column.
func (s *Schema) EnumDefault(table, column string) (string, bool) {
	v, ok := s.EnumDefaults[ColumnKey(table, column)]
	return v, ok && v != ""
}

// ColumnKey builds the lower-cased "table.column" key used by the enum maps.
func ColumnKey(table, column string) string {
	return strings.ToLower(table) + "." + strings.ToLower(column)
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// ForeignKeyColumns returns the names of columns covered by any foreign key,
// in column order.
func (t *Table) ForeignKeyColumns() []string {
	covered := make(map[string]bool)
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.Columns {
			covered[c] = true
		}
	}
	var cols []string
	for _, c := range t.Columns {
		if covered[c.Name] {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// PrimaryKeyColumns returns the primary key column names.
func (t *Table) PrimaryKeyColumns() []string {
	if t.PrimaryKey != nil && len(t.PrimaryKey.Columns) > 0 {
		return t.PrimaryKey.Columns
	}
	var cols []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// CompositeForeignKeyColumns returns the set of columns that take part in a
// multi-column foreign key.
func (t *Table) CompositeForeignKeyColumns() map[string]bool {
	cols := make(map[string]bool)
	for _, fk := range t.ForeignKeys {
		if !fk.Composite() {
			continue
		}
		for _, c := range fk.Columns {
			cols[c] = true
		}
	}
	return cols
}

// IsUniqueColumn reports whether column carries a single-column uniqueness
// guarantee: the column flag, a one-column unique constraint, or a one-column
// unique index.
func (t *Table) IsUniqueColumn(column string) bool {
	if c, ok := t.Column(column); ok && c.Unique {
		return true
	}
	for _, con := range t.Constraints {
		if con.Type == "unique" && len(con.Columns) == 1 && con.Columns[0] == column {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && len(idx.Columns) == 1 && idx.Columns[0] == column {
			return true
		}
	}
	return false
}
