package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/clarvo-ai/modelgen/internal/config"
	"github.com/clarvo-ai/modelgen/internal/mapping"
	"github.com/clarvo-ai/modelgen/internal/schema"
	"github.com/clarvo-ai/modelgen/internal/typemap"
)

// File is the structured description of one generated models file.
type File struct {
	Package  string
	Source   string
	Imports  []string
	Enums    []Enum
	Entities []Entity
}

// Enum is a catalog enum type rendered as a string type with one constant
// per label.
type Enum struct {
	Name   string
	DBName string
	Values []EnumValue
}

// EnumValue is one enum label.
type EnumValue struct {
	Const string
	Label string
}

// Entity is one table rendered as a model struct.
type Entity struct {
	Name      string
	Table     string
	Qualified string
	Fields    []Field
	Relations []Relation
	Defaults  []Default
	// Constraints holds the multi-column foreign keys, which have no
	// relationship field of their own.
	Constraints []string
}

// Field is a struct field backed by a column.
type Field struct {
	Name   string
	Column string
	Type   string
	Tag    string
	// Trim marks string fields that Normalize trims.
	Trim    bool
	Pointer bool
}

// Relation is a struct field navigating a relationship.
type Relation struct {
	Name    string
	Type    string
	Tag     string
	Comment string
}

// Default assigns an enum default in ApplyDefaults.
type Default struct {
	Field   string
	Const   string
	Literal string
	Pointer bool
}

// HasTrim reports whether Normalize has any field to trim.
func (e Entity) HasTrim() bool {
	for _, f := range e.Fields {
		if f.Trim {
			return true
		}
	}
	return false
}

// builder turns the reflected schema into a File. Go identifiers are
// resolved for the whole file before any entity is built, so a name that
// collides with a generated declaration gets a numeric suffix and every
// cross reference uses the suffixed name.
type builder struct {
	schema  *schema.Schema
	types   *typemap.TypeMap
	keys    []config.KeyOverride
	imports map[string]bool

	typeNames map[string]string
	enums     map[string]Enum
	// fields and relations map table -> catalog name -> Go field name.
	fields    map[string]map[string]string
	relations map[string]map[string]string
}

func newBuilder(s *schema.Schema, tm *typemap.TypeMap, keys []config.KeyOverride) *builder {
	return &builder{
		schema:    s,
		types:     tm,
		keys:      keys,
		imports:   make(map[string]bool),
		typeNames: make(map[string]string),
		enums:     make(map[string]Enum),
		fields:    make(map[string]map[string]string),
		relations: make(map[string]map[string]string),
	}
}

func (b *builder) build(pkg string, order []string, rels mapping.Relationships) (*File, error) {
	f := &File{Package: pkg, Source: b.schema.SchemaName}

	b.resolveNames(rels)
	for _, name := range sortedEnumNames(b.schema.Enums) {
		f.Enums = append(f.Enums, b.enums[name])
	}

	for _, name := range order {
		t, ok := b.schema.Table(name)
		if !ok {
			return nil, fmt.Errorf("table %q in dependency order is not in the schema", name)
		}
		e := b.buildEntity(t, rels[name])
		if e.HasTrim() {
			b.imports["strings"] = true
		}
		f.Entities = append(f.Entities, e)
	}

	for imp := range b.imports {
		f.Imports = append(f.Imports, imp)
	}
	sort.Strings(f.Imports)
	return f, nil
}

// resolveNames assigns file-level names (entities by table name, then enum
// types and their constants) and per-entity field names (columns in ordinal
// order, then relationships).
func (b *builder) resolveNames(rels mapping.Relationships) {
	file := newNameSet(baseInterface)

	tables := make([]string, 0, len(b.schema.Tables))
	for _, t := range b.schema.Tables {
		tables = append(tables, t.Name)
	}
	sort.Strings(tables)
	for _, name := range tables {
		b.typeNames[name] = file.claim(GoName(name))
	}

	for _, name := range sortedEnumNames(b.schema.Enums) {
		b.enums[name] = buildEnum(file, name, b.schema.Enums[name])
	}

	for _, t := range b.schema.Tables {
		scope := newNameSet(entityMethods...)
		cols := make(map[string]string, len(t.Columns))
		for _, col := range t.Columns {
			cols[col.Name] = scope.claim(columnField(col.Name))
		}
		b.fields[t.Name] = cols

		names := make(map[string]string)
		for _, rel := range mapping.Dedupe(rels[t.Name]) {
			name := GoName(rel.Name)
			if scope[name] {
				name += "Ref"
			}
			names[rel.Name] = scope.claim(name)
		}
		b.relations[t.Name] = names
	}
}

func sortedEnumNames(enums map[string][]string) []string {
	names := make([]string, 0, len(enums))
	for name := range enums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func buildEnum(file nameSet, name string, labels []string) Enum {
	e := Enum{Name: file.claim(GoName(name)), DBName: name}
	for _, label := range labels {
		c := file.claim(EnumConstName(e.Name, label))
		e.Values = append(e.Values, EnumValue{Const: c, Label: label})
	}
	return e
}

// enumConst returns the constant declared for label, or a conversion of the
// literal when the label is not one of the enum's values.
func (e Enum) enumConst(label string) string {
	for _, v := range e.Values {
		if v.Label == label {
			return v.Const
		}
	}
	return fmt.Sprintf("%s(%q)", e.Name, label)
}

func (b *builder) typeName(table string) string {
	if name, ok := b.typeNames[table]; ok {
		return name
	}
	return GoName(table)
}

func (b *builder) fieldName(table, column string) string {
	if name, ok := b.fields[table][column]; ok {
		return name
	}
	return columnField(column)
}

func (b *builder) relationName(table, rel string) string {
	if name, ok := b.relations[table][rel]; ok {
		return name
	}
	return GoName(rel)
}

func (b *builder) qualify(tableSchema, table string) string {
	if tableSchema == "" {
		tableSchema = b.schema.SchemaName
	}
	if tableSchema == "" {
		return table
	}
	return tableSchema + "." + table
}

func (b *builder) buildEntity(t *schema.Table, rels []mapping.Relationship) Entity {
	e := Entity{
		Name:      b.typeName(t.Name),
		Table:     t.Name,
		Qualified: b.qualify(t.Schema, t.Name),
	}

	composite := t.CompositeForeignKeyColumns()
	pkCols := make(map[string]bool)
	for _, c := range t.PrimaryKeyColumns() {
		pkCols[c] = true
	}

	for _, col := range t.Columns {
		if pkCols[col.Name] {
			col.PrimaryKey = true
		}
		b.applyKeyOverride(t.Name, &col)
		field, def := b.buildField(t, col, composite[col.Name])
		e.Fields = append(e.Fields, field)
		if def != nil {
			e.Defaults = append(e.Defaults, *def)
		}
	}

	for _, rel := range mapping.Dedupe(rels) {
		e.Relations = append(e.Relations, b.buildRelation(rel))
	}

	for _, fk := range t.ForeignKeys {
		if !fk.Composite() {
			continue
		}
		e.Constraints = append(e.Constraints, b.constraintClause(t, fk))
	}

	return e
}

func (b *builder) applyKeyOverride(table string, col *schema.Column) {
	for _, o := range b.keys {
		if !strings.EqualFold(o.Table, table) || !strings.EqualFold(o.Column, col.Name) {
			continue
		}
		if o.PrimaryKey {
			col.PrimaryKey = true
		}
		if o.Unique {
			col.Unique = true
		}
	}
}

// buildField applies the column rules in priority order: the reserved
// metadata rename, enum types, then the type table.
func (b *builder) buildField(t *schema.Table, col schema.Column, inComposite bool) (Field, *Default) {
	f := Field{Name: b.fieldName(t.Name, col.Name), Column: col.Name}
	var def *Default

	var goType, storage string
	slice := false
	// An enum column whose labels were not extracted falls back to the type
	// table; there is no Go type to point it at.
	enumName, isEnum := b.schema.EnumFor(t.Name, col.Name)
	enum, declared := b.enums[enumName]
	switch {
	case col.Name == reservedColumn:
		goType, storage = typemap.Fallback.GoType, typemap.Fallback.StorageType
	case isEnum && declared:
		goType = enum.Name
		storage = fmt.Sprintf(`\"%s\"`, enumName)
		if lit, ok := b.schema.EnumDefault(t.Name, col.Name); ok {
			def = &Default{Field: f.Name, Const: enum.enumConst(lit), Literal: lit}
		}
	default:
		m := b.types.Resolve(col)
		goType, storage, slice = m.GoType, m.StorageType, m.Slice
		if m.Import != "" {
			b.imports[m.Import] = true
		}
	}

	f.Trim = goType == "string"
	if col.Nullable && !slice {
		goType = "*" + goType
		f.Pointer = true
	}
	f.Type = goType
	if def != nil {
		def.Pointer = f.Pointer
	}

	gorm := []string{"column:" + col.Name, "type:" + storage}
	if col.PrimaryKey {
		gorm = append(gorm, "primaryKey")
	}
	if col.Unique {
		gorm = append(gorm, "unique")
	}
	if !col.Nullable && !col.PrimaryKey {
		gorm = append(gorm, "not null")
	}
	gorm = append(gorm, defaultTags(col, storage, def)...)

	tags := []string{fmt.Sprintf(`gorm:"%s"`, strings.Join(gorm, ";"))}
	if col.ForeignKey != nil && !inComposite {
		tags = append(tags, fmt.Sprintf(`fk:"%s"`, b.inlineReference(t, col)))
	}
	tags = append(tags, fmt.Sprintf(`json:"%s"`, columnJSON(col.Name)))
	f.Tag = strings.Join(tags, " ")

	return f, def
}

func defaultTags(col schema.Column, storage string, def *Default) []string {
	switch col.Name {
	case "created_at", "createdAt":
		return []string{"autoCreateTime"}
	case "updated_at", "updatedAt":
		return []string{"autoCreateTime", "autoUpdateTime"}
	}
	if col.PrimaryKey && storage == typemap.UUID {
		return []string{"default:gen_random_uuid()"}
	}
	if col.Default == schema.DefaultNow {
		return []string{"default:now()"}
	}
	if def != nil {
		return []string{"default:'" + def.Literal + "'"}
	}
	return nil
}

// inlineReference returns "schema.table.column" for a single-column key.
func (b *builder) inlineReference(t *schema.Table, col schema.Column) string {
	refSchema := ""
	for _, fk := range t.ForeignKeys {
		if len(fk.Columns) == 1 && fk.Columns[0] == col.Name {
			refSchema = fk.ReferencedSchema
			break
		}
	}
	if refSchema == "" {
		refSchema = t.Schema
	}
	return b.qualify(refSchema, col.ForeignKey.Table) + "." + col.ForeignKey.Column
}

func (b *builder) constraintClause(t *schema.Table, fk schema.ForeignKey) string {
	refSchema := fk.ReferencedSchema
	if refSchema == "" {
		refSchema = t.Schema
	}
	clause := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
		strings.Join(fk.Columns, ", "),
		b.qualify(refSchema, fk.ReferencedTable),
		strings.Join(fk.ReferencedColumns, ", "))
	if fk.OnDelete != "" {
		clause += " ON DELETE " + fk.OnDelete
	}
	return clause
}

// buildRelation renders a relationship field. GORM reads foreignKey from the
// struct holding the key column: this one when it owns the key, otherwise
// the target.
func (b *builder) buildRelation(rel mapping.Relationship) Relation {
	keyTable, refTable := rel.Target, rel.Source
	if rel.OwnsKey {
		keyTable, refTable = rel.Source, rel.Target
	}

	target := b.typeName(rel.Target)
	typ := "*" + target
	if rel.Cardinality == mapping.Many {
		typ = "[]" + target
	}
	return Relation{
		Name: b.relationName(rel.Source, rel.Name),
		Type: typ,
		Tag: fmt.Sprintf(`gorm:"foreignKey:%s;references:%s" json:"%s,omitempty"`,
			b.fieldName(keyTable, rel.ForeignKey), b.fieldName(refTable, rel.References), rel.Name),
		Comment: fmt.Sprintf("back-reference: %s.%s", target, b.relationName(rel.Target, rel.BackRef)),
	}
}
