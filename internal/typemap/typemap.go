package typemap

import (
	"sort"
	"strings"

	"github.com/clarvo-ai/modelgen/internal/schema"
)

// Mapping pairs the Go type of a generated field with the storage type
// recorded in its GORM tag.
type Mapping struct {
	GoType      string `yaml:"go_type"`
	StorageType string `yaml:"storage_type"`
	Import      string `yaml:"import,omitempty"`
	// Slice types are never wrapped in a pointer when nullable.
	Slice bool `yaml:"slice,omitempty"`
}

// Keys of the built-in table. Catalog types are normalized onto these.
const (
	Array           = "array"
	Vector          = "vector"
	UUID            = "uuid"
	Timestamp       = "timestamp"
	Boolean         = "boolean"
	Integer         = "integer"
	BigInt          = "bigint"
	DoublePrecision = "double precision"
	Text            = "text"
)

// Fallback is used for every catalog type the table does not recognize.
var Fallback = Mapping{GoType: "string", StorageType: "text"}

// TypeMap holds the mapping from catalog types to generated types.
type TypeMap struct {
	Mappings  map[string]Mapping
	Overrides map[string]Mapping
}

// DefaultPostgres returns the default type table for PostgreSQL.
func DefaultPostgres() *TypeMap {
	m := map[string]Mapping{
		Array:           {GoType: "pq.StringArray", StorageType: "text[]", Import: "github.com/lib/pq", Slice: true},
		Vector:          {GoType: "string", StorageType: "vector"},
		UUID:            {GoType: "uuid.UUID", StorageType: "uuid", Import: "github.com/google/uuid"},
		Timestamp:       {GoType: "time.Time", StorageType: "timestamp", Import: "time"},
		Boolean:         {GoType: "bool", StorageType: "boolean"},
		Integer:         {GoType: "int32", StorageType: "integer"},
		BigInt:          {GoType: "int64", StorageType: "bigint"},
		DoublePrecision: {GoType: "float64", StorageType: "double precision"},
		Text:            Fallback,
	}
	return &TypeMap{Mappings: m, Overrides: map[string]Mapping{}}
}

// Override replaces the mapping for a catalog type name. The name is matched
// against both the column's data type and its underlying type name.
func (tm *TypeMap) Override(catalogType string, m Mapping) {
	if tm.Overrides == nil {
		tm.Overrides = make(map[string]Mapping)
	}
	tm.Overrides[strings.ToLower(catalogType)] = m
}

// IsOverridden returns true if the catalog type has an override.
func (tm *TypeMap) IsOverridden(catalogType string) bool {
	_, ok := tm.Overrides[strings.ToLower(catalogType)]
	return ok
}

// Lookup returns the mapping for a type name from the table, preferring an
// override.
func (tm *TypeMap) Lookup(catalogType string) Mapping {
	key := strings.ToLower(catalogType)
	if m, ok := tm.Overrides[key]; ok {
		return m
	}
	if m, ok := tm.Mappings[key]; ok {
		return m
	}
	return Fallback
}

// Resolve returns the mapping for a column. Unrecognized types fall back to
// text.
func (tm *TypeMap) Resolve(col schema.Column) Mapping {
	for _, name := range []string{col.DataType, col.UDTName} {
		if m, ok := tm.Overrides[strings.ToLower(name)]; ok && name != "" {
			return m
		}
	}
	if m, ok := tm.Mappings[Normalize(col)]; ok {
		return m
	}
	return Fallback
}

// Normalize reduces a column's catalog type to a key of the built-in table,
// or returns the lower-cased data type when no family matches.
func Normalize(col schema.Column) string {
	dataType := strings.ToLower(col.DataType)
	udt := strings.ToLower(col.UDTName)

	switch {
	case dataType == "array" || strings.HasPrefix(udt, "_") || strings.HasSuffix(dataType, "[]"):
		return Array
	case udt == "vector" || dataType == "vector":
		return Vector
	case dataType == "uuid" || udt == "uuid":
		return UUID
	case strings.HasPrefix(dataType, "timestamp") || udt == "timestamp" || udt == "timestamptz":
		return Timestamp
	case dataType == "boolean" || udt == "bool":
		return Boolean
	case dataType == "integer" || udt == "int4":
		return Integer
	case dataType == "bigint" || udt == "int8":
		return BigInt
	case dataType == "double precision" || udt == "float8":
		return DoublePrecision
	}
	return dataType
}

// SortedTypes returns the built-in and overridden type names sorted
// alphabetically.
func (tm *TypeMap) SortedTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for k := range tm.Mappings {
		seen[k] = true
		types = append(types, k)
	}
	for k := range tm.Overrides {
		if !seen[k] {
			types = append(types, k)
		}
	}
	sort.Strings(types)
	return types
}
