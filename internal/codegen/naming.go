package codegen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// reservedColumn is renamed in generated structs so it cannot shadow the
// metadata accessors ORM layers attach to models.
const (
	reservedColumn = "metadata"
	reservedField  = "Metadata1"
	reservedJSON   = "metadata1"
)

// baseInterface is the interface every entity implements. No entity or enum
// may take its name.
const baseInterface = "Model"

// entityMethods are declared on every entity, whether or not the template
// emits them for a given table, so a field never takes their names.
var entityMethods = []string{"TableName", "Normalize", "ApplyDefaults", "ForeignKeyConstraints"}

// nameSet hands out unique Go identifiers within one scope.
type nameSet map[string]bool

func newNameSet(reserved ...string) nameSet {
	s := make(nameSet, len(reserved))
	for _, name := range reserved {
		s[name] = true
	}
	return s
}

// claim returns name, or name with the smallest numeric suffix still free,
// and marks the result as taken.
func (s nameSet) claim(name string) string {
	out := name
	for n := 1; s[out]; n++ {
		out = fmt.Sprintf("%s%d", name, n)
	}
	s[out] = true
	return out
}

// GoName converts a catalog identifier into an exported Go identifier.
func GoName(name string) string {
	s := inflect.Camelize(sanitize(name))
	if s == "" {
		return "X"
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	s = string(r)
	if !unicode.IsLetter(r[0]) {
		s = "X" + s
	}
	return s
}

// EnumConstName joins an enum's Go type name and one of its labels into a
// constant name, keeping the label's case: Status + ACTIVE gives StatusACTIVE.
func EnumConstName(typeName, label string) string {
	return typeName + strings.Trim(sanitize(label), "_")
}

// columnField returns the Go field name for a column.
func columnField(column string) string {
	if column == reservedColumn {
		return reservedField
	}
	return GoName(column)
}

// columnJSON returns the JSON attribute name for a column.
func columnJSON(column string) string {
	if column == reservedColumn {
		return reservedJSON
	}
	return column
}

// sanitize replaces every rune that cannot appear in a Go identifier with
// an underscore.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return '_'
	}, s)
}
