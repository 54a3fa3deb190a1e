package codegen

import (
	"strconv"
	"strings"
	"text/template"
)

// structTag renders a struct tag literal. A catalog name containing a
// backquote cannot sit in a raw string, so that tag is quoted instead.
func structTag(tag string) string {
	if strings.Contains(tag, "`") {
		return strconv.Quote(tag)
	}
	return "`" + tag + "`"
}

var fileTemplate = template.Must(template.New("models").Funcs(template.FuncMap{"tag": structTag}).Parse(`// Code generated by modelgen. DO NOT EDIT.
{{- if .Source }}
// Source schema: {{ .Source }}
{{- end }}

package {{ .Package }}

import (
{{- range .Imports }}
	"{{ . }}"
{{- end }}
)
{{ range .Enums }}
{{ template "enum" . }}
{{ end }}
// Model is implemented by every generated entity.
type Model interface {
	TableName() string
	// Normalize trims surrounding whitespace from string fields. Call it
	// before every insert or update.
	Normalize()
}
{{ range .Entities }}
{{ template "entity" . }}
{{ end }}`))

func init() {
	template.Must(fileTemplate.New("enum").Parse(`// {{ .Name }} is the "{{ .DBName }}" enum type.
type {{ .Name }} string

const (
{{- range .Values }}
	{{ .Const }} {{ $.Name }} = {{ printf "%q" .Label }}
{{- end }}
)`))

	template.Must(fileTemplate.New("entity").Parse(`// {{ .Name }} maps table {{ .Qualified }}.
type {{ .Name }} struct {
{{- range .Fields }}
	{{ .Name }} {{ .Type }} {{ tag .Tag }}
{{- end }}
{{- if .Relations }}
{{ range .Relations }}
	// {{ .Comment }}
	{{ .Name }} {{ .Type }} {{ tag .Tag }}
{{- end }}
{{- end }}
}

var _ Model = (*{{ .Name }})(nil)

// TableName returns the schema-qualified table name.
func ({{ .Name }}) TableName() string {
	return {{ printf "%q" .Qualified }}
}

// Normalize trims surrounding whitespace from string fields.
func (m *{{ .Name }}) Normalize() {
{{- range .Fields }}{{ if .Trim }}
{{- if .Pointer }}
	if m.{{ .Name }} != nil {
		v := strings.TrimSpace(*m.{{ .Name }})
		m.{{ .Name }} = &v
	}
{{- else }}
	m.{{ .Name }} = strings.TrimSpace(m.{{ .Name }})
{{- end }}
{{- end }}{{ end }}
}
{{- if .Defaults }}

// ApplyDefaults sets enum defaults declared by the database on zero fields.
func (m *{{ .Name }}) ApplyDefaults() {
{{- range .Defaults }}
{{- if .Pointer }}
	if m.{{ .Field }} == nil {
		v := {{ .Const }}
		m.{{ .Field }} = &v
	}
{{- else }}
	if m.{{ .Field }} == "" {
		m.{{ .Field }} = {{ .Const }}
	}
{{- end }}
{{- end }}
}
{{- end }}
{{- if .Constraints }}

// ForeignKeyConstraints returns the multi-column foreign keys of the table.
func ({{ .Name }}) ForeignKeyConstraints() []string {
	return []string{
{{- range .Constraints }}
		{{ printf "%q" . }},
{{- end }}
	}
}
{{- end }}`))
}
