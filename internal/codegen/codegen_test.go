package codegen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/clarvo-ai/modelgen/internal/config"
	"github.com/clarvo-ai/modelgen/internal/logging"
	"github.com/clarvo-ai/modelgen/internal/schema"
)

func strPtr(s string) *string { return &s }

func userPostSchema() *schema.Schema {
	return &schema.Schema{
		DatabaseType: "postgresql",
		SchemaName:   "public",
		Tables: []schema.Table{
			{
				Name:   "User",
				Schema: "public",
				Columns: []schema.Column{
					{Name: "id", DataType: "uuid", UDTName: "uuid", PrimaryKey: true},
					{Name: "email", DataType: "text", UDTName: "text"},
				},
				PrimaryKey: &schema.PrimaryKey{Name: "User_pkey", Columns: []string{"id"}},
			},
			{
				Name:   "Post",
				Schema: "public",
				Columns: []schema.Column{
					{Name: "id", DataType: "uuid", UDTName: "uuid", PrimaryKey: true},
					{Name: "authorId", DataType: "uuid", UDTName: "uuid", ForeignKey: &schema.ColumnRef{Table: "User", Column: "id"}},
				},
				PrimaryKey: &schema.PrimaryKey{Name: "Post_pkey", Columns: []string{"id"}},
				ForeignKeys: []schema.ForeignKey{
					{Name: "Post_authorId_fkey", Columns: []string{"authorId"}, ReferencedSchema: "public", ReferencedTable: "User", ReferencedColumns: []string{"id"}},
				},
			},
		},
	}
}

func generate(t *testing.T, s *schema.Schema) (*GenerateResult, string) {
	t.Helper()
	g := &Generator{
		Config: config.Default(),
		Schema: s,
		Logger: logging.Discard(),
	}
	result, err := g.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	typeCheck(t, string(result.Source))
	return result, string(result.Source)
}

func assertMatch(t *testing.T, src, pattern string) {
	t.Helper()
	if !regexp.MustCompile(pattern).MatchString(src) {
		t.Errorf("expected output to match %q\n%s", pattern, src)
	}
}

func assertContains(t *testing.T, src, want string) {
	t.Helper()
	if !strings.Contains(src, want) {
		t.Errorf("expected output to contain %q\n%s", want, src)
	}
}

func TestGenerateUserPost(t *testing.T) {
	result, src := generate(t, userPostSchema())

	if len(result.Order) != 2 || result.Order[0] != "User" || result.Order[1] != "Post" {
		t.Errorf("expected order [User Post], got %v", result.Order)
	}

	assertContains(t, src, "package models")
	assertContains(t, src, `"github.com/google/uuid"`)
	assertMatch(t, src, `(?m)^\tPost\s+\[\]Post\s+`+"`"+`gorm:"foreignKey:AuthorId;references:Id" json:"post,omitempty"`)
	assertMatch(t, src, `(?m)^\tUser\s+\*User\s+`+"`"+`gorm:"foreignKey:AuthorId;references:Id" json:"user,omitempty"`)
	assertContains(t, src, "// back-reference: User.Post")
	assertContains(t, src, `fk:"public.User.id"`)
	assertContains(t, src, `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`)
	assertContains(t, src, `return "public.User"`)
	assertContains(t, src, "m.Email = strings.TrimSpace(m.Email)")
	assertContains(t, src, "var _ Model = (*Post)(nil)")
}

func TestGenerateDeterministic(t *testing.T) {
	_, first := generate(t, userPostSchema())

	s := userPostSchema()
	s.Tables[0], s.Tables[1] = s.Tables[1], s.Tables[0]
	_, second := generate(t, s)

	if first != second {
		t.Errorf("expected identical output regardless of table order\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestGenerateDeclarationOrder(t *testing.T) {
	s := userPostSchema()
	s.Enums = map[string][]string{"Status": {"ACTIVE"}, "Role": {"ADMIN"}}
	_, src := generate(t, s)

	positions := []int{
		strings.Index(src, "type Role string"),
		strings.Index(src, "type Status string"),
		strings.Index(src, "type Model interface"),
		strings.Index(src, "type Post struct"),
		strings.Index(src, "type User struct"),
	}
	for i, p := range positions {
		if p < 0 {
			t.Fatalf("declaration %d missing\n%s", i, src)
		}
		if i > 0 && p < positions[i-1] {
			t.Errorf("declaration %d out of order\n%s", i, src)
		}
	}
}

func TestGenerateMetadataRename(t *testing.T) {
	s := &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{
				Name: "Document",
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", PrimaryKey: true},
					{Name: "metadata", DataType: "jsonb", UDTName: "jsonb"},
				},
			},
		},
	}
	_, src := generate(t, s)

	assertMatch(t, src, `(?m)^\tMetadata1\s+string\s+`)
	assertContains(t, src, `gorm:"column:metadata;type:text;not null" json:"metadata1"`)
}

func TestGenerateEnumDefault(t *testing.T) {
	s := &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{
				Name: "Account",
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", PrimaryKey: true},
					{Name: "status", DataType: "USER-DEFINED", UDTName: "Status", DefaultValue: strPtr(`'ACTIVE'::"Status"`), Default: schema.DefaultEnum},
				},
			},
		},
		Enums:        map[string][]string{"Status": {"ACTIVE", "INACTIVE"}},
		EnumColumns:  map[string]string{"account.status": "Status"},
		EnumDefaults: map[string]string{"account.status": "ACTIVE"},
	}
	_, src := generate(t, s)

	assertMatch(t, src, `StatusACTIVE\s+Status = "ACTIVE"`)
	assertMatch(t, src, `(?m)^\tStatus\s+Status\s+`)
	assertContains(t, src, `gorm:"column:status;type:\"Status\";not null;default:'ACTIVE'"`)
	assertContains(t, src, "func (m *Account) ApplyDefaults() {")
	assertContains(t, src, "m.Status = StatusACTIVE")
}

func TestGenerateEnumDegradesToText(t *testing.T) {
	s := &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{
				Name: "Account",
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", PrimaryKey: true},
					{Name: "status", DataType: "USER-DEFINED", UDTName: "Status"},
				},
			},
		},
	}
	_, src := generate(t, s)

	assertMatch(t, src, `(?m)^\tStatus\s+string\s+`)
	assertContains(t, src, `gorm:"column:status;type:text;not null"`)
	if strings.Contains(src, "ApplyDefaults") {
		t.Error("expected no ApplyDefaults without enum defaults")
	}
}

func TestGenerateTypeTable(t *testing.T) {
	s := &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{
				Name: "Sample",
				Columns: []schema.Column{
					{Name: "id", DataType: "bigint", UDTName: "int8", PrimaryKey: true},
					{Name: "tags", DataType: "ARRAY", UDTName: "_text", Nullable: true},
					{Name: "embedding", DataType: "USER-DEFINED", UDTName: "vector"},
					{Name: "ref", DataType: "uuid", UDTName: "uuid", Nullable: true},
					{Name: "seenAt", DataType: "timestamp with time zone", UDTName: "timestamptz", Nullable: true},
					{Name: "active", DataType: "boolean", UDTName: "bool"},
					{Name: "count", DataType: "integer", UDTName: "int4"},
					{Name: "score", DataType: "double precision", UDTName: "float8"},
					{Name: "location", DataType: "USER-DEFINED", UDTName: "geography", Nullable: true},
				},
			},
		},
	}
	_, src := generate(t, s)

	for _, pattern := range []string{
		`(?m)^\tId\s+int64\s+`,
		`(?m)^\tTags\s+pq\.StringArray\s+`,
		`(?m)^\tEmbedding\s+string\s+`,
		`(?m)^\tRef\s+\*uuid\.UUID\s+`,
		`(?m)^\tSeenAt\s+\*time\.Time\s+`,
		`(?m)^\tActive\s+bool\s+`,
		`(?m)^\tCount\s+int32\s+`,
		`(?m)^\tScore\s+float64\s+`,
		`(?m)^\tLocation\s+\*string\s+`,
	} {
		assertMatch(t, src, pattern)
	}
	assertContains(t, src, `"github.com/lib/pq"`)
	assertContains(t, src, `"time"`)
	assertContains(t, src, `gorm:"column:tags;type:text[]" json:"tags"`)
	assertContains(t, src, `gorm:"column:embedding;type:vector;not null"`)
	assertContains(t, src, "v := strings.TrimSpace(*m.Location)")
}

func TestGenerateTypeOverride(t *testing.T) {
	cfg := config.Default()
	cfg.TypeOverrides = map[string]config.TypeOverride{
		"jsonb": {GoType: "json.RawMessage", StorageType: "jsonb", Import: "encoding/json"},
	}
	s := &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{
				Name: "Event",
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", PrimaryKey: true},
					{Name: "payload", DataType: "jsonb", UDTName: "jsonb"},
				},
			},
		},
	}
	g := &Generator{Config: cfg, Schema: s, Logger: logging.Discard()}
	result, err := g.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	src := string(result.Source)
	typeCheck(t, src)
	assertMatch(t, src, `(?m)^\tPayload\s+json\.RawMessage\s+`)
	assertContains(t, src, `"encoding/json"`)
}

func TestGenerateCompositeForeignKey(t *testing.T) {
	s := &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{
				Name:   "Team",
				Schema: "public",
				Columns: []schema.Column{
					{Name: "orgId", DataType: "integer", PrimaryKey: true},
					{Name: "id", DataType: "integer", PrimaryKey: true},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"orgId", "id"}},
			},
			{
				Name:   "Ticket",
				Schema: "public",
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", PrimaryKey: true},
					{Name: "orgId", DataType: "integer"},
					{Name: "teamId", DataType: "integer"},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
				ForeignKeys: []schema.ForeignKey{
					{Name: "Ticket_team_fkey", Columns: []string{"orgId", "teamId"}, ReferencedTable: "Team", ReferencedColumns: []string{"orgId", "id"}, OnDelete: "CASCADE"},
				},
			},
		},
	}
	result, src := generate(t, s)

	if strings.Contains(src, `fk:"`) {
		t.Errorf("expected no inline references for composite key columns\n%s", src)
	}
	assertContains(t, src, "func (Ticket) ForeignKeyConstraints() []string {")
	assertContains(t, src, `"FOREIGN KEY (orgId, teamId) REFERENCES public.Team (orgId, id) ON DELETE CASCADE",`)
	if n := result.Relationships.Count(); n != 0 {
		t.Errorf("expected no relationships, got %d", n)
	}
}

func TestGenerateSessionKeyOverride(t *testing.T) {
	s := &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{
				Name: "Session",
				Columns: []schema.Column{
					{Name: "sessionToken", DataType: "text"},
					{Name: "expires", DataType: "timestamp without time zone"},
				},
			},
		},
	}
	_, src := generate(t, s)
	assertContains(t, src, `gorm:"column:sessionToken;type:text;primaryKey;unique" json:"sessionToken"`)
}

func TestGenerateTimestampDefaults(t *testing.T) {
	s := &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{
				Name: "Note",
				Columns: []schema.Column{
					{Name: "id", DataType: "integer", PrimaryKey: true},
					{Name: "created_at", DataType: "timestamp without time zone", Default: schema.DefaultNow},
					{Name: "updatedAt", DataType: "timestamp without time zone"},
					{Name: "seenAt", DataType: "timestamp without time zone", Default: schema.DefaultNow},
				},
			},
		},
	}
	_, src := generate(t, s)

	assertContains(t, src, `gorm:"column:created_at;type:timestamp;not null;autoCreateTime"`)
	assertContains(t, src, `gorm:"column:updatedAt;type:timestamp;not null;autoCreateTime;autoUpdateTime"`)
	assertContains(t, src, `gorm:"column:seenAt;type:timestamp;not null;default:now()"`)
}

func TestGenerateJoinTable(t *testing.T) {
	s := &schema.Schema{
		SchemaName: "public",
		Tables: []schema.Table{
			{Name: "Student", Columns: []schema.Column{{Name: "id", DataType: "uuid", PrimaryKey: true}}},
			{Name: "Course", Columns: []schema.Column{{Name: "id", DataType: "uuid", PrimaryKey: true}}},
			{
				Name: "Enrollment",
				Columns: []schema.Column{
					{Name: "studentId", DataType: "uuid", ForeignKey: &schema.ColumnRef{Table: "Student", Column: "id"}},
					{Name: "courseId", DataType: "uuid", ForeignKey: &schema.ColumnRef{Table: "Course", Column: "id"}},
				},
				PrimaryKey: &schema.PrimaryKey{Columns: []string{"studentId", "courseId"}},
				ForeignKeys: []schema.ForeignKey{
					{Columns: []string{"studentId"}, ReferencedTable: "Student", ReferencedColumns: []string{"id"}},
					{Columns: []string{"courseId"}, ReferencedTable: "Course", ReferencedColumns: []string{"id"}},
				},
			},
		},
	}
	result, src := generate(t, s)

	if len(result.JoinTables) != 1 || result.JoinTables[0] != "Enrollment" {
		t.Errorf("expected Enrollment join table, got %v", result.JoinTables)
	}
	if got := result.Relationships.Count(); got != 4 {
		t.Errorf("expected 4 relationships, got %d", got)
	}
	assertMatch(t, src, `(?m)^\tEnrollment\s+\[\]Enrollment\s+`)
	assertMatch(t, src, `(?m)^\tStudent\s+\*Student\s+`)
	assertMatch(t, src, `(?m)^\tCourse\s+\*Course\s+`)
	assertContains(t, src, `fk:"public.Student.id"`)
}

func TestGenerateRelationNameClash(t *testing.T) {
	s := userPostSchema()
	s.Tables[1].Columns = append(s.Tables[1].Columns, schema.Column{Name: "user", DataType: "text"})
	_, src := generate(t, s)

	assertMatch(t, src, `(?m)^\tUser\s+string\s+`)
	assertMatch(t, src, `(?m)^\tUserRef\s+\*User\s+`)
}

func TestGenerateUnknownOrderTable(t *testing.T) {
	b := newBuilder(userPostSchema(), TypeMapFor(nil), nil)
	if _, err := b.build("models", []string{"Ghost"}, nil); err == nil {
		t.Fatal("expected error for unknown table")
	}
}
