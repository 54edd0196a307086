// Package ast defines the statement shapes an external SQL parser is
// assumed to produce. The analyzer consumes these and never lexes SQL
// itself.
package ast

// Expr is a raw, untyped expression node as the parser would hand it to the
// analyzer: a literal, a `$N` parameter placeholder, a bare column
// reference, or a unary/binary application. The analyzer resolves each into
// a StaticTypedTree or DynamicTypedTree (internal/ir).
type Expr struct {
	Kind ExprKind

	// Literal
	LiteralText   string // literal text, e.g. "42", "hi" (string literals without their quotes), "true"
	LiteralIsText bool   // true if single-quoted (a string literal), false for bare numeric/bool tokens

	// Param
	ParamIndex int // 1-indexed $N

	// ColumnRef
	ColumnName string

	// Unary / Binary
	Op    string // operator spelling, e.g. "+", "NOT", "CAST"
	Cast  string // target type spelling, only for Op == "CAST"
	Left  *Expr
	Right *Expr // nil for unary nodes
}

type ExprKind int

const (
	ExprLiteral ExprKind = iota
	ExprParam
	ExprColumnRef
	ExprUnary
	ExprBinary
	ExprStar // "*" in a SELECT projection list

	// Unsupported-feature markers the parser may still produce, so the
	// analyzer can classify them precisely rather than fail generically.
	ExprSubquery
	ExprTableFunction
	ExprQualifiedStar
)

// TableRef names a table reference: at most schema.table.
type TableRef struct {
	Schema string // empty means "resolve under public"
	Table  string
}

// Statement is the sum type the parser hands the analyzer.
type Statement struct {
	Kind StatementKind

	Insert *InsertStmt
	Update *UpdateStmt
	Delete *DeleteStmt
	Select *SelectStmt
	Schema *SchemaChangeStmt
}

type StatementKind int

const (
	StmtInsert StatementKind = iota
	StmtUpdate
	StmtDelete
	StmtSelect
	StmtSchemaChange
)

type InsertStmt struct {
	Table   TableRef
	Columns []string // empty means "all columns, in ordinal order"
	Rows    [][]*Expr
}

type UpdateStmt struct {
	Table TableRef
	Set   []SetClause
}

type SetClause struct {
	Column string
	Value  *Expr
}

type DeleteStmt struct {
	Table TableRef
}

type SelectStmt struct {
	Table TableRef
	// Projections is nil/empty when the query is `SELECT * FROM ...`; any
	// non-ExprStar, non-simple-column-ref entry here is a feature the
	// analyzer's feature gate rejects.
	Projections []*Expr

	// Unsupported constructs the parser may still surface; their mere
	// presence routes the statement to FeatureNotSupported instead of
	// attempting to analyze it.
	HasJoins         bool
	HasSubqueries    bool
	HasSetOperation  bool
	HasFromSubquery  bool
	HasTableFunction bool
	HasAliases       bool
	HasQualifiedStar bool
}

// SchemaChangeKind mirrors catalog.RequestKind at the AST layer, before
// name/type resolution.
type SchemaChangeKind int

const (
	ChangeCreateSchema SchemaChangeKind = iota
	ChangeDropSchemas
	ChangeCreateTable
	ChangeDropTables
	ChangeCreateIndex
)

type ColumnDecl struct {
	Name    string
	RawType string // e.g. "varchar(255)", parsed by internal/sqltype.Parse
}

type SchemaChangeStmt struct {
	Kind SchemaChangeKind

	SchemaNames []string // CreateSchema / DropSchemas

	Table   TableRef     // CreateTable / DropTables / CreateIndex
	Columns []ColumnDecl // CreateTable

	IndexName   string   // CreateIndex
	IndexColumn []string // CreateIndex: column names, resolved to ordinals by the analyzer

	IfExists    bool
	IfNotExists bool
	Cascade     bool
}
