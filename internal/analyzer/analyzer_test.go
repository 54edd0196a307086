package analyzer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlengine/internal/analyzer"
	"sqlengine/internal/ast"
	"sqlengine/internal/catalog"
	"sqlengine/internal/kvstore"
	"sqlengine/internal/sqltype"
)

func newTestAnalyzer(t *testing.T) (*analyzer.Analyzer, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Open(kvstore.NewInMemory(), "testdb")
	require.NoError(t, err)
	require.NoError(t, cat.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"s"}}))
	require.NoError(t, cat.Apply(catalog.Request{
		Kind:   catalog.CreateTable,
		Schema: "s",
		Table:  "t",
		Columns: []catalog.ColumnSpec{
			{Name: "c", Type: sqltype.SmallInt()},
		},
	}))
	return analyzer.New(cat), cat
}

func literal(text string) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprLiteral, LiteralText: text}
}

func TestAnalyzeInsertResolvesTargetFamily(t *testing.T) {
	a, _ := newTestAnalyzer(t)

	stmt := ast.Statement{
		Kind: ast.StmtInsert,
		Insert: &ast.InsertStmt{
			Table: ast.TableRef{Schema: "s", Table: "t"},
			Rows:  [][]*ast.Expr{{literal("123")}, {literal("456")}},
		},
	}

	res, err := a.Analyze(stmt)
	require.NoError(t, err)
	require.Equal(t, analyzer.ResultInsert, res.Kind)
	assert.Equal(t, "s", res.Insert.Schema)
	assert.Equal(t, "t", res.Insert.Table)
	assert.Len(t, res.Insert.Rows, 2)

	v, err := res.Insert.Rows[0][0].Eval(nil)
	require.NoError(t, err)
	assert.Equal(t, sqltype.FamilySmallInt, v.Family)
}

func TestAnalyzeInsertUnknownTableErrors(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	stmt := ast.Statement{
		Kind: ast.StmtInsert,
		Insert: &ast.InsertStmt{
			Table: ast.TableRef{Schema: "s", Table: "missing"},
			Rows:  [][]*ast.Expr{{literal("1")}},
		},
	}
	_, err := a.Analyze(stmt)
	var notExist *catalog.TableDoesNotExistError
	assert.True(t, errors.As(err, &notExist))
}

func TestAnalyzeInsertArityMismatch(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	stmt := ast.Statement{
		Kind: ast.StmtInsert,
		Insert: &ast.InsertStmt{
			Table: ast.TableRef{Schema: "s", Table: "t"},
			Rows:  [][]*ast.Expr{{literal("1"), literal("2")}},
		},
	}
	_, err := a.Analyze(stmt)
	var arity *analyzer.InsertArityMismatchError
	assert.True(t, errors.As(err, &arity))
}

func TestAnalyzeSelectStarExpandsOrdinalOrder(t *testing.T) {
	a, cat := newTestAnalyzer(t)
	require.NoError(t, cat.Apply(catalog.Request{
		Kind:   catalog.CreateTable,
		Schema: "s",
		Table:  "u",
		Columns: []catalog.ColumnSpec{
			{Name: "a", Type: sqltype.Integer()},
			{Name: "b", Type: sqltype.VarChar(10)},
		},
	}))

	stmt := ast.Statement{
		Kind:   ast.StmtSelect,
		Select: &ast.SelectStmt{Table: ast.TableRef{Schema: "s", Table: "u"}},
	}
	res, err := a.Analyze(stmt)
	require.NoError(t, err)
	require.Len(t, res.Select.Columns, 2)
	assert.Equal(t, "a", res.Select.Columns[0].Name)
	assert.Equal(t, "b", res.Select.Columns[1].Name)
}

func TestAnalyzeSelectWithJoinsIsFeatureNotSupported(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	stmt := ast.Statement{
		Kind:   ast.StmtSelect,
		Select: &ast.SelectStmt{Table: ast.TableRef{Schema: "s", Table: "t"}, HasJoins: true},
	}
	_, err := a.Analyze(stmt)
	var gated *analyzer.FeatureNotSupportedError
	require.True(t, errors.As(err, &gated))
	assert.Equal(t, analyzer.FeatureJoins, gated.Reason)
}

func TestAnalyzeUpdateResolvesColumnAndParam(t *testing.T) {
	a, cat := newTestAnalyzer(t)
	require.NoError(t, cat.Apply(catalog.Request{
		Kind:   catalog.CreateTable,
		Schema: "s",
		Table:  "v",
		Columns: []catalog.ColumnSpec{
			{Name: "x", Type: sqltype.Integer()},
		},
	}))

	stmt := ast.Statement{
		Kind: ast.StmtUpdate,
		Update: &ast.UpdateStmt{
			Table: ast.TableRef{Schema: "s", Table: "v"},
			Set: []ast.SetClause{
				{Column: "x", Value: &ast.Expr{Kind: ast.ExprParam, ParamIndex: 1}},
			},
		},
	}
	res, err := a.Analyze(stmt)
	require.NoError(t, err)
	require.Len(t, res.ParamFamilies, 1)
	assert.Equal(t, sqltype.FamilyInteger, res.ParamFamilies[0])
}

func TestAnalyzeCreateTableUnsupportedTypeErrors(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	stmt := ast.Statement{
		Kind: ast.StmtSchemaChange,
		Schema: &ast.SchemaChangeStmt{
			Kind:    ast.ChangeCreateTable,
			Table:   ast.TableRef{Schema: "s", Table: "w"},
			Columns: []ast.ColumnDecl{{Name: "j", RawType: "json"}},
		},
	}
	_, err := a.Analyze(stmt)
	var typeNotSupported *analyzer.TypeNotSupportedError
	assert.True(t, errors.As(err, &typeNotSupported))
}

func TestAnalyzeDropSchemaRoutesToCatalogRequest(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	stmt := ast.Statement{
		Kind: ast.StmtSchemaChange,
		Schema: &ast.SchemaChangeStmt{
			Kind:        ast.ChangeDropSchemas,
			SchemaNames: []string{"s"},
			Cascade:     true,
		},
	}
	res, err := a.Analyze(stmt)
	require.NoError(t, err)
	assert.Equal(t, analyzer.ResultDataDefinition, res.Kind)
	assert.Equal(t, catalog.DropSchemas, res.SchemaChange.Kind)
	assert.True(t, res.SchemaChange.Cascade)
}
