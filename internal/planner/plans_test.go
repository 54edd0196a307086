package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlengine/internal/analyzer"
	"sqlengine/internal/ast"
	"sqlengine/internal/catalog"
	"sqlengine/internal/constraints"
	"sqlengine/internal/kvstore"
	"sqlengine/internal/planner"
	"sqlengine/internal/sqltype"
)

func setupTable(t *testing.T, cols ...catalog.ColumnSpec) (*catalog.Catalog, catalog.TableDef) {
	t.Helper()
	cat, err := catalog.Open(kvstore.NewInMemory(), "testdb")
	require.NoError(t, err)
	require.NoError(t, cat.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"s"}}))
	require.NoError(t, cat.Apply(catalog.Request{Kind: catalog.CreateTable, Schema: "s", Table: "t", Columns: cols}))
	def, ok, err := cat.Table("s", "t")
	require.NoError(t, err)
	require.True(t, ok)
	return cat, def
}

func literal(text string) *ast.Expr { return &ast.Expr{Kind: ast.ExprLiteral, LiteralText: text} }

func TestInsertThenSelectRoundtrip(t *testing.T) {
	cat, def := setupTable(t, catalog.ColumnSpec{Name: "c", Type: sqltype.SmallInt()})
	a := analyzer.New(cat)

	insertStmt := ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{
		Table: ast.TableRef{Schema: "s", Table: "t"},
		Rows:  [][]*ast.Expr{{literal("123")}, {literal("456")}},
	}}
	res, err := a.Analyze(insertStmt)
	require.NoError(t, err)
	n, err := planner.RunInsert(cat.Backing(), res.Insert, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	selectStmt := ast.Statement{Kind: ast.StmtSelect, Select: &ast.SelectStmt{Table: ast.TableRef{Schema: "s", Table: "t"}}}
	sres, err := a.Analyze(selectStmt)
	require.NoError(t, err)
	out, err := planner.RunSelect(cat.Backing(), def, sres.Select)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, int64(123), out.Rows[0][0].Num.IntPart())
	assert.Equal(t, int64(456), out.Rows[1][0].Num.IntPart())
}

func TestInsertRangeViolation(t *testing.T) {
	cat, _ := setupTable(t, catalog.ColumnSpec{Name: "c", Type: sqltype.SmallInt()})
	a := analyzer.New(cat)
	stmt := ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{
		Table: ast.TableRef{Schema: "s", Table: "t"},
		Rows:  [][]*ast.Expr{{literal("40000")}},
	}}
	res, err := a.Analyze(stmt)
	require.NoError(t, err)
	_, err = planner.RunInsert(cat.Backing(), res.Insert, nil)
	require.Error(t, err)
}

// TestInsertRangeViolationLeavesEarlierRowsPersisted exercises the
// non-transactional multi-row DML contract: a mid-statement failure must
// leave the rows before the failing one already written, not rolled back.
func TestInsertRangeViolationLeavesEarlierRowsPersisted(t *testing.T) {
	cat, def := setupTable(t, catalog.ColumnSpec{Name: "c", Type: sqltype.SmallInt()})
	a := analyzer.New(cat)
	stmt := ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{
		Table: ast.TableRef{Schema: "s", Table: "t"},
		Rows:  [][]*ast.Expr{{literal("1")}, {literal("2")}, {literal("40000")}, {literal("4")}},
	}}
	res, err := a.Analyze(stmt)
	require.NoError(t, err)
	n, err := planner.RunInsert(cat.Backing(), res.Insert, nil)
	require.Error(t, err)
	assert.Equal(t, 2, n, "the two rows before the failing one were inserted")

	selectStmt := ast.Statement{Kind: ast.StmtSelect, Select: &ast.SelectStmt{Table: ast.TableRef{Schema: "s", Table: "t"}}}
	sres, err := a.Analyze(selectStmt)
	require.NoError(t, err)
	out, err := planner.RunSelect(cat.Backing(), def, sres.Select)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2, "the failing row and everything after it must not appear")
	assert.Equal(t, int64(1), out.Rows[0][0].Num.IntPart())
	assert.Equal(t, int64(2), out.Rows[1][0].Num.IntPart())
}

// TestInsertReorderedColumnListStoresByOrdinal checks that a column list
// written in a different order than the table layout still lands each value
// under its own column.
func TestInsertReorderedColumnListStoresByOrdinal(t *testing.T) {
	cat, def := setupTable(t,
		catalog.ColumnSpec{Name: "a", Type: sqltype.SmallInt()},
		catalog.ColumnSpec{Name: "b", Type: sqltype.SmallInt()},
	)
	a := analyzer.New(cat)

	insertStmt := ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{
		Table:   ast.TableRef{Schema: "s", Table: "t"},
		Columns: []string{"b", "a"},
		Rows:    [][]*ast.Expr{{literal("1"), literal("2")}},
	}}
	ires, err := a.Analyze(insertStmt)
	require.NoError(t, err)
	n, err := planner.RunInsert(cat.Backing(), ires.Insert, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err := planner.RunSelect(cat.Backing(), def, &analyzer.SelectResult{Schema: def.Schema, Table: def.Name, Columns: def.Columns})
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, int64(2), out.Rows[0][0].Num.IntPart(), "a was listed second")
	assert.Equal(t, int64(1), out.Rows[0][1].Num.IntPart(), "b was listed first")
}

// TestInsertPartialColumnListFillsUnlistedWithNull checks that a strict
// subset column list stores Null under every unlisted column and the row
// still decodes at full table width.
func TestInsertPartialColumnListFillsUnlistedWithNull(t *testing.T) {
	cat, def := setupTable(t,
		catalog.ColumnSpec{Name: "a", Type: sqltype.SmallInt()},
		catalog.ColumnSpec{Name: "b", Type: sqltype.SmallInt()},
	)
	a := analyzer.New(cat)

	insertStmt := ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{
		Table:   ast.TableRef{Schema: "s", Table: "t"},
		Columns: []string{"a"},
		Rows:    [][]*ast.Expr{{literal("7")}},
	}}
	ires, err := a.Analyze(insertStmt)
	require.NoError(t, err)
	_, err = planner.RunInsert(cat.Backing(), ires.Insert, nil)
	require.NoError(t, err)

	out, err := planner.RunSelect(cat.Backing(), def, &analyzer.SelectResult{Schema: def.Schema, Table: def.Name, Columns: def.Columns})
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	require.Len(t, out.Rows[0], 2)
	assert.Equal(t, int64(7), out.Rows[0][0].Num.IntPart())
	assert.True(t, out.Rows[0][1].IsNull(), "unlisted column b must be Null")
}

// TestInsertWideBigIntLiteralIsExact checks that a literal above 2^53 is
// stored exactly, not rounded through a float64 intermediate.
func TestInsertWideBigIntLiteralIsExact(t *testing.T) {
	cat, def := setupTable(t, catalog.ColumnSpec{Name: "c", Type: sqltype.BigInt()})
	a := analyzer.New(cat)

	insertStmt := ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{
		Table: ast.TableRef{Schema: "s", Table: "t"},
		Rows:  [][]*ast.Expr{{literal("9007199254740993")}},
	}}
	ires, err := a.Analyze(insertStmt)
	require.NoError(t, err)
	_, err = planner.RunInsert(cat.Backing(), ires.Insert, nil)
	require.NoError(t, err)

	out, err := planner.RunSelect(cat.Backing(), def, &analyzer.SelectResult{Schema: def.Schema, Table: def.Name, Columns: def.Columns})
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, int64(9007199254740993), out.Rows[0][0].Num.IntPart())
}

func TestUpdateAllRowsPreservesInsertionOrder(t *testing.T) {
	cat, def := setupTable(t,
		catalog.ColumnSpec{Name: "a", Type: sqltype.SmallInt()},
		catalog.ColumnSpec{Name: "b", Type: sqltype.SmallInt()},
	)
	a := analyzer.New(cat)

	insertStmt := ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{
		Table: ast.TableRef{Schema: "s", Table: "t"},
		Rows:  [][]*ast.Expr{{literal("1"), literal("2")}, {literal("3"), literal("4")}},
	}}
	ires, err := a.Analyze(insertStmt)
	require.NoError(t, err)
	_, err = planner.RunInsert(cat.Backing(), ires.Insert, nil)
	require.NoError(t, err)

	updateStmt := ast.Statement{Kind: ast.StmtUpdate, Update: &ast.UpdateStmt{
		Table: ast.TableRef{Schema: "s", Table: "t"},
		Set:   []ast.SetClause{{Column: "b", Value: literal("9")}},
	}}
	ures, err := a.Analyze(updateStmt)
	require.NoError(t, err)
	n, err := planner.RunUpdate(cat.Backing(), def, ures.Update, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	selectStmt := ast.Statement{Kind: ast.StmtSelect, Select: &ast.SelectStmt{Table: ast.TableRef{Schema: "s", Table: "t"}}}
	sres, err := a.Analyze(selectStmt)
	require.NoError(t, err)
	out, err := planner.RunSelect(cat.Backing(), def, sres.Select)
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, int64(1), out.Rows[0][0].Num.IntPart())
	assert.Equal(t, int64(9), out.Rows[0][1].Num.IntPart())
	assert.Equal(t, int64(3), out.Rows[1][0].Num.IntPart())
	assert.Equal(t, int64(9), out.Rows[1][1].Num.IntPart())
}

// TestNarrowedValuesStableUnderWriteReadWrite checks that a value the
// validator accepted, once stored and decoded back, is accepted again
// unchanged by a second narrowing pass.
func TestNarrowedValuesStableUnderWriteReadWrite(t *testing.T) {
	cat, def := setupTable(t,
		catalog.ColumnSpec{Name: "n", Type: sqltype.SmallInt()},
		catalog.ColumnSpec{Name: "s", Type: sqltype.VarChar(10)},
		catalog.ColumnSpec{Name: "f", Type: sqltype.DoublePrecision()},
	)
	a := analyzer.New(cat)

	insertStmt := ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{
		Table: ast.TableRef{Schema: "s", Table: "t"},
		Rows: [][]*ast.Expr{{
			literal("123"),
			{Kind: ast.ExprLiteral, LiteralText: "hey", LiteralIsText: true},
			literal("2.25"),
		}},
	}}
	ires, err := a.Analyze(insertStmt)
	require.NoError(t, err)
	_, err = planner.RunInsert(cat.Backing(), ires.Insert, nil)
	require.NoError(t, err)

	out, err := planner.RunSelect(cat.Backing(), def, &analyzer.SelectResult{Schema: def.Schema, Table: def.Name, Columns: def.Columns})
	require.NoError(t, err)
	require.Len(t, out.Rows, 1)

	for i, v := range out.Rows[0] {
		again, err := constraints.Narrow(v, def.Columns[i], i)
		require.NoError(t, err, "column %d: a stored value must re-validate", i)
		assert.False(t, again.IsNull())
	}
}

func TestDeleteRemovesAllRows(t *testing.T) {
	cat, def := setupTable(t, catalog.ColumnSpec{Name: "c", Type: sqltype.Integer()})
	a := analyzer.New(cat)
	insertStmt := ast.Statement{Kind: ast.StmtInsert, Insert: &ast.InsertStmt{
		Table: ast.TableRef{Schema: "s", Table: "t"},
		Rows:  [][]*ast.Expr{{literal("1")}, {literal("2")}},
	}}
	ires, err := a.Analyze(insertStmt)
	require.NoError(t, err)
	_, err = planner.RunInsert(cat.Backing(), ires.Insert, nil)
	require.NoError(t, err)

	n, err := planner.RunDelete(cat.Backing(), def.Schema, def.Name)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	out, err := planner.RunSelect(cat.Backing(), def, &analyzer.SelectResult{Schema: def.Schema, Table: def.Name, Columns: def.Columns})
	require.NoError(t, err)
	assert.Empty(t, out.Rows)
}
