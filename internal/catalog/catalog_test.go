package catalog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlengine/internal/catalog"
	"sqlengine/internal/kvstore"
	"sqlengine/internal/sqltype"
)

func openTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Open(kvstore.NewInMemory(), "testdb")
	require.NoError(t, err)
	return c
}

func TestBootstrapSeedsDefinitionAndPublicSchemas(t *testing.T) {
	c := openTestCatalog(t)

	ok, err := c.SchemaExists(catalog.DefinitionSchema)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SchemaExists(catalog.PublicSchema)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	backing := kvstore.NewInMemory()
	_, err := catalog.Open(backing, "testdb")
	require.NoError(t, err)
	// Reopening over the same backing must not duplicate SCHEMATA rows or
	// fail because DEFINITION_SCHEMA already exists.
	c2, err := catalog.Open(backing, "testdb")
	require.NoError(t, err)

	ok, err := c2.SchemaExists(catalog.PublicSchema)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateSchemaLifecycle(t *testing.T) {
	c := openTestCatalog(t)

	err := c.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"Sales"}})
	require.NoError(t, err)

	ok, err := c.SchemaExists("sales")
	require.NoError(t, err)
	assert.True(t, ok, "schema names are case-insensitive")

	err = c.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"sales"}})
	var alreadyExists *catalog.SchemaAlreadyExistsError
	assert.True(t, errors.As(err, &alreadyExists))

	err = c.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"sales"}, IfNotExists: true})
	assert.NoError(t, err)
}

func TestCreateSchemaRejectsDefinitionSchemaNameAnyCase(t *testing.T) {
	c := openTestCatalog(t)

	err := c.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"DEFINITION_SCHEMA"}})
	var alreadyExists *catalog.SchemaAlreadyExistsError
	assert.True(t, errors.As(err, &alreadyExists), "DEFINITION_SCHEMA is reserved at bootstrap, any case")

	err = c.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"definition_schema"}})
	assert.True(t, errors.As(err, &alreadyExists))
}

func TestCreateTableThenDropSchemaWithoutCascadeFails(t *testing.T) {
	c := openTestCatalog(t)
	require.NoError(t, c.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"sales"}}))

	err := c.Apply(catalog.Request{
		Kind:   catalog.CreateTable,
		Schema: "sales",
		Table:  "orders",
		Columns: []catalog.ColumnSpec{
			{Name: "id", Type: sqltype.BigInt()},
			{Name: "total", Type: sqltype.Real()},
		},
	})
	require.NoError(t, err)

	ok, err := c.TableExists("sales", "orders")
	require.NoError(t, err)
	assert.True(t, ok)

	def, ok, err := c.Table("sales", "orders")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, def.Columns, 2)
	assert.Equal(t, "id", def.Columns[0].Name)
	assert.Equal(t, 0, def.Columns[0].Ordinal)
	assert.Equal(t, "total", def.Columns[1].Name)
	assert.Equal(t, 1, def.Columns[1].Ordinal)

	err = c.Apply(catalog.Request{Kind: catalog.DropSchemas, SchemaNames: []string{"sales"}})
	var hasDependants *catalog.SchemaHasDependentObjectsError
	assert.True(t, errors.As(err, &hasDependants))

	err = c.Apply(catalog.Request{Kind: catalog.DropSchemas, SchemaNames: []string{"sales"}, Cascade: true})
	require.NoError(t, err)

	ok, err = c.SchemaExists("sales")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.TableExists("sales", "orders")
	require.NoError(t, err)
	assert.False(t, ok, "dropping a schema CASCADE must remove its tables' catalog rows too")
}

func TestDropTableRemovesColumnsRows(t *testing.T) {
	c := openTestCatalog(t)
	require.NoError(t, c.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"sales"}}))
	require.NoError(t, c.Apply(catalog.Request{
		Kind:   catalog.CreateTable,
		Schema: "sales",
		Table:  "orders",
		Columns: []catalog.ColumnSpec{
			{Name: "id", Type: sqltype.BigInt()},
		},
	}))

	err := c.Apply(catalog.Request{Kind: catalog.DropTables, Schema: "sales", Table: "missing"})
	var noTable *catalog.TableDoesNotExistError
	assert.True(t, errors.As(err, &noTable))

	err = c.Apply(catalog.Request{Kind: catalog.DropTables, Schema: "sales", Table: "missing", IfExists: true})
	assert.NoError(t, err)

	require.NoError(t, c.Apply(catalog.Request{Kind: catalog.DropTables, Schema: "sales", Table: "orders"}))

	_, ok, err := c.Table("sales", "orders")
	require.NoError(t, err)
	assert.False(t, ok)

	// Re-creating the table with a different column must not bring back
	// the dropped table's COLUMNS rows.
	require.NoError(t, c.Apply(catalog.Request{
		Kind:   catalog.CreateTable,
		Schema: "sales",
		Table:  "orders",
		Columns: []catalog.ColumnSpec{
			{Name: "note", Type: sqltype.VarChar(5)},
		},
	}))
	def, ok, err := c.Table("sales", "orders")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, def.Columns, 1)
	assert.Equal(t, "note", def.Columns[0].Name)
}

func TestCreateIndexValidatesColumnOrdinals(t *testing.T) {
	c := openTestCatalog(t)
	require.NoError(t, c.Apply(catalog.Request{Kind: catalog.CreateSchema, SchemaNames: []string{"sales"}}))
	require.NoError(t, c.Apply(catalog.Request{
		Kind:   catalog.CreateTable,
		Schema: "sales",
		Table:  "orders",
		Columns: []catalog.ColumnSpec{
			{Name: "id", Type: sqltype.BigInt()},
		},
	}))

	err := c.Apply(catalog.Request{
		Kind:           catalog.CreateIndex,
		Schema:         "sales",
		Table:          "orders",
		IndexName:      "by_bogus",
		ColumnOrdinals: []int{7},
	})
	var notFound *catalog.ColumnNotFoundError
	assert.True(t, errors.As(err, &notFound))

	err = c.Apply(catalog.Request{
		Kind:           catalog.CreateIndex,
		Schema:         "sales",
		Table:          "orders",
		IndexName:      "by_id",
		ColumnOrdinals: []int{0},
	})
	assert.NoError(t, err)

	defs, err := c.Indexes("sales", "orders")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "by_id", defs[0].Name)
	assert.Equal(t, []int{0}, defs[0].Columns)
}
