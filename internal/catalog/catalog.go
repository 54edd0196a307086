// Package catalog maintains the system schema (SCHEMATA/TABLES/COLUMNS/
// INDEXES) and translates schema-change requests into ordered steps against
// the kvstore storage abstraction.
package catalog

import (
	"strings"

	"sqlengine/internal/kvstore"
)

// Catalog is the system-schema registry for one open database. It is
// itself stored in tables it manages: DEFINITION_SCHEMA and its four
// system tables are hard-coded as the first entries created, before any
// request can address them, which breaks the bootstrap cycle.
type Catalog struct {
	backing     kvstore.Backing
	catalogName string
}

// Open bootstraps (idempotently) DEFINITION_SCHEMA, its four system
// tables, and the public schema over backing, and returns a Catalog handle
// for it. catalogName is the literal "catalog_name" value stamped into
// every system-table row; callers reopening an existing durable backing
// must pass the same catalogName they opened it with originally, or
// prefix scans will not find their own rows.
func Open(backing kvstore.Backing, catalogName string) (*Catalog, error) {
	c := &Catalog{backing: backing, catalogName: catalogName}
	if err := c.bootstrap(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) bootstrap() error {
	backing := c.backing
	definitionSchema := normalizeName(DefinitionSchema)
	backing.CreateSchema(definitionSchema) // idempotent: false if already open

	_, err := backing.WorkWithSchema(definitionSchema, func(s kvstore.Schema) error {
		for _, name := range []string{tableSchemata, tableTables, tableColumns, tableIndexes} {
			s.CreateTable(name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Bootstrap bypasses Apply (which would try to read SCHEMATA before it
	// exists) and writes the two seed schema rows directly. The row is
	// seeded under the normalized name so it agrees with SchemaExists /
	// TableExists / Table, which always normalize their lookup key.
	if err := c.seedSchemaRowIfAbsent(definitionSchema); err != nil {
		return err
	}
	backing.CreateSchema(PublicSchema)
	return c.seedSchemaRowIfAbsent(PublicSchema)
}

func (c *Catalog) seedSchemaRowIfAbsent(name string) error {
	exists, err := c.schemaExistsInSystemTable(name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return c.insertSchemataRow(name)
}

// normalizeName lowercases an identifier; the catalog compares all names
// case-insensitively after normalization.
func normalizeName(name string) string {
	return strings.ToLower(name)
}

// SchemaExists reports whether name is a schema recorded in SCHEMATA.
func (c *Catalog) SchemaExists(name string) (bool, error) {
	return c.schemaExistsInSystemTable(normalizeName(name))
}

// TableExists reports whether schema.table is a table recorded in TABLES.
// TABLES is the authoritative existence test; COLUMNS is only consulted
// once TABLES confirms the table, so orphaned COLUMNS rows left by a crash
// mid-drop are harmless.
func (c *Catalog) TableExists(schema, table string) (bool, error) {
	return c.tableExistsInSystemTable(normalizeName(schema), normalizeName(table))
}

// Table returns the full column list (ordered by ordinal) for schema.table.
func (c *Catalog) Table(schema, table string) (TableDef, bool, error) {
	schema, table = normalizeName(schema), normalizeName(table)
	ok, err := c.tableExistsInSystemTable(schema, table)
	if err != nil || !ok {
		return TableDef{}, false, err
	}
	cols, err := c.columnsInSystemTable(schema, table)
	if err != nil {
		return TableDef{}, false, err
	}
	return TableDef{Schema: schema, Name: table, Columns: cols}, true, nil
}

// Backing exposes the underlying kvstore.Backing so the planner can read
// and write actual rows; the catalog itself only ever touches the
// DEFINITION_SCHEMA system tables.
func (c *Catalog) Backing() kvstore.Backing { return c.backing }

// CatalogName is the literal "catalog_name" value stamped into system rows.
func (c *Catalog) CatalogName() string { return c.catalogName }
