package catalog

import "sqlengine/internal/sqltype"

// DefinitionSchema is the reserved schema name hosting SCHEMATA, TABLES,
// COLUMNS, and INDEXES. It is pre-populated at bootstrap and
// cannot be created or dropped through the public request API.
const DefinitionSchema = "DEFINITION_SCHEMA"

// PublicSchema is bootstrapped alongside DefinitionSchema so an
// unqualified table reference has somewhere to resolve to.
const PublicSchema = "public"

// ColumnDef is one column of a table: name, type, and its dense, 0-indexed
// ordinal. Names are normalized to lowercase on ingestion and compared
// case-insensitively.
type ColumnDef struct {
	Name    string
	Type    sqltype.SqlType
	Ordinal int
}

// TableDef is the catalog's view of one table: its schema, name, and
// ordered column list.
type TableDef struct {
	Schema  string
	Name    string
	Columns []ColumnDef
}

// ColumnByName returns the column named name (case-insensitive) and
// whether it was found.
func (t TableDef) ColumnByName(name string) (ColumnDef, bool) {
	lower := normalizeName(name)
	for _, c := range t.Columns {
		if c.Name == lower {
			return c, true
		}
	}
	return ColumnDef{}, false
}

// IndexDef is one index: its owning table, name, and the ordinals of the
// columns it references.
type IndexDef struct {
	Schema  string
	Table   string
	Name    string
	Columns []int
}
