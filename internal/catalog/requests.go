package catalog

import (
	"strconv"

	"sqlengine/internal/kvstore"
	"sqlengine/internal/rowcodec"
	"sqlengine/internal/sqltype"
)

// RequestKind discriminates the five schema-change request shapes the
// analyzer can produce.
type RequestKind int

const (
	CreateSchema RequestKind = iota
	DropSchemas
	CreateTable
	DropTables
	CreateIndex
)

// ColumnSpec is one column as it arrives in a CreateTable request, before it
// is assigned a dense ordinal.
type ColumnSpec struct {
	Name string
	Type sqltype.SqlType
}

// Request is the single shape every schema-change call builds and passes to
// Apply. Only the fields relevant to Kind are read.
type Request struct {
	Kind RequestKind

	// CreateSchema / DropSchemas
	SchemaNames []string

	// CreateTable / DropTables / CreateIndex
	Schema string
	Table  string

	// CreateTable
	Columns []ColumnSpec

	// CreateIndex
	IndexName      string
	ColumnOrdinals []int

	// Flags
	IfExists    bool // DropSchemas, DropTables
	IfNotExists bool // CreateSchema, CreateTable
	Cascade     bool // DropSchemas, DropTables
}

// Apply executes one schema-change request as an ordered sequence of
// catalog-row writes and physical kvstore operations. The step ordering is
// fixed: COLUMNS → TABLES → SCHEMATA on drop, the reverse on create. A
// create writes its catalog rows before allocating the physical object; a
// drop deletes its catalog rows before removing the physical object, so a
// crash mid-drop can leave a physical key-space with no catalog rows.
func (c *Catalog) Apply(req Request) error {
	switch req.Kind {
	case CreateSchema:
		return c.applyCreateSchema(req)
	case DropSchemas:
		return c.applyDropSchemas(req)
	case CreateTable:
		return c.applyCreateTable(req)
	case DropTables:
		return c.applyDropTables(req)
	case CreateIndex:
		return c.applyCreateIndex(req)
	default:
		panic("catalog: unknown request kind")
	}
}

func (c *Catalog) applyCreateSchema(req Request) error {
	for _, raw := range req.SchemaNames {
		name := normalizeName(raw)
		if err := validateName(name); err != nil {
			return err
		}
		exists, err := c.schemaExistsInSystemTable(name)
		if err != nil {
			return err
		}
		if exists {
			if req.IfNotExists {
				continue
			}
			return &SchemaAlreadyExistsError{Name: name}
		}
		if err := c.insertSchemataRow(name); err != nil {
			return err
		}
		c.backing.CreateSchema(name)
	}
	return nil
}

func (c *Catalog) applyDropSchemas(req Request) error {
	for _, raw := range req.SchemaNames {
		name := normalizeName(raw)
		if name == normalizeName(DefinitionSchema) {
			return &InvalidNameError{Reason: DefinitionSchema + " is reserved"}
		}
		exists, err := c.schemaExistsInSystemTable(name)
		if err != nil {
			return err
		}
		if !exists {
			if req.IfExists {
				continue
			}
			return &SchemaDoesNotExistError{Name: name}
		}
		if !req.Cascade {
			hasTables, err := c.schemaHasTables(name)
			if err != nil {
				return err
			}
			if hasTables {
				return &SchemaHasDependentObjectsError{Name: name}
			}
		}

		prefix := []string{c.catalogName, name}
		if _, err := c.deletePrefixed(tableColumns, stringDatums(prefix)); err != nil {
			return err
		}
		if _, err := c.deletePrefixed(tableIndexes, stringDatums(prefix)); err != nil {
			return err
		}
		if _, err := c.deletePrefixed(tableTables, stringDatums(prefix)); err != nil {
			return err
		}
		if _, err := c.deletePrefixed(tableSchemata, stringDatums(prefix)); err != nil {
			return err
		}
		c.backing.DropSchema(name)
	}
	return nil
}

func (c *Catalog) applyCreateTable(req Request) error {
	schema := normalizeName(req.Schema)
	table := normalizeName(req.Table)

	schemaExists, err := c.schemaExistsInSystemTable(schema)
	if err != nil {
		return err
	}
	if !schemaExists {
		return &SchemaDoesNotExistError{Name: schema}
	}

	tableExists, err := c.tableExistsInSystemTable(schema, table)
	if err != nil {
		return err
	}
	if tableExists {
		if req.IfNotExists {
			return nil
		}
		return &TableAlreadyExistsError{Schema: schema, Table: table}
	}
	if err := validateName(table); err != nil {
		return err
	}

	if err := c.insertTablesRow(schema, table); err != nil {
		return err
	}
	for ordinal, col := range req.Columns {
		name := normalizeName(col.Name)
		if err := validateName(name); err != nil {
			return err
		}
		def := ColumnDef{Name: name, Type: col.Type, Ordinal: ordinal}
		if err := c.insertColumnsRow(schema, table, def); err != nil {
			return err
		}
	}

	_, err = c.backing.WorkWithSchema(schema, func(s kvstore.Schema) error {
		s.CreateTable(table)
		return nil
	})
	return err
}

func (c *Catalog) applyDropTables(req Request) error {
	schema := normalizeName(req.Schema)
	schemaExists, err := c.schemaExistsInSystemTable(schema)
	if err != nil {
		return err
	}
	if !schemaExists {
		return &SchemaDoesNotExistError{Name: schema}
	}

	table := normalizeName(req.Table)
	tableExists, err := c.tableExistsInSystemTable(schema, table)
	if err != nil {
		return err
	}
	if !tableExists {
		if req.IfExists {
			return nil
		}
		return &TableDoesNotExistError{Schema: schema, Table: table}
	}

	prefix := []string{c.catalogName, schema, table}
	if _, err := c.deletePrefixed(tableColumns, stringDatums(prefix)); err != nil {
		return err
	}
	if _, err := c.deletePrefixed(tableIndexes, stringDatums(prefix)); err != nil {
		return err
	}
	if _, err := c.deletePrefixed(tableTables, stringDatums(prefix)); err != nil {
		return err
	}

	_, err = c.backing.WorkWithSchema(schema, func(s kvstore.Schema) error {
		s.DropTable(table)
		return nil
	})
	return err
}

func (c *Catalog) applyCreateIndex(req Request) error {
	schema := normalizeName(req.Schema)
	table := normalizeName(req.Table)

	def, ok, err := c.Table(schema, table)
	if err != nil {
		return err
	}
	if !ok {
		if exists, serr := c.schemaExistsInSystemTable(schema); serr != nil {
			return serr
		} else if !exists {
			return &SchemaDoesNotExistError{Name: schema}
		}
		return &TableDoesNotExistError{Schema: schema, Table: table}
	}

	for _, ordinal := range req.ColumnOrdinals {
		found := false
		for _, col := range def.Columns {
			if col.Ordinal == ordinal {
				found = true
				break
			}
		}
		if !found {
			return &ColumnNotFoundError{Schema: schema, Table: table, Column: indexOrdinalName(ordinal)}
		}
	}

	indexName := normalizeName(req.IndexName)
	if err := validateName(indexName); err != nil {
		return err
	}
	if err := c.insertIndexesRow(schema, table, indexName, req.ColumnOrdinals); err != nil {
		return err
	}

	_, err = c.backing.WorkWithSchema(schema, func(s kvstore.Schema) error {
		_, err := s.WorkWithTable(table, func(t kvstore.Table) error {
			return t.CreateIndex(indexName, req.ColumnOrdinals)
		})
		return err
	})
	return err
}

func stringDatums(ss []string) []rowcodec.Datum {
	out := make([]rowcodec.Datum, len(ss))
	for i, s := range ss {
		out[i] = strDatum(s)
	}
	return out
}

func indexOrdinalName(ordinal int) string {
	return "#" + strconv.Itoa(ordinal)
}
