package analyzer

import (
	"sqlengine/internal/catalog"
	"sqlengine/internal/ir"
	"sqlengine/internal/sqltype"
)

// ResultKind discriminates what Analyze produced: a DDL request routed to
// the catalog, or a write/read plan input routed to the planner.
type ResultKind int

const (
	ResultDataDefinition ResultKind = iota
	ResultInsert
	ResultUpdate
	ResultDelete
	ResultSelect
)

// Result is everything the planner or the catalog needs to build
// a flow tree or apply a schema change, plus the parameter family list a
// DescribeStatement response reports.
type Result struct {
	Kind ResultKind

	ParamFamilies []sqltype.Family

	SchemaChange catalog.Request

	Insert *InsertResult
	Update *UpdateResult
	Delete *DeleteResult
	Select *SelectResult
}

type InsertResult struct {
	Schema, Table string
	Def           catalog.TableDef    // the full table layout rows are stored under
	Columns       []catalog.ColumnDef // target columns, in the order Rows supplies values for
	Rows          [][]*ir.StaticTypedTree
}

type SetTarget struct {
	Column catalog.ColumnDef
	Value  *ir.DynamicTypedTree
}

type UpdateResult struct {
	Schema, Table string
	Def           catalog.TableDef
	Set           []SetTarget
}

type DeleteResult struct {
	Schema, Table string
}

type SelectResult struct {
	Schema, Table string
	Columns       []catalog.ColumnDef // in projection order
}
