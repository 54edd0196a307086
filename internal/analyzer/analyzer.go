// Package analyzer translates a parsed ast.Statement into typed IR routed
// to the catalog (DDL) or the planner (DML/query). The analyzer never
// lexes SQL; the parser sits on the far side of the ast package boundary.
package analyzer

import (
	"strings"

	"github.com/shopspring/decimal"

	"sqlengine/internal/ast"
	"sqlengine/internal/catalog"
	"sqlengine/internal/ir"
	"sqlengine/internal/sqltype"
)

type Analyzer struct {
	catalog *catalog.Catalog
}

func New(cat *catalog.Catalog) *Analyzer {
	return &Analyzer{catalog: cat}
}

// paramBinding tracks, across one statement, which family each `$N`
// placeholder was inferred to have and flags a use-site conflict as a
// syntax error at analysis time.
type paramBinding struct {
	families map[int]sqltype.Family
}

func newParamBinding() *paramBinding { return &paramBinding{families: map[int]sqltype.Family{}} }

func (p *paramBinding) infer(index int, family sqltype.Family) error {
	if existing, ok := p.families[index]; ok && existing != family {
		return &IndeterminateParameterDataTypeError{Index: index}
	}
	p.families[index] = family
	return nil
}

// ordered returns the inferred family for each placeholder $1..$N, where N
// is the highest placeholder index seen.
func (p *paramBinding) ordered() []sqltype.Family {
	max := 0
	for idx := range p.families {
		if idx > max {
			max = idx
		}
	}
	out := make([]sqltype.Family, max)
	for i := 0; i < max; i++ {
		out[i] = p.families[i+1]
	}
	return out
}

// Analyze routes an ast.Statement to its typed output.
func (a *Analyzer) Analyze(stmt ast.Statement) (*Result, error) {
	switch stmt.Kind {
	case ast.StmtSchemaChange:
		return a.analyzeSchemaChange(stmt.Schema)
	case ast.StmtInsert:
		return a.analyzeInsert(stmt.Insert)
	case ast.StmtUpdate:
		return a.analyzeUpdate(stmt.Update)
	case ast.StmtDelete:
		return a.analyzeDelete(stmt.Delete)
	case ast.StmtSelect:
		return a.analyzeSelect(stmt.Select)
	default:
		panic("analyzer: unknown statement kind")
	}
}

// Describe runs the same resolution Analyze does but returns only what the
// wire layer's DescribeStatement needs: the inferred parameter family list
// and, for a SELECT, the result columns. The Result itself is not kept;
// a later Execute of the same statement analyzes it again.
func (a *Analyzer) Describe(stmt ast.Statement) ([]sqltype.Family, []catalog.ColumnDef, error) {
	res, err := a.Analyze(stmt)
	if err != nil {
		return nil, nil, err
	}
	var cols []catalog.ColumnDef
	if res.Kind == ResultSelect {
		cols = res.Select.Columns
	}
	return res.ParamFamilies, cols, nil
}

func resolveSchema(ref ast.TableRef) string {
	if ref.Schema == "" {
		return catalog.PublicSchema
	}
	return ref.Schema
}

func lower(s string) string { return strings.ToLower(s) }

func (a *Analyzer) requireTable(ref ast.TableRef) (catalog.TableDef, error) {
	schema := lower(resolveSchema(ref))
	table := lower(ref.Table)

	schemaExists, err := a.catalog.SchemaExists(schema)
	if err != nil {
		return catalog.TableDef{}, err
	}
	if !schemaExists {
		return catalog.TableDef{}, &catalog.SchemaDoesNotExistError{Name: schema}
	}

	def, ok, err := a.catalog.Table(schema, table)
	if err != nil {
		return catalog.TableDef{}, err
	}
	if !ok {
		return catalog.TableDef{}, &catalog.TableDoesNotExistError{Schema: schema, Table: table}
	}
	return def, nil
}

// ---- INSERT ----

func (a *Analyzer) analyzeInsert(stmt *ast.InsertStmt) (*Result, error) {
	def, err := a.requireTable(stmt.Table)
	if err != nil {
		return nil, err
	}

	targetCols := def.Columns
	if len(stmt.Columns) > 0 {
		targetCols = make([]catalog.ColumnDef, 0, len(stmt.Columns))
		for _, name := range stmt.Columns {
			col, ok := def.ColumnByName(name)
			if !ok {
				return nil, &catalog.ColumnNotFoundError{Schema: def.Schema, Table: def.Name, Column: name}
			}
			targetCols = append(targetCols, col)
		}
	}

	params := newParamBinding()
	rows := make([][]*ir.StaticTypedTree, 0, len(stmt.Rows))
	for i, row := range stmt.Rows {
		if len(row) != len(targetCols) {
			return nil, &InsertArityMismatchError{RowIndex: i, Expected: len(targetCols), Got: len(row)}
		}
		tree := make([]*ir.StaticTypedTree, len(row))
		for j, expr := range row {
			t, err := a.resolveStaticExpr(expr, targetCols[j].Type.Family(), params)
			if err != nil {
				return nil, err
			}
			tree[j] = t
		}
		rows = append(rows, tree)
	}

	return &Result{
		Kind:          ResultInsert,
		ParamFamilies: params.ordered(),
		Insert:        &InsertResult{Schema: def.Schema, Table: def.Name, Def: def, Columns: targetCols, Rows: rows},
	}, nil
}

// ---- UPDATE ----

func (a *Analyzer) analyzeUpdate(stmt *ast.UpdateStmt) (*Result, error) {
	def, err := a.requireTable(stmt.Table)
	if err != nil {
		return nil, err
	}

	params := newParamBinding()
	targets := make([]SetTarget, 0, len(stmt.Set))
	for _, set := range stmt.Set {
		col, ok := def.ColumnByName(set.Column)
		if !ok {
			return nil, &catalog.ColumnNotFoundError{Schema: def.Schema, Table: def.Name, Column: set.Column}
		}
		valueTree, err := a.resolveDynamicExpr(set.Value, col.Type.Family(), def, params)
		if err != nil {
			return nil, err
		}
		targets = append(targets, SetTarget{Column: col, Value: valueTree})
	}

	return &Result{
		Kind:          ResultUpdate,
		ParamFamilies: params.ordered(),
		Update:        &UpdateResult{Schema: def.Schema, Table: def.Name, Def: def, Set: targets},
	}, nil
}

// ---- DELETE ----

func (a *Analyzer) analyzeDelete(stmt *ast.DeleteStmt) (*Result, error) {
	def, err := a.requireTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:   ResultDelete,
		Delete: &DeleteResult{Schema: def.Schema, Table: def.Name},
	}, nil
}

// ---- SELECT ----

func (a *Analyzer) analyzeSelect(stmt *ast.SelectStmt) (*Result, error) {
	if reason, gated := selectFeatureGate(stmt); gated {
		return nil, &FeatureNotSupportedError{Reason: reason}
	}

	def, err := a.requireTable(stmt.Table)
	if err != nil {
		return nil, err
	}

	cols := def.Columns
	if len(stmt.Projections) > 0 {
		cols = make([]catalog.ColumnDef, 0, len(stmt.Projections))
		for _, p := range stmt.Projections {
			switch p.Kind {
			case ast.ExprStar:
				cols = append(cols, def.Columns...)
			case ast.ExprColumnRef:
				col, ok := def.ColumnByName(p.ColumnName)
				if !ok {
					return nil, &catalog.ColumnNotFoundError{Schema: def.Schema, Table: def.Name, Column: p.ColumnName}
				}
				cols = append(cols, col)
			default:
				return nil, &FeatureNotSupportedError{Reason: FeatureAliases}
			}
		}
	}

	return &Result{
		Kind:   ResultSelect,
		Select: &SelectResult{Schema: def.Schema, Table: def.Name, Columns: cols},
	}, nil
}

func selectFeatureGate(stmt *ast.SelectStmt) (string, bool) {
	switch {
	case stmt.HasJoins:
		return FeatureJoins, true
	case stmt.HasSubqueries:
		return FeatureSubQueries, true
	case stmt.HasSetOperation:
		return FeatureSetOperations, true
	case stmt.HasFromSubquery:
		return FeatureFromSubQuery, true
	case stmt.HasTableFunction:
		return FeatureTableFunctions, true
	case stmt.HasAliases:
		return FeatureAliases, true
	case stmt.HasQualifiedStar:
		return FeatureQualifiedAliases, true
	default:
		return "", false
	}
}

// ---- DDL ----

func (a *Analyzer) analyzeSchemaChange(stmt *ast.SchemaChangeStmt) (*Result, error) {
	req := catalog.Request{
		IfExists:    stmt.IfExists,
		IfNotExists: stmt.IfNotExists,
		Cascade:     stmt.Cascade,
	}

	switch stmt.Kind {
	case ast.ChangeCreateSchema:
		req.Kind = catalog.CreateSchema
		req.SchemaNames = stmt.SchemaNames
	case ast.ChangeDropSchemas:
		req.Kind = catalog.DropSchemas
		req.SchemaNames = stmt.SchemaNames
	case ast.ChangeCreateTable:
		req.Kind = catalog.CreateTable
		req.Schema = lower(resolveSchema(stmt.Table))
		req.Table = lower(stmt.Table.Table)
		cols := make([]catalog.ColumnSpec, 0, len(stmt.Columns))
		for _, c := range stmt.Columns {
			t, err := sqltype.Parse(c.RawType)
			if err != nil {
				return nil, &TypeNotSupportedError{RawType: c.RawType}
			}
			cols = append(cols, catalog.ColumnSpec{Name: c.Name, Type: t})
		}
		req.Columns = cols

		schemaExists, err := a.catalog.SchemaExists(req.Schema)
		if err != nil {
			return nil, err
		}
		if !schemaExists {
			return nil, &catalog.SchemaDoesNotExistError{Name: req.Schema}
		}
	case ast.ChangeDropTables:
		req.Kind = catalog.DropTables
		req.Schema = lower(resolveSchema(stmt.Table))
		req.Table = lower(stmt.Table.Table)
	case ast.ChangeCreateIndex:
		req.Kind = catalog.CreateIndex
		req.Schema = lower(resolveSchema(stmt.Table))
		req.Table = lower(stmt.Table.Table)
		req.IndexName = stmt.IndexName

		def, err := a.requireTable(stmt.Table)
		if err != nil {
			return nil, err
		}
		ordinals := make([]int, 0, len(stmt.IndexColumn))
		for _, name := range stmt.IndexColumn {
			col, ok := def.ColumnByName(name)
			if !ok {
				return nil, &catalog.ColumnNotFoundError{Schema: def.Schema, Table: def.Name, Column: name}
			}
			ordinals = append(ordinals, col.Ordinal)
		}
		req.ColumnOrdinals = ordinals
	default:
		panic("analyzer: unknown schema change kind")
	}

	return &Result{Kind: ResultDataDefinition, SchemaChange: req}, nil
}

// ---- Expression resolution ----

// resolveStaticExpr resolves an ast.Expr into a StaticTypedTree, inferring
// `$N` placeholder families from targetFamily.
func (a *Analyzer) resolveStaticExpr(e *ast.Expr, targetFamily sqltype.Family, params *paramBinding) (*ir.StaticTypedTree, error) {
	switch e.Kind {
	case ast.ExprLiteral:
		v, err := parseLiteral(e, targetFamily)
		if err != nil {
			return nil, err
		}
		return ir.StaticLit(v), nil
	case ast.ExprParam:
		if err := params.infer(e.ParamIndex, targetFamily); err != nil {
			return nil, err
		}
		return ir.StaticParamRef(e.ParamIndex, targetFamily), nil
	case ast.ExprUnary:
		op, target, err := resolveUnaryOp(e, targetFamily)
		if err != nil {
			return nil, err
		}
		operand, err := a.resolveStaticExpr(e.Left, operandFamily(op, targetFamily), params)
		if err != nil {
			return nil, err
		}
		return ir.StaticUnaryOp(op, target, operand), nil
	case ast.ExprBinary:
		op, err := resolveBinaryOp(e.Op)
		if err != nil {
			return nil, err
		}
		left, err := a.resolveStaticExpr(e.Left, targetFamily, params)
		if err != nil {
			return nil, err
		}
		right, err := a.resolveStaticExpr(e.Right, targetFamily, params)
		if err != nil {
			return nil, err
		}
		return ir.StaticBinaryOp(op, left, right), nil
	case ast.ExprColumnRef:
		return nil, &FeatureNotSupportedError{Reason: FeatureInsertIntoSelect}
	default:
		return nil, &FeatureNotSupportedError{Reason: FeatureSubQueries}
	}
}

// resolveDynamicExpr is resolveStaticExpr's UPDATE-set counterpart: it
// additionally resolves bare column references against def.
func (a *Analyzer) resolveDynamicExpr(e *ast.Expr, targetFamily sqltype.Family, def catalog.TableDef, params *paramBinding) (*ir.DynamicTypedTree, error) {
	switch e.Kind {
	case ast.ExprLiteral:
		v, err := parseLiteral(e, targetFamily)
		if err != nil {
			return nil, err
		}
		return ir.DynamicLit(v), nil
	case ast.ExprParam:
		if err := params.infer(e.ParamIndex, targetFamily); err != nil {
			return nil, err
		}
		return ir.DynamicParamRef(e.ParamIndex, targetFamily), nil
	case ast.ExprColumnRef:
		col, ok := def.ColumnByName(e.ColumnName)
		if !ok {
			return nil, &catalog.ColumnNotFoundError{Schema: def.Schema, Table: def.Name, Column: e.ColumnName}
		}
		return ir.DynamicColumnRef(col.Ordinal, col.Type.Family()), nil
	case ast.ExprUnary:
		op, target, err := resolveUnaryOp(e, targetFamily)
		if err != nil {
			return nil, err
		}
		operand, err := a.resolveDynamicExpr(e.Left, operandFamily(op, targetFamily), def, params)
		if err != nil {
			return nil, err
		}
		return ir.DynamicUnaryOp(op, target, operand), nil
	case ast.ExprBinary:
		op, err := resolveBinaryOp(e.Op)
		if err != nil {
			return nil, err
		}
		left, err := a.resolveDynamicExpr(e.Left, targetFamily, def, params)
		if err != nil {
			return nil, err
		}
		right, err := a.resolveDynamicExpr(e.Right, targetFamily, def, params)
		if err != nil {
			return nil, err
		}
		return ir.DynamicBinaryOp(op, left, right), nil
	default:
		return nil, &FeatureNotSupportedError{Reason: FeatureSubQueries}
	}
}

func operandFamily(op ir.Operator, targetFamily sqltype.Family) sqltype.Family {
	if op == ir.OpCast {
		return sqltype.FamilyString // cast source family is inferred independently by the parser; default assumption for $N under a cast is text
	}
	return targetFamily
}

func resolveUnaryOp(e *ast.Expr, targetFamily sqltype.Family) (ir.Operator, sqltype.Family, error) {
	if e.Op == "CAST" {
		t, err := sqltype.Parse(e.Cast)
		if err != nil {
			return 0, 0, &TypeNotSupportedError{RawType: e.Cast}
		}
		return ir.OpCast, t.Family(), nil
	}
	op, err := unaryOpFromSpelling(e.Op)
	return op, targetFamily, err
}

func unaryOpFromSpelling(spelling string) (ir.Operator, error) {
	switch spelling {
	case "-":
		return ir.OpNeg, nil
	case "+":
		return ir.OpPos, nil
	case "|/":
		return ir.OpSquareRoot, nil
	case "||/":
		return ir.OpCubeRoot, nil
	case "!":
		return ir.OpFactorial, nil
	case "@":
		return ir.OpAbs, nil
	case "NOT":
		return ir.OpLogicalNot, nil
	case "~":
		return ir.OpBitwiseNot, nil
	default:
		return 0, &FeatureNotSupportedError{Reason: FeatureTableFunctions}
	}
}

func resolveBinaryOp(spelling string) (ir.Operator, error) {
	switch spelling {
	case "+":
		return ir.OpAdd, nil
	case "-":
		return ir.OpSub, nil
	case "*":
		return ir.OpMul, nil
	case "/":
		return ir.OpDiv, nil
	case "%":
		return ir.OpMod, nil
	case "^":
		return ir.OpExp, nil
	case "=":
		return ir.OpEq, nil
	case "<>", "!=":
		return ir.OpNotEq, nil
	case "<":
		return ir.OpLt, nil
	case "<=":
		return ir.OpLe, nil
	case ">":
		return ir.OpGt, nil
	case ">=":
		return ir.OpGe, nil
	case "<<":
		return ir.OpShl, nil
	case ">>":
		return ir.OpShr, nil
	case "#":
		return ir.OpBitXor, nil
	case "&":
		return ir.OpBitAnd, nil
	case "|":
		return ir.OpBitOr, nil
	case "AND":
		return ir.OpAnd, nil
	case "OR":
		return ir.OpOr, nil
	case "LIKE":
		return ir.OpLike, nil
	case "NOT LIKE":
		return ir.OpNotLike, nil
	case "||":
		return ir.OpConcat, nil
	default:
		return 0, &FeatureNotSupportedError{Reason: FeatureTableFunctions}
	}
}

// parseLiteral turns a raw literal token into a TypedValue, honoring
// targetFamily for numeric literals (so "123" against a SMALLINT column
// carries family SmallInt rather than an arbitrary default).
func parseLiteral(e *ast.Expr, targetFamily sqltype.Family) (ir.TypedValue, error) {
	text := e.LiteralText
	if strings.EqualFold(text, "null") {
		return ir.NullValue(targetFamily), nil
	}
	if e.LiteralIsText {
		return ir.StringValue(text), nil
	}
	if strings.EqualFold(text, "true") {
		return ir.BoolValue(true), nil
	}
	if strings.EqualFold(text, "false") {
		return ir.BoolValue(false), nil
	}
	if targetFamily.IsNumeric() {
		// Parse straight into a decimal so wide literals (e.g. a bigint
		// above 2^53) are carried exactly rather than rounded through a
		// float64 intermediate.
		d, err := decimal.NewFromString(text)
		if err != nil {
			return ir.TypedValue{}, &ir.InvalidTextRepresentationError{Family: targetFamily.String(), Text: text}
		}
		return ir.NumValue(targetFamily, d), nil
	}
	return ir.StringValue(text), nil
}
