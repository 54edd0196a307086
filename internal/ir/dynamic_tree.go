package ir

import "sqlengine/internal/sqltype"

// DynamicKind discriminates a DynamicTypedTree node: everything
// StaticTypedTree supports, plus a reference to a column of the current row.
type DynamicKind int

const (
	DynamicLiteral DynamicKind = iota
	DynamicParam
	DynamicColumn
	DynamicUnary
	DynamicBinary
)

// DynamicTypedTree is used for the right-hand side of UPDATE set-clauses.
// WHERE predicates and projection expressions are not resolved into trees:
// the analyzer accepts no WHERE clause and only bare column projections.
type DynamicTypedTree struct {
	Kind DynamicKind

	Literal TypedValue

	ParamIndex  int
	ParamFamily sqltype.Family

	ColumnOrdinal int
	ColumnFamily  sqltype.Family

	Op     Operator
	Target sqltype.Family
	Left   *DynamicTypedTree
	Right  *DynamicTypedTree
}

func DynamicLit(v TypedValue) *DynamicTypedTree {
	return &DynamicTypedTree{Kind: DynamicLiteral, Literal: v}
}

func DynamicParamRef(index int, family sqltype.Family) *DynamicTypedTree {
	return &DynamicTypedTree{Kind: DynamicParam, ParamIndex: index, ParamFamily: family}
}

func DynamicColumnRef(ordinal int, family sqltype.Family) *DynamicTypedTree {
	return &DynamicTypedTree{Kind: DynamicColumn, ColumnOrdinal: ordinal, ColumnFamily: family}
}

func DynamicUnaryOp(op Operator, target sqltype.Family, operand *DynamicTypedTree) *DynamicTypedTree {
	return &DynamicTypedTree{Kind: DynamicUnary, Op: op, Target: target, Left: operand}
}

func DynamicBinaryOp(op Operator, left, right *DynamicTypedTree) *DynamicTypedTree {
	return &DynamicTypedTree{Kind: DynamicBinary, Op: op, Left: left, Right: right}
}

// Eval evaluates the tree against the current row's column values and the
// bound parameter values. row[i] must be the value of the column with
// ordinal i; a tree with no DynamicColumn nodes accepts a nil row.
func (t *DynamicTypedTree) Eval(row []TypedValue, params []TypedValue) (TypedValue, error) {
	switch t.Kind {
	case DynamicLiteral:
		return t.Literal, nil
	case DynamicParam:
		if t.ParamIndex < 1 || t.ParamIndex > len(params) {
			return NullValue(t.ParamFamily), nil
		}
		return params[t.ParamIndex-1], nil
	case DynamicColumn:
		if t.ColumnOrdinal < 0 || t.ColumnOrdinal >= len(row) {
			return NullValue(t.ColumnFamily), nil
		}
		return row[t.ColumnOrdinal], nil
	case DynamicUnary:
		v, err := t.Left.Eval(row, params)
		if err != nil {
			return TypedValue{}, err
		}
		return evalUnary(t.Op, v, t.Target)
	case DynamicBinary:
		l, err := t.Left.Eval(row, params)
		if err != nil {
			return TypedValue{}, err
		}
		r, err := t.Right.Eval(row, params)
		if err != nil {
			return TypedValue{}, err
		}
		return evalBinary(t.Op, l, r)
	default:
		panic("ir: unknown DynamicKind")
	}
}
