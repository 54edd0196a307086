package ir

import "sqlengine/internal/sqltype"

// StaticKind discriminates a StaticTypedTree node: an expression knowable
// without a row context is either a literal, a parameter placeholder, or a
// unary/binary combination of smaller static trees.
type StaticKind int

const (
	StaticLiteral StaticKind = iota
	StaticParam
	StaticUnary
	StaticBinary
)

// StaticTypedTree is used for INSERT values. UPDATE set-clauses are always
// resolved into a DynamicTypedTree, even when they reference no column.
type StaticTypedTree struct {
	Kind StaticKind

	Literal TypedValue

	// ParamIndex is the 1-indexed `$N` placeholder number; ParamFamily is
	// the family inferred for it at analysis time.
	ParamIndex  int
	ParamFamily sqltype.Family

	Op     Operator
	Target sqltype.Family // meaningful only when Op == OpCast
	Left   *StaticTypedTree
	Right  *StaticTypedTree // nil for unary nodes
}

func StaticLit(v TypedValue) *StaticTypedTree {
	return &StaticTypedTree{Kind: StaticLiteral, Literal: v}
}

func StaticParamRef(index int, family sqltype.Family) *StaticTypedTree {
	return &StaticTypedTree{Kind: StaticParam, ParamIndex: index, ParamFamily: family}
}

func StaticUnaryOp(op Operator, target sqltype.Family, operand *StaticTypedTree) *StaticTypedTree {
	return &StaticTypedTree{Kind: StaticUnary, Op: op, Target: target, Left: operand}
}

func StaticBinaryOp(op Operator, left, right *StaticTypedTree) *StaticTypedTree {
	return &StaticTypedTree{Kind: StaticBinary, Op: op, Left: left, Right: right}
}

// Eval evaluates the tree against the given (1-indexed by convention, but
// stored 0-indexed here) bound parameter values.
func (t *StaticTypedTree) Eval(params []TypedValue) (TypedValue, error) {
	switch t.Kind {
	case StaticLiteral:
		return t.Literal, nil
	case StaticParam:
		if t.ParamIndex < 1 || t.ParamIndex > len(params) {
			return NullValue(t.ParamFamily), nil
		}
		return params[t.ParamIndex-1], nil
	case StaticUnary:
		v, err := t.Left.Eval(params)
		if err != nil {
			return TypedValue{}, err
		}
		return evalUnary(t.Op, v, t.Target)
	case StaticBinary:
		l, err := t.Left.Eval(params)
		if err != nil {
			return TypedValue{}, err
		}
		r, err := t.Right.Eval(params)
		if err != nil {
			return TypedValue{}, err
		}
		return evalBinary(t.Op, l, r)
	default:
		panic("ir: unknown StaticKind")
	}
}
