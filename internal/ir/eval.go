package ir

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"sqlengine/internal/sqltype"
)

// evalUnary applies op to v; target is only meaningful for OpCast.
func evalUnary(op Operator, v TypedValue, target sqltype.Family) (TypedValue, error) {
	if op == OpCast {
		return cast(v, target)
	}
	if v.IsNull() {
		return NullValue(resultUnaryFamily(op, v.Family)), nil
	}

	switch op {
	case OpNeg:
		if !v.Family.IsNumeric() {
			return TypedValue{}, &UndefinedFunctionError{Op: op.String(), Family: formatFamily(v.Family)}
		}
		return NumValue(v.Family, v.Num.Neg()), nil
	case OpPos:
		if !v.Family.IsNumeric() {
			return TypedValue{}, &UndefinedFunctionError{Op: op.String(), Family: formatFamily(v.Family)}
		}
		return v, nil
	case OpAbs:
		if !v.Family.IsNumeric() {
			return TypedValue{}, &UndefinedFunctionError{Op: op.String(), Family: formatFamily(v.Family)}
		}
		return NumValue(v.Family, v.Num.Abs()), nil
	case OpSquareRoot:
		if !v.Family.IsNumeric() {
			return TypedValue{}, &UndefinedFunctionError{Op: op.String(), Family: formatFamily(v.Family)}
		}
		if v.Num.IsNegative() {
			return TypedValue{}, &InvalidArgumentForPowerFunctionError{}
		}
		f, _ := v.Num.Float64()
		return FloatValue(sqltype.FamilyDouble, sqrtFloat(f)), nil
	case OpCubeRoot:
		if !v.Family.IsNumeric() {
			return TypedValue{}, &UndefinedFunctionError{Op: op.String(), Family: formatFamily(v.Family)}
		}
		f, _ := v.Num.Float64()
		return FloatValue(sqltype.FamilyDouble, cbrtFloat(f)), nil
	case OpFactorial:
		if !v.Family.IsInteger() {
			return TypedValue{}, &UndefinedFunctionError{Op: op.String(), Family: formatFamily(v.Family)}
		}
		n := clampedInt64(v.Num)
		if n < 0 {
			return IntValue(v.Family, 1), nil
		}
		return IntValue(v.Family, factorial(n)), nil
	case OpLogicalNot:
		if v.Family != sqltype.FamilyBool {
			return TypedValue{}, &DatatypeMismatchError{Op: op.String(), Expected: formatFamily(sqltype.FamilyBool), Got: formatFamily(v.Family)}
		}
		return BoolValue(!v.Bool), nil
	case OpBitwiseNot:
		if !v.Family.IsInteger() {
			return TypedValue{}, &UndefinedFunctionError{Op: op.String(), Family: formatFamily(v.Family)}
		}
		n := clampedInt64(v.Num)
		return IntValue(v.Family, int64(^uint64(n))), nil
	default:
		return TypedValue{}, &UndefinedFunctionError{Op: op.String(), Family: formatFamily(v.Family)}
	}
}

func resultUnaryFamily(op Operator, f sqltype.Family) sqltype.Family {
	switch op {
	case OpSquareRoot, OpCubeRoot:
		return sqltype.FamilyDouble
	default:
		return f
	}
}

// evalBinary applies op to (l, r).
func evalBinary(op Operator, l, r TypedValue) (TypedValue, error) {
	l, r, err := coerceMixed(op, l, r)
	if err != nil {
		return TypedValue{}, err
	}

	if l.IsNull() || r.IsNull() {
		return NullValue(resultBinaryFamily(op, l.Family, r.Family)), nil
	}

	switch {
	case isArithmetic(op):
		return evalArithmetic(op, l, r)
	case isComparison(op):
		return evalComparison(op, l, r)
	case isBitwise(op):
		return evalBitwise(op, l, r)
	case isLogical(op):
		return evalLogical(op, l, r)
	case op == OpLike || op == OpNotLike:
		return evalMatching(op, l, r)
	case op == OpConcat:
		return evalConcat(l, r)
	default:
		return TypedValue{}, &UndefinedBiFunctionError{Op: op.String(), Left: formatFamily(l.Family), Right: formatFamily(r.Family)}
	}
}

func resultBinaryFamily(op Operator, lf, rf sqltype.Family) sqltype.Family {
	switch {
	case isComparison(op) || isLogical(op) || op == OpLike || op == OpNotLike:
		return sqltype.FamilyBool
	case op == OpConcat:
		return sqltype.FamilyString
	case lf.IsNumeric() && rf.IsNumeric():
		return sqltype.Wider(lf, rf)
	default:
		return lf
	}
}

func isArithmetic(op Operator) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpExp:
		return true
	default:
		return false
	}
}

func isComparison(op Operator) bool {
	switch op {
	case OpEq, OpNotEq, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

func isBitwise(op Operator) bool {
	switch op {
	case OpShl, OpShr, OpBitXor, OpBitAnd, OpBitOr:
		return true
	default:
		return false
	}
}

func isLogical(op Operator) bool {
	return op == OpAnd || op == OpOr
}

// coerceMixed implements the mixed-operand rule: if one side is String and
// the other Numeric, try to parse the string in the numeric side's family;
// a parse failure is InvalidTextRepresentation, not UndefinedBiFunction.
func coerceMixed(op Operator, l, r TypedValue) (TypedValue, TypedValue, error) {
	if l.Family == sqltype.FamilyString && r.Family.IsNumeric() && !isMatchingOrConcat(op) {
		coerced, err := coerceStringToNumeric(l, r.Family)
		if err != nil {
			return TypedValue{}, TypedValue{}, err
		}
		return coerced, r, nil
	}
	if r.Family == sqltype.FamilyString && l.Family.IsNumeric() && !isMatchingOrConcat(op) {
		coerced, err := coerceStringToNumeric(r, l.Family)
		if err != nil {
			return TypedValue{}, TypedValue{}, err
		}
		return l, coerced, nil
	}
	return l, r, nil
}

func isMatchingOrConcat(op Operator) bool {
	return op == OpLike || op == OpNotLike || op == OpConcat
}

func coerceStringToNumeric(v TypedValue, target sqltype.Family) (TypedValue, error) {
	if v.IsNull() {
		return NullValue(target), nil
	}
	d, ok := parseNumeric(v.Str)
	if !ok {
		return TypedValue{}, &InvalidTextRepresentationError{Family: formatFamily(target), Text: v.Str}
	}
	return NumValue(target, d), nil
}

func evalArithmetic(op Operator, l, r TypedValue) (TypedValue, error) {
	if !l.Family.IsNumeric() || !r.Family.IsNumeric() {
		return TypedValue{}, &UndefinedBiFunctionError{Op: op.String(), Left: formatFamily(l.Family), Right: formatFamily(r.Family)}
	}
	family := sqltype.Wider(l.Family, r.Family)

	switch op {
	case OpAdd:
		return NumValue(family, l.Num.Add(r.Num)), nil
	case OpSub:
		return NumValue(family, l.Num.Sub(r.Num)), nil
	case OpMul:
		return NumValue(family, l.Num.Mul(r.Num)), nil
	case OpDiv:
		if r.Num.IsZero() {
			return TypedValue{}, &InvalidArgumentForPowerFunctionError{}
		}
		return NumValue(family, l.Num.Div(r.Num)), nil
	case OpMod:
		if r.Num.IsZero() {
			return TypedValue{}, &InvalidArgumentForPowerFunctionError{}
		}
		return NumValue(family, l.Num.Mod(r.Num)), nil
	case OpExp:
		return evalExp(family, l.Num, r.Num)
	default:
		return TypedValue{}, &UndefinedBiFunctionError{Op: op.String(), Left: formatFamily(l.Family), Right: formatFamily(r.Family)}
	}
}

// evalExp evaluates Exp by repeated squaring on an integer exponent: 1 for
// exponent 0, a reciprocal branch when the exponent is negative.
func evalExp(family sqltype.Family, base, exp decimal.Decimal) (TypedValue, error) {
	if exp.IsZero() {
		return IntValue(family, 1), nil
	}
	if !fitsInteger(exp) {
		return NumValue(family, base.Pow(exp)), nil
	}
	n := exp.IntPart()
	negative := n < 0
	if negative {
		n = -n
	}
	result := decimal.NewFromInt(1)
	b := base
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(b)
		}
		b = b.Mul(b)
		n >>= 1
	}
	if negative {
		if result.IsZero() {
			return TypedValue{}, &InvalidArgumentForPowerFunctionError{}
		}
		result = decimal.NewFromInt(1).Div(result)
	}
	return NumValue(family, result), nil
}

func evalComparison(op Operator, l, r TypedValue) (TypedValue, error) {
	if !sameComparableFamily(l.Family, r.Family) {
		return TypedValue{}, &UndefinedBiFunctionError{Op: op.String(), Left: formatFamily(l.Family), Right: formatFamily(r.Family)}
	}

	var cmp int
	switch {
	case l.Family.IsNumeric():
		cmp = l.Num.Cmp(r.Num)
	case l.Family == sqltype.FamilyString:
		cmp = strings.Compare(l.Str, r.Str)
	case l.Family == sqltype.FamilyBool:
		cmp = boolCmp(l.Bool, r.Bool)
	}

	var result bool
	switch op {
	case OpEq:
		result = cmp == 0
	case OpNotEq:
		result = cmp != 0
	case OpLt:
		result = cmp < 0
	case OpLe:
		result = cmp <= 0
	case OpGt:
		result = cmp > 0
	case OpGe:
		result = cmp >= 0
	}
	return BoolValue(result), nil
}

func sameComparableFamily(a, b sqltype.Family) bool {
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	return a == b
}

func boolCmp(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

func evalBitwise(op Operator, l, r TypedValue) (TypedValue, error) {
	if !l.Family.IsInteger() || !r.Family.IsInteger() {
		return TypedValue{}, &UndefinedBiFunctionError{Op: op.String(), Left: formatFamily(l.Family), Right: formatFamily(r.Family)}
	}
	family := sqltype.Wider(l.Family, r.Family)
	a, b := uint64(clampedInt64(l.Num)), uint64(clampedInt64(r.Num))

	var result uint64
	switch op {
	case OpShl:
		result = a << (b & 63)
	case OpShr:
		result = a >> (b & 63)
	case OpBitXor:
		result = a ^ b
	case OpBitAnd:
		result = a & b
	case OpBitOr:
		result = a | b
	}
	return IntValue(family, int64(result)), nil
}

func evalLogical(op Operator, l, r TypedValue) (TypedValue, error) {
	if l.Family != sqltype.FamilyBool || r.Family != sqltype.FamilyBool {
		return TypedValue{}, &UndefinedBiFunctionError{Op: op.String(), Left: formatFamily(l.Family), Right: formatFamily(r.Family)}
	}
	if op == OpAnd {
		return BoolValue(l.Bool && r.Bool), nil
	}
	return BoolValue(l.Bool || r.Bool), nil
}

// likeRegexCache avoids recompiling the same LIKE pattern on every row of a
// scan; keyed on the raw pattern text.
var likeRegexCache = map[string]*regexp.Regexp{}

// compileLike translates a LIKE pattern to a regex: `%` → `.*`, `_` → `.+`.
func compileLike(pattern string) *regexp.Regexp {
	if re, ok := likeRegexCache[pattern]; ok {
		return re
	}
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".+")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re := regexp.MustCompile(b.String())
	likeRegexCache[pattern] = re
	return re
}

func evalMatching(op Operator, l, r TypedValue) (TypedValue, error) {
	if l.Family != sqltype.FamilyString || r.Family != sqltype.FamilyString {
		return TypedValue{}, &UndefinedBiFunctionError{Op: op.String(), Left: formatFamily(l.Family), Right: formatFamily(r.Family)}
	}
	matched := compileLike(r.Str).MatchString(l.Str)
	if op == OpNotLike {
		matched = !matched
	}
	return BoolValue(matched), nil
}

func evalConcat(l, r TypedValue) (TypedValue, error) {
	if l.Family != sqltype.FamilyString || r.Family != sqltype.FamilyString {
		return TypedValue{}, &UndefinedBiFunctionError{Op: OpConcat.String(), Left: formatFamily(l.Family), Right: formatFamily(r.Family)}
	}
	return StringValue(l.Str + r.Str), nil
}

// cast implements the Cast(target) conversion table.
func cast(v TypedValue, target sqltype.Family) (TypedValue, error) {
	if v.IsNull() {
		return NullValue(target), nil
	}

	switch {
	case v.Family == sqltype.FamilyBool && target == sqltype.FamilyString:
		return StringValue(v.AsText()), nil
	case v.Family == sqltype.FamilyBool && target == sqltype.FamilyBool:
		return v, nil
	case v.Family == sqltype.FamilyBool && target.IsNumeric():
		return TypedValue{}, &CannotCoerceError{From: formatFamily(v.Family), To: formatFamily(target)}

	case v.Family == sqltype.FamilyString && target == sqltype.FamilyBool:
		b, ok := parseBool(v.Str)
		if !ok {
			return TypedValue{}, &InvalidTextRepresentationError{Family: formatFamily(target), Text: v.Str}
		}
		return BoolValue(b), nil
	case v.Family == sqltype.FamilyString && target.IsNumeric():
		d, ok := parseNumeric(v.Str)
		if !ok {
			return TypedValue{}, &InvalidTextRepresentationError{Family: formatFamily(target), Text: v.Str}
		}
		return NumValue(target, d), nil
	case v.Family == sqltype.FamilyString && target == sqltype.FamilyString:
		return v, nil

	case v.Family.IsNumeric() && target == sqltype.FamilyString:
		return StringValue(v.AsText()), nil
	case v.Family.IsNumeric() && target == sqltype.FamilyBool:
		return BoolValue(!v.Num.IsZero()), nil
	case v.Family.IsNumeric() && target.IsNumeric():
		return NumValue(target, v.Num), nil

	default:
		return TypedValue{}, &CannotCoerceError{From: formatFamily(v.Family), To: formatFamily(target)}
	}
}

func factorial(n int64) int64 {
	result := int64(1)
	for i := int64(2); i <= n; i++ {
		result *= i
	}
	return result
}
