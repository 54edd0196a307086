// Package ir implements the typed intermediate representation between the
// analyzer and the planner: TypedValue, the shared unary/binary operator
// set, and the two tree shapes (StaticTypedTree, DynamicTypedTree) that
// evaluate against it. Numeric values are carried as arbitrary-precision
// decimals (github.com/shopspring/decimal) so arithmetic on the widest
// family (DoublePrecision) never silently loses bits the way a plain
// float64 accumulator would; narrowing happens only at constraint
// validation.
package ir

import (
	"strings"

	"github.com/shopspring/decimal"

	"sqlengine/internal/sqltype"
)

// TypedValue is a runtime value tagged with the SqlTypeFamily it belongs to.
// A TypedValue with Null true carries no payload regardless of Family.
type TypedValue struct {
	Family sqltype.Family
	Null   bool
	Bool   bool
	Num    decimal.Decimal
	Str    string
}

func NullValue(family sqltype.Family) TypedValue {
	return TypedValue{Family: family, Null: true}
}

func BoolValue(b bool) TypedValue {
	return TypedValue{Family: sqltype.FamilyBool, Bool: b}
}

func StringValue(s string) TypedValue {
	return TypedValue{Family: sqltype.FamilyString, Str: s}
}

func IntValue(family sqltype.Family, n int64) TypedValue {
	return TypedValue{Family: family, Num: decimal.NewFromInt(n)}
}

func NumValue(family sqltype.Family, n decimal.Decimal) TypedValue {
	return TypedValue{Family: family, Num: n}
}

func FloatValue(family sqltype.Family, f float64) TypedValue {
	return TypedValue{Family: family, Num: decimal.NewFromFloat(f)}
}

// IsNull reports whether v carries no value.
func (v TypedValue) IsNull() bool { return v.Null }

// AsText renders v the way Cast(String) does, without going through the
// Cast operator error path.
func (v TypedValue) AsText() string {
	switch v.Family {
	case sqltype.FamilyBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case sqltype.FamilyString:
		return v.Str
	default:
		return v.Num.String()
	}
}

// parseBool accepts exactly "true"/"false" (case-insensitive), the only
// spellings String → Bool casts admit.
func parseBool(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

// parseNumeric parses text as a decimal, reporting
// failure rather than erroring so callers can build the right typed error.
func parseNumeric(text string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// fitsInteger reports whether d is integral (zero fractional part).
func fitsInteger(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(0))
}

// clampedInt64 is a best-effort int64 view of d, used only where the caller
// has already established d is in range (e.g. Factorial, shift counts).
func clampedInt64(d decimal.Decimal) int64 {
	return d.IntPart()
}

func formatFamily(f sqltype.Family) string { return f.String() }
