package analyzer

import "fmt"

// FeatureNotSupportedError names a SQL construct the feature gate rejects.
// The Reason values form a closed, stable set so the wire layer can map
// each to a fixed message.
type FeatureNotSupportedError struct{ Reason string }

func (e *FeatureNotSupportedError) Error() string {
	return fmt.Sprintf("feature not supported: %s", e.Reason)
}

// Feature gate reasons.
const (
	FeatureInsertIntoSelect = "InsertIntoSelect"
	FeatureSetOperations    = "SetOperations"
	FeatureSubQueries       = "SubQueries"
	FeatureFromSubQuery     = "FromSubQuery"
	FeatureTableFunctions   = "TableFunctions"
	FeatureNestedJoin       = "NestedJoin"
	FeatureAliases          = "Aliases"
	FeatureQualifiedAliases = "QualifiedAliases"
	FeatureJoins            = "Joins"
)

type TypeNotSupportedError struct{ RawType string }

func (e *TypeNotSupportedError) Error() string {
	return fmt.Sprintf("type not supported: %q", e.RawType)
}

type IndeterminateParameterDataTypeError struct{ Index int }

func (e *IndeterminateParameterDataTypeError) Error() string {
	return fmt.Sprintf("could not determine data type of parameter $%d", e.Index)
}

type InsertArityMismatchError struct {
	RowIndex int
	Expected int
	Got      int
}

func (e *InsertArityMismatchError) Error() string {
	return fmt.Sprintf("row %d: expected %d values, got %d", e.RowIndex, e.Expected, e.Got)
}
