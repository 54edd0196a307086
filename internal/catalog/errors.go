package catalog

import "fmt"

// Each catalog failure is a distinct error type so a caller can errors.As
// into the one it cares about instead of matching on message text.

type SchemaAlreadyExistsError struct{ Name string }

func (e *SchemaAlreadyExistsError) Error() string {
	return fmt.Sprintf("schema %q already exists", e.Name)
}

type SchemaDoesNotExistError struct{ Name string }

func (e *SchemaDoesNotExistError) Error() string {
	return fmt.Sprintf("schema %q does not exist", e.Name)
}

type SchemaHasDependentObjectsError struct{ Name string }

func (e *SchemaHasDependentObjectsError) Error() string {
	return fmt.Sprintf("schema %q has dependent objects", e.Name)
}

type TableAlreadyExistsError struct{ Schema, Table string }

func (e *TableAlreadyExistsError) Error() string {
	return fmt.Sprintf("table %q.%q already exists", e.Schema, e.Table)
}

type TableDoesNotExistError struct{ Schema, Table string }

func (e *TableDoesNotExistError) Error() string {
	return fmt.Sprintf("table %q.%q does not exist", e.Schema, e.Table)
}

type ColumnNotFoundError struct{ Schema, Table, Column string }

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found in %q.%q", e.Column, e.Schema, e.Table)
}

// InvalidNameError reports an identifier rejected before any storage call
// was made.
type InvalidNameError struct{ Reason string }

func (e *InvalidNameError) Error() string { return "invalid name: " + e.Reason }
