package ir

import "fmt"

// The evaluator/cast error taxonomy. Each is a distinct type so callers
// can errors.As to the kind they handle.

type InvalidTextRepresentationError struct {
	Family string
	Text   string
}

func (e *InvalidTextRepresentationError) Error() string {
	return fmt.Sprintf("invalid input syntax for type %s: %q", e.Family, e.Text)
}

type UndefinedBiFunctionError struct {
	Op    string
	Left  string
	Right string
}

func (e *UndefinedBiFunctionError) Error() string {
	return fmt.Sprintf("operator does not exist: %s %s %s", e.Left, e.Op, e.Right)
}

type UndefinedFunctionError struct {
	Op     string
	Family string
}

func (e *UndefinedFunctionError) Error() string {
	return fmt.Sprintf("function %s not defined for type %s", e.Op, e.Family)
}

type CannotCoerceError struct {
	From string
	To   string
}

func (e *CannotCoerceError) Error() string {
	return fmt.Sprintf("cannot cast type %s to %s", e.From, e.To)
}

type DatatypeMismatchError struct {
	Op       string
	Expected string
	Got      string
}

func (e *DatatypeMismatchError) Error() string {
	return fmt.Sprintf("argument of %s must be type %s, not type %s", e.Op, e.Expected, e.Got)
}

type InvalidArgumentForPowerFunctionError struct{}

func (e *InvalidArgumentForPowerFunctionError) Error() string {
	return "invalid argument for power function"
}
