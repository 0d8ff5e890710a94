package domain

import "time"

// Shape is the code transformation chosen for an input.
type Shape string

const (
	ShapeExpression Shape = "expression"
	ShapeStatement  Shape = "statement"
)

// Values holds the results of a unit that returned more than one value.
type Values []any

// Result is the outcome of one execution.
// An error from evaluated code never surfaces as a Go error: it is summarized into
// Error and the same text is appended to Output.
type Result struct {
	Value    any
	Output   string
	Error    string
	Shape    Shape
	Bindings BindingDiff
	Duration time.Duration
}

// Failed reports whether evaluated code raised.
func (r Result) Failed() bool {
	return r.Error != ""
}
