package ferrors

import "strings"

// AggregateError collects more than one error. future.WhenAllSlice only
// ever surfaces the first error to reach the result (first-to-ready-with-
// error wins), so future.CollectErrors uses AggregateError to fold every
// rejected input's error together for callers who want to see all of them
// as a diagnostic, instead of discarding the rest.
type AggregateError struct {
	Errors []error
}

// NewAggregateError filters out nil errors and returns nil if nothing
// remains, so callers can write `return NewAggregateError(errs...)`
// directly as an error return.
func NewAggregateError(errs ...error) error {
	agg := &AggregateError{}
	for _, err := range errs {
		if err != nil {
			agg.Errors = append(agg.Errors, err)
		}
	}
	if len(agg.Errors) == 0 {
		return nil
	}
	if len(agg.Errors) == 1 {
		return agg.Errors[0]
	}
	return agg
}

// Error implements error.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("multiple errors occurred:\n")
	for i, err := range e.Errors {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap supports errors.Is/errors.As over every contained error.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// AggregateErrorCause returns the first collected error, the one a
// consumer usually wants on fast inspection.
func (e *AggregateError) AggregateErrorCause() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}
