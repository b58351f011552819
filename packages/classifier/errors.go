package classifier

import "fmt"

// ClassificationError reports that text could not be classified as formula
// or literal. a total classifier never produces it; it guards against
// misbehaving implementations.
type ClassificationError struct {
	Text string
	Err  error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot classify %q: %v", e.Text, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// FormulaParseError reports formula text that is syntactically invalid or
// whose references cannot be resolved at the evaluation site.
type FormulaParseError struct {
	Formula string
	Err     error
}

func (e *FormulaParseError) Error() string {
	return fmt.Sprintf("cannot parse formula %q: %v", e.Formula, e.Err)
}

func (e *FormulaParseError) Unwrap() error { return e.Err }
