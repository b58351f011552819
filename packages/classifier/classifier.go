// Package classifier decides whether formula bar text is a formula or a
// literal and, for formulas, produces the value to display.
package classifier

import (
	"errors"
	"strings"

	"github.com/vogtb/go-formulabar/packages/cell"
	"github.com/vogtb/go-formulabar/packages/formula"
)

// DefaultSentinel marks text as a formula
const DefaultSentinel = "="

// Classifier separates formulas from literals and evaluates formulas
type Classifier interface {
	// IsFormula is total over any input, including the empty string
	IsFormula(text string) bool

	// Parse returns the computed display value of a formula evaluated at
	// the given cell. it fails with *FormulaParseError for malformed or
	// unresolvable formulas.
	Parse(at cell.Address, text string) (string, error)
}

// Evaluator computes a formula's display value. formulas are passed in
// Excel form, with a leading "=".
type Evaluator interface {
	Evaluate(at cell.Address, formula string) (string, error)
}

// EvaluatorFunc adapts a function to Evaluator
type EvaluatorFunc func(at cell.Address, formula string) (string, error)

func (f EvaluatorFunc) Evaluate(at cell.Address, formula string) (string, error) {
	return f(at, formula)
}

var errNotFormula = errors.New("text does not start with the formula sentinel")

// FormulaClassifier is the prefix based Classifier. syntax is checked before
// the evaluator sees the formula.
type FormulaClassifier struct {
	sentinel  string
	evaluator Evaluator
}

var _ Classifier = (*FormulaClassifier)(nil)

type Option func(*FormulaClassifier)

// WithSentinel replaces the "=" formula prefix. an empty sentinel keeps the
// default.
func WithSentinel(sentinel string) Option {
	return func(fc *FormulaClassifier) {
		if sentinel != "" {
			fc.sentinel = sentinel
		}
	}
}

// New creates a classifier that evaluates formulas with evaluator
func New(evaluator Evaluator, opts ...Option) *FormulaClassifier {
	fc := &FormulaClassifier{
		sentinel:  DefaultSentinel,
		evaluator: evaluator,
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

// Sentinel returns the formula prefix in use
func (fc *FormulaClassifier) Sentinel() string {
	return fc.sentinel
}

func (fc *FormulaClassifier) IsFormula(text string) bool {
	return strings.HasPrefix(text, fc.sentinel)
}

func (fc *FormulaClassifier) Parse(at cell.Address, text string) (string, error) {
	if !fc.IsFormula(text) {
		return "", &ClassificationError{Text: text, Err: errNotFormula}
	}

	body := strings.TrimPrefix(text, fc.sentinel)
	if err := formula.Validate(body); err != nil {
		return "", &FormulaParseError{Formula: text, Err: err}
	}

	if fc.evaluator == nil {
		return "", &FormulaParseError{Formula: text, Err: errors.New("no evaluator configured")}
	}

	result, err := fc.evaluator.Evaluate(at, "="+body)
	if err != nil {
		return "", &FormulaParseError{Formula: text, Err: err}
	}
	return result, nil
}
