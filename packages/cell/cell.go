// Package cell holds the worksheet cell entity edited through the formula
// bar, along with its address type and the spreadsheet error codes that may
// show up as cell values.
package cell

import (
	"errors"
	"strings"
)

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions
type ErrorCode uint8

const (
	ErrorCodeNull  ErrorCode = 1 // #NULL! - no cells in common between ranges
	ErrorCodeDiv0  ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef   ErrorCode = 4 // #REF! - invalid cell reference
	ErrorCodeName  ErrorCode = 5 // #NAME? - unrecognized function name
	ErrorCodeNum   ErrorCode = 6 // #NUM! - number too large or small to be represented
	ErrorCodeNA    ErrorCode = 7 // #N/A - value not available
	ErrorCodeOther ErrorCode = 8 // #ERROR! - all other errors
)

// ErrorMapper maps error code numbers to their string representations
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeNull:  "#NULL!",
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
	ErrorCodeName:  "#NAME?",
	ErrorCodeNum:   "#NUM!",
	ErrorCodeNA:    "#N/A",
	ErrorCodeOther: "#ERROR!",
}

// SpreadsheetError preserves error code for display in cells
type SpreadsheetError struct {
	ErrorCode ErrorCode
	Message   string
}

func (e *SpreadsheetError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrorMapper[e.ErrorCode]
}

// Literal returns the text shown in a cell holding this error
func (e *SpreadsheetError) Literal() string {
	return ErrorMapper[e.ErrorCode]
}

func NewSpreadsheetError(code ErrorCode, message string) *SpreadsheetError {
	if message == "" {
		message = ErrorMapper[code]
	}
	return &SpreadsheetError{
		ErrorCode: code,
		Message:   message,
	}
}

// IsErrorLiteral reports whether text is one of the error values a formula
// may evaluate to, e.g. "#DIV/0!".
func IsErrorLiteral(text string) bool {
	text = strings.TrimSpace(text)
	for _, literal := range ErrorMapper {
		if text == literal {
			return true
		}
	}
	return false
}

// ErrLocked is reported when an edit targets a locked cell.
var ErrLocked = errors.New("cell is locked")

// State is a comparable copy of a cell's committed content.
type State struct {
	Formula    string
	HasFormula bool
	Value      string
	Locked     bool
}

// Cell is one worksheet position's formula/value pair. Either the formula is
// set and the value holds its last computed result, or the formula is absent
// and the value holds the literal the user typed. An absent formula is stored
// as the empty string: a formula always starts with its sentinel so it is
// never empty.
type Cell struct {
	Address Address

	formula string
	value   string
	locked  bool
}

// New creates an empty cell at addr
func New(addr Address) *Cell {
	return &Cell{Address: addr}
}

// NewLiteral creates a cell holding a literal value
func NewLiteral(addr Address, value string) *Cell {
	return &Cell{Address: addr, value: value}
}

// NewFormula creates a cell holding formula and its computed value
func NewFormula(addr Address, formula, value string) *Cell {
	return &Cell{Address: addr, formula: formula, value: value}
}

// Formula returns the formula text and whether one is present
func (c *Cell) Formula() (string, bool) {
	return c.formula, c.formula != ""
}

// HasFormula reports whether the cell holds a formula
func (c *Cell) HasFormula() bool {
	return c.formula != ""
}

// Value returns the literal or the last computed formula result
func (c *Cell) Value() string {
	return c.value
}

// Display returns what an editor shows for this cell: the formula when
// present, else the value.
func (c *Cell) Display() string {
	if c.formula != "" {
		return c.formula
	}
	return c.value
}

// SetFormula stores a formula together with its computed result. an empty
// formula is treated as a literal.
func (c *Cell) SetFormula(formula, result string) {
	c.formula = formula
	c.value = result
}

// SetLiteral drops any formula and stores value as typed
func (c *Cell) SetLiteral(value string) {
	c.formula = ""
	c.value = value
}

// SetResult refreshes the computed value of a formula cell, leaving the
// formula untouched. used by recalculation.
func (c *Cell) SetResult(value string) {
	c.value = value
}

// IsEmpty reports whether the cell holds neither a formula nor a value
func (c *Cell) IsEmpty() bool {
	return c.formula == "" && c.value == ""
}

func (c *Cell) Lock()        { c.locked = true }
func (c *Cell) Unlock()      { c.locked = false }
func (c *Cell) Locked() bool { return c.locked }

// Snapshot returns a copy of the committed content
func (c *Cell) Snapshot() State {
	return State{
		Formula:    c.formula,
		HasFormula: c.formula != "",
		Value:      c.value,
		Locked:     c.locked,
	}
}
