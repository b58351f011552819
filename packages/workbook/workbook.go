// Package workbook is the worksheet engine behind the formula bar. It owns
// the cells of the active sheet, evaluates formulas with excelize and
// recalculates dependents after an edit is committed.
package workbook

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/vogtb/go-formulabar/packages/cell"
	"github.com/vogtb/go-formulabar/packages/classifier"
	"github.com/vogtb/go-formulabar/packages/depgraph"
	"github.com/vogtb/go-formulabar/packages/formula"
)

// DefaultSheet is the sheet excelize creates for a new file
const DefaultSheet = "Sheet1"

// Workbook holds the active sheet of an xlsx file. It is not safe for
// concurrent use; all calls are expected on the editing thread.
type Workbook struct {
	file     *excelize.File
	sheet    string
	path     string
	sentinel string
	logger   *zap.Logger

	cells map[cell.Address]*cell.Cell
	graph *depgraph.Graph

	// modification time of the file as last written or read by us
	syncedAt time.Time
}

var _ classifier.Evaluator = (*Workbook)(nil)

type Option func(*Workbook)

// WithLogger sets the logger used for engine diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(w *Workbook) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithSheet selects the sheet to edit. for New it names the created sheet.
func WithSheet(name string) Option {
	return func(w *Workbook) {
		if name != "" {
			w.sheet = name
		}
	}
}

// WithSentinel sets the prefix cell formulas carry in the editor. formulas
// are stored in the file with Excel's "=" convention regardless.
func WithSentinel(sentinel string) Option {
	return func(w *Workbook) {
		if sentinel != "" {
			w.sentinel = sentinel
		}
	}
}

func newWorkbook(opts []Option) *Workbook {
	w := &Workbook{
		sentinel: classifier.DefaultSentinel,
		logger:   zap.NewNop(),
		cells:    make(map[cell.Address]*cell.Cell),
		graph:    depgraph.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// New creates an empty in-memory workbook
func New(opts ...Option) (*Workbook, error) {
	w := newWorkbook(opts)
	w.file = excelize.NewFile()

	if w.sheet == "" {
		w.sheet = DefaultSheet
	} else if w.sheet != DefaultSheet {
		if err := w.file.SetSheetName(DefaultSheet, w.sheet); err != nil {
			_ = w.file.Close()
			return nil, wrapApplicationError(InvalidArgument, "invalid sheet name "+w.sheet, err)
		}
	}

	return w, nil
}

// Sheet returns the name of the active sheet
func (w *Workbook) Sheet() string {
	return w.sheet
}

// Cell returns the cell at addr, creating an empty one if needed. the
// workbook keeps ownership; callers hold the pointer only while bound.
func (w *Workbook) Cell(addr cell.Address) *cell.Cell {
	if c, exists := w.cells[addr]; exists {
		return c
	}
	c := cell.New(addr)
	w.cells[addr] = c
	return c
}

// Lookup returns the cell at addr if it has been created
func (w *Workbook) Lookup(addr cell.Address) (*cell.Cell, bool) {
	c, exists := w.cells[addr]
	return c, exists
}

// Cells returns every non-empty cell ordered by row, then column
func (w *Workbook) Cells() []*cell.Cell {
	result := make([]*cell.Cell, 0, len(w.cells))
	for _, c := range w.cells {
		if !c.IsEmpty() {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address.Less(result[j].Address)
	})
	return result
}

// Evaluate computes formula as if it were entered at addr, without
// changing the workbook. references that would close a cycle fail with a
// #REF! SpreadsheetError. formulas evaluating to an Excel error value
// (#DIV/0!, #N/A, ...) succeed with that value as their display text.
func (w *Workbook) Evaluate(at cell.Address, expr string) (string, error) {
	body := strings.TrimPrefix(expr, "=")

	cells, ranges := formula.References(w.sheet, body)
	if w.graph.WouldCycle(at, cells, ranges) {
		return "", cell.NewSpreadsheetError(cell.ErrorCodeRef, "Circular reference detected")
	}

	name := at.String()
	defer w.restore(at)

	if err := w.file.SetCellFormula(w.sheet, name, body); err != nil {
		return "", wrapApplicationError(InvalidArgument, "cannot set formula at "+name, err)
	}
	result, err := w.file.CalcCellValue(w.sheet, name)
	if err != nil {
		if literal, ok := errorValue(result, err); ok {
			return literal, nil
		}
		return "", wrapApplicationError(Unknown, "cannot evaluate formula at "+name, err)
	}
	return result, nil
}

// RecalculateAffectedCells writes a committed cell through to the engine,
// updates its dependencies and recomputes every cell that reads it,
// directly or transitively, in calculation order. returns the addresses of
// the recomputed cells.
func (w *Workbook) RecalculateAffectedCells(c *cell.Cell) ([]cell.Address, error) {
	addr := c.Address
	if existing, exists := w.cells[addr]; !exists || existing != c {
		w.cells[addr] = c
	}

	if err := w.writeThrough(c); err != nil {
		return nil, err
	}

	if expr, ok := c.Formula(); ok {
		cells, ranges := formula.References(w.sheet, w.excelFormula(expr))
		w.graph.SetPrecedents(addr, cells, ranges)
	} else {
		w.graph.Clear(addr)
	}

	ordered, cyclic := w.graph.Order(w.graph.AffectedCells(addr))
	w.applyCycleErrors(cyclic)
	for _, dep := range ordered {
		if depCell, exists := w.cells[dep]; exists && depCell.HasFormula() {
			depCell.SetResult(w.calculate(dep))
		}
	}

	updated := append(ordered, cyclic...)
	sort.Slice(updated, func(i, j int) bool {
		return updated[i].Less(updated[j])
	})
	return updated, nil
}

// CellUpdated recalculates after the formula bar commits an edit
func (w *Workbook) CellUpdated(c *cell.Cell) {
	updated, err := w.RecalculateAffectedCells(c)
	if err != nil {
		w.logger.Error("recalculation failed",
			zap.Stringer("cell", c.Address),
			zap.Error(err))
		return
	}
	w.logger.Debug("recalculated",
		zap.Stringer("cell", c.Address),
		zap.Int("dependents", len(updated)))
}

// ClassificationFailed leaves the engine untouched; the cell kept its
// previous state
func (w *Workbook) ClassificationFailed(c *cell.Cell, text string, err error) {
	w.logger.Debug("edit rejected",
		zap.Stringer("cell", c.Address),
		zap.String("text", text),
		zap.Error(err))
}

// calculate evaluates the formula stored at addr and returns its display
// value. engine failures show as #VALUE!.
func (w *Workbook) calculate(addr cell.Address) string {
	result, err := w.file.CalcCellValue(w.sheet, addr.String())
	if err != nil {
		if literal, ok := errorValue(result, err); ok {
			return literal
		}
		w.logger.Warn("formula evaluation failed",
			zap.Stringer("cell", addr),
			zap.Error(err))
		return cell.ErrorMapper[cell.ErrorCodeValue]
	}
	return result
}

func (w *Workbook) applyCycleErrors(cyclic []cell.Address) {
	circular := cell.NewSpreadsheetError(cell.ErrorCodeRef, "Circular reference detected")
	for _, addr := range cyclic {
		if c, exists := w.cells[addr]; exists && c.HasFormula() {
			c.SetResult(circular.Literal())
		}
	}
}

// errorValue extracts the Excel error literal from a failed calculation
func errorValue(result string, err error) (string, bool) {
	if cell.IsErrorLiteral(result) {
		return strings.TrimSpace(result), true
	}
	if err != nil && cell.IsErrorLiteral(err.Error()) {
		return strings.TrimSpace(err.Error()), true
	}
	return "", false
}

// excelFormula converts an editor formula into the sentinel-free body
// excelize stores
func (w *Workbook) excelFormula(expr string) string {
	return strings.TrimPrefix(expr, w.sentinel)
}

// writeThrough copies the committed state of c into the engine
func (w *Workbook) writeThrough(c *cell.Cell) error {
	name := c.Address.String()
	if expr, ok := c.Formula(); ok {
		if err := w.file.SetCellFormula(w.sheet, name, w.excelFormula(expr)); err != nil {
			return wrapApplicationError(Internal, "cannot store formula at "+name, err)
		}
		return nil
	}

	if err := w.file.SetCellFormula(w.sheet, name, ""); err != nil {
		return wrapApplicationError(Internal, "cannot clear formula at "+name, err)
	}
	if err := w.setLiteral(name, c.Value()); err != nil {
		return wrapApplicationError(Internal, "cannot store value at "+name, err)
	}
	return nil
}

// restore puts the committed state of addr back into the engine
func (w *Workbook) restore(addr cell.Address) {
	c, exists := w.cells[addr]
	if !exists {
		c = cell.New(addr)
	}
	if err := w.writeThrough(c); err != nil {
		w.logger.Error("cannot restore cell", zap.Stringer("cell", addr), zap.Error(err))
	}
}

// setLiteral stores typed text with the closest spreadsheet type so that
// formulas can do arithmetic on it. numbers are only stored as numbers when
// that keeps the typed text; "007" and "1.50" stay text.
func (w *Workbook) setLiteral(name, value string) error {
	if value == "" {
		return w.file.SetCellValue(w.sheet, name, nil)
	}

	trimmed := strings.TrimSpace(value)
	if number, ok := canonicalNumber(value); ok {
		return w.file.SetCellFloat(w.sheet, name, number, -1, 64)
	}

	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return w.file.SetCellBool(w.sheet, name, true)
	case "FALSE":
		return w.file.SetCellBool(w.sheet, name, false)
	}

	return w.file.SetCellStr(w.sheet, name, value)
}

// canonicalNumber parses value when the number formats back to exactly the
// same text
func canonicalNumber(value string) (float64, bool) {
	number, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsInf(number, 0) || math.IsNaN(number) {
		return 0, false
	}
	return number, strconv.FormatFloat(number, 'f', -1, 64) == value
}
