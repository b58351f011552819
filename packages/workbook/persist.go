package workbook

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/vogtb/go-formulabar/packages/cell"
	"github.com/vogtb/go-formulabar/packages/formula"
)

// Open loads the active sheet (or the sheet chosen with WithSheet) of an
// xlsx file
func Open(path string, opts ...Option) (*Workbook, error) {
	w := newWorkbook(opts)
	w.path = path

	file, err := openFile(path)
	if err != nil {
		return nil, err
	}
	if err := w.attach(file); err != nil {
		_ = file.Close()
		return nil, err
	}

	w.logger.Info("workbook opened",
		zap.String("path", path),
		zap.String("sheet", w.sheet),
		zap.Int("cells", len(w.cells)))
	return w, nil
}

// OpenOrNew opens path when it exists and starts an empty workbook bound to
// path otherwise
func OpenOrNew(path string, opts ...Option) (*Workbook, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		w, err := New(opts...)
		if err != nil {
			return nil, err
		}
		w.path = path
		return w, nil
	}
	return Open(path, opts...)
}

func openFile(path string) (*excelize.File, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, wrapApplicationError(NotFound, "workbook not found", err)
		}
		return nil, wrapApplicationError(InvalidArgument, "cannot open workbook "+path, err)
	}
	return file, nil
}

// attach switches the engine to file and rebuilds the cell store from it
func (w *Workbook) attach(file *excelize.File) error {
	sheet := w.sheet
	if sheet == "" {
		sheet = file.GetSheetName(file.GetActiveSheetIndex())
	}
	if idx, err := file.GetSheetIndex(sheet); err != nil || idx < 0 {
		return NewApplicationError(NotFound, "worksheet "+sheet+" not found")
	}

	w.file = file
	w.sheet = sheet
	if info, err := os.Stat(w.path); err == nil {
		w.syncedAt = info.ModTime()
	}
	return w.load()
}

// load rebuilds cells and dependencies from the sheet, then computes every
// formula in calculation order
func (w *Workbook) load() error {
	w.cells = make(map[cell.Address]*cell.Cell)
	w.graph.Reset()

	bounds, ok, err := w.dimension()
	if err != nil || !ok {
		return err
	}

	var formulaCells []cell.Address
	for row := bounds.StartRow; row <= bounds.EndRow; row++ {
		for col := bounds.StartColumn; col <= bounds.EndColumn; col++ {
			addr := cell.Address{Row: row, Column: col}
			name := addr.String()

			body, err := w.file.GetCellFormula(w.sheet, name)
			if err != nil {
				return wrapApplicationError(Internal, "cannot read formula at "+name, err)
			}
			if body != "" {
				body = strings.TrimPrefix(body, "=")
				w.cells[addr] = cell.NewFormula(addr, w.sentinel+body, "")
				cells, ranges := formula.References(w.sheet, body)
				w.graph.SetPrecedents(addr, cells, ranges)
				formulaCells = append(formulaCells, addr)
				continue
			}

			value, err := w.file.GetCellValue(w.sheet, name, excelize.Options{RawCellValue: true})
			if err != nil {
				return wrapApplicationError(Internal, "cannot read value at "+name, err)
			}
			if value != "" {
				w.cells[addr] = cell.NewLiteral(addr, value)
			}
		}
	}

	ordered, cyclic := w.graph.Order(formulaCells)
	w.applyCycleErrors(cyclic)
	for _, addr := range ordered {
		w.cells[addr].SetResult(w.calculate(addr))
	}
	return nil
}

// dimension returns the used area of the sheet: the recorded dimension
// widened by every row that holds a value. ok is false for an empty sheet.
func (w *Workbook) dimension() (bounds cell.Range, ok bool, err error) {
	ref, err := w.file.GetSheetDimension(w.sheet)
	if err != nil {
		return cell.Range{}, false, wrapApplicationError(Internal, "cannot read sheet dimension", err)
	}
	if ref != "" {
		if !strings.Contains(ref, ":") {
			ref = ref + ":" + ref
		}
		if bounds, err = cell.ParseRange(ref); err == nil {
			ok = true
		}
	}

	rows, err := w.file.GetRows(w.sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return cell.Range{}, false, wrapApplicationError(Internal, "cannot read rows", err)
	}
	for r, row := range rows {
		if len(row) == 0 {
			continue
		}
		last := cell.Address{Row: uint32(r), Column: uint32(len(row) - 1)}
		if !ok {
			bounds = cell.Range{StartRow: last.Row, EndRow: last.Row, EndColumn: last.Column}
			ok = true
		}
		bounds.StartRow = min(bounds.StartRow, last.Row)
		bounds.StartColumn = 0
		bounds.EndRow = max(bounds.EndRow, last.Row)
		bounds.EndColumn = max(bounds.EndColumn, last.Column)
	}
	return bounds, ok, nil
}

// usedRange returns the area covered by non-empty cells
func (w *Workbook) usedRange() (cell.Range, bool) {
	var bounds cell.Range
	found := false
	for addr, c := range w.cells {
		if c.IsEmpty() {
			continue
		}
		if !found {
			bounds = cell.Range{StartRow: addr.Row, StartColumn: addr.Column, EndRow: addr.Row, EndColumn: addr.Column}
			found = true
			continue
		}
		bounds.StartRow = min(bounds.StartRow, addr.Row)
		bounds.StartColumn = min(bounds.StartColumn, addr.Column)
		bounds.EndRow = max(bounds.EndRow, addr.Row)
		bounds.EndColumn = max(bounds.EndColumn, addr.Column)
	}
	return bounds, found
}

// Path returns the file the workbook is bound to, if any
func (w *Workbook) Path() string {
	return w.path
}

// Save writes the workbook back to its file
func (w *Workbook) Save() error {
	if w.path == "" {
		return NewApplicationError(FailedPrecondition, "workbook has no file path")
	}
	return w.SaveAs(w.path)
}

// SaveAs writes the workbook to path and binds it to that file
func (w *Workbook) SaveAs(path string) error {
	if used, ok := w.usedRange(); ok {
		if err := w.file.SetSheetDimension(w.sheet, used.String()); err != nil {
			return wrapApplicationError(Internal, "cannot record sheet dimension", err)
		}
	}
	if err := w.file.SaveAs(path); err != nil {
		return wrapApplicationError(Internal, "cannot save workbook "+path, err)
	}
	w.path = path
	if info, err := os.Stat(path); err == nil {
		w.syncedAt = info.ModTime()
	}
	w.logger.Info("workbook saved", zap.String("path", path))
	return nil
}

// Reload rereads the file when it changed since we last read or wrote it.
// cell pointers handed out before a reload are stale; editors must rebind.
func (w *Workbook) Reload() (bool, error) {
	if w.path == "" {
		return false, NewApplicationError(FailedPrecondition, "workbook has no file path")
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return false, wrapApplicationError(NotFound, "workbook not found", err)
	}
	if info.ModTime().Equal(w.syncedAt) {
		return false, nil
	}

	file, err := openFile(w.path)
	if err != nil {
		return false, err
	}
	previous := w.file
	if err := w.attach(file); err != nil {
		_ = file.Close()
		w.file = previous
		if loadErr := w.load(); loadErr != nil {
			w.logger.Error("cannot restore previous workbook", zap.Error(loadErr))
		}
		return false, err
	}
	_ = previous.Close()

	w.logger.Info("workbook reloaded",
		zap.String("path", w.path),
		zap.Time("modified", info.ModTime()))
	return true, nil
}

// SyncedAt returns the file modification time of the last read or write
func (w *Workbook) SyncedAt() time.Time {
	return w.syncedAt
}

// Close releases the engine
func (w *Workbook) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}
