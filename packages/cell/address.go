package cell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Address is a zero-based cell position within the active worksheet
type Address struct {
	Row    uint32
	Column uint32
}

// String returns the A1 name of the address
func (a Address) String() string {
	name, err := excelize.CoordinatesToCellName(int(a.Column)+1, int(a.Row)+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", a.Row+1, a.Column+1)
	}
	return name
}

// ParseAddress parses an A1 style reference. absolute markers ($) are
// accepted and ignored.
func ParseAddress(name string) (Address, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "$", "")
	col, row, err := excelize.CellNameToCoordinates(name)
	if err != nil {
		return Address{}, fmt.Errorf("invalid cell reference %q: %w", name, err)
	}
	return Address{Row: uint32(row - 1), Column: uint32(col - 1)}, nil
}

// MustParseAddress is ParseAddress for literals known to be valid
func MustParseAddress(name string) Address {
	addr, err := ParseAddress(name)
	if err != nil {
		panic(err)
	}
	return addr
}

// Less orders addresses by row, then column
func (a Address) Less(b Address) bool {
	if a.Row != b.Row {
		return a.Row < b.Row
	}
	return a.Column < b.Column
}

// Range represents a rectangular block of cells within a single worksheet
type Range struct {
	StartRow    uint32
	StartColumn uint32
	EndRow      uint32
	EndColumn   uint32
}

// ParseRange parses "A1:C3", a span of whole columns "A:C" or a span of
// whole rows "1:3". the ends may be given in any order.
func ParseRange(ref string) (Range, error) {
	parts := strings.Split(ref, ":")
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("invalid range reference %q", ref)
	}
	if first, last, ok := columnSpan(parts[0], parts[1]); ok {
		return Range{StartRow: 0, StartColumn: first, EndRow: excelize.TotalRows - 1, EndColumn: last}, nil
	}
	if first, last, ok := rowSpan(parts[0], parts[1]); ok {
		return Range{StartRow: first, StartColumn: 0, EndRow: last, EndColumn: excelize.MaxColumns - 1}, nil
	}
	start, err := ParseAddress(parts[0])
	if err != nil {
		return Range{}, err
	}
	end, err := ParseAddress(parts[1])
	if err != nil {
		return Range{}, err
	}
	return Range{
		StartRow:    min(start.Row, end.Row),
		StartColumn: min(start.Column, end.Column),
		EndRow:      max(start.Row, end.Row),
		EndColumn:   max(start.Column, end.Column),
	}, nil
}

func columnSpan(from, to string) (first, last uint32, ok bool) {
	a, err := excelize.ColumnNameToNumber(strings.TrimPrefix(strings.TrimSpace(from), "$"))
	if err != nil {
		return 0, 0, false
	}
	b, err := excelize.ColumnNameToNumber(strings.TrimPrefix(strings.TrimSpace(to), "$"))
	if err != nil {
		return 0, 0, false
	}
	return uint32(min(a, b) - 1), uint32(max(a, b) - 1), true
}

func rowSpan(from, to string) (first, last uint32, ok bool) {
	parse := func(s string) (int, bool) {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "$"))
		return n, err == nil && n >= 1 && n <= excelize.TotalRows
	}
	a, okA := parse(from)
	b, okB := parse(to)
	if !okA || !okB {
		return 0, 0, false
	}
	return uint32(min(a, b) - 1), uint32(max(a, b) - 1), true
}

// Contains checks if a cell is within the range
func (r Range) Contains(a Address) bool {
	return a.Row >= r.StartRow && a.Row <= r.EndRow &&
		a.Column >= r.StartColumn && a.Column <= r.EndColumn
}

func (r Range) String() string {
	start := Address{Row: r.StartRow, Column: r.StartColumn}
	end := Address{Row: r.EndRow, Column: r.EndColumn}
	return start.String() + ":" + end.String()
}
