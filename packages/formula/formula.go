// Package formula checks formula syntax and extracts cell references using
// the Excel formula tokenizer. Formulas are handled without their leading
// sentinel.
package formula

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/efp"

	"github.com/vogtb/go-formulabar/packages/cell"
)

// SyntaxError describes why a formula body could not be tokenized into a
// well formed expression
type SyntaxError struct {
	Formula string
	Reason  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid formula %q: %s", e.Formula, e.Reason)
}

// ErrEmpty is returned for a formula with nothing after its sentinel
var ErrEmpty = errors.New("empty formula")

func tokenize(body string) []efp.Token {
	ps := efp.ExcelParser()
	return ps.Parse(body)
}

// Validate checks that body is a well formed formula expression
func Validate(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmpty
	}

	// efp consumes unterminated strings silently, so count quotes first.
	// doubled quotes inside a string literal keep the count even
	if strings.Count(body, `"`)%2 != 0 {
		return &SyntaxError{Formula: body, Reason: "unterminated string literal"}
	}

	tokens := tokenize(body)
	if len(tokens) == 0 {
		return &SyntaxError{Formula: body, Reason: "no tokens"}
	}

	depth := 0
	var last *efp.Token
	for i := range tokens {
		token := &tokens[i]
		switch {
		case token.TType == efp.TokenTypeUnknown:
			return &SyntaxError{Formula: body, Reason: fmt.Sprintf("unrecognized token %q", token.TValue)}
		case token.TSubType == efp.TokenSubTypeStart:
			depth++
		case token.TSubType == efp.TokenSubTypeStop:
			depth--
			if depth < 0 {
				return &SyntaxError{Formula: body, Reason: "unexpected )"}
			}
		}
		if token.TType != efp.TokenTypeWhitespace {
			last = token
		}
	}
	if depth > 0 {
		return &SyntaxError{Formula: body, Reason: "missing )"}
	}
	if last != nil && (last.TType == efp.TokenTypeOperatorInfix || last.TType == efp.TokenTypeArgument) {
		return &SyntaxError{Formula: body, Reason: fmt.Sprintf("incomplete expression after %q", last.TValue)}
	}

	return nil
}

// References returns the cells and ranges on sheet that body refers to.
// qualified references are kept when they name sheet; references to other
// sheets and defined names are skipped.
func References(sheet, body string) (cells []cell.Address, ranges []cell.Range) {
	seenCells := make(map[cell.Address]struct{})
	seenRanges := make(map[cell.Range]struct{})

	for _, token := range tokenize(body) {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		ref, ok := localRef(sheet, token.TValue)
		if !ok {
			continue
		}

		if strings.Contains(ref, ":") {
			r, err := cell.ParseRange(ref)
			if err != nil {
				continue
			}
			if _, seen := seenRanges[r]; !seen {
				seenRanges[r] = struct{}{}
				ranges = append(ranges, r)
			}
			continue
		}

		addr, err := cell.ParseAddress(ref)
		if err != nil {
			continue
		}
		if _, seen := seenCells[addr]; !seen {
			seenCells[addr] = struct{}{}
			cells = append(cells, addr)
		}
	}

	return cells, ranges
}

// localRef strips a "Sheet1!" or "'My Sheet'!" qualifier from ref when it
// names sheet. sheet names compare case-insensitively, as in Excel
func localRef(sheet, ref string) (string, bool) {
	i := strings.LastIndex(ref, "!")
	if i < 0 {
		return ref, true
	}
	name := ref[:i]
	if len(name) >= 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	if !strings.EqualFold(name, sheet) {
		return "", false
	}
	return ref[i+1:], true
}
