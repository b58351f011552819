package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/go-formulabar/packages/cell"
)

func TestParseAssignment(t *testing.T) {
	tests := []struct {
		arg      string
		wantCell string
		wantText string
	}{
		{"A1=5", "A1", "5"},
		{"B1==A1*2", "B1", "=A1*2"},
		{"C3=", "C3", ""},
		{"$D$4=a=b", "D4", "a=b"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			addr, text, err := parseAssignment(tt.arg)
			require.NoError(t, err)
			assert.Equal(t, cell.MustParseAddress(tt.wantCell), addr)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestParseAssignmentInvalid(t *testing.T) {
	for _, arg := range []string{"book.xlsx", "notacell=1", "=5"} {
		_, _, err := parseAssignment(arg)
		assert.Error(t, err, arg)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestApplyAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	out, err := run(t, "apply", path, "A1=5", "B1==A1*2", "A1=6", "--save")
	require.NoError(t, err)
	assert.Equal(t, "A1\t5\nB1\t10\nA1\t6\n", out)

	out, err = run(t, "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "=A1*2")
	assert.Contains(t, out, "12")
}

func TestApplyRejectsInvalidFormula(t *testing.T) {
	_, err := run(t, "apply", "A1==1+")
	assert.ErrorContains(t, err, "A1")
	assert.ErrorContains(t, err, "cannot parse formula")
}

func TestApplyWithoutEdits(t *testing.T) {
	_, err := run(t, "apply", filepath.Join(t.TempDir(), "book.xlsx"))
	assert.ErrorContains(t, err, "no CELL=TEXT edits")
}
