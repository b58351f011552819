// Package ui is the terminal front end of formulabar: a worksheet grid with
// a formula bar above it.
package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/vogtb/go-formulabar/packages/app"
	"github.com/vogtb/go-formulabar/packages/cell"
	"github.com/vogtb/go-formulabar/packages/formulabar"
)

const (
	cellWidth   = 12
	defaultRows = 12
	defaultCols = 6
)

type mode int

const (
	modeNavigate mode = iota
	modeEdit
)

// FileChangedMsg reports that the workbook file changed on disk
type FileChangedMsg struct{}

// Model is the editor. it is a pointer model: the formula bar controller
// writes into the text input it owns.
type Model struct {
	app    *app.App
	ctrl   *formulabar.Controller
	input  textinput.Model
	styles Styles

	selected cell.Address
	top      uint32 // first visible row
	left     uint32 // first visible column
	mode     mode

	status    string
	statusErr bool

	width  int
	height int

	changes <-chan struct{}
}

// New creates the editor for a and binds the formula bar to A1
func New(a *app.App) *Model {
	input := textinput.New()
	input.Prompt = "fx "
	input.Placeholder = "value or =formula"
	input.CharLimit = 0
	input.Width = defaultCols*cellWidth - 3

	m := &Model{
		app:    a,
		input:  input,
		styles: DefaultStyles(),
	}
	m.ctrl = a.NewController(inputSurface{input: &m.input})
	m.ctrl.AddUpdateListener(formulabar.ListenerFuncs{
		Updated: func(c *cell.Cell) {
			m.setStatus(fmt.Sprintf("%s = %s", c.Address, c.Value()), false)
		},
		Failed: func(c *cell.Cell, text string, err error) {
			m.setStatus(err.Error(), true)
		},
	})
	m.bindSelected()
	return m
}

// WatchChanges makes the editor reload the workbook whenever changes
// receives a value
func (m *Model) WatchChanges(changes <-chan struct{}) {
	m.changes = changes
}

func (m *Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m *Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return FileChangedMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(10, msg.Width-12)
		m.scrollToSelection()
		return m, nil

	case FileChangedMsg:
		m.reload()
		return m, m.waitForChange()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+s":
			m.save()
			return m, nil
		}
		if m.mode == modeEdit {
			return m, m.updateEdit(msg)
		}
		return m, m.updateNavigate(msg)
	}

	if m.mode == modeEdit {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateNavigate(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyUp:
		m.move(-1, 0)
	case tea.KeyDown:
		m.move(1, 0)
	case tea.KeyLeft, tea.KeyShiftTab:
		m.move(0, -1)
	case tea.KeyRight, tea.KeyTab:
		m.move(0, 1)
	case tea.KeyEnter, tea.KeyF2:
		return m.startEdit()
	case tea.KeyBackspace, tea.KeyDelete:
		m.ctrl.OnTextChanged("")
		m.bindSelected()
	case tea.KeyRunes, tea.KeySpace:
		// typing over a cell replaces its content
		m.input.SetValue("")
		cmd := m.startEdit()
		return tea.Batch(cmd, m.updateEdit(msg))
	}
	return nil
}

func (m *Model) updateEdit(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		m.stopEdit()
		m.move(1, 0)
		return nil
	case tea.KeyTab:
		m.stopEdit()
		m.move(0, 1)
		return nil
	case tea.KeyEsc:
		m.stopEdit()
		m.bindSelected()
		return nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if text := m.input.Value(); text != before {
		m.ctrl.OnTextChanged(text)
	}
	return cmd
}

func (m *Model) startEdit() tea.Cmd {
	m.mode = modeEdit
	return m.input.Focus()
}

func (m *Model) stopEdit() {
	m.mode = modeNavigate
	m.input.Blur()
}

func (m *Model) move(rows, cols int) {
	row := int(m.selected.Row) + rows
	col := int(m.selected.Column) + cols
	if row < 0 || col < 0 || row >= excelize.TotalRows || col >= excelize.MaxColumns {
		return
	}
	m.selected = cell.Address{Row: uint32(row), Column: uint32(col)}
	m.scrollToSelection()
	m.bindSelected()
}

// bindSelected points the formula bar at the selected cell
func (m *Model) bindSelected() {
	m.ctrl.Bind(m.app.Workbook.Cell(m.selected))
}

func (m *Model) save() {
	path := m.app.Workbook.Path()
	if path == "" {
		m.setStatus("no file to save to; start formulabar with a file name", true)
		return
	}
	if err := m.app.Workbook.Save(); err != nil {
		m.app.Logger.Error("save failed", zap.Error(err))
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus("saved "+filepath.Base(path), false)
}

func (m *Model) reload() {
	reloaded, err := m.app.Workbook.Reload()
	if err != nil {
		m.app.Logger.Warn("reload failed", zap.Error(err))
		m.setStatus(err.Error(), true)
		return
	}
	if !reloaded {
		return
	}
	// cells were rebuilt; the bound pointer is stale
	m.stopEdit()
	m.bindSelected()
	m.setStatus("reloaded "+filepath.Base(m.app.Workbook.Path())+" from disk", false)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) visibleRows() int {
	if m.height <= 0 {
		return defaultRows
	}
	return max(1, m.height-6)
}

func (m *Model) visibleCols() int {
	if m.width <= 0 {
		return defaultCols
	}
	return max(1, (m.width-5)/cellWidth)
}

func (m *Model) scrollToSelection() {
	rows, cols := uint32(m.visibleRows()), uint32(m.visibleCols())
	if m.selected.Row < m.top {
		m.top = m.selected.Row
	} else if m.selected.Row >= m.top+rows {
		m.top = m.selected.Row - rows + 1
	}
	if m.selected.Column < m.left {
		m.left = m.selected.Column
	} else if m.selected.Column >= m.left+cols {
		m.left = m.selected.Column - cols + 1
	}
}

func (m *Model) View() string {
	var b strings.Builder

	title := "formulabar"
	if path := m.app.Workbook.Path(); path != "" {
		title += " - " + filepath.Base(path)
	}
	title += " [" + m.app.Workbook.Sheet() + "]"
	b.WriteString(m.styles.Header.Render(title))
	b.WriteString("\n")

	b.WriteString(m.styles.Address.Render(fmt.Sprintf("%-6s", m.selected.String())))
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	b.WriteString(m.renderGrid())
	b.WriteString("\n")

	if m.statusErr {
		b.WriteString(m.styles.StatusErr.Render(m.status))
	} else {
		b.WriteString(m.styles.Status.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("arrows move  enter edit  esc cancel  ctrl+s save  ctrl+c quit"))
	return b.String()
}

func (m *Model) renderGrid() string {
	rows, cols := m.visibleRows(), m.visibleCols()
	column := lipgloss.NewStyle().Width(cellWidth).MaxWidth(cellWidth)
	gutter := lipgloss.NewStyle().Width(5).MaxWidth(5)

	var lines []string
	header := []string{gutter.Render("")}
	for c := 0; c < cols; c++ {
		name, _ := excelize.ColumnNumberToName(int(m.left) + c + 1)
		header = append(header, m.styles.Axis.Inherit(column).Render(name))
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, header...))

	for r := 0; r < rows; r++ {
		row := m.top + uint32(r)
		parts := []string{m.styles.Axis.Inherit(gutter).Render(fmt.Sprint(row + 1))}
		for c := 0; c < cols; c++ {
			addr := cell.Address{Row: row, Column: m.left + uint32(c)}
			parts = append(parts, m.renderCell(addr, column))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, parts...))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderCell(addr cell.Address, column lipgloss.Style) string {
	text := ""
	style := m.styles.Cell
	if c, ok := m.app.Workbook.Lookup(addr); ok {
		text = c.Value()
		if c.HasFormula() && cell.IsErrorLiteral(text) {
			style = m.styles.ErrorValue
		}
	}

	if addr == m.selected {
		if m.mode == modeEdit {
			style = m.styles.Editing
		} else {
			style = m.styles.Selected
		}
	}
	return style.Inherit(column).Render(text)
}
