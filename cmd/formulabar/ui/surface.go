package ui

import "github.com/charmbracelet/bubbles/textinput"

// inputSurface lets the formula bar controller write to the text input
type inputSurface struct {
	input *textinput.Model
}

func (s inputSurface) SetDisplayText(text string) {
	s.input.SetValue(text)
}

func (s inputSurface) SetCursorPosition(pos int) {
	s.input.SetCursor(pos)
}
