// Package formulabar turns the live text of a formula bar into committed
// cell state. Every keystroke is classified as formula or literal; formulas
// are evaluated and the bound cell is updated atomically before listeners
// are told about it.
package formulabar

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vogtb/go-formulabar/packages/cell"
	"github.com/vogtb/go-formulabar/packages/classifier"
)

// ErrUnboundEdit is logged when text changes arrive with no bound cell.
// such edits are dropped; it is never returned to callers.
var ErrUnboundEdit = errors.New("text changed with no bound cell")

// Surface is the text input the controller writes to when a cell is bound
type Surface interface {
	SetDisplayText(text string)
	// SetCursorPosition takes a position counted in runes
	SetCursorPosition(pos int)
}

// Listener is notified synchronously, on the editing thread, after every
// edit. listeners must re-read the cell; no other payload is promised.
type Listener interface {
	// CellUpdated runs after the edit has been committed to c
	CellUpdated(c *cell.Cell)
	// ClassificationFailed runs instead of CellUpdated when text could not
	// be committed. c still holds its previous state.
	ClassificationFailed(c *cell.Cell, text string, err error)
}

// ListenerFuncs adapts plain functions to Listener. nil funcs are skipped.
type ListenerFuncs struct {
	Updated func(c *cell.Cell)
	Failed  func(c *cell.Cell, text string, err error)
}

func (l ListenerFuncs) CellUpdated(c *cell.Cell) {
	if l.Updated != nil {
		l.Updated(c)
	}
}

func (l ListenerFuncs) ClassificationFailed(c *cell.Cell, text string, err error) {
	if l.Failed != nil {
		l.Failed(c, text, err)
	}
}

type registration struct {
	id       uuid.UUID
	listener Listener
}

// Controller is the formula bar logic. it is not safe for concurrent use;
// the surface, the controller and its listeners share one thread.
type Controller struct {
	surface    Surface
	classifier classifier.Classifier
	logger     *zap.Logger

	bound   *cell.Cell // not owned
	session uuid.UUID
	binding bool

	listeners []registration
}

type Option func(*Controller)

// WithLogger sets the logger for edit diagnostics
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates a controller writing to surface. surface may be nil
// when no text widget is attached, e.g. for scripted edits.
func NewController(surface Surface, cls classifier.Classifier, opts ...Option) *Controller {
	if cls == nil {
		cls = classifier.New(nil)
	}
	c := &Controller{
		surface:    surface,
		classifier: cls,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind starts an edit session on target. the surface shows the cell's
// formula, or its value when it has none, with the cursor at the end. any
// text left uncommitted from the previous session is discarded. a nil
// target is ignored.
func (c *Controller) Bind(target *cell.Cell) {
	if target == nil {
		c.logger.Debug("ignoring bind of nil cell")
		return
	}

	c.bound = target
	c.session = uuid.New()
	c.logger.Debug("cell bound",
		zap.Stringer("cell", target.Address),
		zap.Stringer("session", c.session))

	if c.surface == nil {
		return
	}
	text := target.Display()

	// surfaces that echo programmatic changes back must not re-commit
	c.binding = true
	defer func() { c.binding = false }()
	c.surface.SetDisplayText(text)
	c.surface.SetCursorPosition(utf8.RuneCountInString(text))
}

// Unbind ends the current edit session
func (c *Controller) Unbind() {
	if c.bound != nil {
		c.logger.Debug("cell unbound",
			zap.Stringer("cell", c.bound.Address),
			zap.Stringer("session", c.session))
	}
	c.bound = nil
	c.session = uuid.Nil
}

// Bound returns the cell being edited, or nil
func (c *Controller) Bound() *cell.Cell {
	return c.bound
}

// Session identifies the current binding. it is uuid.Nil while unbound.
func (c *Controller) Session() uuid.UUID {
	return c.session
}

// OnTextChanged commits the full current text of the surface to the bound
// cell. text starting with the formula sentinel is evaluated and stored as
// formula and result; anything else, including "", becomes the literal
// value. when the formula cannot be evaluated the cell keeps its previous
// state and listeners get ClassificationFailed instead of CellUpdated.
func (c *Controller) OnTextChanged(text string) {
	if c.binding {
		return
	}
	target := c.bound
	if target == nil {
		c.logger.Debug("edit dropped", zap.Error(ErrUnboundEdit))
		return
	}

	if target.Locked() {
		c.fail(target, text, cell.ErrLocked)
		return
	}

	isFormula, result, err := c.classify(target.Address, text)
	if err != nil {
		c.fail(target, text, err)
		return
	}

	if isFormula {
		target.SetFormula(text, result)
	} else {
		target.SetLiteral(text)
	}

	c.logger.Debug("cell committed",
		zap.Stringer("cell", target.Address),
		zap.Stringer("session", c.session),
		zap.Bool("formula", isFormula))

	for _, r := range c.snapshot() {
		r.listener.CellUpdated(target)
	}
}

// classify runs the classifier, turning panics and unexpected errors into
// the classifier's error types
func (c *Controller) classify(at cell.Address, text string) (isFormula bool, result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			isFormula, result = false, ""
			err = &classifier.ClassificationError{Text: text, Err: fmt.Errorf("classifier panic: %v", r)}
		}
	}()

	if !c.classifier.IsFormula(text) {
		return false, "", nil
	}

	result, err = c.classifier.Parse(at, text)
	if err != nil {
		var parseErr *classifier.FormulaParseError
		var classErr *classifier.ClassificationError
		if !errors.As(err, &parseErr) && !errors.As(err, &classErr) {
			err = &classifier.FormulaParseError{Formula: text, Err: err}
		}
		return true, "", err
	}
	return true, result, nil
}

func (c *Controller) fail(target *cell.Cell, text string, err error) {
	c.logger.Debug("edit rejected",
		zap.Stringer("cell", target.Address),
		zap.Stringer("session", c.session),
		zap.String("text", text),
		zap.Error(err))

	for _, r := range c.snapshot() {
		r.listener.ClassificationFailed(target, text, err)
	}
}

// AddUpdateListener registers l behind the listeners added before it and
// returns the handle used to remove it
func (c *Controller) AddUpdateListener(l Listener) uuid.UUID {
	id := uuid.New()
	c.listeners = append(c.listeners, registration{id: id, listener: l})
	return id
}

// RemoveUpdateListener unregisters a listener. a listener removed during a
// notification still sees the rest of that notification round if it was
// already enumerated.
func (c *Controller) RemoveUpdateListener(id uuid.UUID) bool {
	for i, r := range c.listeners {
		if r.id == id {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot returns the listeners to notify for one edit
func (c *Controller) snapshot() []registration {
	return append([]registration(nil), c.listeners...)
}
