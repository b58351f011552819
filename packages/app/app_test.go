package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vogtb/go-formulabar/packages/auth"
	"github.com/vogtb/go-formulabar/packages/cell"
	"github.com/vogtb/go-formulabar/packages/classifier"
	"github.com/vogtb/go-formulabar/packages/config"
	"github.com/vogtb/go-formulabar/packages/workbook"
)

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	a, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func valueAt(t *testing.T, a *App, name string) string {
	t.Helper()
	c, ok := a.Workbook.Lookup(cell.MustParseAddress(name))
	require.True(t, ok, "cell %s not found", name)
	return c.Value()
}

func TestEditsRecalculateDependents(t *testing.T) {
	a := newTestApp(t, nil)
	ctrl := a.NewController(nil)

	require.NoError(t, a.Apply(ctrl, cell.MustParseAddress("A1"), "5"))
	require.NoError(t, a.Apply(ctrl, cell.MustParseAddress("B1"), "=A1*2"))
	assert.Equal(t, "10", valueAt(t, a, "B1"))

	require.NoError(t, a.Apply(ctrl, cell.MustParseAddress("A1"), "7"))
	assert.Equal(t, "14", valueAt(t, a, "B1"))

	// a later listener sees dependents already recalculated
	var seen string
	ctrl.AddUpdateListener(viewListener(func() { seen = valueAt(t, a, "B1") }))
	require.NoError(t, a.Apply(ctrl, cell.MustParseAddress("A1"), "1"))
	assert.Equal(t, "2", seen)
}

func TestRejectedEditsKeepState(t *testing.T) {
	a := newTestApp(t, nil)
	ctrl := a.NewController(nil)
	b1 := cell.MustParseAddress("B1")

	require.NoError(t, a.Apply(ctrl, b1, "=1+2"))

	var parseErr *classifier.FormulaParseError
	require.ErrorAs(t, a.Apply(ctrl, b1, "=1+"), &parseErr)
	require.ErrorAs(t, a.Apply(ctrl, b1, "=B1+1"), &parseErr, "circular reference")

	c, _ := a.Workbook.Lookup(b1)
	assert.Equal(t, cell.State{Formula: "=1+2", HasFormula: true, Value: "3"}, c.Snapshot())
}

func TestCustomSentinel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Editor.Sentinel = "+"
	a := newTestApp(t, cfg)
	ctrl := a.NewController(nil)

	require.NoError(t, a.Apply(ctrl, cell.MustParseAddress("A1"), "=not a formula"))
	assert.Equal(t, "=not a formula", valueAt(t, a, "A1"))

	require.NoError(t, a.Apply(ctrl, cell.MustParseAddress("A2"), "+2*21"))
	assert.Equal(t, "42", valueAt(t, a, "A2"))
}

func TestOpensConfiguredWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	cfg := config.DefaultConfig()
	cfg.Workbook.Path = path
	first := newTestApp(t, cfg)
	ctrl := first.NewController(nil)
	require.NoError(t, first.Apply(ctrl, cell.MustParseAddress("A1"), "20"))
	require.NoError(t, first.Apply(ctrl, cell.MustParseAddress("A2"), "=A1+1"))
	require.NoError(t, first.Workbook.Save())

	second := newTestApp(t, cfg)
	assert.Equal(t, "21", valueAt(t, second, "A2"))
}

func TestSyncRequiresCredential(t *testing.T) {
	t.Setenv("FORMULABAR_TEST_TOKEN", "")

	cfg := config.DefaultConfig()
	cfg.Sync.Enabled = true
	cfg.Sync.TokenEnv = "FORMULABAR_TEST_TOKEN"

	_, err := New(context.Background(), cfg, WithLogger(zap.NewNop()))
	assert.ErrorIs(t, err, auth.ErrNoCredential)

	a := newTestApp(t, cfg, WithCredentialProvider(auth.NewStaticProvider("token", time.Time{})))
	require.NotNil(t, a.Credential)
	assert.Equal(t, "token", a.Credential.Token)
}

func TestSyncDisabledSkipsCredential(t *testing.T) {
	a := newTestApp(t, nil)
	assert.Nil(t, a.Credential)
}

func TestInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "loud"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestWatchDisabled(t *testing.T) {
	a := newTestApp(t, nil)

	w, err := a.Watch(context.Background(), func() {})
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	cfg := config.DefaultConfig()
	cfg.Workbook.Path = path

	a := newTestApp(t, cfg)
	ctrl := a.NewController(nil)
	require.NoError(t, a.Apply(ctrl, cell.MustParseAddress("A1"), "1"))
	require.NoError(t, a.Workbook.Save())

	changed := make(chan struct{}, 1)
	w, err := a.Watch(context.Background(), func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	require.NotNil(t, w)
	defer w.Close()

	other, err := workbook.Open(path)
	require.NoError(t, err)
	defer other.Close()
	c := other.Cell(cell.MustParseAddress("A1"))
	c.SetLiteral("99")
	other.CellUpdated(c)
	require.NoError(t, other.Save())
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("external change not reported")
	}

	reloaded, err := a.Workbook.Reload()
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, "99", valueAt(t, a, "A1"))
}

type viewListener func()

func (f viewListener) CellUpdated(*cell.Cell)                         { f() }
func (f viewListener) ClassificationFailed(*cell.Cell, string, error) {}
