// Package app is the composition root: it builds every service formulabar
// needs from the configuration and hands them out explicitly.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vogtb/go-formulabar/packages/auth"
	"github.com/vogtb/go-formulabar/packages/cell"
	"github.com/vogtb/go-formulabar/packages/classifier"
	"github.com/vogtb/go-formulabar/packages/config"
	"github.com/vogtb/go-formulabar/packages/formulabar"
	"github.com/vogtb/go-formulabar/packages/logging"
	"github.com/vogtb/go-formulabar/packages/workbook"
)

// App owns the services of one editing session
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Level      zap.AtomicLevel
	Workbook   *workbook.Workbook
	Classifier *classifier.FormulaClassifier

	// Credential is resolved only when sync is enabled
	Credential *auth.Credential

	ownsLogger bool
}

type options struct {
	logger   *zap.Logger
	provider auth.CredentialProvider
}

type Option func(*options)

// WithLogger uses logger instead of building one from the configuration
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithCredentialProvider replaces the environment based provider
func WithCredentialProvider(p auth.CredentialProvider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// New wires logging, the workbook, the classifier and credentials
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}
	if o.logger != nil {
		a.Logger = o.logger
		a.Level = zap.NewAtomicLevel()
	} else {
		logger, level, err := logging.New(cfg.Logging)
		if err != nil {
			return nil, err
		}
		a.Logger, a.Level, a.ownsLogger = logger, level, true
	}

	if cfg.Sync.Enabled {
		provider := o.provider
		if provider == nil {
			provider = auth.NewEnvProvider(cfg.Sync.TokenEnv)
		}
		cred, err := provider.Credential(ctx)
		if err != nil {
			a.closeLogger()
			return nil, fmt.Errorf("sync is enabled but no credential could be resolved: %w", err)
		}
		a.Credential = &cred
		a.Logger.Info("sync credential resolved", zap.Time("expiry", cred.Expiry))
	}

	wbOpts := []workbook.Option{
		workbook.WithLogger(a.Logger.Named("workbook")),
		workbook.WithSheet(cfg.Workbook.Sheet),
		workbook.WithSentinel(cfg.Editor.Sentinel),
	}
	var err error
	if cfg.Workbook.Path != "" {
		a.Workbook, err = workbook.OpenOrNew(cfg.Workbook.Path, wbOpts...)
	} else {
		a.Workbook, err = workbook.New(wbOpts...)
	}
	if err != nil {
		a.closeLogger()
		return nil, err
	}

	a.Classifier = classifier.New(a.Workbook, classifier.WithSentinel(cfg.Editor.Sentinel))
	return a, nil
}

// NewController creates a formula bar controller for surface. the workbook
// is registered as the first listener so that dependents are recalculated
// before any view reads them.
func (a *App) NewController(surface formulabar.Surface) *formulabar.Controller {
	ctrl := formulabar.NewController(surface, a.Classifier,
		formulabar.WithLogger(a.Logger.Named("formulabar")))
	ctrl.AddUpdateListener(a.Workbook)
	return ctrl
}

// Apply types text into the cell at addr through ctrl, as one edit, and
// returns the reason it was rejected, if any
func (a *App) Apply(ctrl *formulabar.Controller, addr cell.Address, text string) error {
	var failure error
	id := ctrl.AddUpdateListener(formulabar.ListenerFuncs{
		Failed: func(_ *cell.Cell, _ string, err error) { failure = err },
	})
	defer ctrl.RemoveUpdateListener(id)

	ctrl.Bind(a.Workbook.Cell(addr))
	ctrl.OnTextChanged(text)
	return failure
}

// Watch reports external changes of the workbook file when watching is
// enabled. it returns nil without error otherwise.
func (a *App) Watch(ctx context.Context, onChange func()) (*workbook.Watcher, error) {
	if !a.Config.Workbook.Watch || a.Workbook.Path() == "" {
		return nil, nil
	}
	return workbook.Watch(ctx, a.Workbook.Path(), onChange, a.Logger.Named("watch"))
}

// Close releases the workbook and flushes logs
func (a *App) Close() error {
	err := a.Workbook.Close()
	a.closeLogger()
	return err
}

func (a *App) closeLogger() {
	if a.ownsLogger {
		// syncing stderr fails on some terminals
		_ = a.Logger.Sync()
	}
}
