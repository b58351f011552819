// formulabar edits xlsx worksheets one cell at a time through a formula
// bar, recalculating dependent cells as you type.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vogtb/go-formulabar/cmd/formulabar/ui"
	"github.com/vogtb/go-formulabar/packages/app"
	"github.com/vogtb/go-formulabar/packages/cell"
	"github.com/vogtb/go-formulabar/packages/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	sheet      string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:          "formulabar",
		Short:        "Edit spreadsheet cells through a formula bar",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "formulabar.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&opts.sheet, "sheet", "", "worksheet to edit (default: active sheet)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newEditCmd(opts), newApplyCmd(opts), newShowCmd(opts))
	return rootCmd
}

// loadConfig reads the config file and applies the command line on top.
// args[0], when present, overrides the configured workbook path.
func loadConfig(opts *rootOptions, args []string) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Workbook.Path = args[0]
	}
	if opts.sheet != "" {
		cfg.Workbook.Sheet = opts.sheet
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func loadApp(ctx context.Context, opts *rootOptions, args []string) (*app.App, error) {
	cfg, err := loadConfig(opts, args)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [file]",
		Short: "Open the interactive editor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			cfg, err := loadConfig(opts, args)
			if err != nil {
				return err
			}
			var appOpts []app.Option
			if cfg.Logging.File == "" {
				// stderr belongs to the terminal UI
				appOpts = append(appOpts, app.WithLogger(zap.NewNop()))
			}
			a, err := app.New(ctx, cfg, appOpts...)
			if err != nil {
				return err
			}
			defer a.Close()

			model := ui.New(a)

			changes := make(chan struct{}, 1)
			watcher, err := a.Watch(ctx, func() {
				select {
				case changes <- struct{}{}:
				default:
				}
			})
			if err != nil {
				a.Logger.Warn("workbook changes will not be picked up", zap.Error(err))
			} else if watcher != nil {
				defer watcher.Close()
				model.WatchChanges(changes)
			}

			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "apply [file] CELL=TEXT...",
		Short: "Type text into cells without the interactive editor",
		Long: `Each CELL=TEXT argument is typed into CELL through the formula bar,
in order. Formulas keep their sentinel, e.g. B1==A1*2.`,
		Example: "  formulabar apply budget.xlsx A1=5 B1==A1*2 --save",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fileArgs []string
			if _, _, err := parseAssignment(args[0]); err != nil {
				fileArgs, args = args[:1], args[1:]
			}

			edits := make([]edit, 0, len(args))
			for _, arg := range args {
				addr, text, err := parseAssignment(arg)
				if err != nil {
					return err
				}
				edits = append(edits, edit{addr: addr, text: text})
			}
			if len(edits) == 0 {
				return fmt.Errorf("no CELL=TEXT edits given")
			}

			a, err := loadApp(cmd.Context(), opts, fileArgs)
			if err != nil {
				return err
			}
			defer a.Close()

			ctrl := a.NewController(nil)
			for _, e := range edits {
				if err := a.Apply(ctrl, e.addr, e.text); err != nil {
					return fmt.Errorf("%s: %w", e.addr, err)
				}
				c, _ := a.Workbook.Lookup(e.addr)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.addr, c.Value())
			}

			if save {
				return a.Workbook.Save()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "write the workbook back to its file")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [file]",
		Short: "Print the non-empty cells of the worksheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), opts, args)
			if err != nil {
				return err
			}
			defer a.Close()

			t := table.New().Headers("CELL", "FORMULA", "VALUE")
			for _, c := range a.Workbook.Cells() {
				formula, _ := c.Formula()
				t.Row(c.Address.String(), formula, c.Value())
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

type edit struct {
	addr cell.Address
	text string
}

// parseAssignment splits "B1==A1*2" into B1 and "=A1*2"
func parseAssignment(arg string) (cell.Address, string, error) {
	name, text, found := strings.Cut(arg, "=")
	if !found {
		return cell.Address{}, "", fmt.Errorf("expected CELL=TEXT, got %q", arg)
	}
	addr, err := cell.ParseAddress(name)
	if err != nil {
		return cell.Address{}, "", fmt.Errorf("invalid cell in %q: %w", arg, err)
	}
	return addr, text, nil
}
