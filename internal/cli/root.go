package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"todo-cli/internal/config"
	"todo-cli/internal/format"
	"todo-cli/internal/logging"
	"todo-cli/internal/metrics"
	"todo-cli/internal/session"
	"todo-cli/internal/store"
	"todo-cli/internal/tui"
)

type App struct {
	Dir        string
	Backend    string
	ConfigFile string
	LogLevel   string
	PrettyJSON bool
	Format     string

	cfg     *config.Config
	log     *log.Logger
	store   *store.Store
	metrics *metrics.Metrics
	sess    *session.Session

	// input is the shell's line reader while `todo shell` runs; prompts share it.
	input   lineInput
	inShell bool
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

// Execute runs one command line and releases the storage it opened.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := &App{}
	err := app.run(ctx, args, stdin, stdout, stderr)
	if cerr := app.Close(); cerr != nil && err == nil {
		err = cerr
		fmt.Fprintln(stderr, err.Error())
	}
	return err
}

// run executes one command line against app. Errors the command did not print
// itself (unknown commands, bad flags) are printed here.
func (app *App) run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd(app)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	var r reportedError
	if err != nil && !errors.As(err, &r) {
		fmt.Fprintln(stderr, "Error: "+err.Error())
	}
	return err
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "todo",
		Short:         "Local todo list: CLI, terminal UI and web UI",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Start the interactive terminal UI
  todo

  # Scriptable commands
  todo add "Buy milk" --category shopping
  todo toggle 1
  todo list --where 'overdue && category == "work"'

  # Direct lookup (shortcut for: todo show 3)
  todo 3
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 && !app.inShell {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	// Defaults come from app so shell lines keep the flags the shell was started with.
	outFormat := app.Format
	if outFormat == "" {
		outFormat = "json"
	}
	cmd.PersistentFlags().StringVar(&app.Dir, "dir", app.Dir, "Data directory (default: nearest .todo dir, else ~/.todo)")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", app.Backend, "Storage backend (file|sqlite|badger|memory)")
	cmd.PersistentFlags().StringVar(&app.ConfigFile, "config", app.ConfigFile, "Config file (.yaml, .yml or .toml)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", app.LogLevel, "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", app.PrettyJSON, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", outFormat, "Output format (json|edn)")

	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newUpdateCmd(app))
	cmd.AddCommand(newDeleteCmd(app))
	cmd.AddCommand(newToggleCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newFilterCmd(app))
	cmd.AddCommand(newSortCmd(app))
	cmd.AddCommand(newStatsCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newShellCmd(app))

	return cmd
}

// overrides collects the persistent flags the user actually set.
func (app *App) overrides(cmd *cobra.Command) map[string]any {
	out := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("dir") {
		out["data_dir"] = app.Dir
	}
	if flags.Changed("backend") {
		out["backend"] = app.Backend
	}
	if flags.Changed("log-level") {
		out["log.level"] = app.LogLevel
	}
	return out
}

// open loads config, storage and the session once per process.
func (app *App) open(cmd *cobra.Command) (*session.Session, error) {
	if app.sess != nil {
		return app.sess, nil
	}
	if _, err := format.ParseFormat(app.Format); err != nil {
		return nil, err
	}
	cfg, err := config.Load(config.Options{File: app.ConfigFile, Overrides: app.overrides(cmd)})
	if err != nil {
		return nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Prefix: "todo",
	})

	ctx := cmdContext(cmd)
	backend, err := store.OpenBackend(ctx, store.BackendKind(cfg.Backend), cfg.DataDir, logger)
	if err != nil {
		return nil, err
	}
	st := store.New(backend, cfg.StorageKey, logger)
	m := metrics.New()

	var notifier session.Notifier
	if cfg.TUI.Bell {
		notifier = tui.NewBell(cmd.ErrOrStderr())
	}
	sess := session.New(session.Options{
		Persister: st,
		Notifier:  notifier,
		Metrics:   m,
		Logger:    logger,
	})
	if err := sess.Hydrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	app.cfg = cfg
	app.log = logger
	app.store = st
	app.metrics = m
	app.sess = sess
	logger.Debug("opened", "dir", cfg.DataDir, "backend", cfg.Backend, "key", cfg.StorageKey)
	return sess, nil
}

// Close releases storage. Safe to call when nothing was opened.
func (app *App) Close() error {
	if app.store == nil {
		return nil
	}
	err := app.store.Close()
	app.store = nil
	app.sess = nil
	return err
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "#")))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid todo id: %q", s)
	}
	return id, nil
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	f, err := format.ParseFormat(app.Format)
	if err != nil {
		return writeErr(cmd, err)
	}
	return format.Write(cmd.OutOrStdout(), v, f, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	if errors.Is(err, session.ErrInvalidArgument) {
		err = errors.New(strings.TrimPrefix(err.Error(), session.ErrInvalidArgument.Error()+": "))
	}
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return reportedError{err: err}
}
