package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/me/gestion/internal/apiclient"
	"github.com/me/gestion/internal/config"
	"github.com/me/gestion/internal/guard"
	"github.com/me/gestion/internal/logging"
	"github.com/me/gestion/internal/session"
	"github.com/me/gestion/internal/store"
	"github.com/me/gestion/internal/views"
	"github.com/me/gestion/pkg/model"
	"github.com/spf13/cobra"
)

// ErrSessionRequired is returned when a protected command runs without a
// session the server accepts.
var ErrSessionRequired = errors.New(`session required: run "gestion login"`)

var (
	flagServer    string
	flagConfig    string
	flagStorage   string
	flagDataDir   string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg       config.Config
	logger    *slog.Logger
	origin    string
	backend   session.Backend
	lister    originLister
	sess      *session.Store
	client    *apiclient.Client
	navigator *guard.Recorder
	gd        *guard.Guard
	closeDB   func() error
)

// NewRootCmd creates the root cobra command for the gestion CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gestion",
		Short: "Personnel and section management console",
		Long:  "gestion signs in to the gestion API and manages personnel, sections and user accounts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return teardown()
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagServer, "server", "", "API server URL (or "+config.EnvServer+" env)")
	pf.StringVar(&flagConfig, "config", "", "Config file (default <data-dir>/"+config.FileName+")")
	pf.StringVar(&flagStorage, "storage", "", "Session storage: file, sqlite, memory (or "+config.EnvStorage+" env)")
	pf.StringVar(&flagDataDir, "data-dir", "", "Directory for credentials and database (default ~/.gestion)")
	pf.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(),
		newSignupCmd(),
		newLogoutCmd(),
		newSessionCmd(),
		newOpenCmd(),
	)
	for _, e := range views.Entities() {
		root.AddCommand(newEntityCmd(e))
	}

	return root
}

// resolveConfig layers defaults, the config file, the environment and
// explicitly set flags, in that order.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	c := config.Default()
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		c.DataDir = flagDataDir
	}

	path, required := c.Path(), false
	if flagConfig != "" {
		path, required = flagConfig, true
	}
	c, err := config.Load(c, path, required)
	if err != nil {
		return c, err
	}
	c = config.ApplyEnv(c, os.Getenv)

	if flags.Changed("data-dir") {
		c.DataDir = flagDataDir
	}
	if flags.Changed("server") {
		c.Server = flagServer
	}
	if flags.Changed("storage") {
		c.Storage = flagStorage
	}
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		c.LogFormat = flagLogFormat
	}
	if flagDebug {
		c.LogLevel = "debug"
	}
	return c, c.Validate()
}

func setup(cmd *cobra.Command) error {
	if err := teardown(); err != nil {
		return err
	}
	var err error
	cfg, err = resolveConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	origin, err = apiclient.Origin(cfg.Server)
	if err != nil {
		return err
	}
	backend, lister, closeDB, err = openBackend(cmd.Context(), cfg, origin)
	if err != nil {
		return err
	}

	sess = session.New(backend, logger)
	client = apiclient.NewClient(cfg.Server, sess, logger)
	navigator = &guard.Recorder{}
	gd = guard.New(sess, client, navigator,
		guard.WithRedirectDelay(cfg.RedirectDelay),
		guard.WithLogger(logger))

	logger.Debug("cli ready", "server", cfg.Server, "storage", cfg.Storage, "data_dir", cfg.DataDir)
	return nil
}

func teardown() error {
	if closeDB == nil {
		return nil
	}
	err := closeDB()
	closeDB = nil
	return err
}

// openBackend selects the session backend named by cfg.Storage.
// The lister is nil for storage that cannot enumerate origins.
func openBackend(ctx context.Context, c config.Config, origin string) (session.Backend, originLister, func() error, error) {
	switch c.Storage {
	case config.StorageMemory:
		return session.NewMemoryBackend(origin), nil, nil, nil
	case config.StorageSQLite:
		if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
			return nil, nil, nil, fmt.Errorf("create data directory: %w", err)
		}
		st, err := store.NewSQLiteStore(filepath.Join(c.DataDir, store.DBFileName), logger)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, nil, nil, fmt.Errorf("migrate store: %w", err)
		}
		return st.Scoped(origin), st, st.Close, nil
	default:
		fb := session.NewFileBackend(filepath.Join(c.DataDir, session.CredentialsFileName), origin)
		return fb, fb, nil, nil
	}
}

// requireSession runs the guard for page and blocks until it decides.
// No request that needs a session may be issued before it returns nil.
func requireSession(cmd *cobra.Command, page model.Page) error {
	ctx := cmd.Context()
	gate := gd.Enter(ctx, page)
	d, err := gate.Wait(ctx)
	if err != nil {
		return err
	}
	if !d.Allowed() {
		logger.Debug("guard redirected", "page", page, "target", d.Target, "reason", d.Reason)
		return ErrSessionRequired
	}
	return nil
}
