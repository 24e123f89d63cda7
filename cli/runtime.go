package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalcall/config"
	petalotel "github.com/petal-labs/petalcall/otel"
	"github.com/petal-labs/petalcall/tool"
)

// JournalPathEnv overrides journal.path from the config file.
const JournalPathEnv = "PETALCALL_JOURNAL_PATH"

// runtimeEnv is the dispatcher and its collaborators built from config and
// persistent flags.
type runtimeEnv struct {
	cfg        config.Config
	logger     *slog.Logger
	dispatcher *tool.Dispatcher
	journal    tool.Journal
	telemetry  *petalotel.Providers
}

func loadRuntime(cmd *cobra.Command) (*runtimeEnv, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "%v", err)
		}
		return nil, exitError(exitValidation, "%v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	if !quiet {
		logger, err = cfg.Logger(cmd.ErrOrStderr(), verbose)
		if err != nil {
			return nil, exitError(exitValidation, "%v", err)
		}
	}
	if cfg.Path != "" {
		logger.Debug("loaded config", "path", cfg.Path)
	}

	env := &runtimeEnv{cfg: cfg, logger: logger}

	types := tool.DefaultTypeRegistry(cfg.TypeOptions())
	registry := tool.NewRegistry(tool.RegistryConfig{DuplicatePolicy: cfg.DuplicatePolicy()})
	names := cfg.Tools.Builtins
	if len(names) == 0 {
		names = tool.BuiltinNames()
	}
	for _, name := range names {
		t, err := tool.NewBuiltin(types, name)
		if err != nil {
			return nil, exitError(exitValidation, "registering %s: %v", name, err)
		}
		if err := registry.Register(t); err != nil {
			return nil, exitError(exitValidation, "registering %s: %v", name, err)
		}
	}

	env.journal, err = openJournal(cfg.Journal)
	if err != nil {
		return nil, exitError(exitRuntime, "opening journal: %v", err)
	}

	if cfg.Telemetry.Enabled {
		env.telemetry, err = petalotel.Setup(cmd.Context(), petalotel.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Insecure:     cfg.Telemetry.Insecure,
		})
		if err != nil {
			env.Close()
			return nil, exitError(exitRuntime, "initializing telemetry: %v", err)
		}
	}
	observer, err := petalotel.NewGlobalDispatchObserver()
	if err != nil {
		env.Close()
		return nil, exitError(exitRuntime, "initializing dispatch observability: %v", err)
	}

	env.dispatcher = tool.NewDispatcher(tool.DispatcherConfig{
		Registry: registry,
		Observer: observer,
		Journal:  env.journal,
		Logger:   logger,
	})
	return env, nil
}

func openJournal(cfg config.JournalConfig) (tool.Journal, error) {
	switch cfg.Driver {
	case config.JournalNone:
		return nil, nil
	case config.JournalSQLite:
		path := strings.TrimSpace(os.Getenv(JournalPathEnv))
		if path == "" {
			path = strings.TrimSpace(cfg.Path)
		}
		if path == "" {
			defaultPath, err := tool.DefaultSQLiteJournalPath()
			if err != nil {
				return nil, err
			}
			path = defaultPath
		}
		return tool.NewSQLiteJournal(tool.SQLiteJournalConfig{DSN: path})
	default:
		return tool.NewMemoryJournal(cfg.Capacity), nil
	}
}

// Close releases the journal and flushes telemetry.
func (e *runtimeEnv) Close() {
	if e == nil {
		return
	}
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			e.logger.Warn("closing journal", "error", err)
		}
	}
	if e.telemetry != nil {
		if err := e.telemetry.Shutdown(context.Background()); err != nil {
			e.logger.Warn("shutting down telemetry", "error", err)
		}
	}
}
