// Package cli wires configuration, storage, observability and bot
// definitions together for the botbuilder command.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	botbuilder "github.com/edboykin-insight/botbuilder-dotnet"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/config"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/logging"
	"github.com/edboykin-insight/botbuilder-dotnet/internal/validator"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/loader"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/observability"
	"github.com/edboykin-insight/botbuilder-dotnet/pkg/session"
)

// Env is everything a command needs besides its own flags.
type Env struct {
	Config   *config.Config
	Logger   *slog.Logger
	Backend  *config.Backend
	Sessions *session.Manager

	// Registry holds the process and bot collectors when metrics are enabled.
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	closers []io.Closer
}

// Options tweak Setup from command-line flags.
type Options struct {
	ConfigPath string
	// Bot overrides the configured definition path when non-empty.
	Bot string
	// Storage overrides the configured driver when non-empty.
	Storage string
	Debug   bool
}

// Setup loads .env and the config file and opens the storage backend.
func Setup(opts Options) (*Env, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Bot != "" {
		cfg.Bot = opts.Bot
	}
	if opts.Storage != "" {
		cfg.Storage.Driver = opts.Storage
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if opts.Debug {
		cfg.LogLevel = "debug"
	}
	return NewEnv(cfg)
}

// NewEnv builds an Env from an already loaded config.
func NewEnv(cfg *config.Config) (*Env, error) {
	env := &Env{Config: cfg}

	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		env.closers = append(env.closers, f)
		env.Logger = logging.NewFanout(level, f)
	} else {
		env.Logger = logging.New(level)
	}

	backend, err := cfg.Storage.Open()
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	env.Backend = backend
	env.closers = append(env.closers, closerFunc(backend.Close))

	sessionOpts := append([]session.Option{session.WithLogger(env.Logger)}, backend.SessionOptions...)
	env.Sessions = session.NewManager(backend.Storage, sessionOpts...)

	if cfg.Metrics.Enabled {
		env.Registry = prometheus.NewRegistry()
		env.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		env.Metrics, err = observability.NewMetrics(env.Registry)
		if err != nil {
			env.Close()
			return nil, err
		}
	}
	return env, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Close releases the storage backend and the log file.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	e.closers = nil
	return errors.Join(errs...)
}

// LoadDefinition reads and statically validates the configured bot.
func (e *Env) LoadDefinition() (*loader.Definition, error) {
	def, err := loader.Load(e.Config.Bot)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", e.Config.Bot, err)
	}
	report := validator.ValidateDialogs(def.Dialogs, def.Root, nil)
	for _, w := range report.Warnings {
		e.Logger.Warn("Definition warning", "warning", w)
	}
	if err := report.Err(); err != nil {
		return nil, err
	}
	return def, nil
}

// NewBot builds a bot for def over the Env's storage and sessions.
func (e *Env) NewBot(def *loader.Definition) (*botbuilder.Bot, error) {
	opts, err := def.Options()
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		botbuilder.WithLogger(e.Logger),
		botbuilder.WithSessionManager(e.Sessions),
		botbuilder.WithStrictRecognition(e.Config.StrictRecognition),
		botbuilder.WithLifecycleHooks(observability.LogHooks(e.Logger)),
	)
	if e.Config.MaxSteps > 0 {
		opts = append(opts, botbuilder.WithMaxSteps(e.Config.MaxSteps))
	}
	if e.Metrics != nil {
		opts = append(opts, botbuilder.WithLifecycleHooks(e.Metrics.Hooks()))
	}
	return botbuilder.New(e.Backend.Storage, opts...)
}

// LoadBot loads the definition and builds the bot in one go.
func (e *Env) LoadBot() (*botbuilder.Bot, error) {
	def, err := e.LoadDefinition()
	if err != nil {
		return nil, err
	}
	return e.NewBot(def)
}
