package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokerstyle/internal/diagnosis"
	"github.com/lox/pokerstyle/internal/randutil"
	"github.com/lox/pokerstyle/internal/server"
	"github.com/lox/pokerstyle/internal/sessioncode"
	"github.com/lox/pokerstyle/internal/store"
)

// ServerCmd runs the HTTP API
type ServerCmd struct {
	Config    string `short:"c" default:"pokerstyle-server.hcl" help:"Path to HCL configuration file"`
	Address   string `short:"a" help:"Address to bind to (overrides config)"`
	Port      int    `short:"p" help:"Port to listen on (overrides config)"`
	LogLevel  string `short:"l" help:"Log level (overrides config)"`
	Store     string `enum:",memory,file,sqlite" default:"" help:"Store driver (overrides config)"`
	StorePath string `help:"Store path, a directory for file and a database for sqlite (overrides config)"`
	Generator string `enum:",offline,openai" default:"" help:"Diagnosis generator (overrides config)"`
	Seed      *int64 `help:"Deterministic seed for session codes (optional)"`
}

func (c *ServerCmd) Run(g *Globals) error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply command line overrides
	if c.Address != "" {
		cfg.Server.Address = c.Address
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Store != "" {
		cfg.Store.Driver = c.Store
	}
	if c.StorePath != "" {
		cfg.Store.Path = c.StorePath
	}
	if c.Generator != "" {
		cfg.Diagnosis.Generator = c.Generator
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(os.Stderr, g, cfg.Server.LogLevel)
	if err != nil {
		return err
	}

	sessions, runner, err := openServices(cfg, logger, c.Seed)
	if err != nil {
		return err
	}
	defer func() { _ = sessions.Close() }()

	poll, err := cfg.PollInterval()
	if err != nil {
		return err
	}
	srv := server.NewServer(sessions, runner, logger, server.WithPollInterval(poll))

	logger.Info("Starting pokerstyle server",
		"addr", cfg.Address(),
		"store", cfg.Store.Driver,
		"generator", cfg.Diagnosis.Generator,
		"version", version)

	ctx, cancel := setupSignalHandler(logger)
	defer cancel()
	return srv.ListenAndServe(ctx, cfg.Address())
}

// openServices opens the configured store and builds the diagnosis runner on
// top of it.
func openServices(cfg *server.Config, logger *log.Logger, seed *int64) (*store.Service, *diagnosis.Runner, error) {
	repo, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
	}

	var opts []store.Option
	if seed != nil {
		logger.Info("Using deterministic session codes", "seed", *seed)
		opts = append(opts, store.WithCodeGenerator(sessioncode.NewGenerator(randutil.New(*seed))))
	}
	sessions := store.NewService(repo, logger, opts...)

	gen, err := newGenerator(cfg.Diagnosis)
	if err != nil {
		_ = sessions.Close()
		return nil, nil, err
	}
	timeout, err := cfg.DiagnosisTimeout()
	if err != nil {
		_ = sessions.Close()
		return nil, nil, err
	}

	runner := diagnosis.NewRunner(sessions, gen, diagnosis.RunnerConfig{
		Concurrency: cfg.Diagnosis.Concurrency,
		Timeout:     timeout,
	}, quartz.NewReal(), logger)
	return sessions, runner, nil
}

func newGenerator(cfg server.DiagnosisSettings) (diagnosis.Generator, error) {
	switch cfg.Generator {
	case server.GeneratorOpenAI:
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("openai generator needs an API key in $%s", cfg.APIKeyEnv)
		}
		return diagnosis.NewOpenAIGenerator(key, diagnosis.WithModel(cfg.Model)), nil
	default:
		return diagnosis.OfflineGenerator{}, nil
	}
}
