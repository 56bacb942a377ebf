package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"slowlooking/pkg/cache"
	"slowlooking/pkg/config"
	"slowlooking/pkg/db"
	"slowlooking/pkg/db/maintenance"
	"slowlooking/pkg/generator"
	"slowlooking/pkg/library"
	"slowlooking/pkg/llm"
	"slowlooking/pkg/llm/anthropic"
	"slowlooking/pkg/llm/gemini"
	"slowlooking/pkg/llm/openai"
	"slowlooking/pkg/llm/prompts"
	"slowlooking/pkg/logging"
	"slowlooking/pkg/request"
	"slowlooking/pkg/store"
	"slowlooking/pkg/tracker"
	"slowlooking/pkg/version"
)

// commandContext lazily builds the shared services a command needs and
// releases them once the command returns.
type commandContext struct {
	configFlag *string
	console    io.Writer

	configOnce  sync.Once
	config      *config.Config
	configErr   error
	cleanupLogs func()

	tracker *tracker.Tracker
	store   store.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		console:    os.Stderr,
		tracker:    tracker.New(),
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil || strings.TrimSpace(*c.configFlag) == "" {
		return defaultConfigPath
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = fmt.Errorf("failed to load config: %w", err)
			return
		}
		cleanup, err := logging.Init(&cfg.Log, c.console)
		if err != nil {
			c.configErr = fmt.Errorf("failed to initialize logging: %w", err)
			return
		}
		c.cleanupLogs = cleanup
		c.config = cfg
		slog.Debug("Slow Looking started", "version", version.Version, "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
	})
	return c.config, c.configErr
}

func (c *commandContext) close() {
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			slog.Warn("Failed to close store", "error", err)
		}
		c.store = nil
	}
	if c.cleanupLogs != nil {
		c.cleanupLogs()
		c.cleanupLogs = nil
	}
}

// openStore opens the ledger database and runs maintenance once per process.
func (c *commandContext) openStore(ctx context.Context) (store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	d, err := db.Init(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.NewSQLiteStore(d)
	maintenance.Run(ctx, st, time.Duration(cfg.DB.Retention))
	c.store = st
	return st, nil
}

func (c *commandContext) openLibrary() (*library.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return library.New(cfg.Library.Dir)
}

func (c *commandContext) history() *llm.History {
	if c.config == nil {
		return nil
	}
	return llm.NewHistory(c.config.Log.History.Path)
}

// newProvider builds the configured vision provider. A missing API key is
// reported as a *config.ConfigurationError before any request is made.
func (c *commandContext) newProvider(ctx context.Context) (llm.Provider, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireKey(); err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Request.Timeout)
	switch cfg.LLM.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(cfg.LLM, request.New(c.tracker, timeout), c.history())
	case config.ProviderGemini:
		return gemini.NewClient(ctx, cfg.LLM, c.tracker, c.history())
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.LLM, timeout, c.tracker, c.history())
	}
	return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
}

func (c *commandContext) newGenerator(ctx context.Context) (*generator.Generator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	p, err := c.newProvider(ctx)
	if err != nil {
		return nil, err
	}
	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	pm, err := prompts.NewManager(cfg.LLM.PromptDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	prompt, err := pm.Journey()
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}

	opts := []generator.Option{
		generator.WithTracker(c.tracker),
		generator.WithMaxImageDimension(cfg.LLM.MaxImageDimension),
		generator.WithProviderName(cfg.LLM.Provider),
	}
	if st, err := c.openStore(ctx); err != nil {
		slog.Warn("Generation ledger unavailable", "error", err)
	} else {
		opts = append(opts, generator.WithRecorder(st))
	}
	return generator.New(p, fc, prompt, opts...), nil
}
