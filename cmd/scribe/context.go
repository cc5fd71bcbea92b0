package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"scribe/internal/config"
	"scribe/internal/logging"
)

// commandContext carries the state shared by every subcommand: the resolved
// configuration, the process logger, and the signal-aware context. Each is
// built at most once per invocation.
type commandContext struct {
	configFlag *string
	debugFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	signalOnce sync.Once
	signalCtx  context.Context
	signalStop context.CancelFunc
}

func newCommandContext(configFlag *string, debugFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		debugFlag:  debugFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolvedPath, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.debugFlag != nil && *c.debugFlag {
			cfg.LogLevel = "debug"
		}
		c.config = cfg
		c.configPath = resolvedPath
	})
	return c.config, c.configErr
}

func (c *commandContext) configPathValue() string {
	_, _ = c.ensureConfig()
	return c.configPath
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// signalContext returns the process-wide context canceled by SIGINT or
// SIGTERM. The stop function is kept for the lifetime of the process; a
// second signal after cancellation kills it the default way.
func (c *commandContext) signalContext() context.Context {
	c.signalOnce.Do(func() {
		c.signalCtx, c.signalStop = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	})
	return c.signalCtx
}
