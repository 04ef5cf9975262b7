package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"agents-chat/internal/hub"
	"agents-chat/internal/utils"
)

func contextWithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// loadConfig resolves the config file, then environment, then flags.
func (o *options) loadConfig() (hub.Config, error) {
	cfg, err := hub.LoadConfig(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.storage != "" {
		cfg.Storage.Driver = o.storage
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}
	cfg.Ephemeral = o.ephemeral
	return cfg, cfg.Validate()
}

// newLogger writes to stderr for one-shot commands and to the log file while the TUI owns the terminal.
func newLogger(cfg hub.Config, toFile bool) (*utils.Logger, error) {
	opts := utils.LogOptions{Level: cfg.Logging.Level, Pretty: cfg.Logging.Pretty}
	if toFile {
		if cfg.Ephemeral && cfg.Logging.File == "" {
			return utils.NopLogger(), nil
		}
		opts.File = cfg.LogFile()
	}
	return utils.NewLoggerWithOptions(opts)
}

func (o *options) openServer(toFile bool) (*hub.Server, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, toFile)
	if err != nil {
		return nil, err
	}
	server, err := hub.NewServer(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return server, nil
}
