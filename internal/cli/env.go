package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rileyhilliard/loadwatch/internal/collector"
	"github.com/rileyhilliard/loadwatch/internal/config"
	"github.com/rileyhilliard/loadwatch/internal/errors"
	"github.com/rileyhilliard/loadwatch/internal/logger"
	"github.com/rileyhilliard/loadwatch/internal/store"
	"github.com/rileyhilliard/loadwatch/pkg/sshutil"
	"golang.org/x/term"
)

// loadConfig loads the config and applies --log-level.
func (e *env) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, err
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newLogger builds the zap logger and installs it as the default. One-shot
// commands pass quiet so per-host INFO lines don't interleave with their
// rendered output; an explicit --log-level still wins.
func (e *env) newLogger(cfg *config.Config, quiet bool) (logger.Logger, error) {
	level := cfg.Log.Level
	if quiet && e.logLevel == "" {
		switch strings.ToLower(level) {
		case "debug", "info":
			level = "warn"
		}
	}
	log, err := logger.NewZap(level, cfg.Log.Format)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot set up logging",
			"Check log.level and log.format in loadwatch.yaml")
	}
	logger.SetDefault(log)
	return log, nil
}

func (e *env) openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Cannot open database "+cfg.Database.Path,
			"Check database.path points to a writable location")
	}
	return st, nil
}

func (e *env) newCollector(cfg *config.Config) *collector.Collector {
	return collector.New(e.deps.Dialer, collector.Options{
		Timeout:       cfg.Collection.Timeout,
		LoadCommand:   cfg.SSH.LoadCommand,
		MemoryCommand: cfg.SSH.MemoryCommand,
		SSH: sshutil.Options{
			StrictHostKeyChecking: cfg.SSH.StrictHostKeyChecking,
			KnownHostsPath:        cfg.SSH.KnownHosts,
			UseAgent:              cfg.SSH.UseAgent,
		},
	})
}

func (e *env) interactive() bool {
	if e.deps.Interactive != nil {
		return e.deps.Interactive()
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// session is the config, logger and open store most commands need.
type session struct {
	cfg   *config.Config
	log   logger.Logger
	store *store.Store
}

func (e *env) open(quiet bool) (*session, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := e.newLogger(cfg, quiet)
	if err != nil {
		return nil, err
	}
	st, err := e.openStore(cfg)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, store: st}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.log.Warn("close database: %v", err)
	}
	logger.Sync(s.log)
}

// resolveHost finds a host by numeric ID or by name.
func (s *session) resolveHost(ctx context.Context, ref string) (*store.Host, error) {
	var (
		h   *store.Host
		err error
	)
	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil && id > 0 {
		h, err = s.store.GetHost(ctx, id)
		if stderrors.Is(err, store.ErrNotFound) {
			h, err = s.store.GetHostByName(ctx, ref)
		}
	} else {
		h, err = s.store.GetHostByName(ctx, ref)
	}

	if stderrors.Is(err, store.ErrNotFound) {
		return nil, errors.New(errors.ErrNotFound,
			fmt.Sprintf("Host '%s' not found", ref),
			"Run 'loadwatch host list' to see registered hosts")
	}
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to look up host "+ref, "")
	}
	return h, nil
}
