package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/refract/refract-studio/internal/config"
	"github.com/refract/refract-studio/internal/db"
	"github.com/refract/refract-studio/internal/logging"
	"github.com/refract/refract-studio/internal/project"
)

// commandContext lazily loads the configuration and logger shared by all
// subcommands.
type commandContext struct {
	configFlag *string

	once   sync.Once
	cfg    *config.AppConfig
	err    error
	logger *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.once.Do(func() {
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			if err := os.Setenv(config.EnvConfigFile, path); err != nil {
				c.err = fmt.Errorf("set config path: %w", err)
				return
			}
		}
		cfg, err := config.New()
		if err != nil {
			c.err = fmt.Errorf("failed to load config: %w", err)
			return
		}
		c.cfg = cfg
		c.logger = logging.NewLogger(cfg.LogLevel(), cfg.LogFormat())
	})
	return c.cfg, c.err
}

// openProjects opens the database for one-shot commands.
func (c *commandContext) openProjects() (*project.Service, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	database, err := db.New(cfg.DBPath(), c.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	svc := project.NewService(project.NewRepository(database.Conn()), c.logger)
	return svc, func() { database.Close() }, nil
}
