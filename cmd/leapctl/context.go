package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/pkg/config"
	"github.com/leap-learning/leap-server/pkg/database"
	"github.com/leap-learning/leap-server/pkg/logger"
)

// commandContext loads configuration and opens the database on first use, so
// commands that need neither start instantly.
type commandContext struct {
	envFile *string

	once   sync.Once
	config *config.Config
	logger *slog.Logger
	err    error

	db *gorm.DB
}

func newCommandContext(envFile *string) *commandContext {
	return &commandContext{envFile: envFile}
}

func (c *commandContext) ensureConfig() (*config.Config, *slog.Logger, error) {
	c.once.Do(func() {
		if c.envFile != nil && strings.TrimSpace(*c.envFile) != "" {
			if err := godotenv.Overload(strings.TrimSpace(*c.envFile)); err != nil {
				c.err = fmt.Errorf("load env file: %w", err)
				return
			}
		}
		cfg, err := config.Load()
		if err != nil {
			c.err = fmt.Errorf("load config: %w", err)
			return
		}
		log, err := logger.New(cfg.LogLevel)
		if err != nil {
			c.err = fmt.Errorf("init logger: %w", err)
			return
		}
		c.config, c.logger = cfg, log
	})
	return c.config, c.logger, c.err
}

func (c *commandContext) database(ctx context.Context) (*gorm.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	cfg, log, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.db = db
	return db, nil
}

func (c *commandContext) close() error {
	if c.db == nil {
		return nil
	}
	err := database.Close(c.db, c.logger)
	c.db = nil
	return err
}
