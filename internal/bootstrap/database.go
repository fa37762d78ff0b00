package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/certificate"
	"github.com/leap-learning/leap-server/internal/features/content"
	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/features/progress"
	"github.com/leap-learning/leap-server/internal/features/user"
	"github.com/leap-learning/leap-server/internal/features/video"
	"github.com/leap-learning/leap-server/pkg/config"
	"github.com/leap-learning/leap-server/pkg/database"
	"github.com/leap-learning/leap-server/pkg/database/migrations"
)

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&course.Course{},
		&video.Selection{},
		&content.LessonContent{},
		&progress.Entry{},
		&certificate.Certificate{},
	}
}

// Tables returns the table names of Models in the same order.
func Tables(db *gorm.DB) ([]string, error) {
	models := Models()
	names := make([]string, 0, len(models))
	for _, m := range models {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", m, err)
		}
		names = append(names, stmt.Schema.Table)
	}
	return names, nil
}

// ApplyDatabaseMigrations auto-migrates the schema and runs the registered data
// migrations when enabled via configuration.
func ApplyDatabaseMigrations(ctx context.Context, db *gorm.DB, cfg *config.Config, logger *slog.Logger) error {
	if !cfg.Database.RunMigrations {
		logger.Info("database migrations skipped", slog.String("env_var", "LEAP_DB_RUN_MIGRATIONS=false"))
		return nil
	}
	return Migrate(ctx, db, logger)
}

// Migrate unconditionally brings the schema up to date.
func Migrate(ctx context.Context, db *gorm.DB, logger *slog.Logger) error {
	if err := database.Migrate(ctx, db, logger, Models()...); err != nil {
		return err
	}
	if err := migrations.Run(db.WithContext(ctx), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("database migrations applied successfully")
	return nil
}
