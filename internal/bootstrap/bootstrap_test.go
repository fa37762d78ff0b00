package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/testutil"
	"github.com/leap-learning/leap-server/pkg/config"
	"github.com/leap-learning/leap-server/pkg/email"
	"github.com/leap-learning/leap-server/pkg/logger"
)

type MigrateSuite struct {
	suite.Suite
	db *gorm.DB
}

func (s *MigrateSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
}

func (s *MigrateSuite) TestMigrateCreatesEveryTable() {
	require.NoError(s.T(), Migrate(context.Background(), s.db, logger.Discard()))

	tables, err := Tables(s.db)
	s.Require().NoError(err)
	for _, table := range tables {
		s.True(s.db.Migrator().HasTable(table), table)
	}
}

func (s *MigrateSuite) TestMigrateIsRepeatable() {
	s.Require().NoError(Migrate(context.Background(), s.db, logger.Discard()))
	s.Require().NoError(Migrate(context.Background(), s.db, logger.Discard()))
}

func (s *MigrateSuite) TestDisabledMigrationsLeaveSchemaAlone() {
	cfg := &config.Config{Database: config.DatabaseConfig{RunMigrations: false}}
	s.Require().NoError(ApplyDatabaseMigrations(context.Background(), s.db, cfg, logger.Discard()))
	s.False(s.db.Migrator().HasTable("course_details"))
}

func TestMigrateSuite(t *testing.T) {
	suite.Run(t, new(MigrateSuite))
}

func TestTablesFollowDependencyOrder(t *testing.T) {
	db := testutil.NewDB(t)
	tables, err := Tables(db)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"users",
		"course_details",
		"course_videos",
		"course_content",
		"user_progress",
		"certificates",
	}, tables)
}

func TestNewMailerProviders(t *testing.T) {
	log := logger.Discard()

	sender, err := NewMailer(config.EmailConfig{Provider: "smtp", Host: "smtp.example.com", Port: "587"}, log)
	require.NoError(t, err)
	assert.IsType(t, &email.Client{}, sender)

	sender, err = NewMailer(config.EmailConfig{Provider: "sendgrid", SendGridAPIKey: "key"}, log)
	require.NoError(t, err)
	assert.IsType(t, &email.SendGrid{}, sender)

	_, err = NewMailer(config.EmailConfig{Provider: "sendgrid"}, log)
	assert.ErrorIs(t, err, email.ErrMissingAPIKey)

	sender, err = NewMailer(config.EmailConfig{Provider: "smtp"}, log)
	require.NoError(t, err)
	assert.Nil(t, sender)

	_, err = NewMailer(config.EmailConfig{Provider: "pigeon"}, log)
	assert.Error(t, err)
}

func TestNewYouTubeWithoutKey(t *testing.T) {
	searcher, err := NewYouTube(context.Background(), config.YouTubeConfig{}, logger.Discard())
	require.NoError(t, err)
	assert.Nil(t, searcher)
}

func TestNewGeminiNeedsCredentials(t *testing.T) {
	_, err := NewGemini(context.Background(), config.GeminiConfig{})
	assert.Error(t, err)

	client, err := NewGemini(context.Background(), config.GeminiConfig{APIKey: "key"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}
