package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leap-learning/leap-server/pkg/config"
	"github.com/leap-learning/leap-server/pkg/email"
	"github.com/leap-learning/leap-server/pkg/gemini"
	"github.com/leap-learning/leap-server/pkg/youtube"
)

// NewMailer picks the outbound mail provider. It returns nil when no provider
// is configured, which callers treat as "delivery disabled".
func NewMailer(cfg config.EmailConfig, logger *slog.Logger) (email.Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "sendgrid":
		sg, err := email.NewSendGrid(email.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.From,
			FromName:  cfg.FromName,
		})
		if err != nil {
			return nil, fmt.Errorf("sendgrid: %w", err)
		}
		logger.Info("email provider configured", slog.String("provider", "sendgrid"))
		return sg, nil
	case "", "smtp":
		if cfg.Host == "" {
			logger.Warn("email delivery disabled", slog.String("reason", "SMTP_HOST not set"))
			return nil, nil
		}
		logger.Info("email provider configured", slog.String("provider", "smtp"), slog.String("host", cfg.Host))
		return email.NewClient(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.From, cfg.FromName, cfg.Secure), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// NewGemini builds the text generation client, using application default
// credentials when configured to.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (gemini.Client, error) {
	gc := gemini.Config{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}
	if cfg.UseADC {
		ts, err := gemini.DefaultTokenSource(ctx)
		if err != nil {
			return nil, err
		}
		gc.TokenSource = ts
	}
	return gemini.New(gc)
}

// NewYouTube builds the video searcher. It returns nil without an API key, in
// which case lessons are left without suggested videos.
func NewYouTube(ctx context.Context, cfg config.YouTubeConfig, logger *slog.Logger) (youtube.Searcher, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		logger.Warn("video search disabled", slog.String("reason", "YOUTUBE_API_KEY not set"))
		return nil, nil
	}
	client, err := youtube.New(ctx, youtube.Config{APIKey: cfg.APIKey})
	if err != nil {
		return nil, err
	}
	return client, nil
}
