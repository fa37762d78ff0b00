// Package youtube searches embeddable videos through the YouTube Data API.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/leap-learning/leap-server/pkg/tracing"
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("youtube: api key is required")

// Video is one search result.
type Video struct {
	ID           string `json:"videoId"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// Searcher finds videos for a query.
type Searcher interface {
	Search(ctx context.Context, query string, max int64) ([]Video, error)
}

// Config configures the API client.
type Config struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
}

// Client implements Searcher with search.list.
type Client struct {
	service *yt.Service
}

// New builds a client from cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	return &Client{service: service}, nil
}

// Search returns up to max embeddable videos matching query.
func (c *Client) Search(ctx context.Context, query string, max int64) (videos []Video, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if max <= 0 {
		max = 5
	}

	ctx, span := tracing.Start(ctx, "youtube.Search", attribute.String("query", query))
	defer func() { tracing.End(span, err) }()

	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoEmbeddable("true").
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search %q: %w", query, err)
	}

	videos = make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, Video{
			ID:           item.Id.VideoId,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			Description:  item.Snippet.Description,
			ThumbnailURL: thumbnail(item.Snippet.Thumbnails),
		})
	}
	return videos, nil
}

func thumbnail(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.Medium, t.High, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
