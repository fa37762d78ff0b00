// Package gemini is a small client for the Gemini generateContent REST endpoint.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	scope          = "https://www.googleapis.com/auth/generative-language"
	maxErrorBody   = 2048
)

// ErrMissingCredentials is returned when neither an API key nor a token source is configured.
var ErrMissingCredentials = errors.New("gemini: no api key or token source configured")

// Client generates text from a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
}

// File is an inline binary part returned by the model, kept base64 encoded.
type File struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mimeType"`
	DataBase64 string `json:"dataBase64"`
}

// Result is the concatenated text of the first candidate plus any inline files.
type Result struct {
	Text  string `json:"text"`
	Files []File `json:"files"`
}

// HTTPError is a non-2xx response from the API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("gemini http %d: %s", e.StatusCode, e.Body)
}

// HTTPStatusCode returns the response status, or 0 for a nil error.
func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// StatusCode extracts the HTTP status from err, or 0 when err did not come from a response.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Config configures a REST client.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
	// TokenSource, when set, authenticates with OAuth2 bearer tokens instead of the API key.
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
}

type restClient struct {
	baseURL     string
	model       string
	apiKey      string
	temperature float64
	httpClient  *http.Client
}

// New builds a REST client from cfg.
func New(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" && cfg.TokenSource == nil {
		return nil, ErrMissingCredentials
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.9
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if cfg.TokenSource != nil {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient = &http.Client{
			Timeout:   httpClient.Timeout,
			Transport: &oauth2.Transport{Source: cfg.TokenSource, Base: base},
		}
	}

	return &restClient{
		baseURL:     baseURL,
		model:       model,
		apiKey:      strings.TrimSpace(cfg.APIKey),
		temperature: temperature,
		httpClient:  httpClient,
	}, nil
}

// DefaultTokenSource returns Google application default credentials scoped for the API.
func DefaultTokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	ts, err := google.DefaultTokenSource(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("gemini: application default credentials: %w", err)
	}
	return ts, nil
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature        float64  `json:"temperature"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

func (c *restClient) Generate(ctx context.Context, prompt string) (*Result, error) {
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:        c.temperature,
			ResponseModalities: []string{"TEXT"},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded generateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("gemini decode: %w", err)
	}
	return collect(decoded), nil
}

func collect(resp generateResponse) *Result {
	result := &Result{Files: []File{}}
	if len(resp.Candidates) == 0 {
		return result
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
		if p.InlineData == nil {
			continue
		}
		mimeType := p.InlineData.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		result.Files = append(result.Files, File{
			Filename:   fmt.Sprintf("gemini_%d%s", len(result.Files), extension(mimeType)),
			MimeType:   mimeType,
			DataBase64: p.InlineData.Data,
		})
	}
	result.Text = text.String()
	return result
}

func extension(mimeType string) string {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return ".bin"
	}
	return exts[0]
}
