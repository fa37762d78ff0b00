package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestGenerateCollectsTextAndFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k-123", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[
			{"text":"Hello, "},
			{"text":"world"},
			{"inlineData":{"mimeType":"image/png","data":"aGk="}}
		]}}]}`))
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "k-123", Model: "gemini-test", BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := client.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", res.Text)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "image/png", res.Files[0].MimeType)
	assert.Equal(t, "aGk=", res.Files[0].DataBase64)
	assert.True(t, strings.HasPrefix(res.Files[0].Filename, "gemini_0."))
}

func TestGenerateReturnsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"UNAVAILABLE"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "x")
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.HTTPStatusCode())
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Contains(t, httpErr.Body, "UNAVAILABLE")
}

func TestGenerateEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := client.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.NotNil(t, res.Files)
}

func TestTokenSourceUsesBearerAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("x-goog-api-key"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"})
	client, err := New(Config{TokenSource: ts, BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := client.Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Equal(t, 0, StatusCode(errors.New("plain")))
}
