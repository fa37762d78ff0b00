package content

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leap-learning/leap-server/internal/features/generation"
	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/logger"
	"github.com/leap-learning/leap-server/pkg/validation"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (f *resolverFixture) router(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.RegisterGin()

	router := gin.New()
	auth := []gin.HandlerFunc{func(c *gin.Context) {
		middleware.SetUser(c, &middleware.User{ID: userID})
	}}
	RegisterRoutes(router.Group("/api"), NewHandler(f.db, f.resolver, logger.Discard()), auth)
	return router
}

func send(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ViewerSessionHeader, "tab-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	var resp Response
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &resp)
	}
	return rec, resp
}

func TestHandlerGetGeneratesAndRenders(t *testing.T) {
	f := newResolverFixture(t)
	router := f.router(f.owner)
	base := "/api/courses/" + f.course.ID.String() + "/content"

	rec, resp := send(t, router, http.MethodGet, base+"?chapter=Intro&subtopic=Hello+World&format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TierGenerated, resp.Source)
	assert.Equal(t, "Hello World", resp.SubtopicName)
	assert.True(t, strings.HasPrefix(resp.HTML, "<h2>Hello World</h2>"), resp.HTML)

	rec, resp = send(t, router, http.MethodGet, base+"?chapter=Intro&subtopic=Hello+World", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TierStore, resp.Source)
	assert.Empty(t, resp.HTML)
	assert.Equal(t, 1, f.generator.calls())
}

func TestHandlerOverview(t *testing.T) {
	f := newResolverFixture(t)
	router := f.router(f.owner)

	rec, resp := send(t, router, http.MethodGet, "/api/courses/"+f.course.ID.String()+"/content/overview?chapter=Intro", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Intro", resp.ChapterTitle)
	assert.Equal(t, "Intro", resp.SubtopicName)

	rec, _ = send(t, router, http.MethodGet, "/api/courses/"+f.course.ID.String()+"/content/overview", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRegenerate(t *testing.T) {
	f := newResolverFixture(t)
	router := f.router(f.owner)
	path := "/api/courses/" + f.course.ID.String() + "/content/regenerate"

	rec, resp := send(t, router, http.MethodPost, path, map[string]string{"chapterTitle": "Types", "subtopicName": "Ints"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, TierGenerated, resp.Source)

	rec, _ = send(t, router, http.MethodPost, path, map[string]string{"chapterTitle": "Types"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerErrors(t *testing.T) {
	f := newResolverFixture(t)
	base := "/api/courses/" + f.course.ID.String() + "/content"

	rec, _ := send(t, f.router(f.owner), http.MethodGet, base+"?chapter=Intro&subtopic=Nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = send(t, f.router(f.owner), http.MethodGet, base+"?chapter=Intro", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = send(t, f.router(uuid.New()), http.MethodGet, base+"?chapter=Intro&subtopic=Setup", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.generator.err = generation.AsAppError(generation.ErrOverloaded)
	rec, _ = send(t, f.router(f.owner), http.MethodGet, base+"?chapter=Intro&subtopic=Setup", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.generator.err = generation.AsAppError(generation.ErrMalformedOutput)
	rec, _ = send(t, f.router(f.owner), http.MethodGet, base+"?chapter=Intro&subtopic=Setup", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 2, f.generator.calls())
}
