package course_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/leap-learning/leap-server/internal/features/course"
	"github.com/leap-learning/leap-server/internal/middleware"
	"github.com/leap-learning/leap-server/pkg/logger"
	"github.com/leap-learning/leap-server/pkg/validation"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func router(db *gorm.DB, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.RegisterGin()

	r := gin.New()
	auth := []gin.HandlerFunc{func(c *gin.Context) {
		middleware.SetUser(c, &middleware.User{ID: userID})
	}}
	svc := course.NewService(db, nil, logger.Discard())
	course.RegisterRoutes(r.Group("/api"), course.NewHandler(db, svc, logger.Discard()), auth)
	return r
}

func call(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHandlerGetAndList(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())
	r := router(db, owner)

	rec, env := call(t, r, http.MethodGet, "/api/courses/"+crs.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var item struct {
		ID           uuid.UUID `json:"id"`
		Name         string    `json:"name"`
		TotalLessons int       `json:"totalLessons"`
		Roadmap      []struct {
			Title     string   `json:"title"`
			Subtopics []string `json:"subtopics"`
		} `json:"roadmap"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, crs.ID, item.ID)
	assert.Equal(t, 2, item.TotalLessons)
	require.Len(t, item.Roadmap, 1)
	assert.Equal(t, "Intro", item.Roadmap[0].Title)

	rec, env = call(t, r, http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)
}

func TestHandlerOwnerChecks(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())
	r := router(db, uuid.New())

	rec, _ := call(t, r, http.MethodGet, "/api/courses/"+crs.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, r, http.MethodDelete, "/api/courses/"+crs.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, r, http.MethodGet, "/api/courses/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = call(t, r, http.MethodGet, "/api/courses/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerDeleteByQuery(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())
	seed(t, db, crs, owner)
	r := router(db, owner)

	rec, _ := call(t, r, http.MethodDelete, "/api/courses", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := call(t, r, http.MethodDelete, "/api/courses?courseId="+crs.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	assert.Zero(t, count(t, db, "user_progress", crs.ID))

	rec, _ = call(t, r, http.MethodDelete, "/api/courses/"+crs.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerReplaceRoadmap(t *testing.T) {
	db := newDB(t)
	owner := uuid.New()
	crs := create(t, db, owner, intro())
	r := router(db, owner)

	rec, env := call(t, r, http.MethodPut, "/api/courses/"+crs.ID.String()+"/roadmap", gin.H{
		"roadmap": []gin.H{{"id": "1", "title": "Intro", "subtopics": []string{"What is X", "Why X", "History"}}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var item struct {
		TotalLessons int `json:"totalLessons"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, 3, item.TotalLessons)

	rec, _ = call(t, r, http.MethodPut, "/api/courses/"+crs.ID.String()+"/roadmap", gin.H{
		"roadmap": []gin.H{{"title": "A"}, {"title": "A"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
