package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestExtractClamps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/courses?page=3&limit=500", nil)

	p := Extract(c)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 200, p.Skip)
}

func TestNewDefaults(t *testing.T) {
	p := New(-2, 0)
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit, Skip: 0}, p)
}

func TestMetadataFrom(t *testing.T) {
	meta := MetadataFrom(45, New(2, 20))
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNextPage)
	assert.True(t, meta.HasPrevPage)

	last := MetadataFrom(45, New(3, 20))
	assert.False(t, last.HasNextPage)
}
