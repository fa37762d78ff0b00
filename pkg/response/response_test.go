package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leap-learning/leap-server/pkg/apperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAppErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	AppError(nil, c, apperrors.Validation("courseId is required").WithFields(map[string]string{"courseId": "required"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Success bool      `json:"success"`
		Message string    `json:"message"`
		Error   ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "courseId is required", body.Message)
	assert.Equal(t, apperrors.ErrValidation, body.Error.Code)
	assert.Equal(t, "required", body.Error.Fields["courseId"])
	assert.True(t, c.IsAborted())
}
