package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

func TestJSONWritesEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	JSON(c, http.StatusOK, []string{"room-1"}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1})

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []interface{}{"room-1"}, body["data"])
	assert.Equal(t, float64(1), body["pagination"].(map[string]interface{})["total_count"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestErrorCarriesCodeAndDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Set("request_id", "req-1")

	Error(c, appErrors.Clone(appErrors.ErrSchoolClassFull, "").WithDetail("school_class_id", "class-1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Error struct {
			Code    string                 `json:"code"`
			Details map[string]interface{} `json:"details"`
		} `json:"error"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SCHOOL_CLASS_FULL", body.Error.Code)
	assert.Equal(t, "class-1", body.Error.Details["school_class_id"])
	assert.Equal(t, "req-1", body.Meta["request_id"])
	assert.True(t, c.IsAborted())
}

func TestErrorHidesInternalCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
