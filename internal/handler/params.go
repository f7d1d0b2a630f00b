package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
	"github.com/noah-isme/sma-scheduling-api/pkg/response"
	"github.com/noah-isme/sma-scheduling-api/pkg/validation"
)

type listParams struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string
}

func parseListParams(c *gin.Context) listParams {
	params := listParams{
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		params.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		params.PageSize = size
	}
	return params
}

// bindJSON decodes the body and writes a 400 with per-field messages on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
		if fields := validation.Fields(err); len(fields) > 0 {
			appErr.Details = make(map[string]interface{}, len(fields))
			for field, msg := range fields {
				appErr.Details[field] = msg
			}
		}
		response.Error(c, appErr)
		return false
	}
	return true
}

// slotQuery reads the RFC 3339 start and end query parameters.
func slotQuery(c *gin.Context) (models.TimeSlot, error) {
	start, err := timeQuery(c, "start")
	if err != nil {
		return models.TimeSlot{}, err
	}
	end, err := timeQuery(c, "end")
	if err != nil {
		return models.TimeSlot{}, err
	}
	return models.TimeSlot{Start: start.UTC(), End: end.UTC()}, nil
}

func timeQuery(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "").WithDetail(key, key+" is a required query parameter")
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "").WithDetail(key, key+" must be an RFC 3339 timestamp")
	}
	return value, nil
}

func optionalTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	if c.Query(key) == "" {
		return nil, nil
	}
	value, err := timeQuery(c, key)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
