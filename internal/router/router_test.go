package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-scheduling-api/internal/handler"
	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/sma-scheduling-api/pkg/errors"
)

type stubTokens map[string]*models.JWTClaims

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type stubRooms struct{}

func (stubRooms) FindAvailableInTimeRange(ctx context.Context, slot models.TimeSlot) ([]models.Classroom, error) {
	return []models.Classroom{{ID: "room-1"}}, nil
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := stubTokens{
		"admin":   {UserID: "u-1", Role: models.RoleAdmin},
		"teacher": {UserID: "u-2", Role: models.RoleTeacher},
		"student": {UserID: "u-3", Role: models.RoleStudent},
	}
	return New(Options{Tokens: tokens, Metrics: service.NewMetricsService()}, Handlers{
		Classrooms:    handler.NewClassroomHandler(nil, stubRooms{}, nil),
		Lessons:       handler.NewLessonHandler(nil),
		Exams:         handler.NewExamHandler(nil),
		SchoolClasses: handler.NewSchoolClassHandler(nil, nil),
		Registrations: handler.NewRegistrationHandler(nil),
		Health:        handler.NewHealthHandler(nil, nil),
	})
}

func request(r http.Handler, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRouterAccessRules(t *testing.T) {
	r := newEngine()

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"api needs a token", http.MethodGet, "/api/v1/lessons", "", http.StatusUnauthorized},
		{"unknown token", http.MethodGet, "/api/v1/lessons", "forged", http.StatusUnauthorized},
		{"teacher cannot create classrooms", http.MethodPost, "/api/v1/classrooms", "teacher", http.StatusForbidden},
		{"student cannot schedule lessons", http.MethodPost, "/api/v1/lessons", "student", http.StatusForbidden},
		{"student cannot read registrations", http.MethodGet, "/api/v1/registrations", "student", http.StatusForbidden},
		{"teacher cannot remove teachers", http.MethodDelete, "/api/v1/school-classes/c-1/teachers/t-1", "teacher", http.StatusForbidden},
		{"free rooms is not an id lookup", http.MethodGet, "/api/v1/classrooms/available?start=2025-01-06T08:00:00Z&end=2025-01-06T09:00:00Z", "student", http.StatusOK},
		{"teacher schedule with bad body", http.MethodPost, "/api/v1/lessons", "teacher", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, request(r, tc.method, tc.path, tc.token))
		})
	}
}

func TestRouterDocsAreOptional(t *testing.T) {
	r := newEngine()
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/docs/index.html", ""))
}
