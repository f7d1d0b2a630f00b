// Package router assembles the gin engine: global middleware, ops endpoints and the versioned API.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-api/internal/handler"
	"github.com/noah-isme/sma-scheduling-api/internal/middleware"
	"github.com/noah-isme/sma-scheduling-api/internal/service"
	"github.com/noah-isme/sma-scheduling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-scheduling-api/pkg/middleware/requestid"
)

// Options carries the cross-cutting dependencies of the engine.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         middleware.TokenValidator
}

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Classrooms    *handler.ClassroomHandler
	Lessons       *handler.LessonHandler
	Exams         *handler.ExamHandler
	SchoolClasses *handler.SchoolClassHandler
	Registrations *handler.RegistrationHandler
	Health        *handler.HealthHandler
}

// New builds the engine.
func New(opts Options, h Handlers) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefix := opts.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}

	r := gin.New()
	r.Use(logger.Recovery(log))
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)
	api.Use(middleware.JWT(opts.Tokens))

	admins := middleware.Admins()
	schedulers := middleware.Schedulers()

	classrooms := api.Group("/classrooms")
	classrooms.GET("", h.Classrooms.List)
	classrooms.POST("", admins, h.Classrooms.Create)
	classrooms.GET("/available", h.Classrooms.Available)
	classrooms.GET("/:id", h.Classrooms.Get)
	classrooms.PUT("/:id", admins, h.Classrooms.Update)
	classrooms.DELETE("/:id", admins, h.Classrooms.Delete)
	classrooms.GET("/:id/availability", h.Classrooms.Availability)
	classrooms.GET("/:id/capacity", h.Classrooms.Capacity)

	lessons := api.Group("/lessons")
	lessons.GET("", h.Lessons.List)
	lessons.POST("", schedulers, h.Lessons.Create)
	lessons.GET("/:id", h.Lessons.Get)
	lessons.PUT("/:id", schedulers, h.Lessons.Update)
	lessons.DELETE("/:id", schedulers, h.Lessons.Delete)

	exams := api.Group("/exams")
	exams.GET("", h.Exams.List)
	exams.POST("", schedulers, h.Exams.Create)
	exams.GET("/:id", h.Exams.Get)
	exams.PUT("/:id", schedulers, h.Exams.Update)
	exams.DELETE("/:id", schedulers, h.Exams.Delete)

	classes := api.Group("/school-classes")
	classes.GET("", h.SchoolClasses.List)
	classes.POST("", admins, h.SchoolClasses.Create)
	classes.GET("/:id", h.SchoolClasses.Get)
	classes.PUT("/:id", admins, h.SchoolClasses.Update)
	classes.DELETE("/:id", admins, h.SchoolClasses.Delete)
	classes.GET("/:id/seats", h.SchoolClasses.Seats)
	classes.GET("/:id/suitable-classrooms", h.SchoolClasses.SuitableClassrooms)
	classes.POST("/:id/teachers", admins, h.SchoolClasses.AddTeacher)
	classes.DELETE("/:id/teachers/:teacherId", admins, h.SchoolClasses.RemoveTeacher)

	registrations := api.Group("/registrations", admins)
	registrations.GET("", h.Registrations.List)
	registrations.POST("", h.Registrations.Create)
	registrations.GET("/:id", h.Registrations.Get)
	registrations.PATCH("/:id/status", h.Registrations.UpdateStatus)
	registrations.DELETE("/:id", h.Registrations.Delete)

	return r
}
