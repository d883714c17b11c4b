package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/devjourney-backend/internal/http/handlers"
	httpMW "github.com/yungbote/devjourney-backend/internal/http/middleware"
	"github.com/yungbote/devjourney-backend/internal/observability"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics

	AuthMiddleware    *httpMW.AuthMiddleware
	JourneyHandler    *httpH.JourneyHandler
	AssessmentHandler *httpH.AssessmentHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/healthcheck/stores", cfg.HealthHandler.Stores)
	}
	if cfg.Metrics != nil {
		r.GET(httpMW.MetricsPath, gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	protected := r.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Journey
	if cfg.JourneyHandler != nil {
		journey := protected.Group("/journey/:subjectId", httpMW.RequireOwner())
		journey.GET("", cfg.JourneyHandler.GetJourney)
		journey.POST("/progress", cfg.JourneyHandler.SaveProgress)
		journey.POST("/answers", cfg.JourneyHandler.SubmitAnswer)
		journey.GET("/history", cfg.JourneyHandler.History)
		journey.GET("/progress", cfg.JourneyHandler.Progress)
		journey.POST("/pause", cfg.JourneyHandler.Pause)
		journey.POST("/complete", cfg.JourneyHandler.Complete)
	}

	// Assessments
	if cfg.AssessmentHandler != nil {
		protected.GET("/assessments/questions", cfg.AssessmentHandler.Questions)
		owned := protected.Group("/assessments/:subjectId", httpMW.RequireOwner())
		owned.POST("", cfg.AssessmentHandler.Start)
		owned.GET("/:assessmentId", cfg.AssessmentHandler.Get)
		owned.PUT("/:assessmentId/responses", cfg.AssessmentHandler.RecordResponse)
		owned.POST("/:assessmentId/complete", cfg.AssessmentHandler.Complete)
		owned.GET("/:assessmentId/progress", cfg.AssessmentHandler.Progress)
	}

	return r
}
