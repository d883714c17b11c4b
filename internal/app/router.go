package app

import (
	"github.com/yungbote/devjourney-backend/internal/http"
	"github.com/yungbote/devjourney-backend/internal/observability"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics) *http.Server {
	log.Info("Wiring router...")
	serviceName := ""
	if cfg.OtelEnabled {
		serviceName = cfg.ServiceName
	}
	return http.NewServer(cfg.HTTPAddr, http.RouterConfig{
		Log:               log,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		Metrics:           metrics,
		AuthMiddleware:    middleware.Auth,
		JourneyHandler:    handlers.Journey,
		AssessmentHandler: handlers.Assessment,
		HealthHandler:     handlers.Health,
	})
}
