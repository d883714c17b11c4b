package app

import (
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
	"github.com/yungbote/devjourney-backend/internal/services"
)

type Services struct {
	Content     services.ContentService
	Sessions    services.SessionService
	Responses   services.ResponseService
	Assessments services.AssessmentService
	Auth        services.TokenVerifier
}

func wireServices(log *logger.Logger, cfg Config, catalog services.Catalog, repos Repos) Services {
	log.Info("Wiring services...")
	content := services.NewContentService(log, catalog)
	sessions := services.NewSessionService(log, repos.Sessions)
	return Services{
		Content:     content,
		Sessions:    sessions,
		Responses:   services.NewResponseService(log, repos.Responses, repos.Sessions, sessions, content),
		Assessments: services.NewAssessmentService(log, repos.Assessments, content),
		Auth:        services.NewJWTVerifier(cfg.JWTSecretKey),
	}
}
