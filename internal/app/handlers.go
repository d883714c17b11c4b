package app

import (
	httpH "github.com/yungbote/devjourney-backend/internal/http/handlers"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Journey    *httpH.JourneyHandler
	Assessment *httpH.AssessmentHandler
}

func wireHandlers(log *logger.Logger, services Services, repos Repos) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(repos.Resolver, TierLocal),
		Journey:    httpH.NewJourneyHandler(log, services.Content, services.Sessions, services.Responses),
		Assessment: httpH.NewAssessmentHandler(log, services.Assessments),
	}
}
