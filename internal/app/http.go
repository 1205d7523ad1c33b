package app

import (
	"github.com/gin-gonic/gin"

	"github.com/vitalwatch/flagreview-backend/internal/http"
	httpH "github.com/vitalwatch/flagreview-backend/internal/http/handlers"
	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Flag     *httpH.FlagHandler
	Feedback *httpH.FeedbackHandler
	Pages    *httpH.PagesHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Flag:     httpH.NewFlagHandler(services.Review),
		Feedback: httpH.NewFeedbackHandler(services.Review),
		Pages:    httpH.NewPagesHandler(log, services.Review, services.Metrics, services.Charts),
	}
}

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		HealthHandler:   handlers.Health,
		FlagHandler:     handlers.Flag,
		FeedbackHandler: handlers.Feedback,
		PagesHandler:    handlers.Pages,
	})
}
