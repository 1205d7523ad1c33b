package app

import (
	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/services"
)

type Services struct {
	Review  services.ReviewService
	Metrics services.MetricsService
	Charts  services.ChartService
}

func wireServices(log *logger.Logger, cfg Config, stores Stores) (Services, error) {
	log.Info("Wiring services...")
	charts, err := services.NewChartService(log, cfg.ChartFontPath)
	if err != nil {
		return Services{}, err
	}
	return Services{
		Review:  services.NewReviewService(log, stores.Predictions, stores.Feedback),
		Metrics: services.NewMetricsService(log, stores.Predictions, stores.Feedback),
		Charts:  charts,
	}, nil
}
