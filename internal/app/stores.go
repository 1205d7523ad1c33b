package app

import (
	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/store"
)

type Stores struct {
	Predictions store.PredictionStore
	Feedback    store.FeedbackStore
}

func wireStores(log *logger.Logger, cfg Config) Stores {
	log.Info("Wiring stores...", "predictions", cfg.PredictionsPath, "feedback", cfg.FeedbackPath)
	return Stores{
		Predictions: store.NewPredictionStore(cfg.PredictionsPath, log),
		Feedback:    store.NewFeedbackStore(cfg.FeedbackPath, log),
	}
}
