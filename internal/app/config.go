package app

import (
	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/utils"
)

// Config carries the store locations explicitly instead of letting the
// stores read ambient process state.
type Config struct {
	PredictionsPath string
	FeedbackPath    string
	ChartFontPath   string
	Port            string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		PredictionsPath: utils.GetEnv("PREDICTIONS_PATH", "data/predictions.csv", log),
		FeedbackPath:    utils.GetEnv("FEEDBACK_PATH", "data/feedback.csv", log),
		ChartFontPath:   utils.GetEnv("CHART_FONT", "", log),
		Port:            utils.GetEnv("PORT", "8080", log),
	}
}
