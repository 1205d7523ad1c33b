package services

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/platform/apierr"
	"github.com/vitalwatch/flagreview-backend/internal/store"
	"github.com/vitalwatch/flagreview-backend/internal/types"
)

type MetricsService interface {
	Metrics(ctx context.Context) (*types.ReviewMetrics, error)
}

type metricsService struct {
	log         *logger.Logger
	predictions store.PredictionStore
	feedback    store.FeedbackStore
}

func NewMetricsService(baseLog *logger.Logger, predictions store.PredictionStore, feedback store.FeedbackStore) MetricsService {
	serviceLog := baseLog.With("service", "MetricsService")
	return &metricsService{log: serviceLog, predictions: predictions, feedback: feedback}
}

// Metrics recomputes the full projection on every call. NumReviewed counts
// feedback rows, not distinct predictions, so re-reviews are counted again.
func (s *metricsService) Metrics(ctx context.Context) (*types.ReviewMetrics, error) {
	var (
		predictions []types.Prediction
		feedback    []types.Feedback
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		predictions, err = s.predictions.Load(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		feedback, err = s.feedback.Load(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "store_unavailable", err)
	}

	flagTimes := make(map[string]time.Time, len(predictions))
	flagTypes := make(map[string]string, len(predictions))
	for _, p := range predictions {
		flagTimes[p.PredictionID] = p.FlagTime
		flagTypes[p.PredictionID] = p.FlagType
	}

	m := &types.ReviewMetrics{
		TotalPredictions:  len(predictions),
		NumReviewed:       len(feedback),
		LabelDistribution: map[string]map[types.Label]int{},
	}

	var latencySum float64
	var latencyN int
	for _, fb := range feedback {
		switch fb.Label {
		case types.LabelTruePositive:
			m.TPCount++
		case types.LabelFalsePositive:
			m.FPCount++
		}

		// Feedback rows whose prediction is gone have no flag time and
		// contribute nothing to latency or the distribution.
		flagTime, ok := flagTimes[fb.PredictionID]
		if !ok {
			continue
		}
		latencySum += fb.ReviewTime.Sub(flagTime).Hours()
		latencyN++

		flagType := flagTypes[fb.PredictionID]
		if m.LabelDistribution[flagType] == nil {
			m.LabelDistribution[flagType] = map[types.Label]int{}
		}
		m.LabelDistribution[flagType][fb.Label]++
	}
	if latencyN > 0 {
		avg := latencySum / float64(latencyN)
		m.AvgLatencyHours = &avg
	}
	return m, nil
}
