package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/platform/apierr"
	"github.com/vitalwatch/flagreview-backend/internal/store"
	"github.com/vitalwatch/flagreview-backend/internal/types"
)

// ListFlagsParams are the optional list controls. Limit <= 0 means no
// limit. SortBy is a column name optionally followed by a direction token;
// a token starting with "desc" (any case) sorts descending.
type ListFlagsParams struct {
	Limit  int
	SortBy string
}

// FeedbackInput is a submitted verdict before validation. ReviewTime is
// always server-assigned; clients cannot supply it.
type FeedbackInput struct {
	PredictionID string `json:"prediction_id"`
	Label        string `json:"label"`
	ReviewerID   string `json:"reviewer_id"`
	Notes        string `json:"notes"`
}

type ReviewService interface {
	ListUnreviewed(ctx context.Context, params ListFlagsParams) ([]types.FlagRecord, error)
	GetFlag(ctx context.Context, predictionID string) (*types.FlagRecord, error)
	SubmitFeedback(ctx context.Context, input FeedbackInput) (*types.Feedback, error)
}

type reviewService struct {
	log         *logger.Logger
	predictions store.PredictionStore
	feedback    store.FeedbackStore
	now         func() time.Time
}

func NewReviewService(baseLog *logger.Logger, predictions store.PredictionStore, feedback store.FeedbackStore) ReviewService {
	serviceLog := baseLog.With("service", "ReviewService")
	return &reviewService{
		log:         serviceLog,
		predictions: predictions,
		feedback:    feedback,
		now:         time.Now,
	}
}

func (s *reviewService) ListUnreviewed(ctx context.Context, params ListFlagsParams) ([]types.FlagRecord, error) {
	predictions, feedback, err := s.loadBoth(ctx)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "store_unavailable", err)
	}

	reviewed := make(map[string]struct{}, len(feedback))
	for _, fb := range feedback {
		reviewed[fb.PredictionID] = struct{}{}
	}

	unreviewed := make([]types.Prediction, 0, len(predictions))
	for _, p := range predictions {
		if _, ok := reviewed[p.PredictionID]; !ok {
			unreviewed = append(unreviewed, p)
		}
	}

	sortPredictions(unreviewed, params.SortBy)

	if params.Limit > 0 && params.Limit < len(unreviewed) {
		unreviewed = unreviewed[:params.Limit]
	}

	records := make([]types.FlagRecord, 0, len(unreviewed))
	for _, p := range unreviewed {
		records = append(records, types.NewFlagRecord(p))
	}
	return records, nil
}

func (s *reviewService) GetFlag(ctx context.Context, predictionID string) (*types.FlagRecord, error) {
	predictions, err := s.predictions.Load(ctx)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "store_unavailable", err)
	}
	for _, p := range predictions {
		if p.PredictionID == predictionID {
			record := types.NewFlagRecord(p)
			return &record, nil
		}
	}
	return nil, apierr.New(http.StatusNotFound, "prediction_not_found", fmt.Errorf("prediction with id %s not found", predictionID))
}

func (s *reviewService) SubmitFeedback(ctx context.Context, input FeedbackInput) (*types.Feedback, error) {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"prediction_id", input.PredictionID},
		{"label", input.Label},
		{"reviewer_id", input.ReviewerID},
	} {
		if field.value == "" {
			return nil, apierr.New(http.StatusBadRequest, "missing_field", fmt.Errorf("missing required field: %s", field.name))
		}
	}

	label := types.Label(input.Label)
	if !label.Valid() {
		return nil, apierr.New(http.StatusBadRequest, "invalid_label", fmt.Errorf(`label must be "TP" or "FP"`))
	}

	predictions, err := s.predictions.Load(ctx)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "store_unavailable", fmt.Errorf("could not read predictions: %w", err))
	}
	known := false
	for _, p := range predictions {
		if p.PredictionID == input.PredictionID {
			known = true
			break
		}
	}
	if !known {
		return nil, apierr.New(http.StatusBadRequest, "unknown_prediction", fmt.Errorf("prediction_id not found in predictions"))
	}

	row := types.Feedback{
		PredictionID: input.PredictionID,
		Label:        label,
		Notes:        input.Notes,
		ReviewerID:   input.ReviewerID,
		ReviewTime:   s.now().UTC(),
	}
	if err := s.feedback.Append(ctx, row); err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "store_unavailable", fmt.Errorf("could not save feedback: %w", err))
	}
	s.log.Info("Feedback recorded", "prediction_id", row.PredictionID, "label", row.Label, "reviewer_id", row.ReviewerID)
	return &row, nil
}

func (s *reviewService) loadBoth(ctx context.Context) ([]types.Prediction, []types.Feedback, error) {
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
		return nil, nil, err
	}
	return predictions, feedback, nil
}

// sortPredictions sorts in place by the requested column. An unknown column
// name leaves the order untouched.
func sortPredictions(rows []types.Prediction, sortBy string) {
	parts := strings.Fields(sortBy)
	if len(parts) == 0 {
		return
	}
	descending := len(parts) > 1 && strings.HasPrefix(strings.ToLower(parts[1]), "desc")

	var less func(a, b types.Prediction) bool
	switch parts[0] {
	case "prediction_id":
		less = func(a, b types.Prediction) bool { return a.PredictionID < b.PredictionID }
	case "patient_id":
		less = func(a, b types.Prediction) bool { return a.PatientID < b.PatientID }
	case "flag_type":
		less = func(a, b types.Prediction) bool { return a.FlagType < b.FlagType }
	case "risk_score":
		less = func(a, b types.Prediction) bool { return a.RiskScore < b.RiskScore }
	case "flag_time":
		less = func(a, b types.Prediction) bool { return a.FlagTime.Before(b.FlagTime) }
	case "summary_features":
		less = func(a, b types.Prediction) bool { return a.SummaryFeatures < b.SummaryFeatures }
	default:
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}
