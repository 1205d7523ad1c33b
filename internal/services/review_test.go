package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/platform/apierr"
	"github.com/vitalwatch/flagreview-backend/internal/types"
)

func testLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

type fakePredictionStore struct {
	rows    []types.Prediction
	loadErr error
}

func (f *fakePredictionStore) Load(ctx context.Context) ([]types.Prediction, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.rows, nil
}

func (f *fakePredictionStore) Replace(ctx context.Context, rows []types.Prediction) error {
	f.rows = rows
	return nil
}

type fakeFeedbackStore struct {
	rows      []types.Feedback
	loadErr   error
	appendErr error
}

func (f *fakeFeedbackStore) Load(ctx context.Context) ([]types.Feedback, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.rows, nil
}

func (f *fakeFeedbackStore) Append(ctx context.Context, row types.Feedback) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeFeedbackStore) Replace(ctx context.Context, rows []types.Feedback) error {
	f.rows = rows
	return nil
}

func prediction(id string, score float64, flagTime time.Time) types.Prediction {
	return types.Prediction{
		PredictionID:    id,
		PatientID:       "patient_" + id,
		FlagType:        "High BP",
		RiskScore:       score,
		FlagTime:        flagTime,
		SummaryFeatures: `{"age":70}`,
	}
}

func TestListUnreviewed_FiltersReviewedRegardlessOfOrder(t *testing.T) {
	now := time.Now().UTC()
	predictions := &fakePredictionStore{rows: []types.Prediction{
		prediction("pred_3", 0.3, now),
		prediction("pred_1", 0.1, now),
		prediction("pred_2", 0.2, now),
	}}
	feedback := &fakeFeedbackStore{rows: []types.Feedback{
		{PredictionID: "pred_2", Label: types.LabelTruePositive, ReviewerID: "r1", ReviewTime: now},
		{PredictionID: "pred_2", Label: types.LabelFalsePositive, ReviewerID: "r2", ReviewTime: now},
	}}
	svc := NewReviewService(testLogger(), predictions, feedback)

	records, err := svc.ListUnreviewed(context.Background(), ListFlagsParams{})
	if err != nil {
		t.Fatalf("ListUnreviewed: %v", err)
	}
	got := map[string]bool{}
	for _, r := range records {
		got[r.PredictionID] = true
	}
	if len(got) != 2 || !got["pred_1"] || !got["pred_3"] {
		t.Fatalf("unexpected unreviewed set: %v", got)
	}
}

func TestListUnreviewed_SortDescAndLimitIsPrefix(t *testing.T) {
	now := time.Now().UTC()
	predictions := &fakePredictionStore{rows: []types.Prediction{
		prediction("pred_1", 0.15, now),
		prediction("pred_2", 0.95, now),
		prediction("pred_3", 0.55, now),
	}}
	svc := NewReviewService(testLogger(), predictions, &fakeFeedbackStore{})

	all, err := svc.ListUnreviewed(context.Background(), ListFlagsParams{SortBy: "risk_score desc"})
	if err != nil {
		t.Fatalf("ListUnreviewed: %v", err)
	}
	for i := 1; i < len(all); i++ {
		if all[i].RiskScore > all[i-1].RiskScore {
			t.Fatalf("not sorted descending: %v before %v", all[i-1].RiskScore, all[i].RiskScore)
		}
	}

	limited, err := svc.ListUnreviewed(context.Background(), ListFlagsParams{SortBy: "risk_score desc", Limit: 2})
	if err != nil {
		t.Fatalf("ListUnreviewed with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit: got=%d want=2", len(limited))
	}
	for i := range limited {
		if limited[i].PredictionID != all[i].PredictionID {
			t.Fatalf("limited result is not a prefix: got=%s want=%s", limited[i].PredictionID, all[i].PredictionID)
		}
	}
}

func TestListUnreviewed_UnknownSortColumnKeepsOrder(t *testing.T) {
	now := time.Now().UTC()
	predictions := &fakePredictionStore{rows: []types.Prediction{
		prediction("pred_2", 0.9, now),
		prediction("pred_1", 0.1, now),
	}}
	svc := NewReviewService(testLogger(), predictions, &fakeFeedbackStore{})

	records, err := svc.ListUnreviewed(context.Background(), ListFlagsParams{SortBy: "nonexistent_col desc"})
	if err != nil {
		t.Fatalf("ListUnreviewed: %v", err)
	}
	if records[0].PredictionID != "pred_2" || records[1].PredictionID != "pred_1" {
		t.Fatalf("order changed for unknown sort column: %v", records)
	}
}

func TestListUnreviewed_SummaryFeaturesFallsBackToRawString(t *testing.T) {
	now := time.Now().UTC()
	raw := prediction("pred_1", 0.5, now)
	raw.SummaryFeatures = "{{{not json"
	parsed := prediction("pred_2", 0.6, now)
	predictions := &fakePredictionStore{rows: []types.Prediction{raw, parsed}}
	svc := NewReviewService(testLogger(), predictions, &fakeFeedbackStore{})

	records, err := svc.ListUnreviewed(context.Background(), ListFlagsParams{SortBy: "prediction_id"})
	if err != nil {
		t.Fatalf("ListUnreviewed: %v", err)
	}
	if got, ok := records[0].SummaryFeatures.(string); !ok || got != "{{{not json" {
		t.Fatalf("expected raw string fallback, got %T %v", records[0].SummaryFeatures, records[0].SummaryFeatures)
	}
	if _, ok := records[1].SummaryFeatures.(map[string]interface{}); !ok {
		t.Fatalf("expected decoded map, got %T", records[1].SummaryFeatures)
	}
}

func TestListUnreviewed_PredictionsReadFailureIsStoreUnavailable(t *testing.T) {
	predictions := &fakePredictionStore{loadErr: errors.New("disk gone")}
	svc := NewReviewService(testLogger(), predictions, &fakeFeedbackStore{})

	_, err := svc.ListUnreviewed(context.Background(), ListFlagsParams{})
	assertAPIError(t, err, http.StatusInternalServerError, "store_unavailable")
}

func TestSubmitFeedback_MissingFieldsReportedInOrder(t *testing.T) {
	svc := NewReviewService(testLogger(), &fakePredictionStore{}, &fakeFeedbackStore{})

	_, err := svc.SubmitFeedback(context.Background(), FeedbackInput{Label: "TP"})
	assertAPIError(t, err, http.StatusBadRequest, "missing_field")
	if !strings.Contains(err.Error(), "prediction_id") {
		t.Fatalf("expected prediction_id named first, got %q", err.Error())
	}

	_, err = svc.SubmitFeedback(context.Background(), FeedbackInput{PredictionID: "pred_1"})
	assertAPIError(t, err, http.StatusBadRequest, "missing_field")
	if !strings.Contains(err.Error(), "label") {
		t.Fatalf("expected label named, got %q", err.Error())
	}

	_, err = svc.SubmitFeedback(context.Background(), FeedbackInput{PredictionID: "pred_1", Label: "TP"})
	assertAPIError(t, err, http.StatusBadRequest, "missing_field")
	if !strings.Contains(err.Error(), "reviewer_id") {
		t.Fatalf("expected reviewer_id named, got %q", err.Error())
	}
}

func TestSubmitFeedback_InvalidLabelLeavesStoreUntouched(t *testing.T) {
	now := time.Now().UTC()
	predictions := &fakePredictionStore{rows: []types.Prediction{prediction("pred_1", 0.5, now)}}
	feedback := &fakeFeedbackStore{}
	svc := NewReviewService(testLogger(), predictions, feedback)

	_, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
		PredictionID: "pred_1", Label: "MAYBE", ReviewerID: "r1",
	})
	assertAPIError(t, err, http.StatusBadRequest, "invalid_label")
	if len(feedback.rows) != 0 {
		t.Fatalf("feedback store modified on invalid label: %d rows", len(feedback.rows))
	}
}

func TestSubmitFeedback_UnknownPredictionLeavesStoreUntouched(t *testing.T) {
	now := time.Now().UTC()
	predictions := &fakePredictionStore{rows: []types.Prediction{prediction("pred_1", 0.5, now)}}
	feedback := &fakeFeedbackStore{}
	svc := NewReviewService(testLogger(), predictions, feedback)

	_, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
		PredictionID: "pred_404", Label: "TP", ReviewerID: "r1",
	})
	assertAPIError(t, err, http.StatusBadRequest, "unknown_prediction")
	if len(feedback.rows) != 0 {
		t.Fatalf("feedback store modified on unknown prediction: %d rows", len(feedback.rows))
	}
}

func TestSubmitFeedback_PredictionsReadFailureIsServerError(t *testing.T) {
	predictions := &fakePredictionStore{loadErr: errors.New("disk gone")}
	svc := NewReviewService(testLogger(), predictions, &fakeFeedbackStore{})

	_, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
		PredictionID: "pred_1", Label: "TP", ReviewerID: "r1",
	})
	assertAPIError(t, err, http.StatusInternalServerError, "store_unavailable")
}

func TestSubmitFeedback_SuccessAppendsOneRowAndExcludesFlag(t *testing.T) {
	now := time.Now().UTC()
	predictions := &fakePredictionStore{rows: []types.Prediction{
		prediction("pred_1", 0.5, now),
		prediction("pred_2", 0.6, now),
	}}
	feedback := &fakeFeedbackStore{}
	svc := NewReviewService(testLogger(), predictions, feedback)

	row, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
		PredictionID: "pred_1", Label: "TP", ReviewerID: "r1",
	})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if len(feedback.rows) != 1 {
		t.Fatalf("rows appended: got=%d want=1", len(feedback.rows))
	}
	if row.Notes != "" {
		t.Fatalf("notes should default empty, got %q", row.Notes)
	}
	if age := time.Since(row.ReviewTime); age < 0 || age > 5*time.Second {
		t.Fatalf("review_time not server-assigned now: %v", row.ReviewTime)
	}
	if row.ReviewTime.Location() != time.UTC {
		t.Fatalf("review_time not UTC: %v", row.ReviewTime.Location())
	}

	records, err := svc.ListUnreviewed(context.Background(), ListFlagsParams{})
	if err != nil {
		t.Fatalf("ListUnreviewed: %v", err)
	}
	if len(records) != 1 || records[0].PredictionID != "pred_2" {
		t.Fatalf("pred_1 still listed after review: %v", records)
	}
}

func TestSubmitFeedback_DuplicateSubmissionsBothRetained(t *testing.T) {
	now := time.Now().UTC()
	predictions := &fakePredictionStore{rows: []types.Prediction{prediction("pred_1", 0.5, now)}}
	feedback := &fakeFeedbackStore{}
	svc := NewReviewService(testLogger(), predictions, feedback)

	for i := 0; i < 2; i++ {
		_, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
			PredictionID: "pred_1", Label: "FP", ReviewerID: "r1",
		})
		if err != nil {
			t.Fatalf("SubmitFeedback #%d: %v", i+1, err)
		}
	}
	if len(feedback.rows) != 2 {
		t.Fatalf("append-only log: got=%d rows want=2", len(feedback.rows))
	}

	records, err := svc.ListUnreviewed(context.Background(), ListFlagsParams{})
	if err != nil {
		t.Fatalf("ListUnreviewed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("reviewed flag still listed: %v", records)
	}
}

func TestSubmitFeedback_AppendFailureIsStoreUnavailable(t *testing.T) {
	now := time.Now().UTC()
	predictions := &fakePredictionStore{rows: []types.Prediction{prediction("pred_1", 0.5, now)}}
	feedback := &fakeFeedbackStore{appendErr: errors.New("disk full")}
	svc := NewReviewService(testLogger(), predictions, feedback)

	_, err := svc.SubmitFeedback(context.Background(), FeedbackInput{
		PredictionID: "pred_1", Label: "TP", ReviewerID: "r1",
	})
	assertAPIError(t, err, http.StatusInternalServerError, "store_unavailable")
}

func TestGetFlag(t *testing.T) {
	now := time.Now().UTC()
	predictions := &fakePredictionStore{rows: []types.Prediction{prediction("pred_1", 0.5, now)}}
	svc := NewReviewService(testLogger(), predictions, &fakeFeedbackStore{})

	record, err := svc.GetFlag(context.Background(), "pred_1")
	if err != nil {
		t.Fatalf("GetFlag: %v", err)
	}
	if record.PredictionID != "pred_1" {
		t.Fatalf("wrong record: %+v", record)
	}

	_, err = svc.GetFlag(context.Background(), "pred_404")
	assertAPIError(t, err, http.StatusNotFound, "prediction_not_found")
}

func assertAPIError(t *testing.T, err error, wantStatus int, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %d %s error, got nil", wantStatus, wantCode)
	}
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected apierr.Error, got %T: %v", err, err)
	}
	if ae.Status != wantStatus || ae.Code != wantCode {
		t.Fatalf("error: got=%d %s want=%d %s", ae.Status, ae.Code, wantStatus, wantCode)
	}
}
