package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/types"
)

var feedbackHeader = []string{
	"prediction_id",
	"label",
	"notes",
	"reviewer_id",
	"review_time",
}

// FeedbackStore is an append-only log of reviewer verdicts persisted as a
// whole-file CSV dataset. A missing file means no feedback yet, not an
// error. Append is read-append-rewrite; the mutex serializes writers so
// concurrent submissions cannot drop each other's rows.
type FeedbackStore interface {
	Load(ctx context.Context) ([]types.Feedback, error)
	Append(ctx context.Context, row types.Feedback) error
	Replace(ctx context.Context, rows []types.Feedback) error
}

type csvFeedbackStore struct {
	path string
	log  *logger.Logger

	mu sync.Mutex
}

func NewFeedbackStore(path string, baseLog *logger.Logger) FeedbackStore {
	storeLog := baseLog.With("store", "FeedbackStore", "path", path)
	return &csvFeedbackStore{path: path, log: storeLog}
}

func (s *csvFeedbackStore) Load(ctx context.Context) ([]types.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.load()
}

func (s *csvFeedbackStore) Append(ctx context.Context, row types.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.load()
	if err != nil {
		return err
	}
	rows = append(rows, row)
	if err := s.write(rows); err != nil {
		return err
	}
	s.log.Debug("Feedback appended", "prediction_id", row.PredictionID, "label", row.Label, "rows", len(rows))
	return nil
}

func (s *csvFeedbackStore) Replace(ctx context.Context, rows []types.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(rows)
}

func (s *csvFeedbackStore) load() ([]types.Feedback, error) {
	records, err := readTable(s.path, feedbackHeader)
	if err != nil {
		s.log.Error("Failed to load feedback", "error", err)
		return nil, err
	}
	rows := make([]types.Feedback, 0, len(records))
	for i, rec := range records {
		fb, err := parseFeedback(rec)
		if err != nil {
			s.log.Error("Malformed feedback row", "row", i+1, "error", err)
			return nil, fmt.Errorf("feedback row %d: %w", i+1, err)
		}
		rows = append(rows, fb)
	}
	return rows, nil
}

func (s *csvFeedbackStore) write(rows []types.Feedback) error {
	records := make([][]string, 0, len(rows))
	for _, fb := range rows {
		records = append(records, []string{
			fb.PredictionID,
			string(fb.Label),
			fb.Notes,
			fb.ReviewerID,
			formatTimestamp(fb.ReviewTime),
		})
	}
	if err := writeTable(s.path, feedbackHeader, records); err != nil {
		s.log.Error("Failed to write feedback", "error", err)
		return err
	}
	return nil
}

func parseFeedback(rec []string) (types.Feedback, error) {
	if len(rec) != len(feedbackHeader) {
		return types.Feedback{}, fmt.Errorf("expected %d columns, got %d", len(feedbackHeader), len(rec))
	}
	reviewTime, err := parseTimestamp(rec[4])
	if err != nil {
		return types.Feedback{}, fmt.Errorf("review_time: %w", err)
	}
	return types.Feedback{
		PredictionID: rec[0],
		Label:        types.Label(rec[1]),
		Notes:        rec[2],
		ReviewerID:   rec[3],
		ReviewTime:   reviewTime,
	}, nil
}
