package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/types"
)

var predictionHeader = []string{
	"prediction_id",
	"patient_id",
	"flag_type",
	"risk_score",
	"flag_time",
	"summary_features",
}

// PredictionStore reads and replaces the predictions dataset as whole-file
// operations. The dataset is produced upstream; this service only writes it
// through Replace (seed tooling).
type PredictionStore interface {
	Load(ctx context.Context) ([]types.Prediction, error)
	Replace(ctx context.Context, rows []types.Prediction) error
}

type csvPredictionStore struct {
	path string
	log  *logger.Logger
}

func NewPredictionStore(path string, baseLog *logger.Logger) PredictionStore {
	storeLog := baseLog.With("store", "PredictionStore", "path", path)
	return &csvPredictionStore{path: path, log: storeLog}
}

func (s *csvPredictionStore) Load(ctx context.Context) ([]types.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := readTable(s.path, predictionHeader)
	if err != nil {
		s.log.Error("Failed to load predictions", "error", err)
		return nil, err
	}
	rows := make([]types.Prediction, 0, len(records))
	for i, rec := range records {
		p, err := parsePrediction(rec)
		if err != nil {
			s.log.Error("Malformed prediction row", "row", i+1, "error", err)
			return nil, fmt.Errorf("predictions row %d: %w", i+1, err)
		}
		rows = append(rows, p)
	}
	return rows, nil
}

func (s *csvPredictionStore) Replace(ctx context.Context, rows []types.Prediction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records := make([][]string, 0, len(rows))
	for _, p := range rows {
		records = append(records, []string{
			p.PredictionID,
			p.PatientID,
			p.FlagType,
			strconv.FormatFloat(p.RiskScore, 'f', -1, 64),
			formatTimestamp(p.FlagTime),
			p.SummaryFeatures,
		})
	}
	if err := writeTable(s.path, predictionHeader, records); err != nil {
		s.log.Error("Failed to write predictions", "error", err)
		return err
	}
	s.log.Debug("Predictions written", "rows", len(rows))
	return nil
}

func parsePrediction(rec []string) (types.Prediction, error) {
	if len(rec) != len(predictionHeader) {
		return types.Prediction{}, fmt.Errorf("expected %d columns, got %d", len(predictionHeader), len(rec))
	}
	score, err := strconv.ParseFloat(rec[3], 64)
	if err != nil {
		return types.Prediction{}, fmt.Errorf("risk_score: %w", err)
	}
	flagTime, err := parseTimestamp(rec[4])
	if err != nil {
		return types.Prediction{}, fmt.Errorf("flag_time: %w", err)
	}
	return types.Prediction{
		PredictionID:    rec[0],
		PatientID:       rec[1],
		FlagType:        rec[2],
		RiskScore:       score,
		FlagTime:        flagTime,
		SummaryFeatures: rec[5],
	}, nil
}
