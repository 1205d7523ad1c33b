package types

import (
	"encoding/json"
	"time"
)

// Label is a reviewer verdict on a prediction.
type Label string

const (
	LabelTruePositive  Label = "TP"
	LabelFalsePositive Label = "FP"
)

func (l Label) Valid() bool {
	return l == LabelTruePositive || l == LabelFalsePositive
}

// Prediction is one machine-generated risk flag. SummaryFeatures holds the
// serialized feature payload exactly as it appears in the store; use
// ParseSummaryFeatures for the decoded form.
type Prediction struct {
	PredictionID    string
	PatientID       string
	FlagType        string
	RiskScore       float64
	FlagTime        time.Time
	SummaryFeatures string
}

// Feedback is one reviewer verdict. Rows are append-only; a prediction with
// at least one row is considered reviewed.
type Feedback struct {
	PredictionID string
	Label        Label
	Notes        string
	ReviewerID   string
	ReviewTime   time.Time
}

// FlagRecord is the wire shape of a prediction, with the feature payload
// decoded into a map when it parses as JSON and left as the raw string
// otherwise.
type FlagRecord struct {
	PredictionID    string      `json:"prediction_id"`
	PatientID       string      `json:"patient_id"`
	FlagType        string      `json:"flag_type"`
	RiskScore       float64     `json:"risk_score"`
	FlagTime        time.Time   `json:"flag_time"`
	SummaryFeatures interface{} `json:"summary_features"`
}

func NewFlagRecord(p Prediction) FlagRecord {
	return FlagRecord{
		PredictionID:    p.PredictionID,
		PatientID:       p.PatientID,
		FlagType:        p.FlagType,
		RiskScore:       p.RiskScore,
		FlagTime:        p.FlagTime,
		SummaryFeatures: ParseSummaryFeatures(p.SummaryFeatures),
	}
}

// ParseSummaryFeatures decodes the serialized feature payload. A payload
// that is not a JSON object degrades to the raw string, never to an error.
func ParseSummaryFeatures(raw string) interface{} {
	var features map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &features); err != nil {
		return raw
	}
	return features
}

// ReviewMetrics is a point-in-time projection over both stores.
// AvgLatencyHours is nil when no feedback row could be joined to its
// prediction's flag time.
type ReviewMetrics struct {
	TotalPredictions  int                      `json:"total_predictions"`
	NumReviewed       int                      `json:"num_reviewed"`
	TPCount           int                      `json:"tp_count"`
	FPCount           int                      `json:"fp_count"`
	AvgLatencyHours   *float64                 `json:"avg_latency_hours"`
	LabelDistribution map[string]map[Label]int `json:"label_distribution_by_flag_type"`
}
