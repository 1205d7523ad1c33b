package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/vitalwatch/flagreview-backend/internal/app"
	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/store"
	"github.com/vitalwatch/flagreview-backend/internal/types"
)

var (
	flagTypes    = []string{"High BP", "Low HR", "Arrhythmia"}
	recentEvents = []string{"None", "Fall", "Hospitalization"}
	sampleNotes  = []string{"", "Reviewed, looks good.", "Needs follow-up."}
)

// Seeds both stores with dummy data for local development and smoke tests.
func main() {
	numPredictions := flag.Int("predictions", 10, "number of dummy predictions to generate")
	numFeedback := flag.Int("feedback", 3, "number of dummy feedback rows to generate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := app.LoadConfig(log)
	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()
	now := time.Now().UTC()

	predictions := make([]types.Prediction, 0, *numPredictions)
	for i := 0; i < *numPredictions; i++ {
		features, _ := json.Marshal(map[string]interface{}{
			"age":          40 + rng.Intn(50),
			"systolic_bp":  90 + rng.Intn(90),
			"diastolic_bp": 60 + rng.Intn(50),
			"heart_rate":   50 + rng.Intn(70),
			"recent_event": recentEvents[rng.Intn(len(recentEvents))],
		})
		predictions = append(predictions, types.Prediction{
			PredictionID:    fmt.Sprintf("pred_%d", i+1),
			PatientID:       fmt.Sprintf("patient_%d", 1000+rng.Intn(1000)),
			FlagType:        flagTypes[rng.Intn(len(flagTypes))],
			RiskScore:       float64(10+rng.Intn(90)) / 100,
			FlagTime:        now.Add(-time.Duration(1+rng.Intn(71)) * time.Hour),
			SummaryFeatures: string(features),
		})
	}

	predictionStore := store.NewPredictionStore(cfg.PredictionsPath, log)
	if err := predictionStore.Replace(ctx, predictions); err != nil {
		log.Fatal("Failed to write predictions", "error", err)
	}
	log.Info("Dummy predictions written", "path", cfg.PredictionsPath, "rows", len(predictions))

	if *numFeedback <= 0 {
		return
	}
	n := *numFeedback
	if n > len(predictions) {
		n = len(predictions)
	}
	feedback := make([]types.Feedback, 0, n)
	labels := []types.Label{types.LabelTruePositive, types.LabelFalsePositive}
	for i := 0; i < n; i++ {
		feedback = append(feedback, types.Feedback{
			PredictionID: predictions[i].PredictionID,
			Label:        labels[rng.Intn(len(labels))],
			Notes:        sampleNotes[rng.Intn(len(sampleNotes))],
			ReviewerID:   fmt.Sprintf("clinician_%d", 1+rng.Intn(3)),
			ReviewTime:   now.Add(-time.Duration(1+rng.Intn(47)) * time.Hour),
		})
	}

	feedbackStore := store.NewFeedbackStore(cfg.FeedbackPath, log)
	if err := feedbackStore.Replace(ctx, feedback); err != nil {
		log.Fatal("Failed to write feedback", "error", err)
	}
	log.Info("Dummy feedback written", "path", cfg.FeedbackPath, "rows", len(feedback))
}
