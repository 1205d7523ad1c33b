package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
	"github.com/vitalwatch/flagreview-backend/internal/platform/apierr"
	"github.com/vitalwatch/flagreview-backend/internal/services"
	"github.com/vitalwatch/flagreview-backend/internal/types"
)

// PagesHandler renders the server-side review UI: the unreviewed listing,
// the single-flag review form and the metrics dashboard.
type PagesHandler struct {
	log     *logger.Logger
	review  services.ReviewService
	metrics services.MetricsService
	charts  services.ChartService
}

func NewPagesHandler(baseLog *logger.Logger, review services.ReviewService, metrics services.MetricsService, charts services.ChartService) *PagesHandler {
	return &PagesHandler{
		log:     baseLog.With("handler", "PagesHandler"),
		review:  review,
		metrics: metrics,
		charts:  charts,
	}
}

func (h *PagesHandler) Index(c *gin.Context) {
	records, err := h.review.ListUnreviewed(c.Request.Context(), services.ListFlagsParams{})
	if err != nil {
		h.log.Error("Failed to render index", "error", err)
		c.String(http.StatusInternalServerError, "could not load unreviewed predictions")
		return
	}
	h.renderHTML(c, indexTmpl, gin.H{"Rows": records})
}

func (h *PagesHandler) ReviewGet(c *gin.Context) {
	h.renderReview(c, c.Param("prediction_id"), "", false)
}

func (h *PagesHandler) ReviewPost(c *gin.Context) {
	predictionID := c.Param("prediction_id")
	label := c.PostForm("label")
	notes := c.PostForm("notes")
	reviewerID := c.PostForm("reviewer_id")
	if reviewerID == "" {
		reviewerID = "clinician"
	}

	if !types.Label(label).Valid() {
		h.renderReview(c, predictionID, "Please select True Positive or False Positive.", false)
		return
	}

	_, err := h.review.SubmitFeedback(c.Request.Context(), services.FeedbackInput{
		PredictionID: predictionID,
		Label:        label,
		ReviewerID:   reviewerID,
		Notes:        notes,
	})
	if err != nil {
		h.renderReview(c, predictionID, fmt.Sprintf("Error submitting feedback: %v", err), false)
		return
	}
	h.renderReview(c, predictionID, "Feedback submitted successfully. This prediction is now marked as reviewed.", true)
}

func (h *PagesHandler) renderReview(c *gin.Context, predictionID, message string, reviewed bool) {
	record, err := h.review.GetFlag(c.Request.Context(), predictionID)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
			c.String(http.StatusNotFound, "Prediction with id %s not found.", predictionID)
			return
		}
		h.log.Error("Failed to load prediction for review", "prediction_id", predictionID, "error", err)
		c.String(http.StatusInternalServerError, "could not load prediction")
		return
	}

	data := gin.H{
		"PredictionID": record.PredictionID,
		"Message":      message,
		"Reviewed":     reviewed,
	}
	switch features := record.SummaryFeatures.(type) {
	case map[string]interface{}:
		data["Features"] = features
	default:
		data["RawFeatures"] = fmt.Sprint(features)
	}
	h.renderHTML(c, reviewTmpl, data)
}

func (h *PagesHandler) Metrics(c *gin.Context) {
	m, err := h.metrics.Metrics(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to compute metrics", "error", err)
		c.String(http.StatusInternalServerError, "could not compute metrics")
		return
	}

	latency := "N/A"
	if m.AvgLatencyHours != nil {
		latency = fmt.Sprintf("%.2f", *m.AvgLatencyHours)
	}

	data := gin.H{
		"Metrics": m,
		"Latency": latency,
	}

	countsPNG, err := h.charts.LabelCountsPNG(m.TPCount, m.FPCount)
	if err != nil {
		h.log.Error("Failed to render label counts chart", "error", err)
	} else {
		data["LabelCountsImg"] = pngDataURI(countsPNG)
	}
	if len(m.LabelDistribution) > 0 {
		distPNG, err := h.charts.LabelDistributionPNG(m.LabelDistribution)
		if err != nil {
			h.log.Error("Failed to render distribution chart", "error", err)
		} else {
			data["DistributionImg"] = pngDataURI(distPNG)
		}
	}
	h.renderHTML(c, metricsTmpl, data)
}

func (h *PagesHandler) renderHTML(c *gin.Context, tmpl *template.Template, data gin.H) {
	c.Writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := tmpl.Execute(c.Writer, data); err != nil {
		h.log.Error("Template render failed", "template", tmpl.Name(), "error", err)
	}
}

func pngDataURI(png []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

var indexTmpl = template.Must(template.New("index").Parse(`<html>
<head>
    <title>Unreviewed Predictions</title>
    <style>
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #ddd; padding: 8px; }
        th { background-color: #f2f2f2; }
        button { padding: 5px 10px; }
    </style>
</head>
<body>
    <h2>Unreviewed Predictions</h2>
    <table>
        <tr>
            <th>Patient ID</th>
            <th>Flag Type</th>
            <th>Risk Score</th>
            <th>Flag Time</th>
            <th>Action</th>
        </tr>
        {{range .Rows}}
        <tr>
            <td>{{.PatientID}}</td>
            <td>{{.FlagType}}</td>
            <td>{{.RiskScore}}</td>
            <td>{{.FlagTime}}</td>
            <td>
                <form action="/review/{{.PredictionID}}" method="get">
                    <button type="submit">Review</button>
                </form>
            </td>
        </tr>
        {{end}}
    </table>
</body>
</html>
`))

var reviewTmpl = template.Must(template.New("review").Parse(`<html>
<head>
    <title>Review Prediction</title>
    <style>
        table { border-collapse: collapse; width: 50%; }
        th, td { border: 1px solid #ddd; padding: 8px; }
        th { background-color: #f2f2f2; text-align: left; }
        .success { color: green; }
        .error { color: red; }
    </style>
</head>
<body>
    <h2>Review Prediction: {{.PredictionID}}</h2>
    <h3>Summary Features</h3>
    {{if .Features}}
    <table>
        <tr><th>Feature</th><th>Value</th></tr>
        {{range $k, $v := .Features}}
        <tr><td>{{$k}}</td><td>{{$v}}</td></tr>
        {{end}}
    </table>
    {{else}}
    <pre>{{.RawFeatures}}</pre>
    {{end}}
    <br>
    {{if .Message}}
        <div class="{{if .Reviewed}}success{{else}}error{{end}}">{{.Message}}</div>
    {{end}}
    {{if not .Reviewed}}
    <form method="post">
        <label><b>Label:</b></label><br>
        <input type="radio" id="tp" name="label" value="TP">
        <label for="tp">True Positive</label><br>
        <input type="radio" id="fp" name="label" value="FP">
        <label for="fp">False Positive</label><br><br>
        <label for="notes"><b>Notes (optional):</b></label><br>
        <textarea id="notes" name="notes" rows="3" cols="40"></textarea><br><br>
        <input type="hidden" name="reviewer_id" value="clinician">
        <button type="submit">Submit Feedback</button>
    </form>
    {{end}}
    <br>
    <a href="/">Back to list</a>
</body>
</html>
`))

var metricsTmpl = template.Must(template.New("metrics").Parse(`<html>
<head>
    <title>Review Metrics</title>
    <style>
        .counter { font-size: 2em; margin: 10px 0; }
        .metrics { display: flex; gap: 40px; }
        .chart { margin: 20px 0; }
    </style>
</head>
<body>
    <h2>Review Metrics</h2>
    <div class="metrics">
        <div><div class="counter">{{.Metrics.TotalPredictions}}</div>Total Predictions</div>
        <div><div class="counter">{{.Metrics.NumReviewed}}</div>Reviewed</div>
        <div><div class="counter">{{.Metrics.TPCount}}</div>True Positives</div>
        <div><div class="counter">{{.Metrics.FPCount}}</div>False Positives</div>
        <div><div class="counter">{{.Latency}}</div>Avg. Review Latency (hrs)</div>
    </div>
    <div class="chart">
        <h3>Label Counts</h3>
        {{if .LabelCountsImg}}<img src="{{.LabelCountsImg}}"/>{{else}}<i>No data</i>{{end}}
    </div>
    <div class="chart">
        <h3>Label Distribution by Flag Type</h3>
        {{if .DistributionImg}}<img src="{{.DistributionImg}}"/>{{else}}<i>No data</i>{{end}}
    </div>
    <a href="/">Back to list</a>
</body>
</html>
`))
