package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitalwatch/flagreview-backend/internal/http/response"
	"github.com/vitalwatch/flagreview-backend/internal/platform/apierr"
	"github.com/vitalwatch/flagreview-backend/internal/services"
)

type FeedbackHandler struct {
	review services.ReviewService
}

func NewFeedbackHandler(review services.ReviewService) *FeedbackHandler {
	return &FeedbackHandler{review: review}
}

// Submit serves POST /feedback. Body shape and field validation live in the
// review service; only JSON decoding is handled here.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var input services.FeedbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.RespondError(c, http.StatusBadRequest, "malformed_input", fmt.Errorf("request body must be valid JSON: %w", err))
		return
	}

	if _, err := h.review.SubmitFeedback(c.Request.Context(), input); err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			response.RespondError(c, ae.Status, ae.Code, ae.Err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "submit_feedback_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"status": "success"})
}
