package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vitalwatch/flagreview-backend/internal/http/response"
	"github.com/vitalwatch/flagreview-backend/internal/platform/apierr"
	"github.com/vitalwatch/flagreview-backend/internal/services"
)

type FlagHandler struct {
	review services.ReviewService
}

func NewFlagHandler(review services.ReviewService) *FlagHandler {
	return &FlagHandler{review: review}
}

// ListUnreviewed serves GET /flags. An unparseable limit is ignored rather
// than rejected; sort_by is passed through verbatim.
func (h *FlagHandler) ListUnreviewed(c *gin.Context) {
	var params services.ListFlagsParams
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			params.Limit = n
		}
	}
	params.SortBy = c.Query("sort_by")

	records, err := h.review.ListUnreviewed(c.Request.Context(), params)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			response.RespondError(c, ae.Status, ae.Code, ae.Err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "list_flags_failed", err)
		return
	}
	response.RespondOK(c, records)
}

// GetFlag serves GET /flags/:prediction_id.
func (h *FlagHandler) GetFlag(c *gin.Context) {
	record, err := h.review.GetFlag(c.Request.Context(), c.Param("prediction_id"))
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			response.RespondError(c, ae.Status, ae.Code, ae.Err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "get_flag_failed", err)
		return
	}
	response.RespondOK(c, record)
}
