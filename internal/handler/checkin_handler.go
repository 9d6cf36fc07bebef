package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qr-attend-api/internal/service"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
	"github.com/noah-isme/qr-attend-api/pkg/response"
)

// CheckinHandler exposes the attendance recording endpoint.
type CheckinHandler struct {
	checkins *service.CheckinService
}

// NewCheckinHandler constructs CheckinHandler.
func NewCheckinHandler(checkins *service.CheckinService) *CheckinHandler {
	return &CheckinHandler{checkins: checkins}
}

type checkinRequest struct {
	Code string `json:"code" binding:"required"`
}

// Create godoc
// @Summary Record one check-in for a scanned or typed identifier
// @Tags Checkins
// @Accept json
// @Produce json
// @Param payload body checkinRequest true "Scanned or typed code"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /checkins [post]
func (h *CheckinHandler) Create(c *gin.Context) {
	var req checkinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "code is required"))
		return
	}
	record, err := h.checkins.CheckIn(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
