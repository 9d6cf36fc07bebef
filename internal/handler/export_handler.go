package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qr-attend-api/internal/models"
	"github.com/noah-isme/qr-attend-api/internal/service"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
	"github.com/noah-isme/qr-attend-api/pkg/response"
)

// ExportHandler exposes spreadsheet export generation and download.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

type exportRequest struct {
	Format string `json:"format"`
}

// Create godoc
// @Summary Generate an attendance export artifact
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body exportRequest true "Export format (csv or pdf)"
// @Success 201 {object} response.Envelope
// @Router /exports/attendance [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	format := models.ExportFormat(strings.ToLower(strings.TrimSpace(req.Format)))
	if format == "" {
		format = models.ExportFormatCSV
	}
	result, err := h.exports.ExportAttendance(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download a generated export through its signed link
// @Tags Exports
// @Produce application/octet-stream
// @Param filename path string true "Export file name"
// @Param token query string true "Signed download token"
// @Success 200
// @Failure 404 {object} response.Envelope
// @Router /exports/{filename} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	filename := c.Param("filename")
	token := c.Query("token")
	file, err := h.exports.OpenExport(filename, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat export"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
