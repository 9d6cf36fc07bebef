package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qr-attend-api/internal/service"
	appErrors "github.com/noah-isme/qr-attend-api/pkg/errors"
	"github.com/noah-isme/qr-attend-api/pkg/response"
)

// StudentHandler exposes roster endpoints.
type StudentHandler struct {
	roster     *service.RosterService
	attendance *service.AttendanceService
	importer   *service.ImportService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(roster *service.RosterService, attendance *service.AttendanceService, importer *service.ImportService) *StudentHandler {
	return &StudentHandler{roster: roster, attendance: attendance, importer: importer}
}

// List godoc
// @Summary List the roster
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.roster.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// Create godoc
// @Summary Register a student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.RegisterStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.roster.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive godoc
// @Summary Activate or deactivate a student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student surrogate ID"
// @Param payload body setActiveRequest true "Activity flag"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/active [patch]
func (h *StudentHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.roster.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// History godoc
// @Summary Attendance history for one student identifier
// @Tags Students
// @Produce json
// @Param id path string true "External student identifier"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *StudentHandler) History(c *gin.Context) {
	entries, err := h.attendance.StudentHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// Import godoc
// @Summary Import students from delimiter-separated text
// @Tags Students
// @Accept text/csv
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/import [post]
func (h *StudentHandler) Import(c *gin.Context) {
	contentType := c.ContentType()
	if contentType == "multipart/form-data" {
		file, err := c.FormFile("file")
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing import file"))
			return
		}
		src, err := file.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable import file"))
			return
		}
		defer src.Close() //nolint:errcheck
		result, err := h.importer.ImportStudents(c.Request.Context(), src)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, result)
		return
	}

	if !strings.HasPrefix(contentType, "text/") && contentType != "application/csv" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "expected csv body or multipart file"))
		return
	}
	result, err := h.importer.ImportStudents(c.Request.Context(), c.Request.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
