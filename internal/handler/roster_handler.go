package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techlyn/academy-api/internal/models"
	"github.com/techlyn/academy-api/internal/service"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
	"github.com/techlyn/academy-api/pkg/response"
)

// RosterHandler exposes tutor and course roster endpoints.
type RosterHandler struct {
	roster *service.RosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster *service.RosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// TutorCourses godoc
// @Summary List courses taught by a tutor
// @Tags Roster
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/{id}/courses [get]
func (h *RosterHandler) TutorCourses(c *gin.Context) {
	courses, err := h.roster.CoursesTaughtBy(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// TutorStudents godoc
// @Summary List students across a tutor's courses
// @Tags Roster
// @Produce json
// @Param id path string true "Tutor ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /tutors/{id}/students [get]
func (h *RosterHandler) TutorStudents(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	// Tutors can only read their own roster; admins can read any.
	if claims.Role == models.RoleTutor && claims.UserID != c.Param("id") {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	students, err := h.roster.StudentsOf(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// CourseStudents godoc
// @Summary List the active roster of a course
// @Tags Roster
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/students [get]
func (h *RosterHandler) CourseStudents(c *gin.Context) {
	students, err := h.roster.StudentsForCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// ExportCourseStudents godoc
// @Summary Export a course roster as CSV or PDF
// @Tags Roster
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /courses/{id}/students/export [get]
func (h *RosterHandler) ExportCourseStudents(c *gin.Context) {
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	export, err := h.roster.ExportCourseRoster(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Body)
}
