package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/techlyn/academy-api/internal/service"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
	"github.com/techlyn/academy-api/pkg/response"
)

// ContentHandler exposes lesson content endpoints.
type ContentHandler struct {
	contents *service.ContentService
}

// NewContentHandler constructs ContentHandler.
func NewContentHandler(contents *service.ContentService) *ContentHandler {
	return &ContentHandler{contents: contents}
}

// ListByModule godoc
// @Summary List contents of a module
// @Tags Contents
// @Produce json
// @Param id path string true "Module ID"
// @Success 200 {object} response.Envelope
// @Router /modules/{id}/contents [get]
func (h *ContentHandler) ListByModule(c *gin.Context) {
	contents, err := h.contents.ListByModule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contents, nil)
}

// Get godoc
// @Summary Get a content item by id
// @Tags Contents
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Router /contents/{id} [get]
func (h *ContentHandler) Get(c *gin.Context) {
	content, err := h.contents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Create godoc
// @Summary Add a content item to a module
// @Tags Contents
// @Accept json
// @Produce json
// @Param id path string true "Module ID"
// @Param payload body service.ContentRequest true "Content payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /modules/{id}/contents [post]
func (h *ContentHandler) Create(c *gin.Context) {
	var req service.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	content, err := h.contents.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, content)
}

// Update godoc
// @Summary Update a content item
// @Tags Contents
// @Accept json
// @Produce json
// @Param id path string true "Content ID"
// @Param payload body service.ContentRequest true "Content payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contents/{id} [put]
func (h *ContentHandler) Update(c *gin.Context) {
	var req service.ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	content, err := h.contents.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, content, nil)
}

// Delete godoc
// @Summary Delete a content item
// @Tags Contents
// @Produce json
// @Param id path string true "Content ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /contents/{id} [delete]
func (h *ContentHandler) Delete(c *gin.Context) {
	if err := h.contents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
