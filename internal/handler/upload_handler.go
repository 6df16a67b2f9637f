package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/techlyn/academy-api/internal/service"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
	"github.com/techlyn/academy-api/pkg/response"
	"github.com/techlyn/academy-api/pkg/storage"
)

// UploadHandler stores lesson assets and serves signed downloads.
type UploadHandler struct {
	store       *storage.AssetStore
	signer      *storage.SignedURLSigner
	contents    *service.ContentService
	maxFileSize int64
}

// NewUploadHandler constructs UploadHandler.
func NewUploadHandler(store *storage.AssetStore, signer *storage.SignedURLSigner, contents *service.ContentService, maxFileSize int64) *UploadHandler {
	if maxFileSize <= 0 {
		maxFileSize = 512 << 20
	}
	return &UploadHandler{store: store, signer: signer, contents: contents, maxFileSize: maxFileSize}
}

// Upload godoc
// @Summary Upload a lesson asset
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Asset file"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file field is required"))
		return
	}
	if file.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", h.maxFileSize)))
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close()

	asset, err := h.store.Save(filepath.Base(file.Filename), src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload"))
		return
	}
	response.Created(c, asset)
}

// SignDownload godoc
// @Summary Issue a signed download link for a content asset
// @Tags Uploads
// @Produce json
// @Param id path string true "Content ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /contents/{id}/download-link [get]
func (h *UploadHandler) SignDownload(c *gin.Context) {
	content, err := h.contents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if content.StoragePublicID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "content has no stored asset"))
		return
	}

	token, expiresAt, err := h.signer.Generate(content.ID, content.StoragePublicID)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"url":        fmt.Sprintf("/downloads/%s", token),
		"expires_at": expiresAt,
	}, nil)
}

// Download godoc
// @Summary Stream an asset referenced by a signed token
// @Tags Uploads
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /downloads/{token} [get]
func (h *UploadHandler) Download(c *gin.Context) {
	_, publicID, _, err := h.signer.Parse(c.Param("token"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}

	f, err := h.store.Open(publicID)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "asset not found"))
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(publicID)))
	c.File(f.Name())
}
