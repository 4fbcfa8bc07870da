package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docplatform/authz-service/internal/transport/http/middleware"
	"github.com/docplatform/authz-service/internal/usecase"
)

const maxDocumentSize = 32 << 20 // 32 MiB

// DocumentHandler serves document upload, listing, and access.
type DocumentHandler struct {
	documents *usecase.DocumentService
}

// NewDocumentHandler builds a DocumentHandler.
func NewDocumentHandler(documents *usecase.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload accepts a multipart file and stores it for the caller.
func (h *DocumentHandler) Upload(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "missing file field"))
		return
	}
	if fileHeader.Size > maxDocumentSize {
		c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse(c, "file too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unreadable file"))
		return
	}
	defer file.Close()

	name := c.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}

	document, err := h.documents.Upload(c.Request.Context(), subject, usecase.UploadDocumentInput{
		Name:        name,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        file,
		SizeBytes:   fileHeader.Size,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to upload document")
		return
	}

	c.JSON(http.StatusCreated, toDocumentPayload(document))
}

// List returns the documents the caller is authorized to read.
func (h *DocumentHandler) List(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	documents, err := h.documents.List(c.Request.Context(), subject, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list documents"))
		return
	}

	payload := make([]DocumentPayload, 0, len(documents))
	for _, document := range documents {
		payload = append(payload, toDocumentPayload(document))
	}
	c.JSON(http.StatusOK, payload)
}

// Get returns document metadata after an instance-level read check.
func (h *DocumentHandler) Get(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	document, err := h.documents.Get(c.Request.Context(), subject, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDocumentNotFound, Status: http.StatusNotFound, Message: "document not found"},
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to load document")
		return
	}

	c.JSON(http.StatusOK, toDocumentPayload(*document))
}

// Download returns a time-limited URL for the payload.
func (h *DocumentHandler) Download(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	url, err := h.documents.DownloadURL(c.Request.Context(), subject, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDocumentNotFound, Status: http.StatusNotFound, Message: "document not found"},
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to prepare download")
		return
	}

	c.JSON(http.StatusOK, DocumentDownloadResponse{URL: url})
}

// Update renames a document after an instance-level update check.
func (h *DocumentHandler) Update(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req DocumentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid document payload"))
		return
	}

	document, err := h.documents.Update(c.Request.Context(), subject, c.Param("id"), req.Name)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDocumentNotFound, Status: http.StatusNotFound, Message: "document not found"},
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to update document")
		return
	}

	c.JSON(http.StatusOK, toDocumentPayload(*document))
}

// Delete removes a document after an instance-level delete check.
func (h *DocumentHandler) Delete(c *gin.Context) {
	subject := middleware.GetSubject(c)
	if subject == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.documents.Delete(c.Request.Context(), subject, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDocumentNotFound, Status: http.StatusNotFound, Message: "document not found"},
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "insufficient permissions"},
		}, http.StatusInternalServerError, "failed to delete document")
		return
	}

	c.Status(http.StatusNoContent)
}
