package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"birdtag/api/internal/models"
	"birdtag/api/internal/repository"
	"birdtag/api/internal/service"
	"birdtag/api/internal/tags"
)

type createUploadRequest struct {
	ContentType string `json:"contentType"`
}

func (h HandlerSet) CreateUpload(c *gin.Context) {
	var req createUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ContentType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "contentType is required"})
		return
	}

	result, err := h.uploadService.CreateUpload(c.Request.Context(), req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedType) {
			c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("unsupported content type %q", req.ContentType)})
			return
		}
		h.log.Error().Err(err).Msg("create upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not create upload"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploadUrl": result.UploadURL,
		"filePath":  result.FilePath,
	})
}

type deleteMediaRequest struct {
	URLs []string `json:"urls"`
}

func (h HandlerSet) DeleteMedia(c *gin.Context) {
	var req deleteMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "urls must be a non-empty list"})
		return
	}

	result := h.deleteService.DeleteByURLs(c.Request.Context(), req.URLs)
	details := fmt.Sprintf("Deleted: %d, Not found: %d, Errors: %d",
		len(result.Succeeded), len(result.NotFound), len(result.Errored))

	switch {
	case result.AllNotFound():
		c.JSON(http.StatusNotFound, gin.H{"message": "No matching files found", "details": details})
	case result.HasErrors():
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Deletion completed with errors", "details": details})
	default:
		c.Status(http.StatusNoContent)
	}
}

func (h HandlerSet) ResolveThumbnail(c *gin.Context) {
	thumbURL := c.Query("thumbnailUrl")
	if thumbURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "thumbnailUrl query parameter is required"})
		return
	}

	rec, err := h.media.FindByURL(c.Request.Context(), thumbURL)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "No file found for the given thumbnail URL"})
			return
		}
		h.log.Error().Err(err).Msg("resolve thumbnail failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not resolve thumbnail"})
		return
	}
	if rec.FileType != models.FileTypeImage {
		c.JSON(http.StatusBadRequest, gin.H{"message": "URL resolution applies to images only"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"fullSizeUrl": rec.S3URL})
}

type decrementTagRequest struct {
	Species string `json:"species"`
	Count   int    `json:"count"`
}

func (h HandlerSet) DecrementTag(c *gin.Context) {
	fileID := c.Param("fileId")

	var req decrementTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}

	rec, err := h.tagService.Decrement(c.Request.Context(), fileID, req.Species, req.Count)
	switch {
	case errors.Is(err, tags.ErrEmptySpecies), errors.Is(err, service.ErrInvalidAdjustment):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, repository.ErrMediaNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "No file found for the given id"})
	case err != nil:
		h.log.Error().Err(err).Str("file_id", fileID).Msg("decrement tag failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not update tags"})
	default:
		c.JSON(http.StatusOK, gin.H{"fileId": rec.FileID, "tags": rec.Tags})
	}
}
