package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"birdtag/api/internal/service"
	"birdtag/api/internal/tags"
)

type updateTagsRequest struct {
	URLs      []string `json:"urls"`
	Operation *int     `json:"operation"`
	Tags      []string `json:"tags"`
}

// UpdateTags applies one tag mutation to a batch of files addressed by
// URL. Operation 1 overwrites the listed species counts, operation 0
// removes the listed species outright.
func (h HandlerSet) UpdateTags(c *gin.Context) {
	var req updateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "urls must be a non-empty list"})
		return
	}
	if len(req.Tags) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "tags must be a non-empty list"})
		return
	}
	if req.Operation == nil || (*req.Operation != 0 && *req.Operation != 1) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "operation must be 0 (remove) or 1 (add)"})
		return
	}

	op := service.Operation(*req.Operation)
	entries, err := tags.ParseEntries(req.Tags, op == service.OpAdd)
	if err != nil {
		if errors.Is(err, tags.ErrEmptySpecies) || errors.Is(err, tags.ErrInvalidCount) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid tags"})
		return
	}

	result := h.tagService.Update(c.Request.Context(), req.URLs, op, entries)
	details := fmt.Sprintf("Processed: %d, Not found: %d, Errors: %d",
		len(result.Succeeded), len(result.NotFound), len(result.Errored))

	switch {
	case result.AllNotFound():
		c.JSON(http.StatusNotFound, gin.H{"message": "No matching files found", "details": details})
	case result.HasErrors():
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Tag update completed with errors", "details": details})
	case len(result.NotFound) > 0:
		c.JSON(http.StatusOK, gin.H{"message": "Tags successfully updated", "details": details})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Tags successfully updated"})
	}
}
