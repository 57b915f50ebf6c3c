package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"birdtag/api/internal/repository"
	"birdtag/api/internal/service"
	"birdtag/api/internal/tags"
)

// SearchTags answers threshold queries of the form
// ?tag1=crow&count1=3&tag2=pigeon. A file matches only when every
// clause holds; a missing countN means "at least one".
func (h HandlerSet) SearchTags(c *gin.Context) {
	var conds []tags.Condition
	for i := 1; ; i++ {
		species := c.Query(fmt.Sprintf("tag%d", i))
		if species == "" {
			break
		}

		min := 1
		if raw := c.Query(fmt.Sprintf("count%d", i)); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("count%d must be a positive integer", i)})
				return
			}
			min = v
		}
		conds = append(conds, tags.Condition{Species: species, MinCount: min})
	}
	if len(conds) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "at least one tag parameter is required"})
		return
	}

	links, err := h.searchService.SearchByThresholds(c.Request.Context(), conds)
	if err != nil {
		h.log.Error().Err(err).Msg("tag search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links})
}

// SearchSpecies answers presence queries: any file holding at least one
// of the named species matches, whatever the counts.
func (h HandlerSet) SearchSpecies(c *gin.Context) {
	var species []string
	for i := 1; ; i++ {
		s := c.Query(fmt.Sprintf("species%d", i))
		if s == "" {
			break
		}
		species = append(species, s)
	}
	if len(species) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "at least one species parameter is required"})
		return
	}

	links, err := h.searchService.SearchBySpecies(c.Request.Context(), species)
	if err != nil {
		h.log.Error().Err(err).Msg("species search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links})
}

// SearchFile is the polling endpoint for a freshly uploaded file. The
// first poll that finds the record still pending flips it to processing
// and enqueues detection; until results land the client gets 202.
func (h HandlerSet) SearchFile(c *gin.Context) {
	filename := c.Query("filename")
	if filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "filename query parameter is required"})
		return
	}

	result, err := h.detectService.PollOrTrigger(c.Request.Context(), filename)
	switch {
	case errors.Is(err, repository.ErrMediaNotFound), errors.Is(err, service.ErrUploadMissing):
		c.JSON(http.StatusNotFound, gin.H{"message": "No upload found for the given filename"})
	case errors.Is(err, service.ErrDetectionFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Detection failed for this file"})
	case err != nil:
		h.log.Error().Err(err).Str("filename", filename).Msg("file search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "search failed"})
	case result.State == service.PollInProgress:
		// 202 rather than a 1xx: informational statuses never reach the
		// client as the final response, net/http drops the body.
		c.JSON(http.StatusAccepted, gin.H{"message": "Detection in progress, retry shortly"})
	default:
		c.JSON(http.StatusOK, gin.H{"filename": filename, "tags": result.Tags})
	}
}
