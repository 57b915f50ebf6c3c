package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (h HandlerSet) AdminListMedia(c *gin.Context) {
	limit := 50
	offset := 0

	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}

	records, err := h.media.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	items := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		items = append(items, map[string]interface{}{
			"fileId":       rec.FileID,
			"fileType":     rec.FileType,
			"status":       rec.Status,
			"tags":         rec.Tags,
			"s3Url":        rec.S3URL,
			"thumbnailUrl": rec.ThumbnailURL,
			"createdAt":    rec.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
