package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type subscriptionRequest struct {
	Email   string `json:"email"`
	Species string `json:"species"`
}

func (r subscriptionRequest) validate() string {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return "a valid email is required"
	}
	if strings.TrimSpace(r.Species) == "" {
		return "species is required"
	}
	return ""
}

func (h HandlerSet) Subscribe(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	channel := h.notifyService.ChannelName(req.Species)
	if err := h.subscriptions.Subscribe(c.Request.Context(), channel, req.Species, req.Email); err != nil {
		h.log.Error().Err(err).Str("channel", channel).Msg("subscribe failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not create subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed", "channel": channel})
}

func (h HandlerSet) Unsubscribe(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	channel := h.notifyService.ChannelName(req.Species)
	if err := h.subscriptions.Unsubscribe(c.Request.Context(), channel, req.Email); err != nil {
		h.log.Error().Err(err).Str("channel", channel).Msg("unsubscribe failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not remove subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

func (h HandlerSet) ListSubscriptions(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email query parameter is required"})
		return
	}

	species, err := h.subscriptions.ListSpeciesByEmail(c.Request.Context(), email)
	if err != nil {
		h.log.Error().Err(err).Msg("list subscriptions failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not list subscriptions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": email, "species": species})
}
