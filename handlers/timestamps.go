package handlers

import (
	"net/http"

	"github.com/Fb1234566/TrentOnBike-api/database"

	"github.com/gin-gonic/gin"
)

type TimestampsHandler struct {
	timestamps *database.TimestampsService
}

func NewTimestampsHandler(timestamps *database.TimestampsService) *TimestampsHandler {
	return &TimestampsHandler{timestamps: timestamps}
}

// Get handles GET /globalTimestamps/:key.
func (h *TimestampsHandler) Get(c *gin.Context) {
	key := c.Param("key")
	value, err := h.timestamps.Get(c.Request.Context(), key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}
