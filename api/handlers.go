package api

import (
	"errors"
	"net/http"

	"github.com/akiross/trellobot/internal/config"
	"github.com/akiross/trellobot/internal/update"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler is the command layer: it exposes on-demand update cycles, the
// tracked-card listing and board whitelist/blacklist editing over HTTP.
type Handler struct {
	Orchestrator *update.Orchestrator
	Filter       *config.BoardFilter
	// SaveFilter persists filter edits back to the config file; may be nil.
	SaveFilter func() error
}

func (h *Handler) UpdateHandler(c *gin.Context) {
	summary, err := h.Orchestrator.RunCycle(c.Request.Context())
	if err != nil {
		if errors.Is(err, update.ErrCycleInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "update cycle already in progress"})
			return
		}
		zap.L().Error("On-demand update cycle failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) TrackedHandler(c *gin.Context) {
	recs, err := h.Orchestrator.Tracked()
	if err != nil {
		zap.L().Error("Failed to list tracked cards", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tracked cards"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracked": recs})
}

func (h *Handler) BoardsHandler(c *gin.Context) {
	whitelist, blacklist := h.Filter.Snapshot()
	c.JSON(http.StatusOK, gin.H{"whitelist": whitelist, "blacklist": blacklist})
}

type boardIDsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

func (h *Handler) WhitelistHandler(c *gin.Context) {
	var req boardIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must contain a non-empty ids array"})
		return
	}
	h.Filter.Whitelist(req.IDs...)
	h.persistFilter(c)
}

func (h *Handler) BlacklistHandler(c *gin.Context) {
	var req boardIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must contain a non-empty ids array"})
		return
	}
	h.Filter.Blacklist(req.IDs...)
	h.persistFilter(c)
}

func (h *Handler) persistFilter(c *gin.Context) {
	if h.SaveFilter != nil {
		if err := h.SaveFilter(); err != nil {
			zap.L().Error("Failed to persist board filter", zap.Error(err))
			// The in-memory filter is already updated; be explicit that the
			// edit is active now but will not survive a restart.
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "board filter updated but not persisted; the edit is active and will be lost on restart",
			})
			return
		}
	}
	whitelist, blacklist := h.Filter.Snapshot()
	c.JSON(http.StatusOK, gin.H{"whitelist": whitelist, "blacklist": blacklist})
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
