package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"signalhub.app/correlator/internal/http/dto"
	"signalhub.app/correlator/internal/store"
)

const defaultGroupPageSize = 50

type GroupHandler struct {
	groups store.GroupStore
}

func NewGroupHandler(groups store.GroupStore) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func (h *GroupHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	limit := int64(defaultGroupPageSize)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	groups, err := h.groups.List(ctx, int32(limit))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list groups", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list groups"})
		return
	}

	c.JSON(http.StatusOK, dto.GroupListResponse{Groups: groups})
}

func (h *GroupHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	group, err := h.groups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "group not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load group", "error", err, "group_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load group"})
		return
	}

	c.JSON(http.StatusOK, group)
}
