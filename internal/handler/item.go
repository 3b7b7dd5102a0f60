package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/filter"
	"github.com/lajavaness/annotto-sub000/internal/repository"
)

// ItemHandler serves items to annotators.
type ItemHandler struct {
	items    repository.ItemRepository
	logs     repository.LogRepository
	compiler *filter.Compiler
	logger   *zap.Logger
}

// NewItemHandler creates a new item handler.
func NewItemHandler(items repository.ItemRepository, logs repository.LogRepository, compiler *filter.Compiler, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{items: items, logs: logs, compiler: compiler, logger: logger}
}

// Next serves the next unannotated item of a project, optionally scoped
// by a filter tree passed as the `filter` query parameter, and stamps
// its seenAt.
// GET /api/v1/projects/:projectId/items/next
func (h *ItemHandler) Next(c *gin.Context) {
	filterSQL, filterArgs, ok := h.compileFilter(c, 1)
	if !ok {
		return
	}

	item, err := h.items.Next(c.Request.Context(), c.Param("projectId"), filterSQL, filterArgs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// Logs returns an item's audit trail, oldest first.
// GET /api/v1/items/:itemId/logs
func (h *ItemHandler) Logs(c *gin.Context) {
	itemID := c.Param("itemId")
	if _, err := h.items.Find(c.Request.Context(), itemID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	logs, err := h.logs.FindByItem(c.Request.Context(), itemID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// compileFilter parses and compiles the optional filter query parameter.
// argOffset is how many positional bindings the repository prepends.
func (h *ItemHandler) compileFilter(c *gin.Context, argOffset int) (string, []interface{}, bool) {
	raw := c.Query("filter")
	if raw == "" {
		return "", nil, true
	}
	var node filter.Node
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
		return "", nil, false
	}
	filterSQL, filterArgs, err := h.compiler.Compile(node, argOffset)
	if err != nil {
		respondError(c, h.logger, err)
		return "", nil, false
	}
	return filterSQL, filterArgs, true
}
