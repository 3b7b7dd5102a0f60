package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/engine"
	"github.com/lajavaness/annotto-sub000/internal/importer"
	"github.com/lajavaness/annotto-sub000/internal/models"
	"github.com/lajavaness/annotto-sub000/internal/repository"
)

// AnnotationHandler exposes the reconciliation engine over HTTP. It only
// decodes requests; the engine receives parsed, translated payloads.
type AnnotationHandler struct {
	reconciler *engine.Reconciler
	projects   repository.ProjectRepository
	logger     *zap.Logger
}

// NewAnnotationHandler creates a new annotation handler.
func NewAnnotationHandler(reconciler *engine.Reconciler, projects repository.ProjectRepository, logger *zap.Logger) *AnnotationHandler {
	return &AnnotationHandler{reconciler: reconciler, projects: projects, logger: logger}
}

// AnnotateRequest is the single-item annotate body: the external wire
// shape of the item's full proposed annotation set.
type AnnotateRequest struct {
	Annotations importer.WireAnnotations `json:"annotations"`
	Relations   []importer.WireRelation  `json:"entitiesRelations"`
	AnnotatedAt *time.Time               `json:"annotatedAt,omitempty"`
}

// Annotate handles one interactive annotation call.
// POST /api/v1/projects/:projectId/items/:itemId/annotate
func (h *AnnotationHandler) Annotate(c *gin.Context) {
	var req AnnotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.FindProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	proposals, relations, err := importer.Translate(importer.Record{
		Annotations: req.Annotations,
		Relations:   req.Relations,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	annotations, err := h.reconciler.ReconcileSingle(c.Request.Context(), c.Param("itemId"), proposals, relations, engine.AnnotateParams{
		User:        c.GetString("user"),
		Project:     project,
		AnnotatedAt: req.AnnotatedAt,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"annotations": annotations,
		"count":       len(annotations),
	})
}

// TagsRequest replaces an item's tag list.
type TagsRequest struct {
	Tags []string `json:"tags"`
}

// UpdateTags handles tag replacement on one item.
// PUT /api/v1/items/:itemId/tags
func (h *AnnotationHandler) UpdateTags(c *gin.Context) {
	var req TagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.reconciler.UpdateTags(c.Request.Context(), c.Param("itemId"), req.Tags, c.GetString("user"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// respondError maps engine errors onto the stable error payload; the
// enum message is what clients branch on.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if apiErr, ok := models.AsAPIError(err); ok {
		c.JSON(apiErr.Code, apiErr)
		return
	}
	logger.Error("request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
