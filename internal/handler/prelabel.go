package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/prelabel"
	"github.com/lajavaness/annotto-sub000/internal/repository"
)

// PrelabelHandler triggers prediction generation for a project.
type PrelabelHandler struct {
	service  *prelabel.Service
	projects repository.ProjectRepository
	logger   *zap.Logger
}

// NewPrelabelHandler creates a new prelabel handler.
func NewPrelabelHandler(service *prelabel.Service, projects repository.ProjectRepository, logger *zap.Logger) *PrelabelHandler {
	return &PrelabelHandler{service: service, projects: projects, logger: logger}
}

// Run prelabels every unannotated text item of the project.
// POST /api/v1/projects/:projectId/prelabel
func (h *PrelabelHandler) Run(c *gin.Context) {
	project, err := h.projects.FindProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result, err := h.service.Run(c.Request.Context(), project)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inserted":  result.Inserted,
		"cancelled": result.Cancelled,
		"failed":    len(result.Failures),
	})
}
