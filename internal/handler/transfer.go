package handler

import (
	"bufio"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/engine"
	"github.com/lajavaness/annotto-sub000/internal/filter"
	"github.com/lajavaness/annotto-sub000/internal/importer"
	"github.com/lajavaness/annotto-sub000/internal/models"
	"github.com/lajavaness/annotto-sub000/internal/repository"
)

// TransferHandler runs bulk imports and exports.
type TransferHandler struct {
	importer    *importer.Importer
	projects    repository.ProjectRepository
	items       repository.ItemRepository
	annotations repository.AnnotationRepository
	compiler    *filter.Compiler
	batchSize   int
	logger      *zap.Logger
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(imp *importer.Importer, projects repository.ProjectRepository, items repository.ItemRepository, annotations repository.AnnotationRepository, compiler *filter.Compiler, batchSize int, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		importer:    imp,
		projects:    projects,
		items:       items,
		annotations: annotations,
		compiler:    compiler,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// Import streams a newline-delimited annotation/prediction file through
// the bulk reconcile path. `mode=strict` aborts the whole file on the
// first bad line; the caller then rolls back whatever it created around
// this import.
// POST /api/v1/projects/:projectId/import
func (h *TransferHandler) Import(c *gin.Context) {
	project, err := h.projects.FindProject(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	report := &importer.Report{}
	err = h.importer.Run(c.Request.Context(), project, importer.NewJSONLinesSource(c.Request.Body), importer.Options{
		User:      c.GetString("user"),
		BatchSize: h.batchSize,
		Strict:    c.Query("mode") == "strict",
	}, report)
	if err != nil {
		h.logger.Error("import aborted", zap.String("project", project.ID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "report": report})
		return
	}

	failures := make([]gin.H, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures = append(failures, gin.H{"line": f.Line, "error": f.Err.Error()})
	}
	c.JSON(http.StatusOK, gin.H{
		"inserted":     report.Inserted,
		"cancelled":    report.Cancelled,
		"uuidNotFound": report.UUIDNotFound,
		"failures":     failures,
	})
}

// itemUpload is one line of an item upload file.
type itemUpload struct {
	UUID string          `json:"uuid"`
	Type models.ItemType `json:"type"`
	Data string          `json:"data"`
}

// UploadItems creates the project's items from a newline-delimited JSON
// body. A uuid already present in the project aborts the request with
// the duplicate error so callers can fix the file and retry.
// POST /api/v1/projects/:projectId/items
func (h *TransferHandler) UploadItems(c *gin.Context) {
	ctx := c.Request.Context()
	project, err := h.projects.FindProject(ctx, c.Param("projectId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	now := time.Now()
	var batch []*models.Item
	created := 0

	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		if err := h.items.BulkInsert(ctx, batch); err != nil {
			respondError(c, h.logger, err)
			return false
		}
		created += len(batch)
		batch = batch[:0]
		return true
	}

	scanner := bufio.NewScanner(c.Request.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var upload itemUpload
		if err := json.Unmarshal(raw, &upload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "line": line})
			return
		}
		if upload.Type == "" {
			upload.Type = models.ItemText
		}
		batch = append(batch, &models.Item{
			ID:        uuid.NewString(),
			UUID:      upload.UUID,
			ProjectID: project.ID,
			Type:      upload.Type,
			Data:      upload.Data,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if len(batch) >= h.batchSize && !flush() {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !flush() {
		return
	}

	h.logger.Info("items uploaded",
		zap.String("project", project.ID),
		zap.Int("created", created))
	c.JSON(http.StatusOK, gin.H{"created": created})
}

// Export streams the project's items with their live annotations in the
// external wire shape, optionally scoped by a filter.
// GET /api/v1/projects/:projectId/export
func (h *TransferHandler) Export(c *gin.Context) {
	ctx := c.Request.Context()
	projectID := c.Param("projectId")

	filterSQL, filterArgs, ok := h.exportFilter(c)
	if !ok {
		return
	}

	items, err := h.items.List(ctx, projectID, filterSQL, filterArgs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	records := make([]importer.Record, 0, len(items))
	for start := 0; start < len(items); start += h.batchSize {
		end := start + h.batchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		itemIDs := make([]string, 0, len(chunk))
		for _, item := range chunk {
			itemIDs = append(itemIDs, item.ID)
		}
		annotations, err := h.annotations.FindDone(ctx, itemIDs)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		grouped := engine.GroupAnnotationsByItem(annotations)
		for _, item := range chunk {
			records = append(records, importer.ToWire(item, grouped[item.ID]))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

func (h *TransferHandler) exportFilter(c *gin.Context) (string, []interface{}, bool) {
	raw := c.Query("filter")
	if raw == "" {
		return "", nil, true
	}
	var node filter.Node
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
		return "", nil, false
	}
	filterSQL, filterArgs, err := h.compiler.Compile(node, 1)
	if err != nil {
		respondError(c, h.logger, err)
		return "", nil, false
	}
	return filterSQL, filterArgs, true
}
