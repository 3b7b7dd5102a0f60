package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/config"
	"github.com/lajavaness/annotto-sub000/internal/engine"
	"github.com/lajavaness/annotto-sub000/internal/filter"
	"github.com/lajavaness/annotto-sub000/internal/handler"
	"github.com/lajavaness/annotto-sub000/internal/importer"
	"github.com/lajavaness/annotto-sub000/internal/middleware"
	"github.com/lajavaness/annotto-sub000/internal/prelabel"
	"github.com/lajavaness/annotto-sub000/internal/repository"
)

// Server wires the repositories, the engine and the HTTP routes.
type Server struct {
	router *gin.Engine
	db     *sqlx.DB
	cfg    *config.Config
	logger *zap.Logger
}

// NewServer initializes the server with its dependency graph.
func NewServer(db *sqlx.DB, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		router: gin.Default(),
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	projectRepo := repository.NewProjectRepository(s.db, s.logger)
	itemRepo := repository.NewItemRepository(s.db, s.logger)
	annotationRepo := repository.NewAnnotationRepository(s.db, s.logger)
	logRepo := repository.NewLogRepository(s.db, s.logger)

	stats := engine.NewStatsAggregator(itemRepo, projectRepo, s.logger)
	reconciler := engine.NewReconciler(annotationRepo, itemRepo, logRepo, stats, s.logger)
	imp := importer.New(reconciler, itemRepo, s.logger)
	compiler := filter.NewCompiler(filter.ItemConfig())

	annotationHandler := handler.NewAnnotationHandler(reconciler, projectRepo, s.logger)
	itemHandler := handler.NewItemHandler(itemRepo, logRepo, compiler, s.logger)
	transferHandler := handler.NewTransferHandler(imp, projectRepo, itemRepo, annotationRepo, compiler, s.cfg.Import.BatchSize, s.logger)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/v1")
	api.Use(middleware.Auth([]byte(s.cfg.Server.JWTSecret), s.logger))
	{
		api.POST("/projects/:projectId/items/:itemId/annotate", annotationHandler.Annotate)
		api.GET("/projects/:projectId/items/next", itemHandler.Next)
		api.POST("/projects/:projectId/items", transferHandler.UploadItems)
		api.PUT("/items/:itemId/tags", annotationHandler.UpdateTags)
		api.GET("/items/:itemId/logs", itemHandler.Logs)
		api.POST("/projects/:projectId/import", transferHandler.Import)
		api.GET("/projects/:projectId/export", transferHandler.Export)
	}

	if s.cfg.Prelabel.Enabled {
		client, err := prelabel.NewClient(prelabel.Config{
			APIKey:     s.cfg.Prelabel.APIKey,
			ModelName:  s.cfg.Prelabel.ModelName,
			MaxRetries: s.cfg.Prelabel.MaxRetries,
		}, s.logger)
		if err != nil {
			s.logger.Warn("Prelabel disabled: client init failed", zap.Error(err))
			return
		}
		service := prelabel.NewService(client, reconciler, itemRepo, s.cfg.Prelabel.User, s.logger)
		prelabelHandler := handler.NewPrelabelHandler(service, projectRepo, s.logger)
		api.POST("/projects/:projectId/prelabel", prelabelHandler.Run)
	}
}

// Run starts the HTTP server.
func (s *Server) Run(addr string) error {
	s.logger.Info("Server starting", zap.String("addr", addr))
	return s.router.Run(addr)
}
