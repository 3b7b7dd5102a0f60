package prelabel

import (
	"context"

	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/engine"
	"github.com/lajavaness/annotto-sub000/internal/importer"
	"github.com/lajavaness/annotto-sub000/internal/models"
	"github.com/lajavaness/annotto-sub000/internal/repository"
)

// Service generates predictions for unannotated items and pushes them
// through the bulk reconciliation path under the configured model user.
type Service struct {
	client     *Client
	reconciler *engine.Reconciler
	items      repository.ItemRepository
	user       string
	logger     *zap.Logger
}

// NewService creates a new prelabel service.
func NewService(client *Client, reconciler *engine.Reconciler, items repository.ItemRepository, user string, logger *zap.Logger) *Service {
	return &Service{
		client:     client,
		reconciler: reconciler,
		items:      items,
		user:       user,
		logger:     logger,
	}
}

// Run prelabels the project's unannotated text items. Items the model
// has no suggestion for are skipped; suggestion failures skip the item
// rather than abort the run.
func (s *Service) Run(ctx context.Context, project *models.Project) (*engine.BatchResult, error) {
	items, err := s.items.List(ctx, project.ID, "annotated = FALSE", nil)
	if err != nil {
		return nil, err
	}

	var records []engine.BatchRecord
	for _, item := range items {
		if item.Type != models.ItemText || item.Data == "" {
			continue
		}
		suggestion, err := s.client.Suggest(ctx, item.Data, project.Tasks)
		if err != nil {
			s.logger.Warn("prelabel suggestion failed",
				zap.String("item", item.ID), zap.Error(err))
			continue
		}

		proposals, relations, err := importer.Translate(importer.Record{Annotations: *suggestion})
		if err != nil {
			s.logger.Warn("prelabel suggestion untranslatable",
				zap.String("item", item.ID), zap.Error(err))
			continue
		}
		if len(proposals) == 0 {
			continue
		}
		records = append(records, engine.BatchRecord{
			Item:      item,
			Proposals: proposals,
			Relations: relations,
		})
	}
	if len(records) == 0 {
		return &engine.BatchResult{}, nil
	}

	result, err := s.reconciler.ReconcileBatch(ctx, project, records, s.user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("prelabel run finished",
		zap.String("project", project.ID),
		zap.Int("items", len(records)),
		zap.Int("inserted", result.Inserted))
	return result, nil
}
