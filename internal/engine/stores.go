package engine

import (
	"context"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// The engine only sees these narrow store interfaces; the sqlx
// repositories implement them and tests substitute in-memory fakes.

// AnnotationStore loads and writes annotation rows.
type AnnotationStore interface {
	// FindDone returns the live annotations of the given items with
	// their task populated.
	FindDone(ctx context.Context, itemIDs []string) ([]*models.Annotation, error)
	// BulkWrite creates the insert rows and flips the cancel ids to
	// cancelled in one unordered batch: a duplicate-key failure on one
	// row must not block its siblings.
	BulkWrite(ctx context.Context, inserts []*models.Annotation, cancelIDs []string) error
}

// ItemStore loads items and persists their denormalized aggregates.
type ItemStore interface {
	Find(ctx context.Context, id string) (*models.Item, error)
	BulkUpdateAggregates(ctx context.Context, items []*models.Item) error
	// ProjectCounts returns the total and annotated item counts.
	ProjectCounts(ctx context.Context, projectID string) (total, annotated int, err error)
	// AnnotatedVelocities returns the velocity of every annotated item.
	AnnotatedVelocities(ctx context.Context, projectID string) ([]int, error)
}

// LogStore appends audit records.
type LogStore interface {
	InsertMany(ctx context.Context, logs []*models.Log) error
	IncrementLogCount(ctx context.Context, itemID string, n int) error
}

// StatsStore persists recomputed aggregates.
type StatsStore interface {
	SaveTaskStats(ctx context.Context, tasks []*models.Task) error
	SaveProjectStats(ctx context.Context, project *models.Project) error
}
