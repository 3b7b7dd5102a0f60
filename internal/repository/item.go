package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// ItemRepository loads items and persists the denormalized aggregates
// the reconciler maintains.
type ItemRepository interface {
	Find(ctx context.Context, id string) (*models.Item, error)
	FindByUUIDs(ctx context.Context, projectID string, uuids []string) (map[string]*models.Item, error)
	// Next serves the oldest unannotated item matching the optional
	// compiled filter and stamps its seen_at.
	Next(ctx context.Context, projectID, filterSQL string, filterArgs []interface{}) (*models.Item, error)
	List(ctx context.Context, projectID, filterSQL string, filterArgs []interface{}) ([]*models.Item, error)
	BulkInsert(ctx context.Context, items []*models.Item) error
	BulkUpdateAggregates(ctx context.Context, items []*models.Item) error
	ProjectCounts(ctx context.Context, projectID string) (total, annotated int, err error)
	AnnotatedVelocities(ctx context.Context, projectID string) ([]int, error)
}

type itemRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewItemRepository creates a new item repository.
func NewItemRepository(db *sqlx.DB, logger *zap.Logger) ItemRepository {
	return &itemRepository{db: db, logger: logger}
}

const itemColumns = `
	id, uuid, project_id, type, data, annotated, annotated_by, annotation_values,
	annotation_times, velocity, seen_at, annotated_at, last_annotator, log_count,
	entities_relations, tags, created_at, updated_at
`

func (r *itemRepository) Find(ctx context.Context, id string) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	item, err := r.queryOne(ctx, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError(models.ErrItemNotFound, id)
	}
	return item, err
}

func (r *itemRepository) FindByUUIDs(ctx context.Context, projectID string, uuids []string) (map[string]*models.Item, error) {
	if len(uuids) == 0 {
		return map[string]*models.Item{}, nil
	}
	query := `SELECT ` + itemColumns + ` FROM items WHERE project_id = $1 AND uuid = ANY($2)`
	rows, err := r.db.QueryxContext(ctx, query, projectID, pq.Array(uuids))
	if err != nil {
		return nil, fmt.Errorf("failed to load items by uuid: %w", err)
	}
	defer rows.Close()

	items := make(map[string]*models.Item, len(uuids))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items[item.UUID] = item
	}
	return items, rows.Err()
}

func (r *itemRepository) Next(ctx context.Context, projectID, filterSQL string, filterArgs []interface{}) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE project_id = $1 AND annotated = FALSE`
	args := []interface{}{projectID}
	if filterSQL != "" {
		query += " AND " + filterSQL
		args = append(args, filterArgs...)
	}
	query += " ORDER BY created_at ASC LIMIT 1"

	item, err := r.queryOne(ctx, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError(models.ErrItemNotFound, "no remaining item")
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := r.db.ExecContext(ctx, `UPDATE items SET seen_at = $1 WHERE id = $2`, now, item.ID); err != nil {
		return nil, fmt.Errorf("failed to stamp seen_at: %w", err)
	}
	item.SeenAt = &now
	return item, nil
}

func (r *itemRepository) List(ctx context.Context, projectID, filterSQL string, filterArgs []interface{}) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE project_id = $1`
	args := []interface{}{projectID}
	if filterSQL != "" {
		query += " AND " + filterSQL
		args = append(args, filterArgs...)
	}
	query += " ORDER BY created_at ASC"

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// BulkInsert creates items, translating a uuid collision into the
// distinguishable duplicate error import tooling branches on.
func (r *itemRepository) BulkInsert(ctx context.Context, items []*models.Item) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO items (id, uuid, project_id, type, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, item := range items {
		_, err := tx.ExecContext(ctx, query, item.ID, item.UUID, item.ProjectID,
			item.Type, item.Data, item.CreatedAt, item.UpdatedAt)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.NewDuplicateError(models.ErrDuplicateUUID, item.UUID)
		}
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}
	return tx.Commit()
}

// BulkUpdateAggregates persists the reconciler-maintained fields of the
// given items. log_count is owned by the log repository and is not
// written here.
func (r *itemRepository) BulkUpdateAggregates(ctx context.Context, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE items
		SET annotated = $1, annotated_by = $2, annotation_values = $3, annotation_times = $4,
		    velocity = $5, annotated_at = $6, last_annotator = $7, entities_relations = $8,
		    tags = $9, updated_at = NOW()
		WHERE id = $10
	`
	for _, item := range items {
		annotatedBy, err := marshalList(item.AnnotatedBy)
		if err != nil {
			return err
		}
		annotationValues, err := marshalList(item.AnnotationValues)
		if err != nil {
			return err
		}
		annotationTimes, err := json.Marshal(item.AnnotationTimes)
		if err != nil {
			return err
		}
		relations, err := json.Marshal(item.EntitiesRelations)
		if err != nil {
			return err
		}
		tags, err := marshalList(item.Tags)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, query, item.Annotated, annotatedBy, annotationValues,
			annotationTimes, item.Velocity, item.AnnotatedAt, item.LastAnnotator,
			relations, tags, item.ID)
		if err != nil {
			return fmt.Errorf("failed to update item %s: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

func (r *itemRepository) ProjectCounts(ctx context.Context, projectID string) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE annotated)
		FROM items
		WHERE project_id = $1
	`
	var total, annotated int
	err := r.db.QueryRowxContext(ctx, query, projectID).Scan(&total, &annotated)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count items: %w", err)
	}
	return total, annotated, nil
}

func (r *itemRepository) AnnotatedVelocities(ctx context.Context, projectID string) ([]int, error) {
	query := `SELECT velocity FROM items WHERE project_id = $1 AND annotated = TRUE`
	rows, err := r.db.QueryxContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load velocities: %w", err)
	}
	defer rows.Close()

	var velocities []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		velocities = append(velocities, v)
	}
	return velocities, rows.Err()
}

func (r *itemRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*models.Item, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanItem(rows)
}

func scanItem(rows *sqlx.Rows) (*models.Item, error) {
	item := &models.Item{}
	var annotatedBy, annotationValues, annotationTimes, relations, tags []byte

	err := rows.Scan(&item.ID, &item.UUID, &item.ProjectID, &item.Type, &item.Data,
		&item.Annotated, &annotatedBy, &annotationValues, &annotationTimes,
		&item.Velocity, &item.SeenAt, &item.AnnotatedAt, &item.LastAnnotator,
		&item.LogCount, &relations, &tags, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}

	for _, field := range []struct {
		raw []byte
		out interface{}
	}{
		{annotatedBy, &item.AnnotatedBy},
		{annotationValues, &item.AnnotationValues},
		{annotationTimes, &item.AnnotationTimes},
		{relations, &item.EntitiesRelations},
		{tags, &item.Tags},
	} {
		if len(field.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(field.raw, field.out); err != nil {
			return nil, fmt.Errorf("failed to decode item field: %w", err)
		}
	}
	return item, nil
}

func marshalList(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}
