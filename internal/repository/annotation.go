package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// AnnotationRepository loads live annotations and applies reconciliation
// diffs. Cancelled rows are status flips, never deletes.
type AnnotationRepository interface {
	FindDone(ctx context.Context, itemIDs []string) ([]*models.Annotation, error)
	BulkWrite(ctx context.Context, inserts []*models.Annotation, cancelIDs []string) error
}

type annotationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAnnotationRepository creates a new annotation repository.
func NewAnnotationRepository(db *sqlx.DB, logger *zap.Logger) AnnotationRepository {
	return &annotationRepository{db: db, logger: logger}
}

// FindDone returns the live annotations of the given items with their
// task populated, in one query.
func (r *annotationRepository) FindDone(ctx context.Context, itemIDs []string) ([]*models.Annotation, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT a.id, a.item_id, a.project_id, a.task_id, a.user_email, a.status,
		       a.ner_start, a.ner_end, a.zone, a.text_value, a.created_at, a.updated_at,
		       t.value, t.label, t.category, t.type, t.min_cardinality, t.max_cardinality
		FROM annotations a
		JOIN tasks t ON t.id = a.task_id
		WHERE a.item_id = ANY($1) AND a.status = 'done'
	`
	rows, err := r.db.QueryxContext(ctx, query, pq.Array(itemIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load done annotations: %w", err)
	}
	defer rows.Close()

	var annotations []*models.Annotation
	for rows.Next() {
		annotation, err := scanAnnotation(rows)
		if err != nil {
			return nil, err
		}
		annotations = append(annotations, annotation)
	}
	return annotations, rows.Err()
}

func scanAnnotation(rows *sqlx.Rows) (*models.Annotation, error) {
	a := &models.Annotation{Task: &models.Task{}}
	var nerStart, nerEnd sql.NullInt64
	var zone []byte
	var textValue sql.NullString

	err := rows.Scan(&a.ID, &a.ItemID, &a.ProjectID, &a.TaskID, &a.User, &a.Status,
		&nerStart, &nerEnd, &zone, &textValue, &a.CreatedAt, &a.UpdatedAt,
		&a.Task.Value, &a.Task.Label, &a.Task.Category, &a.Task.Type, &a.Task.Min, &a.Task.Max)
	if err != nil {
		return nil, err
	}
	a.Task.ID = a.TaskID
	a.Task.ProjectID = a.ProjectID

	switch a.Task.Type {
	case models.TaskNer:
		a.Payload = models.NerSpan{Start: int(nerStart.Int64), End: int(nerEnd.Int64)}
	case models.TaskZone:
		var z models.Zone
		if len(zone) > 0 {
			if err := json.Unmarshal(zone, &z.Points); err != nil {
				return nil, fmt.Errorf("failed to decode zone payload: %w", err)
			}
		}
		a.Payload = z
	case models.TaskText:
		a.Payload = models.Text{Value: textValue.String}
	default:
		a.Payload = models.Classification{}
	}
	return a, nil
}

// BulkWrite applies one reconciliation diff: insert rows for the new
// annotations and flip the cancelled ids in a single batch. Inserts are
// unordered and duplicate-tolerant so one conflicting row cannot block
// its siblings.
func (r *annotationRepository) BulkWrite(ctx context.Context, inserts []*models.Annotation, cancelIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO annotations (id, item_id, project_id, task_id, user_email, status,
		                         ner_start, ner_end, zone, text_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	for _, a := range inserts {
		var nerStart, nerEnd sql.NullInt64
		var zone []byte
		var textValue sql.NullString

		switch payload := a.Payload.(type) {
		case models.NerSpan:
			nerStart = sql.NullInt64{Int64: int64(payload.Start), Valid: true}
			nerEnd = sql.NullInt64{Int64: int64(payload.End), Valid: true}
		case models.Zone:
			zone, err = json.Marshal(payload.Points)
			if err != nil {
				return fmt.Errorf("failed to encode zone payload: %w", err)
			}
		case models.Text:
			textValue = sql.NullString{String: payload.Value, Valid: true}
		}

		_, err := tx.ExecContext(ctx, insertQuery, a.ID, a.ItemID, a.ProjectID, a.TaskID,
			a.User, a.Status, nerStart, nerEnd, zone, textValue, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert annotation: %w", err)
		}
	}

	if len(cancelIDs) > 0 {
		cancelQuery := `
			UPDATE annotations
			SET status = 'cancelled', updated_at = NOW()
			WHERE id = ANY($1)
		`
		if _, err := tx.ExecContext(ctx, cancelQuery, pq.Array(cancelIDs)); err != nil {
			return fmt.Errorf("failed to cancel annotations: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	r.logger.Debug("annotation bulk write applied",
		zap.Int("inserted", len(inserts)),
		zap.Int("cancelled", len(cancelIDs)))
	return nil
}
