package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// LogRepository appends audit records and keeps the per-item counter in
// step with them. Logs are never updated or deleted.
type LogRepository interface {
	InsertMany(ctx context.Context, logs []*models.Log) error
	IncrementLogCount(ctx context.Context, itemID string, n int) error
	FindByItem(ctx context.Context, itemID string) ([]*models.Log, error)
}

type logRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewLogRepository creates a new log repository.
func NewLogRepository(db *sqlx.DB, logger *zap.Logger) LogRepository {
	return &logRepository{db: db, logger: logger}
}

func (r *logRepository) InsertMany(ctx context.Context, logs []*models.Log) error {
	if len(logs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO logs (id, type, item_id, project_id, user_email, annotations, relations, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, log := range logs {
		annotations, err := json.Marshal(log.Annotations)
		if err != nil {
			return err
		}
		relations, err := json.Marshal(log.Relations)
		if err != nil {
			return err
		}
		tags, err := json.Marshal(log.Tags)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, log.ID, log.Type, log.ItemID, log.ProjectID,
			log.User, annotations, relations, tags, log.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert log: %w", err)
		}
	}
	return tx.Commit()
}

func (r *logRepository) IncrementLogCount(ctx context.Context, itemID string, n int) error {
	query := `UPDATE items SET log_count = log_count + $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, n, itemID); err != nil {
		return fmt.Errorf("failed to increment log count: %w", err)
	}
	return nil
}

func (r *logRepository) FindByItem(ctx context.Context, itemID string) ([]*models.Log, error) {
	query := `
		SELECT id, type, item_id, project_id, user_email, annotations, relations, tags, created_at
		FROM logs
		WHERE item_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryxContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.Log
	for rows.Next() {
		log := &models.Log{}
		var annotations, relations, tags []byte
		err := rows.Scan(&log.ID, &log.Type, &log.ItemID, &log.ProjectID, &log.User,
			&annotations, &relations, &tags, &log.CreatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(annotations, &log.Annotations); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(relations, &log.Relations); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(tags, &log.Tags); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
