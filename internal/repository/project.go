package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// ProjectRepository loads project definitions with their taxonomy and
// persists recomputed stats.
type ProjectRepository interface {
	FindProject(ctx context.Context, id string) (*models.Project, error)
	FindTasksByProject(ctx context.Context, projectID string) ([]*models.Task, error)
	SaveTaskStats(ctx context.Context, tasks []*models.Task) error
	SaveProjectStats(ctx context.Context, project *models.Project) error
}

type projectRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *sqlx.DB, logger *zap.Logger) ProjectRepository {
	return &projectRepository{db: db, logger: logger}
}

// FindProject returns the project with its tasks and relation groups
// populated, or an ITEM-style not-found error.
func (r *projectRepository) FindProject(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, name, entities_relations_group, velocity, progress, remaining_work, created_at, updated_at
		FROM projects
		WHERE id = $1
	`
	project := &models.Project{}
	var groups []byte
	row := r.db.QueryRowxContext(ctx, query, id)
	err := row.Scan(&project.ID, &project.Name, &groups, &project.Velocity,
		&project.Progress, &project.RemainingWork, &project.CreatedAt, &project.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NewNotFoundError(models.ErrProjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	if err := json.Unmarshal(groups, &project.EntitiesRelationsGroup); err != nil {
		return nil, fmt.Errorf("failed to decode relation groups: %w", err)
	}

	project.Tasks, err = r.FindTasksByProject(ctx, id)
	if err != nil {
		return nil, err
	}
	return project, nil
}

// FindTasksByProject returns the project's taxonomy nodes.
func (r *projectRepository) FindTasksByProject(ctx context.Context, projectID string) ([]*models.Task, error) {
	query := `
		SELECT id, project_id, value, label, category, type, min_cardinality, max_cardinality,
		       conditions, annotation_count, annotation_pourcent, created_at, updated_at
		FROM tasks
		WHERE project_id = $1
		ORDER BY value
	`
	rows, err := r.db.QueryxContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		var conditions []byte
		err := rows.Scan(&task.ID, &task.ProjectID, &task.Value, &task.Label, &task.Category,
			&task.Type, &task.Min, &task.Max, &conditions,
			&task.AnnotationCount, &task.AnnotationPourcent, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(conditions, &task.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode task conditions: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// SaveTaskStats persists the recomputed count/percentage of the touched
// tasks.
func (r *projectRepository) SaveTaskStats(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE tasks
		SET annotation_count = $1, annotation_pourcent = $2, updated_at = NOW()
		WHERE id = $3
	`
	for _, task := range tasks {
		if _, err := tx.ExecContext(ctx, query, task.AnnotationCount, task.AnnotationPourcent, task.ID); err != nil {
			return fmt.Errorf("failed to save stats for task %s: %w", task.ID, err)
		}
	}
	return tx.Commit()
}

// SaveProjectStats persists the project's progress aggregates.
func (r *projectRepository) SaveProjectStats(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects
		SET velocity = $1, progress = $2, remaining_work = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, project.Velocity, project.Progress, project.RemainingWork, project.ID)
	if err != nil {
		return fmt.Errorf("failed to save project stats: %w", err)
	}
	return nil
}
