package engine

import (
	"fmt"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// Validator gates a proposal set against a project's task taxonomy and
// relation catalogue before anything reaches the diff. Every failure is
// synchronous, non-retryable and user-facing; no write may happen once
// validation fails.
type Validator struct {
	project *models.Project
}

// NewValidator builds a validator for one project's taxonomy.
func NewValidator(project *models.Project) *Validator {
	return &Validator{project: project}
}

// ValidateAnnotations resolves every proposal against the taxonomy and
// enforces per-category cardinality bounds. On success each proposal is
// returned wrapped with its resolved task.
func (v *Validator) ValidateAnnotations(proposals []Proposal) ([]ValidatedAnnotation, error) {
	validated := make([]ValidatedAnnotation, 0, len(proposals))
	for _, p := range proposals {
		task := v.project.TaskByValue(p.Value)
		if task == nil {
			if p.Payload != nil && p.Payload.Kind() == models.TaskText {
				return nil, models.NewNotFoundError(models.ErrTaskNotFound, p.Value)
			}
			return nil, models.NewNotFoundError(models.ErrClassificationNotFound, p.Value)
		}
		validated = append(validated, ValidatedAnnotation{Proposal: p, Task: task})
	}

	if err := v.checkCategoryBounds(validated); err != nil {
		return nil, err
	}
	return validated, nil
}

// checkCategoryBounds enforces min/max per task category, counting only
// categories present among the proposals.
func (v *Validator) checkCategoryBounds(validated []ValidatedAnnotation) error {
	counts := make(map[string]int)
	bounds := make(map[string]*models.Task)
	for _, p := range validated {
		counts[p.Task.Category]++
		if _, ok := bounds[p.Task.Category]; !ok {
			bounds[p.Task.Category] = p.Task
		}
	}
	for category, count := range counts {
		task := bounds[category]
		if task.Min != nil && *task.Min > 0 && count < *task.Min {
			return models.NewValidationError(models.ErrTooFewAnnotations,
				fmt.Sprintf("category %s: %d < %d", category, count, *task.Min))
		}
		if task.Max != nil && *task.Max > 0 && count > *task.Max {
			return models.NewValidationError(models.ErrTooMuchAnnotations,
				fmt.Sprintf("category %s: %d > %d", category, count, *task.Max))
		}
	}
	return nil
}

// ValidateRelations checks every relation's endpoints against the
// taxonomy, its label against the relation-group catalogue, and the
// per-group cardinality bounds. Groups without a bound are unchecked.
func (v *Validator) ValidateRelations(relations []models.Relation) error {
	for _, rel := range relations {
		if v.project.TaskByValue(rel.Src.Value) == nil {
			return models.NewNotFoundError(models.ErrRelationSrcNotFound, rel.Src.Value)
		}
		if v.project.TaskByValue(rel.Dest.Value) == nil {
			return models.NewNotFoundError(models.ErrRelationDestNotFound, rel.Dest.Value)
		}
		if !v.relationLabelExists(rel.Value) {
			return models.NewNotFoundError(models.ErrRelationLabelNotFound, rel.Value)
		}
	}

	for _, group := range v.project.EntitiesRelationsGroup {
		count := 0
		for _, rel := range relations {
			if group.Contains(rel.Value) {
				count++
			}
		}
		if group.Min != nil && *group.Min > 0 && count < *group.Min {
			return models.NewValidationError(models.ErrTooFewRelations,
				fmt.Sprintf("group %s: %d < %d", group.Name, count, *group.Min))
		}
		if group.Max != nil && *group.Max > 0 && count > *group.Max {
			return models.NewValidationError(models.ErrTooManyRelations,
				fmt.Sprintf("group %s: %d > %d", group.Name, count, *group.Max))
		}
	}
	return nil
}

func (v *Validator) relationLabelExists(value string) bool {
	for _, group := range v.project.EntitiesRelationsGroup {
		if group.Contains(value) {
			return true
		}
	}
	return false
}
