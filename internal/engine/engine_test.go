package engine

import (
	"context"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// In-memory stores backing the engine tests.

type fakeAnnotationStore struct {
	rows []*models.Annotation
}

func (f *fakeAnnotationStore) FindDone(_ context.Context, itemIDs []string) ([]*models.Annotation, error) {
	wanted := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}
	var done []*models.Annotation
	for _, a := range f.rows {
		if _, ok := wanted[a.ItemID]; ok && a.Status == models.StatusDone {
			done = append(done, a)
		}
	}
	return done, nil
}

func (f *fakeAnnotationStore) BulkWrite(_ context.Context, inserts []*models.Annotation, cancelIDs []string) error {
	cancelled := make(map[string]struct{}, len(cancelIDs))
	for _, id := range cancelIDs {
		cancelled[id] = struct{}{}
	}
	for _, a := range f.rows {
		if _, ok := cancelled[a.ID]; ok {
			a.Status = models.StatusCancelled
		}
	}
	f.rows = append(f.rows, inserts...)
	return nil
}

type fakeItemStore struct {
	items map[string]*models.Item
}

func (f *fakeItemStore) Find(_ context.Context, id string) (*models.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, models.NewNotFoundError(models.ErrItemNotFound, id)
	}
	return item, nil
}

func (f *fakeItemStore) BulkUpdateAggregates(context.Context, []*models.Item) error {
	// Items are shared pointers; nothing to copy back.
	return nil
}

func (f *fakeItemStore) ProjectCounts(_ context.Context, projectID string) (int, int, error) {
	total, annotated := 0, 0
	for _, item := range f.items {
		if item.ProjectID != projectID {
			continue
		}
		total++
		if item.Annotated {
			annotated++
		}
	}
	return total, annotated, nil
}

func (f *fakeItemStore) AnnotatedVelocities(_ context.Context, projectID string) ([]int, error) {
	var velocities []int
	for _, item := range f.items {
		if item.ProjectID == projectID && item.Annotated {
			velocities = append(velocities, item.Velocity)
		}
	}
	return velocities, nil
}

type fakeLogStore struct {
	logs   []*models.Log
	counts map[string]int
}

func (f *fakeLogStore) InsertMany(_ context.Context, logs []*models.Log) error {
	f.logs = append(f.logs, logs...)
	return nil
}

func (f *fakeLogStore) IncrementLogCount(_ context.Context, itemID string, n int) error {
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[itemID] += n
	return nil
}

type fakeStatsStore struct {
	taskSaves    int
	projectSaves int
}

func (f *fakeStatsStore) SaveTaskStats(_ context.Context, tasks []*models.Task) error {
	f.taskSaves++
	return nil
}

func (f *fakeStatsStore) SaveProjectStats(_ context.Context, project *models.Project) error {
	f.projectSaves++
	return nil
}

func intPtr(n int) *int { return &n }

func testProject() *models.Project {
	return &models.Project{
		ID:   "project-1",
		Name: "resume screening",
		Tasks: []*models.Task{
			{ID: "task-skill", ProjectID: "project-1", Value: "skill", Category: "entities", Type: models.TaskNer},
			{ID: "task-degree", ProjectID: "project-1", Value: "degree", Category: "entities", Type: models.TaskNer},
			{ID: "task-senior", ProjectID: "project-1", Value: "senior", Category: "seniority", Type: models.TaskClassifications},
			{ID: "task-junior", ProjectID: "project-1", Value: "junior", Category: "seniority", Type: models.TaskClassifications},
			{ID: "task-region", ProjectID: "project-1", Value: "region", Category: "areas", Type: models.TaskZone},
			{ID: "task-summary", ProjectID: "project-1", Value: "summary", Category: "free", Type: models.TaskText},
		},
		EntitiesRelationsGroup: []models.RelationGroup{
			{
				Name: "dependencies",
				Values: []models.RelationValue{
					{Value: "requires", Label: "Requires"},
					{Value: "excludes", Label: "Excludes"},
				},
			},
		},
	}
}

func validated(project *models.Project, proposals ...Proposal) []ValidatedAnnotation {
	out := make([]ValidatedAnnotation, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, ValidatedAnnotation{Proposal: p, Task: project.TaskByValue(p.Value)})
	}
	return out
}
