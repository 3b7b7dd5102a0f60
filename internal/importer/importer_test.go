package importer

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/engine"
	"github.com/lajavaness/annotto-sub000/internal/models"
)

// Minimal in-memory stores so the importer exercises the real bulk
// reconciliation path.

type memAnnotationStore struct {
	rows []*models.Annotation
}

func (m *memAnnotationStore) FindDone(_ context.Context, itemIDs []string) ([]*models.Annotation, error) {
	wanted := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = struct{}{}
	}
	var done []*models.Annotation
	for _, a := range m.rows {
		if _, ok := wanted[a.ItemID]; ok && a.Status == models.StatusDone {
			done = append(done, a)
		}
	}
	return done, nil
}

func (m *memAnnotationStore) BulkWrite(_ context.Context, inserts []*models.Annotation, cancelIDs []string) error {
	cancelled := make(map[string]struct{}, len(cancelIDs))
	for _, id := range cancelIDs {
		cancelled[id] = struct{}{}
	}
	for _, a := range m.rows {
		if _, ok := cancelled[a.ID]; ok {
			a.Status = models.StatusCancelled
		}
	}
	m.rows = append(m.rows, inserts...)
	return nil
}

type memItemStore struct {
	items map[string]*models.Item
}

func (m *memItemStore) Find(_ context.Context, id string) (*models.Item, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, models.NewNotFoundError(models.ErrItemNotFound, id)
	}
	return item, nil
}

func (m *memItemStore) BulkUpdateAggregates(context.Context, []*models.Item) error { return nil }

func (m *memItemStore) ProjectCounts(_ context.Context, projectID string) (int, int, error) {
	total, annotated := 0, 0
	for _, item := range m.items {
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

func (m *memItemStore) AnnotatedVelocities(context.Context, string) ([]int, error) { return nil, nil }

func (m *memItemStore) FindByUUIDs(_ context.Context, projectID string, uuids []string) (map[string]*models.Item, error) {
	found := make(map[string]*models.Item)
	for _, uuid := range uuids {
		for _, item := range m.items {
			if item.ProjectID == projectID && item.UUID == uuid {
				found[uuid] = item
			}
		}
	}
	return found, nil
}

type memLogStore struct {
	logs []*models.Log
}

func (m *memLogStore) InsertMany(_ context.Context, logs []*models.Log) error {
	m.logs = append(m.logs, logs...)
	return nil
}

func (m *memLogStore) IncrementLogCount(context.Context, string, int) error { return nil }

type memStatsStore struct{}

func (memStatsStore) SaveTaskStats(context.Context, []*models.Task) error { return nil }

func (memStatsStore) SaveProjectStats(context.Context, *models.Project) error { return nil }

func importProject() *models.Project {
	return &models.Project{
		ID: "project-1",
		Tasks: []*models.Task{
			{ID: "task-skill", ProjectID: "project-1", Value: "skill", Category: "entities", Type: models.TaskNer},
			{ID: "task-senior", ProjectID: "project-1", Value: "senior", Category: "seniority", Type: models.TaskClassifications},
		},
		EntitiesRelationsGroup: []models.RelationGroup{
			{Name: "dependencies", Values: []models.RelationValue{{Value: "requires", Label: "Requires"}}},
		},
	}
}

func newTestImporter(items map[string]*models.Item) (*Importer, *memAnnotationStore) {
	annotations := &memAnnotationStore{}
	itemStore := &memItemStore{items: items}
	logger := zap.NewNop()
	stats := engine.NewStatsAggregator(itemStore, memStatsStore{}, logger)
	reconciler := engine.NewReconciler(annotations, itemStore, &memLogStore{}, stats, logger)
	return New(reconciler, itemStore, logger), annotations
}

func TestJSONLinesSource(t *testing.T) {
	input := `{"uuid":"doc-1","annotations":{"classifications":["senior"]}}

{"uuid":"doc-2","annotations":{"text":{"summary":"ok"}}}
`
	source := NewJSONLinesSource(strings.NewReader(input))

	first, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, "doc-1", first.UUID)
	assert.Equal(t, []string{"senior"}, first.Annotations.Classifications)

	second, err := source.Next()
	require.NoError(t, err)
	assert.Equal(t, "doc-2", second.UUID)

	_, err = source.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestJSONLinesSource_BadLine(t *testing.T) {
	source := NewJSONLinesSource(strings.NewReader("{not json}\n"))
	_, err := source.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestRun_ImportsAndReportsUnknownUUIDs(t *testing.T) {
	imp, annotations := newTestImporter(map[string]*models.Item{
		"item-1": {ID: "item-1", UUID: "doc-1", ProjectID: "project-1"},
		"item-2": {ID: "item-2", UUID: "doc-2", ProjectID: "project-1"},
	})

	input := `{"uuid":"doc-1","annotations":{"ner":{"entities":{"entities":[{"value":"skill","start":0,"end":10}]}}}}
{"uuid":"doc-unknown","annotations":{"classifications":["senior"]}}
{"uuid":"doc-2","annotations":{"classifications":["senior"]}}
`
	report := &Report{}
	err := imp.Run(context.Background(), importProject(), NewJSONLinesSource(strings.NewReader(input)),
		Options{User: "importer"}, report)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 0, report.Cancelled)
	assert.Equal(t, []string{"doc-unknown"}, report.UUIDNotFound)
	assert.Empty(t, report.Failures)
	assert.Len(t, annotations.rows, 2)
}

func TestRun_BatchSizeBoundsEachPass(t *testing.T) {
	imp, annotations := newTestImporter(map[string]*models.Item{
		"item-1": {ID: "item-1", UUID: "doc-1", ProjectID: "project-1"},
		"item-2": {ID: "item-2", UUID: "doc-2", ProjectID: "project-1"},
		"item-3": {ID: "item-3", UUID: "doc-3", ProjectID: "project-1"},
	})

	input := `{"uuid":"doc-1","annotations":{"classifications":["senior"]}}
{"uuid":"doc-2","annotations":{"classifications":["senior"]}}
{"uuid":"doc-3","annotations":{"classifications":["senior"]}}
`
	report := &Report{}
	err := imp.Run(context.Background(), importProject(), NewJSONLinesSource(strings.NewReader(input)),
		Options{User: "importer", BatchSize: 2}, report)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Inserted)
	assert.Len(t, annotations.rows, 3)
}

func TestRun_RecordFailuresCarryLineNumbers(t *testing.T) {
	imp, _ := newTestImporter(map[string]*models.Item{
		"item-1": {ID: "item-1", UUID: "doc-1", ProjectID: "project-1"},
		"item-2": {ID: "item-2", UUID: "doc-2", ProjectID: "project-1"},
	})

	input := `{"uuid":"doc-1","annotations":{"classifications":["senior"]}}
{"uuid":"doc-2","annotations":{"classifications":["nope"]}}
`
	report := &Report{}
	err := imp.Run(context.Background(), importProject(), NewJSONLinesSource(strings.NewReader(input)),
		Options{User: "importer"}, report)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Inserted)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, 2, report.Failures[0].Line)
	apiErr, ok := models.AsAPIError(report.Failures[0].Err)
	require.True(t, ok)
	assert.Equal(t, models.ErrClassificationNotFound, apiErr.Message)
}

func TestRun_StrictAbortsOnFirstFailure(t *testing.T) {
	imp, _ := newTestImporter(map[string]*models.Item{
		"item-1": {ID: "item-1", UUID: "doc-1", ProjectID: "project-1"},
	})

	// ent_id 9 resolves nowhere, so translation fails on line 1.
	input := `{"uuid":"doc-1","annotations":{"ner":{"entities":{"entities":[{"value":"skill","start":0,"end":10,"ent_id":1}]}}},"entitiesRelations":[{"src":1,"dest":9,"value":"requires"}]}
`
	report := &Report{}
	err := imp.Run(context.Background(), importProject(), NewJSONLinesSource(strings.NewReader(input)),
		Options{User: "importer", Strict: true}, report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
	assert.Equal(t, 0, report.Inserted)
}
