package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

func TestComputeDiff_InsertAll(t *testing.T) {
	project := testProject()
	proposals := validated(project,
		Proposal{ItemID: "item-1", Value: "skill", Payload: models.NerSpan{Start: 0, End: 10}},
		Proposal{ItemID: "item-1", Value: "senior", Payload: models.Classification{}},
	)

	diff := ComputeDiff(nil, proposals)
	assert.Len(t, diff.ToInsert, 2)
	assert.Empty(t, diff.ToCancel)
}

func TestComputeDiff_Idempotent(t *testing.T) {
	project := testProject()
	existing := []*models.Annotation{
		{ID: "a1", ItemID: "item-1", TaskID: "task-skill", Status: models.StatusDone, Payload: models.NerSpan{Start: 0, End: 10}},
		{ID: "a2", ItemID: "item-1", TaskID: "task-senior", Status: models.StatusDone, Payload: models.Classification{}},
	}
	proposals := validated(project,
		Proposal{ItemID: "item-1", Value: "skill", Payload: models.NerSpan{Start: 0, End: 10}},
		Proposal{ItemID: "item-1", Value: "senior", Payload: models.Classification{}},
	)

	diff := ComputeDiff(existing, proposals)
	assert.Empty(t, diff.ToInsert)
	assert.Empty(t, diff.ToCancel)
}

func TestComputeDiff_ExactReplacement(t *testing.T) {
	project := testProject()
	existing := []*models.Annotation{
		{ID: "a1", ItemID: "item-1", TaskID: "task-skill", Status: models.StatusDone, Payload: models.NerSpan{Start: 0, End: 10}},
		{ID: "a2", ItemID: "item-1", TaskID: "task-senior", Status: models.StatusDone, Payload: models.Classification{}},
	}
	// Keep the classification, move the span.
	proposals := validated(project,
		Proposal{ItemID: "item-1", Value: "skill", Payload: models.NerSpan{Start: 20, End: 30}},
		Proposal{ItemID: "item-1", Value: "senior", Payload: models.Classification{}},
	)

	diff := ComputeDiff(existing, proposals)
	require.Len(t, diff.ToInsert, 1)
	require.Len(t, diff.ToCancel, 1)
	assert.Equal(t, "a1", diff.ToCancel[0].ID)
	assert.Equal(t, models.NerSpan{Start: 20, End: 30}, diff.ToInsert[0].Proposal.Payload)
}

func TestComputeDiff_DuplicateProposalInsertsOnce(t *testing.T) {
	project := testProject()
	proposals := validated(project,
		Proposal{ItemID: "item-1", Value: "skill", Payload: models.NerSpan{Start: 0, End: 10}},
		Proposal{ItemID: "item-1", Value: "skill", Payload: models.NerSpan{Start: 0, End: 10}},
	)

	diff := ComputeDiff(nil, proposals)
	assert.Len(t, diff.ToInsert, 1)
}

func TestComputeDiff_ScopedPerItem(t *testing.T) {
	project := testProject()
	existing := []*models.Annotation{
		{ID: "a1", ItemID: "item-1", TaskID: "task-skill", Status: models.StatusDone, Payload: models.NerSpan{Start: 0, End: 10}},
	}
	// The same slot on another item is a different slot.
	proposals := validated(project,
		Proposal{ItemID: "item-2", Value: "skill", Payload: models.NerSpan{Start: 0, End: 10}},
	)

	diff := ComputeDiff(existing, proposals)
	require.Len(t, diff.ToInsert, 1)
	assert.Equal(t, "item-2", diff.ToInsert[0].Proposal.ItemID)
	require.Len(t, diff.ToCancel, 1)
	assert.Equal(t, "a1", diff.ToCancel[0].ID)
}

func TestComputeDiff_ZoneCollisionIsNoOp(t *testing.T) {
	project := testProject()
	existing := []*models.Annotation{
		{ID: "a1", ItemID: "item-1", TaskID: "task-region", Status: models.StatusDone, Payload: models.Zone{Points: []models.Point{
			{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}, {X: 0.5, Y: 0.6},
		}}},
	}
	// Reordered points, identical coordinate sum: no cancel/insert pair.
	proposals := validated(project,
		Proposal{ItemID: "item-1", Value: "region", Payload: models.Zone{Points: []models.Point{
			{X: 0.5, Y: 0.6}, {X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4},
		}}},
	)

	diff := ComputeDiff(existing, proposals)
	assert.Empty(t, diff.ToInsert)
	assert.Empty(t, diff.ToCancel)
}

func TestGroupByItem(t *testing.T) {
	annotations := []*models.Annotation{
		{ID: "a1", ItemID: "item-1"},
		{ID: "a2", ItemID: "item-2"},
		{ID: "a3", ItemID: "item-1"},
	}
	grouped := GroupAnnotationsByItem(annotations)
	assert.Len(t, grouped, 2)
	assert.Len(t, grouped["item-1"], 2)
	assert.Len(t, grouped["item-2"], 1)
}
