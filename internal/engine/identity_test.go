package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

func TestIsSameClassification(t *testing.T) {
	a := &models.Annotation{TaskID: "task-senior", Payload: models.Classification{}}
	p := ValidatedAnnotation{Task: &models.Task{ID: "task-senior", Type: models.TaskClassifications}}
	assert.True(t, IsSameClassification(a, p))

	p.Task = &models.Task{ID: "task-junior", Type: models.TaskClassifications}
	assert.False(t, IsSameClassification(a, p))
}

func TestIsSameNer(t *testing.T) {
	a := &models.Annotation{TaskID: "task-skill", Payload: models.NerSpan{Start: 0, End: 10}}
	task := &models.Task{ID: "task-skill", Type: models.TaskNer}

	assert.True(t, IsSameNer(a, ValidatedAnnotation{
		Proposal: Proposal{Payload: models.NerSpan{Start: 0, End: 10}},
		Task:     task,
	}))
	assert.False(t, IsSameNer(a, ValidatedAnnotation{
		Proposal: Proposal{Payload: models.NerSpan{Start: 0, End: 11}},
		Task:     task,
	}))
	assert.False(t, IsSameNer(a, ValidatedAnnotation{
		Proposal: Proposal{Payload: models.NerSpan{Start: 0, End: 10}},
		Task:     &models.Task{ID: "task-degree", Type: models.TaskNer},
	}))
}

// Two different polygons sharing the same coordinate sum occupy the same
// slot. That is the documented identity rule, not an accident.
func TestIsSameZone_CoordinateSumCollision(t *testing.T) {
	task := &models.Task{ID: "task-region", Type: models.TaskZone}
	a := &models.Annotation{TaskID: "task-region", Payload: models.Zone{Points: []models.Point{
		{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}, {X: 0.5, Y: 0.6},
	}}}
	// Different shape, same sum (2.1).
	collision := ValidatedAnnotation{
		Proposal: Proposal{Payload: models.Zone{Points: []models.Point{
			{X: 0.6, Y: 0.5}, {X: 0.4, Y: 0.3}, {X: 0.2, Y: 0.1},
		}}},
		Task: task,
	}
	assert.True(t, IsSameZone(a, collision))

	different := ValidatedAnnotation{
		Proposal: Proposal{Payload: models.Zone{Points: []models.Point{
			{X: 0.6, Y: 0.5}, {X: 0.4, Y: 0.3}, {X: 0.2, Y: 0.2},
		}}},
		Task: task,
	}
	assert.False(t, IsSameZone(a, different))
}

func TestSameSlotDispatch(t *testing.T) {
	ner := &models.Annotation{TaskID: "task-skill", Payload: models.NerSpan{Start: 5, End: 8}}
	assert.True(t, SameSlot(ner, ValidatedAnnotation{
		Proposal: Proposal{Payload: models.NerSpan{Start: 5, End: 8}},
		Task:     &models.Task{ID: "task-skill", Type: models.TaskNer},
	}))

	// Text identity is the task alone: a different value is the same slot.
	text := &models.Annotation{TaskID: "task-summary", Payload: models.Text{Value: "old"}}
	assert.True(t, SameSlot(text, ValidatedAnnotation{
		Proposal: Proposal{Payload: models.Text{Value: "new"}},
		Task:     &models.Task{ID: "task-summary", Type: models.TaskText},
	}))
}
