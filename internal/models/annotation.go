package models

import (
	"time"
)

// AnnotationStatus is the lifecycle state of a persisted annotation.
type AnnotationStatus string

const (
	StatusDraft     AnnotationStatus = "draft"
	StatusDone      AnnotationStatus = "done"
	StatusCancelled AnnotationStatus = "cancelled"
	StatusRefused   AnnotationStatus = "refused"
)

// TaskType selects which payload shape an annotation carries.
type TaskType string

const (
	TaskClassifications TaskType = "classifications"
	TaskNer             TaskType = "ner"
	TaskZone            TaskType = "zone"
	TaskText            TaskType = "text"
)

// Payload is the closed set of annotation payload shapes. Exactly one
// concrete variant exists per TaskType; code switching on the concrete
// type covers every shape the engine knows about.
type Payload interface {
	Kind() TaskType
}

// Classification carries no payload beyond the task itself.
type Classification struct{}

func (Classification) Kind() TaskType { return TaskClassifications }

// NerSpan is a character-offset span inside the item's text.
type NerSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (NerSpan) Kind() TaskType { return TaskNer }

// Point is a polygon vertex normalized to item dimensions.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zone is an ordered polygon of at least 3 normalized points.
type Zone struct {
	Points []Point `json:"points"`
}

func (Zone) Kind() TaskType { return TaskZone }

// CoordinateSum is the slot identity surrogate for zones: the sum of all
// x and y coordinates. Two polygons with equal sums occupy the same slot
// even when their shapes differ. Known approximation, kept on purpose.
func (z Zone) CoordinateSum() float64 {
	var sum float64
	for _, p := range z.Points {
		sum += p.X + p.Y
	}
	return sum
}

// Text is a free-text field value.
type Text struct {
	Value string `json:"value"`
}

func (Text) Kind() TaskType { return TaskText }

// Annotation is one persisted application of a task to an item.
// Cancelled rows are never deleted; they are the audit trail.
type Annotation struct {
	ID        string           `json:"_id" db:"id"`
	ItemID    string           `json:"item" db:"item_id"`
	ProjectID string           `json:"project" db:"project_id"`
	TaskID    string           `json:"task" db:"task_id"`
	Task      *Task            `json:"-" db:"-"`
	User      string           `json:"user" db:"user_email"`
	Status    AnnotationStatus `json:"status" db:"status"`
	Payload   Payload          `json:"-" db:"-"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time        `json:"updatedAt" db:"updated_at"`
}

// EntityRef identifies one NER entity annotation inside an item by its
// task value and span.
type EntityRef struct {
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Relation is a directed labeled edge between two entity annotations of
// the same item. Relations are stored denormalized on the item and are
// always replaced together per annotation call.
type Relation struct {
	Src   EntityRef `json:"src"`
	Dest  EntityRef `json:"dest"`
	Value string    `json:"value"`
}

// Equal reports whether two relations connect the same entities with the
// same label.
func (r Relation) Equal(other Relation) bool {
	return r.Value == other.Value && r.Src == other.Src && r.Dest == other.Dest
}
