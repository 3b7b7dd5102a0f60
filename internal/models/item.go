package models

import "time"

// ItemType is the media kind of the thing being annotated.
type ItemType string

const (
	ItemText  ItemType = "text"
	ItemImage ItemType = "image"
	ItemVideo ItemType = "video"
	ItemAudio ItemType = "audio"
)

// Item is the thing being annotated. The annotation-derived fields
// (annotated, annotationValues, velocity, ...) are denormalized and only
// ever mutated by the reconciler after a successful diff.
type Item struct {
	ID                string     `json:"_id" db:"id"`
	UUID              string     `json:"uuid" db:"uuid"`
	ProjectID         string     `json:"project" db:"project_id"`
	Type              ItemType   `json:"type" db:"type"`
	Data              string     `json:"data" db:"data"`
	Annotated         bool       `json:"annotated" db:"annotated"`
	AnnotatedBy       []string   `json:"annotatedBy" db:"-"`
	AnnotationValues  []string   `json:"annotationValues" db:"-"`
	AnnotationTimes   []int      `json:"annotationTimes" db:"-"`
	Velocity          int        `json:"velocity" db:"velocity"`
	SeenAt            *time.Time `json:"seenAt,omitempty" db:"seen_at"`
	AnnotatedAt       *time.Time `json:"annotatedAt,omitempty" db:"annotated_at"`
	LastAnnotator     string     `json:"lastAnnotator" db:"last_annotator"`
	LogCount          int        `json:"logCount" db:"log_count"`
	EntitiesRelations []Relation `json:"entitiesRelations" db:"-"`
	Tags              []string   `json:"tags" db:"-"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time  `json:"updatedAt" db:"updated_at"`
}
