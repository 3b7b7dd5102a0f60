package models

import "time"

// Task is one taxonomy node of a project: a classification code, a NER
// category, a zone category or a free-text field.
type Task struct {
	ID                 string    `json:"_id" db:"id"`
	ProjectID          string    `json:"project" db:"project_id"`
	Value              string    `json:"value" db:"value"`
	Label              string    `json:"label" db:"label"`
	Category           string    `json:"category" db:"category"`
	Type               TaskType  `json:"type" db:"type"`
	Min                *int      `json:"min,omitempty" db:"min_cardinality"`
	Max                *int      `json:"max,omitempty" db:"max_cardinality"`
	Conditions         []string  `json:"conditions,omitempty" db:"-"`
	AnnotationCount    int       `json:"annotationCount" db:"annotation_count"`
	AnnotationPourcent int       `json:"annotationPourcent" db:"annotation_pourcent"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// RelationValue is one edge-type code of a relation group.
type RelationValue struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// RelationGroup bounds how many relation annotations of its values an
// item may carry. A nil or zero bound is unchecked.
type RelationGroup struct {
	Name   string          `json:"name"`
	Min    *int            `json:"min,omitempty"`
	Max    *int            `json:"max,omitempty"`
	Values []RelationValue `json:"values"`
}

// Contains reports whether the group catalogues the given edge-type code.
func (g RelationGroup) Contains(value string) bool {
	for _, v := range g.Values {
		if v.Value == value {
			return true
		}
	}
	return false
}

// Project groups items, the task taxonomy and the relation catalogue,
// plus the derived progress aggregates maintained by the stats layer.
type Project struct {
	ID                     string          `json:"_id" db:"id"`
	Name                   string          `json:"name" db:"name"`
	Tasks                  []*Task         `json:"tasks" db:"-"`
	EntitiesRelationsGroup []RelationGroup `json:"entitiesRelationsGroup" db:"-"`
	Velocity               int             `json:"velocity" db:"velocity"`
	Progress               int             `json:"progress" db:"progress"`
	RemainingWork          int             `json:"remainingWork" db:"remaining_work"`
	CreatedAt              time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt              time.Time       `json:"updatedAt" db:"updated_at"`
}

// TaskByValue resolves a taxonomy node by its machine key.
func (p *Project) TaskByValue(value string) *Task {
	for _, t := range p.Tasks {
		if t.Value == value {
			return t
		}
	}
	return nil
}
