package models

import "time"

// LogType tags what a log records.
type LogType string

const (
	LogAnnotationAdd    LogType = "annotation-add"
	LogAnnotationRemove LogType = "annotation-remove"
	LogRelationAdd      LogType = "relation-add"
	LogRelationRemove   LogType = "relation-remove"
	LogTagsAdd          LogType = "tags-add"
	LogTagsRemove       LogType = "tags-remove"
)

// Log is an append-only audit record. Logs are never mutated after
// creation; the item's logCount mirrors how many exist for it.
type Log struct {
	ID          string     `json:"_id" db:"id"`
	Type        LogType    `json:"type" db:"type"`
	ItemID      string     `json:"item" db:"item_id"`
	ProjectID   string     `json:"project" db:"project_id"`
	User        string     `json:"user" db:"user_email"`
	Annotations []string   `json:"annotations,omitempty" db:"-"`
	Relations   []Relation `json:"relations,omitempty" db:"-"`
	Tags        []string   `json:"tags,omitempty" db:"-"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}
