package importer

import (
	"fmt"

	"github.com/lajavaness/annotto-sub000/internal/engine"
	"github.com/lajavaness/annotto-sub000/internal/models"
)

// Record is the external wire shape of one item's annotations, as found
// in annotation/prediction files and produced by export. Annotations are
// grouped by category name; the engine works on the flat internal shape.
type Record struct {
	UUID        string          `json:"uuid"`
	Annotations WireAnnotations `json:"annotations"`
	Relations   []WireRelation  `json:"entitiesRelations,omitempty"`
}

// WireAnnotations groups the per-kind payloads of one record.
type WireAnnotations struct {
	Classifications []string                   `json:"classifications,omitempty"`
	Ner             map[string]WireEntityGroup `json:"ner,omitempty"`
	Zone            map[string]WireZoneGroup   `json:"zone,omitempty"`
	Text            map[string]string          `json:"text,omitempty"`
}

// WireEntityGroup holds the NER entities of one category.
type WireEntityGroup struct {
	Entities []WireEntity `json:"entities"`
}

// WireEntity is one NER entity. EntID is transient: it only resolves
// relation endpoints within the same record and is never persisted.
type WireEntity struct {
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	EntID int    `json:"ent_id,omitempty"`
}

// WireZoneGroup holds the zone annotations of one category.
type WireZoneGroup struct {
	Entities []WireZone `json:"entities"`
}

// WireZone is one polygon annotation.
type WireZone struct {
	Value  string         `json:"value"`
	Coords []models.Point `json:"coords"`
}

// WireRelation references two entities of the same record by ent_id.
// Relations cannot span records.
type WireRelation struct {
	Src   int    `json:"src"`
	Dest  int    `json:"dest"`
	Value string `json:"value"`
}

// Translate converts one wire record into the engine's flat proposal
// shape and resolves its relation edges against the record's entities.
func Translate(record Record) ([]engine.Proposal, []models.Relation, error) {
	var proposals []engine.Proposal

	for _, value := range record.Annotations.Classifications {
		proposals = append(proposals, engine.Proposal{
			Value:   value,
			Payload: models.Classification{},
		})
	}

	// ent_ids from the file win; entities without one get the next free
	// sequential id, in entity order.
	entities := make(map[int]models.EntityRef)
	nextID := 1
	for _, group := range record.Annotations.Ner {
		for _, entity := range group.Entities {
			id := entity.EntID
			if id == 0 {
				id = nextID
			}
			for {
				if _, taken := entities[id]; !taken {
					break
				}
				id++
			}
			if id >= nextID {
				nextID = id + 1
			}
			entities[id] = models.EntityRef{Value: entity.Value, Start: entity.Start, End: entity.End}
			proposals = append(proposals, engine.Proposal{
				Value:   entity.Value,
				Payload: models.NerSpan{Start: entity.Start, End: entity.End},
			})
		}
	}

	for _, group := range record.Annotations.Zone {
		for _, zone := range group.Entities {
			proposals = append(proposals, engine.Proposal{
				Value:   zone.Value,
				Payload: models.Zone{Points: zone.Coords},
			})
		}
	}

	for value, text := range record.Annotations.Text {
		proposals = append(proposals, engine.Proposal{
			Value:   value,
			Payload: models.Text{Value: text},
		})
	}

	relations := make([]models.Relation, 0, len(record.Relations))
	for _, rel := range record.Relations {
		src, ok := entities[rel.Src]
		if !ok {
			return nil, nil, models.NewValidationError(models.ErrRelationSrcNotFound,
				fmt.Sprintf("ent_id %d", rel.Src))
		}
		dest, ok := entities[rel.Dest]
		if !ok {
			return nil, nil, models.NewValidationError(models.ErrRelationDestNotFound,
				fmt.Sprintf("ent_id %d", rel.Dest))
		}
		relations = append(relations, models.Relation{Src: src, Dest: dest, Value: rel.Value})
	}

	return proposals, relations, nil
}

// ToWire converts an item's live annotations back into the external wire
// shape, assigning fresh ent_ids so the item's relations stay resolvable
// inside the exported record.
func ToWire(item *models.Item, annotations []*models.Annotation) Record {
	record := Record{UUID: item.UUID}
	entityIDs := make(map[models.EntityRef]int)
	nextID := 1

	for _, a := range annotations {
		if a.Task == nil {
			continue
		}
		switch payload := a.Payload.(type) {
		case models.NerSpan:
			if record.Annotations.Ner == nil {
				record.Annotations.Ner = make(map[string]WireEntityGroup)
			}
			ref := models.EntityRef{Value: a.Task.Value, Start: payload.Start, End: payload.End}
			id := nextID
			nextID++
			entityIDs[ref] = id
			group := record.Annotations.Ner[a.Task.Category]
			group.Entities = append(group.Entities, WireEntity{
				Value: a.Task.Value,
				Start: payload.Start,
				End:   payload.End,
				EntID: id,
			})
			record.Annotations.Ner[a.Task.Category] = group
		case models.Zone:
			if record.Annotations.Zone == nil {
				record.Annotations.Zone = make(map[string]WireZoneGroup)
			}
			group := record.Annotations.Zone[a.Task.Category]
			group.Entities = append(group.Entities, WireZone{Value: a.Task.Value, Coords: payload.Points})
			record.Annotations.Zone[a.Task.Category] = group
		case models.Text:
			if record.Annotations.Text == nil {
				record.Annotations.Text = make(map[string]string)
			}
			record.Annotations.Text[a.Task.Value] = payload.Value
		default:
			record.Annotations.Classifications = append(record.Annotations.Classifications, a.Task.Value)
		}
	}

	for _, rel := range item.EntitiesRelations {
		src, srcOK := entityIDs[rel.Src]
		dest, destOK := entityIDs[rel.Dest]
		if !srcOK || !destOK {
			continue
		}
		record.Relations = append(record.Relations, WireRelation{Src: src, Dest: dest, Value: rel.Value})
	}

	return record
}
