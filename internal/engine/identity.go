package engine

import (
	"strconv"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// Proposal is one proposed annotation payload for an item, as handed to
// the engine by the transport or import layers.
type Proposal struct {
	ItemID  string
	Value   string // task machine key
	Payload models.Payload
}

// ValidatedAnnotation pairs a proposal with its resolved taxonomy node.
// The validator produces these; downstream stages consume them read-only.
type ValidatedAnnotation struct {
	Proposal Proposal
	Task     *models.Task
}

// IsSameClassification reports whether a persisted annotation and a
// proposal occupy the same classification slot: the task alone decides.
// Free-text annotations share this rule.
func IsSameClassification(a *models.Annotation, p ValidatedAnnotation) bool {
	return a.TaskID == p.Task.ID
}

// IsSameNer requires the same task and exactly equal character offsets.
func IsSameNer(a *models.Annotation, p ValidatedAnnotation) bool {
	if a.TaskID != p.Task.ID {
		return false
	}
	as, ok := a.Payload.(models.NerSpan)
	if !ok {
		return false
	}
	ps, ok := p.Proposal.Payload.(models.NerSpan)
	if !ok {
		return false
	}
	return as.Start == ps.Start && as.End == ps.End
}

// IsSameZone requires the same task and an equal coordinate sum. The sum
// is a cheap surrogate for polygon equality: different polygons sharing
// the same sum count as the same slot. Kept as-is on purpose.
func IsSameZone(a *models.Annotation, p ValidatedAnnotation) bool {
	if a.TaskID != p.Task.ID {
		return false
	}
	az, ok := a.Payload.(models.Zone)
	if !ok {
		return false
	}
	pz, ok := p.Proposal.Payload.(models.Zone)
	if !ok {
		return false
	}
	return az.CoordinateSum() == pz.CoordinateSum()
}

// SameSlot dispatches to the per-kind predicate for the proposal's task.
func SameSlot(a *models.Annotation, p ValidatedAnnotation) bool {
	switch p.Task.Type {
	case models.TaskNer:
		return IsSameNer(a, p)
	case models.TaskZone:
		return IsSameZone(a, p)
	default:
		return IsSameClassification(a, p)
	}
}

// slotKey renders the identity key of a payload as a map key so bulk
// diffs stay linear instead of scanning candidates per item.
func slotKey(itemID, taskID string, payload models.Payload) string {
	switch p := payload.(type) {
	case models.NerSpan:
		return itemID + "|" + taskID + "|" + strconv.Itoa(p.Start) + ":" + strconv.Itoa(p.End)
	case models.Zone:
		return itemID + "|" + taskID + "|" + strconv.FormatFloat(p.CoordinateSum(), 'g', -1, 64)
	default:
		return itemID + "|" + taskID
	}
}

func annotationSlotKey(a *models.Annotation) string {
	return slotKey(a.ItemID, a.TaskID, a.Payload)
}

func proposalSlotKey(p ValidatedAnnotation) string {
	return slotKey(p.Proposal.ItemID, p.Task.ID, p.Proposal.Payload)
}
