package engine

import "github.com/lajavaness/annotto-sub000/internal/models"

// Diff partitions a reconciliation into the rows to create and the rows
// to flip to cancelled. Proposals matching an existing done annotation
// appear in neither list: re-annotating the same slot is idempotent.
type Diff struct {
	ToInsert []ValidatedAnnotation
	ToCancel []*models.Annotation
}

// ComputeDiff compares the persisted done annotations of one or many
// items against the full proposal set for those items. Identity is
// per-kind (see identity.go) and scoped to the owning item via the slot
// key, so a single pass over each list is enough even for bulk calls.
//
// After applying the diff the persisted set equals exactly the proposal
// set: unmatched persisted rows are cancelled, unmatched proposals are
// inserted, and no two done rows share an identity key.
func ComputeDiff(existing []*models.Annotation, proposals []ValidatedAnnotation) Diff {
	proposed := make(map[string]struct{}, len(proposals))
	for _, p := range proposals {
		proposed[proposalSlotKey(p)] = struct{}{}
	}

	var diff Diff
	persisted := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		key := annotationSlotKey(a)
		persisted[key] = struct{}{}
		if _, ok := proposed[key]; !ok {
			diff.ToCancel = append(diff.ToCancel, a)
		}
	}

	for _, p := range proposals {
		key := proposalSlotKey(p)
		if _, ok := persisted[key]; ok {
			continue
		}
		// A proposal set may repeat a slot; only the first wins so no
		// duplicate done rows are ever created.
		diff.ToInsert = append(diff.ToInsert, p)
		persisted[key] = struct{}{}
	}

	return diff
}
