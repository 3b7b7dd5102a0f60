package engine

import "github.com/lajavaness/annotto-sub000/internal/models"

// The bulk path diffs all items of a batch in one pass, then needs the
// results regrouped per originating item. Building these multimaps once
// keeps the whole regrouping linear instead of rescanning the flat lists
// once per item.

// GroupAnnotationsByItem indexes annotations by their owning item id.
func GroupAnnotationsByItem(annotations []*models.Annotation) map[string][]*models.Annotation {
	grouped := make(map[string][]*models.Annotation, len(annotations))
	for _, a := range annotations {
		grouped[a.ItemID] = append(grouped[a.ItemID], a)
	}
	return grouped
}

// GroupProposalsByItem indexes validated proposals by their owning item id.
func GroupProposalsByItem(proposals []ValidatedAnnotation) map[string][]ValidatedAnnotation {
	grouped := make(map[string][]ValidatedAnnotation, len(proposals))
	for _, p := range proposals {
		grouped[p.Proposal.ItemID] = append(grouped[p.Proposal.ItemID], p)
	}
	return grouped
}
