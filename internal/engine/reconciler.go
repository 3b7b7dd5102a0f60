package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// Reconciler merges proposed annotation sets against persisted state:
// validate, diff, write, log, then refresh the aggregates. It serves
// both the interactive single-item call and the bulk import path.
//
// No locking is taken across concurrent calls on the same item; the
// denormalized item fields are last-write-wins. Accepted limitation for
// single-annotator-per-item workflows.
type Reconciler struct {
	annotations AnnotationStore
	items       ItemStore
	logs        LogStore
	stats       *StatsAggregator
	logger      *zap.Logger
}

// NewReconciler wires the reconciler to its stores.
func NewReconciler(annotations AnnotationStore, items ItemStore, logs LogStore, stats *StatsAggregator, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		annotations: annotations,
		items:       items,
		logs:        logs,
		stats:       stats,
		logger:      logger,
	}
}

// AnnotateParams carries the request context of a single-item call.
type AnnotateParams struct {
	User        string
	Project     *models.Project
	AnnotatedAt *time.Time
}

// ReconcileSingle reconciles one item interactively and returns its live
// annotations after the diff has been applied.
func (r *Reconciler) ReconcileSingle(ctx context.Context, itemID string, proposals []Proposal, relations []models.Relation, params AnnotateParams) ([]*models.Annotation, error) {
	item, err := r.items.Find(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, models.NewNotFoundError(models.ErrItemNotFound, itemID)
	}

	for i := range proposals {
		proposals[i].ItemID = item.ID
	}

	validator := NewValidator(params.Project)
	validated, err := validator.ValidateAnnotations(proposals)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateRelations(relations); err != nil {
		return nil, err
	}

	existing, err := r.annotations.FindDone(ctx, []string{item.ID})
	if err != nil {
		return nil, err
	}

	diff := ComputeDiff(existing, validated)
	now := time.Now()
	annotatedAt := now
	if params.AnnotatedAt != nil {
		annotatedAt = *params.AnnotatedAt
	}

	inserts := buildInserts(diff.ToInsert, params.Project.ID, params.User, now)
	cancelIDs := annotationIDs(diff.ToCancel)
	if len(inserts) > 0 || len(cancelIDs) > 0 {
		if err := r.annotations.BulkWrite(ctx, inserts, cancelIDs); err != nil {
			return nil, err
		}
	}

	live := liveAfter(existing, diff.ToCancel, inserts)
	wasAnnotated := item.Annotated
	applyItemAggregates(item, live, params.User, annotatedAt)

	logs := annotationLogs(item, params.User, inserts, diff.ToCancel, now)
	logs = append(logs, replaceRelations(item, relations, params.User, now)...)
	if len(logs) > 0 {
		if err := r.logs.InsertMany(ctx, logs); err != nil {
			return nil, err
		}
		if err := r.logs.IncrementLogCount(ctx, item.ID, len(logs)); err != nil {
			return nil, err
		}
		item.LogCount += len(logs)
	}

	if err := r.items.BulkUpdateAggregates(ctx, []*models.Item{item}); err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Existing:         map[string][]*models.Annotation{item.ID: existing},
		Inserted:         map[string][]*models.Annotation{item.ID: inserts},
		Cancelled:        map[string][]*models.Annotation{item.ID: diff.ToCancel},
		AnnotatedChanged: wasAnnotated != item.Annotated,
	}
	if err := r.stats.Apply(ctx, params.Project, outcome); err != nil {
		return nil, err
	}

	r.logger.Info("item reconciled",
		zap.String("item", item.ID),
		zap.Int("inserted", len(inserts)),
		zap.Int("cancelled", len(cancelIDs)))

	return live, nil
}

// BatchRecord is one pre-translated import record: a resolved item plus
// its full proposed annotation and relation sets.
type BatchRecord struct {
	Item      *models.Item
	Proposals []Proposal
	Relations []models.Relation
}

// RecordFailure reports a record-scoped validation failure; it aborts
// that record, never the batch.
type RecordFailure struct {
	Index int
	Err   error
}

// BatchResult summarizes one bulk reconciliation.
type BatchResult struct {
	Inserted  int
	Cancelled int
	Failures  []RecordFailure
}

// ReconcileBatch reconciles many items in one pass: a single load of the
// persisted annotations for every target item, one diff over the flat
// proposal set, one unordered bulk write, batched logs and one stats
// refresh. Persistence failures propagate; partial writes are possible
// by design on the unordered bulk write.
func (r *Reconciler) ReconcileBatch(ctx context.Context, project *models.Project, records []BatchRecord, user string) (*BatchResult, error) {
	result := &BatchResult{}
	validator := NewValidator(project)

	type validRecord struct {
		record    BatchRecord
		validated []ValidatedAnnotation
	}
	valid := make([]validRecord, 0, len(records))
	itemIDs := make([]string, 0, len(records))
	var flat []ValidatedAnnotation

	for i, record := range records {
		for j := range record.Proposals {
			record.Proposals[j].ItemID = record.Item.ID
		}
		validated, err := validator.ValidateAnnotations(record.Proposals)
		if err != nil {
			result.Failures = append(result.Failures, RecordFailure{Index: i, Err: err})
			continue
		}
		if err := validator.ValidateRelations(record.Relations); err != nil {
			result.Failures = append(result.Failures, RecordFailure{Index: i, Err: err})
			continue
		}
		valid = append(valid, validRecord{record: record, validated: validated})
		itemIDs = append(itemIDs, record.Item.ID)
		flat = append(flat, validated...)
	}
	if len(valid) == 0 {
		return result, nil
	}

	existing, err := r.annotations.FindDone(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	diff := ComputeDiff(existing, flat)
	now := time.Now()
	inserts := buildInserts(diff.ToInsert, project.ID, user, now)
	cancelIDs := annotationIDs(diff.ToCancel)
	if len(inserts) > 0 || len(cancelIDs) > 0 {
		if err := r.annotations.BulkWrite(ctx, inserts, cancelIDs); err != nil {
			return nil, err
		}
	}

	existingByItem := GroupAnnotationsByItem(existing)
	insertedByItem := GroupAnnotationsByItem(inserts)
	cancelledByItem := GroupAnnotationsByItem(diff.ToCancel)

	outcome := &Outcome{
		Existing:  existingByItem,
		Inserted:  insertedByItem,
		Cancelled: cancelledByItem,
	}

	var allLogs []*models.Log
	items := make([]*models.Item, 0, len(valid))
	for _, v := range valid {
		item := v.record.Item
		live := liveAfter(existingByItem[item.ID], cancelledByItem[item.ID], insertedByItem[item.ID])
		wasAnnotated := item.Annotated
		applyItemAggregates(item, live, user, now)
		if wasAnnotated != item.Annotated {
			outcome.AnnotatedChanged = true
		}

		logs := annotationLogs(item, user, insertedByItem[item.ID], cancelledByItem[item.ID], now)
		logs = append(logs, replaceRelations(item, v.record.Relations, user, now)...)
		if len(logs) > 0 {
			if err := r.logs.IncrementLogCount(ctx, item.ID, len(logs)); err != nil {
				return nil, err
			}
			item.LogCount += len(logs)
		}
		allLogs = append(allLogs, logs...)
		items = append(items, item)
	}

	if len(allLogs) > 0 {
		if err := r.logs.InsertMany(ctx, allLogs); err != nil {
			return nil, err
		}
	}
	if err := r.items.BulkUpdateAggregates(ctx, items); err != nil {
		return nil, err
	}
	if err := r.stats.Apply(ctx, project, outcome); err != nil {
		return nil, err
	}

	result.Inserted = len(inserts)
	result.Cancelled = len(cancelIDs)

	r.logger.Info("batch reconciled",
		zap.String("project", project.ID),
		zap.Int("records", len(valid)),
		zap.Int("inserted", result.Inserted),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("failed", len(result.Failures)))

	return result, nil
}

// buildInserts materializes unmatched proposals as done rows. A proposed
// slot is confirmed the moment it is written; there is no draft step.
func buildInserts(toInsert []ValidatedAnnotation, projectID, user string, now time.Time) []*models.Annotation {
	inserts := make([]*models.Annotation, 0, len(toInsert))
	for _, p := range toInsert {
		payload := p.Proposal.Payload
		if payload == nil {
			payload = models.Classification{}
		}
		inserts = append(inserts, &models.Annotation{
			ID:        uuid.NewString(),
			ItemID:    p.Proposal.ItemID,
			ProjectID: projectID,
			TaskID:    p.Task.ID,
			Task:      p.Task,
			User:      user,
			Status:    models.StatusDone,
			Payload:   payload,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return inserts
}

func annotationIDs(annotations []*models.Annotation) []string {
	ids := make([]string, 0, len(annotations))
	for _, a := range annotations {
		ids = append(ids, a.ID)
	}
	return ids
}

// liveAfter is the post-diff live set: existing minus cancelled plus
// inserted.
func liveAfter(existing, cancelled, inserted []*models.Annotation) []*models.Annotation {
	dropped := make(map[string]struct{}, len(cancelled))
	for _, a := range cancelled {
		dropped[a.ID] = struct{}{}
	}
	live := make([]*models.Annotation, 0, len(existing)+len(inserted))
	for _, a := range existing {
		if _, ok := dropped[a.ID]; !ok {
			live = append(live, a)
		}
	}
	return append(live, inserted...)
}

// applyItemAggregates refreshes the item's denormalized fields from its
// live annotation set and records a velocity sample when the item has
// been served to an annotator before.
func applyItemAggregates(item *models.Item, live []*models.Annotation, user string, annotatedAt time.Time) {
	item.AnnotationValues = item.AnnotationValues[:0]
	seen := make(map[string]struct{}, len(live))
	for _, a := range live {
		value := a.TaskID
		if a.Task != nil {
			value = a.Task.Value
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		item.AnnotationValues = append(item.AnnotationValues, value)
	}

	item.Annotated = len(live) > 0
	item.LastAnnotator = user
	item.AnnotatedAt = &annotatedAt
	if !contains(item.AnnotatedBy, user) {
		item.AnnotatedBy = append(item.AnnotatedBy, user)
	}

	if item.SeenAt != nil {
		sample := int(math.Ceil(math.Abs(annotatedAt.Sub(*item.SeenAt).Seconds())))
		item.AnnotationTimes = append(item.AnnotationTimes, sample)
		item.Velocity = Median(item.AnnotationTimes)
	}
}

// annotationLogs emits at most one add and one remove log per item per
// reconciliation, each listing the affected annotation ids.
func annotationLogs(item *models.Item, user string, inserted, cancelled []*models.Annotation, now time.Time) []*models.Log {
	var logs []*models.Log
	if len(cancelled) > 0 {
		logs = append(logs, &models.Log{
			ID:          uuid.NewString(),
			Type:        models.LogAnnotationRemove,
			ItemID:      item.ID,
			ProjectID:   item.ProjectID,
			User:        user,
			Annotations: annotationIDs(cancelled),
			CreatedAt:   now,
		})
	}
	if len(inserted) > 0 {
		logs = append(logs, &models.Log{
			ID:          uuid.NewString(),
			Type:        models.LogAnnotationAdd,
			ItemID:      item.ID,
			ProjectID:   item.ProjectID,
			User:        user,
			Annotations: annotationIDs(inserted),
			CreatedAt:   now,
		})
	}
	return logs
}

// replaceRelations swaps the item's denormalized relation set for the
// proposed one and emits add/remove logs for what changed. Relations are
// always replaced together; there is no partial relation diff.
func replaceRelations(item *models.Item, relations []models.Relation, user string, now time.Time) []*models.Log {
	added, removed := diffRelations(item.EntitiesRelations, relations)
	item.EntitiesRelations = relations

	var logs []*models.Log
	if len(removed) > 0 {
		logs = append(logs, &models.Log{
			ID:        uuid.NewString(),
			Type:      models.LogRelationRemove,
			ItemID:    item.ID,
			ProjectID: item.ProjectID,
			User:      user,
			Relations: removed,
			CreatedAt: now,
		})
	}
	if len(added) > 0 {
		logs = append(logs, &models.Log{
			ID:        uuid.NewString(),
			Type:      models.LogRelationAdd,
			ItemID:    item.ID,
			ProjectID: item.ProjectID,
			User:      user,
			Relations: added,
			CreatedAt: now,
		})
	}
	return logs
}

func diffRelations(current, proposed []models.Relation) (added, removed []models.Relation) {
	for _, p := range proposed {
		if !containsRelation(current, p) {
			added = append(added, p)
		}
	}
	for _, c := range current {
		if !containsRelation(proposed, c) {
			removed = append(removed, c)
		}
	}
	return added, removed
}

func containsRelation(relations []models.Relation, target models.Relation) bool {
	for _, r := range relations {
		if r.Equal(target) {
			return true
		}
	}
	return false
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
