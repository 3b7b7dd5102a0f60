package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// UpdateTags replaces an item's tag list and logs what changed. Tags go
// through the same append-only log discipline as annotations.
func (r *Reconciler) UpdateTags(ctx context.Context, itemID string, tags []string, user string) (*models.Item, error) {
	item, err := r.items.Find(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, models.NewNotFoundError(models.ErrItemNotFound, itemID)
	}

	added, removed := diffTags(item.Tags, tags)
	item.Tags = tags
	if len(added) == 0 && len(removed) == 0 {
		return item, nil
	}

	now := time.Now()
	var logs []*models.Log
	if len(removed) > 0 {
		logs = append(logs, &models.Log{
			ID:        uuid.NewString(),
			Type:      models.LogTagsRemove,
			ItemID:    item.ID,
			ProjectID: item.ProjectID,
			User:      user,
			Tags:      removed,
			CreatedAt: now,
		})
	}
	if len(added) > 0 {
		logs = append(logs, &models.Log{
			ID:        uuid.NewString(),
			Type:      models.LogTagsAdd,
			ItemID:    item.ID,
			ProjectID: item.ProjectID,
			User:      user,
			Tags:      added,
			CreatedAt: now,
		})
	}

	if err := r.logs.InsertMany(ctx, logs); err != nil {
		return nil, err
	}
	if err := r.logs.IncrementLogCount(ctx, item.ID, len(logs)); err != nil {
		return nil, err
	}
	item.LogCount += len(logs)

	if err := r.items.BulkUpdateAggregates(ctx, []*models.Item{item}); err != nil {
		return nil, err
	}

	r.logger.Debug("item tags updated",
		zap.String("item", item.ID),
		zap.Strings("added", added),
		zap.Strings("removed", removed))

	return item, nil
}

func diffTags(current, proposed []string) (added, removed []string) {
	for _, t := range proposed {
		if !contains(current, t) {
			added = append(added, t)
		}
	}
	for _, t := range current {
		if !contains(proposed, t) {
			removed = append(removed, t)
		}
	}
	return added, removed
}
