package engine

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

// Outcome is what a reconciliation changed, grouped per item, as the
// stats layer needs it: the pre-diff live annotations plus the applied
// inserts and cancellations.
type Outcome struct {
	Existing  map[string][]*models.Annotation
	Inserted  map[string][]*models.Annotation
	Cancelled map[string][]*models.Annotation
	// AnnotatedChanged is true when at least one item flipped between
	// annotated and unannotated, which is the only case where project
	// progress is recomputed.
	AnnotatedChanged bool
}

// StatsAggregator keeps task counts/percentages and project
// progress/velocity in sync with reconciliation outcomes.
type StatsAggregator struct {
	items  ItemStore
	stats  StatsStore
	logger *zap.Logger
}

// NewStatsAggregator wires the aggregator to its stores.
func NewStatsAggregator(items ItemStore, stats StatsStore, logger *zap.Logger) *StatsAggregator {
	return &StatsAggregator{items: items, stats: stats, logger: logger}
}

// Apply recomputes the aggregates touched by one reconciliation. Task
// counts move by at most one per item per task, whatever the number of
// annotation rows involved, so an item that both lost and gained a task
// in the same batch nets to zero.
func (s *StatsAggregator) Apply(ctx context.Context, project *models.Project, outcome *Outcome) error {
	deltas := taskDeltas(outcome)
	if len(deltas) == 0 && !outcome.AnnotatedChanged {
		return nil
	}

	total, annotated, err := s.items.ProjectCounts(ctx, project.ID)
	if err != nil {
		return err
	}

	if len(deltas) > 0 {
		touched := make([]*models.Task, 0, len(deltas))
		for _, task := range project.Tasks {
			delta, ok := deltas[task.ID]
			if !ok {
				continue
			}
			task.AnnotationCount += delta
			if task.AnnotationCount < 0 {
				task.AnnotationCount = 0
			}
			if annotated > 0 {
				task.AnnotationPourcent = int(math.Ceil(float64(task.AnnotationCount) / float64(annotated) * 100))
			} else {
				task.AnnotationPourcent = 0
			}
			touched = append(touched, task)
		}
		if err := s.stats.SaveTaskStats(ctx, touched); err != nil {
			return err
		}
	}

	if !outcome.AnnotatedChanged {
		return nil
	}

	velocities, err := s.items.AnnotatedVelocities(ctx, project.ID)
	if err != nil {
		return err
	}
	project.Velocity = Median(velocities)
	if total > 0 {
		project.Progress = int(math.Round(float64(annotated) / float64(total) * 100))
	} else {
		project.Progress = 0
	}
	project.RemainingWork = int(math.Ceil(float64(project.Velocity) * float64(total-annotated) / 3600))

	s.logger.Debug("project stats recomputed",
		zap.String("project", project.ID),
		zap.Int("progress", project.Progress),
		zap.Int("velocity", project.Velocity))

	return s.stats.SaveProjectStats(ctx, project)
}

// taskDeltas computes, per task, how many items gained their first live
// annotation of that task minus how many lost their last one.
func taskDeltas(outcome *Outcome) map[string]int {
	deltas := make(map[string]int)

	items := make(map[string]struct{})
	for itemID := range outcome.Inserted {
		items[itemID] = struct{}{}
	}
	for itemID := range outcome.Cancelled {
		items[itemID] = struct{}{}
	}

	for itemID := range items {
		before := countByTask(outcome.Existing[itemID])
		after := make(map[string]int, len(before))
		for taskID, n := range before {
			after[taskID] = n
		}
		for _, a := range outcome.Cancelled[itemID] {
			after[a.TaskID]--
		}
		for _, a := range outcome.Inserted[itemID] {
			after[a.TaskID]++
		}
		for taskID, n := range after {
			had := before[taskID] > 0
			has := n > 0
			switch {
			case !had && has:
				deltas[taskID]++
			case had && !has:
				deltas[taskID]--
			}
		}
	}

	for taskID, delta := range deltas {
		if delta == 0 {
			delete(deltas, taskID)
		}
	}
	return deltas
}

func countByTask(annotations []*models.Annotation) map[string]int {
	counts := make(map[string]int, len(annotations))
	for _, a := range annotations {
		counts[a.TaskID]++
	}
	return counts
}

// Median returns the middle of the sorted values; on even length, the
// integer mean of the two middle values. Zero for an empty slice.
func Median(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
