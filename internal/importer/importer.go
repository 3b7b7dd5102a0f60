package importer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/lajavaness/annotto-sub000/internal/engine"
	"github.com/lajavaness/annotto-sub000/internal/models"
)

// DefaultBatchSize bounds how many records one bulk reconciliation
// handles; the next batch is not pulled until the current one completed,
// which is the import stream's backpressure.
const DefaultBatchSize = 500

// Source yields wire records one at a time; io.EOF ends the stream.
type Source interface {
	Next() (*Record, error)
}

// ItemResolver maps external uuids to items of a project.
type ItemResolver interface {
	FindByUUIDs(ctx context.Context, projectID string, uuids []string) (map[string]*models.Item, error)
}

// Options tunes one import run.
type Options struct {
	User      string
	BatchSize int
	// Strict aborts the whole import on the first line failure so no
	// partially imported file is left behind; callers roll back the
	// project on the returned error. Non-strict skips the line.
	Strict bool
}

// LineFailure reports a record that could not be imported.
type LineFailure struct {
	Line int
	Err  error
}

// Report accumulates what one import run did. It is mutated in place
// batch by batch so a caller watching it sees progress.
type Report struct {
	Inserted     int
	Cancelled    int
	UUIDNotFound []string
	Failures     []LineFailure
}

// Importer streams annotation/prediction files through the bulk
// reconciliation path in bounded batches.
type Importer struct {
	reconciler *engine.Reconciler
	items      ItemResolver
	logger     *zap.Logger
}

// New builds an importer.
func New(reconciler *engine.Reconciler, items ItemResolver, logger *zap.Logger) *Importer {
	return &Importer{reconciler: reconciler, items: items, logger: logger}
}

// Run consumes the source until EOF, reconciling each batch fully before
// pulling the next. The report is mutated in place.
func (im *Importer) Run(ctx context.Context, project *models.Project, source Source, opts Options, report *Report) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	line := 0
	for {
		batch, lines, err := im.pull(source, batchSize, &line)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := im.runBatch(ctx, project, batch, lines, opts, report); err != nil {
			return err
		}
	}
}

// pull reads up to batchSize records, remembering the line number of
// each for failure reporting.
func (im *Importer) pull(source Source, batchSize int, line *int) ([]*Record, []int, error) {
	records := make([]*Record, 0, batchSize)
	lines := make([]int, 0, batchSize)
	for len(records) < batchSize {
		record, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read import record: %w", err)
		}
		*line++
		records = append(records, record)
		lines = append(lines, *line)
	}
	return records, lines, nil
}

func (im *Importer) runBatch(ctx context.Context, project *models.Project, batch []*Record, lines []int, opts Options, report *Report) error {
	uuids := make([]string, 0, len(batch))
	for _, record := range batch {
		uuids = append(uuids, record.UUID)
	}
	items, err := im.items.FindByUUIDs(ctx, project.ID, uuids)
	if err != nil {
		return err
	}

	type pending struct {
		line   int
		record engine.BatchRecord
	}
	var pendings []pending

	for i, record := range batch {
		item, ok := items[record.UUID]
		if !ok {
			report.UUIDNotFound = append(report.UUIDNotFound, record.UUID)
			continue
		}
		proposals, relations, err := Translate(*record)
		if err != nil {
			if opts.Strict {
				return fmt.Errorf("line %d: %w", lines[i], err)
			}
			report.Failures = append(report.Failures, LineFailure{Line: lines[i], Err: err})
			continue
		}
		pendings = append(pendings, pending{
			line: lines[i],
			record: engine.BatchRecord{
				Item:      item,
				Proposals: proposals,
				Relations: relations,
			},
		})
	}
	if len(pendings) == 0 {
		return nil
	}

	records := make([]engine.BatchRecord, 0, len(pendings))
	for _, p := range pendings {
		records = append(records, p.record)
	}
	result, err := im.reconciler.ReconcileBatch(ctx, project, records, opts.User)
	if err != nil {
		return err
	}

	for _, failure := range result.Failures {
		lineNo := pendings[failure.Index].line
		if opts.Strict {
			return fmt.Errorf("line %d: %w", lineNo, failure.Err)
		}
		report.Failures = append(report.Failures, LineFailure{Line: lineNo, Err: failure.Err})
	}

	report.Inserted += result.Inserted
	report.Cancelled += result.Cancelled

	im.logger.Info("import batch applied",
		zap.String("project", project.ID),
		zap.Int("records", len(records)),
		zap.Int("inserted", result.Inserted))

	return nil
}

// JSONLinesSource decodes one wire record per line. Parsing stays thin:
// a bad line surfaces as a read error with its line number.
type JSONLinesSource struct {
	scanner *bufio.Scanner
	line    int
}

// NewJSONLinesSource wraps a reader of newline-delimited JSON records.
func NewJSONLinesSource(r io.Reader) *JSONLinesSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &JSONLinesSource{scanner: scanner}
}

// Next implements Source.
func (s *JSONLinesSource) Next() (*Record, error) {
	for s.scanner.Scan() {
		s.line++
		raw := s.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		record := &Record{}
		if err := json.Unmarshal(raw, record); err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
		return record, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
