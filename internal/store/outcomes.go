package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gowebpki/jcs"

	"github.com/roach88/ihop/internal/outcome"
	"github.com/roach88/ihop/internal/report"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run describes one stored run.
type Run struct {
	ID             string
	Implementation string
	Dialect        string
}

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, implementation, dialect FROM runs WHERE id = ?
	`, runID).Scan(&run.ID, &run.Implementation, &run.Dialect)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// Runs returns every stored run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, implementation, dialect
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Implementation, &run.Dialect); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunReporter is an outcome.Reporter appending every outcome to one run.
// Reporter methods cannot fail, so the first write error is kept for Err.
type RunReporter struct {
	store *Store
	ctx   context.Context
	runID string

	mu   sync.Mutex
	next int64
	err  error
}

// Reporter returns a reporter persisting outcomes into runID. Outcomes
// already stored for the run are kept; new ones are appended after them.
func (s *Store) Reporter(ctx context.Context, runID string) (*RunReporter, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	var next int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(position) + 1, 0) FROM case_outcomes WHERE run_id = ?
	`, runID).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("reporter: %w", err)
	}

	return &RunReporter{store: s, ctx: ctx, runID: runID, next: next}, nil
}

// Err returns the first write error, if any.
func (r *RunReporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *RunReporter) GotResults(result outcome.CaseResult)    { r.write(report.RecordOf(result)) }
func (r *RunReporter) CaseErrored(errored outcome.CaseErrored) { r.write(report.RecordOf(errored)) }
func (r *RunReporter) Skipped(skipped outcome.CaseSkipped)     { r.write(report.RecordOf(skipped)) }

func (r *RunReporter) NoResponse(implementation string) {
	r.write(report.RecordOf(outcome.Empty{Impl: implementation}))
}

func (r *RunReporter) write(rec report.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.writeOutcome(r.ctx, r.runID, r.next, rec); err != nil {
		if r.err == nil {
			r.err = err
		}
		return
	}
	r.next++
}

// writeOutcome inserts one record at position within runID.
func (s *Store) writeOutcome(ctx context.Context, runID string, position int64, rec report.Record) error {
	data, err := marshalRecord(rec)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO case_outcomes
		(run_id, position, seq, kind, failed, errored, record)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		position,
		rec.Seq,
		rec.Kind,
		rec.Failed,
		rec.Errored,
		data,
	)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}

// CaseOutcomes returns the records stored for runID in reported order.
// Returns an empty slice (not nil) when the run has no outcomes.
func (s *Store) CaseOutcomes(ctx context.Context, runID string) ([]report.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record
		FROM case_outcomes
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	records := []report.Record{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		var rec report.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal outcome: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return records, nil
}

// Summary counts the outcomes stored for runID.
func (s *Store) Summary(ctx context.Context, runID string) (report.Counts, error) {
	var c report.Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(failed), 0),
			COALESCE(SUM(kind = 'errored'), 0),
			COALESCE(SUM(kind = 'skipped'), 0),
			COALESCE(SUM(kind = 'no_response'), 0)
		FROM case_outcomes
		WHERE run_id = ?
	`, runID).Scan(&c.Cases, &c.Failed, &c.Errored, &c.Skipped, &c.NoResponse)
	if err != nil {
		return report.Counts{}, fmt.Errorf("summary: %w", err)
	}
	return c, nil
}

// marshalRecord converts a record to RFC 8785 canonical JSON TEXT.
func marshalRecord(rec report.Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	canonical, err := jcs.Transform(data)
	if err != nil {
		return "", fmt.Errorf("canonicalize record: %w", err)
	}
	return string(canonical), nil
}
