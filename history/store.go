package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/genpipe/errors"
	"github.com/teranos/genpipe/logger"
	"github.com/teranos/genpipe/pipeline"
)

// StatusFaulted marks runs that ended in an unhandled fault and produced
// no report.
const StatusFaulted = "faulted"

// timeLayout sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord is one stored run.
type RunRecord struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Status     string        `json:"status"`
	Units      int           `json:"units"`
	Artifacts  int           `json:"artifacts"`
	Errors     int           `json:"errors"`
	Completed  int           `json:"completed"`
	Incomplete int           `json:"incomplete"`
	Fault      string        `json:"fault,omitempty"`

	// Detail rows, written by Record and filled by Get.
	ArtifactList []ArtifactEntry `json:"artifact_list,omitempty"`
	ErrorList    []ErrorEntry    `json:"error_list,omitempty"`
}

// ArtifactEntry is the stored summary of one artifact.
type ArtifactEntry struct {
	Unit   string `json:"unit"`
	Target string `json:"target"`
	Name   string `json:"name"`
	Size   int    `json:"size"`
}

// ErrorEntry is one stored error record.
type ErrorEntry struct {
	Unit     string `json:"unit"`
	Target   string `json:"target"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

// Store reads and writes run history.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

// NewStore wraps a migrated database.
func NewStore(db *sql.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = logger.ComponentLogger("history")
	}
	return &Store{db: db, log: log}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// FromReport converts the outcome of Pipeline.Run into a record. A faulted
// run (nil report) is recorded with its fault message.
func FromReport(report *pipeline.Report, runErr error) RunRecord {
	if report == nil {
		rec := RunRecord{
			ID:        uuid.NewString(),
			StartedAt: time.Now(),
			Status:    StatusFaulted,
		}
		if runErr != nil {
			rec.Fault = runErr.Error()
		}
		return rec
	}

	rec := RunRecord{
		ID:         report.RunID(),
		StartedAt:  report.StartedAt(),
		Duration:   report.Duration(),
		Status:     string(report.Status()),
		Units:      len(report.Units()),
		Completed:  report.Completed(),
		Incomplete: len(report.Incomplete()),
	}
	for _, a := range report.Artifacts() {
		rec.ArtifactList = append(rec.ArtifactList, ArtifactEntry{
			Unit:   a.Unit.Name(),
			Target: a.Target,
			Name:   a.Name,
			Size:   len(a.Content),
		})
	}
	for _, e := range report.Errors() {
		entry := ErrorEntry{Unit: e.Unit.Name(), Target: e.Target, Message: e.Message}
		if e.Location != nil {
			entry.Location = e.Location.String()
		}
		rec.ErrorList = append(rec.ErrorList, entry)
	}
	rec.Artifacts = len(rec.ArtifactList)
	rec.Errors = len(rec.ErrorList)
	return rec
}

// RecordReport stores the outcome of Pipeline.Run and returns the record.
func (s *Store) RecordReport(ctx context.Context, report *pipeline.Report, runErr error) (RunRecord, error) {
	rec := FromReport(report, runErr)
	return rec, s.Record(ctx, rec)
}

// Record stores rec and its detail rows in one transaction.
func (s *Store) Record(ctx context.Context, rec RunRecord) error {
	if rec.ID == "" {
		return errors.Wrap(errors.ErrInvalidRequest, "run record has no id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin run record")
	}
	defer tx.Rollback()

	var fault sql.NullString
	if rec.Fault != "" {
		fault = sql.NullString{String: rec.Fault, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, started_at, duration_ms, status, units, artifacts, errors, completed, incomplete, fault)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.UTC().Format(timeLayout), rec.Duration.Milliseconds(), rec.Status,
		rec.Units, rec.Artifacts, rec.Errors, rec.Completed, rec.Incomplete, fault)
	if err != nil {
		return errors.Wrapf(err, "insert run %s", rec.ID)
	}

	for _, a := range rec.ArtifactList {
		_, err := tx.ExecContext(ctx, `INSERT INTO run_artifacts (run_id, unit, target, name, size) VALUES (?, ?, ?, ?, ?)`,
			rec.ID, a.Unit, a.Target, a.Name, a.Size)
		if err != nil {
			return errors.Wrapf(err, "insert artifact %s for run %s", a.Name, rec.ID)
		}
	}

	for _, e := range rec.ErrorList {
		var loc sql.NullString
		if e.Location != "" {
			loc = sql.NullString{String: e.Location, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO run_errors (run_id, unit, target, message, location) VALUES (?, ?, ?, ?, ?)`,
			rec.ID, e.Unit, e.Target, e.Message, loc)
		if err != nil {
			return errors.Wrapf(err, "insert error for run %s", rec.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit run %s", rec.ID)
	}

	s.log.Debugw("Recorded run",
		logger.FieldRunID, rec.ID,
		logger.FieldStatus, rec.Status)
	return nil
}

const runColumns = `id, started_at, duration_ms, status, units, artifacts, errors, completed, incomplete, fault`

// List returns the most recent runs first, without detail rows. A
// non-positive limit returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, errors.Wrap(rows.Err(), "list runs")
}

// Get returns the run whose id is or starts with id, with its artifacts
// and errors.
func (s *Store) Get(ctx context.Context, id string) (*RunRecord, error) {
	if id == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "empty run id")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, ?) = ? ORDER BY id = ? DESC, started_at DESC LIMIT 2`,
		len(id), id, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get run %s", id)
	}
	var matches []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matches = append(matches, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "get run %s", id)
	}

	switch {
	case len(matches) == 0:
		return nil, errors.NewNotFoundError("run %s", id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, errors.WithHint(
			errors.Wrapf(errors.ErrInvalidRequest, "run id prefix %q is ambiguous", id),
			"use more characters of the run id")
	}

	rec := matches[0]
	if rec.ArtifactList, err = s.artifacts(ctx, rec.ID); err != nil {
		return nil, err
	}
	if rec.ErrorList, err = s.Errors(ctx, rec.ID); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Errors returns the error records of a run in the order they were stored.
func (s *Store) Errors(ctx context.Context, runID string) ([]ErrorEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT unit, target, message, location FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "errors for run %s", runID)
	}
	defer rows.Close()

	var out []ErrorEntry
	for rows.Next() {
		var e ErrorEntry
		var loc sql.NullString
		if err := rows.Scan(&e.Unit, &e.Target, &e.Message, &loc); err != nil {
			return nil, errors.Wrap(err, "scan run error")
		}
		e.Location = loc.String
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "errors for run")
}

func (s *Store) artifacts(ctx context.Context, runID string) ([]ArtifactEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT unit, target, name, size FROM run_artifacts WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "artifacts for run %s", runID)
	}
	defer rows.Close()

	var out []ArtifactEntry
	for rows.Next() {
		var a ArtifactEntry
		if err := rows.Scan(&a.Unit, &a.Target, &a.Name, &a.Size); err != nil {
			return nil, errors.Wrap(err, "scan run artifact")
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "artifacts for run")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var (
		rec        RunRecord
		startedAt  string
		durationMS int64
		fault      sql.NullString
	)
	err := row.Scan(&rec.ID, &startedAt, &durationMS, &rec.Status,
		&rec.Units, &rec.Artifacts, &rec.Errors, &rec.Completed, &rec.Incomplete, &fault)
	if err != nil {
		return rec, errors.Wrap(err, "scan run")
	}

	rec.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return rec, errors.Wrapf(err, "parse started_at of run %s", rec.ID)
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	rec.Fault = fault.String
	return rec, nil
}
