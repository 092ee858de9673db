// SPDX-License-Identifier: GPL-3.0-or-later

// Package steptrace records scheduling steps into a SQLite database.
//
// A [*Recorder] is a [dataflow.Hook]. Register it with
// [*dataflow.Processor.AcceptHook] and every step becomes a row of
// the steps table, tagged with a run identifier generated using xid.
package steptrace

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "github.com/glebarez/go-sqlite"

	"github.com/pktflow-project/pktflow/dataflow"
	"github.com/rs/xid"
)

// DefaultBatchSize is the number of buffered steps that triggers
// a flush when [Recorder.BatchSize] is zero.
const DefaultBatchSize = 1024

const schema = `CREATE TABLE IF NOT EXISTS steps (
	run_id      TEXT    NOT NULL,
	seq         INTEGER NOT NULL,
	node_id     INTEGER NOT NULL,
	consumed    INTEGER NOT NULL,
	emitted     INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
)`

const insertStep = `INSERT INTO steps
	(run_id, seq, node_id, consumed, emitted, duration_ns)
	VALUES (?, ?, ?, ?, ?, ?)`

// Step is a recorded scheduling step.
type Step struct {
	RunID    string
	Seq      uint64
	NodeID   int
	Consumed int
	Emitted  int
	Duration time.Duration
}

// Recorder writes steps into SQLite.
//
// Construct using [Open].
type Recorder struct {
	// BatchSize is the OPTIONAL number of buffered steps
	// triggering a flush. If zero, we use [DefaultBatchSize].
	BatchSize int

	// Logger is the OPTIONAL logger for structured logging.
	Logger *slog.Logger

	db      *sql.DB
	err     error
	insert  *sql.Stmt
	mu      sync.Mutex
	pending []Step
	runID   string
}

var _ dataflow.Hook = &Recorder{}

// Open opens or creates the database at path and prepares
// recording a new run.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("steptrace: creating schema: %w", err)
	}
	insert, err := db.Prepare(insertStep)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("steptrace: preparing insert: %w", err)
	}
	rec := &Recorder{
		db:     db,
		insert: insert,
		runID:  xid.New().String(),
	}
	return rec, nil
}

// RunID returns the identifier of the recorded run.
func (r *Recorder) RunID() string {
	return r.runID
}

// Func implements [dataflow.Hook].
func (r *Recorder) Func(ctx dataflow.HookCtx) {
	if ctx.Pos != dataflow.HookPosAfterProcess {
		return
	}
	info, ok := ctx.Detail.(dataflow.StepInfo)
	if !ok {
		return
	}

	r.mu.Lock()
	r.pending = append(r.pending, Step{
		RunID:    r.runID,
		Seq:      info.Seq,
		NodeID:   info.NodeID,
		Consumed: info.Consumed,
		Emitted:  info.Emitted,
		Duration: info.Duration,
	})
	full := len(r.pending) >= r.batchSize()
	r.mu.Unlock()

	if full {
		// a hook cannot fail: keep the first error for Err and Close
		r.Flush()
	}
}

func (r *Recorder) batchSize() int {
	if r.BatchSize > 0 {
		return r.BatchSize
	}
	return DefaultBatchSize
}

// Flush writes the buffered steps in a single transaction.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pending) <= 0 {
		return r.err
	}
	err := r.writeLocked(r.pending)
	if r.Logger != nil {
		r.Logger.Debug("traceFlushDone", slog.Int("steps", len(r.pending)), slog.Any("err", err))
	}
	r.pending = nil
	if err != nil && r.err == nil {
		r.err = err
	}
	return r.err
}

func (r *Recorder) writeLocked(steps []Step) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(r.insert)
	for _, s := range steps {
		_, err := stmt.Exec(s.RunID, int64(s.Seq), s.NodeID, s.Consumed, s.Emitted, s.Duration.Nanoseconds())
		if err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}
	return tx.Commit()
}

// Err returns the first error that occurred while flushing.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Steps returns the recorded steps of the given run ordered by sequence.
func (r *Recorder) Steps(runID string) ([]Step, error) {
	rows, err := r.db.Query(
		`SELECT run_id, seq, node_id, consumed, emitted, duration_ns
		FROM steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var steps []Step
	for rows.Next() {
		var (
			s        Step
			seq      int64
			duration int64
		)
		if err := rows.Scan(&s.RunID, &seq, &s.NodeID, &s.Consumed, &s.Emitted, &duration); err != nil {
			return nil, err
		}
		s.Seq, s.Duration = uint64(seq), time.Duration(duration)
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// Close flushes the buffered steps and closes the database.
func (r *Recorder) Close() error {
	err := r.Flush()
	return errors.Join(err, r.insert.Close(), r.db.Close())
}
