// Package store persists clustering runs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/TrevorS/abstraction"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by LoadRun for an unknown run id.
var ErrNotFound = errors.New("store: run not found")

// Run is one completed clustering of a stage's histograms. Assignment j
// belongs to stage index FirstIndex+j.
type Run struct {
	ID          uuid.UUID
	Stage       string
	Metric      string
	Init        string
	Bins        int
	FirstIndex  uint64
	Iterations  int
	Converged   bool
	Centers     []abstraction.Histogram
	Assignments []int
	CreatedAt   time.Time
}

// K returns the number of clusters in the run.
func (r *Run) K() int { return len(r.Centers) }

// Store is a SQLite-backed run repository.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("store: pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			metric TEXT NOT NULL,
			init TEXT NOT NULL,
			k INTEGER NOT NULL,
			bins INTEGER NOT NULL,
			first_index INTEGER NOT NULL,
			points INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			converged INTEGER NOT NULL,
			centers BLOB NOT NULL,
			assignments BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS runs_stage ON runs (stage, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: schema creation failed: %w", err)
	}
	return nil
}

// SaveRun stores run. A zero ID is replaced by a new random one and a zero
// CreatedAt by the current time; the stored run is returned.
func (s *Store) SaveRun(ctx context.Context, run Run) (Run, error) {
	if len(run.Centers) == 0 {
		return Run{}, fmt.Errorf("store: run has no centers")
	}
	bins := len(run.Centers[0])
	for k, c := range run.Centers {
		if len(c) != bins {
			return Run{}, fmt.Errorf("store: center %d has %d bins, want %d", k, len(c), bins)
		}
	}
	for i, a := range run.Assignments {
		if a < 0 || a >= len(run.Centers) {
			return Run{}, fmt.Errorf("store: assignment %d is %d, outside [0, %d)", i, a, len(run.Centers))
		}
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.Bins = bins

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, stage, metric, init, k, bins, first_index, points,
			iterations, converged, centers, assignments, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Stage, run.Metric, run.Init, len(run.Centers), bins,
		int64(run.FirstIndex), len(run.Assignments), run.Iterations, run.Converged,
		encodeCenters(run.Centers), encodeAssignments(run.Assignments), run.CreatedAt.UnixNano())
	if err != nil {
		return Run{}, fmt.Errorf("store: save run %s: %w", run.ID, err)
	}
	return run, nil
}

// LoadRun returns the run with the given id.
func (s *Store) LoadRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, stage, metric, init, k, bins, first_index, points, iterations, converged,
			centers, assignments, created_at
		FROM runs WHERE id = ?`, id.String())

	var (
		run              Run
		rawID            string
		k, points        int
		firstIndex, nano int64
		centers, labels  []byte
	)
	err := row.Scan(&rawID, &run.Stage, &run.Metric, &run.Init, &k, &run.Bins, &firstIndex,
		&points, &run.Iterations, &run.Converged, &centers, &labels, &nano)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load run %s: %w", id, err)
	}

	if run.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("store: run %s: %w", rawID, err)
	}
	run.FirstIndex = uint64(firstIndex)
	run.CreatedAt = time.Unix(0, nano)
	if run.Centers, err = decodeCenters(centers, k, run.Bins); err != nil {
		return nil, fmt.Errorf("store: run %s: %w", id, err)
	}
	if run.Assignments, err = decodeAssignments(labels, points, k); err != nil {
		return nil, fmt.Errorf("store: run %s: %w", id, err)
	}
	return &run, nil
}

// RunSummary describes a stored run without its centers and assignments.
type RunSummary struct {
	ID         uuid.UUID
	Stage      string
	Metric     string
	K          int
	Points     int
	Iterations int
	Converged  bool
	CreatedAt  time.Time
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stage, metric, k, points, iterations, converged, created_at
		FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			r     RunSummary
			rawID string
			nano  int64
		)
		if err := rows.Scan(&rawID, &r.Stage, &r.Metric, &r.K, &r.Points, &r.Iterations, &r.Converged, &nano); err != nil {
			return nil, fmt.Errorf("store: list runs: %w", err)
		}
		if r.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("store: run %s: %w", rawID, err)
		}
		r.CreatedAt = time.Unix(0, nano)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeCenters flattens centers row by row into little-endian float64s.
func encodeCenters(centers []abstraction.Histogram) []byte {
	bins := len(centers[0])
	buf := make([]byte, len(centers)*bins*8)
	off := 0
	for _, c := range centers {
		for _, v := range c {
			binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(v))
			off += 8
		}
	}
	return buf
}

func decodeCenters(b []byte, k, bins int) ([]abstraction.Histogram, error) {
	if k < 0 || bins < 0 || len(b) != k*bins*8 {
		return nil, fmt.Errorf("centers blob has %d bytes, want %d", len(b), k*bins*8)
	}
	centers := make([]abstraction.Histogram, k)
	off := 0
	for c := range centers {
		h := make(abstraction.Histogram, bins)
		for j := range h {
			h[j] = math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
			off += 8
		}
		centers[c] = h
	}
	return centers, nil
}

// encodeAssignments stores each label as a little-endian uint32.
func encodeAssignments(a []int) []byte {
	buf := make([]byte, len(a)*4)
	for i, v := range a {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

// decodeAssignments checks that b holds points labels, each below k.
func decodeAssignments(b []byte, points, k int) ([]int, error) {
	if points < 0 || len(b) != points*4 {
		return nil, fmt.Errorf("assignments blob has %d bytes, want %d", len(b), points*4)
	}
	a := make([]int, points)
	for i := range a {
		v := binary.LittleEndian.Uint32(b[i*4:])
		if uint64(v) >= uint64(k) {
			return nil, fmt.Errorf("assignment %d is %d, want < %d", i, v, k)
		}
		a[i] = int(v)
	}
	return a, nil
}
