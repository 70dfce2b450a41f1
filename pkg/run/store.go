package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/inboxd/inboxd/pkg/concurrent"
	"github.com/inboxd/inboxd/pkg/sqliteutil"
)

var (
	ErrEmptyID  = errors.New("run ID cannot be empty")
	ErrNotFound = errors.New("run not found")
)

// Store persists run snapshots keyed by run identifier. Implementations
// hand out deep copies; a caller mutates its copy and writes it back with
// Save. Serializing mutations per run is the runtime's job, not the
// store's.
type Store interface {
	Create(ctx context.Context, r *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context) ([]*Run, error)
	Save(ctx context.Context, r *Run) error
	Delete(ctx context.Context, id string) error
}

type InMemoryStore struct {
	runs *concurrent.Map[string, *Run]
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{runs: concurrent.NewMap[string, *Run]()}
}

func (s *InMemoryStore) Create(_ context.Context, r *Run) error {
	if r.ID == "" {
		return ErrEmptyID
	}
	snapshot, err := r.Clone()
	if err != nil {
		return err
	}
	s.runs.Store(r.ID, snapshot)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	r, ok := s.runs.Load(id)
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone()
}

func (s *InMemoryStore) List(_ context.Context) ([]*Run, error) {
	runs := make([]*Run, 0, s.runs.Length())
	var cloneErr error
	s.runs.Range(func(_ string, r *Run) bool {
		c, err := r.Clone()
		if err != nil {
			cloneErr = err
			return false
		}
		runs = append(runs, c)
		return true
	})
	if cloneErr != nil {
		return nil, cloneErr
	}
	sortByUpdated(runs)
	return runs, nil
}

func (s *InMemoryStore) Save(_ context.Context, r *Run) error {
	if r.ID == "" {
		return ErrEmptyID
	}
	snapshot, err := r.Clone()
	if err != nil {
		return err
	}
	s.runs.Store(r.ID, snapshot)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if _, ok := s.runs.Load(id); !ok {
		return ErrNotFound
	}
	s.runs.Delete(id)
	return nil
}

// SQLiteStore persists runs in a single table, the whole snapshot as one
// JSON column. Runs are small (bounded message log) so granular rows buy
// nothing here.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqliteutil.OpenDB(path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			snapshot   TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, r *Run) error {
	return s.upsert(ctx, r)
}

func (s *SQLiteStore) Save(ctx context.Context, r *Run) error {
	return s.upsert(ctx, r)
}

func (s *SQLiteStore) upsert(ctx context.Context, r *Run) error {
	if r.ID == "" {
		return ErrEmptyID
	}
	snapshot, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, state, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state      = excluded.state,
			snapshot   = excluded.snapshot,
			updated_at = excluded.updated_at`,
		r.ID, string(r.State), string(snapshot), r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	var snapshot string
	err := s.db.QueryRowContext(ctx, "SELECT snapshot FROM runs WHERE id = ?", id).Scan(&snapshot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var r Run
	if err := json.Unmarshal([]byte(snapshot), &r); err != nil {
		return nil, fmt.Errorf("unmarshaling run %s: %w", id, err)
	}
	return &r, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT snapshot FROM runs ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var snapshot string
		if err := rows.Scan(&snapshot); err != nil {
			return nil, err
		}
		var r Run
		if err := json.Unmarshal([]byte(snapshot), &r); err != nil {
			return nil, fmt.Errorf("unmarshaling run: %w", err)
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func sortByUpdated(runs []*Run) {
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].UpdatedAt.After(runs[j].UpdatedAt)
	})
}
