package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/quizstats/internal/infrastructure/database/types"
)

type sqliteRow struct {
	Data       types.Document `db:"data"`
	UpdateTime int64          `db:"update_time"`
}

// SQLiteStore keeps documents in a single SQLite table. Change notifications are
// published in-process after each committed write, so watchers only observe
// writes made through the same store.
type SQLiteStore struct {
	db     *sqlx.DB
	hub    *hub
	logger logrus.FieldLogger
	closed atomic.Bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore wraps an open SQLite database.
func NewSQLiteStore(db *sqlx.DB, logger logrus.FieldLogger) *SQLiteStore {
	s := &SQLiteStore{db: db, logger: logger.WithField("component", "docstore.sqlite")}
	s.hub = newHub(s.Get, s.logger)
	return s
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, ref Ref) (*Snapshot, error) {
	if err := s.check(ref); err != nil {
		return nil, err
	}
	return s.get(ctx, s.db, ref)
}

func (s *SQLiteStore) get(ctx context.Context, q sqlx.QueryerContext, ref Ref) (*Snapshot, error) {
	var row sqliteRow
	err := sqlx.GetContext(ctx, q, &row,
		`SELECT data, update_time FROM documents WHERE collection = ? AND id = ?`, ref.Collection, ref.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Snapshot{Ref: ref}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref.Path(), err)
	}
	return &Snapshot{
		Ref:        ref,
		Exists:     true,
		Data:       map[string]any(row.Data),
		UpdateTime: time.Unix(0, row.UpdateTime).UTC(),
	}, nil
}

func (s *SQLiteStore) Set(ctx context.Context, ref Ref, data map[string]any) error {
	if err := s.check(ref); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, update_time) VALUES (?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET
		   data = excluded.data,
		   update_time = MAX(excluded.update_time, documents.update_time + 1)`,
		ref.Collection, ref.ID, types.Document(data), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("set %s: %w", ref.Path(), err)
	}
	s.hub.publish(ref)
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, ref Ref, fields map[string]any) error {
	return s.Transaction(ctx, ref, func(snap *Snapshot) (map[string]any, error) {
		if !snap.Exists {
			return nil, ErrNotFound
		}
		return fields, nil
	})
}

func (s *SQLiteStore) Transaction(ctx context.Context, ref Ref, fn TxFunc) (err error) {
	if err := s.check(ref); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	snap, err := s.get(ctx, tx, ref)
	if err != nil {
		return err
	}
	fields, err := fn(snap)
	if err != nil {
		return err
	}
	if fields == nil {
		return tx.Commit()
	}

	next := time.Now().UnixNano()
	if snap.Exists {
		if prev := snap.UpdateTime.UnixNano(); next <= prev {
			next = prev + 1
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET data = ?, update_time = ? WHERE collection = ? AND id = ?`,
			types.Document(snap.Data).Merge(fields), next, ref.Collection, ref.ID)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (collection, id, data, update_time) VALUES (?, ?, ?, ?)`,
			ref.Collection, ref.ID, types.Document(fields), next)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", ref.Path(), err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", ref.Path(), err)
	}
	s.hub.publish(ref)
	return nil
}

func (s *SQLiteStore) Watch(ctx context.Context, ref Ref, onChange func(*Snapshot), onError func(error)) (Unsubscribe, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.hub.watch(ctx, ref, onChange, onError)
}

// Close stops all watchers. The underlying database is owned by the caller.
func (s *SQLiteStore) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.hub.close()
	}
	return nil
}

func (s *SQLiteStore) check(ref Ref) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ref.validate()
}
