package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/quizstats/internal/infrastructure/database/types"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PostgresStore keeps documents in a JSONB table. A trigger emits pg_notify on
// every write and a lib/pq listener turns those into watch notifications, so
// writes from other processes are observed too.
type PostgresStore struct {
	pool   *pgxpool.Pool
	dsn    string
	hub    *hub
	logger logrus.FieldLogger
	closed atomic.Bool

	listenOnce sync.Once
	cancel     context.CancelFunc
	listenDone chan struct{}
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps a pgx pool. dsn is used for the dedicated LISTEN connection.
func NewPostgresStore(pool *pgxpool.Pool, dsn string, logger logrus.FieldLogger) *PostgresStore {
	s := &PostgresStore{
		pool:   pool,
		dsn:    dsn,
		logger: logger.WithField("component", "docstore.postgres"),
	}
	s.hub = newHub(s.Get, s.logger)
	return s
}

func (s *PostgresStore) Init(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply postgres schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ref Ref) (*Snapshot, error) {
	if err := s.check(ref); err != nil {
		return nil, err
	}
	return s.get(ctx, s.pool, ref, "")
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) get(ctx context.Context, q pgQuerier, ref Ref, suffix string) (*Snapshot, error) {
	var (
		data       types.Document
		updateTime time.Time
	)
	err := q.QueryRow(ctx,
		`SELECT data, update_time FROM documents WHERE collection = $1 AND id = $2`+suffix,
		ref.Collection, ref.ID).Scan(&data, &updateTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Snapshot{Ref: ref}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", ref.Path(), err)
	}
	return &Snapshot{Ref: ref, Exists: true, Data: map[string]any(data), UpdateTime: updateTime.UTC()}, nil
}

func (s *PostgresStore) Set(ctx context.Context, ref Ref, data map[string]any) error {
	if err := s.check(ref); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data, update_time) VALUES ($1, $2, $3::jsonb, $4)
		 ON CONFLICT (collection, id) DO UPDATE SET
		   data = EXCLUDED.data,
		   update_time = GREATEST(EXCLUDED.update_time, documents.update_time + interval '1 microsecond')`,
		ref.Collection, ref.ID, types.Document(data), now())
	if err != nil {
		return fmt.Errorf("set %s: %w", ref.Path(), err)
	}
	s.hub.publish(ref)
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, ref Ref, fields map[string]any) error {
	if err := s.check(ref); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents
		 SET data = data || $3::jsonb,
		     update_time = GREATEST($4, update_time + interval '1 microsecond')
		 WHERE collection = $1 AND id = $2`,
		ref.Collection, ref.ID, types.Document(fields), now())
	if err != nil {
		return fmt.Errorf("update %s: %w", ref.Path(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.hub.publish(ref)
	return nil
}

func (s *PostgresStore) Transaction(ctx context.Context, ref Ref, fn TxFunc) (err error) {
	if err := s.check(ref); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	snap, err := s.get(ctx, tx, ref, " FOR UPDATE")
	if err != nil {
		return err
	}
	fields, err := fn(snap)
	if err != nil {
		return err
	}
	if fields == nil {
		return tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO documents (collection, id, data, update_time) VALUES ($1, $2, $3::jsonb, $4)
		 ON CONFLICT (collection, id) DO UPDATE SET
		   data = documents.data || EXCLUDED.data,
		   update_time = GREATEST(EXCLUDED.update_time, documents.update_time + interval '1 microsecond')`,
		ref.Collection, ref.ID, types.Document(fields), now())
	if err != nil {
		return fmt.Errorf("write %s: %w", ref.Path(), err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", ref.Path(), err)
	}
	s.hub.publish(ref)
	return nil
}

// Watch starts the shared LISTEN loop on first use.
func (s *PostgresStore) Watch(ctx context.Context, ref Ref, onChange func(*Snapshot), onError func(error)) (Unsubscribe, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if err := s.startListener(); err != nil {
		return nil, err
	}
	return s.hub.watch(ctx, ref, onChange, onError)
}

func (s *PostgresStore) startListener() (err error) {
	s.listenOnce.Do(func() {
		listener := pq.NewListener(s.dsn, listenerMinReconnect, listenerMaxReconnect, s.listenerEvent)
		if err = listener.Listen(notifyChannel); err != nil {
			_ = listener.Close()
			err = fmt.Errorf("listen %s: %w", notifyChannel, err)
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.listenDone = make(chan struct{})
		go s.listen(ctx, listener)
	})
	return err
}

func (s *PostgresStore) listen(ctx context.Context, listener *pq.Listener) {
	defer close(s.listenDone)
	defer listener.Close()

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// the connection was re-established and notifications may have been missed
				s.hub.publishAll()
				continue
			}
			if ref, ok := parseRef(n.Extra); ok {
				s.hub.publish(ref)
			}
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					s.logger.WithError(err).Warn("listener ping failed")
				}
			}()
		}
	}
}

func (s *PostgresStore) listenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		s.logger.Debug("listener connected")
	case pq.ListenerEventDisconnected:
		s.logger.WithError(err).Warn("listener disconnected")
	case pq.ListenerEventReconnected:
		s.logger.Info("listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		s.logger.WithError(err).Error("listener connection attempt failed")
	}
}

// Close stops the listener and all watchers. The pool is owned by the caller.
func (s *PostgresStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.listenOnce.Do(func() {})
	if s.cancel != nil {
		s.cancel()
		<-s.listenDone
	}
	s.hub.close()
	return nil
}

func (s *PostgresStore) check(ref Ref) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ref.validate()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
