package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/repository"
)

// DefaultProgressCacheTTL bounds how stale a cached progress read may be.
const DefaultProgressCacheTTL = 30 * time.Second

// ProgressReader reads progress documents through a short-lived per-user cache.
type ProgressReader interface {
	// GetProgress returns (nil, nil) when the user has no progress document.
	GetProgress(ctx context.Context, userID string, forceRefresh bool) (*entity.ProgressDocument, error)
	Invalidate(userID string)
}

// NewProgressReader wraps repo with a cache of the given TTL. A non-positive ttl disables caching.
func NewProgressReader(repo repository.ProgressRepository, ttl time.Duration) ProgressReader {
	return &progressReader{
		repo:    repo,
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]progressEntry),
	}
}

type progressEntry struct {
	doc       *entity.ProgressDocument
	fetchedAt time.Time
}

type progressReader struct {
	repo  repository.ProgressRepository
	ttl   time.Duration
	clock func() time.Time

	mu      sync.Mutex
	entries map[string]progressEntry
}

func (r *progressReader) GetProgress(ctx context.Context, userID string, forceRefresh bool) (*entity.ProgressDocument, error) {
	now := r.clock()
	if !forceRefresh && r.ttl > 0 {
		r.mu.Lock()
		entry, ok := r.entries[userID]
		r.mu.Unlock()
		if ok && now.Sub(entry.fetchedAt) < r.ttl {
			return entry.doc, nil
		}
	}

	doc, err := r.repo.Get(ctx, userID)
	if errors.Is(err, entity.ErrProgressNotFound) {
		doc, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.ttl > 0 {
		r.mu.Lock()
		r.entries[userID] = progressEntry{doc: doc, fetchedAt: now}
		r.mu.Unlock()
	}
	return doc, nil
}

func (r *progressReader) Invalidate(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, userID)
}
