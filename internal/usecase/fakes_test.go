package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/repository"
)

// in-memory progress repository; watchers are triggered with push.
type fakeProgressRepo struct {
	mu       sync.Mutex
	docs     map[string]*entity.ProgressDocument
	err      error
	gets     int
	watchers map[int]func(*entity.ProgressDocument)
	watchIDs map[int]string
	nextID   int
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{
		docs:     map[string]*entity.ProgressDocument{},
		watchers: map[int]func(*entity.ProgressDocument){},
		watchIDs: map[int]string{},
	}
}

func (r *fakeProgressRepo) put(doc *entity.ProgressDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.UserID] = doc
}

func (r *fakeProgressRepo) getCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gets
}

func (r *fakeProgressRepo) Get(_ context.Context, userID string) (*entity.ProgressDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.err != nil {
		return nil, r.err
	}
	doc, ok := r.docs[userID]
	if !ok {
		return nil, entity.ErrProgressNotFound
	}
	return doc, nil
}

func (r *fakeProgressRepo) Watch(_ context.Context, userID string, onChange func(*entity.ProgressDocument), _ repository.ErrorHandler) (repository.Unsubscribe, error) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.watchers[id] = onChange
	r.watchIDs[id] = userID
	doc := r.docs[userID]
	r.mu.Unlock()

	onChange(doc)
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.watchers, id)
			delete(r.watchIDs, id)
			r.mu.Unlock()
		})
	}, nil
}

// push stores doc and notifies every live watcher of its user.
func (r *fakeProgressRepo) push(doc *entity.ProgressDocument) {
	r.mu.Lock()
	r.docs[doc.UserID] = doc
	var fns []func(*entity.ProgressDocument)
	for id, fn := range r.watchers {
		if r.watchIDs[id] == doc.UserID {
			fns = append(fns, fn)
		}
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(doc)
	}
}

func (r *fakeProgressRepo) watcherCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// in-memory profile repository with the same last-writer-wins rule as the store adapter.
type fakeProfileRepo struct {
	mu       sync.Mutex
	docs     map[string]*entity.ProfileDocument
	writes   int
	getErr   error
	watchers map[string]func(*entity.ProfileDocument)
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		docs:     map[string]*entity.ProfileDocument{},
		watchers: map[string]func(*entity.ProfileDocument){},
	}
}

func (r *fakeProfileRepo) writeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

func (r *fakeProfileRepo) snapshot(userID string) *entity.ProfileDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[userID]
	if !ok {
		return nil
	}
	cp := *doc
	return &cp
}

func (r *fakeProfileRepo) Get(_ context.Context, userID string) (*entity.ProfileDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	doc, ok := r.docs[userID]
	if !ok {
		return nil, entity.ErrProfileNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeProfileRepo) Exists(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.docs[userID]
	return ok, nil
}

func (r *fakeProfileRepo) Create(_ context.Context, profile *entity.ProfileDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	cp := *profile
	r.docs[profile.UserID] = &cp
	return nil
}

func (r *fakeProfileRepo) Update(_ context.Context, userID string, fields entity.ProfileFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[userID]
	if !ok {
		return entity.ErrProfileNotFound
	}
	r.writes++
	for k, v := range fields {
		switch k {
		case entity.FieldTotalGoodAnswers:
			doc.TotalGoodAnswers = int64Of(v)
		case entity.FieldTotalQuestionsAttempted:
			doc.TotalQuestionsAttempted = int64Of(v)
		case entity.FieldTotalQuizzes:
			doc.TotalQuizzes = int64Of(v)
		case entity.FieldXPPoints:
			doc.XPPoints = int64Of(v)
		case entity.FieldLives:
			doc.Lives = int64Of(v)
		case entity.FieldQuizDurations:
			doc.QuizDurations = append([]float64{}, v.([]float64)...)
		}
	}
	return nil
}

func (r *fakeProfileRepo) ApplyReplicated(_ context.Context, w repository.ReplicatedWrite) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[w.UserID]
	if !ok {
		return false, entity.ErrProfileNotFound
	}
	if !w.Force && doc.SyncedAt(w.Field).After(w.Version) {
		return false, nil
	}
	r.writes++
	switch w.Field {
	case entity.FieldXPPoints:
		doc.XPPoints = int64Of(w.Value)
		doc.XPPointsSyncedAt = w.Version
	case entity.FieldLives:
		doc.Lives = int64Of(w.Value)
		doc.LivesSyncedAt = w.Version
	default:
		return false, errors.New("unexpected replicated field " + w.Field)
	}
	doc.LastUpdated = entity.NewTimestamp(w.WrittenAt)
	return true, nil
}

func (r *fakeProfileRepo) Watch(_ context.Context, userID string, onChange func(*entity.ProfileDocument), _ repository.ErrorHandler) (repository.Unsubscribe, error) {
	r.mu.Lock()
	r.watchers[userID] = onChange
	var doc *entity.ProfileDocument
	if d, ok := r.docs[userID]; ok {
		cp := *d
		doc = &cp
	}
	r.mu.Unlock()
	onChange(doc)
	return func() {
		r.mu.Lock()
		delete(r.watchers, userID)
		r.mu.Unlock()
	}, nil
}

func int64Of(v any) *int64 {
	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int64:
		n = val
	case float64:
		n = int64(val)
	}
	return &n
}

type fakeStreakRepo struct {
	record *entity.StreakRecord
	err    error
}

func (r *fakeStreakRepo) Get(context.Context, string) (*entity.StreakRecord, error) {
	return r.record, r.err
}

type fakeAuditor struct {
	issues []entity.DataIssue
}

func (a *fakeAuditor) Audit(context.Context, string) ([]entity.DataIssue, error) {
	return a.issues, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func i64(v int64) *int64 { return &v }

func quiz(id string, score float64, attempted time.Time) entity.QuizProgress {
	return entity.QuizProgress{QuizID: id, Completed: true, Score: score, LastAttemptDate: entity.NewTimestamp(attempted)}
}

func progressDoc(userID string, quizzes ...entity.QuizProgress) *entity.ProgressDocument {
	return &entity.ProgressDocument{
		UserID: userID,
		Difficulties: []entity.DifficultyProgress{{
			Difficulty: "beginner",
			Categories: []entity.CategoryProgress{{CategoryID: "general", Quizzes: quizzes}},
		}},
	}
}

func withUser(userID string) context.Context {
	return entity.ContextWithIdentity(context.Background(), entity.Identity{UserID: userID, Email: userID + "@example.com"})
}
