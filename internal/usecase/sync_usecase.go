package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/repository"
)

// SyncOutcome reports what a single replicated write did.
type SyncOutcome string

const (
	SyncApplied                SyncOutcome = "applied"
	SyncSkippedMissingProfile  SyncOutcome = "skipped_missing_profile"
	SyncSkippedMissingProgress SyncOutcome = "skipped_missing_progress"
	SyncSkippedStale           SyncOutcome = "skipped_stale"
	SyncFailed                 SyncOutcome = "failed"
)

// SyncReport summarizes a full replication pass for one user.
type SyncReport struct {
	UserID        string
	XP            int64
	Hearts        int64
	XPOutcome     SyncOutcome
	HeartsOutcome SyncOutcome
}

// SubscriptionKind names the document a live subscription follows.
type SubscriptionKind string

const (
	SubscriptionProgress SubscriptionKind = "progress"
	SubscriptionProfile  SubscriptionKind = "profile"
)

// Subscription is a live document watch owned by the sync usecase.
type Subscription struct {
	UserID string
	Kind   SubscriptionKind

	mu          sync.Mutex
	stopped     bool
	unsubscribe repository.Unsubscribe
	stopAfter   func() bool
	done        chan struct{}
	release     func(*Subscription)
}

// Done is closed once the subscription has stopped, whether by Stop, by being
// replaced, by cleanup or by its context ending.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Stop cancels the subscription. It is safe to call more than once.
func (s *Subscription) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	unsubscribe, stopAfter := s.unsubscribe, s.stopAfter
	s.mu.Unlock()

	if stopAfter != nil {
		stopAfter()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	if s.release != nil {
		s.release(s)
	}
	close(s.done)
}

// attach hands the watch handles to the subscription, or releases them at once
// when it was stopped while the watch was being set up.
func (s *Subscription) attach(unsubscribe repository.Unsubscribe, stopAfter func() bool) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		stopAfter()
		unsubscribe()
		return
	}
	s.unsubscribe, s.stopAfter = unsubscribe, stopAfter
	s.mu.Unlock()
}

// SyncUsecase replicates the authoritative XP and lives values from the progress
// document into the profile document.
type SyncUsecase interface {
	// SyncXPToUserCollection never fails; problems are reported through the outcome.
	SyncXPToUserCollection(ctx context.Context, userID string, value int64) SyncOutcome
	SyncHeartsToUserCollection(ctx context.Context, userID string, value int64) SyncOutcome
	// StartUserProgressSync replaces any previous progress subscription for userID.
	StartUserProgressSync(ctx context.Context, userID string, onUpdate func(*entity.ProgressDocument)) (*Subscription, error)
	// StartUserDataSync replaces any previous profile subscription for userID.
	StartUserDataSync(ctx context.Context, userID string, onUpdate func(*entity.ProfileDocument)) (*Subscription, error)
	// ForceSyncAll reads progress once and overwrites both profile fields whatever
	// their stored versions, subject only to the profile existing.
	ForceSyncAll(ctx context.Context, userID string) SyncReport
	// Reconcile runs ForceSyncAll for every user with an active progress subscription.
	Reconcile(ctx context.Context) []SyncReport
	ActiveUsers() []string
	StopUser(userID string)
	Cleanup()
}

// NewSyncUsecase wires the repositories used for replication.
func NewSyncUsecase(
	progressRepo repository.ProgressRepository,
	profiles repository.ProfileRepository,
	progress ProgressReader,
	logger logrus.FieldLogger,
) SyncUsecase {
	return &syncUsecase{
		progressRepo: progressRepo,
		profiles:     profiles,
		progress:     progress,
		logger:       logger.WithField("component", "sync"),
		clock:        time.Now,
		subs:         make(map[subscriptionKey]*Subscription),
	}
}

type subscriptionKey struct {
	userID string
	kind   SubscriptionKind
}

type syncUsecase struct {
	progressRepo repository.ProgressRepository
	profiles     repository.ProfileRepository
	progress     ProgressReader
	logger       logrus.FieldLogger
	clock        func() time.Time

	mu   sync.Mutex
	subs map[subscriptionKey]*Subscription
}

func (u *syncUsecase) SyncXPToUserCollection(ctx context.Context, userID string, value int64) SyncOutcome {
	return u.replicate(ctx, userID, entity.FieldXPPoints, value, time.Time{}, false)
}

func (u *syncUsecase) SyncHeartsToUserCollection(ctx context.Context, userID string, value int64) SyncOutcome {
	return u.replicate(ctx, userID, entity.FieldLives, value, time.Time{}, false)
}

// replicate applies one last-writer-wins write. A zero version means now; force
// overwrites regardless of the stored version.
func (u *syncUsecase) replicate(ctx context.Context, userID, field string, value int64, version time.Time, force bool) SyncOutcome {
	log := u.logger.WithFields(logrus.Fields{"user_id": userID, "field": field, "value": value})

	now := u.clock()
	if version.IsZero() {
		version = now
	}
	applied, err := u.profiles.ApplyReplicated(ctx, repository.ReplicatedWrite{
		UserID:    userID,
		Field:     field,
		Value:     value,
		Version:   version,
		WrittenAt: now,
		Force:     force,
	})
	outcome := SyncApplied
	switch {
	case errors.Is(err, entity.ErrProfileNotFound):
		outcome = SyncSkippedMissingProfile
	case err != nil:
		outcome = SyncFailed
		log = log.WithError(err)
	case !applied:
		outcome = SyncSkippedStale
	}

	log = log.WithField("outcome", outcome)
	switch outcome {
	case SyncFailed:
		log.Error("profile replication failed")
	case SyncApplied:
		log.Info("profile field replicated")
	default:
		log.Debug("profile replication skipped")
	}
	return outcome
}

// replicateAll writes both fields concurrently, versioned by the progress document.
// A forced pass is stamped with the later of now and the document's update time.
func (u *syncUsecase) replicateAll(ctx context.Context, userID string, doc *entity.ProgressDocument, force bool) SyncReport {
	report := SyncReport{UserID: userID, XP: doc.XP(), Hearts: doc.Hearts()}
	version := doc.UpdateTime
	if force {
		if now := u.clock(); now.After(version) {
			version = now
		}
	}
	var g errgroup.Group
	g.Go(func() error {
		report.XPOutcome = u.replicate(ctx, userID, entity.FieldXPPoints, report.XP, version, force)
		return nil
	})
	g.Go(func() error {
		report.HeartsOutcome = u.replicate(ctx, userID, entity.FieldLives, report.Hearts, version, force)
		return nil
	})
	_ = g.Wait()
	return report
}

func (u *syncUsecase) StartUserProgressSync(ctx context.Context, userID string, onUpdate func(*entity.ProgressDocument)) (*Subscription, error) {
	userID, err := entity.NormalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	log := u.logger.WithFields(logrus.Fields{"user_id": userID, "kind": SubscriptionProgress})

	return u.subscribe(ctx, userID, SubscriptionProgress, func(ctx context.Context) (repository.Unsubscribe, error) {
		return u.progressRepo.Watch(ctx, userID,
			func(doc *entity.ProgressDocument) {
				if doc == nil {
					log.Debug("progress document does not exist yet")
					return
				}
				u.progress.Invalidate(userID)
				report := u.replicateAll(ctx, userID, doc, false)
				log.WithFields(logrus.Fields{
					"xp_outcome":     report.XPOutcome,
					"hearts_outcome": report.HeartsOutcome,
				}).Debug("progress change replicated")
				if onUpdate != nil {
					onUpdate(doc)
				}
			},
			func(err error) {
				log.WithError(err).Error("progress subscription error")
			},
		)
	})
}

func (u *syncUsecase) StartUserDataSync(ctx context.Context, userID string, onUpdate func(*entity.ProfileDocument)) (*Subscription, error) {
	userID, err := entity.NormalizeUserID(userID)
	if err != nil {
		return nil, err
	}
	log := u.logger.WithFields(logrus.Fields{"user_id": userID, "kind": SubscriptionProfile})

	return u.subscribe(ctx, userID, SubscriptionProfile, func(ctx context.Context) (repository.Unsubscribe, error) {
		return u.profiles.Watch(ctx, userID,
			func(doc *entity.ProfileDocument) {
				if doc == nil {
					log.Debug("profile document does not exist yet")
					return
				}
				if onUpdate != nil {
					onUpdate(doc)
				}
			},
			func(err error) {
				log.WithError(err).Error("profile subscription error")
			},
		)
	})
}

func (u *syncUsecase) subscribe(ctx context.Context, userID string, kind SubscriptionKind, watch func(context.Context) (repository.Unsubscribe, error)) (*Subscription, error) {
	key := subscriptionKey{userID: userID, kind: kind}
	sub := &Subscription{
		UserID:  userID,
		Kind:    kind,
		done:    make(chan struct{}),
		release: u.release,
	}

	u.mu.Lock()
	previous := u.subs[key]
	u.subs[key] = sub
	u.mu.Unlock()
	if previous != nil {
		u.logger.WithFields(logrus.Fields{"user_id": userID, "kind": kind}).Info("replacing existing subscription")
		previous.Stop()
	}

	unsubscribe, err := watch(ctx)
	if err != nil {
		sub.Stop()
		return nil, err
	}
	sub.attach(unsubscribe, context.AfterFunc(ctx, sub.Stop))
	u.logger.WithFields(logrus.Fields{"user_id": userID, "kind": kind}).Info("subscription started")
	return sub, nil
}

func (u *syncUsecase) release(sub *Subscription) {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := subscriptionKey{userID: sub.UserID, kind: sub.Kind}
	if u.subs[key] == sub {
		delete(u.subs, key)
	}
}

func (u *syncUsecase) ForceSyncAll(ctx context.Context, userID string) SyncReport {
	log := u.logger.WithField("user_id", userID)
	doc, err := u.progress.GetProgress(ctx, userID, true)
	if err != nil {
		log.WithError(err).Error("force sync could not read progress")
		return SyncReport{UserID: userID, XPOutcome: SyncFailed, HeartsOutcome: SyncFailed}
	}
	if doc == nil {
		log.Info("force sync skipped, no progress document")
		return SyncReport{UserID: userID, XPOutcome: SyncSkippedMissingProgress, HeartsOutcome: SyncSkippedMissingProgress}
	}
	report := u.replicateAll(ctx, userID, doc, true)
	log.WithFields(logrus.Fields{
		"xp_outcome":     report.XPOutcome,
		"hearts_outcome": report.HeartsOutcome,
	}).Info("force sync finished")
	return report
}

func (u *syncUsecase) Reconcile(ctx context.Context) []SyncReport {
	users := u.ActiveUsers()
	reports := make([]SyncReport, 0, len(users))
	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		reports = append(reports, u.ForceSyncAll(ctx, userID))
	}
	u.logger.WithField("users", len(reports)).Debug("reconciliation pass finished")
	return reports
}

// ActiveUsers lists users with a live progress subscription, sorted.
func (u *syncUsecase) ActiveUsers() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	users := make([]string, 0, len(u.subs))
	for key := range u.subs {
		if key.kind == SubscriptionProgress {
			users = append(users, key.userID)
		}
	}
	sort.Strings(users)
	return users
}

func (u *syncUsecase) StopUser(userID string) {
	u.mu.Lock()
	var subs []*Subscription
	for key, sub := range u.subs {
		if key.userID == userID {
			subs = append(subs, sub)
		}
	}
	u.mu.Unlock()
	for _, sub := range subs {
		sub.Stop()
	}
}

func (u *syncUsecase) Cleanup() {
	u.mu.Lock()
	subs := make([]*Subscription, 0, len(u.subs))
	for _, sub := range u.subs {
		subs = append(subs, sub)
	}
	u.mu.Unlock()
	for _, sub := range subs {
		sub.Stop()
	}
	u.logger.WithField("subscriptions", len(subs)).Info("sync subscriptions cleaned up")
}
