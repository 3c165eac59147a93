package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/repository"
)

func newMigrationFixture(t *testing.T, auditor repository.ProgressAuditor) (*migrationUsecase, *fakeProgressRepo, *fakeProfileRepo) {
	t.Helper()
	progress := newFakeProgressRepo()
	profiles := newFakeProfileRepo()
	logger, _ := test.NewNullLogger()
	uc := NewMigrationUsecase(profiles, NewProgressReader(progress, time.Minute), auditor, logger).(*migrationUsecase)
	uc.clock = fixedClock(testNow)
	return uc, progress, profiles
}

func TestMigration_RequiresIdentity(t *testing.T) {
	uc, _, _ := newMigrationFixture(t, nil)
	ctx := context.Background()
	if _, err := uc.EnsureStatsFields(ctx); !errors.Is(err, entity.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := uc.BackfillFromProgress(ctx); !errors.Is(err, entity.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := uc.Diagnose(ctx); !errors.Is(err, entity.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := uc.RunFullMigration(ctx); !errors.Is(err, entity.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestEnsureStatsFields_CreatesProfile(t *testing.T) {
	uc, _, profiles := newMigrationFixture(t, nil)
	ctx := entity.ContextWithIdentity(context.Background(), entity.Identity{UserID: "u1", Email: "u1@example.com"})

	res, err := uc.EnsureStatsFields(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Created || !reflect.DeepEqual(res.AddedFields, entity.StatsCounterFields) {
		t.Fatalf("unexpected result: %+v", res)
	}
	doc := profiles.snapshot("u1")
	if doc.Email != "u1@example.com" || doc.DisplayName != entity.DefaultDisplayName {
		t.Fatalf("unexpected identity fields: %+v", doc)
	}
	if len(doc.MissingCounters()) != 0 || doc.XPPoints != nil || doc.Lives != nil {
		t.Fatalf("created profile must carry zeroed counters only: %+v", doc)
	}
	if !doc.CreatedAt.Time.Equal(testNow) {
		t.Fatalf("createdAt = %v, want %v", doc.CreatedAt.Time, testNow)
	}
}

func TestEnsureStatsFields_AddsOnlyMissingAndIsIdempotent(t *testing.T) {
	uc, _, profiles := newMigrationFixture(t, nil)
	profiles.docs["u1"] = &entity.ProfileDocument{UserID: "u1", TotalGoodAnswers: i64(7), XPPoints: i64(900)}
	ctx := withUser("u1")

	res, err := uc.EnsureStatsFields(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := []string{entity.FieldTotalQuestionsAttempted, entity.FieldQuizDurations, entity.FieldTotalQuizzes}
	if res.Created || !reflect.DeepEqual(res.AddedFields, want) {
		t.Fatalf("unexpected result: %+v", res)
	}
	doc := profiles.snapshot("u1")
	if doc.GoodAnswers() != 7 || doc.XP() != 900 {
		t.Fatalf("existing values must be kept: %+v", doc)
	}
	writes := profiles.writeCount()

	res, err = uc.EnsureStatsFields(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Created || len(res.AddedFields) != 0 {
		t.Fatalf("second run must be a no-op: %+v", res)
	}
	if profiles.writeCount() != writes {
		t.Fatalf("second run must not write")
	}
}

func TestBackfillFromProgress(t *testing.T) {
	uc, progress, profiles := newMigrationFixture(t, nil)
	profiles.docs["u1"] = &entity.ProfileDocument{UserID: "u1", TotalQuizzes: i64(99)}
	ctx := withUser("u1")

	n, err := uc.BackfillFromProgress(ctx)
	if err != nil || n != 0 {
		t.Fatalf("no progress means nothing written: n=%d err=%v", n, err)
	}
	if *profiles.snapshot("u1").TotalQuizzes != 99 {
		t.Fatalf("totalQuizzes must be untouched without progress")
	}

	progress.put(progressDoc("u1", quiz("q1", 60, testNow), quiz("q2", 20, testNow), quiz("q3", 80, testNow)))
	n, err = uc.BackfillFromProgress(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != 2 || *profiles.snapshot("u1").TotalQuizzes != 2 {
		t.Fatalf("expected totalQuizzes=2, got n=%d doc=%+v", n, profiles.snapshot("u1"))
	}
}

func TestBackfillFromProgress_MissingProfile(t *testing.T) {
	uc, progress, _ := newMigrationFixture(t, nil)
	progress.put(progressDoc("u1", quiz("q1", 60, testNow)))
	if _, err := uc.BackfillFromProgress(withUser("u1")); !errors.Is(err, entity.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestDiagnose_BeforeAndAfterMigration(t *testing.T) {
	auditor := &fakeAuditor{issues: []entity.DataIssue{{Location: "beginner/general/q2", Message: "unparseable lastAttemptDate"}}}
	uc, progress, profiles := newMigrationFixture(t, auditor)
	ctx := withUser("u1")

	before, err := uc.Diagnose(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if before.ProfileExists || before.ProgressExists {
		t.Fatalf("nothing exists yet: %+v", before)
	}
	if !reflect.DeepEqual(before.MissingFields, entity.StatsCounterFields) {
		t.Fatalf("a missing profile lacks every counter, got %v", before.MissingFields)
	}
	if before.Email != "u1@example.com" || before.Healthy() {
		t.Fatalf("unexpected diagnosis: %+v", before)
	}
	if profiles.writeCount() != 0 {
		t.Fatalf("diagnose must not write")
	}

	progress.put(progressDoc("u1", quiz("q1", 90, testNow)))
	result, err := uc.RunFullMigration(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !result.Created || result.BackfilledQuizzes != 1 {
		t.Fatalf("unexpected migration result: %+v", result)
	}

	after, err := uc.Diagnose(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !after.ProfileExists || !after.ProgressExists || len(after.MissingFields) != 0 {
		t.Fatalf("unexpected diagnosis after migration: %+v", after)
	}
	if len(after.DataIssues) != 1 || after.Healthy() {
		t.Fatalf("audit issues must be reported: %+v", after.DataIssues)
	}

	auditor.issues = nil
	after, err = uc.Diagnose(ctx)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !after.Healthy() {
		t.Fatalf("expected a healthy diagnosis: %+v", after)
	}
}

func TestRunFullMigration_StopsOnEnsureFailure(t *testing.T) {
	uc, _, profiles := newMigrationFixture(t, nil)
	profiles.getErr = errors.New("unavailable")
	if _, err := uc.RunFullMigration(withUser("u1")); err == nil {
		t.Fatalf("expected the ensure failure to propagate")
	}
}
