package connectrpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapterrepo "github.com/eslsoft/quizstats/internal/adapter/repository"
	"github.com/eslsoft/quizstats/internal/adapter/mapping"
	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/infrastructure/database"
	"github.com/eslsoft/quizstats/internal/infrastructure/docstore"
	"github.com/eslsoft/quizstats/internal/usecase"
)

type testEnv struct {
	url   string
	store docstore.Store
	sync  usecase.SyncUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, cleanup, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(cleanup)

	logger, _ := test.NewNullLogger()
	store := docstore.NewSQLiteStore(db, logger)
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() { _ = store.Close() })

	collections := adapterrepo.DefaultCollections()
	progressRepo := adapterrepo.NewProgressRepository(store, collections)
	profiles := adapterrepo.NewProfileRepository(store, collections)
	streaks := adapterrepo.NewStreakRepository(store, collections)
	auditor, err := adapterrepo.NewProgressAuditor(store, collections)
	require.NoError(t, err)

	reader := usecase.NewProgressReader(progressRepo, 0)
	stats := usecase.NewStatsUsecase(reader, profiles, usecase.NewStreakUsecase(streaks, reader), usecase.NewStatsCache(time.Minute), usecase.EnglishDayLabels, logger)
	badges, err := usecase.NewBadgeUsecase(nil, stats)
	require.NoError(t, err)
	syncUC := usecase.NewSyncUsecase(progressRepo, profiles, reader, logger)
	t.Cleanup(syncUC.Cleanup)
	migration := usecase.NewMigrationUsecase(profiles, reader, auditor, logger)

	handler := NewHandler(Services{
		Stats:     NewStatsServiceServer(stats, badges),
		Sync:      NewSyncServiceServer(syncUC),
		Migration: NewMigrationServiceServer(migration),
	}, connect.WithInterceptors(NewIdentityInterceptor(AuthHeaders{})))

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testEnv{url: srv.URL, store: store, sync: syncUC}
}

func call[Req, Res any](t *testing.T, env *testEnv, procedure, userID string, msg *Req) (*Res, error) {
	t.Helper()
	client := connect.NewClient[Req, Res](http.DefaultClient, env.url+procedure, connect.WithCodec(jsonCodec{}))
	req := connect.NewRequest(msg)
	if userID != "" {
		req.Header().Set("X-User-Id", userID)
		req.Header().Set("X-User-Email", userID+"@example.com")
	}
	resp, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func value(v int64) *int64 { return &v }

func TestStatsService_RequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	_, err := call[mapping.Empty, mapping.RealUserStats](t, env, StatsServiceGetRealUserStatsProcedure, "", &mapping.Empty{})
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestStatsService_GetRealUserStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, env.store.Set(ctx, docstore.Doc("userProgress", "u1"), map[string]any{
		"totalXP": 1200,
		"difficulties": []any{map[string]any{
			"difficulty": "easy",
			"categories": []any{map[string]any{
				"categoryId": "general",
				"quizzes": []any{
					map[string]any{"quizId": "q1", "completed": true, "score": 75, "lastAttemptDate": entity.FormatISO(now)},
				},
			}},
		}},
	}))
	require.NoError(t, env.store.Set(ctx, docstore.Doc("users", "u1"), map[string]any{
		"totalGoodAnswers": 3, "totalQuestionsAttempted": 4, "quizDurations": []any{30, 50},
	}))

	stats, err := call[mapping.Empty, mapping.RealUserStats](t, env, StatsServiceGetRealUserStatsProcedure, "u1", &mapping.Empty{})
	require.NoError(t, err)
	assert.Equal(t, "u1", stats.UserID)
	assert.Equal(t, 1, stats.TotalQuizzes)
	assert.InDelta(t, 75.0, stats.AccuracyPercentage, 0.001)
	assert.InDelta(t, 40.0, stats.AverageTimeSeconds, 0.001)
	assert.Equal(t, int64(1200), stats.XPPoints)
	assert.Equal(t, int64(2), stats.Level)
	assert.Equal(t, int64(1), stats.CurrentStreak, "streak derived from today's attempt")
	require.Len(t, stats.WeeklyActivity, 7)
	today := stats.WeeklyActivity[6]
	assert.Equal(t, now.Format(entity.DateLayout), today.Date)
	assert.Equal(t, 1, today.QuizCount)
	assert.Equal(t, "20%", today.Height)

	_, err = call[mapping.Empty, mapping.Empty](t, env, StatsServiceClearCacheProcedure, "u1", &mapping.Empty{})
	require.NoError(t, err)

	badges, err := call[mapping.Empty, mapping.ListBadgesResponse](t, env, StatsServiceListBadgesProcedure, "u1", &mapping.Empty{})
	require.NoError(t, err)
	assert.Len(t, badges.Badges, len(entity.DefaultBadges()))
	for _, b := range badges.Badges {
		if b.ID == "speed_runner" {
			assert.True(t, b.Earned)
		}
		if b.ID == "explorer" {
			assert.False(t, b.Earned)
		}
	}
}

func TestSyncService_SyncXP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := call[mapping.SyncValueRequest, mapping.SyncOutcomeResponse](t, env, SyncServiceSyncXPProcedure, "u1", &mapping.SyncValueRequest{Value: value(10)})
	require.NoError(t, err)
	assert.Equal(t, string(usecase.SyncSkippedMissingProfile), res.Outcome)
	snap, err := env.store.Get(ctx, docstore.Doc("users", "u1"))
	require.NoError(t, err)
	assert.False(t, snap.Exists, "sync never creates the profile")

	require.NoError(t, env.store.Set(ctx, docstore.Doc("users", "u1"), map[string]any{"email": "u1@example.com"}))
	res, err = call[mapping.SyncValueRequest, mapping.SyncOutcomeResponse](t, env, SyncServiceSyncXPProcedure, "u1", &mapping.SyncValueRequest{UserID: "u1", Value: value(10)})
	require.NoError(t, err)
	assert.Equal(t, string(usecase.SyncApplied), res.Outcome)
	snap, err = env.store.Get(ctx, docstore.Doc("users", "u1"))
	require.NoError(t, err)
	assert.Equal(t, float64(10), snap.Data["xpPoints"])

	res, err = call[mapping.SyncValueRequest, mapping.SyncOutcomeResponse](t, env, SyncServiceSyncHeartsProcedure, "u1", &mapping.SyncValueRequest{Value: value(0)})
	require.NoError(t, err)
	assert.Equal(t, string(usecase.SyncApplied), res.Outcome)
}

func TestSyncService_Rejections(t *testing.T) {
	env := newTestEnv(t)

	_, err := call[mapping.SyncValueRequest, mapping.SyncOutcomeResponse](t, env, SyncServiceSyncXPProcedure, "u1", &mapping.SyncValueRequest{UserID: "u2", Value: value(1)})
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = call[mapping.SyncValueRequest, mapping.SyncOutcomeResponse](t, env, SyncServiceSyncXPProcedure, "u1", &mapping.SyncValueRequest{})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = call[mapping.SyncValueRequest, mapping.SyncOutcomeResponse](t, env, SyncServiceSyncHeartsProcedure, "u1", &mapping.SyncValueRequest{Value: value(-1)})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = call[mapping.UserRequest, mapping.SyncReport](t, env, SyncServiceForceSyncAllProcedure, "", &mapping.UserRequest{})
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestSyncService_ForceSyncAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Set(ctx, docstore.Doc("users", "u1"), map[string]any{}))
	require.NoError(t, env.store.Set(ctx, docstore.Doc("userProgress", "u1"), map[string]any{"totalXP": 300}))

	report, err := call[mapping.UserRequest, mapping.SyncReport](t, env, SyncServiceForceSyncAllProcedure, "u1", &mapping.UserRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(300), report.XP)
	assert.Equal(t, entity.DefaultHearts, report.Hearts)
	assert.Equal(t, string(usecase.SyncApplied), report.XPOutcome)
	assert.Equal(t, string(usecase.SyncApplied), report.HeartsOutcome)
}

func TestSyncService_WatchProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, env.store.Set(ctx, docstore.Doc("users", "u1"), map[string]any{}))

	client := connect.NewClient[mapping.UserRequest, mapping.ProgressUpdate](http.DefaultClient, env.url+SyncServiceWatchProgressProcedure, connect.WithCodec(jsonCodec{}))
	req := connect.NewRequest(&mapping.UserRequest{})
	req.Header().Set("X-User-Id", "u1")
	stream, err := client.CallServerStream(ctx, req)
	require.NoError(t, err)
	defer stream.Close()

	require.Eventually(t, func() bool { return len(env.sync.ActiveUsers()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, env.store.Set(ctx, docstore.Doc("userProgress", "u1"), map[string]any{"totalXP": 450, "heartsCount": 2}))

	require.True(t, stream.Receive(), "stream error: %v", stream.Err())
	update := stream.Msg()
	assert.Equal(t, int64(450), update.TotalXP)
	assert.Equal(t, int64(2), update.HeartsCount)

	require.Eventually(t, func() bool {
		snap, err := env.store.Get(ctx, docstore.Doc("users", "u1"))
		return err == nil && snap.Data["xpPoints"] == float64(450)
	}, 2*time.Second, 10*time.Millisecond)

	env.sync.StopUser("u1")
	assert.False(t, stream.Receive())
	assert.Equal(t, connect.CodeAborted, connect.CodeOf(stream.Err()))
}

func TestMigrationService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	diag, err := call[mapping.Empty, mapping.Diagnosis](t, env, MigrationServiceDiagnoseProcedure, "u1", &mapping.Empty{})
	require.NoError(t, err)
	assert.False(t, diag.ProfileExists)
	assert.Len(t, diag.MissingFields, len(entity.StatsCounterFields))
	assert.NotNil(t, diag.DataIssues)

	require.NoError(t, env.store.Set(ctx, docstore.Doc("userProgress", "u1"), map[string]any{
		"difficulties": []any{map[string]any{
			"difficulty": "easy",
			"categories": []any{map[string]any{
				"categoryId": "general",
				"quizzes": []any{
					map[string]any{"quizId": "q1", "completed": true, "score": 80, "lastAttemptDate": "2024-03-05T10:00:00Z"},
					map[string]any{"quizId": "q2", "completed": true, "score": 40, "lastAttemptDate": "2024-03-05T10:00:00Z"},
				},
			}},
		}},
	}))

	full, err := call[mapping.Empty, mapping.MigrationResponse](t, env, MigrationServiceRunFullProcedure, "u1", &mapping.Empty{})
	require.NoError(t, err)
	assert.True(t, full.Created)
	assert.Equal(t, 1, full.BackfilledQuizzes)

	ensured, err := call[mapping.Empty, mapping.EnsureFieldsResponse](t, env, MigrationServiceEnsureFieldsProcedure, "u1", &mapping.Empty{})
	require.NoError(t, err)
	assert.False(t, ensured.Created)
	assert.Empty(t, ensured.AddedFields)

	backfilled, err := call[mapping.Empty, mapping.BackfillResponse](t, env, MigrationServiceBackfillProcedure, "u1", &mapping.Empty{})
	require.NoError(t, err)
	assert.Equal(t, 1, backfilled.TotalQuizzes)

	diag, err = call[mapping.Empty, mapping.Diagnosis](t, env, MigrationServiceDiagnoseProcedure, "u1", &mapping.Empty{})
	require.NoError(t, err)
	assert.True(t, diag.ProfileExists)
	assert.True(t, diag.Healthy)
	require.NotNil(t, diag.Profile)
	assert.Equal(t, "u1@example.com", diag.Profile.Email)
}

func TestUnknownProcedure(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Post(env.url+"/quizstats.v1.StatsService/Nope", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallerTarget(t *testing.T) {
	ctx := entity.ContextWithIdentity(context.Background(), entity.Identity{UserID: "u1"})
	got, err := callerTarget(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "u1", got)
	got, err = callerTarget(ctx, " u1 ")
	require.NoError(t, err)
	assert.Equal(t, "u1", got)
	_, err = callerTarget(ctx, "u2")
	assert.True(t, errors.Is(err, entity.ErrPermissionDenied))
	_, err = callerTarget(context.Background(), "u1")
	assert.True(t, errors.Is(err, entity.ErrNotAuthenticated))
}

func TestLatestKeepsNewest(t *testing.T) {
	l := newLatest[int]()
	l.put(1)
	l.put(2)
	l.put(3)
	assert.Equal(t, 3, <-l.ch)
	select {
	case v := <-l.ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}
