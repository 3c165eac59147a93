package connectrpc

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/eslsoft/quizstats/internal/adapter/mapping"
	"github.com/eslsoft/quizstats/internal/entity"
	"github.com/eslsoft/quizstats/internal/usecase"
)

const (
	SyncServiceName = "quizstats.v1.SyncService"

	SyncServiceSyncXPProcedure        = "/quizstats.v1.SyncService/SyncXP"
	SyncServiceSyncHeartsProcedure    = "/quizstats.v1.SyncService/SyncHearts"
	SyncServiceForceSyncAllProcedure  = "/quizstats.v1.SyncService/ForceSyncAll"
	SyncServiceWatchProgressProcedure = "/quizstats.v1.SyncService/WatchProgress"
	SyncServiceWatchProfileProcedure  = "/quizstats.v1.SyncService/WatchProfile"
)

var errSubscriptionReplaced = errors.New("subscription replaced by a newer watch")

type SyncServiceServer struct {
	sync usecase.SyncUsecase
}

func NewSyncServiceServer(sync usecase.SyncUsecase) *SyncServiceServer {
	return &SyncServiceServer{sync: sync}
}

func (s *SyncServiceServer) SyncXP(ctx context.Context, req *connect.Request[mapping.SyncValueRequest]) (*connect.Response[mapping.SyncOutcomeResponse], error) {
	return s.syncValue(ctx, req.Msg, s.sync.SyncXPToUserCollection)
}

func (s *SyncServiceServer) SyncHearts(ctx context.Context, req *connect.Request[mapping.SyncValueRequest]) (*connect.Response[mapping.SyncOutcomeResponse], error) {
	return s.syncValue(ctx, req.Msg, s.sync.SyncHeartsToUserCollection)
}

func (s *SyncServiceServer) syncValue(
	ctx context.Context,
	msg *mapping.SyncValueRequest,
	apply func(context.Context, string, int64) usecase.SyncOutcome,
) (*connect.Response[mapping.SyncOutcomeResponse], error) {
	if err := validateMsg(msg); err != nil {
		return nil, err
	}
	userID, err := callerTarget(ctx, msg.UserID)
	if err != nil {
		return nil, mapping.ToConnectError(err)
	}
	outcome := apply(ctx, userID, *msg.Value)
	return connect.NewResponse(&mapping.SyncOutcomeResponse{UserID: userID, Outcome: string(outcome)}), nil
}

func (s *SyncServiceServer) ForceSyncAll(ctx context.Context, req *connect.Request[mapping.UserRequest]) (*connect.Response[mapping.SyncReport], error) {
	userID, err := callerTarget(ctx, req.Msg.UserID)
	if err != nil {
		return nil, mapping.ToConnectError(err)
	}
	report := mapping.ToSyncReport(s.sync.ForceSyncAll(ctx, userID))
	return connect.NewResponse(&report), nil
}

func (s *SyncServiceServer) WatchProgress(ctx context.Context, req *connect.Request[mapping.UserRequest], stream *connect.ServerStream[mapping.ProgressUpdate]) error {
	userID, err := callerTarget(ctx, req.Msg.UserID)
	if err != nil {
		return mapping.ToConnectError(err)
	}
	updates := newLatest[*entity.ProgressDocument]()
	sub, err := s.sync.StartUserProgressSync(ctx, userID, updates.put)
	if err != nil {
		return mapping.ToConnectError(err)
	}
	defer sub.Stop()

	return pump(ctx, sub, updates, func(doc *entity.ProgressDocument) error {
		completed := usecase.ScanProgress(doc, nil).CompletedQuizzes
		return stream.Send(mapping.ToProgressUpdate(doc, completed))
	})
}

func (s *SyncServiceServer) WatchProfile(ctx context.Context, req *connect.Request[mapping.UserRequest], stream *connect.ServerStream[mapping.Profile]) error {
	userID, err := callerTarget(ctx, req.Msg.UserID)
	if err != nil {
		return mapping.ToConnectError(err)
	}
	updates := newLatest[*entity.ProfileDocument]()
	sub, err := s.sync.StartUserDataSync(ctx, userID, updates.put)
	if err != nil {
		return mapping.ToConnectError(err)
	}
	defer sub.Stop()

	return pump(ctx, sub, updates, func(doc *entity.ProfileDocument) error {
		return stream.Send(mapping.ToProfile(doc))
	})
}

// pump forwards snapshots until the client leaves or the subscription ends.
func pump[T any](ctx context.Context, sub *usecase.Subscription, updates *latest[T], send func(T) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sub.Done():
			if ctx.Err() != nil {
				return nil
			}
			return connect.NewError(connect.CodeAborted, errSubscriptionReplaced)
		case v := <-updates.ch:
			if err := send(v); err != nil {
				return err
			}
		}
	}
}

// latest is a one-slot mailbox that keeps only the newest snapshot, so a slow
// stream never blocks the watch callback.
type latest[T any] struct {
	ch chan T
}

func newLatest[T any]() *latest[T] {
	return &latest[T]{ch: make(chan T, 1)}
}

func (l *latest[T]) put(v T) {
	for {
		select {
		case l.ch <- v:
			return
		default:
		}
		select {
		case <-l.ch:
		default:
		}
	}
}

// NewSyncServiceHandler returns the path prefix and handler serving SyncService.
func NewSyncServiceHandler(svc *SyncServiceServer, opts ...connect.HandlerOption) (string, http.Handler) {
	return serviceHandler(SyncServiceName, map[string]http.Handler{
		SyncServiceSyncXPProcedure:        connect.NewUnaryHandler(SyncServiceSyncXPProcedure, svc.SyncXP, opts...),
		SyncServiceSyncHeartsProcedure:    connect.NewUnaryHandler(SyncServiceSyncHeartsProcedure, svc.SyncHearts, opts...),
		SyncServiceForceSyncAllProcedure:  connect.NewUnaryHandler(SyncServiceForceSyncAllProcedure, svc.ForceSyncAll, opts...),
		SyncServiceWatchProgressProcedure: connect.NewServerStreamHandler(SyncServiceWatchProgressProcedure, svc.WatchProgress, opts...),
		SyncServiceWatchProfileProcedure:  connect.NewServerStreamHandler(SyncServiceWatchProfileProcedure, svc.WatchProfile, opts...),
	})
}
