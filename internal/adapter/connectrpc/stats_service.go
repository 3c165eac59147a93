package connectrpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/eslsoft/quizstats/internal/adapter/mapping"
	"github.com/eslsoft/quizstats/internal/usecase"
)

const (
	StatsServiceName = "quizstats.v1.StatsService"

	StatsServiceGetRealUserStatsProcedure = "/quizstats.v1.StatsService/GetRealUserStats"
	StatsServiceClearCacheProcedure       = "/quizstats.v1.StatsService/ClearCache"
	StatsServiceListBadgesProcedure       = "/quizstats.v1.StatsService/ListBadges"
)

type StatsServiceServer struct {
	stats  usecase.StatsUsecase
	badges usecase.BadgeUsecase
}

func NewStatsServiceServer(stats usecase.StatsUsecase, badges usecase.BadgeUsecase) *StatsServiceServer {
	return &StatsServiceServer{stats: stats, badges: badges}
}

func (s *StatsServiceServer) GetRealUserStats(ctx context.Context, _ *connect.Request[mapping.Empty]) (*connect.Response[mapping.RealUserStats], error) {
	stats, err := s.stats.GetRealUserStats(ctx)
	if err != nil {
		return nil, mapping.ToConnectError(err)
	}
	return connect.NewResponse(mapping.ToRealUserStats(stats)), nil
}

func (s *StatsServiceServer) ClearCache(_ context.Context, _ *connect.Request[mapping.Empty]) (*connect.Response[mapping.Empty], error) {
	s.stats.ClearCache()
	return connect.NewResponse(&mapping.Empty{}), nil
}

func (s *StatsServiceServer) ListBadges(ctx context.Context, _ *connect.Request[mapping.Empty]) (*connect.Response[mapping.ListBadgesResponse], error) {
	badges, err := s.badges.ListBadges(ctx)
	if err != nil {
		return nil, mapping.ToConnectError(err)
	}
	return connect.NewResponse(&mapping.ListBadgesResponse{Badges: mapping.ToBadges(badges)}), nil
}

// NewStatsServiceHandler returns the path prefix and handler serving StatsService.
func NewStatsServiceHandler(svc *StatsServiceServer, opts ...connect.HandlerOption) (string, http.Handler) {
	return serviceHandler(StatsServiceName, map[string]http.Handler{
		StatsServiceGetRealUserStatsProcedure: connect.NewUnaryHandler(StatsServiceGetRealUserStatsProcedure, svc.GetRealUserStats, opts...),
		StatsServiceClearCacheProcedure:       connect.NewUnaryHandler(StatsServiceClearCacheProcedure, svc.ClearCache, opts...),
		StatsServiceListBadgesProcedure:       connect.NewUnaryHandler(StatsServiceListBadgesProcedure, svc.ListBadges, opts...),
	})
}
