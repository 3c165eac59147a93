package connectrpc

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/eslsoft/quizstats/internal/adapter/mapping"
	"github.com/eslsoft/quizstats/internal/usecase"
)

const (
	MigrationServiceName = "quizstats.v1.MigrationService"

	MigrationServiceEnsureFieldsProcedure = "/quizstats.v1.MigrationService/EnsureFields"
	MigrationServiceBackfillProcedure     = "/quizstats.v1.MigrationService/Backfill"
	MigrationServiceDiagnoseProcedure     = "/quizstats.v1.MigrationService/Diagnose"
	MigrationServiceRunFullProcedure      = "/quizstats.v1.MigrationService/RunFull"
)

type MigrationServiceServer struct {
	uc usecase.MigrationUsecase
}

func NewMigrationServiceServer(uc usecase.MigrationUsecase) *MigrationServiceServer {
	return &MigrationServiceServer{uc: uc}
}

func (s *MigrationServiceServer) EnsureFields(ctx context.Context, _ *connect.Request[mapping.Empty]) (*connect.Response[mapping.EnsureFieldsResponse], error) {
	res, err := s.uc.EnsureStatsFields(ctx)
	if err != nil {
		return nil, mapping.ToConnectError(err)
	}
	out := mapping.ToEnsureFields(res)
	return connect.NewResponse(&out), nil
}

func (s *MigrationServiceServer) Backfill(ctx context.Context, _ *connect.Request[mapping.Empty]) (*connect.Response[mapping.BackfillResponse], error) {
	total, err := s.uc.BackfillFromProgress(ctx)
	if err != nil {
		return nil, mapping.ToConnectError(err)
	}
	return connect.NewResponse(&mapping.BackfillResponse{TotalQuizzes: total}), nil
}

func (s *MigrationServiceServer) Diagnose(ctx context.Context, _ *connect.Request[mapping.Empty]) (*connect.Response[mapping.Diagnosis], error) {
	diagnosis, err := s.uc.Diagnose(ctx)
	if err != nil {
		return nil, mapping.ToConnectError(err)
	}
	return connect.NewResponse(mapping.ToDiagnosis(diagnosis)), nil
}

func (s *MigrationServiceServer) RunFull(ctx context.Context, _ *connect.Request[mapping.Empty]) (*connect.Response[mapping.MigrationResponse], error) {
	res, err := s.uc.RunFullMigration(ctx)
	if err != nil {
		return nil, mapping.ToConnectError(err)
	}
	return connect.NewResponse(mapping.ToMigration(res)), nil
}

// NewMigrationServiceHandler returns the path prefix and handler serving MigrationService.
func NewMigrationServiceHandler(svc *MigrationServiceServer, opts ...connect.HandlerOption) (string, http.Handler) {
	return serviceHandler(MigrationServiceName, map[string]http.Handler{
		MigrationServiceEnsureFieldsProcedure: connect.NewUnaryHandler(MigrationServiceEnsureFieldsProcedure, svc.EnsureFields, opts...),
		MigrationServiceBackfillProcedure:     connect.NewUnaryHandler(MigrationServiceBackfillProcedure, svc.Backfill, opts...),
		MigrationServiceDiagnoseProcedure:     connect.NewUnaryHandler(MigrationServiceDiagnoseProcedure, svc.Diagnose, opts...),
		MigrationServiceRunFullProcedure:      connect.NewUnaryHandler(MigrationServiceRunFullProcedure, svc.RunFull, opts...),
	})
}
