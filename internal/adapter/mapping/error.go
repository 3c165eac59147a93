package mapping

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/eslsoft/quizstats/internal/entity"
)

// ToConnectError maps domain errors onto connect status codes.
func ToConnectError(err error) error {
	var connectErr *connect.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &connectErr):
		return err
	case errors.Is(err, entity.ErrNotAuthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, entity.ErrPermissionDenied):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, entity.ErrInvalidUserID), errors.Is(err, entity.ErrInvalidBadgeCondition):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, entity.ErrProfileNotFound), errors.Is(err, entity.ErrProgressNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
