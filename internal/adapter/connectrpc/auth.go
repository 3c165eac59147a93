package connectrpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/eslsoft/quizstats/internal/entity"
)

// AuthHeaders names the headers an authenticating gateway uses to forward the
// caller identity.
type AuthHeaders struct {
	User  string
	Email string
	Name  string
}

func (h AuthHeaders) withDefaults() AuthHeaders {
	if h.User == "" {
		h.User = "X-User-Id"
	}
	if h.Email == "" {
		h.Email = "X-User-Email"
	}
	if h.Name == "" {
		h.Name = "X-User-Name"
	}
	return h
}

// List returns the configured header names, for CORS allow lists.
func (h AuthHeaders) List() []string {
	h = h.withDefaults()
	return []string{h.User, h.Email, h.Name}
}

type identityInterceptor struct {
	headers AuthHeaders
}

// NewIdentityInterceptor attaches the forwarded caller identity to the handler
// context. Requests without a user header stay anonymous.
func NewIdentityInterceptor(headers AuthHeaders) connect.Interceptor {
	return &identityInterceptor{headers: headers.withDefaults()}
}

func (i *identityInterceptor) withIdentity(ctx context.Context, header http.Header) context.Context {
	userID := strings.TrimSpace(header.Get(i.headers.User))
	if userID == "" {
		return ctx
	}
	return entity.ContextWithIdentity(ctx, entity.Identity{
		UserID:      userID,
		Email:       strings.TrimSpace(header.Get(i.headers.Email)),
		DisplayName: strings.TrimSpace(header.Get(i.headers.Name)),
	})
}

func (i *identityInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		return next(i.withIdentity(ctx, req.Header()), req)
	}
}

func (i *identityInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *identityInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		return next(i.withIdentity(ctx, conn.RequestHeader()), conn)
	}
}

// callerTarget resolves the user a sync request acts on. Callers may only act
// on themselves; an empty requested id means the caller.
func callerTarget(ctx context.Context, requested string) (string, error) {
	identity, ok := entity.IdentityFromContext(ctx)
	if !ok {
		return "", entity.ErrNotAuthenticated
	}
	if strings.TrimSpace(requested) == "" {
		return entity.NormalizeUserID(identity.UserID)
	}
	target, err := entity.NormalizeUserID(requested)
	if err != nil {
		return "", err
	}
	if target != identity.UserID {
		return "", entity.ErrPermissionDenied
	}
	return target, nil
}
