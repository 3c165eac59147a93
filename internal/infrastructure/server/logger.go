package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/quizstats/internal/infrastructure/config"
)

type loggingInterceptor struct {
	logger logrus.FieldLogger
}

// NewLoggingInterceptor logs one line per completed unary call or server stream.
func NewLoggingInterceptor(logger logrus.FieldLogger) connect.Interceptor {
	return &loggingInterceptor{logger: logger.WithField("component", "rpc")}
}

func (i *loggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		start := time.Now()
		resp, err := next(ctx, req)

		code := connect.CodeOf(err)
		fields := requestFields(req.Spec(), req.Peer(), req.Header(), req.HTTPMethod(), err, time.Since(start))
		if resp != nil {
			addResponseFields(fields, resp.Header(), resp.Trailer())
		}
		i.log(fields, code, err, "request completed")
		return resp, err
	}
}

func (i *loggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *loggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		err := next(ctx, conn)

		code := connect.CodeOf(err)
		fields := requestFields(conn.Spec(), conn.Peer(), conn.RequestHeader(), "", err, time.Since(start))
		i.log(fields, code, err, "stream closed")
		return err
	}
}

func (i *loggingInterceptor) log(fields logrus.Fields, code connect.Code, err error, msg string) {
	entry := i.logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	switch determineLogLevel(code, err) {
	case logrus.WarnLevel:
		entry.Warn(msg)
	case logrus.ErrorLevel:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
}

func determineLogLevel(code connect.Code, err error) logrus.Level {
	if err == nil {
		return logrus.InfoLevel
	}
	switch code {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeNotFound,
		connect.CodeAlreadyExists, connect.CodePermissionDenied, connect.CodeUnauthenticated,
		connect.CodeCanceled, connect.CodeAborted:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

func requestFields(spec connect.Spec, peer connect.Peer, header http.Header, method string, err error, duration time.Duration) logrus.Fields {
	status := "ok"
	if err != nil {
		status = connect.CodeOf(err).String()
	}
	fields := logrus.Fields{
		"procedure": spec.Procedure,
		"status":    status,
		"duration":  duration.String(),
		"stream":    spec.StreamType.String(),
	}

	setString(fields, "http_method", method)
	setString(fields, "peer_addr", peer.Addr)
	setString(fields, "protocol", peer.Protocol)
	setString(fields, "user_agent", header.Get("User-Agent"))
	setString(fields, "request_id", header.Get("X-Request-Id"))
	setString(fields, "client_ip", firstForwardedFor(header))
	setString(fields, "content_type", header.Get("Content-Type"))

	if cl := contentLength(header); cl >= 0 {
		fields["request_bytes"] = cl
	}
	return fields
}

func addResponseFields(fields logrus.Fields, header, trailer http.Header) {
	if cl := contentLength(header); cl >= 0 {
		fields["response_bytes"] = cl
	}
	if len(trailer) > 0 {
		fields["response_trailer_count"] = headerCount(trailer)
	}
}

func setString(fields logrus.Fields, key, value string) {
	if value == "" {
		return
	}
	fields[key] = value
}

func firstForwardedFor(header http.Header) string {
	forwarded := header.Get("X-Forwarded-For")
	if forwarded == "" {
		return ""
	}
	for _, part := range strings.Split(forwarded, ",") {
		if candidate := strings.TrimSpace(part); candidate != "" {
			return candidate
		}
	}
	return ""
}

func headerCount(header http.Header) int {
	count := 0
	for key := range header {
		count += len(header[key])
	}
	return count
}

func contentLength(header http.Header) int {
	if header == nil {
		return -1
	}
	if cl := header.Get("Content-Length"); cl != "" {
		if parsed, err := strconv.Atoi(cl); err == nil {
			return parsed
		}
	}
	return -1
}

// NewLogger builds a configured logrus logger from application config.
func NewLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}
