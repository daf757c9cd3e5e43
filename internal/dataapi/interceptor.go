package dataapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/rafaeljc/recommender/internal/logger"
	"github.com/rafaeljc/recommender/internal/observability"
)

// RequestIDKey is the metadata key carrying the caller's request id.
const RequestIDKey = "x-request-id"

// RequestLoggerInterceptor returns a UnaryServerInterceptor that handles
// structured logging and request metrics:
// 1. Traceability: extracts or generates a request id.
// 2. Context injection: the handler reads its logger with logger.FromContext.
// 3. Telemetry: logs and records the duration and status of the call.
func RequestLoggerInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		// 1. Resolve request id; metadata keys are lowercase
		reqID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(RequestIDKey); len(ids) > 0 {
				reqID = ids[0]
			}
		}
		if reqID == "" {
			reqID = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, reqID))

		// 2. Contextual logger
		rpcLogger := base.With(
			slog.String("request_id", reqID),
			slog.String("rpc_method", info.FullMethod),
		)
		newCtx := logger.WithContext(ctx, rpcLogger)

		// 3. Handle
		resp, err := handler(newCtx, req)

		// 4. Outcome
		duration := time.Since(start)
		code := status.Code(err)

		observability.DataPlaneGrpcDuration.WithLabelValues(info.FullMethod, code.String()).Observe(duration.Seconds())
		observability.DataPlaneGrpcTotal.WithLabelValues(info.FullMethod, code.String()).Inc()

		// OK/NotFound/InvalidArgument are expected; server faults are errors.
		level := slog.LevelInfo
		switch code {
		case codes.Internal, codes.Unavailable, codes.DataLoss, codes.Unknown:
			level = slog.LevelError
		case codes.DeadlineExceeded, codes.Unimplemented:
			level = slog.LevelWarn
		}

		rpcLogger.Log(newCtx, level, "grpc request completed",
			slog.String("code", code.String()),
			slog.Duration("duration", duration),
			slog.String("peer_addr", getPeerAddr(ctx)),
		)

		return resp, err
	}
}

// TimeoutInterceptor applies d to calls that arrive without a deadline.
func TimeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok || d <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}

// getPeerAddr is a helper to extract the client address safely.
func getPeerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok {
		return p.Addr.String()
	}
	return "unknown"
}
