package dataapi

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/rafaeljc/recommender/internal/config"
)

// NewServer builds a grpc.Server tuned by cfg and registers api on it.
// RequestLoggerInterceptor logs and records metrics for every call;
// TimeoutInterceptor applies the default deadline. Reflection only lists the
// service: the messages are well-known types and there is no .proto
// descriptor to describe.
func NewServer(cfg *config.DataPlaneConfig, api *API, log *slog.Logger) *grpc.Server {
	if cfg == nil {
		panic("dataapi: config cannot be nil")
	}
	if api == nil {
		panic("dataapi: api cannot be nil")
	}

	s := grpc.NewServer(
		grpc.MaxConcurrentStreams(cfg.MaxConcurrentStreams),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:             cfg.KeepaliveTime,
			Timeout:          cfg.KeepaliveTimeout,
			MaxConnectionAge: cfg.MaxConnectionAge,
		}),
		grpc.ChainUnaryInterceptor(
			RequestLoggerInterceptor(log),
			TimeoutInterceptor(cfg.RequestTimeout),
		),
	)
	api.Register(s)
	reflection.Register(s)
	return s
}
