// Package grpcserver runs the gRPC side channel: the standard health service,
// driven by a store probe, behind recover and logging interceptors.
package grpcserver

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/reflection"

	"go.uber.org/zap"
)

// Options configures the gRPC server.
type Options struct {
	// TLSCert and TLSKey enable TLS when both are set.
	TLSCert string
	TLSKey  string
	// Reflection registers server reflection (dev only).
	Reflection bool
}

// New builds a gRPC server with interceptors and the health service registered.
func New(h *Health, opts Options, log *zap.Logger) (*grpc.Server, error) {
	so := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
		grpc.ChainStreamInterceptor(
			RecoverStream(log),
			LoggingStream(log),
		),
	}
	if opts.TLSCert != "" && opts.TLSKey != "" {
		creds, err := credentials.NewServerTLSFromFile(opts.TLSCert, opts.TLSKey)
		if err != nil {
			return nil, err
		}
		so = append(so, grpc.Creds(creds))
	}

	s := grpc.NewServer(so...)
	h.Register(s)
	if opts.Reflection {
		reflection.Register(s)
	}
	return s, nil
}
