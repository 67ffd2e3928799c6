package grpcserver

import (
	"context"
	"sync"
	"time"

	"github.com/and161185/chirper/internal/metrics"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health-check service name reported alongside the overall ("") status.
const ServiceName = "chirper.v1.API"

const probeTimeout = 2 * time.Second

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health mirrors store reachability into the gRPC health service.
type Health struct {
	hs       *health.Server
	store    Pinger
	interval time.Duration
	m        *metrics.Metrics
	log      *zap.Logger

	mu   sync.Mutex
	last *bool
}

// NewHealth starts NOT_SERVING until the first probe succeeds.
func NewHealth(store Pinger, interval time.Duration, m *metrics.Metrics, log *zap.Logger) *Health {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	h := &Health{hs: health.NewServer(), store: store, interval: interval, m: m, log: log}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register adds the health service to s.
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.hs)
}

// Probe pings the store once and publishes the result.
func (h *Health) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := h.store.Ping(ctx)
	up := err == nil

	h.mu.Lock()
	changed := h.last == nil || *h.last != up
	h.last = &up
	h.mu.Unlock()

	if changed {
		if up {
			h.log.Info("store reachable")
		} else {
			h.log.Warn("store unreachable", zap.Error(err))
		}
	}

	h.m.SetStoreUp(up)
	if up {
		h.set(healthpb.HealthCheckResponse_SERVING)
	} else {
		h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return up
}

// Run probes immediately and then every interval until ctx is done.
func (h *Health) Run(ctx context.Context) {
	h.Probe(ctx)
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			h.Probe(ctx)
		}
	}
}

// Shutdown reports NOT_SERVING to all watchers and ignores later updates.
func (h *Health) Shutdown() { h.hs.Shutdown() }

func (h *Health) set(st healthpb.HealthCheckResponse_ServingStatus) {
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ServiceName, st)
}
