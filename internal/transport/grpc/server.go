package grpcx

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cwrk-planet/coderjam/pkg/errs"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName is the health-checked service; "" reports the same status.
const ServiceName = "coderjam"

// Pinger is the pad store's liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the admin gRPC endpoint: standard health checking tied to the
// pad store, plus reflection.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	store  Pinger

	mu      sync.Mutex
	known   bool
	serving bool
}

func NewServer(store Pinger) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(StreamServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	s := &Server{srv: srv, health: hs, store: store}
	s.setServing(false)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// WatchStore probes the store now and then every interval until ctx is
// done, flipping the health status on each transition.
func (s *Server) WatchStore(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Second
	}
	s.probe(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *Server) probe(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := s.store.Ping(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("store ping failed", "err", err)
	}
	s.setServing(err == nil)
}

func (s *Server) setServing(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.known && ok == s.serving {
		return
	}
	s.known, s.serving = true, ok

	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Shutdown reports NOT_SERVING to watchers and drains in-flight calls.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

// toStatus maps service errors to gRPC status codes; errors that already
// carry a status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	msg := errs.ClientMessage(err)
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, msg)
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, errs.ErrNotAMember):
		return status.Error(codes.FailedPrecondition, msg)
	case errors.Is(err, errs.ErrUnavailable), errors.Is(err, errs.ErrPersistence):
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
