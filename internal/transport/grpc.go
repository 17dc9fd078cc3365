package transport

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPC serves the standard health service, plus reflection for grpcurl.
type GRPC struct {
	addr    string
	service string
	server  *grpc.Server
	health  *health.Server
	ln      net.Listener
	logger  *logrus.Logger
}

func NewGRPC(addr, service string, logger *logrus.Logger) *GRPC {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return &GRPC{addr: addr, service: service, server: srv, health: hs, logger: logger}
}

func (t *GRPC) Kind() Kind { return KindGRPC }

func (t *GRPC) Addr() string {
	if t.ln != nil {
		return t.ln.Addr().String()
	}
	return t.addr
}

func (t *GRPC) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", t.addr)
	if err != nil {
		return err
	}
	t.ln = ln
	t.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if t.service != "" {
		t.health.SetServingStatus(t.service, healthpb.HealthCheckResponse_SERVING)
	}
	go func() {
		t.logger.Infof("grpc server listening on %s", ln.Addr())
		if err := t.server.Serve(ln); err != nil {
			t.logger.WithError(err).Error("grpc server stopped")
		}
	}()
	return nil
}

// Stop drains in-flight RPCs and falls back to a hard stop when ctx expires.
func (t *GRPC) Stop(ctx context.Context) error {
	t.health.Shutdown()
	done := make(chan struct{})
	go func() {
		t.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.server.Stop()
		<-done
		return ctx.Err()
	}
}
