package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type HTTP struct {
	addr   string
	server *http.Server
	ln     net.Listener
	logger *logrus.Logger
}

func NewHTTP(addr string, h http.Handler, logger *logrus.Logger) *HTTP {
	return &HTTP{
		addr: addr,
		server: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

func (t *HTTP) Kind() Kind { return KindHTTP }

// Addr is the bound address once started, the configured one before.
func (t *HTTP) Addr() string {
	if t.ln != nil {
		return t.ln.Addr().String()
	}
	return t.addr
}

func (t *HTTP) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", t.addr)
	if err != nil {
		return err
	}
	t.ln = ln
	go func() {
		t.logger.Infof("http server listening on %s", ln.Addr())
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.WithError(err).Error("http server stopped")
		}
	}()
	return nil
}

func (t *HTTP) Stop(ctx context.Context) error {
	return t.server.Shutdown(ctx)
}
