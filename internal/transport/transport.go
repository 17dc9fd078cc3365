// Package transport runs the listeners the service is reachable on.
package transport

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Kind names a transport variant.
type Kind string

const (
	KindHTTP      Kind = "http"
	KindWebSocket Kind = "websocket"
	KindGRPC      Kind = "grpc"
)

// Spec is one configured listener.
type Spec struct {
	Kind Kind
	Addr string
}

// Transport is a listener with an explicit lifecycle. Start returns once the
// listener is bound; serving continues in the background until Stop.
type Transport interface {
	Kind() Kind
	Addr() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Options carries what the concrete transports need.
type Options struct {
	Handler http.Handler // served by the HTTP transport
	Logger  *logrus.Logger
	Service string // gRPC health service name
}

// New builds the transport for spec.
func New(spec Spec, opts Options) (Transport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	switch spec.Kind {
	case KindHTTP:
		if opts.Handler == nil {
			return nil, fmt.Errorf("http transport needs a handler")
		}
		return NewHTTP(spec.Addr, opts.Handler, logger), nil
	case KindWebSocket:
		return NewWebSocket(spec.Addr, logger), nil
	case KindGRPC:
		return NewGRPC(spec.Addr, opts.Service, logger), nil
	}
	return nil, fmt.Errorf("unknown transport kind %q", spec.Kind)
}
