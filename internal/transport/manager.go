package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Manager starts transports in order and stops them in reverse.
type Manager struct {
	transports []Transport
	started    []Transport
	logger     *logrus.Logger
}

func NewManager(logger *logrus.Logger, transports ...Transport) *Manager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Manager{transports: transports, logger: logger}
}

// StartAll starts every transport. If one fails, the ones already running are
// stopped and the error is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	if len(m.transports) == 0 {
		m.logger.Warn("no transports enabled")
		return nil
	}
	for _, t := range m.transports {
		if err := t.Start(ctx); err != nil {
			startErr := fmt.Errorf("start %s transport on %s: %w", t.Kind(), t.Addr(), err)
			if stopErr := m.StopAll(ctx); stopErr != nil {
				return errors.Join(startErr, stopErr)
			}
			return startErr
		}
		m.started = append(m.started, t)
	}
	m.logger.Infof("started %d transport(s)", len(m.started))
	return nil
}

// StopAll stops every started transport, continuing past failures.
func (m *Manager) StopAll(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		t := m.started[i]
		if err := t.Stop(ctx); err != nil {
			m.logger.WithError(err).WithField("transport", t.Kind()).Error("stop transport failed")
			errs = append(errs, fmt.Errorf("stop %s transport: %w", t.Kind(), err))
		}
	}
	m.started = nil
	return errors.Join(errs...)
}

// Started returns the running transports.
func (m *Manager) Started() []Transport {
	out := make([]Transport, len(m.started))
	copy(out, m.started)
	return out
}
