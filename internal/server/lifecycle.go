// Package server runs the arena's long-lived components under one lifecycle with
// signal-driven graceful shutdown.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks until the service stops or fails.
type Service interface {
	Start() error
	Stop()
}

type entry struct {
	name string
	svc  Service
}

// Lifecycle starts services in registration order and stops them in reverse,
// so later services may depend on earlier ones.
type Lifecycle struct {
	logger *zap.Logger

	mu      sync.Mutex
	entries []entry
}

// NewLifecycle returns an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers svc under name.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
	l.mu.Unlock()
}

// Run starts every service and blocks until SIGINT, SIGTERM, ctx cancellation
// or the first service failure, then stops everything.
//
// Postcondition: every service has been stopped. The result is the first
// service failure, or nil when shutdown was requested.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()
	l.mu.Lock()
	entries := slices.Clone(l.entries)
	l.mu.Unlock()

	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	failed := make(chan error, len(entries))
	for _, e := range entries {
		go l.start(e, failed)
	}
	l.logger.Info("services started", zap.Int("count", len(entries)))

	var err error
	select {
	case err = <-failed:
		l.logger.Error("shutting down after service failure", zap.Error(err))
	case <-ctx.Done():
		l.logger.Info("shutdown requested", zap.NamedError("cause", context.Cause(ctx)))
	}

	for _, e := range slices.Backward(entries) {
		t := time.Now()
		e.svc.Stop()
		l.logger.Info("service stopped", zap.String("service", e.name), zap.Duration("elapsed", time.Since(t)))
	}
	l.logger.Info("lifecycle finished", zap.Duration("uptime", time.Since(began)))
	return err
}

func (l *Lifecycle) start(e entry, failed chan<- error) {
	t := time.Now()
	l.logger.Debug("starting service", zap.String("service", e.name))
	if err := e.svc.Start(); err != nil {
		l.logger.Error("service failed",
			zap.String("service", e.name),
			zap.Duration("uptime", time.Since(t)),
			zap.Error(err),
		)
		failed <- fmt.Errorf("service %s: %w", e.name, err)
	}
}
