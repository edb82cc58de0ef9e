package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// HTTPService runs an http.Server as a Service.
type HTTPService struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// NewHTTPService wraps srv. Stop waits up to shutdownTimeout for in-flight requests;
// zero means no deadline.
func NewHTTPService(srv *http.Server, shutdownTimeout time.Duration) *HTTPService {
	return &HTTPService{srv: srv, shutdownTimeout: shutdownTimeout}
}

// Start serves until Stop is called.
func (s *HTTPService) Start() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *HTTPService) Stop() {
	ctx := context.Background()
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		_ = s.srv.Close()
	}
}

// RunService adapts a blocking run function that honours context cancellation.
// Stop cancels the context and waits for run to return.
type RunService struct {
	run     func(ctx context.Context) error
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

// NewRunService wraps run.
func NewRunService(run func(ctx context.Context) error) *RunService {
	return &RunService{run: run}
}

// Start calls run with a cancellable context. Cancellation is a clean stop.
func (s *RunService) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()
	defer close(done)

	if err := s.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Stop cancels the run context and waits for Start to return.
func (s *RunService) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
