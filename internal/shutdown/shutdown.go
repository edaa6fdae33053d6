package shutdown

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Sequence runs the same five-step graceful shutdown used by every
// long-running component in this repository: stop accepting new work,
// signal background goroutines to stop, wait for them to drain, flush
// producers, then close connections. Each hook is optional; a nil hook is
// skipped.
type Sequence struct {
	Logger *zap.Logger
	Timeout time.Duration

	// StopAccepting stops new inbound work (e.g. srv.Shutdown).
	StopAccepting func(ctx context.Context) error
	// CancelWork signals background goroutines via context cancellation.
	CancelWork func()
	// Drain blocks until in-flight work finishes (e.g. sync.WaitGroup.Wait).
	Drain func()
	// FlushProducers closes bus producers after all in-flight work is done.
	FlushProducers func() error
	// Close releases remaining connections (db pool, cache client, bus readers).
	Close func()
}

// WaitForSignal blocks until SIGINT or SIGTERM is received.
func WaitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

// Run executes the five steps in order, logging each one. ctx is the
// process's root context, used only to derive the step-1 timeout.
func (s *Sequence) Run(ctx context.Context) {
	s.Logger.Info("shutdown signal received")

	if s.StopAccepting != nil {
		stepCtx, cancel := context.WithTimeout(ctx, s.Timeout)
		if err := s.StopAccepting(stepCtx); err != nil {
			s.Logger.Error("stop accepting failed", zap.Error(err))
		}
		cancel()
	}

	if s.CancelWork != nil {
		s.CancelWork()
	}

	if s.Drain != nil {
		s.Drain()
	}

	if s.FlushProducers != nil {
		if err := s.FlushProducers(); err != nil {
			s.Logger.Error("flush producers failed", zap.Error(err))
		}
	}

	if s.Close != nil {
		s.Close()
	}

	s.Logger.Info("shutdown complete")
}
