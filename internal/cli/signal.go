package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalManager turns the first SIGINT or SIGTERM into a cancelled context,
// which makes the run checkpoint and stop. A second signal exits at once
// with status 1.
type SignalManager struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	exit   func(int)

	sigCh chan os.Signal
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	sigVal os.Signal
}

// NewSignalManager starts listening for signals.
func NewSignalManager(parent context.Context, logger *slog.Logger) *SignalManager {
	sm := newSignalManager(parent, logger, make(chan os.Signal, 2), os.Exit)
	signal.Notify(sm.sigCh, os.Interrupt, syscall.SIGTERM)
	return sm
}

func newSignalManager(parent context.Context, logger *slog.Logger, sigCh chan os.Signal, exit func(int)) *SignalManager {
	ctx, cancel := context.WithCancel(parent)
	sm := &SignalManager{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		exit:   exit,
		sigCh:  sigCh,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go sm.loop()
	return sm
}

func (sm *SignalManager) loop() {
	defer close(sm.done)
	select {
	case sig := <-sm.sigCh:
		sm.mu.Lock()
		sm.sigVal = sig
		sm.mu.Unlock()
		sm.logger.Warn("Interrupt received, checkpointing before exit (interrupt again to exit immediately)", "signal", sig.String())
		sm.cancel()
	case <-sm.stop:
		return
	}

	select {
	case sig := <-sm.sigCh:
		sm.logger.Error("Second interrupt received, exiting without checkpoint", "signal", sig.String())
		sm.exit(1)
	case <-sm.stop:
	}
}

// Context is cancelled by the first signal.
func (sm *SignalManager) Context() context.Context {
	return sm.ctx
}

// Signal returns the signal that cancelled the context, or nil.
func (sm *SignalManager) Signal() os.Signal {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.sigVal
}

// Stop stops listening and releases the context.
func (sm *SignalManager) Stop() {
	sm.once.Do(func() {
		signal.Stop(sm.sigCh)
		close(sm.stop)
		<-sm.done
		sm.cancel()
	})
}
