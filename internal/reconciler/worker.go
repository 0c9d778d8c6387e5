package reconciler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"statement-reconciler/pkg/errors"
)

// ProgressUpdate is one status message of a run. Percent is -1 when the
// message does not move the bar.
type ProgressUpdate struct {
	Message string `json:"message"`
	Percent int    `json:"percent"`
}

// Run is a reconciliation executing on a background goroutine
type Run struct {
	updates chan ProgressUpdate
	done    chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int

	result *Result
	err    error
}

// Start launches req on a background goroutine. Updates are delivered on a
// bounded channel that never blocks the run: when it is full the oldest
// queued update is discarded.
func (s *Service) Start(ctx context.Context, req *Request) *Run {
	run := &Run{
		updates: make(chan ProgressUpdate, s.config.ProgressBuffer),
		done:    make(chan struct{}),
	}

	go func() {
		defer close(run.done)
		defer run.close()
		defer func() {
			if r := recover(); r != nil {
				err := errors.InternalError(errors.CodeWorkerPanic, "reconcile",
					fmt.Errorf("panic: %v", r)).
					WithContext("stack", string(debug.Stack()))
				s.logger.WithError(err).Error("Reconciliation worker panicked")
				run.publish(fmt.Sprintf("Error during reconciliation: %v", err), PercentDone)
				run.result, run.err = nil, err
			}
		}()

		run.result, run.err = s.Run(ctx, req, run.publish)
	}()

	return run
}

// Updates returns the progress channel. It is closed when the run ends.
func (r *Run) Updates() <-chan ProgressUpdate {
	return r.updates
}

// Wait blocks until the run ends and returns its outcome
func (r *Run) Wait() (*Result, error) {
	<-r.done
	return r.result, r.err
}

// Done is closed when the run ends
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Dropped returns how many updates were discarded because nobody read them
func (r *Run) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// publish queues an update without blocking. Senders are serialized so the
// drop-then-send pair cannot interleave.
func (r *Run) publish(message string, percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	update := ProgressUpdate{Message: message, Percent: percent}
	for {
		select {
		case r.updates <- update:
			return
		default:
		}
		select {
		case <-r.updates:
			r.dropped++
		default:
		}
	}
}

func (r *Run) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.updates)
	}
}
