package dispatch

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// Future is the handle returned by SendAsync.
type Future struct {
	done   chan struct{}
	result notification.Result
	err    error
}

// Done is closed once the send has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the send finishes or ctx is done. Giving up on Wait
// does not stop the send.
func (f *Future) Wait(ctx context.Context) (notification.Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return notification.Result{}, ctx.Err()
	}
}

// SendAsync runs Send on its own goroutine. The send is detached from ctx
// cancellation but keeps its values.
func (s *Service) SendAsync(ctx context.Context, n notification.Notification) *Future {
	f := &Future{done: make(chan struct{})}
	detached := context.WithoutCancel(ctx)

	go func() {
		defer close(f.done)
		f.result, f.err = s.Send(detached, n)
	}()
	return f
}

// Outcome pairs a batch entry with its Send return values.
type Outcome struct {
	Notification notification.Notification
	Result       notification.Result
	Err          error
}

// SendBatch sends every notification concurrently and returns outcomes in input order.
// Per-notification errors are reported in the outcome, never as a batch failure.
func (s *Service) SendBatch(ctx context.Context, ns []notification.Notification) []Outcome {
	outcomes := make([]Outcome, len(ns))

	var g errgroup.Group
	for i, n := range ns {
		g.Go(func() error {
			res, err := s.Send(ctx, n)
			outcomes[i] = Outcome{Notification: n, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
