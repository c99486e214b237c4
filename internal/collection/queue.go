package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds each persistence command.
const DefaultTimeout = 5 * time.Second

var (
	// ErrClosed is returned when submitting to a closed queue.
	ErrClosed = errors.New("collection: queue closed")
	// ErrDiscarded is passed to OnFailure for commands that were computed
	// from a state an earlier failure rolled back.
	ErrDiscarded = errors.New("collection: command discarded after an earlier failure")
)

// Command is one unit of queued persistence work. When Ctx is set, a
// command whose Ctx is done before it starts fails without running, and a
// running Persist is cancelled along with Ctx.
type Command struct {
	Ctx       context.Context
	Persist   func(ctx context.Context) error
	Stale     func() bool
	OnSuccess func()
	OnFailure func(error)
}

// Queue runs commands one at a time, in submission order, on a single
// worker goroutine. Each Persist call gets its own timeout.
type Queue struct {
	timeout time.Duration

	mu      sync.Mutex
	pending []Command
	closed  bool

	wake chan struct{}
	done chan struct{}
}

// NewQueue starts a queue worker. A non-positive timeout uses DefaultTimeout.
func NewQueue(timeout time.Duration) *Queue {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	q := &Queue{
		timeout: timeout,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Submit enqueues c behind every previously submitted command.
func (q *Queue) Submit(c Command) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.pending = append(q.pending, c)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Wait blocks until every command submitted before the call has finished.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	if err := q.Submit(Command{OnSuccess: func() { close(done) }}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of commands not yet started.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting commands, drains the pending ones and waits for the
// worker to exit.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		c := q.pending[0]
		q.pending[0] = Command{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.exec(c)
	}
}

func (q *Queue) exec(c Command) {
	fail := func(err error) {
		if c.OnFailure != nil {
			guard("on failure", func() { c.OnFailure(err) })
		}
	}
	if c.Stale != nil && c.Stale() {
		fail(ErrDiscarded)
		return
	}
	if c.Ctx != nil && c.Ctx.Err() != nil {
		fail(fmt.Errorf("collection: persist: %w", c.Ctx.Err()))
		return
	}

	var err error
	if c.Persist != nil {
		err = q.persist(c.Ctx, c.Persist)
	}
	if err != nil {
		fail(err)
		return
	}
	if c.OnSuccess != nil {
		if err := guard("on success", c.OnSuccess); err != nil {
			fail(err)
		}
	}
}

// guard runs fn, turning a panic into an error so one bad callback cannot
// take down the worker.
func guard(what string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collection: %s panicked: %v", what, r)
		}
	}()
	fn()
	return nil
}

func (q *Queue) persist(parent context.Context, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if parent != nil {
		stop := context.AfterFunc(parent, cancel)
		defer stop()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collection: persist panicked: %v", r)
		}
	}()

	err = fn(ctx)
	if err == nil && ctx.Err() != nil {
		// A write that outlived its deadline counts as failed.
		err = fmt.Errorf("collection: persist: %w", ctx.Err())
	}
	return err
}
