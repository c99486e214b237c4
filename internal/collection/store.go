// Package collection keeps an explicitly ordered list of entities in memory,
// applies reorders optimistically and persists them in the background.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zulandar/folio/internal/logging"
	"github.com/zulandar/folio/internal/ordering"
	"go.uber.org/zap"
)

// ErrNotFound is returned for ids that are not in the collection.
var ErrNotFound = errors.New("collection: item not found")

// Item is an ordered entity that can hand out independent copies of itself.
type Item[T any] interface {
	ordering.Entity
	Clone() T
}

// Remote is the persistence boundary of a Store.
type Remote[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T) error
	Update(ctx context.Context, item T) error
	UpdateOrders(ctx context.Context, updates []ordering.Update) error
	Delete(ctx context.Context, id string) error
}

// Options tunes a Store.
type Options struct {
	// Name labels log lines and errors, e.g. "projects".
	Name    string
	Timeout time.Duration
	Logger  *zap.Logger
	// OnError is called after a failed write has been rolled back.
	OnError func(error)
}

// Store is the in-memory, optimistically updated view of one ordered
// collection. Gestures apply synchronously; writes go through a Queue.
type Store[T Item[T]] struct {
	remote Remote[T]
	opts   Options
	log    *zap.Logger
	queue  *Queue

	// op serializes gestures against inserts, removals and loads.
	op sync.Mutex

	mu        sync.Mutex
	items     []T
	confirmed ordering.Snapshot[T]
	gen       uint64
	loaded    bool
}

// New creates a store and starts its persistence worker.
func New[T Item[T]](remote Remote[T], opts Options) *Store[T] {
	if opts.Name == "" {
		opts.Name = "collection"
	}
	log := logging.OrNop(opts.Logger).With(zap.String("collection", opts.Name))
	return &Store[T]{
		remote: remote,
		opts:   opts,
		log:    log,
		queue:  NewQueue(opts.Timeout),
	}
}

// Name returns the collection label.
func (s *Store[T]) Name() string { return s.opts.Name }

// Load waits for queued writes, then replaces the local sequence with the
// remote one. On failure the previous sequence is kept.
func (s *Store[T]) Load(ctx context.Context) ([]T, error) {
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.queue.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: load: %w", s.opts.Name, err)
	}
	items, err := s.remote.List(ctx)
	if err != nil {
		s.log.Warn("load failed, keeping previous state", zap.Error(err))
		return nil, fmt.Errorf("%s: load: %w", s.opts.Name, err)
	}
	ordering.Sort(items)

	s.mu.Lock()
	s.items = items
	s.confirmed = ordering.Take(items)
	s.loaded = true
	out := s.cloneLocked()
	s.mu.Unlock()
	return out, nil
}

// Loaded reports whether a Load has succeeded.
func (s *Store[T]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Items returns copies of the current optimistic sequence.
func (s *Store[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneLocked()
}

// Get returns a copy of the item with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := ordering.IndexOf(s.items, id); i >= 0 {
		return s.items[i].Clone(), true
	}
	var zero T
	return zero, false
}

// Index returns the current position of id, or -1.
func (s *Store[T]) Index(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordering.IndexOf(s.items, id)
}

// Len returns the number of items.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// MoveItem moves the item to position (clamped to the sequence bounds) and
// queues the order changes. Moving an item onto its own position does
// nothing.
func (s *Store[T]) MoveItem(id string, position int) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	from := ordering.IndexOf(s.items, id)
	if from < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%s: move %s: %w", s.opts.Name, id, ErrNotFound)
	}
	to := ordering.Clamp(position, len(s.items))
	if from == to {
		s.mu.Unlock()
		return nil
	}
	lo, hi := min(from, to), max(from, to)
	moved := ordering.Move(s.items, from, to)
	updates := ordering.Reassign(s.items, moved, lo, hi)
	s.items = moved
	after := ordering.Take(moved)
	gen := s.gen
	s.mu.Unlock()

	s.log.Debug("move", zap.String("id", id), zap.Int("from", from), zap.Int("to", to), zap.Int("updates", len(updates)))
	return s.submit(Command{
		Persist: func(ctx context.Context) error {
			return s.remote.UpdateOrders(ctx, updates)
		},
		Stale: func() bool { return s.generation() != gen },
		OnSuccess: func() {
			s.mu.Lock()
			s.confirmed = after
			s.mu.Unlock()
		},
		OnFailure: s.revert,
	})
}

// Insert persists item at the end of the sequence and appends it locally
// once the remote create succeeded.
func (s *Store[T]) Insert(ctx context.Context, item T) (T, error) {
	s.op.Lock()
	defer s.op.Unlock()

	item = item.Clone()

	err := s.await(ctx, func(ctx context.Context) error {
		s.mu.Lock()
		item.SetPosition(ordering.Next(s.items))
		s.mu.Unlock()
		return s.remote.Create(ctx, item)
	}, func() {
		s.items = append(s.items, item)
		s.confirmed = s.confirmed.With(item)
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: insert: %w", s.opts.Name, err)
	}
	return item.Clone(), nil
}

// Update persists field changes of an existing item. Its order value is
// left as the store holds it.
func (s *Store[T]) Update(ctx context.Context, item T) (T, error) {
	s.op.Lock()
	defer s.op.Unlock()

	item = item.Clone()

	s.mu.Lock()
	i := ordering.IndexOf(s.items, item.Key())
	if i >= 0 {
		item.SetPosition(s.items[i].Position())
	}
	s.mu.Unlock()
	if i < 0 {
		var zero T
		return zero, fmt.Errorf("%s: update %s: %w", s.opts.Name, item.Key(), ErrNotFound)
	}

	err := s.await(ctx, func(ctx context.Context) error {
		return s.remote.Update(ctx, item)
	}, func() {
		if j := ordering.IndexOf(s.items, item.Key()); j >= 0 {
			item.SetPosition(s.items[j].Position())
			s.items[j] = item
		}
		s.confirmed = s.confirmed.Replace(item)
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: update: %w", s.opts.Name, err)
	}
	return item.Clone(), nil
}

// Remove deletes the item remotely, then drops it locally. Remaining order
// values are not renumbered.
func (s *Store[T]) Remove(ctx context.Context, id string) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	found := ordering.IndexOf(s.items, id) >= 0
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("%s: remove %s: %w", s.opts.Name, id, ErrNotFound)
	}

	err := s.await(ctx, func(ctx context.Context) error {
		return s.remote.Delete(ctx, id)
	}, func() {
		if i := ordering.IndexOf(s.items, id); i >= 0 {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
		}
		s.confirmed = s.confirmed.Without(id)
	})
	if err != nil {
		return fmt.Errorf("%s: remove: %w", s.opts.Name, err)
	}
	return nil
}

// Wait blocks until all queued writes have finished.
func (s *Store[T]) Wait(ctx context.Context) error {
	return s.queue.Wait(ctx)
}

// Close drains the queue and stops the worker.
func (s *Store[T]) Close() {
	s.queue.Close()
}

// await runs persist on the queue and applies commit under the state lock
// when it succeeds. It returns the persist error.
// await queues a write under ctx and runs commit once it is stored. The
// write shares ctx, so a caller that gives up does not see its item appear
// later.
func (s *Store[T]) await(ctx context.Context, persist func(context.Context) error, commit func()) error {
	result := make(chan error, 1)
	err := s.submit(Command{
		Ctx:     ctx,
		Persist: persist,
		OnSuccess: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			commit()
			result <- nil
		},
		OnFailure: func(err error) { result <- err },
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store[T]) submit(c Command) error {
	if err := s.queue.Submit(c); err != nil {
		return fmt.Errorf("%s: %w", s.opts.Name, err)
	}
	return nil
}

func (s *Store[T]) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// revert restores the last confirmed sequence after a failed write.
// Commands queued behind the failure become stale.
func (s *Store[T]) revert(err error) {
	if errors.Is(err, ErrDiscarded) {
		return
	}
	s.mu.Lock()
	s.items = s.confirmed.Restore()
	s.gen++
	s.mu.Unlock()

	s.log.Error("persist failed, reverted to last saved order", zap.Error(err))
	if s.opts.OnError != nil {
		s.opts.OnError(fmt.Errorf("%s: %w", s.opts.Name, err))
	}
}

func (s *Store[T]) cloneLocked() []T {
	out := make([]T, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}
