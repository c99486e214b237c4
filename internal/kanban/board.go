// Package kanban is the ticket workflow: ordered stages holding ordered
// tickets, with moves inside and across stages applied optimistically.
package kanban

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zulandar/folio/internal/collection"
	"github.com/zulandar/folio/internal/drag"
	"github.com/zulandar/folio/internal/logging"
	"github.com/zulandar/folio/internal/models"
	"github.com/zulandar/folio/internal/ordering"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStageNotFound is returned for stage ids the board does not hold.
	ErrStageNotFound = errors.New("kanban: stage not found")
	// ErrTicketNotFound is returned for ticket ids the board does not hold.
	ErrTicketNotFound = errors.New("kanban: ticket not found")
	// ErrNoStages is returned when a ticket has nowhere to go.
	ErrNoStages = errors.New("kanban: board has no stages")
)

// Placement is the persisted location of one ticket.
type Placement struct {
	ID      string
	StageID string
	Order   int
}

// Remote is the persistence boundary of a Board.
type Remote interface {
	ListStages(ctx context.Context) ([]*models.Stage, error)
	ListTickets(ctx context.Context) ([]*models.Ticket, error)
	SeedStages(ctx context.Context) error
	CreateStage(ctx context.Context, s *models.Stage) error
	CreateTicket(ctx context.Context, t *models.Ticket) error
	UpdateTicket(ctx context.Context, t *models.Ticket) error
	DeleteTicket(ctx context.Context, id string) error
	PlaceTickets(ctx context.Context, placements []Placement) error
}

// Options tunes a Board.
type Options struct {
	Timeout time.Duration
	Logger  *zap.Logger
	OnError func(error)
}

// Column is a stage with its tickets in order.
type Column struct {
	Stage   *models.Stage    `json:"stage"`
	Tickets []*models.Ticket `json:"tickets"`
}

// lanes maps a stage id to its tickets in display order.
type lanes map[string][]*models.Ticket

func (l lanes) clone() lanes {
	out := make(lanes, len(l))
	for id, ts := range l {
		cp := make([]*models.Ticket, len(ts))
		for i, t := range ts {
			cp[i] = t.Clone()
		}
		out[id] = cp
	}
	return out
}

// find returns the stage id and index of a ticket.
func (l lanes) find(ticketID string) (string, int) {
	for stageID, ts := range l {
		if i := ordering.IndexOf(ts, ticketID); i >= 0 {
			return stageID, i
		}
	}
	return "", -1
}

// Board holds the optimistic state of the kanban.
type Board struct {
	remote Remote
	opts   Options
	log    *zap.Logger
	queue  *collection.Queue
	loads  singleflight.Group

	op sync.Mutex

	mu        sync.Mutex
	stages    []*models.Stage
	lanes     lanes
	confirmed lanes
	gen       uint64
}

// NewBoard creates an empty board and starts its persistence worker.
func NewBoard(remote Remote, opts Options) *Board {
	return &Board{
		remote: remote,
		opts:   opts,
		log:    logging.OrNop(opts.Logger).With(zap.String("collection", "kanban")),
		queue:     collection.NewQueue(opts.Timeout),
		lanes:     lanes{},
		confirmed: lanes{},
	}
}

// Load fetches stages and tickets, seeding the default stages first when
// there are none. Concurrent calls share one fetch.
func (b *Board) Load(ctx context.Context) ([]Column, error) {
	_, err, _ := b.loads.Do("load", func() (any, error) {
		return nil, b.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return b.Columns(), nil
}

func (b *Board) load(ctx context.Context) error {
	b.op.Lock()
	defer b.op.Unlock()

	if err := b.queue.Wait(ctx); err != nil {
		return fmt.Errorf("kanban: load: %w", err)
	}
	stages, err := b.remote.ListStages(ctx)
	if err != nil {
		return fmt.Errorf("kanban: load stages: %w", err)
	}
	if len(stages) == 0 {
		if err := b.remote.SeedStages(ctx); err != nil {
			return fmt.Errorf("kanban: seed stages: %w", err)
		}
		if stages, err = b.remote.ListStages(ctx); err != nil {
			return fmt.Errorf("kanban: load stages: %w", err)
		}
	}
	tickets, err := b.remote.ListTickets(ctx)
	if err != nil {
		return fmt.Errorf("kanban: load tickets: %w", err)
	}

	ordering.Sort(stages)
	next := make(lanes, len(stages))
	for _, s := range stages {
		next[s.ID] = nil
	}
	for _, t := range tickets {
		if _, ok := next[t.StageID]; !ok {
			b.log.Warn("ticket references unknown stage", zap.String("ticket", t.ID), zap.String("stage", t.StageID))
			continue
		}
		next[t.StageID] = append(next[t.StageID], t)
	}
	for _, ts := range next {
		ordering.Sort(ts)
	}

	b.mu.Lock()
	b.stages = stages
	b.lanes = next
	b.confirmed = next.clone()
	b.mu.Unlock()
	return nil
}

// Columns returns copies of the stages and their tickets in order.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Column, 0, len(b.stages))
	for _, s := range b.stages {
		ts := b.lanes[s.ID]
		col := Column{Stage: s.Clone(), Tickets: make([]*models.Ticket, len(ts))}
		for i, t := range ts {
			col.Tickets[i] = t.Clone()
		}
		out = append(out, col)
	}
	return out
}

// Ticket returns a copy of a ticket.
func (b *Board) Ticket(id string) (*models.Ticket, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	stageID, i := b.lanes.find(id)
	if i < 0 {
		return nil, false
	}
	return b.lanes[stageID][i].Clone(), true
}

// FirstStage returns the stage with the lowest order.
func (b *Board) FirstStage() (*models.Stage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.stages) == 0 {
		return nil, false
	}
	return b.stages[0].Clone(), true
}

func (b *Board) hasStage(id string) bool {
	return ordering.IndexOf(b.stages, id) >= 0
}

// MoveTicket puts a ticket at position within the target stage. Within one
// stage only the affected range gets new order values. Across stages the
// destination is renumbered densely and the source keeps its values.
func (b *Board) MoveTicket(ticketID, targetStageID string, position int) error {
	b.op.Lock()
	defer b.op.Unlock()

	b.mu.Lock()
	if !b.hasStage(targetStageID) {
		b.mu.Unlock()
		return fmt.Errorf("kanban: move %s: %w", ticketID, ErrStageNotFound)
	}
	fromStage, from := b.lanes.find(ticketID)
	if from < 0 {
		b.mu.Unlock()
		return fmt.Errorf("kanban: move %s: %w", ticketID, ErrTicketNotFound)
	}

	var placements []Placement
	if fromStage == targetStageID {
		lane := b.lanes[fromStage]
		to := ordering.Clamp(position, len(lane))
		if to == from {
			b.mu.Unlock()
			return nil
		}
		moved := ordering.Move(lane, from, to)
		for _, u := range ordering.Reassign(lane, moved, min(from, to), max(from, to)) {
			placements = append(placements, Placement{ID: u.ID, StageID: fromStage, Order: u.Order})
		}
		b.lanes[fromStage] = moved
	} else {
		src := b.lanes[fromStage]
		t := src[from]
		b.lanes[fromStage] = append(src[:from:from], src[from+1:]...)

		dst := b.lanes[targetStageID]
		to := max(0, min(position, len(dst)))
		next := make([]*models.Ticket, 0, len(dst)+1)
		next = append(next, dst[:to]...)
		next = append(next, t)
		next = append(next, dst[to:]...)
		t.StageID = targetStageID

		renumbered := false
		for _, u := range ordering.Renumber(next) {
			placements = append(placements, Placement{ID: u.ID, StageID: targetStageID, Order: u.Order})
			renumbered = renumbered || u.ID == t.ID
		}
		if !renumbered {
			placements = append(placements, Placement{ID: t.ID, StageID: targetStageID, Order: t.OrderIndex})
		}
		b.lanes[targetStageID] = next
	}
	after := b.lanes.clone()
	gen := b.gen
	b.mu.Unlock()

	b.log.Debug("move ticket",
		zap.String("ticket", ticketID),
		zap.String("from_stage", fromStage),
		zap.String("to_stage", targetStageID),
		zap.Int("placements", len(placements)))
	err := b.queue.Submit(collection.Command{
		Persist: func(ctx context.Context) error {
			return b.remote.PlaceTickets(ctx, placements)
		},
		Stale: func() bool {
			b.mu.Lock()
			defer b.mu.Unlock()
			return b.gen != gen
		},
		OnSuccess: func() {
			b.mu.Lock()
			b.confirmed = after
			b.mu.Unlock()
		},
		OnFailure: b.revert,
	})
	if err != nil {
		return fmt.Errorf("kanban: %w", err)
	}
	return nil
}

// DropOnStage appends the ticket to the end of the stage.
func (b *Board) DropOnStage(ticketID, stageID string) error {
	b.mu.Lock()
	n := len(b.lanes[stageID])
	b.mu.Unlock()
	return b.MoveTicket(ticketID, stageID, n)
}

// DropOnTicket moves the ticket next to another one, adopting its stage and
// taking its index.
func (b *Board) DropOnTicket(ticketID, overID string) error {
	b.mu.Lock()
	stageID, i := b.lanes.find(overID)
	b.mu.Unlock()
	if i < 0 {
		return fmt.Errorf("kanban: drop on %s: %w", overID, ErrTicketNotFound)
	}
	return b.MoveTicket(ticketID, stageID, i)
}

// Classify implements drag.Resolver.
func (b *Board) Classify(id string) drag.TargetKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasStage(id) {
		return drag.TargetContainer
	}
	if _, i := b.lanes.find(id); i >= 0 {
		return drag.TargetItem
	}
	return drag.TargetNone
}

// MoveToItem implements drag.Mover.
func (b *Board) MoveToItem(_ context.Context, activeID, overID string) error {
	return b.DropOnTicket(activeID, overID)
}

// MoveToContainer implements drag.Mover.
func (b *Board) MoveToContainer(_ context.Context, activeID, stageID string) error {
	return b.DropOnStage(activeID, stageID)
}

// CreateTicket persists t at the end of its stage, or of the first stage
// when none is set, and adds it to the board once stored.
func (b *Board) CreateTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	b.op.Lock()
	defer b.op.Unlock()

	t = t.Clone()
	b.mu.Lock()
	if t.StageID == "" {
		if len(b.stages) == 0 {
			b.mu.Unlock()
			return nil, ErrNoStages
		}
		t.StageID = b.stages[0].ID
	}
	ok := b.hasStage(t.StageID)
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("kanban: create ticket: %w", ErrStageNotFound)
	}

	err := b.await(ctx, func(ctx context.Context) error {
		b.mu.Lock()
		t.OrderIndex = ordering.Next(b.lanes[t.StageID])
		b.mu.Unlock()
		return b.remote.CreateTicket(ctx, t)
	}, func() {
		b.lanes[t.StageID] = append(b.lanes[t.StageID], t)
		b.confirmed[t.StageID] = append(b.confirmed[t.StageID], t.Clone())
	})
	if err != nil {
		return nil, fmt.Errorf("kanban: create ticket: %w", err)
	}
	return t.Clone(), nil
}

// UpdateTicket persists the editable fields of a ticket. Stage and order
// only change through moves.
func (b *Board) UpdateTicket(ctx context.Context, t *models.Ticket) (*models.Ticket, error) {
	b.op.Lock()
	defer b.op.Unlock()

	t = t.Clone()
	b.mu.Lock()
	stageID, i := b.lanes.find(t.ID)
	if i >= 0 {
		t.StageID = stageID
		t.OrderIndex = b.lanes[stageID][i].OrderIndex
	}
	b.mu.Unlock()
	if i < 0 {
		return nil, fmt.Errorf("kanban: update %s: %w", t.ID, ErrTicketNotFound)
	}

	err := b.await(ctx, func(ctx context.Context) error {
		return b.remote.UpdateTicket(ctx, t)
	}, func() {
		replace := func(l lanes) {
			if s, j := l.find(t.ID); j >= 0 {
				cp := t.Clone()
				cp.StageID, cp.OrderIndex = s, l[s][j].OrderIndex
				l[s][j] = cp
			}
		}
		replace(b.lanes)
		replace(b.confirmed)
	})
	if err != nil {
		return nil, fmt.Errorf("kanban: update: %w", err)
	}
	out, _ := b.Ticket(t.ID)
	return out, nil
}

// DeleteTicket removes a ticket remotely, then from the board.
func (b *Board) DeleteTicket(ctx context.Context, id string) error {
	b.op.Lock()
	defer b.op.Unlock()

	b.mu.Lock()
	_, i := b.lanes.find(id)
	b.mu.Unlock()
	if i < 0 {
		return fmt.Errorf("kanban: delete %s: %w", id, ErrTicketNotFound)
	}

	err := b.await(ctx, func(ctx context.Context) error {
		return b.remote.DeleteTicket(ctx, id)
	}, func() {
		drop := func(l lanes) {
			if s, j := l.find(id); j >= 0 {
				l[s] = append(l[s][:j:j], l[s][j+1:]...)
			}
		}
		drop(b.lanes)
		drop(b.confirmed)
	})
	if err != nil {
		return fmt.Errorf("kanban: delete: %w", err)
	}
	return nil
}

// CreateStage appends a new stage after the existing ones.
func (b *Board) CreateStage(ctx context.Context, title string) (*models.Stage, error) {
	b.op.Lock()
	defer b.op.Unlock()

	s := &models.Stage{Title: title}
	err := b.await(ctx, func(ctx context.Context) error {
		b.mu.Lock()
		s.OrderIndex = ordering.Next(b.stages)
		b.mu.Unlock()
		return b.remote.CreateStage(ctx, s)
	}, func() {
		b.stages = append(b.stages, s)
		b.lanes[s.ID] = nil
		b.confirmed[s.ID] = nil
	})
	if err != nil {
		return nil, fmt.Errorf("kanban: create stage: %w", err)
	}
	return s.Clone(), nil
}

// Wait blocks until queued writes have finished.
func (b *Board) Wait(ctx context.Context) error { return b.queue.Wait(ctx) }

// Close drains the queue and stops the worker.
func (b *Board) Close() { b.queue.Close() }

// await queues a write under ctx and commits it locally once stored. A
// cancelled ctx stops a queued write before it starts and aborts a running
// one, so the board only changes for writes the remote accepted.
func (b *Board) await(ctx context.Context, persist func(context.Context) error, commit func()) error {
	result := make(chan error, 1)
	err := b.queue.Submit(collection.Command{
		Ctx:     ctx,
		Persist: persist,
		OnSuccess: func() {
			b.mu.Lock()
			defer b.mu.Unlock()
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

// revert restores the last confirmed placement of every ticket.
func (b *Board) revert(err error) {
	if errors.Is(err, collection.ErrDiscarded) {
		return
	}
	b.mu.Lock()
	b.lanes = b.confirmed.clone()
	b.gen++
	b.mu.Unlock()

	b.log.Error("persist failed, reverted board", zap.Error(err))
	if b.opts.OnError != nil {
		b.opts.OnError(fmt.Errorf("kanban: %w", err))
	}
}
