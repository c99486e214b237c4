// Package drag turns pointer gestures into reorder calls: a small state
// machine that activates after the pointer travels far enough, and a pure
// drop step that classifies the target and calls a Mover once.
package drag

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/zulandar/folio/internal/logging"
	"go.uber.org/zap"
)

// DefaultActivationDistance is how far, in pixels, the pointer must travel
// before a press becomes a drag.
const DefaultActivationDistance = 8

// ErrUnknownTarget is returned by movers asked to drop on an id they no
// longer hold.
var ErrUnknownTarget = errors.New("drag: unknown drop target")

// TargetKind classifies what sits under the pointer at drop time.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetItem
	TargetContainer
)

func (k TargetKind) String() string {
	switch k {
	case TargetItem:
		return "item"
	case TargetContainer:
		return "container"
	}
	return "none"
}

// Point is a pointer position.
type Point struct {
	X, Y float64
}

// Resolver classifies drop target ids.
type Resolver interface {
	Classify(id string) TargetKind
}

// Mover applies a resolved drop.
type Mover interface {
	MoveToItem(ctx context.Context, activeID, overID string) error
	MoveToContainer(ctx context.Context, activeID, containerID string) error
}

// Apply resolves a drop of activeID over overID and calls m at most once.
// It reports whether a move was attempted. An empty target, an unknown
// target, or a drop onto itself does nothing.
func Apply(ctx context.Context, r Resolver, m Mover, activeID, overID string) (bool, error) {
	if activeID == "" || overID == "" || activeID == overID {
		return false, nil
	}
	switch r.Classify(overID) {
	case TargetItem:
		return true, m.MoveToItem(ctx, activeID, overID)
	case TargetContainer:
		return true, m.MoveToContainer(ctx, activeID, overID)
	}
	return false, nil
}

// State is the controller's gesture state.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Options tunes a Controller.
type Options struct {
	ActivationDistance float64
	// OnDragStart fires when a press turns into a drag.
	OnDragStart func(activeID string)
	Logger      *zap.Logger
}

// Controller tracks one drag session at a time.
type Controller struct {
	resolver Resolver
	mover    Mover
	opts     Options
	log      *zap.Logger

	mu     sync.Mutex
	state  State
	armed  bool
	active string
	origin Point
}

// NewController returns an idle controller.
func NewController(r Resolver, m Mover, opts Options) *Controller {
	if opts.ActivationDistance <= 0 {
		opts.ActivationDistance = DefaultActivationDistance
	}
	return &Controller{
		resolver: r,
		mover:    m,
		opts:     opts,
		log:      logging.OrNop(opts.Logger),
	}
}

// Start arms a drag of activeID at p. It returns false, and changes
// nothing, while another session is armed or active.
func (c *Controller) Start(activeID string, p Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.armed || c.state == Dragging || activeID == "" {
		return false
	}
	c.armed = true
	c.active = activeID
	c.origin = p
	return true
}

// Move updates the pointer position and reports whether the drag is active.
func (c *Controller) Move(p Point) bool {
	c.mu.Lock()
	if c.state == Dragging {
		c.mu.Unlock()
		return true
	}
	if !c.armed || math.Hypot(p.X-c.origin.X, p.Y-c.origin.Y) < c.opts.ActivationDistance {
		c.mu.Unlock()
		return false
	}
	c.armed = false
	c.state = Dragging
	id := c.active
	c.mu.Unlock()

	c.log.Debug("drag start", zap.String("active", id))
	if c.opts.OnDragStart != nil {
		c.opts.OnDragStart(id)
	}
	return true
}

// Drop ends the session over overID. A press released before activation is
// a click and moves nothing. It reports whether a move was attempted.
func (c *Controller) Drop(ctx context.Context, overID string) (bool, error) {
	c.mu.Lock()
	dragging := c.state == Dragging
	id := c.active
	c.reset()
	c.mu.Unlock()

	if !dragging {
		return false, nil
	}
	applied, err := Apply(ctx, c.resolver, c.mover, id, overID)
	c.log.Debug("drag end",
		zap.String("active", id),
		zap.String("over", overID),
		zap.Bool("applied", applied),
		zap.Error(err))
	return applied, err
}

// Cancel abandons the session without moving anything.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
}

// State returns the gesture state and the dragged id, if any.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Dragging {
		return Dragging, c.active
	}
	return Idle, ""
}

func (c *Controller) reset() {
	c.state = Idle
	c.armed = false
	c.active = ""
	c.origin = Point{}
}
