package drag

import (
	"context"
	"fmt"
)

// Sequence is an ordered list that can move its items by index.
type Sequence interface {
	Index(id string) int
	Len() int
	MoveItem(id string, position int) error
}

// ListMover adapts a single ordered list to the drop rules: dropping on an
// item takes that item's index, dropping on the list itself moves to the end.
type ListMover struct {
	Seq         Sequence
	ContainerID string
}

// Classify implements Resolver.
func (l ListMover) Classify(id string) TargetKind {
	if id == l.ContainerID {
		return TargetContainer
	}
	if l.Seq.Index(id) >= 0 {
		return TargetItem
	}
	return TargetNone
}

// MoveToItem implements Mover.
func (l ListMover) MoveToItem(_ context.Context, activeID, overID string) error {
	to := l.Seq.Index(overID)
	if to < 0 {
		return fmt.Errorf("drag: drop on %s: %w", overID, ErrUnknownTarget)
	}
	return l.Seq.MoveItem(activeID, to)
}

// MoveToContainer implements Mover.
func (l ListMover) MoveToContainer(_ context.Context, activeID, containerID string) error {
	if containerID != l.ContainerID {
		return fmt.Errorf("drag: drop on %s: %w", containerID, ErrUnknownTarget)
	}
	return l.Seq.MoveItem(activeID, l.Seq.Len()-1)
}
