// Package ordering holds the pure sequence math behind drag reordering:
// array moves, tie-breaking sort, and order value reassignment.
package ordering

import (
	"sort"
	"time"
)

// Entity is anything kept in an explicitly ordered collection.
type Entity interface {
	Key() string
	Position() int
	SetPosition(int)
	Created() time.Time
}

// Update is a value copy of one order change to persist.
type Update struct {
	ID    string
	Order int
}

// Less orders by position, then creation time, then key, so that tied
// order values still produce a strict total order.
func Less[T Entity](a, b T) bool {
	if a.Position() != b.Position() {
		return a.Position() < b.Position()
	}
	if !a.Created().Equal(b.Created()) {
		return a.Created().Before(b.Created())
	}
	return a.Key() < b.Key()
}

// Sort sorts items in place by Less.
func Sort[T Entity](items []T) {
	sort.SliceStable(items, func(i, j int) bool { return Less(items[i], items[j]) })
}

// IndexOf returns the index of the item with the given key, or -1.
func IndexOf[T Entity](items []T, key string) int {
	for i, it := range items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

// Move returns a new slice with the element at from relocated to to.
// Both indexes must be in range.
func Move[T any](items []T, from, to int) []T {
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	moved := items[from]
	out = append(out, moved)
	copy(out[to+1:], out[to:len(out)-1])
	out[to] = moved
	return out
}

// Clamp bounds a target position to [0, n-1].
func Clamp(pos, n int) int {
	if pos < 0 {
		return 0
	}
	if pos > n-1 {
		return n - 1
	}
	return pos
}

// Next returns the order value for an item appended to items: max+1, or 0
// when items is empty.
func Next[T Entity](items []T) int {
	if len(items) == 0 {
		return 0
	}
	max := items[0].Position()
	for _, it := range items[1:] {
		if it.Position() > max {
			max = it.Position()
		}
	}
	return max + 1
}

// StrictlyIncreasing reports whether order values strictly increase along items.
func StrictlyIncreasing[T Entity](items []T) bool {
	for i := 1; i < len(items); i++ {
		if items[i].Position() <= items[i-1].Position() {
			return false
		}
	}
	return true
}

// Reassign gives the items of moved in the index range [lo, hi] the order
// values that before held in that same range, in ascending order. Items
// outside the range keep their values. When the values in before are not
// strictly increasing across the whole sequence, every item is renumbered
// densely instead. It mutates the items and returns the changes.
func Reassign[T Entity](before, moved []T, lo, hi int) []Update {
	if !StrictlyIncreasing(before) {
		return Renumber(moved)
	}
	values := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		values = append(values, before[i].Position())
	}
	var updates []Update
	for i := lo; i <= hi; i++ {
		it := moved[i]
		if it.Position() != values[i-lo] {
			it.SetPosition(values[i-lo])
			updates = append(updates, Update{ID: it.Key(), Order: values[i-lo]})
		}
	}
	return updates
}

// Renumber assigns dense order values 0..n-1 and returns the changes.
func Renumber[T Entity](items []T) []Update {
	var updates []Update
	for i, it := range items {
		if it.Position() != i {
			it.SetPosition(i)
			updates = append(updates, Update{ID: it.Key(), Order: i})
		}
	}
	return updates
}

// Snapshot records the order values of items so they can be restored.
type Snapshot[T Entity] struct {
	items  []T
	orders []int
}

// Take captures items and their current order values.
func Take[T Entity](items []T) Snapshot[T] {
	s := Snapshot[T]{items: make([]T, len(items)), orders: make([]int, len(items))}
	copy(s.items, items)
	for i, it := range items {
		s.orders[i] = it.Position()
	}
	return s
}

// Restore writes the captured order values back and returns the captured
// sequence.
func (s Snapshot[T]) Restore() []T {
	out := make([]T, len(s.items))
	for i, it := range s.items {
		it.SetPosition(s.orders[i])
		out[i] = it
	}
	return out
}

// Len is the number of captured items.
func (s Snapshot[T]) Len() int { return len(s.items) }

// With returns a copy of the snapshot with item appended at its current
// order value.
func (s Snapshot[T]) With(item T) Snapshot[T] {
	out := Snapshot[T]{
		items:  append(append(make([]T, 0, len(s.items)+1), s.items...), item),
		orders: append(append(make([]int, 0, len(s.orders)+1), s.orders...), item.Position()),
	}
	return out
}

// Without returns a copy of the snapshot with the keyed item left out.
func (s Snapshot[T]) Without(key string) Snapshot[T] {
	out := Snapshot[T]{items: make([]T, 0, len(s.items)), orders: make([]int, 0, len(s.orders))}
	for i, it := range s.items {
		if it.Key() == key {
			continue
		}
		out.items = append(out.items, it)
		out.orders = append(out.orders, s.orders[i])
	}
	return out
}

// Replace returns a copy of the snapshot with the keyed item swapped for
// item, keeping the captured order value.
func (s Snapshot[T]) Replace(item T) Snapshot[T] {
	out := Snapshot[T]{items: make([]T, len(s.items)), orders: make([]int, len(s.orders))}
	copy(out.items, s.items)
	copy(out.orders, s.orders)
	for i, it := range out.items {
		if it.Key() == item.Key() {
			out.items[i] = item
		}
	}
	return out
}
