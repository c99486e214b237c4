package ordering

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id      string
	order   int
	created time.Time
}

func (i *item) Key() string        { return i.id }
func (i *item) Position() int      { return i.order }
func (i *item) SetPosition(p int)  { i.order = p }
func (i *item) Created() time.Time { return i.created }

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func seq(orders ...int) []*item {
	out := make([]*item, len(orders))
	for i, o := range orders {
		out[i] = &item{id: string(rune('A' + i)), order: o, created: epoch.Add(time.Duration(i) * time.Minute)}
	}
	return out
}

func keys(items []*item) string {
	s := ""
	for _, it := range items {
		s += it.id
	}
	return s
}

func TestMove_AllPairsArePermutations(t *testing.T) {
	for n := 1; n <= 6; n++ {
		for from := 0; from < n; from++ {
			for to := 0; to < n; to++ {
				base := seq(make([]int, n)...)
				got := Move(base, from, to)
				require.Len(t, got, n)

				// The moved item lands at to.
				assert.Equal(t, base[from].id, got[to].id, "n=%d from=%d to=%d", n, from, to)

				// Everything else keeps its relative order.
				var restBase, restGot []string
				for _, it := range base {
					if it != base[from] {
						restBase = append(restBase, it.id)
					}
				}
				for _, it := range got {
					if it != base[from] {
						restGot = append(restGot, it.id)
					}
				}
				assert.Equal(t, restBase, restGot, "n=%d from=%d to=%d", n, from, to)
			}
		}
	}
}

func TestMove_DoesNotMutateInput(t *testing.T) {
	base := seq(0, 1, 2)
	_ = Move(base, 0, 2)
	assert.Equal(t, "ABC", keys(base))
}

func TestReassign_MoveFirstAfterLast(t *testing.T) {
	before := seq(0, 1, 2)
	moved := Move(before, 0, 2)
	updates := Reassign(before, moved, 0, 2)

	assert.Equal(t, "BCA", keys(moved))
	assert.Less(t, moved[0].order, moved[1].order)
	assert.Less(t, moved[1].order, moved[2].order)
	assert.ElementsMatch(t, []Update{{ID: "B", Order: 0}, {ID: "C", Order: 1}, {ID: "A", Order: 2}}, updates)
}

func TestReassign_OnlyTouchesRange(t *testing.T) {
	before := seq(0, 10, 20, 30, 40)
	moved := Move(before, 3, 1) // D moves before B
	updates := Reassign(before, moved, 1, 3)

	assert.Equal(t, "ADBCE", keys(moved))
	assert.Equal(t, 0, moved[0].order)
	assert.Equal(t, 40, moved[4].order)
	for _, u := range updates {
		assert.NotEqual(t, "A", u.ID)
		assert.NotEqual(t, "E", u.ID)
	}
	assert.True(t, StrictlyIncreasing(moved))
}

func TestReassign_TiesRenumberEverything(t *testing.T) {
	before := seq(0, 0, 0)
	moved := Move(before, 2, 0)
	Reassign(before, moved, 0, 2)

	assert.Equal(t, "CAB", keys(moved))
	assert.Equal(t, []int{0, 1, 2}, []int{moved[0].order, moved[1].order, moved[2].order})
}

func TestSort_TieBreaks(t *testing.T) {
	a := &item{id: "a", order: 1, created: epoch.Add(time.Hour)}
	b := &item{id: "b", order: 1, created: epoch}
	c := &item{id: "c", order: 0, created: epoch.Add(2 * time.Hour)}
	d := &item{id: "d", order: 1, created: epoch}
	items := []*item{a, b, c, d}
	Sort(items)

	assert.Equal(t, "cbda", fmt.Sprint(items[0].id, items[1].id, items[2].id, items[3].id))
}

func TestNext(t *testing.T) {
	assert.Equal(t, 0, Next([]*item{}))
	assert.Equal(t, 8, Next(seq(3, 7, 5)))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-3, 4))
	assert.Equal(t, 3, Clamp(9, 4))
	assert.Equal(t, 2, Clamp(2, 4))
}

func TestSnapshot_Restore(t *testing.T) {
	items := seq(0, 1, 2)
	snap := Take(items)
	moved := Move(items, 0, 2)
	Reassign(items, moved, 0, 2)

	restored := snap.Restore()
	assert.Equal(t, "ABC", keys(restored))
	assert.Equal(t, []int{0, 1, 2}, []int{restored[0].order, restored[1].order, restored[2].order})
	assert.Equal(t, 3, snap.Len())
}

func TestIndexOf(t *testing.T) {
	items := seq(0, 1, 2)
	assert.Equal(t, 1, IndexOf(items, "B"))
	assert.Equal(t, -1, IndexOf(items, "Z"))
}

func TestSnapshot_WithWithoutReplace(t *testing.T) {
	items := seq(0, 1)
	snap := Take(items)

	extra := &item{id: "Z", order: 5}
	grown := snap.With(extra)
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 3, grown.Len())

	extra.order = 9
	restored := grown.Restore()
	assert.Equal(t, "ABZ", keys(restored))
	assert.Equal(t, 5, extra.order)

	shrunk := grown.Without("A")
	assert.Equal(t, "BZ", keys(shrunk.Restore()))

	fresh := &item{id: "B", order: 42}
	replaced := snap.Replace(fresh)
	out := replaced.Restore()
	assert.Same(t, fresh, out[1])
	assert.Equal(t, 1, fresh.order)
}
