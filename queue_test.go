package reqsched

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(q *orderedQueue[*Request]) []string {
	out := make([]string, 0, q.Len())
	for i := 0; i < q.Len(); i++ {
		out = append(out, q.At(i).ID)
	}
	return out
}

func rec(id string, prio int, seq uint64) *Request {
	return &Request{ID: id, Priority: prio, seq: seq}
}

func TestPendingQueueOrdersByPriorityThenInsertion(t *testing.T) {
	q := newPendingQueue()
	q.Put(rec("a", 5, 1))
	q.Put(rec("b", 3, 2))
	q.Put(rec("c", 5, 3))
	q.Put(rec("d", 3, 4))
	q.Put(rec("e", -1, 5))

	assert.Equal(t, []string{"e", "b", "d", "a", "c"}, ids(q))

	head, ok := q.Shift()
	require.True(t, ok)
	assert.Equal(t, "e", head.ID)
	assert.Equal(t, 4, q.Len())
}

func TestActiveQueueKeepsInsertionOrder(t *testing.T) {
	q := newActiveQueue()
	q.Put(rec("a", 9, 1))
	q.Put(rec("b", 1, 2))
	q.Put(rec("c", 5, 3))
	q.Sort()

	assert.Equal(t, []string{"a", "b", "c"}, ids(q))
}

func TestShiftEmpty(t *testing.T) {
	q := newPendingQueue()
	r, ok := q.Shift()
	assert.False(t, ok)
	assert.Nil(t, r)
}

func TestSortAfterMutation(t *testing.T) {
	q := newPendingQueue()
	a, b, c := rec("a", 5, 1), rec("b", 4, 2), rec("c", 4, 3)
	q.Put(a)
	q.Put(b)
	q.Put(c)
	require.Equal(t, []string{"b", "c", "a"}, ids(q))

	a.Priority = 4
	q.Sort()
	// a was inserted first, so it wins the tie
	assert.Equal(t, []string{"a", "b", "c"}, ids(q))
}

func TestSortIdempotent(t *testing.T) {
	q := newPendingQueue()
	rng := rand.New(rand.NewSource(7))
	for i := range 200 {
		q.Put(rec(string(rune('A'+i%26))+string(rune('a'+i/26)), rng.Intn(5), uint64(i)))
	}
	before := ids(q)
	q.Sort()
	assert.Equal(t, before, ids(q))
	q.Sort()
	assert.Equal(t, before, ids(q))
}

func TestForEachDeleteAt(t *testing.T) {
	q := newActiveQueue()
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		q.Put(rec(id, 0, uint64(i)))
	}

	var seen []string
	q.ForEach(func(r *Request, idx int) bool {
		seen = append(seen, r.ID)
		if r.ID == "b" || r.ID == "d" || r.ID == "e" {
			q.DeleteAt(idx)
		}
		return true
	})

	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, seen)
	assert.Equal(t, []string{"a", "c"}, ids(q))
}

func TestForEachStops(t *testing.T) {
	q := newActiveQueue()
	for i, id := range []string{"a", "b", "c"} {
		q.Put(rec(id, 0, uint64(i)))
	}
	n := 0
	q.ForEach(func(*Request, int) bool {
		n++
		return false
	})
	assert.Equal(t, 1, n)
}

func TestRemoveAndDrain(t *testing.T) {
	q := newPendingQueue()
	q.Put(rec("a", 1, 1))
	q.Put(rec("b", 2, 2))
	q.Put(rec("c", 3, 3))

	r, ok := q.Remove(func(r *Request) bool { return r.ID == "b" })
	require.True(t, ok)
	assert.Equal(t, "b", r.ID)

	_, ok = q.Remove(func(r *Request) bool { return r.ID == "zzz" })
	assert.False(t, ok)

	all := q.Drain()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, 0, q.Len())
}
