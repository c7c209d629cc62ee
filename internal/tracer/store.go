package tracer

import (
	"maps"
	"slices"

	"github.com/wnxd/microtrace/syscalls"
)

type slot struct {
	ctx    syscalls.Context
	handle *hookHandle
}

// contextStore holds at most one in-flight context per key.
type contextStore struct {
	slots map[syscalls.Key]*slot
}

func (s *contextStore) ctor() {
	s.slots = make(map[syscalls.Key]*slot)
}

func (s *contextStore) dtor() {
	s.slots = nil
}

// insert stores sl and returns the slot it displaced, if any.
func (s *contextStore) insert(sl *slot) *slot {
	key := sl.ctx.Key()
	old := s.slots[key]
	s.slots[key] = sl
	return old
}

func (s *contextStore) take(key syscalls.Key) (*slot, bool) {
	sl, ok := s.slots[key]
	if ok {
		delete(s.slots, key)
	}
	return sl, ok
}

func (s *contextStore) evictASID(asid uint64) []*slot {
	var evicted []*slot
	for key, sl := range s.slots {
		if key.ASID == asid {
			evicted = append(evicted, sl)
			delete(s.slots, key)
		}
	}
	sortSlots(evicted)
	return evicted
}

func (s *contextStore) drain() []*slot {
	evicted := slices.Collect(maps.Values(s.slots))
	clear(s.slots)
	sortSlots(evicted)
	return evicted
}

func (s *contextStore) len() int {
	return len(s.slots)
}

func (s *contextStore) contexts() []syscalls.Context {
	ctxs := make([]syscalls.Context, 0, len(s.slots))
	for _, sl := range s.slots {
		ctxs = append(ctxs, sl.ctx)
	}
	slices.SortFunc(ctxs, func(a, b syscalls.Context) int {
		return a.Key().Compare(b.Key())
	})
	return ctxs
}

func sortSlots(slots []*slot) {
	slices.SortFunc(slots, func(a, b *slot) int {
		return a.ctx.Key().Compare(b.ctx.Key())
	})
}
