package server

import (
	"sync"

	"github.com/zulandar/folio/internal/collection"
)

// scoped keeps one store per parent id, e.g. the experiences of each resume.
type scoped[T collection.Item[T]] struct {
	mu     sync.Mutex
	stores map[string]*collection.Store[T]
	build  func(parentID string) *collection.Store[T]
}

func newScoped[T collection.Item[T]](mk func(string) *collection.Store[T]) *scoped[T] {
	return &scoped[T]{stores: make(map[string]*collection.Store[T]), build: mk}
}

func (s *scoped[T]) get(parentID string) *collection.Store[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[parentID]
	if !ok {
		st = s.build(parentID)
		s.stores[parentID] = st
	}
	return st
}

// drop closes and forgets the store of a deleted parent.
func (s *scoped[T]) drop(parentID string) {
	s.mu.Lock()
	st, ok := s.stores[parentID]
	delete(s.stores, parentID)
	s.mu.Unlock()
	if ok {
		st.Close()
	}
}

func (s *scoped[T]) closeAll() {
	s.mu.Lock()
	stores := s.stores
	s.stores = make(map[string]*collection.Store[T])
	s.mu.Unlock()
	for _, st := range stores {
		st.Close()
	}
}

// each calls fn for every store created so far.
func (s *scoped[T]) each(fn func(parentID string, st *collection.Store[T])) {
	s.mu.Lock()
	stores := make(map[string]*collection.Store[T], len(s.stores))
	for id, st := range s.stores {
		stores[id] = st
	}
	s.mu.Unlock()
	for id, st := range stores {
		fn(id, st)
	}
}
