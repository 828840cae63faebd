package session

import (
	"reflect"
	"sync"

	"pdf-view-session/internal/domain"
)

// State is one snapshot of the observable view model.
type State struct {
	SessionID      string               `json:"session_id"`
	DocumentOpen   bool                 `json:"document_open"`
	DisplayedPage  int                  `json:"displayed_page"`
	PageCount      int                  `json:"page_count"`
	SearchTerm     string               `json:"search_term"`
	IsSearchOpen   bool                 `json:"is_search_open"`
	StatusText     string               `json:"status_text"`
	RenderFlags    domain.RenderFlags   `json:"render_flags"`
	ZoomMode       domain.ZoomMode      `json:"zoom_mode"`
	DisplayMode    domain.DisplayMode   `json:"display_mode"`
	Rotation       domain.Rotation      `json:"rotation"`
	SearchResults  []domain.SearchMatch `json:"search_results,omitempty"`
	SweepRunning   bool                 `json:"sweep_running"`
	SweepCancelled bool                 `json:"sweep_cancelled"`
	Version        uint64               `json:"version"`
}

func (s State) clone() State {
	if s.SearchResults != nil {
		s.SearchResults = append([]domain.SearchMatch(nil), s.SearchResults...)
	}
	return s
}

// Store holds the session State and fans changes out to observers.
// Observers run synchronously, in registration-independent order, after
// the change is applied and outside the store lock.
type Store struct {
	mu    sync.RWMutex
	state State

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// NewStore creates a store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{
		state: initial,
		subs:  make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Update applies fn and publishes the result when anything changed.
func (s *Store) Update(fn func(*State)) {
	s.mu.Lock()
	before := s.state.clone()
	fn(&s.state)
	if reflect.DeepEqual(before, s.state) {
		s.mu.Unlock()
		return
	}
	s.state.Version++
	snap := s.state.clone()
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Subscribe registers fn for every future change.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// DetachAll drops every observer.
func (s *Store) DetachAll() {
	s.subMu.Lock()
	s.subs = make(map[int]func(State))
	s.subMu.Unlock()
}
