package signin

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// flowTTL is how long an untouched flow survives. Long enough to cover
	// the cooldown with room to spare.
	flowTTL = 30 * time.Minute

	cleanupInterval = 5 * time.Minute
)

type entry struct {
	flow       *Flow
	lastAccess time.Time
}

// Store keeps one Flow per visitor, keyed by a flow cookie. Its run loop owns
// the one-second tick driving every visible countdown, and sweeps abandoned
// flows; Stop shuts both down.
type Store struct {
	mu     sync.Mutex
	flows  map[string]*entry
	send   SendFunc
	stopCh chan struct{}
}

func NewStore(send SendFunc) *Store {
	s := &Store{
		flows:  make(map[string]*entry),
		send:   send,
		stopCh: make(chan struct{}),
	}
	go s.run()
	return s
}

// Stop halts the tick/cleanup loop.
func (s *Store) Stop() {
	close(s.stopCh)
}

// Create registers a new flow and returns its ID for the flow cookie.
func (s *Store) Create() (string, *Flow) {
	id := uuid.NewString()
	flow := NewFlow(s.send)

	s.mu.Lock()
	s.flows[id] = &entry{flow: flow, lastAccess: time.Now()}
	s.mu.Unlock()
	return id, flow
}

// Get returns the flow for the given ID, refreshing its TTL.
func (s *Store) Get(id string) (*Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.flows[id]
	if !ok {
		return nil, false
	}
	e.lastAccess = time.Now()
	return e.flow, true
}

// Len reports the number of live flows. For tests and metrics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

func (s *Store) run() {
	tick := time.NewTicker(time.Second)
	cleanup := time.NewTicker(cleanupInterval)
	defer tick.Stop()
	defer cleanup.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-tick.C:
			s.tickAll()
		case <-cleanup.C:
			s.sweep()
		}
	}
}

func (s *Store) tickAll() {
	s.mu.Lock()
	flows := make([]*Flow, 0, len(s.flows))
	for _, e := range s.flows {
		flows = append(flows, e.flow)
	}
	s.mu.Unlock()

	// Tick outside the store lock; flows have their own locks.
	for _, f := range flows {
		f.Tick()
	}
}

func (s *Store) sweep() {
	cutoff := time.Now().Add(-flowTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.flows {
		if e.lastAccess.Before(cutoff) {
			delete(s.flows, id)
		}
	}
}
