package scheduler

import (
	"sync"
	"time"
)

// Status is a point-in-time copy of the scheduler's shared state, safe to
// hand to the IPC and notification layers.
type Status struct {
	CurrentPicture string
	NextPoll       time.Time
	LastError      string
	UpdatedAt      time.Time
}

// State is the only piece of scheduler data read outside the scheduler
// goroutine. All mutation happens through its methods; readers get copies.
type State struct {
	mu             sync.Mutex
	currentPicture string
	nextPoll       time.Time
	lastError      string
	updatedAt      time.Time
}

// NewState returns an empty state container.
func NewState() *State {
	return &State{}
}

// SetApplied records the picture now on screen.
func (s *State) SetApplied(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentPicture = path
	s.updatedAt = time.Now().UTC()
}

// SetNextPoll records when the next archive cycle is due.
func (s *State) SetNextPoll(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPoll = at
}

// SetLastError records the most recent cycle failure; nil clears it.
func (s *State) SetLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastError = ""
		return
	}
	s.lastError = err.Error()
}

// CurrentPicture returns the path of the picture on screen, or empty before
// the first adoption.
func (s *State) CurrentPicture() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPicture
}

// Snapshot copies the full state.
func (s *State) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		CurrentPicture: s.currentPicture,
		NextPoll:       s.nextPoll,
		LastError:      s.lastError,
		UpdatedAt:      s.updatedAt,
	}
}
