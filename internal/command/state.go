package command

import (
	"context"
	"sync"
)

// State is the command bar's session state. Each submission gets a new
// token; results for older tokens are discarded so only the latest request
// can land.
type State struct {
	mu     sync.Mutex
	open   bool
	query  string
	status Status
	intent Intent
	err    error
	token  uint64
	last   Input
	hasRun bool
	cancel context.CancelFunc
}

type Snapshot struct {
	Open   bool
	Query  string
	Status Status
	Intent Intent
	Err    error
	Token  uint64
}

func NewState() *State { return &State{status: StatusIdle} }

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Open: s.open, Query: s.query, Status: s.status, Intent: s.intent, Err: s.err, Token: s.token}
}

func (s *State) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *State) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
}

// Close hides the bar and abandons any in-flight request.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.query = ""
	s.invalidateLocked()
	if s.status == StatusResolving {
		s.status = StatusIdle
	}
}

func (s *State) Toggle() bool {
	if s.IsOpen() {
		s.Close()
		return false
	}
	s.Open()
	return true
}

func (s *State) SetQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
}

// Begin records a new submission and returns its token. cancel, if non-nil,
// is called when the request is superseded or the bar closes.
func (s *State) Begin(in Input, cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.cancel = cancel
	s.query = in.Text
	s.last = in
	s.hasRun = true
	s.status = StatusResolving
	s.intent = nil
	s.err = nil
	return s.token
}

// Finish applies res if token is still current and reports whether it did.
func (s *State) Finish(token uint64, res Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.token {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.status = res.Status
	s.intent = res.Intent
	s.err = res.Err
	return true
}

// LastInput returns the most recent submission for retry.
func (s *State) LastInput() (Input, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasRun
}

// Reset returns a settled bar to idle, keeping it open.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidateLocked()
	s.status = StatusIdle
	s.intent = nil
	s.err = nil
}

func (s *State) invalidateLocked() {
	s.token++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
