// Package zoom tracks which dashboard resolution a session is looking at.
//
// Levels are ordered by scope: Now is the narrowest, Landscape the broadest.
// A Machine keeps the active level, a bounded history for single-step back
// navigation and a transitioning flag that stays raised for a settle delay
// after each change so UIs can hold off re-layout while they animate.
package zoom

import (
	"fmt"
	"sync"
	"time"
)

type Level string

const (
	Now       Level = "now"
	Horizon   Level = "horizon"
	Landscape Level = "landscape"
)

var order = []Level{Now, Horizon, Landscape}

// Levels returns the levels from narrowest to broadest.
func Levels() []Level { return append([]Level(nil), order...) }

func (l Level) index() int {
	for i, o := range order {
		if o == l {
			return i
		}
	}
	return -1
}

func (l Level) Valid() bool { return l.index() >= 0 }

func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown zoom level %q", s)
	}
	return l, nil
}

const (
	DefaultSettleDelay  = 500 * time.Millisecond
	DefaultHistoryLimit = 32
)

type State struct {
	Level           Level
	IsTransitioning bool
	History         []Level
}

// Timer is the part of *time.Timer the machine needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type Option func(*Machine)

func WithSettleDelay(d time.Duration) Option { return func(m *Machine) { m.settle = d } }

// WithHistoryLimit bounds the back stack; n <= 0 keeps every entry.
func WithHistoryLimit(n int) Option { return func(m *Machine) { m.limit = n } }

func WithAfterFunc(f AfterFunc) Option { return func(m *Machine) { m.after = f } }

// WithOnChange registers a callback invoked after every state change,
// including the asynchronous end of a transition. It runs without the
// machine's lock held.
func WithOnChange(f func(State)) Option { return func(m *Machine) { m.onChange = f } }

type Machine struct {
	mu            sync.Mutex
	level         Level
	transitioning bool
	history       []Level
	timer         Timer
	gen           uint64

	settle   time.Duration
	limit    int
	after    AfterFunc
	onChange func(State)
}

func New(initial Level, opts ...Option) *Machine {
	if !initial.Valid() {
		initial = Now
	}
	m := &Machine{
		level:  initial,
		settle: DefaultSettleDelay,
		limit:  DefaultHistoryLimit,
		after:  stdAfterFunc,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Machine) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// SetLevel moves to target, recording the current level in history.
// It reports whether the level changed.
func (m *Machine) SetLevel(target Level) bool {
	m.mu.Lock()
	if !target.Valid() || target == m.level {
		m.mu.Unlock()
		return false
	}
	m.push(m.level)
	m.level = target
	st := m.beginTransition()
	m.mu.Unlock()

	m.notify(st)
	return true
}

// ZoomIn narrows the scope by one step (towards Now).
func (m *Machine) ZoomIn() bool { return m.step(-1) }

// ZoomOut widens the scope by one step (towards Landscape).
func (m *Machine) ZoomOut() bool { return m.step(1) }

func (m *Machine) step(delta int) bool {
	m.mu.Lock()
	i := m.level.index() + delta
	m.mu.Unlock()
	if i < 0 || i >= len(order) {
		return false
	}
	return m.SetLevel(order[i])
}

// GoBack returns to the previous level without pushing the level being left.
func (m *Machine) GoBack() bool {
	m.mu.Lock()
	if len(m.history) == 0 {
		m.mu.Unlock()
		return false
	}
	prev := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	m.level = prev
	st := m.beginTransition()
	m.mu.Unlock()

	m.notify(st)
	return true
}

// Close stops a pending settle timer.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) push(l Level) {
	if m.limit > 0 && len(m.history) >= m.limit {
		copy(m.history, m.history[1:])
		m.history = m.history[:len(m.history)-1]
	}
	m.history = append(m.history, l)
}

// beginTransition raises the flag and re-arms the settle timer. Callers hold mu.
func (m *Machine) beginTransition() State {
	m.transitioning = true
	if m.timer != nil {
		m.timer.Stop()
	}
	m.gen++
	gen := m.gen
	m.timer = m.after(m.settle, func() { m.settled(gen) })
	return m.snapshot()
}

func (m *Machine) settled(gen uint64) {
	m.mu.Lock()
	// A Stop that lost the race with the timer goroutine lands here with an
	// old generation.
	if gen != m.gen || !m.transitioning {
		m.mu.Unlock()
		return
	}
	m.transitioning = false
	m.timer = nil
	st := m.snapshot()
	m.mu.Unlock()

	m.notify(st)
}

func (m *Machine) snapshot() State {
	return State{
		Level:           m.level,
		IsTransitioning: m.transitioning,
		History:         append([]Level(nil), m.history...),
	}
}

func (m *Machine) notify(st State) {
	if m.onChange != nil {
		m.onChange(st)
	}
}
