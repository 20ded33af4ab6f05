package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen is returned without calling the guarded function while the breaker
// is open or its half-open probe slots are taken.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls fail fast with ErrOpen
	StateHalfOpen              // a limited number of probe calls pass
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	FailureThreshold    int           // consecutive failures that open the circuit
	SuccessThreshold    int           // half-open successes that close it again
	OpenTimeout         time.Duration // time spent open before probing
	MaxRequestsHalfOpen int           // concurrent probes while half-open
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		OpenTimeout:         30 * time.Second,
		MaxRequestsHalfOpen: 1,
	}
}

func (c Config) normalized() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 1
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.MaxRequestsHalfOpen <= 0 {
		c.MaxRequestsHalfOpen = 1
	}
	return c
}

// Counts is a snapshot of the breaker's counters.
type Counts struct {
	State           State
	Failures        int
	Successes       int
	InFlightProbes  int
	LastFailureTime time.Time
	StateChangeTime time.Time
}

// Breaker guards calls to a single dependency.
type Breaker struct {
	name   string
	config Config
	now    func() time.Time

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	probes          int
	lastFailureTime time.Time
	stateChangeTime time.Time

	onStateChange func(name string, from, to State)
}

// New creates a closed breaker. name identifies the guarded dependency in
// state change callbacks.
func New(name string, config Config) *Breaker {
	return &Breaker{
		name:            name,
		config:          config.normalized(),
		now:             time.Now,
		state:           StateClosed,
		stateChangeTime: time.Now(),
	}
}

// OnStateChange registers a callback run synchronously after each transition.
func (b *Breaker) OnStateChange(fn func(name string, from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Name returns the dependency name the breaker was created with.
func (b *Breaker) Name() string { return b.name }

// Execute runs fn unless the breaker is open. fn's error is returned
// unchanged so callers can still match it with errors.Is.
func (b *Breaker) Execute(fn func() error) error {
	_, err := Do(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Do runs fn through b and returns its result.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T

	probe, err := b.before()
	if err != nil {
		return zero, err
	}

	result, err := fn()
	b.after(probe, err == nil)
	if err != nil {
		return zero, err
	}
	return result, nil
}

func (b *Breaker) before() (bool, error) {
	b.mu.Lock()
	var transition func()
	defer func() {
		b.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.stateChangeTime) < b.config.OpenTimeout {
			return false, fmt.Errorf("%s: %w", b.name, ErrOpen)
		}
		transition = b.transitionLocked(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.probes >= b.config.MaxRequestsHalfOpen {
			return false, fmt.Errorf("%s: %w", b.name, ErrOpen)
		}
		b.probes++
		return true, nil
	default:
		return false, nil
	}
}

func (b *Breaker) after(probe, ok bool) {
	b.mu.Lock()
	var transition func()
	defer func() {
		b.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	if probe && b.probes > 0 {
		b.probes--
	}

	if !ok {
		b.failures++
		b.successes = 0
		b.lastFailureTime = b.now()
		switch {
		case b.state == StateHalfOpen:
			transition = b.transitionLocked(StateOpen)
		case b.state == StateClosed && b.failures >= b.config.FailureThreshold:
			transition = b.transitionLocked(StateOpen)
		}
		return
	}

	b.failures = 0
	if b.state == StateHalfOpen {
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			transition = b.transitionLocked(StateClosed)
		}
	}
}

// transitionLocked changes state and returns the callback to run once the
// lock is released, or nil.
func (b *Breaker) transitionLocked(to State) func() {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to
	b.stateChangeTime = b.now()
	b.successes = 0
	b.probes = 0
	if to != StateOpen {
		b.failures = 0
	}

	fn := b.onStateChange
	if fn == nil {
		return nil
	}
	name := b.name
	return func() { fn(name, from, to) }
}

// State returns the current state. An open breaker whose timeout elapsed
// still reports open until the next call probes it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns a snapshot of the breaker's counters.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Counts{
		State:           b.state,
		Failures:        b.failures,
		Successes:       b.successes,
		InFlightProbes:  b.probes,
		LastFailureTime: b.lastFailureTime,
		StateChangeTime: b.stateChangeTime,
	}
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	transition := b.transitionLocked(StateClosed)
	b.failures = 0
	b.mu.Unlock()
	if transition != nil {
		transition()
	}
}
