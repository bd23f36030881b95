package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned without invoking the wrapped call while the
// breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker open")

// BreakerState is the breaker's lifecycle state.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerConfig tunes the failure-rate circuit breaker.
type BreakerConfig struct {
	// WindowSize is the number of most recent calls considered.
	WindowSize int
	// MinCalls gates rate evaluation until enough calls were observed.
	MinCalls int
	// FailureRate in [0,1] opens the breaker once exceeded.
	FailureRate float64
	// CoolDown is how long the breaker stays open before probing.
	CoolDown time.Duration
	// HalfOpenProbes is how many trial calls half-open admits.
	HalfOpenProbes int
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.WindowSize <= 0 {
		c.WindowSize = 20
	}
	if c.MinCalls <= 0 {
		c.MinCalls = 5
	}
	if c.FailureRate <= 0 {
		c.FailureRate = 0.5
	}
	if c.CoolDown <= 0 {
		c.CoolDown = 10 * time.Second
	}
	if c.HalfOpenProbes <= 0 {
		c.HalfOpenProbes = 1
	}
	return c
}

// Breaker is a closed/open/half-open circuit breaker over a rolling call
// window. It is safe for concurrent use.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    BreakerState
	window   []bool // true = failure
	next     int
	filled   int
	openedAt time.Time
	probes   int
}

// NewBreaker builds a breaker with the given config, applying defaults for
// zero fields.
func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg = cfg.withDefaults()
	return &Breaker{
		cfg:    cfg,
		now:    time.Now,
		window: make([]bool, cfg.WindowSize),
	}
}

// Execute runs fn if the breaker admits the call and records the outcome.
// While open it fails fast with ErrBreakerOpen.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrBreakerOpen
	}
	err := fn()
	b.record(err != nil)
	return err
}

// State reports the current state, transitioning open→half-open when the
// cool-down has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	return b.state
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
	switch b.state {
	case BreakerOpen:
		return false
	case BreakerHalfOpen:
		if b.probes >= b.cfg.HalfOpenProbes {
			return false
		}
		b.probes++
		return true
	default:
		return true
	}
}

func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		if failed {
			b.trip()
		} else {
			b.reset()
		}
		return
	}

	b.window[b.next] = failed
	b.next = (b.next + 1) % len(b.window)
	if b.filled < len(b.window) {
		b.filled++
	}
	if b.filled < b.cfg.MinCalls {
		return
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if b.window[i] {
			failures++
		}
	}
	if float64(failures)/float64(b.filled) > b.cfg.FailureRate {
		b.trip()
	}
}

// refresh moves open→half-open once the cool-down has passed. Callers hold mu.
func (b *Breaker) refresh() {
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.CoolDown {
		b.state = BreakerHalfOpen
		b.probes = 0
	}
}

func (b *Breaker) trip() {
	b.state = BreakerOpen
	b.openedAt = b.now()
	b.probes = 0
}

func (b *Breaker) reset() {
	b.state = BreakerClosed
	b.next = 0
	b.filled = 0
	for i := range b.window {
		b.window[i] = false
	}
}
