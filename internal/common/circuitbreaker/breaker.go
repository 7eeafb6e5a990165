// internal/common/circuitbreaker/breaker.go
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var (
	ErrOpen            = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Settings tunes a breaker. Zero values are replaced by DefaultSettings.
type Settings struct {
	MaxFailures     int           // consecutive failures that open the breaker
	ResetTimeout    time.Duration // open -> half-open delay
	HalfOpenMaxReqs int           // probes admitted while half-open
	OnStateChange   func(name string, from, to State)
}

func DefaultSettings() Settings {
	return Settings{
		MaxFailures:     5,
		ResetTimeout:    30 * time.Second,
		HalfOpenMaxReqs: 1,
	}
}

// Breaker guards one upstream. A successful half-open probe closes it, a
// failed probe reopens it.
type Breaker struct {
	name     string
	settings Settings
	logger   *zap.Logger

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	halfOpenInFlight    int
	openedAt            time.Time
	now                 func() time.Time
}

func New(name string, settings Settings, logger *zap.Logger) *Breaker {
	def := DefaultSettings()
	if settings.MaxFailures <= 0 {
		settings.MaxFailures = def.MaxFailures
	}
	if settings.ResetTimeout <= 0 {
		settings.ResetTimeout = def.ResetTimeout
	}
	if settings.HalfOpenMaxReqs <= 0 {
		settings.HalfOpenMaxReqs = def.HalfOpenMaxReqs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		name:     name,
		settings: settings,
		logger:   logger,
		state:    StateClosed,
		now:      time.Now,
	}
}

func (b *Breaker) Name() string { return b.name }

// Execute runs fn unless the breaker rejects the call. A non-nil error from
// fn counts as a failure; context cancellation by the caller does not.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.after(false)
			panic(r)
		}
	}()

	err := fn()
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		b.after(true)
		return err
	}
	b.after(err == nil)
	return err
}

// State returns the current state, resolving an expired open period.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Available reports whether a call would currently be admitted.
func (b *Breaker) Available() bool {
	return b.State() != StateOpen
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateOpen:
		return ErrOpen
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.settings.HalfOpenMaxReqs {
			return ErrTooManyRequests
		}
		b.halfOpenInFlight++
	}
	return nil
}

func (b *Breaker) after(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentState()
	if state == StateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}

	if success {
		b.consecutiveFailures = 0
		if state == StateHalfOpen {
			b.setState(StateClosed)
		}
		return
	}

	switch state {
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.settings.MaxFailures {
			b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.setState(StateOpen)
	}
}

// caller holds b.mu
func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.ResetTimeout {
		b.setState(StateHalfOpen)
	}
	return b.state
}

// caller holds b.mu
func (b *Breaker) setState(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to

	switch to {
	case StateOpen:
		b.openedAt = b.now()
	case StateClosed:
		b.consecutiveFailures = 0
	}
	b.halfOpenInFlight = 0

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
	b.logger.Info("circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}
