package healing

import (
	"fmt"
	"time"

	"journeykit/internal/config"
	"journeykit/internal/logging"
)

// CircuitBreaker is the hard stop for a healing session. Once open it stays
// open: there is no half-open probing, because a session that tripped any
// limit has already proven it should not continue.
type CircuitBreaker struct {
	maxAttempts     int
	repeatThreshold int
	timeout         time.Duration
	tokenBudget     int

	attempts     int
	fingerprints []string
	repeats      map[string]int
	tokensUsed   int
	startedAt    time.Time
	open         bool
	openReason   string

	now func() time.Time // test hook
}

func NewCircuitBreaker(cfg config.HealingConfig) *CircuitBreaker {
	b := &CircuitBreaker{
		maxAttempts:     cfg.MaxAttempts,
		repeatThreshold: cfg.RepeatThreshold,
		timeout:         cfg.Timeout,
		tokenBudget:     cfg.TokenBudget,
		repeats:         map[string]int{},
		now:             time.Now,
	}
	b.startedAt = b.now()
	return b
}

// CanAttempt reports whether another healing attempt is permitted.
func (b *CircuitBreaker) CanAttempt() bool {
	return !b.open
}

// IsOpen reports whether the circuit has tripped.
func (b *CircuitBreaker) IsOpen() bool { return b.open }

// Reason returns why the circuit opened, empty while closed.
func (b *CircuitBreaker) Reason() string { return b.openReason }

// Attempts returns how many attempts have been recorded.
func (b *CircuitBreaker) Attempts() int { return b.attempts }

// RecordAttempt registers one attempt's error fingerprint and token cost,
// then evaluates the trip conditions in fixed order: attempt ceiling, same
// fingerprint repeating, two fingerprints alternating, wall-clock timeout,
// token budget. The first condition that holds opens the circuit and the
// rest are skipped.
func (b *CircuitBreaker) RecordAttempt(fingerprint string, tokens int) {
	if b.open {
		return
	}

	b.attempts++
	b.fingerprints = append(b.fingerprints, fingerprint)
	b.repeats[fingerprint]++
	b.tokensUsed += tokens

	switch {
	case b.attempts >= b.maxAttempts:
		b.trip(fmt.Sprintf("attempt limit reached (%d)", b.maxAttempts))
	case b.repeatThreshold > 0 && b.repeats[fingerprint] >= b.repeatThreshold:
		b.trip(fmt.Sprintf("same failure repeated %d times", b.repeats[fingerprint]))
	case b.fingerprintOscillation():
		b.trip("failures oscillating between two states")
	case b.timeout > 0 && b.now().Sub(b.startedAt) > b.timeout:
		b.trip(fmt.Sprintf("session exceeded %v", b.timeout))
	case b.tokenBudget > 0 && b.tokensUsed >= b.tokenBudget:
		b.trip(fmt.Sprintf("token budget exhausted (%d/%d)", b.tokensUsed, b.tokenBudget))
	}
}

func (b *CircuitBreaker) trip(reason string) {
	b.open = true
	b.openReason = reason
	logging.HealingWarn("circuit open: %s", reason)
}

// fingerprintOscillation detects an a,b,a,b pattern over the last four
// fingerprints: two failure states trading places, a loop that a different
// fix order will not break.
func (b *CircuitBreaker) fingerprintOscillation() bool {
	n := len(b.fingerprints)
	if n < 4 {
		return false
	}
	w := b.fingerprints[n-4:]
	return w[0] == w[2] && w[1] == w[3] && w[0] != w[1]
}
