package healing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"journeykit/internal/config"
	"journeykit/internal/logging"
)

// Status is the terminal state of a healing session.
type Status string

const (
	StatusHealed      Status = "healed"
	StatusFailed      Status = "failed"       // precondition error or unclassifiable failure path
	StatusNotHealable Status = "not_healable" // policy refusal
	StatusExhausted   Status = "exhausted"    // fixes ran out or the breaker tripped
)

// FailureDetail is one error from the external verify step. The classifier
// only consumes Message and Stack.
type FailureDetail struct {
	Message  string `json:"message"`
	Stack    string `json:"stack,omitempty"`
	Location string `json:"location,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

// VerifyOutcome is the result of one external verification run.
type VerifyOutcome struct {
	Passed     bool
	Failures   []FailureDetail
	TokensUsed int
}

// Verifier runs the journey's generated test and reports the outcome. The
// orchestrator never retries a verify internally; retry policy lives in the
// circuit breaker.
type Verifier interface {
	Verify(ctx context.Context, journeyID string) (VerifyOutcome, error)
}

// Applier applies one fix to the journey's source and persists it. The
// returned description goes into the healing log.
type Applier interface {
	Apply(ctx context.Context, journeyID string, fix FixType, failure ClassifiedFailure) (string, error)
}

// AttemptRecord logs one loop iteration.
type AttemptRecord struct {
	Attempt     int       `json:"attempt"`
	Category    Category  `json:"category"`
	Fix         FixType   `json:"fix"`
	Description string    `json:"description,omitempty"`
	ErrorCount  int       `json:"errorCount"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
}

// HealingLog is the persisted record of one (journey, session) healing run.
type HealingLog struct {
	JourneyID      string          `json:"journeyId"`
	SessionID      string          `json:"sessionId"`
	StartedAt      time.Time       `json:"startedAt"`
	FinishedAt     time.Time       `json:"finishedAt"`
	Status         Status          `json:"status"`
	Reason         string          `json:"reason,omitempty"`
	Attempts       []AttemptRecord `json:"attempts"`
	Recommendation string          `json:"recommendation,omitempty"`
}

// Result is the structured outcome returned to the caller. Nothing in the
// healing loop is thrown; every path ends here.
type Result struct {
	Success        bool    `json:"success"`
	Status         Status  `json:"status"`
	Attempts       int     `json:"attempts"`
	AppliedFix     FixType `json:"appliedFix,omitempty"`
	LogPath        string  `json:"logPath,omitempty"`
	Recommendation string  `json:"recommendation,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

// Orchestrator drives the heal loop: verify, classify, fix, apply, re-verify,
// until healed or a terminal condition stops it.
type Orchestrator struct {
	cfg      config.HealingConfig
	engine   *Engine
	verifier Verifier
	applier  Applier
}

func NewOrchestrator(cfg config.HealingConfig, verifier Verifier, applier Applier) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		engine:   NewEngine(cfg),
		verifier: verifier,
		applier:  applier,
	}
}

// Heal runs one healing session for a journey. Every terminal state persists
// a HealingLog before returning.
func (o *Orchestrator) Heal(ctx context.Context, journeyID string) Result {
	timer := logging.StartTimer(logging.CategoryHealing, "Heal")
	defer timer.Stop()

	hl := &HealingLog{
		JourneyID: journeyID,
		SessionID: uuid.NewString(),
		StartedAt: time.Now(),
	}

	outcome, err := o.verifier.Verify(ctx, journeyID)
	if err != nil {
		return o.finish(hl, Result{
			Status: StatusFailed,
			Reason: fmt.Sprintf("verification failed to run: %v", err),
		})
	}
	if outcome.Passed {
		logging.Healing("journey %s already passing; nothing to heal", journeyID)
		return o.finish(hl, Result{Success: true, Status: StatusHealed})
	}

	breaker := NewCircuitBreaker(o.cfg)
	detector := NewConvergenceDetector()
	detector.Record(len(outcome.Failures))

	var (
		attempted []FixType
		lastFix   FixType
	)

	for breaker.CanAttempt() {
		failure := Classify(firstFailure(outcome).Message, firstFailure(outcome).Stack)

		eval := o.engine.EvaluateHealing(failure)
		if !eval.CanHeal {
			return o.finish(hl, Result{
				Status:         StatusNotHealable,
				Attempts:       breaker.Attempts(),
				Reason:         eval.Reason,
				Recommendation: failure.Suggestion,
			})
		}

		fix, ok := o.engine.GetNextFix(failure, attempted)
		if !ok {
			return o.finish(hl, Result{
				Status:         StatusExhausted,
				Attempts:       breaker.Attempts(),
				Reason:         fmt.Sprintf("all permitted fixes for category %q attempted", failure.Category),
				Recommendation: failure.Suggestion,
			})
		}
		attempted = append(attempted, fix)
		lastFix = fix

		desc, err := o.applier.Apply(ctx, journeyID, fix, failure)
		if err != nil {
			return o.finish(hl, Result{
				Status:   StatusFailed,
				Attempts: breaker.Attempts(),
				Reason:   fmt.Sprintf("failed to apply fix %s: %v", fix, err),
			})
		}
		logging.Healing("journey %s attempt %d: applied %s", journeyID, breaker.Attempts()+1, fix)

		outcome, err = o.verifier.Verify(ctx, journeyID)
		if err != nil {
			return o.finish(hl, Result{
				Status:   StatusFailed,
				Attempts: breaker.Attempts(),
				Reason:   fmt.Sprintf("re-verification failed to run: %v", err),
			})
		}

		fp := fingerprint(outcome)
		hl.Attempts = append(hl.Attempts, AttemptRecord{
			Attempt:     breaker.Attempts() + 1,
			Category:    failure.Category,
			Fix:         fix,
			Description: desc,
			ErrorCount:  len(outcome.Failures),
			Fingerprint: fp,
			Timestamp:   time.Now(),
		})
		detector.Record(len(outcome.Failures))
		breaker.RecordAttempt(fp, outcome.TokensUsed)

		if outcome.Passed {
			return o.finish(hl, Result{
				Success:    true,
				Status:     StatusHealed,
				Attempts:   breaker.Attempts(),
				AppliedFix: fix,
			})
		}

		if stop, reason := analyzeProgress(breaker, detector); stop {
			return o.finish(hl, Result{
				Status:         StatusExhausted,
				Attempts:       breaker.Attempts(),
				AppliedFix:     lastFix,
				Reason:         reason,
				Recommendation: recommendFor(failure.Category, breaker.Attempts()),
			})
		}
	}

	// Loop exit means the breaker tripped.
	failure := Classify(firstFailure(outcome).Message, firstFailure(outcome).Stack)
	return o.finish(hl, Result{
		Status:         StatusExhausted,
		Attempts:       breaker.Attempts(),
		AppliedFix:     lastFix,
		Reason:         breaker.Reason(),
		Recommendation: recommendFor(failure.Category, breaker.Attempts()),
	})
}

// analyzeProgress decides whether the loop should stop early: circuit open,
// converged, a degrading or oscillating trend, or repeated stagnation.
func analyzeProgress(breaker *CircuitBreaker, detector *ConvergenceDetector) (bool, string) {
	if breaker.IsOpen() {
		return true, breaker.Reason()
	}
	// Converged means the error count hit zero, which the loop has already
	// turned into a healed result via outcome.Passed before reaching here; a
	// zero-error outcome that still fails verification cannot come out of the
	// runner adapter. Continue rather than guess at a status.
	if detector.Converged() {
		return false, ""
	}
	switch trend := detector.Trend(); trend {
	case TrendDegrading, TrendOscillating:
		return true, fmt.Sprintf("error counts are %s; escalating", trend)
	}
	if detector.StagnationCount() >= 2 {
		return true, "no progress across repeated attempts; escalating"
	}
	return false, ""
}

// finish stamps, persists and returns the terminal state. Log persistence is
// best-effort: a failed write degrades the result, never replaces it.
func (o *Orchestrator) finish(hl *HealingLog, res Result) Result {
	hl.FinishedAt = time.Now()
	hl.Status = res.Status
	hl.Reason = res.Reason
	hl.Recommendation = res.Recommendation
	res.Attempts = len(hl.Attempts)

	path, err := o.writeLog(hl)
	if err != nil {
		logging.HealingWarn("failed to persist healing log: %v", err)
	} else {
		res.LogPath = path
	}

	logging.Healing("journey %s session %s: %s after %d attempt(s)",
		hl.JourneyID, hl.SessionID, res.Status, res.Attempts)
	return res
}

// writeLog persists one HealingLog JSON per (journey, session), atomically.
func (o *Orchestrator) writeLog(hl *HealingLog) (string, error) {
	dir := o.cfg.LogDir
	if dir == "" {
		dir = filepath.Join(".journeykit", "healing")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	data, err := json.MarshalIndent(hl, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal healing log: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s-%s.json", hl.JourneyID, hl.SessionID))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write healing log: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to replace healing log: %w", err)
	}
	return path, nil
}

// recommendFor tailors the escalation advice to what kept failing.
func recommendFor(cat Category, attempts int) string {
	switch cat {
	case CategorySelector:
		return fmt.Sprintf("selector failures persisted across %d attempt(s); add a stable data-testid to the target element instead of retrying locator variants", attempts)
	case CategoryTiming:
		return "timing failures persisted; profile the page's slow requests rather than raising timeouts further"
	case CategoryNavigation:
		return "navigation kept failing; verify the environment's base URL and redirect configuration"
	case CategoryData:
		return "assertion values kept mismatching; reconcile the journey's expectations with the seeded test data"
	case CategoryScript:
		return "the generated code is repeatedly defective; re-resolve the journey and review blocked or synthesized steps"
	default:
		return suggestions[cat]
	}
}

// firstFailure returns the failure the classifier should look at; verify
// outcomes with no detail still classify (as unknown) instead of panicking.
func firstFailure(o VerifyOutcome) FailureDetail {
	if len(o.Failures) == 0 {
		return FailureDetail{}
	}
	return o.Failures[0]
}

// fingerprint collapses a verify outcome into a stable identity for repeat
// and oscillation detection.
func fingerprint(o VerifyOutcome) string {
	h := sha256.New()
	for _, f := range o.Failures {
		h.Write([]byte(f.Message))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
