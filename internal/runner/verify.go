package runner

import (
	"context"
	"path/filepath"

	"journeykit/internal/healing"
)

// VerifyAdapter exposes a Runner as the healing loop's external verify step.
type VerifyAdapter struct {
	runner  *Runner
	specDir string
}

func NewVerifyAdapter(r *Runner, specDir string) *VerifyAdapter {
	return &VerifyAdapter{runner: r, specDir: specDir}
}

// Verify implements healing.Verifier. The runner consumes no model tokens, so
// TokensUsed stays zero and the breaker's token budget only binds when a
// token-spending applier reports usage elsewhere.
func (v *VerifyAdapter) Verify(ctx context.Context, journeyID string) (healing.VerifyOutcome, error) {
	res, err := v.runner.Run(ctx, filepath.Join(v.specDir, journeyID+".spec.ts"))
	if err != nil {
		return healing.VerifyOutcome{}, err
	}

	out := healing.VerifyOutcome{Passed: res.Status == StatusPassed}
	for _, e := range res.Errors {
		out.Failures = append(out.Failures, healing.FailureDetail{
			Message:  e.Message,
			Stack:    e.Stack,
			Location: e.Location,
			Snippet:  e.Snippet,
		})
	}
	return out, nil
}
