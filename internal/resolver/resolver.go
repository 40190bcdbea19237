package resolver

import (
	"journeykit/internal/action"
	"journeykit/internal/config"
	"journeykit/internal/logging"
	"journeykit/internal/normalize"
	"journeykit/internal/textmatch"
)

// Source records which tier produced a resolution.
type Source string

const (
	SourceCore        Source = "core"        // deterministic pattern library
	SourceLearned     Source = "learned"     // learned pattern store
	SourceCorpus      Source = "corpus"      // curated example, strict extraction
	SourceSynthesized Source = "synthesized" // curated example, generic synthesis
	SourceBlocked     Source = "blocked"     // nothing cleared a threshold
)

// Resolution is one resolved step with provenance.
type Resolution struct {
	Action     action.Action `json:"action"`
	Source     Source        `json:"source"`
	Pattern    string        `json:"pattern,omitempty"`    // pattern name / learned id / corpus text
	Confidence float64       `json:"confidence,omitempty"` // learned tier only
	Similarity float64       `json:"similarity,omitempty"` // fuzzy tiers only
	Normalized string        `json:"normalized"`
}

// LearnedMatch is what the learned store hands back for a lookup.
type LearnedMatch struct {
	Action     action.Action
	Confidence float64
	Similarity float64
	PatternID  string
}

// LearnedSource is the learned pattern store as the resolver sees it. A nil
// source is legal (resolution proceeds core -> corpus).
type LearnedSource interface {
	// ExactMatch looks up the normalized text verbatim, subject to the
	// minimum confidence.
	ExactMatch(norm string, minConfidence float64) (LearnedMatch, bool)
	// FuzzyMatch finds the best non-promoted pattern with similarity at or
	// above the threshold, scored by confidence x similarity.
	FuzzyMatch(norm string, minSimilarity float64) (LearnedMatch, bool)
}

// Resolver tries Core -> Learned -> curated corpus, in that order, and
// returns the first accepted Action plus provenance. It never fails: the
// worst case is a blocked Action.
type Resolver struct {
	cfg        config.ResolverConfig
	lib        *Library
	learned    LearnedSource
	corpus     []CorpusExample
	corpusNorm []string
}

// New builds a resolver. learned may be nil.
func New(cfg config.ResolverConfig, learned LearnedSource) *Resolver {
	return &Resolver{
		cfg:        cfg,
		lib:        NewLibrary(),
		learned:    learned,
		corpus:     curatedCorpus,
		corpusNorm: corpusTexts(normalize.Options{DropStopWords: cfg.DropStopWords}),
	}
}

// Resolve maps one step to an Action. Inline hints on the step are merged
// into the result and override pattern inference; a blocked result ignores
// hints (there is nothing to merge them into).
func (r *Resolver) Resolve(step action.Step) Resolution {
	timer := logging.StartTimer(logging.CategoryResolver, "Resolve")
	defer timer.Stop()

	norm := normalize.NormalizeWith(step.Text, normalize.Options{DropStopWords: r.cfg.DropStopWords})

	// Tier 1: core library. A core match wins outright.
	if a, name := r.lib.Match(norm); a != nil {
		logging.Resolver("core: %q -> %s (pattern=%s)", step.Text, a.Type, name)
		return Resolution{
			Action:     action.ApplyHints(*a, step),
			Source:     SourceCore,
			Pattern:    name,
			Normalized: norm,
		}
	}

	// Tier 2: learned store, exact then fuzzy.
	if r.learned != nil {
		if m, ok := r.learned.ExactMatch(norm, r.cfg.MinLearnedConfidence); ok {
			logging.Resolver("learned exact: %q -> %s (conf=%.2f)", step.Text, m.Action.Type, m.Confidence)
			return Resolution{
				Action:     action.ApplyHints(m.Action, step),
				Source:     SourceLearned,
				Pattern:    m.PatternID,
				Confidence: m.Confidence,
				Similarity: 1,
				Normalized: norm,
			}
		}
		if m, ok := r.learned.FuzzyMatch(norm, r.cfg.FuzzyLearnedThreshold); ok {
			logging.Resolver("learned fuzzy: %q -> %s (conf=%.2f sim=%.2f)",
				step.Text, m.Action.Type, m.Confidence, m.Similarity)
			return Resolution{
				Action:     action.ApplyHints(m.Action, step),
				Source:     SourceLearned,
				Pattern:    m.PatternID,
				Confidence: m.Confidence,
				Similarity: m.Similarity,
				Normalized: norm,
			}
		}
	}

	// Tier 3: curated corpus. Strict extraction only at near-verbatim
	// similarity; below that a generic action is synthesized from the step's
	// own quoted substrings and verbs.
	if best, ok := textmatch.Best(norm, r.corpusNorm); ok && best.Similarity >= r.cfg.CorpusThreshold {
		if best.Similarity >= r.cfg.CorpusStrictThreshold {
			lits := normalize.QuotedLiterals(norm)
			if a := r.corpus[best.Index].Build(lits); a != nil {
				logging.Resolver("corpus strict: %q ~ %q (sim=%.3f)", step.Text, best.Text, best.Similarity)
				return Resolution{
					Action:     action.ApplyHints(*a, step),
					Source:     SourceCorpus,
					Pattern:    r.corpus[best.Index].Text,
					Similarity: best.Similarity,
					Normalized: norm,
				}
			}
		}
		if a := synthesizeGeneric(norm); a != nil {
			logging.Resolver("corpus synthesized: %q ~ %q (sim=%.3f)", step.Text, best.Text, best.Similarity)
			return Resolution{
				Action:     action.ApplyHints(*a, step),
				Source:     SourceSynthesized,
				Pattern:    r.corpus[best.Index].Text,
				Similarity: best.Similarity,
				Normalized: norm,
			}
		}
	}

	// Nothing cleared a threshold: blocked, with a concrete rewrite
	// suggestion. Still an Action - codegen renders it as a guaranteed
	// failure, so the gap is visible at run time, not swallowed here.
	blocked := blockStep(step, norm)
	logging.Resolver("blocked: %q (%s)", step.Text, blocked.Reason)
	return Resolution{
		Action:     blocked,
		Source:     SourceBlocked,
		Normalized: norm,
	}
}

// ResolveAll resolves a journey's steps in order.
func (r *Resolver) ResolveAll(steps []action.Step) []Resolution {
	out := make([]Resolution, len(steps))
	for i, s := range steps {
		out[i] = r.Resolve(s)
	}
	return out
}
