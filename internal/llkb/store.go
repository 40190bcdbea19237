// Package llkb implements the learned-pattern knowledge store: persistent
// text-to-Action associations with statistically derived confidence,
// accumulated across runs. Patterns are created on first success, reinforced
// or weakened by later observations, promoted to core-library candidates once
// they prove themselves, and pruned when they age out without ever working.
//
// The store is a shared resource across concurrent CLI invocations,
// arbitrated by an advisory file lock. Reads go through a short-TTL cache
// invalidated on local write.
package llkb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"journeykit/internal/action"
	"journeykit/internal/config"
	"journeykit/internal/logging"
	"journeykit/internal/normalize"
	"journeykit/internal/resolver"
	"journeykit/internal/textmatch"
)

// Layer ranks where a learned pattern came from; app-specific knowledge
// outranks framework-level, which outranks universal, when fuzzy scores tie.
const (
	LayerApp       = "app"
	LayerFramework = "framework"
	LayerUniversal = "universal"
)

var layerPriority = map[string]int{
	LayerApp:       3,
	LayerFramework: 2,
	LayerUniversal: 1,
}

// LearnedPattern is one text-to-Action association with its track record.
// Confidence is always the Wilson lower bound of the success/fail counts;
// it is never written directly.
type LearnedPattern struct {
	ID             string        `json:"id"`
	Text           string        `json:"text"`       // original step text, first observation
	Normalized     string        `json:"normalized"` // lookup key
	Action         action.Action `json:"action"`
	Confidence     float64       `json:"confidence"`
	SuccessCount   int           `json:"successCount"`
	FailCount      int           `json:"failCount"`
	Sources        []string      `json:"sources"` // distinct journey ids
	Layer          string        `json:"layer"`
	CreatedAt      time.Time     `json:"createdAt"`
	LastUsed       time.Time     `json:"lastUsed"`
	PromotedToCore bool          `json:"promotedToCore"`
}

// storeFile is the on-disk JSON shape.
type storeFile struct {
	Version     int              `json:"version"`
	LastUpdated time.Time        `json:"lastUpdated"`
	Patterns    []LearnedPattern `json:"patterns"`
}

const storeVersion = 1

// initialConfidence is the score a pattern is born with, before the Wilson
// bound has enough observations to say anything.
const initialConfidence = 0.5

// Store is the learned pattern store. Safe for concurrent use within a
// process; cross-process safety is best-effort via the file lock.
type Store struct {
	mu   sync.Mutex
	path string
	cfg  config.LLKBConfig
	norm normalize.Options
	lock *fileLock

	// read cache
	cached   []LearnedPattern
	cachedAt time.Time
}

// resolver.LearnedSource is the consuming interface.
var _ resolver.LearnedSource = (*Store)(nil)

// NewStore opens (or lazily creates) the store at cfg.Path. norm must be the
// same normalization the resolver uses, or the keys written here will never
// match the keys it looks up.
func NewStore(cfg config.LLKBConfig, norm normalize.Options) *Store {
	return &Store{
		path: cfg.Path,
		cfg:  cfg,
		norm: norm,
		lock: newFileLock(cfg.Path, cfg.LockWait, cfg.LockPoll, cfg.LockStaleAge),
	}
}

// load reads all patterns, via the TTL cache unless fresh is set. A missing,
// corrupt or unreadable file is an empty store: the LLKB is an accelerator,
// never a single point of failure.
func (s *Store) load(fresh bool) []LearnedPattern {
	if !fresh && s.cached != nil && time.Since(s.cachedAt) < s.cfg.CacheTTL {
		return s.cached
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.LLKBWarn("unreadable store %s: %v; treating as empty", s.path, err)
		}
		s.cached = []LearnedPattern{}
		s.cachedAt = time.Now()
		return s.cached
	}

	var sf storeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		logging.LLKBWarn("corrupt store %s: %v; treating as empty", s.path, err)
		s.cached = []LearnedPattern{}
		s.cachedAt = time.Now()
		return s.cached
	}

	s.cached = sf.Patterns
	s.cachedAt = time.Now()
	return s.cached
}

// save writes the full pattern set atomically (temp file + rename) and
// invalidates the read cache.
func (s *Store) save(patterns []LearnedPattern) error {
	sf := storeFile{Version: storeVersion, LastUpdated: time.Now(), Patterns: patterns}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store: %w", err)
	}

	s.cached = nil // invalidate
	return nil
}

// mutate runs fn over the freshly loaded pattern set under the file lock and
// persists the result. Lock acquisition is best-effort.
func (s *Store) mutate(fn func(patterns []LearnedPattern) []LearnedPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked := s.lock.acquire()
	if locked {
		defer s.lock.release()
	}

	patterns := s.load(true)
	return s.save(fn(patterns))
}

// RecordSuccess registers that text resolved to act and the resulting test
// passed. An existing pattern for the same normalized text is reinforced;
// otherwise a new one is created at the initial confidence.
func (s *Store) RecordSuccess(text string, act action.Action, journeyID string) error {
	timer := logging.StartTimer(logging.CategoryLLKB, "RecordSuccess")
	defer timer.Stop()

	norm := normalize.NormalizeWith(text, s.norm)
	if norm == "" {
		return fmt.Errorf("empty step text")
	}

	return s.mutate(func(patterns []LearnedPattern) []LearnedPattern {
		now := time.Now()
		for i := range patterns {
			if patterns[i].Normalized != norm {
				continue
			}
			p := &patterns[i]
			p.SuccessCount++
			p.Confidence = WilsonLowerBound(p.SuccessCount, p.FailCount)
			p.LastUsed = now
			if !containsString(p.Sources, journeyID) {
				p.Sources = append(p.Sources, journeyID)
			}
			logging.LLKB("reinforced %s: success=%d fail=%d conf=%.3f",
				p.ID, p.SuccessCount, p.FailCount, p.Confidence)
			return patterns
		}

		p := LearnedPattern{
			ID:           uuid.NewString(),
			Text:         text,
			Normalized:   norm,
			Action:       act,
			Confidence:   initialConfidence,
			SuccessCount: 1,
			Sources:      []string{journeyID},
			Layer:        LayerApp,
			CreatedAt:    now,
			LastUsed:     now,
		}
		logging.LLKB("learned new pattern %s for %q", p.ID, norm)
		return append(patterns, p)
	})
}

// RecordFailure registers that the association for text led to a failing
// test. Only existing patterns are weakened; failures on unseen text carry no
// signal worth persisting.
func (s *Store) RecordFailure(text string, journeyID string) error {
	timer := logging.StartTimer(logging.CategoryLLKB, "RecordFailure")
	defer timer.Stop()

	norm := normalize.NormalizeWith(text, s.norm)

	return s.mutate(func(patterns []LearnedPattern) []LearnedPattern {
		now := time.Now()
		for i := range patterns {
			if patterns[i].Normalized != norm {
				continue
			}
			p := &patterns[i]
			p.FailCount++
			p.Confidence = WilsonLowerBound(p.SuccessCount, p.FailCount)
			p.LastUsed = now
			if !containsString(p.Sources, journeyID) {
				p.Sources = append(p.Sources, journeyID)
			}
			logging.LLKB("weakened %s: success=%d fail=%d conf=%.3f",
				p.ID, p.SuccessCount, p.FailCount, p.Confidence)
			break
		}
		return patterns
	})
}

// ExactMatch implements resolver.LearnedSource. Promoted patterns are
// excluded: once in the core library they must not double-match here.
func (s *Store) ExactMatch(norm string, minConfidence float64) (resolver.LearnedMatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.load(false) {
		if p.PromotedToCore || p.Normalized != norm {
			continue
		}
		if p.Confidence < minConfidence {
			return resolver.LearnedMatch{}, false
		}
		return resolver.LearnedMatch{
			Action:     p.Action,
			Confidence: p.Confidence,
			Similarity: 1,
			PatternID:  p.ID,
		}, true
	}
	return resolver.LearnedMatch{}, false
}

// FuzzyMatch implements resolver.LearnedSource: best confidence x similarity
// over non-promoted patterns at or above the similarity floor, ties broken by
// layer priority (app > framework > universal).
func (s *Store) FuzzyMatch(norm string, minSimilarity float64) (resolver.LearnedMatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best      resolver.LearnedMatch
		bestScore float64
		bestLayer int
		found     bool
	)

	for _, p := range s.load(false) {
		if p.PromotedToCore {
			continue
		}
		sim := textmatch.Similarity(norm, p.Normalized)
		if sim < minSimilarity {
			continue
		}
		score := p.Confidence * sim
		layer := layerPriority[p.Layer]
		if !found || score > bestScore || (score == bestScore && layer > bestLayer) {
			best = resolver.LearnedMatch{
				Action:     p.Action,
				Confidence: p.Confidence,
				Similarity: sim,
				PatternID:  p.ID,
			}
			bestScore = score
			bestLayer = layer
			found = true
		}
	}
	return best, found
}

// PromotablePattern pairs a pattern with the regular expression a core
// library entry would use for it (quoted text generalized to capture groups).
type PromotablePattern struct {
	Pattern LearnedPattern
	Regex   string
}

// GetPromotablePatterns returns patterns ready for core-library promotion:
// high confidence, proven success volume, observed from at least the
// configured number of distinct journeys, and not already promoted.
func (s *Store) GetPromotablePatterns() []PromotablePattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []PromotablePattern
	for _, p := range s.load(false) {
		if p.PromotedToCore {
			continue
		}
		if p.Confidence < s.cfg.PromoteConf ||
			p.SuccessCount < s.cfg.PromoteSucc ||
			len(p.Sources) < s.cfg.PromoteSrcMin {
			continue
		}
		out = append(out, PromotablePattern{Pattern: p, Regex: generalizeToRegex(p.Normalized)})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Pattern.Confidence > out[j].Pattern.Confidence
	})
	return out
}

// MarkPromoted flags a pattern as promoted. It stays in the store (its
// history is the promotion's audit trail) but no longer matches.
func (s *Store) MarkPromoted(id string) error {
	return s.mutate(func(patterns []LearnedPattern) []LearnedPattern {
		for i := range patterns {
			if patterns[i].ID == id {
				patterns[i].PromotedToCore = true
				logging.LLKB("promoted pattern %s (%q)", id, patterns[i].Normalized)
			}
		}
		return patterns
	})
}

// Prune removes patterns that are non-promoted, older than maxAgeDays, below
// minConfidence and below minSuccess successes — the ones that never earned
// their keep. Returns the number removed.
func (s *Store) Prune(maxAgeDays int, minConfidence float64, minSuccess int) (int, error) {
	removed := 0
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)

	err := s.mutate(func(patterns []LearnedPattern) []LearnedPattern {
		kept := patterns[:0]
		for _, p := range patterns {
			prunable := !p.PromotedToCore &&
				p.LastUsed.Before(cutoff) &&
				p.Confidence < minConfidence &&
				p.SuccessCount < minSuccess
			if prunable {
				removed++
				logging.LLKB("pruned %s (%q): conf=%.3f success=%d age=%v",
					p.ID, p.Normalized, p.Confidence, p.SuccessCount, time.Since(p.LastUsed))
				continue
			}
			kept = append(kept, p)
		}
		return kept
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Clear removes every pattern. Explicit, destructive, CLI-only.
func (s *Store) Clear() error {
	return s.mutate(func([]LearnedPattern) []LearnedPattern {
		logging.LLKB("store cleared")
		return nil
	})
}

// All returns a copy of every stored pattern (diagnostics, CLI listing).
func (s *Store) All() []LearnedPattern {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.load(false)
	out := make([]LearnedPattern, len(src))
	copy(out, src)
	return out
}

// Stats summarizes the store for the CLI.
func (s *Store) Stats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	patterns := s.load(false)
	promoted := 0
	var confSum float64
	for _, p := range patterns {
		if p.PromotedToCore {
			promoted++
		}
		confSum += p.Confidence
	}

	stats := map[string]interface{}{
		"total":    len(patterns),
		"promoted": promoted,
		"path":     s.path,
	}
	if len(patterns) > 0 {
		stats["avg_confidence"] = confSum / float64(len(patterns))
	}
	return stats
}

// generalizeToRegex turns a normalized pattern text into a matching regex:
// literal text is quoted, quoted substrings become capture groups.
func generalizeToRegex(norm string) string {
	var b strings.Builder
	b.WriteString("^")

	rest := norm
	quoteRe := regexp.MustCompile(`'[^']*'|"[^"]*"`)
	for {
		loc := quoteRe.FindStringIndex(rest)
		if loc == nil {
			b.WriteString(regexp.QuoteMeta(rest))
			break
		}
		b.WriteString(regexp.QuoteMeta(rest[:loc[0]]))
		b.WriteString(`['"]([^'"]+)['"]`)
		rest = rest[loc[1]:]
	}

	b.WriteString("$")
	return b.String()
}

func containsString(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}
