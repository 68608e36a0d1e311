// Package prune ranks notes by forgettability and deletes approved batches.
//
// The score is an uncapped sum of five weighted factors (age, low reference
// value, low content value, strongly negative tone, near-duplication), so a
// note flagged by several factors can exceed 1.0 and float to the top.
// Ranking never deletes anything; Execute is a separate, explicit step and
// removes its whole batch atomically or not at all.
package prune

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mullnote/mull/internal/lexicon"
	"github.com/mullnote/mull/internal/lingua"
	"github.com/mullnote/mull/internal/store"
)

// Candidate is one note proposed for deletion.
type Candidate struct {
	NoteID    string
	Title     string // first line, truncated for display
	Content   string
	CreatedAt time.Time
	Score     float64
	Reasons   []string
}

// Options tune the ranking pass.
type Options struct {
	// Threshold is the minimum score for a note to become a candidate.
	Threshold float64
	// Workers bounds the duplicate-scan goroutines. Zero means NumCPU.
	Workers int
	// Now anchors the age computation; zero means time.Now().
	Now time.Time
}

// DefaultThreshold is the standard candidate cutoff.
const DefaultThreshold = 0.6

// duplicateSimilarity is the word-overlap cutoff for near-duplicates.
const duplicateSimilarity = 0.8

// titleLimit caps the display title in runes.
const titleLimit = 40

// Factor display cutoffs: a factor appears in Reasons only when its
// contribution is at least this large.
const (
	reasonCutoffAge       = 0.4
	reasonCutoffReference = 0.3
	reasonCutoffValue     = 0.4
	reasonCutoffEmotion   = 0.3
	reasonCutoffDuplicate = 0.4
)

// Scorer ranks a note collection for pruning.
type Scorer struct {
	lex    *lexicon.Lexicon
	tagger lingua.Tagger
	opts   Options
}

// NewScorer builds a scorer. Zero option fields take defaults.
func NewScorer(lex *lexicon.Lexicon, opts Options) *Scorer {
	if lex == nil {
		lex = lexicon.Default()
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Scorer{lex: lex, tagger: lingua.DefaultTagger, opts: opts}
}

// Rank scores every note and returns the candidates at or above the
// threshold, highest score first. The input is never mutated.
func (s *Scorer) Rank(notes []*store.Note) []Candidate {
	now := s.opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	dups := s.duplicateCounts(notes)

	var candidates []Candidate
	for i, n := range notes {
		if n == nil {
			continue
		}
		score, reasons := s.score(n, now, dups[i])
		if score < s.opts.Threshold {
			continue
		}
		candidates = append(candidates, Candidate{
			NoteID:    n.ID,
			Title:     title(n.Text),
			Content:   n.Text,
			CreatedAt: n.CreatedAt,
			Score:     score,
			Reasons:   reasons,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// score sums the five factors for one note and collects display reasons.
func (s *Scorer) score(n *store.Note, now time.Time, duplicates int) (float64, []string) {
	total := 0.0
	var reasons []string

	days := int(now.Sub(n.CreatedAt).Hours() / 24)
	if age := ageFactor(days); age > 0 {
		total += age
		if age >= reasonCutoffAge {
			reasons = append(reasons, fmt.Sprintf("%d days old", days))
		}
	}
	if ref := s.referenceFactor(n); ref > 0 {
		total += ref
		if ref >= reasonCutoffReference {
			reasons = append(reasons, "short and untagged")
		}
	}
	if val := s.valueFactor(n); val > 0 {
		total += val
		if val >= reasonCutoffValue {
			reasons = append(reasons, "little content value")
		}
	}
	if emo := emotionFactor(n); emo > 0 {
		total += emo
		if emo >= reasonCutoffEmotion {
			reasons = append(reasons, "strongly negative tone")
		}
	}
	if dup := duplicateFactor(duplicates); dup > 0 {
		total += dup
		if dup >= reasonCutoffDuplicate {
			reasons = append(reasons, fmt.Sprintf("similar to %d other notes", duplicates))
		}
	}
	return total, reasons
}

// ageFactor grows stepwise with note age in days.
func ageFactor(days int) float64 {
	switch {
	case days > 365:
		return 0.8
	case days > 180:
		return 0.6
	case days > 90:
		return 0.4
	case days > 30:
		return 0.2
	default:
		return 0
	}
}

// referenceFactor marks notes unlikely to be looked up again: short texts
// with little or no tagging.
func (s *Scorer) referenceFactor(n *store.Note) float64 {
	length := len([]rune(n.Text))
	switch {
	case length < 50 && len(n.Tags) == 0:
		return 0.5
	case length < 100 && len(n.Tags) <= 1:
		return 0.3
	default:
		return 0
	}
}

// valueFactor marks notes with little substance.
func (s *Scorer) valueFactor(n *store.Note) float64 {
	text := strings.TrimSpace(n.Text)
	length := len([]rune(text))
	switch {
	case length == 0:
		return 0.8
	case length < 20:
		return 0.7
	case length < 50 && lingua.ContainsAny(text, s.lex.LowValue):
		return 0.6
	case length < 100 && len(n.Tags) == 0:
		return 0.4
	default:
		return 0
	}
}

// emotionFactor marks strongly negative notes whose retention may hurt.
func emotionFactor(n *store.Note) float64 {
	if n.Emotion == nil {
		return 0
	}
	switch {
	case n.Emotion.Valence < -0.7:
		return 0.6
	case n.Emotion.Valence < -0.4:
		return 0.3
	default:
		return 0
	}
}

func duplicateFactor(duplicates int) float64 {
	switch {
	case duplicates >= 3:
		return 0.7
	case duplicates >= 2:
		return 0.4
	default:
		return 0
	}
}

// duplicateCounts returns, per note, how many other notes overlap above the
// duplicate cutoff. The O(n²) comparison fans out over a bounded worker
// pool; each worker writes only its own index, so no locking is needed.
func (s *Scorer) duplicateCounts(notes []*store.Note) []int {
	counts := make([]int, len(notes))
	if len(notes) < 2 {
		return counts
	}

	sets := make([]map[string]struct{}, len(notes))
	for i, n := range notes {
		if n != nil {
			sets[i] = lingua.WordSet(s.tagger, n.Text)
		}
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	workers := s.opts.Workers
	if workers > len(notes) {
		workers = len(notes)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				count := 0
				for j := range sets {
					if j == i || sets[j] == nil {
						continue
					}
					if lingua.Jaccard(sets[i], sets[j]) > duplicateSimilarity {
						count++
					}
				}
				counts[i] = count
			}
		}()
	}
	for i := range notes {
		if sets[i] != nil {
			indexes <- i
		}
	}
	close(indexes)
	wg.Wait()
	return counts
}

// title is the display title: the first line, truncated.
func title(text string) string {
	line := text
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	runes := []rune(line)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit]) + "..."
	}
	return line
}

// NoteDeleter deletes a batch of notes atomically.
type NoteDeleter interface {
	DeleteNotes(ctx context.Context, ids []string) error
}

// Execute deletes every candidate in one batch. The batch succeeds or fails
// as a whole; an empty candidate list is a no-op.
func Execute(ctx context.Context, d NoteDeleter, candidates []Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.NoteID)
	}
	if err := d.DeleteNotes(ctx, ids); err != nil {
		return 0, fmt.Errorf("prune batch: %w", err)
	}
	return len(ids), nil
}
