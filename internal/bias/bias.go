// Package bias evaluates a whole note collection for five cognitive-bias
// proxy signals: confirmation, availability, anchoring, loss aversion, and
// sunk cost. Each signal is a weighted keyword heuristic scored in [0, 1].
//
// Every detector has a minimum corpus size; below it the signal scores 0.0
// rather than failing. The evaluator never mutates its input.
package bias

import (
	"math"

	"github.com/mullnote/mull/internal/lexicon"
	"github.com/mullnote/mull/internal/lingua"
	"github.com/mullnote/mull/internal/store"
)

// Signal names one of the evaluated cognitive-bias proxies.
type Signal string

const (
	Confirmation Signal = "confirmation"
	Availability Signal = "availability"
	Anchoring    Signal = "anchoring"
	LossAversion Signal = "loss_aversion"
	SunkCost     Signal = "sunk_cost"
)

// Signals is the full signal set in reporting order.
var Signals = []Signal{Confirmation, Availability, Anchoring, LossAversion, SunkCost}

const (
	// minNotes is the corpus floor for most detectors.
	minNotes = 3
	// minNotesAvailability is the higher floor for the availability signal.
	minNotesAvailability = 5
	// minScoredForConsistency gates the emotional-consistency term.
	minScoredForConsistency = 3
	// negativeValenceCutoff marks a note as negative for loss aversion.
	negativeValenceCutoff = -0.2
)

// Evaluator scores note collections against the bias keyword tables.
type Evaluator struct {
	lex *lexicon.Lexicon
}

// NewEvaluator builds an evaluator over the given lexicon.
func NewEvaluator(lex *lexicon.Lexicon) *Evaluator {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Evaluator{lex: lex}
}

// Evaluate scores the collection for every signal. The result always
// contains all five keys; unmet preconditions contribute 0.0.
func (e *Evaluator) Evaluate(notes []*store.Note) map[Signal]float64 {
	content := withText(notes)

	result := map[Signal]float64{
		Confirmation: 0,
		Availability: 0,
		Anchoring:    0,
		LossAversion: 0,
		SunkCost:     0,
	}
	if len(content) >= minNotes {
		result[Confirmation] = e.confirmation(content)
		result[Anchoring] = e.anchoring(content)
		result[LossAversion] = e.lossAversion(content)
		result[SunkCost] = e.sunkCost(content)
	}
	if len(content) >= minNotesAvailability {
		result[Availability] = e.availability(content)
	}
	return result
}

// confirmation weighs absolutist vocabulary, contrastive conjunctions, and
// how one-sided the corpus's attached valence signs are.
func (e *Evaluator) confirmation(notes []*store.Note) float64 {
	score := e.frequency(notes, e.lex.Bias.Extreme)*0.3 +
		e.frequency(notes, e.lex.Bias.Contrast)*0.2

	positive, negative, scored := 0, 0, 0
	for _, n := range notes {
		if n.Emotion == nil {
			continue
		}
		scored++
		if n.Emotion.Valence > 0 {
			positive++
		} else if n.Emotion.Valence < 0 {
			negative++
		}
	}
	if scored >= minScoredForConsistency {
		consistency := float64(maxInt(positive, negative)) / float64(scored)
		score += consistency * 0.5
	}
	return clamp01(score)
}

// availability weighs recency framing, emotionally charged vocabulary, and
// first-person opinion markers.
func (e *Evaluator) availability(notes []*store.Note) float64 {
	return clamp01(
		e.frequency(notes, e.lex.Bias.Recency)*0.4 +
			e.frequency(notes, e.lex.Bias.Charged)*0.3 +
			e.frequency(notes, e.lex.Bias.Opinion)*0.3)
}

// anchoring looks at how tightly the first numbers mentioned across notes
// cluster, plus comparison and first-impression vocabulary.
func (e *Evaluator) anchoring(notes []*store.Note) float64 {
	var numbers []float64
	for _, n := range notes {
		if v, ok := lingua.FirstNumber(n.Text); ok {
			numbers = append(numbers, float64(v))
		}
	}

	score := 0.0
	if len(numbers) >= 2 {
		consistency := 1 - math.Min(1, variance(numbers)/100)
		score += consistency * 0.4
	}
	score += e.frequency(notes, e.lex.Bias.Comparison)*0.3 +
		e.frequency(notes, e.lex.Bias.FirstImpression)*0.3
	return clamp01(score)
}

// lossAversion weighs loss vocabulary, risk-avoidance vocabulary, and the
// fraction of scored notes carrying clearly negative valence.
func (e *Evaluator) lossAversion(notes []*store.Note) float64 {
	score := e.frequency(notes, e.lex.Bias.Loss)*0.4 +
		e.frequency(notes, e.lex.Bias.RiskAvoidance)*0.3

	negative, scored := 0, 0
	for _, n := range notes {
		if n.Emotion == nil {
			continue
		}
		scored++
		if n.Emotion.Valence < negativeValenceCutoff {
			negative++
		}
	}
	if scored > 0 {
		score += float64(negative) / float64(scored) * 0.3
	}
	return clamp01(score)
}

// sunkCost weighs investment, continuation, and past-decision vocabulary.
func (e *Evaluator) sunkCost(notes []*store.Note) float64 {
	return clamp01(
		e.frequency(notes, e.lex.Bias.Investment)*0.3 +
			e.frequency(notes, e.lex.Bias.Continuation)*0.3 +
			e.frequency(notes, e.lex.Bias.PastDecision)*0.4)
}

// frequency is total keyword hits across all notes, normalized by note count.
func (e *Evaluator) frequency(notes []*store.Note, keywords []string) float64 {
	hits := 0
	for _, n := range notes {
		hits += lingua.CountHits(n.Text, keywords)
	}
	return float64(hits) / float64(len(notes))
}

func withText(notes []*store.Note) []*store.Note {
	out := make([]*store.Note, 0, len(notes))
	for _, n := range notes {
		if n != nil && len(n.Text) > 0 && hasContent(n.Text) {
			out = append(out, n)
		}
	}
	return out
}

func hasContent(text string) bool {
	for _, r := range text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// variance is the population variance of values.
func variance(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
