// Package emotion scores a single note text for emotional signals: a
// valence/arousal pair, a six-category breakdown, an intensity scalar,
// contextual domain/trigger tags, and a first-half/second-half shift.
//
// The scorers are keyword heuristics over the lexicon tables, with no
// statistical model behind them. Malformed input never fails; every edge
// case degrades to a neutral or empty result.
package emotion

import (
	"math"
	"sort"
	"strings"

	"github.com/mullnote/mull/internal/lexicon"
	"github.com/mullnote/mull/internal/lingua"
)

// Category is one of the six scored emotion categories.
type Category string

const (
	Joy      Category = "joy"
	Sadness  Category = "sadness"
	Anger    Category = "anger"
	Fear     Category = "fear"
	Surprise Category = "surprise"
	Disgust  Category = "disgust"
)

// Categories is the fixed evaluation order; argmax ties keep the first hit.
var Categories = []Category{Joy, Sadness, Anger, Fear, Surprise, Disgust}

// Score is the valence/arousal pair for a text.
// Valence is -1.0..1.0, arousal 0.0..1.0. The zero value is neutral.
type Score struct {
	Valence float64
	Arousal float64
}

// MultiResult is the per-category emotion breakdown.
type MultiResult struct {
	Scores    map[Category]float64
	Primary   Category // "" when the text carries no emotion signal
	Secondary []Category
}

// Context holds the inferred life domains and trigger tags of a text.
type Context struct {
	Domains  []string // defaults to [general] when nothing matches
	Triggers []string // may be empty
}

// Shift reports a valence/arousal change between the first and second half
// of a multi-line text.
type Shift struct {
	Detected     bool
	ValenceShift float64
	ArousalShift float64
	Magnitude    float64
	FirstHalf    Score
	SecondHalf   Score
}

// shiftThreshold is the minimum |delta| on either axis to report a shift.
const shiftThreshold = 0.2

// secondaryCount is how many runner-up emotions MultipleEmotions reports.
const secondaryCount = 2

// Analyzer converts a text into a valence/arousal Score.
// Implementations must treat empty input as neutral, never as an error.
type Analyzer interface {
	Score(text string) Score
}

// BasicAnalyzer is the default lexicon-driven analyzer.
type BasicAnalyzer struct {
	lex    *lexicon.Lexicon
	tagger lingua.Tagger
}

// NewBasicAnalyzer builds an analyzer over the given lexicon.
func NewBasicAnalyzer(lex *lexicon.Lexicon) *BasicAnalyzer {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &BasicAnalyzer{lex: lex, tagger: lingua.DefaultTagger}
}

// Score returns the valence/arousal pair for text.
// Empty or whitespace-only text scores neutral {0, 0}.
func (a *BasicAnalyzer) Score(text string) Score {
	if strings.TrimSpace(text) == "" {
		return Score{}
	}
	return Score{
		Valence: a.valence(text),
		Arousal: a.arousal(text),
	}
}

// valence averages a per-line polarity estimate across non-empty lines.
// Each line scores (positive − negative) / (positive + negative) over
// lexicon hit counts; lines without hits are neutral.
func (a *BasicAnalyzer) valence(text string) float64 {
	lines := nonEmptyLines(text)
	if len(lines) == 0 {
		return 0
	}

	total := 0.0
	for _, line := range lines {
		pos := lingua.CountHits(line, a.lex.Valence.Positive)
		neg := lingua.CountHits(line, a.lex.Valence.Negative)
		if pos+neg == 0 {
			continue
		}
		total += float64(pos-neg) / float64(pos+neg)
	}
	return clamp(total/float64(len(lines)), -1, 1)
}

// arousal blends keyword polarity with a length factor. Without any
// high/low keyword hit the keyword term defaults to neutral 0.5.
func (a *BasicAnalyzer) arousal(text string) float64 {
	high := lingua.TokenHits(a.tagger, text, a.lex.Arousal.High)
	low := lingua.TokenHits(a.tagger, text, a.lex.Arousal.Low)

	keyword := 0.5
	if high+low > 0 {
		keyword = float64(high) / float64(high+low)
	}

	lengthFactor := math.Min(float64(len([]rune(text)))/500.0, 1.0)
	return clamp((keyword+lengthFactor)/2, 0, 1)
}

// MultipleEmotions scores all six categories, normalized by word count,
// then applies the negation-phrase adjustment to the joy/sadness pair.
func (a *BasicAnalyzer) MultipleEmotions(text string) MultiResult {
	result := MultiResult{Scores: make(map[Category]float64, len(Categories))}
	for _, cat := range Categories {
		result.Scores[cat] = 0
	}

	words := lingua.WordCount(text)
	if words == 0 {
		return result
	}

	for _, cat := range Categories {
		hits := lingua.CountHits(text, a.lex.Emotions[string(cat)])
		result.Scores[cat] = math.Min(float64(hits)/float64(words), 1.0)
	}

	// "not sad" lifts joy and suppresses sadness; "not happy" mirrors.
	if lingua.ContainsAny(text, a.lex.Negations.JoyUp) {
		result.Scores[Joy] = math.Min(result.Scores[Joy]+0.2, 1.0)
		result.Scores[Sadness] = math.Max(result.Scores[Sadness]-0.2, 0)
	}
	if lingua.ContainsAny(text, a.lex.Negations.JoyDown) {
		result.Scores[Joy] = math.Max(result.Scores[Joy]-0.2, 0)
		result.Scores[Sadness] = math.Min(result.Scores[Sadness]+0.2, 1.0)
	}

	// Primary is the argmax in fixed category order; ties keep the first.
	best := 0.0
	for _, cat := range Categories {
		if result.Scores[cat] > best {
			best = result.Scores[cat]
			result.Primary = cat
		}
	}
	if result.Primary == "" {
		return result
	}

	// Secondary: next-highest non-zero categories, descending.
	var rest []Category
	for _, cat := range Categories {
		if cat != result.Primary && result.Scores[cat] > 0 {
			rest = append(rest, cat)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return result.Scores[rest[i]] > result.Scores[rest[j]]
	})
	if len(rest) > secondaryCount {
		rest = rest[:secondaryCount]
	}
	result.Secondary = rest
	return result
}

// Intensity estimates emotional intensity from surface features:
// exclamation density, uppercase density, repeated-character runs, and
// intensifier keywords. Clamped to [0, 1].
func (a *BasicAnalyzer) Intensity(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	words := lingua.WordCount(text)
	if words == 0 {
		words = 1
	}

	exclamations := strings.Count(text, "!") + strings.Count(text, "！")
	exclamationDensity := float64(exclamations) / float64(words)

	upper, letters := 0, 0
	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			letters++
		} else if r >= 'A' && r <= 'Z' {
			letters++
			upper++
		}
	}
	uppercaseDensity := 0.0
	if letters > 0 {
		uppercaseDensity = float64(upper) / float64(letters)
	}

	repeats := repeatedRuns(text)
	intensifiers := lingua.CountHits(text, a.lex.Intensity)

	value := 0.3*exclamationDensity +
		0.3*uppercaseDensity +
		0.1*float64(repeats) +
		0.1*float64(intensifiers)
	return clamp(value, 0, 1)
}

// AnalyzeContext tags the text with life domains and triggers.
func (a *BasicAnalyzer) AnalyzeContext(text string) Context {
	ctx := Context{}

	var domains []string
	for name, kws := range a.lex.Domains {
		if lingua.ContainsAny(text, kws) {
			domains = append(domains, name)
		}
	}
	sort.Strings(domains)
	if len(domains) == 0 {
		domains = []string{"general"}
	}
	ctx.Domains = domains

	var triggers []string
	for name, kws := range a.lex.Triggers {
		if lingua.ContainsAny(text, kws) {
			triggers = append(triggers, name)
		}
	}
	sort.Strings(triggers)
	ctx.Triggers = triggers
	return ctx
}

// DetectShift splits a multi-line text at its midpoint and scores both
// halves independently. Texts with fewer than two non-empty lines never
// shift.
func (a *BasicAnalyzer) DetectShift(text string) Shift {
	lines := nonEmptyLines(text)
	if len(lines) < 2 {
		return Shift{}
	}

	mid := len(lines) / 2
	first := a.Score(strings.Join(lines[:mid], "\n"))
	second := a.Score(strings.Join(lines[mid:], "\n"))

	dv := second.Valence - first.Valence
	da := second.Arousal - first.Arousal

	return Shift{
		Detected:     math.Abs(dv) > shiftThreshold || math.Abs(da) > shiftThreshold,
		ValenceShift: dv,
		ArousalShift: da,
		Magnitude:    math.Hypot(dv, da),
		FirstHalf:    first,
		SecondHalf:   second,
	}
}

// ContextualAnalyzer layers trigger-aware adjustments on the basic scorer:
// conflict and deadline contexts pull valence down and arousal up,
// achievement contexts lift valence.
type ContextualAnalyzer struct {
	*BasicAnalyzer
}

// NewContextualAnalyzer builds the adjusted analyzer.
func NewContextualAnalyzer(lex *lexicon.Lexicon) *ContextualAnalyzer {
	return &ContextualAnalyzer{BasicAnalyzer: NewBasicAnalyzer(lex)}
}

// Score applies the contextual adjustment on top of the basic score.
func (c *ContextualAnalyzer) Score(text string) Score {
	base := c.BasicAnalyzer.Score(text)
	if strings.TrimSpace(text) == "" {
		return base
	}

	ctx := c.AnalyzeContext(text)
	for _, trigger := range ctx.Triggers {
		switch trigger {
		case "conflict", "deadline":
			base.Valence = clamp(base.Valence-0.1, -1, 1)
			base.Arousal = clamp(base.Arousal+0.1, 0, 1)
		case "achievement":
			base.Valence = clamp(base.Valence+0.1, -1, 1)
		}
	}
	return base
}

// --- helpers ---

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// repeatedRuns counts runs of three or more identical characters.
func repeatedRuns(text string) int {
	runes := []rune(text)
	runs := 0
	i := 0
	for i < len(runes) {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		if j-i >= 3 {
			runs++
		}
		i = j
	}
	return runs
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
