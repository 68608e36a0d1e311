// Package lexicon holds the keyword tables driving every mull scorer.
//
// Keyword lists are data, not logic: the embedded defaults ship English and
// Japanese vocabulary, and any list can be extended or replaced from a YAML
// file without touching scoring code.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Lexicon is the full set of keyword tables. All entries are matched
// case-insensitively as substrings.
type Lexicon struct {
	Valence struct {
		Positive []string `yaml:"positive"`
		Negative []string `yaml:"negative"`
	} `yaml:"valence"`

	Arousal struct {
		High []string `yaml:"high"`
		Low  []string `yaml:"low"`
	} `yaml:"arousal"`

	// Emotions maps each emotion category name (joy, sadness, anger,
	// fear, surprise, disgust) to its keyword list.
	Emotions map[string][]string `yaml:"emotions"`

	Negations struct {
		JoyUp   []string `yaml:"joy_up"`   // phrases that negate sadness ("not sad")
		JoyDown []string `yaml:"joy_down"` // phrases that negate joy ("not happy")
	} `yaml:"negations"`

	Intensity []string `yaml:"intensity"`

	Domains  map[string][]string `yaml:"domains"`
	Triggers map[string][]string `yaml:"triggers"`

	Bias struct {
		Extreme         []string `yaml:"extreme"`
		Contrast        []string `yaml:"contrast"`
		Recency         []string `yaml:"recency"`
		Charged         []string `yaml:"charged"`
		Opinion         []string `yaml:"opinion"`
		Comparison      []string `yaml:"comparison"`
		FirstImpression []string `yaml:"first_impression"`
		Loss            []string `yaml:"loss"`
		RiskAvoidance   []string `yaml:"risk_avoidance"`
		Investment      []string `yaml:"investment"`
		Continuation    []string `yaml:"continuation"`
		PastDecision    []string `yaml:"past_decision"`
	} `yaml:"bias"`

	LowValue []string `yaml:"low_value"`
}

// Default returns the embedded bilingual lexicon.
func Default() *Lexicon {
	lex, err := parse(defaultsYAML)
	if err != nil {
		// The embedded defaults are validated by tests; a parse failure
		// here is a build defect, not a runtime condition.
		panic(fmt.Sprintf("lexicon: embedded defaults invalid: %v", err))
	}
	return lex
}

// Load reads a lexicon overlay from path and merges it over the embedded
// defaults. Lists present in the file replace the default list wholesale;
// absent lists keep their defaults. An empty path returns the defaults.
func Load(path string) (*Lexicon, error) {
	base := Default()
	if strings.TrimSpace(path) == "" {
		return base, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon %s: %w", path, err)
	}
	overlay, err := parse(b)
	if err != nil {
		return nil, fmt.Errorf("parsing lexicon %s: %w", path, err)
	}

	merge(base, overlay)
	return base, nil
}

func parse(b []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(b, &lex); err != nil {
		return nil, err
	}
	normalize(&lex)
	return &lex, nil
}

// normalize lowercases and trims every keyword so scorers can match
// against pre-lowered text directly.
func normalize(lex *Lexicon) {
	lower := func(list []string) []string {
		out := make([]string, 0, len(list))
		for _, kw := range list {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				out = append(out, kw)
			}
		}
		return out
	}
	lowerMap := func(m map[string][]string) {
		for k, v := range m {
			m[k] = lower(v)
		}
	}

	lex.Valence.Positive = lower(lex.Valence.Positive)
	lex.Valence.Negative = lower(lex.Valence.Negative)
	lex.Arousal.High = lower(lex.Arousal.High)
	lex.Arousal.Low = lower(lex.Arousal.Low)
	lowerMap(lex.Emotions)
	lex.Negations.JoyUp = lower(lex.Negations.JoyUp)
	lex.Negations.JoyDown = lower(lex.Negations.JoyDown)
	lex.Intensity = lower(lex.Intensity)
	lowerMap(lex.Domains)
	lowerMap(lex.Triggers)
	lex.Bias.Extreme = lower(lex.Bias.Extreme)
	lex.Bias.Contrast = lower(lex.Bias.Contrast)
	lex.Bias.Recency = lower(lex.Bias.Recency)
	lex.Bias.Charged = lower(lex.Bias.Charged)
	lex.Bias.Opinion = lower(lex.Bias.Opinion)
	lex.Bias.Comparison = lower(lex.Bias.Comparison)
	lex.Bias.FirstImpression = lower(lex.Bias.FirstImpression)
	lex.Bias.Loss = lower(lex.Bias.Loss)
	lex.Bias.RiskAvoidance = lower(lex.Bias.RiskAvoidance)
	lex.Bias.Investment = lower(lex.Bias.Investment)
	lex.Bias.Continuation = lower(lex.Bias.Continuation)
	lex.Bias.PastDecision = lower(lex.Bias.PastDecision)
	lex.LowValue = lower(lex.LowValue)
}

// merge overlays non-empty lists from src onto dst.
func merge(dst, src *Lexicon) {
	replace := func(dstList *[]string, srcList []string) {
		if len(srcList) > 0 {
			*dstList = srcList
		}
	}
	replaceMap := func(dstMap map[string][]string, srcMap map[string][]string) {
		for k, v := range srcMap {
			if len(v) > 0 {
				dstMap[k] = v
			}
		}
	}

	replace(&dst.Valence.Positive, src.Valence.Positive)
	replace(&dst.Valence.Negative, src.Valence.Negative)
	replace(&dst.Arousal.High, src.Arousal.High)
	replace(&dst.Arousal.Low, src.Arousal.Low)
	replaceMap(dst.Emotions, src.Emotions)
	replace(&dst.Negations.JoyUp, src.Negations.JoyUp)
	replace(&dst.Negations.JoyDown, src.Negations.JoyDown)
	replace(&dst.Intensity, src.Intensity)
	replaceMap(dst.Domains, src.Domains)
	replaceMap(dst.Triggers, src.Triggers)
	replace(&dst.Bias.Extreme, src.Bias.Extreme)
	replace(&dst.Bias.Contrast, src.Bias.Contrast)
	replace(&dst.Bias.Recency, src.Bias.Recency)
	replace(&dst.Bias.Charged, src.Bias.Charged)
	replace(&dst.Bias.Opinion, src.Bias.Opinion)
	replace(&dst.Bias.Comparison, src.Bias.Comparison)
	replace(&dst.Bias.FirstImpression, src.Bias.FirstImpression)
	replace(&dst.Bias.Loss, src.Bias.Loss)
	replace(&dst.Bias.RiskAvoidance, src.Bias.RiskAvoidance)
	replace(&dst.Bias.Investment, src.Bias.Investment)
	replace(&dst.Bias.Continuation, src.Bias.Continuation)
	replace(&dst.Bias.PastDecision, src.Bias.PastDecision)
	replace(&dst.LowValue, src.LowValue)
}
