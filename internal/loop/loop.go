// Package loop detects recurring "thought loops": clusters of notes that
// express a similar concern within a bounded time window.
//
// Clustering is greedy and single-pass inside each window: every unprocessed
// note seeds a candidate cluster and sweeps the later notes once. A seed
// whose cluster falls below the minimum size is still marked processed and
// never revisited, which keeps the pass O(n²) rather than transitive.
//
// Clusters are recomputed from scratch on every run; IDs are derived from
// the member set so identical input yields identical output.
package loop

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mullnote/mull/internal/lingua"
	"github.com/mullnote/mull/internal/store"
)

// Cluster is one detected thought loop.
type Cluster struct {
	ID        string
	NoteIDs   []string // at least MinClusterSize members
	Topic     string
	Strength  float64 // 0..1
	CreatedAt time.Time
}

// Options tune the clustering pass.
type Options struct {
	MinClusterSize      int
	MaxTimeWindow       time.Duration
	SimilarityThreshold float64
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		MinClusterSize:      2,
		MaxTimeWindow:       7 * 24 * time.Hour,
		SimilarityThreshold: 0.7,
	}
}

// unknownTopic is the fallback when no member yields a topic phrase.
const unknownTopic = "Unknown Topic"

// lengthRatioGuard forces similarity to zero when the shorter text is under
// this fraction of the longer one.
const lengthRatioGuard = 0.3

// Clusterer runs the windowed greedy clustering pass.
type Clusterer struct {
	opts   Options
	tagger lingua.Tagger
}

// NewClusterer builds a clusterer. A nil tagger uses the default heuristic
// tagger; zero option fields fall back to DefaultOptions.
func NewClusterer(opts Options, tagger lingua.Tagger) *Clusterer {
	def := DefaultOptions()
	if opts.MinClusterSize <= 0 {
		opts.MinClusterSize = def.MinClusterSize
	}
	if opts.MaxTimeWindow <= 0 {
		opts.MaxTimeWindow = def.MaxTimeWindow
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = def.SimilarityThreshold
	}
	if tagger == nil {
		tagger = lingua.DefaultTagger
	}
	return &Clusterer{opts: opts, tagger: tagger}
}

// candidate caches the per-note token sets the similarity metric needs.
type candidate struct {
	note  *store.Note
	chars int
	words map[string]struct{}
	nouns map[string]struct{}
	verbs map[string]struct{}
}

// Cluster groups the collection into thought loops, strongest first.
// Too little data yields an empty result, never an error.
func (c *Clusterer) Cluster(notes []*store.Note) []Cluster {
	candidates := c.prepare(notes)
	if len(candidates) < c.opts.MinClusterSize {
		return nil
	}

	var clusters []Cluster
	for _, window := range c.windows(candidates) {
		clusters = append(clusters, c.clusterWindow(window)...)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Strength > clusters[j].Strength
	})
	return clusters
}

// prepare filters to text-authored notes with content, sorts by creation
// time ascending, and precomputes token sets.
func (c *Clusterer) prepare(notes []*store.Note) []*candidate {
	var out []*candidate
	for _, n := range notes {
		if n == nil || n.Modality != store.ModalityText {
			continue
		}
		if strings.TrimSpace(n.Text) == "" {
			continue
		}
		nouns, verbs := lingua.ClassSets(c.tagger, n.Text)
		out = append(out, &candidate{
			note:  n,
			chars: len([]rune(n.Text)),
			words: lingua.WordSet(c.tagger, n.Text),
			nouns: nouns,
			verbs: verbs,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].note.CreatedAt.Before(out[j].note.CreatedAt)
	})
	return out
}

// windows splits the sorted candidates wherever the gap to the previous
// note exceeds MaxTimeWindow. Windows below MinClusterSize are dropped.
func (c *Clusterer) windows(candidates []*candidate) [][]*candidate {
	var windows [][]*candidate
	var current []*candidate

	for i, cand := range candidates {
		if i > 0 {
			gap := cand.note.CreatedAt.Sub(candidates[i-1].note.CreatedAt)
			if gap > c.opts.MaxTimeWindow {
				if len(current) >= c.opts.MinClusterSize {
					windows = append(windows, current)
				}
				current = nil
			}
		}
		current = append(current, cand)
	}
	if len(current) >= c.opts.MinClusterSize {
		windows = append(windows, current)
	}
	return windows
}

// clusterWindow runs the greedy single-pass sweep over one window.
func (c *Clusterer) clusterWindow(window []*candidate) []Cluster {
	processed := make([]bool, len(window))
	var clusters []Cluster

	for i := range window {
		if processed[i] {
			continue
		}
		members := []*candidate{window[i]}
		for j := i + 1; j < len(window); j++ {
			if processed[j] {
				continue
			}
			if c.similarity(window[i], window[j]) >= c.opts.SimilarityThreshold {
				members = append(members, window[j])
				processed[j] = true
			}
		}
		// The seed is spent either way; a rejected seed is not revisited.
		processed[i] = true

		if len(members) >= c.opts.MinClusterSize {
			clusters = append(clusters, c.build(members))
		}
	}
	return clusters
}

// similarity is the weighted note-pair metric:
// 0.4 keyword Jaccard + 0.4 semantic (noun/verb Jaccard) + 0.2 temporal.
func (c *Clusterer) similarity(a, b *candidate) float64 {
	shorter, longer := a.chars, b.chars
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if longer == 0 || float64(shorter)/float64(longer) < lengthRatioGuard {
		return 0
	}

	keyword := lingua.Jaccard(a.words, b.words)
	semantic := (lingua.Jaccard(a.nouns, b.nouns) + lingua.Jaccard(a.verbs, b.verbs)) / 2
	temporal := temporalSimilarity(a.note.CreatedAt, b.note.CreatedAt)

	sim := keyword*0.4 + semantic*0.4 + temporal*0.2
	if sim > 1 {
		return 1
	}
	if sim < 0 {
		return 0
	}
	return sim
}

func temporalSimilarity(a, b time.Time) float64 {
	gap := a.Sub(b)
	if gap < 0 {
		gap = -gap
	}
	switch {
	case gap <= 24*time.Hour:
		return 1.0
	case gap <= 7*24*time.Hour:
		return 0.5
	default:
		return 0
	}
}

// build assembles the Cluster record for a member set (sorted ascending by
// creation time, seed first among equals).
func (c *Clusterer) build(members []*candidate) Cluster {
	ids := make([]string, 0, len(members))
	earliest := members[0].note.CreatedAt
	latest := members[0].note.CreatedAt
	for _, m := range members {
		ids = append(ids, m.note.ID)
		if m.note.CreatedAt.Before(earliest) {
			earliest = m.note.CreatedAt
		}
		if m.note.CreatedAt.After(latest) {
			latest = m.note.CreatedAt
		}
	}

	return Cluster{
		ID:        clusterID(ids),
		NoteIDs:   ids,
		Topic:     c.topic(members),
		Strength:  c.strength(members, earliest, latest),
		CreatedAt: earliest,
	}
}

// clusterID derives a stable UUID from the member set, so reruns over the
// same collection produce identical clusters.
func clusterID(ids []string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(ids, "|"))).String()
}

// topic is the first member topic phrase (up to 3 noun/adjective tokens).
func (c *Clusterer) topic(members []*candidate) string {
	for _, m := range members {
		if phrase := lingua.TopicPhrase(c.tagger, m.note.Text, 3); phrase != "" {
			return phrase
		}
	}
	return unknownTopic
}

// strength combines normalized member count, time concentration (the
// expected one-note-per-day span against the observed span), and average
// pairwise member similarity.
func (c *Clusterer) strength(members []*candidate, earliest, latest time.Time) float64 {
	count := len(members)

	countScore := math.Min(float64(count)/10.0, 1.0)

	concentration := 1.0
	if span := latest.Sub(earliest); span > 0 {
		expected := time.Duration(count) * 24 * time.Hour
		concentration = math.Min(float64(expected)/float64(span), 1.0)
	}

	pairs, total := 0, 0.0
	for i := 0; i < len(members)-1; i++ {
		for j := i + 1; j < len(members); j++ {
			total += c.similarity(members[i], members[j])
			pairs++
		}
	}
	cohesion := 0.0
	if pairs > 0 {
		cohesion = total / float64(pairs)
	}

	return countScore*0.4 + concentration*0.3 + cohesion*0.3
}
