// Package engine wires the scorers to the note store. It is the single
// caller surface shared by the CLI and the MCP server: capture goes through
// here so every stored note carries an emotion score, and the batch analyses
// always run over the same store snapshot.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mullnote/mull/internal/bias"
	"github.com/mullnote/mull/internal/emotion"
	"github.com/mullnote/mull/internal/lexicon"
	"github.com/mullnote/mull/internal/loop"
	"github.com/mullnote/mull/internal/prune"
	"github.com/mullnote/mull/internal/store"
)

// Engine coordinates the store and the analysis components.
type Engine struct {
	store    store.Store
	analyzer emotion.Analyzer
	basic    *emotion.BasicAnalyzer
	biases   *bias.Evaluator
	loops    *loop.Clusterer
	pruner   *prune.Scorer
}

// New builds an engine over the given store and lexicon. A nil lexicon uses
// the embedded defaults.
func New(st store.Store, lex *lexicon.Lexicon) *Engine {
	if lex == nil {
		lex = lexicon.Default()
	}
	return &Engine{
		store:    st,
		analyzer: emotion.NewContextualAnalyzer(lex),
		basic:    emotion.NewBasicAnalyzer(lex),
		biases:   bias.NewEvaluator(lex),
		loops:    loop.NewClusterer(loop.DefaultOptions(), nil),
		pruner:   prune.NewScorer(lex, prune.Options{}),
	}
}

// Capture stores a new note with its emotion score attached.
func (e *Engine) Capture(ctx context.Context, text string, tags []string, modality store.Modality) (*store.Note, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("note text is empty")
	}
	if modality == "" {
		modality = store.ModalityText
	}

	score := e.analyzer.Score(text)
	now := time.Now().UTC()
	n := &store.Note{
		ID:        uuid.NewString(),
		Text:      text,
		Tags:      tags,
		Modality:  modality,
		Emotion:   &store.EmotionScore{Valence: score.Valence, Arousal: score.Arousal},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.AddNote(ctx, n); err != nil {
		return nil, fmt.Errorf("capturing note: %w", err)
	}
	return n, nil
}

// EditNote replaces a note's text and rescores its emotion.
func (e *Engine) EditNote(ctx context.Context, id, text string) (*store.Note, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("note text is empty")
	}
	if err := e.store.UpdateNoteText(ctx, id, text); err != nil {
		return nil, fmt.Errorf("editing note: %w", err)
	}
	score := e.analyzer.Score(text)
	if err := e.store.UpdateEmotionScore(ctx, id, store.EmotionScore{
		Valence: score.Valence,
		Arousal: score.Arousal,
	}); err != nil {
		return nil, fmt.Errorf("rescoring note: %w", err)
	}
	return e.store.GetNote(ctx, id)
}

// EmotionReport is the full per-note emotional analysis.
type EmotionReport struct {
	Score     emotion.Score
	Emotions  emotion.MultiResult
	Intensity float64
	Context   emotion.Context
	Shift     emotion.Shift
}

// AnalyzeEmotions runs every per-text emotional analysis over one text.
func (e *Engine) AnalyzeEmotions(text string) EmotionReport {
	return EmotionReport{
		Score:     e.analyzer.Score(text),
		Emotions:  e.basic.MultipleEmotions(text),
		Intensity: e.basic.Intensity(text),
		Context:   e.basic.AnalyzeContext(text),
		Shift:     e.basic.DetectShift(text),
	}
}

// AnalyzeNoteEmotions loads a note and analyzes its text.
func (e *Engine) AnalyzeNoteEmotions(ctx context.Context, id string) (EmotionReport, error) {
	n, err := e.store.GetNote(ctx, id)
	if err != nil {
		return EmotionReport{}, err
	}
	return e.AnalyzeEmotions(n.Text), nil
}

// EvaluateBiases scores the whole collection for the five bias signals.
func (e *Engine) EvaluateBiases(ctx context.Context) (map[bias.Signal]float64, error) {
	notes, err := e.store.AllNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading notes: %w", err)
	}
	return e.biases.Evaluate(notes), nil
}

// ClusterLoops detects recurring thought loops across the collection.
func (e *Engine) ClusterLoops(ctx context.Context) ([]loop.Cluster, error) {
	notes, err := e.store.AllNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading notes: %w", err)
	}
	return e.loops.Cluster(notes), nil
}

// PruneCandidates ranks the collection for forgettability without deleting.
func (e *Engine) PruneCandidates(ctx context.Context) ([]prune.Candidate, error) {
	notes, err := e.store.AllNotes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading notes: %w", err)
	}
	return e.pruner.Rank(notes), nil
}

// ExecutePrune deletes an approved candidate batch, all or nothing.
func (e *Engine) ExecutePrune(ctx context.Context, candidates []prune.Candidate) (int, error) {
	return prune.Execute(ctx, e.store, candidates)
}

// Note returns one note by ID.
func (e *Engine) Note(ctx context.Context, id string) (*store.Note, error) {
	return e.store.GetNote(ctx, id)
}

// Notes lists notes with the given filters.
func (e *Engine) Notes(ctx context.Context, opts store.ListOpts) ([]*store.Note, error) {
	return e.store.ListNotes(ctx, opts)
}

// DeleteNote removes a single note by ID.
func (e *Engine) DeleteNote(ctx context.Context, id string) error {
	return e.store.DeleteNotes(ctx, []string{id})
}

// Stats reports store-level counters.
func (e *Engine) Stats(ctx context.Context) (*store.StoreStats, error) {
	return e.store.Stats(ctx)
}
