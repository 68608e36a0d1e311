package engine

import (
	"context"
	"testing"

	"github.com/mullnote/mull/internal/bias"
	"github.com/mullnote/mull/internal/store"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	st, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, nil)
}

func TestCaptureAttachesEmotion(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	n, err := e.Capture(ctx, "I am happy and grateful today", []string{"mood"}, store.ModalityText)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if n.ID == "" {
		t.Error("captured note has no ID")
	}
	if n.Emotion == nil {
		t.Fatal("captured note has no emotion score")
	}
	if n.Emotion.Valence <= 0 {
		t.Errorf("valence = %v for a positive note, want > 0", n.Emotion.Valence)
	}

	got, err := e.Note(ctx, n.ID)
	if err != nil {
		t.Fatalf("Note: %v", err)
	}
	if got.Text != n.Text || got.Emotion == nil {
		t.Errorf("stored note lost data: %+v", got)
	}
}

func TestCaptureRejectsEmptyText(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Capture(context.Background(), "   ", nil, store.ModalityText); err == nil {
		t.Fatal("want error for empty text")
	}
}

func TestEditNoteRescores(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	n, err := e.Capture(ctx, "I am happy and grateful today", nil, store.ModalityText)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	edited, err := e.EditNote(ctx, n.ID, "so sad and tired today")
	if err != nil {
		t.Fatalf("EditNote: %v", err)
	}
	if edited.Text != "so sad and tired today" {
		t.Errorf("text = %q after edit", edited.Text)
	}
	if edited.Emotion == nil || edited.Emotion.Valence >= 0 {
		t.Errorf("emotion not rescored: %+v", edited.Emotion)
	}
}

func TestAnalyzeEmotionsReport(t *testing.T) {
	e := newEngine(t)

	report := e.AnalyzeEmotions("I was happy and grateful\nnow everything is terrible and sad")
	if report.Score.Valence == 0 && report.Score.Arousal == 0 {
		t.Error("score is neutral for an emotional text")
	}
	if report.Emotions.Primary == "" {
		t.Error("no primary emotion detected")
	}
	if !report.Shift.Detected {
		t.Error("no shift detected across opposite halves")
	}
	if len(report.Context.Domains) == 0 {
		t.Error("context has no domains")
	}
}

func TestEvaluateBiasesEmptyStore(t *testing.T) {
	e := newEngine(t)

	got, err := e.EvaluateBiases(context.Background())
	if err != nil {
		t.Fatalf("EvaluateBiases: %v", err)
	}
	if len(got) != len(bias.Signals) {
		t.Fatalf("got %d signals, want %d", len(got), len(bias.Signals))
	}
	for sig, v := range got {
		if v != 0 {
			t.Errorf("%s = %v on empty store, want 0", sig, v)
		}
	}
}

func TestClusterLoopsEndToEnd(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Capture(ctx, "The project deadline is stressing me out", nil, store.ModalityText); err != nil {
			t.Fatalf("Capture: %v", err)
		}
	}

	clusters, err := e.ClusterLoops(ctx)
	if err != nil {
		t.Fatalf("ClusterLoops: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("got %d clusters, want 1", len(clusters))
	}
	if len(clusters[0].NoteIDs) != 3 {
		t.Errorf("cluster has %d members, want 3", len(clusters[0].NoteIDs))
	}
}

func TestPruneEndToEnd(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	throwaway, err := e.Capture(ctx, "test", nil, store.ModalityText)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	keeper, err := e.Capture(ctx,
		"Spent the afternoon writing down everything from the retrospective "+
			"meeting so the whole team can review the action items later.",
		[]string{"work", "retro"}, store.ModalityText)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	candidates, err := e.PruneCandidates(ctx)
	if err != nil {
		t.Fatalf("PruneCandidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].NoteID != throwaway.ID {
		t.Fatalf("candidates = %+v, want just the throwaway note", candidates)
	}

	deleted, err := e.ExecutePrune(ctx, candidates)
	if err != nil {
		t.Fatalf("ExecutePrune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := e.Note(ctx, throwaway.ID); err == nil {
		t.Error("pruned note still readable")
	}
	if _, err := e.Note(ctx, keeper.ID); err != nil {
		t.Errorf("keeper note lost: %v", err)
	}

	stats, err := e.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.NoteCount != 1 {
		t.Errorf("note count = %d after prune, want 1", stats.NoteCount)
	}
}
