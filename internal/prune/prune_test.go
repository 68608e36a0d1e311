package prune

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/mullnote/mull/internal/lexicon"
	"github.com/mullnote/mull/internal/store"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	return NewScorer(lexicon.Default(), Options{Now: now})
}

func aged(id, text string, days int, tags ...string) *store.Note {
	return &store.Note{
		ID:        id,
		Text:      text,
		Tags:      tags,
		Modality:  store.ModalityText,
		CreatedAt: now.Add(-time.Duration(days) * 24 * time.Hour),
	}
}

const substantialText = "Spent the afternoon writing down everything from the retrospective " +
	"meeting so the whole team can review the action items later."

func TestRankOldThrowawayNote(t *testing.T) {
	s := newScorer(t)

	got := s.Rank([]*store.Note{aged("a", "test", 400)})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	c := got[0]
	// Age 0.8 + reference 0.5 + value 0.7.
	if c.Score != 2.0 {
		t.Errorf("score = %v, want 2.0", c.Score)
	}
	wantReasons := []string{"400 days old", "short and untagged", "little content value"}
	if !reflect.DeepEqual(c.Reasons, wantReasons) {
		t.Errorf("reasons = %v, want %v", c.Reasons, wantReasons)
	}
	if c.Title != "test" {
		t.Errorf("title = %q, want %q", c.Title, "test")
	}
}

func TestRankKeepsSubstantialNote(t *testing.T) {
	s := newScorer(t)

	got := s.Rank([]*store.Note{aged("a", substantialText, 5, "work", "retro")})
	if len(got) != 0 {
		t.Fatalf("fresh substantial note became a candidate: %+v", got)
	}
}

func TestRankOrdering(t *testing.T) {
	s := newScorer(t)

	got := s.Rank([]*store.Note{
		aged("newer", "ok", 100), // 0.4 + 0.5 + 0.7
		aged("older", "test", 400),
	})
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].NoteID != "older" || got[1].NoteID != "newer" {
		t.Errorf("order = %s, %s; want older, newer", got[0].NoteID, got[1].NoteID)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores out of order: %v before %v", got[0].Score, got[1].Score)
	}
}

func TestRankThresholdBoundary(t *testing.T) {
	s := newScorer(t)

	// Only the age factor fires: 200 days is exactly 0.6, at the cutoff.
	at := s.Rank([]*store.Note{aged("a", substantialText, 200, "work", "retro")})
	if len(at) != 1 {
		t.Fatalf("score at threshold excluded: %+v", at)
	}
	if at[0].Score != 0.6 {
		t.Errorf("score = %v, want 0.6", at[0].Score)
	}
	if !reflect.DeepEqual(at[0].Reasons, []string{"200 days old"}) {
		t.Errorf("reasons = %v, want [200 days old]", at[0].Reasons)
	}

	// Only 0.2 of age: below the cutoff.
	below := s.Rank([]*store.Note{aged("b", substantialText, 40, "work", "retro")})
	if len(below) != 0 {
		t.Fatalf("sub-threshold note became a candidate: %+v", below)
	}
}

func TestRankNegativeTone(t *testing.T) {
	s := newScorer(t)

	n := aged("a", substantialText, 100, "work", "retro")
	n.Emotion = &store.EmotionScore{Valence: -0.8, Arousal: 0.6}

	got := s.Rank([]*store.Note{n})
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	// Age 0.4 + emotion 0.6.
	if got[0].Score != 1.0 {
		t.Errorf("score = %v, want 1.0", got[0].Score)
	}
	wantReasons := []string{"100 days old", "strongly negative tone"}
	if !reflect.DeepEqual(got[0].Reasons, wantReasons) {
		t.Errorf("reasons = %v, want %v", got[0].Reasons, wantReasons)
	}
}

func TestDuplicateCounts(t *testing.T) {
	s := newScorer(t)

	notes := []*store.Note{
		aged("a", "met with the team about quarterly planning", 1),
		aged("b", "met with the team about quarterly planning", 2),
		aged("c", "met with the team about quarterly planning", 3),
		aged("d", "completely unrelated gardening ideas", 4),
	}
	got := s.duplicateCounts(notes)
	want := []int{2, 2, 2, 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("duplicateCounts = %v, want %v", got, want)
	}

	single := s.duplicateCounts(notes[:1])
	if !reflect.DeepEqual(single, []int{0}) {
		t.Errorf("duplicateCounts for one note = %v, want [0]", single)
	}
}

func TestAgeFactor(t *testing.T) {
	cases := []struct {
		days int
		want float64
	}{
		{0, 0}, {30, 0}, {31, 0.2}, {91, 0.4}, {181, 0.6}, {366, 0.8}, {1000, 0.8},
	}
	for _, tc := range cases {
		if got := ageFactor(tc.days); got != tc.want {
			t.Errorf("ageFactor(%d) = %v, want %v", tc.days, got, tc.want)
		}
	}
}

func TestDuplicateFactor(t *testing.T) {
	cases := []struct {
		dups int
		want float64
	}{
		{0, 0}, {1, 0}, {2, 0.4}, {3, 0.7}, {10, 0.7},
	}
	for _, tc := range cases {
		if got := duplicateFactor(tc.dups); got != tc.want {
			t.Errorf("duplicateFactor(%d) = %v, want %v", tc.dups, got, tc.want)
		}
	}
}

func TestTitle(t *testing.T) {
	if got := title("first line\nsecond line"); got != "first line" {
		t.Errorf("title = %q, want first line only", got)
	}
	long := "a very long first line that definitely runs past the display limit"
	got := title(long)
	if len([]rune(got)) != titleLimit+3 {
		t.Errorf("truncated title length = %d, want %d", len([]rune(got)), titleLimit+3)
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("truncated title %q missing ellipsis", got)
	}
}

type fakeDeleter struct {
	ids   []string
	calls int
	err   error
}

func (f *fakeDeleter) DeleteNotes(_ context.Context, ids []string) error {
	f.calls++
	f.ids = ids
	return f.err
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	d := &fakeDeleter{}
	n, err := Execute(ctx, d, []Candidate{{NoteID: "a"}, {NoteID: "b"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	if !reflect.DeepEqual(d.ids, []string{"a", "b"}) {
		t.Errorf("deleter got %v, want [a b]", d.ids)
	}
}

func TestExecuteEmptyIsNoOp(t *testing.T) {
	d := &fakeDeleter{}
	n, err := Execute(context.Background(), d, nil)
	if err != nil || n != 0 {
		t.Fatalf("Execute(empty) = %d, %v; want 0, nil", n, err)
	}
	if d.calls != 0 {
		t.Errorf("deleter called %d times for empty batch", d.calls)
	}
}

func TestExecutePropagatesFailure(t *testing.T) {
	d := &fakeDeleter{err: errors.New("missing note")}
	n, err := Execute(context.Background(), d, []Candidate{{NoteID: "a"}})
	if err == nil {
		t.Fatal("want error from failed batch")
	}
	if n != 0 {
		t.Errorf("deleted = %d after failure, want 0", n)
	}
}
