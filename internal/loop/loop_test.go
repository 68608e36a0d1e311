package loop

import (
	"reflect"
	"testing"
	"time"

	"github.com/mullnote/mull/internal/store"
)

var clock = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func note(id, text string, at time.Time) *store.Note {
	return &store.Note{
		ID:        id,
		Text:      text,
		Modality:  store.ModalityText,
		CreatedAt: at,
	}
}

func TestClusterRepeatedConcern(t *testing.T) {
	c := NewClusterer(DefaultOptions(), nil)
	notes := []*store.Note{
		note("a", "The project deadline is stressing me out", clock),
		note("b", "The project deadline is stressing me out again", clock.Add(time.Hour)),
		note("c", "So the project deadline is stressing me out", clock.Add(2*time.Hour)),
	}

	got := c.Cluster(notes)
	if len(got) != 1 {
		t.Fatalf("got %d clusters, want 1: %+v", len(got), got)
	}
	cl := got[0]
	if len(cl.NoteIDs) != 3 {
		t.Errorf("cluster has %d members, want 3: %v", len(cl.NoteIDs), cl.NoteIDs)
	}
	if cl.Topic != "project deadline" {
		t.Errorf("topic = %q, want %q", cl.Topic, "project deadline")
	}
	if cl.Strength <= 0.6 || cl.Strength > 1 {
		t.Errorf("strength = %v, want in (0.6, 1]", cl.Strength)
	}
	if !cl.CreatedAt.Equal(clock) {
		t.Errorf("CreatedAt = %v, want earliest member time %v", cl.CreatedAt, clock)
	}
	if cl.ID == "" {
		t.Error("cluster ID is empty")
	}
}

func TestClusterUnrelatedNotes(t *testing.T) {
	c := NewClusterer(DefaultOptions(), nil)
	notes := []*store.Note{
		note("a", "Pizza for dinner tonight", clock),
		note("b", "The weather was sunny", clock.Add(time.Hour)),
		note("c", "Remember to buy groceries", clock.Add(2*time.Hour)),
	}

	if got := c.Cluster(notes); len(got) != 0 {
		t.Fatalf("unrelated notes clustered: %+v", got)
	}
}

func TestClusterRejectedSeedStaysSpent(t *testing.T) {
	c := NewClusterer(DefaultOptions(), nil)
	notes := []*store.Note{
		note("a", "Gardening flowers in the backyard all afternoon", clock),
		note("b", "The project deadline is stressing me out", clock.Add(time.Hour)),
		note("c", "The project deadline is stressing me out", clock.Add(2*time.Hour)),
	}

	got := c.Cluster(notes)
	if len(got) != 1 {
		t.Fatalf("got %d clusters, want 1", len(got))
	}
	want := []string{"b", "c"}
	if !reflect.DeepEqual(got[0].NoteIDs, want) {
		t.Errorf("members = %v, want %v", got[0].NoteIDs, want)
	}
}

func TestClusterTimeWindows(t *testing.T) {
	c := NewClusterer(DefaultOptions(), nil)
	notes := []*store.Note{
		note("a", "The project deadline is stressing me out", clock),
		note("b", "The project deadline is stressing me out again", clock.Add(time.Hour)),
		note("c", "So the project deadline is stressing me out", clock.Add(2*time.Hour)),
		// Same concern a month later never joins the first window.
		note("d", "I keep worrying about money and rent", clock.Add(30*24*time.Hour)),
		note("e", "I keep worrying about money and rent", clock.Add(36*24*time.Hour)),
	}

	got := c.Cluster(notes)
	if len(got) != 2 {
		t.Fatalf("got %d clusters, want 2: %+v", len(got), got)
	}
	// Strongest first: the dense three-note loop outranks the sparse pair.
	if len(got[0].NoteIDs) != 3 || len(got[1].NoteIDs) != 2 {
		t.Errorf("cluster sizes = %d, %d; want 3, 2", len(got[0].NoteIDs), len(got[1].NoteIDs))
	}
	if got[0].Strength < got[1].Strength {
		t.Errorf("clusters out of order: %v before %v", got[0].Strength, got[1].Strength)
	}
}

func TestClusterSkipsVoiceAndEmptyNotes(t *testing.T) {
	c := NewClusterer(DefaultOptions(), nil)
	voice := note("v", "The project deadline is stressing me out", clock.Add(30*time.Minute))
	voice.Modality = store.ModalityVoice
	notes := []*store.Note{
		note("a", "The project deadline is stressing me out", clock),
		voice,
		note("", "   ", clock.Add(45*time.Minute)),
		note("b", "The project deadline is stressing me out", clock.Add(time.Hour)),
	}

	got := c.Cluster(notes)
	if len(got) != 1 {
		t.Fatalf("got %d clusters, want 1", len(got))
	}
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got[0].NoteIDs, want) {
		t.Errorf("members = %v, want %v", got[0].NoteIDs, want)
	}
}

func TestClusterTooFewNotes(t *testing.T) {
	c := NewClusterer(DefaultOptions(), nil)
	if got := c.Cluster(nil); got != nil {
		t.Errorf("Cluster(nil) = %+v, want nil", got)
	}
	one := []*store.Note{note("a", "The project deadline is stressing me out", clock)}
	if got := c.Cluster(one); got != nil {
		t.Errorf("Cluster(one note) = %+v, want nil", got)
	}
}

func TestClusterLengthGuard(t *testing.T) {
	c := NewClusterer(DefaultOptions(), nil)
	short := &candidate{note: note("a", "deadline", clock), chars: 8}
	long := &candidate{
		note:  note("b", "the deadline is stressing me out and I cannot stop thinking about it", clock),
		chars: 69,
	}
	if sim := c.similarity(short, long); sim != 0 {
		t.Errorf("similarity across extreme length mismatch = %v, want 0", sim)
	}
}

func TestClusterIdempotent(t *testing.T) {
	c := NewClusterer(DefaultOptions(), nil)
	notes := []*store.Note{
		note("a", "The project deadline is stressing me out", clock),
		note("b", "The project deadline is stressing me out again", clock.Add(time.Hour)),
		note("c", "So the project deadline is stressing me out", clock.Add(2*time.Hour)),
	}

	first := c.Cluster(notes)
	second := c.Cluster(notes)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated clustering differs:\n%+v\n%+v", first, second)
	}
}
