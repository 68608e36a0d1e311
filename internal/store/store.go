// Package store provides the SQLite storage layer for mull.
//
// All note data lives in a single SQLite database file:
// - Captured notes (text or voice transcripts) with tags and modality
// - Emotion scores attached to notes by the analysis engine
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.mull/mull.db"

// Modality says how a note entered the system.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice" // transcribed voice capture
)

// ParseModality validates a modality string.
func ParseModality(s string) (Modality, error) {
	switch Modality(strings.ToLower(strings.TrimSpace(s))) {
	case ModalityText, "":
		return ModalityText, nil
	case ModalityVoice:
		return ModalityVoice, nil
	}
	return "", fmt.Errorf("invalid modality %q (valid: text, voice)", s)
}

// EmotionScore is the valence/arousal pair attached to a note after analysis.
// Valence is -1.0..1.0 (negative..positive), arousal is 0.0..1.0 (calm..activated).
type EmotionScore struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// Note is a single captured note. Notes are created once and their content
// may be edited in place; the analysis engine only reads them.
type Note struct {
	ID        string
	Text      string
	Tags      []string
	Modality  Modality
	Emotion   *EmotionScore // nil until the engine attaches a score
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListOpts controls pagination and filtering for ListNotes.
type ListOpts struct {
	Limit    int
	Offset   int
	Modality Modality // filter by modality, empty = all
	Since    time.Time
}

// StoreStats holds observability statistics about the store.
type StoreStats struct {
	NoteCount   int64
	ScoredCount int64 // notes with an attached emotion score
	VoiceCount  int64
	DBSizeBytes int64
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines the persistence surface the analysis engine depends on.
type Store interface {
	AddNote(ctx context.Context, n *Note) error
	GetNote(ctx context.Context, id string) (*Note, error)
	ListNotes(ctx context.Context, opts ListOpts) ([]*Note, error)
	AllNotes(ctx context.Context) ([]*Note, error)
	UpdateNoteText(ctx context.Context, id, text string) error
	UpdateEmotionScore(ctx context.Context, id string, score EmotionScore) error
	DeleteNotes(ctx context.Context, ids []string) error

	Stats(ctx context.Context) (*StoreStats, error)
	Close() error
}

// SQLiteStore implements Store using a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new SQLite-backed Store.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddNote inserts a note. A missing ID is generated; missing timestamps
// default to now (UTC).
func (s *SQLiteStore) AddNote(ctx context.Context, n *Note) error {
	if n == nil {
		return fmt.Errorf("nil note")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Modality == "" {
		n.Modality = ModalityText
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	tags, err := encodeTags(n.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags: %w", err)
	}

	var valence, arousal interface{}
	if n.Emotion != nil {
		valence = n.Emotion.Valence
		arousal = n.Emotion.Arousal
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notes (id, text, tags, modality, valence, arousal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Text, tags, string(n.Modality), valence, arousal,
		n.CreatedAt.Format(time.RFC3339Nano), n.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

// GetNote fetches a single note by ID.
func (s *SQLiteStore) GetNote(ctx context.Context, id string) (*Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, tags, modality, valence, arousal, created_at, updated_at
		FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("note %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning note: %w", err)
	}
	return n, nil
}

// ListNotes returns notes sorted by creation time descending.
func (s *SQLiteStore) ListNotes(ctx context.Context, opts ListOpts) ([]*Note, error) {
	query := `
		SELECT id, text, tags, modality, valence, arousal, created_at, updated_at
		FROM notes WHERE 1=1`
	args := []interface{}{}

	if opts.Modality != "" {
		query += " AND modality = ?"
		args = append(args, string(opts.Modality))
	}
	if !opts.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, opts.Since.UTC().Format(time.RFC3339Nano))
	}

	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	return s.queryNotes(ctx, query, args...)
}

// AllNotes returns the full collection sorted by creation time ascending.
// This is the snapshot the batch analyses operate on.
func (s *SQLiteStore) AllNotes(ctx context.Context) ([]*Note, error) {
	return s.queryNotes(ctx, `
		SELECT id, text, tags, modality, valence, arousal, created_at, updated_at
		FROM notes ORDER BY created_at ASC`)
}

// UpdateNoteText edits a note's content in place.
func (s *SQLiteStore) UpdateNoteText(ctx context.Context, id, text string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notes SET text = ?, updated_at = ? WHERE id = ?`,
		text, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("updating note text: %w", err)
	}
	return requireRow(res, id)
}

// UpdateEmotionScore attaches a valence/arousal pair to a note.
func (s *SQLiteStore) UpdateEmotionScore(ctx context.Context, id string, score EmotionScore) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notes SET valence = ?, arousal = ?, updated_at = ? WHERE id = ?`,
		score.Valence, score.Arousal, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("updating emotion score: %w", err)
	}
	return requireRow(res, id)
}

// DeleteNotes removes the given notes in one transaction. If any delete
// fails the whole batch is rolled back; partial pruning never happens.
func (s *SQLiteStore) DeleteNotes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM notes WHERE id = ?")
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, id)
		if err != nil {
			return fmt.Errorf("deleting note %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking delete of note %s: %w", id, err)
		}
		if affected == 0 {
			return fmt.Errorf("note %s not found", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete transaction: %w", err)
	}
	return nil
}

// Stats returns store-level counters for observability.
func (s *SQLiteStore) Stats(ctx context.Context) (*StoreStats, error) {
	stats := &StoreStats{}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(valence),
		       SUM(CASE WHEN modality = 'voice' THEN 1 ELSE 0 END)
		FROM notes`)
	var voice sql.NullInt64
	if err := row.Scan(&stats.NoteCount, &stats.ScoredCount, &voice); err != nil {
		return nil, fmt.Errorf("counting notes: %w", err)
	}
	stats.VoiceCount = voice.Int64

	if s.dbPath != ":memory:" {
		if info, err := os.Stat(s.dbPath); err == nil {
			stats.DBSizeBytes = info.Size()
		}
	}
	return stats, nil
}

// Vacuum reclaims file space after a prune. Manual only, never automatic.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNote(row rowScanner) (*Note, error) {
	var n Note
	var tags, modality, createdAt, updatedAt string
	var valence, arousal sql.NullFloat64

	if err := row.Scan(&n.ID, &n.Text, &tags, &modality, &valence, &arousal, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	n.Modality = Modality(modality)
	if decoded, err := decodeTags(tags); err == nil {
		n.Tags = decoded
	}
	if valence.Valid && arousal.Valid {
		n.Emotion = &EmotionScore{Valence: valence.Float64, Arousal: arousal.Float64}
	}

	var err error
	if n.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if n.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	return &n, nil
}

func (s *SQLiteStore) queryNotes(ctx context.Context, query string, args ...interface{}) ([]*Note, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("note %s not found", id)
	}
	return nil
}

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTags(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" || raw == "[]" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format")
}

// expandPath expands ~ to the home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
