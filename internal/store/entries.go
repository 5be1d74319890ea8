package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// VocabularyEntry is one recorded word. Append-only; rows are only displayed
// in creation order.
type VocabularyEntry struct {
	ID          int64
	ProfileID   string
	Word        string
	Source      sql.NullString
	Page        sql.NullString
	Explanation string
	CreatedAt   time.Time
}

// ReadingNote is one recorded reading note. Append-only.
type ReadingNote struct {
	ID        int64
	ProfileID string
	Source    sql.NullString
	Note      string
	CreatedAt time.Time
}

// InsertVocabulary appends a vocabulary entry for a profile.
func (s *Store) InsertVocabulary(ctx context.Context, e *VocabularyEntry) error {
	e.CreatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO vocabulary (profile_id, word, source, page, explanation, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ProfileID, e.Word, e.Source, e.Page, e.Explanation, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert vocabulary entry: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// InsertReadingNote appends a reading note for a profile.
func (s *Store) InsertReadingNote(ctx context.Context, n *ReadingNote) error {
	n.CreatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_notes (profile_id, source, note, created_at)
		VALUES (?, ?, ?, ?)
	`, n.ProfileID, n.Source, n.Note, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reading note: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		n.ID = id
	}
	return nil
}

// ListVocabulary returns all vocabulary entries for a profile in ascending
// creation order. No pagination: per-user volume is assumed small.
func (s *Store) ListVocabulary(ctx context.Context, profileID string) ([]*VocabularyEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, word, source, page, explanation, created_at
		FROM vocabulary
		WHERE profile_id = ?
		ORDER BY created_at, id
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vocabulary: %w", err)
	}
	defer rows.Close()

	var entries []*VocabularyEntry
	for rows.Next() {
		e := &VocabularyEntry{}
		if err := rows.Scan(&e.ID, &e.ProfileID, &e.Word, &e.Source, &e.Page, &e.Explanation, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vocabulary entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListReadingNotes returns all reading notes for a profile in ascending
// creation order.
func (s *Store) ListReadingNotes(ctx context.Context, profileID string) ([]*ReadingNote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, source, note, created_at
		FROM reading_notes
		WHERE profile_id = ?
		ORDER BY created_at, id
	`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reading notes: %w", err)
	}
	defer rows.Close()

	var notes []*ReadingNote
	for rows.Next() {
		n := &ReadingNote{}
		if err := rows.Scan(&n.ID, &n.ProfileID, &n.Source, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reading note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// VocabularyCount returns the number of vocabulary entries for a profile.
func (s *Store) VocabularyCount(ctx context.Context, profileID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vocabulary WHERE profile_id = ?", profileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count vocabulary: %w", err)
	}
	return n, nil
}

// ReadingNoteCount returns the number of reading notes for a profile.
func (s *Store) ReadingNoteCount(ctx context.Context, profileID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reading_notes WHERE profile_id = ?", profileID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count reading notes: %w", err)
	}
	return n, nil
}
