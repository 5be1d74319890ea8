package store

import (
	"context"
	"fmt"
	"time"
)

// ChatTurn is a single turn in the chat assistant's conversation history.
type ChatTurn struct {
	ID        int64
	ProfileID string
	Role      string // "user" or "assistant"
	Content   string
	CreatedAt time.Time
}

// AppendChatTurn records one conversation turn.
func (s *Store) AppendChatTurn(ctx context.Context, profileID, role, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_turns (profile_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, profileID, role, content, time.Now())
	if err != nil {
		return fmt.Errorf("failed to append chat turn: %w", err)
	}
	return nil
}

// RecentChatTurns returns the most recent limit turns for a profile in
// chronological order (oldest of the window first), ready to replay as LLM
// context.
func (s *Store) RecentChatTurns(ctx context.Context, profileID string, limit int) ([]*ChatTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, role, content, created_at FROM (
			SELECT id, profile_id, role, content, created_at
			FROM chat_turns
			WHERE profile_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id
	`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat turns: %w", err)
	}
	defer rows.Close()

	var turns []*ChatTurn
	for rows.Next() {
		t := &ChatTurn{}
		if err := rows.Scan(&t.ID, &t.ProfileID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
