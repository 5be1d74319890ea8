package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ChannelBinding associates a profile with its two dedicated channels.
// Keyed on the internal profile id; one binding per profile.
type ChannelBinding struct {
	ProfileID        string
	VocabChannelID   string
	ReadingChannelID string
	GuildID          string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// OwnedBinding is a binding joined with its owner's Discord id, used to
// rebuild the in-memory channel cache at startup.
type OwnedBinding struct {
	DiscordID string
	ChannelBinding
}

// GetBinding retrieves the channel binding for a profile.
// Returns ErrNotFound when the profile has never been provisioned.
func (s *Store) GetBinding(ctx context.Context, profileID string) (*ChannelBinding, error) {
	b := &ChannelBinding{}
	err := s.db.QueryRowContext(ctx, `
		SELECT profile_id, vocab_channel_id, reading_channel_id, guild_id, created_at, updated_at
		FROM channel_bindings
		WHERE profile_id = ?
	`, profileID).Scan(&b.ProfileID, &b.VocabChannelID, &b.ReadingChannelID, &b.GuildID, &b.CreatedAt, &b.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("binding for profile %s: %w", profileID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel binding: %w", err)
	}

	return b, nil
}

// UpsertBinding writes the channel binding for a profile, replacing any
// previous (possibly stale) channel ids. Called only after both channels
// exist; a partial binding is never persisted.
func (s *Store) UpsertBinding(ctx context.Context, b *ChannelBinding) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channel_bindings (profile_id, vocab_channel_id, reading_channel_id, guild_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id) DO UPDATE SET
			vocab_channel_id = excluded.vocab_channel_id,
			reading_channel_id = excluded.reading_channel_id,
			guild_id = excluded.guild_id,
			updated_at = excluded.updated_at
	`, b.ProfileID, b.VocabChannelID, b.ReadingChannelID, b.GuildID, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert channel binding: %w", err)
	}
	return nil
}

// ListBindings returns all channel bindings joined with their owners'
// Discord ids, ordered by creation time.
func (s *Store) ListBindings(ctx context.Context) ([]*OwnedBinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.discord_id, b.profile_id, b.vocab_channel_id, b.reading_channel_id, b.guild_id, b.created_at, b.updated_at
		FROM channel_bindings b
		JOIN profiles p ON p.id = b.profile_id
		ORDER BY b.created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel bindings: %w", err)
	}
	defer rows.Close()

	var bindings []*OwnedBinding
	for rows.Next() {
		b := &OwnedBinding{}
		if err := rows.Scan(&b.DiscordID, &b.ProfileID, &b.VocabChannelID, &b.ReadingChannelID, &b.GuildID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan channel binding: %w", err)
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}
