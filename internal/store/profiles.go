package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Profile links a Discord identity to the application's internal identity.
// The internal id is the stable key for all learning data; the Discord id
// only appears here.
type Profile struct {
	ID        string
	DiscordID string
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertProfile creates the profile for a Discord user if it does not exist,
// otherwise refreshes the stored username. The upsert is keyed on discord_id
// and is idempotent: the internal id assigned on first contact never changes.
func (s *Store) UpsertProfile(ctx context.Context, discordID, username string) (*Profile, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, discord_id, username, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(discord_id) DO UPDATE SET
			username = excluded.username,
			updated_at = excluded.updated_at
	`, uuid.New().String(), discordID, username, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}

	return s.GetProfileByDiscordID(ctx, discordID)
}

// GetProfileByDiscordID retrieves a profile by the Discord user id.
// Returns ErrNotFound when the user has never registered.
func (s *Store) GetProfileByDiscordID(ctx context.Context, discordID string) (*Profile, error) {
	p := &Profile{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, discord_id, username, created_at, updated_at
		FROM profiles
		WHERE discord_id = ?
	`, discordID).Scan(&p.ID, &p.DiscordID, &p.Username, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile for discord user %s: %w", discordID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// ProfileCount returns the number of registered profiles.
func (s *Store) ProfileCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}
