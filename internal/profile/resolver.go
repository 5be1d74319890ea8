// Package profile maps Discord identities to internal profiles.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luminolworks/lexibot/internal/store"
)

// ErrProfileUnavailable is returned when the store fails or returns no row.
// Callers must instruct the user to run the /start registration command.
var ErrProfileUnavailable = errors.New("profile: unavailable")

// Resolver resolves Discord user ids to internal profiles.
type Resolver struct {
	store *store.Store
	log   *slog.Logger
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(st *store.Store) *Resolver {
	return &Resolver{
		store: st,
		log:   slog.With("component", "profile"),
	}
}

// Resolve returns the profile for a Discord user, creating it on first
// contact. The upsert is keyed on the Discord id and is idempotent.
func (r *Resolver) Resolve(ctx context.Context, discordID, username string) (*store.Profile, error) {
	p, err := r.store.UpsertProfile(ctx, discordID, username)
	if err != nil {
		r.log.Error("profile upsert failed", "discord_id", discordID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	return p, nil
}

// Lookup returns the profile for a Discord user without creating one.
// A missing profile means the user has not registered yet.
func (r *Resolver) Lookup(ctx context.Context, discordID string) (*store.Profile, error) {
	p, err := r.store.GetProfileByDiscordID(ctx, discordID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.log.Error("profile lookup failed", "discord_id", discordID, "err", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	return p, nil
}
