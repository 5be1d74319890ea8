// Package channels manages each profile's pair of dedicated Discord channels:
// one for vocabulary accumulation, one for reading notes.
//
// Bindings are persisted in the store and mirrored in an in-memory
// read-through cache keyed by Discord user id. The cache is rebuilt from the
// store at startup and written through on every successful registration; it
// is never the only copy.
package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/luminolworks/lexibot/internal/store"
)

// ErrProvisioningFailed is returned when channel creation or permission
// setup fails. No binding is persisted in that case; partially created
// channels are not rolled back.
var ErrProvisioningFailed = errors.New("channels: provisioning failed")

// Pair holds a profile's two bound channel ids.
type Pair struct {
	Vocab   string
	Reading string
}

// Provisioner creates and probes Discord channels. Implemented by the
// discord package; faked in tests.
type Provisioner interface {
	// ChannelExists reports whether the channel is live in the given guild.
	ChannelExists(guildID, channelID string) (bool, error)
	// CreatePair creates the per-user category (if absent) and the two
	// private text channels, returning their ids. Any failure aborts the
	// whole operation.
	CreatePair(guildID, ownerID, username string) (Pair, error)
}

// Registry resolves a profile to its channel pair, provisioning lazily.
type Registry struct {
	store *store.Store
	prov  Provisioner
	log   *slog.Logger

	mu    sync.RWMutex
	cache map[string]Pair // discord user id → pair
}

// NewRegistry creates a Registry.
func NewRegistry(st *store.Store, prov Provisioner) *Registry {
	return &Registry{
		store: st,
		prov:  prov,
		log:   slog.With("component", "channels"),
		cache: make(map[string]Pair),
	}
}

// WarmFromStore rebuilds the in-memory cache from persisted bindings.
// Called once at startup; the cache is eventually consistent with the store
// between restarts.
func (r *Registry) WarmFromStore(ctx context.Context) error {
	bindings, err := r.store.ListBindings(ctx)
	if err != nil {
		return fmt.Errorf("warm channel cache: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bindings {
		r.cache[b.DiscordID] = Pair{Vocab: b.VocabChannelID, Reading: b.ReadingChannelID}
	}
	r.log.Info("channel cache warmed", "bindings", len(bindings))
	return nil
}

// PairFor returns the bound channel pair for a Discord user, consulting the
// cache first and falling back to the store. Returns store.ErrNotFound
// (wrapped) when the user has no binding.
func (r *Registry) PairFor(ctx context.Context, discordID string) (Pair, error) {
	r.mu.RLock()
	p, ok := r.cache[discordID]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}

	prof, err := r.store.GetProfileByDiscordID(ctx, discordID)
	if err != nil {
		return Pair{}, err
	}
	b, err := r.store.GetBinding(ctx, prof.ID)
	if err != nil {
		return Pair{}, err
	}

	p = Pair{Vocab: b.VocabChannelID, Reading: b.ReadingChannelID}
	r.mu.Lock()
	r.cache[discordID] = p
	r.mu.Unlock()
	return p, nil
}

// Ensure returns the profile's channel pair, provisioning it when absent or
// stale. The returned bool reports whether new channels were created.
//
// When a binding exists and both channels probe live, it is returned as-is.
// When either channel is missing, both are recreated and the binding is
// overwritten; a stale pair is never patched in place.
func (r *Registry) Ensure(ctx context.Context, prof *store.Profile, guildID string) (Pair, bool, error) {
	binding, err := r.store.GetBinding(ctx, prof.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Pair{}, false, err
	}

	if binding != nil {
		// A probe error is not evidence the channel is gone. Rebuilding on a
		// transient outage would duplicate live channels, so only a definite
		// negative probe triggers a rebuild.
		vocabOK, err := r.prov.ChannelExists(guildID, binding.VocabChannelID)
		if err != nil {
			return Pair{}, false, fmt.Errorf("probe vocabulary channel: %w", err)
		}
		readingOK, err := r.prov.ChannelExists(guildID, binding.ReadingChannelID)
		if err != nil {
			return Pair{}, false, fmt.Errorf("probe reading channel: %w", err)
		}
		if vocabOK && readingOK {
			pair := Pair{Vocab: binding.VocabChannelID, Reading: binding.ReadingChannelID}
			r.put(prof.DiscordID, pair)
			return pair, false, nil
		}
		r.log.Info("channel binding stale, rebuilding both channels",
			"profile", prof.ID, "vocab_ok", vocabOK, "reading_ok", readingOK)
	}

	pair, err := r.prov.CreatePair(guildID, prof.DiscordID, prof.Username)
	if err != nil {
		return Pair{}, false, fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}

	// Persist only after both channels exist, then write through the cache
	// before the caller acknowledges the user.
	if err := r.store.UpsertBinding(ctx, &store.ChannelBinding{
		ProfileID:        prof.ID,
		VocabChannelID:   pair.Vocab,
		ReadingChannelID: pair.Reading,
		GuildID:          guildID,
	}); err != nil {
		return Pair{}, false, err
	}
	r.put(prof.DiscordID, pair)

	r.log.Info("provisioned channel pair",
		"profile", prof.ID, "vocab", pair.Vocab, "reading", pair.Reading)
	return pair, true, nil
}

func (r *Registry) put(discordID string, p Pair) {
	r.mu.Lock()
	r.cache[discordID] = p
	r.mu.Unlock()
}
