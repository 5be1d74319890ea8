// Package review renders a profile's accumulated learning records into the
// digest shown for review requests.
package review

import (
	"context"
	"fmt"
	"strings"

	"github.com/luminolworks/lexibot/internal/store"
)

// EmptyDigest is shown when the profile has no records at all.
const EmptyDigest = "目前尚無任何學習紀錄。"

// Reporter builds review digests from the store.
type Reporter struct {
	store *store.Store
}

// New creates a Reporter.
func New(st *store.Store) *Reporter {
	return &Reporter{store: st}
}

// Digest renders the full learning history for a profile: vocabulary first,
// then reading notes, each numbered in creation order. Sections with no
// entries are omitted.
func (r *Reporter) Digest(ctx context.Context, profileID string) (string, error) {
	vocab, err := r.store.ListVocabulary(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("build digest: %w", err)
	}
	notes, err := r.store.ListReadingNotes(ctx, profileID)
	if err != nil {
		return "", fmt.Errorf("build digest: %w", err)
	}

	if len(vocab) == 0 && len(notes) == 0 {
		return EmptyDigest, nil
	}

	var b strings.Builder
	if len(vocab) > 0 {
		b.WriteString("📚 **詞彙列表**\n")
		for i, e := range vocab {
			fmt.Fprintf(&b, "%d. %s", i+1, e.Word)
			if e.Source.Valid {
				fmt.Fprintf(&b, "（%s", e.Source.String)
				if e.Page.Valid {
					fmt.Fprintf(&b, " 第%s頁", e.Page.String)
				}
				b.WriteString("）")
			}
			b.WriteString("\n")
		}
	}
	if len(notes) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("✍ **閱讀筆記**\n")
		for i, n := range notes {
			fmt.Fprintf(&b, "%d. ", i+1)
			if n.Source.Valid {
				fmt.Fprintf(&b, "《%s》：", n.Source.String)
			}
			b.WriteString(n.Note)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
