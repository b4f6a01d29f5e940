package store

import (
	"fmt"
	"strings"
)

// tableDesc declares, per entity kind, the natural key the upsert conflicts
// on and the one canonical set of columns an upsert may rewrite. Both the
// live path and the sweep go through these, so the two paths can never
// disagree on what a re-observation updates.
type tableDesc struct {
	name     string
	columns  []string
	conflict []string
	// mutable columns are overwritten from EXCLUDED on conflict; an empty
	// set means conflicts are silently discarded (append-only kinds).
	mutable []string
}

var (
	guildTable = tableDesc{
		name:     "guilds",
		columns:  []string{"uuid", "created_at", "name"},
		conflict: []string{"uuid"},
		mutable:  []string{"name"},
	}
	channelTable = tableDesc{
		name:     "channels",
		columns:  []string{"uuid", "guild_uuid", "created_at", "name", "type", "metadatas"},
		conflict: []string{"uuid"},
		mutable:  []string{"name", "type", "metadatas"},
	}
	// created_at and joined_at are insert-only: the first observation wins
	// and later sightings of the same member never rewrite them.
	userTable = tableDesc{
		name:     "users",
		columns:  []string{"uuid", "guild_uuid", "created_at", "pseudo", "is_bot", "is_active", "joined_at"},
		conflict: []string{"uuid", "guild_uuid"},
		mutable:  []string{"pseudo", "is_bot", "is_active"},
	}
	messageTable = tableDesc{
		name:     "messages",
		columns:  []string{"uuid", "guild_uuid", "channel_uuid", "author_uuid", "created_at", "content", "reference_uuid", "metadatas"},
		conflict: []string{"uuid"},
		mutable:  []string{"content", "metadatas"},
	}
	mentionTable = tableDesc{
		name:     "mentions",
		columns:  []string{"message_uuid", "user_uuid", "mention_uuid", "guild_uuid"},
		conflict: []string{"message_uuid", "user_uuid", "mention_uuid"},
	}
	privateMessageTable = tableDesc{
		name:     "private_messages",
		columns:  []string{"uuid", "author_uuid", "created_at", "content", "metadatas"},
		conflict: []string{"uuid"},
	}
)

// upsertSQL renders the multi-row conflict-tolerant insert for n rows.
func (d tableDesc) upsertSQL(n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.name)
	b.WriteString(" (")
	b.WriteString(strings.Join(d.columns, ", "))
	b.WriteString(") VALUES ")

	arg := 1
	for row := 0; row < n; row++ {
		if row > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for col := range d.columns {
			if col > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteByte(')')
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(strings.Join(d.conflict, ", "))
	b.WriteString(")")

	if len(d.mutable) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String()
	}

	b.WriteString(" DO UPDATE SET ")
	for i, col := range d.mutable {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteString(" = EXCLUDED.")
		b.WriteString(col)
	}
	return b.String()
}
