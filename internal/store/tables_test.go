package store

import "testing"

func TestUpsertSQL(t *testing.T) {
	t.Run("multi-row update on conflict", func(t *testing.T) {
		got := channelTable.upsertSQL(2)
		want := "INSERT INTO channels (uuid, guild_uuid, created_at, name, type, metadatas) " +
			"VALUES ($1, $2, $3, $4, $5, $6), ($7, $8, $9, $10, $11, $12) " +
			"ON CONFLICT (uuid) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type, metadatas = EXCLUDED.metadatas"
		if got != want {
			t.Errorf("channel upsert sql:\n got  %s\n want %s", got, want)
		}
	})

	t.Run("append-only kinds discard conflicts", func(t *testing.T) {
		got := mentionTable.upsertSQL(1)
		want := "INSERT INTO mentions (message_uuid, user_uuid, mention_uuid, guild_uuid) " +
			"VALUES ($1, $2, $3, $4) " +
			"ON CONFLICT (message_uuid, user_uuid, mention_uuid) DO NOTHING"
		if got != want {
			t.Errorf("mention insert sql:\n got  %s\n want %s", got, want)
		}
	})

	t.Run("composite conflict key", func(t *testing.T) {
		got := userTable.upsertSQL(1)
		want := "INSERT INTO users (uuid, guild_uuid, created_at, pseudo, is_bot, is_active, joined_at) " +
			"VALUES ($1, $2, $3, $4, $5, $6, $7) " +
			"ON CONFLICT (uuid, guild_uuid) DO UPDATE SET pseudo = EXCLUDED.pseudo, is_bot = EXCLUDED.is_bot, is_active = EXCLUDED.is_active"
		if got != want {
			t.Errorf("user upsert sql:\n got  %s\n want %s", got, want)
		}
	})

	t.Run("insert-only columns stay out of the update set", func(t *testing.T) {
		for _, d := range []tableDesc{guildTable, channelTable, userTable, messageTable} {
			for _, col := range d.mutable {
				if col == "created_at" || col == "joined_at" {
					t.Errorf("%s: %s must never be rewritten on conflict", d.name, col)
				}
			}
		}
	})
}
