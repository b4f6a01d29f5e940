package store

// Schema is applied at Open. CREATE TABLE IF NOT EXISTS keeps restarts
// cheap; there is no migration tooling beyond this bootstrap.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS guilds (
		uuid       BIGINT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		name       TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS channels (
		uuid       BIGINT PRIMARY KEY,
		guild_uuid BIGINT NOT NULL REFERENCES guilds(uuid),
		created_at TIMESTAMP NOT NULL,
		name       TEXT NOT NULL,
		type       TEXT NOT NULL,
		metadatas  JSONB
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		uuid       BIGINT NOT NULL,
		guild_uuid BIGINT NOT NULL REFERENCES guilds(uuid),
		created_at TIMESTAMP NOT NULL,
		pseudo     TEXT NOT NULL,
		is_bot     BOOLEAN NOT NULL DEFAULT FALSE,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		joined_at  TIMESTAMP NOT NULL,
		PRIMARY KEY (uuid, guild_uuid)
	)`,
	// reference_uuid has no FK: a reply can point at a message that was
	// never mirrored (deleted, or outside the sweep's reach).
	`CREATE TABLE IF NOT EXISTS messages (
		uuid           BIGINT PRIMARY KEY,
		guild_uuid     BIGINT NOT NULL REFERENCES guilds(uuid),
		channel_uuid   BIGINT NOT NULL REFERENCES channels(uuid),
		author_uuid    BIGINT NOT NULL,
		created_at     TIMESTAMP NOT NULL,
		content        TEXT NOT NULL DEFAULT '',
		reference_uuid BIGINT,
		metadatas      JSONB,
		FOREIGN KEY (author_uuid, guild_uuid) REFERENCES users(uuid, guild_uuid)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_guild_created ON messages (guild_uuid, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_author ON messages (author_uuid, guild_uuid)`,
	`CREATE TABLE IF NOT EXISTS mentions (
		message_uuid BIGINT NOT NULL,
		user_uuid    BIGINT NOT NULL,
		mention_uuid BIGINT NOT NULL,
		guild_uuid   BIGINT NOT NULL,
		PRIMARY KEY (message_uuid, user_uuid, mention_uuid)
	)`,
	`CREATE TABLE IF NOT EXISTS private_messages (
		uuid       BIGINT PRIMARY KEY,
		author_uuid BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		metadatas  JSONB
	)`,
}
