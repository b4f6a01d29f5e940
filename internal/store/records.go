package store

import "time"

// Row types mirror the platform's natural identifiers: every id is a
// snowflake treated as an opaque unsigned 64-bit integer, and timestamps
// are stored as timezone-naive UTC instants.

type Guild struct {
	ID        uint64
	CreatedAt time.Time
	Name      string
}

type Channel struct {
	ID        uint64
	GuildID   uint64
	CreatedAt time.Time
	Name      string
	Type      string
	Metadatas []byte
}

// User is scoped per guild: the same account in two guilds yields two rows.
type User struct {
	ID        uint64
	GuildID   uint64
	CreatedAt time.Time
	Pseudo    string
	IsBot     bool
	IsActive  bool
	JoinedAt  time.Time
}

type Message struct {
	ID          uint64
	GuildID     uint64
	ChannelID   uint64
	AuthorID    uint64
	CreatedAt   time.Time
	Content     string
	ReferenceID *uint64
	Metadatas   []byte
}

// Mention records "author referenced target in message". It carries no
// mutable payload; re-ingesting the same message is a no-op.
type Mention struct {
	MessageID uint64
	UserID    uint64
	MentionID uint64
	GuildID   uint64
}

// PrivateMessage is a direct or group message outside any guild.
type PrivateMessage struct {
	ID        uint64
	AuthorID  uint64
	CreatedAt time.Time
	Content   string
	Metadatas []byte
}
