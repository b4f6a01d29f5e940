// Package store persists the Discord mirror: guilds, channels, per-guild
// users, messages, mentions and private messages, all keyed by platform
// snowflakes. Writes are conflict-tolerant bulk upserts so that live
// ingestion and historical sweeps can re-observe the same entities freely.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// Open connects to Postgres, verifies the connection and applies the
// bootstrap schema.
func Open(ctx context.Context, databaseURL string, log *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	// A sweep holds one connection for long stretches while the live path
	// keeps trickling single-row upserts; a small pool covers both.
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{pool: pool, log: log}
	if err := s.createSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("store ready", "max_conns", poolConfig.MaxConns)
	return s, nil
}

func (s *Store) createSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() {
	s.log.Info("closing store")
	s.pool.Close()
}

func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// bulkUpsert flattens rows into one multi-row INSERT ... ON CONFLICT. Any
// failure aborts the whole statement; callers decide what that means for
// the batch they were flushing.
func (s *Store) bulkUpsert(ctx context.Context, d tableDesc, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	args := make([]any, 0, len(rows)*len(d.columns))
	for _, row := range rows {
		args = append(args, row...)
	}

	tag, err := s.pool.Exec(ctx, d.upsertSQL(len(rows)), args...)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", d.name, err)
	}

	s.log.Debug("bulk upsert", "table", d.name, "rows", len(rows), "affected", tag.RowsAffected())
	return nil
}

func (s *Store) UpsertGuilds(ctx context.Context, guilds []Guild) error {
	rows := make([][]any, len(guilds))
	for i, g := range guilds {
		rows[i] = []any{g.ID, g.CreatedAt, g.Name}
	}
	return s.bulkUpsert(ctx, guildTable, rows)
}

func (s *Store) UpsertChannels(ctx context.Context, channels []Channel) error {
	rows := make([][]any, len(channels))
	for i, c := range channels {
		rows[i] = []any{c.ID, c.GuildID, c.CreatedAt, c.Name, c.Type, c.Metadatas}
	}
	return s.bulkUpsert(ctx, channelTable, rows)
}

func (s *Store) UpsertUsers(ctx context.Context, users []User) error {
	rows := make([][]any, len(users))
	for i, u := range users {
		rows[i] = []any{u.ID, u.GuildID, u.CreatedAt, u.Pseudo, u.IsBot, u.IsActive, u.JoinedAt}
	}
	return s.bulkUpsert(ctx, userTable, rows)
}

func (s *Store) UpsertMessages(ctx context.Context, messages []Message) error {
	rows := make([][]any, len(messages))
	for i, m := range messages {
		rows[i] = []any{m.ID, m.GuildID, m.ChannelID, m.AuthorID, m.CreatedAt, m.Content, m.ReferenceID, m.Metadatas}
	}
	return s.bulkUpsert(ctx, messageTable, rows)
}

func (s *Store) InsertMentions(ctx context.Context, mentions []Mention) error {
	rows := make([][]any, len(mentions))
	for i, m := range mentions {
		rows[i] = []any{m.MessageID, m.UserID, m.MentionID, m.GuildID}
	}
	return s.bulkUpsert(ctx, mentionTable, rows)
}

func (s *Store) InsertPrivateMessages(ctx context.Context, messages []PrivateMessage) error {
	rows := make([][]any, len(messages))
	for i, m := range messages {
		rows[i] = []any{m.ID, m.AuthorID, m.CreatedAt, m.Content, m.Metadatas}
	}
	return s.bulkUpsert(ctx, privateMessageTable, rows)
}
