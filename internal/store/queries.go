package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetUser returns the mirrored user row, or nil, nil when the member has
// never been observed in that guild.
func (s *Store) GetUser(ctx context.Context, guildID, userID uint64) (*User, error) {
	query := `
		SELECT uuid, guild_uuid, created_at, pseudo, is_bot, is_active, joined_at
		FROM users
		WHERE uuid = $1 AND guild_uuid = $2`

	var u User
	err := s.pool.QueryRow(ctx, query, userID, guildID).Scan(
		&u.ID,
		&u.GuildID,
		&u.CreatedAt,
		&u.Pseudo,
		&u.IsBot,
		&u.IsActive,
		&u.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// RecentMessage is a message joined with its author's pseudo, for the LLM
// context window and the account views.
type RecentMessage struct {
	Content   string
	Author    string
	CreatedAt time.Time
}

func (s *Store) RecentMessages(ctx context.Context, guildID uint64, limit int) ([]RecentMessage, error) {
	query := `
		SELECT m.content, u.pseudo, m.created_at
		FROM messages m
		JOIN users u ON u.uuid = m.author_uuid AND u.guild_uuid = m.guild_uuid
		WHERE m.guild_uuid = $1
		ORDER BY m.created_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	messages := make([]RecentMessage, 0, limit)
	for rows.Next() {
		var m RecentMessage
		if err := rows.Scan(&m.Content, &m.Author, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent messages: %w", err)
	}
	return messages, nil
}

// CountMessages returns how many messages a member has in the mirror.
func (s *Store) CountMessages(ctx context.Context, guildID, authorID uint64) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE guild_uuid = $1 AND author_uuid = $2`,
		guildID, authorID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// OldestMessageTime returns the timestamp of a member's earliest mirrored
// message, or nil, nil when none exists.
func (s *Store) OldestMessageTime(ctx context.Context, guildID, authorID uint64) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT MIN(created_at) FROM messages WHERE guild_uuid = $1 AND author_uuid = $2 HAVING COUNT(*) > 0`,
		guildID, authorID,
	).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("oldest message time: %w", err)
	}
	return &t, nil
}

// RefreshJoinDates rewinds each user's joined_at to their oldest mirrored
// message when the history reaches further back than the recorded join
// date. Member objects without a join date fall back to account creation,
// so a sweep can leave joined_at later than the member's real activity.
func (s *Store) RefreshJoinDates(ctx context.Context, guildID uint64) (int64, error) {
	query := `
		UPDATE users u
		SET joined_at = first.at
		FROM (
			SELECT author_uuid, guild_uuid, MIN(created_at) AS at
			FROM messages
			GROUP BY author_uuid, guild_uuid
		) first
		WHERE u.uuid = first.author_uuid
		  AND u.guild_uuid = first.guild_uuid
		  AND u.guild_uuid = $1
		  AND first.at < u.joined_at`

	tag, err := s.pool.Exec(ctx, query, guildID)
	if err != nil {
		return 0, fmt.Errorf("refresh join dates: %w", err)
	}
	return tag.RowsAffected(), nil
}
