// Package mirror turns Discord gateway and history objects into store rows
// and drives the batched sweep ingestion pipeline.
package mirror

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"

	"weeps/internal/store"
)

// Snowflake parses a platform id. Ids are opaque uint64s; a malformed one
// normalizes to zero rather than failing the event.
func Snowflake(id string) uint64 {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// snowflakeTime recovers the creation instant encoded in a snowflake.
func snowflakeTime(id string) time.Time {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

var channelTypeNames = map[discordgo.ChannelType]string{
	discordgo.ChannelTypeGuildText:          "text",
	discordgo.ChannelTypeDM:                 "dm",
	discordgo.ChannelTypeGuildVoice:         "voice",
	discordgo.ChannelTypeGroupDM:            "group_dm",
	discordgo.ChannelTypeGuildCategory:      "category",
	discordgo.ChannelTypeGuildNews:          "news",
	discordgo.ChannelTypeGuildStore:         "store",
	discordgo.ChannelTypeGuildNewsThread:    "news_thread",
	discordgo.ChannelTypeGuildPublicThread:  "public_thread",
	discordgo.ChannelTypeGuildPrivateThread: "private_thread",
	discordgo.ChannelTypeGuildStageVoice:    "stage_voice",
	discordgo.ChannelTypeGuildForum:         "forum",
}

func channelTypeName(t discordgo.ChannelType) string {
	if name, ok := channelTypeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

func NormalizeGuild(g *discordgo.Guild) store.Guild {
	return store.Guild{
		ID:        Snowflake(g.ID),
		CreatedAt: snowflakeTime(g.ID),
		Name:      g.Name,
	}
}

func NormalizeChannel(guildID uint64, c *discordgo.Channel) store.Channel {
	return store.Channel{
		ID:        Snowflake(c.ID),
		GuildID:   guildID,
		CreatedAt: snowflakeTime(c.ID),
		Name:      c.Name,
		Type:      channelTypeName(c.Type),
		Metadatas: ChannelMetadata(c),
	}
}

// NormalizeUser builds the per-guild user row. History messages carry no
// member object, so a nil joinedAt falls back to the account creation
// instant; RefreshJoinDates can tighten it later from mirrored activity.
func NormalizeUser(guildID uint64, u *discordgo.User, joinedAt *time.Time) store.User {
	created := snowflakeTime(u.ID)
	joined := created
	if joinedAt != nil && !joinedAt.IsZero() {
		joined = joinedAt.UTC()
	}
	return store.User{
		ID:        Snowflake(u.ID),
		GuildID:   guildID,
		CreatedAt: created,
		Pseudo:    u.Username,
		IsBot:     u.Bot,
		IsActive:  true,
		JoinedAt:  joined,
	}
}

func NormalizeMessage(guildID uint64, m *discordgo.Message, roles RoleIndex) store.Message {
	msg := store.Message{
		ID:        Snowflake(m.ID),
		GuildID:   guildID,
		ChannelID: Snowflake(m.ChannelID),
		CreatedAt: m.Timestamp.UTC(),
		Content:   m.Content,
		Metadatas: MessageMetadata(m, roles),
	}
	if m.Author != nil {
		msg.AuthorID = Snowflake(m.Author.ID)
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != "" {
		ref := Snowflake(m.MessageReference.MessageID)
		msg.ReferenceID = &ref
	}
	return msg
}

// NormalizeMentions yields one row per user the author referenced.
func NormalizeMentions(guildID uint64, m *discordgo.Message) []store.Mention {
	if m.Author == nil || len(m.Mentions) == 0 {
		return nil
	}
	messageID := Snowflake(m.ID)
	authorID := Snowflake(m.Author.ID)
	return lo.Map(m.Mentions, func(target *discordgo.User, _ int) store.Mention {
		return store.Mention{
			MessageID: messageID,
			UserID:    authorID,
			MentionID: Snowflake(target.ID),
			GuildID:   guildID,
		}
	})
}

func NormalizePrivateMessage(m *discordgo.Message) store.PrivateMessage {
	pm := store.PrivateMessage{
		ID:        Snowflake(m.ID),
		CreatedAt: m.Timestamp.UTC(),
		Content:   m.Content,
		Metadatas: MessageMetadata(m, nil),
	}
	if m.Author != nil {
		pm.AuthorID = Snowflake(m.Author.ID)
	}
	return pm
}
