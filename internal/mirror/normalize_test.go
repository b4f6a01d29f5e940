package mirror

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Snowflake from the platform's own documentation: encodes
// 2016-04-30 11:18:25.796 UTC.
const docSnowflake = "175928847299117063"

func TestSnowflake(t *testing.T) {
	if got := Snowflake(docSnowflake); got != 175928847299117063 {
		t.Errorf("Snowflake = %d", got)
	}
	if got := Snowflake("not-a-number"); got != 0 {
		t.Errorf("malformed snowflake = %d, want 0", got)
	}

	want := time.Date(2016, 4, 30, 11, 18, 25, 796_000_000, time.UTC)
	if got := snowflakeTime(docSnowflake); !got.Equal(want) {
		t.Errorf("snowflakeTime = %v, want %v", got, want)
	}
}

func TestNormalizeMessage(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	msg := &discordgo.Message{
		ID:        "1001",
		ChannelID: "2002",
		Content:   "bonjour",
		Timestamp: time.Date(2024, 3, 1, 13, 0, 0, 0, paris),
		Author:    &discordgo.User{ID: "3003", Username: "alice"},
		MessageReference: &discordgo.MessageReference{
			MessageID: "999",
		},
		MentionRoles: []string{"400"},
	}

	got := NormalizeMessage(42, msg, RoleIndex{"400": "moderators"})

	if got.ID != 1001 || got.GuildID != 42 || got.ChannelID != 2002 || got.AuthorID != 3003 {
		t.Errorf("ids = %+v", got)
	}
	if !got.CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at not normalized to UTC: %v", got.CreatedAt)
	}
	if got.ReferenceID == nil || *got.ReferenceID != 999 {
		t.Errorf("reference = %v", got.ReferenceID)
	}
	if len(got.Metadatas) == 0 {
		t.Errorf("metadata payload missing")
	}
	meta := decodeMetadata(t, got.Metadatas)
	if roles, ok := meta["roles_mentions"].([]any); !ok || len(roles) != 1 || roles[0] != "moderators" {
		t.Errorf("roles_mentions = %v, want [moderators]", meta["roles_mentions"])
	}
}

func TestNormalizeMessageWithoutReference(t *testing.T) {
	got := NormalizeMessage(42, &discordgo.Message{ID: "1", ChannelID: "2", Author: &discordgo.User{ID: "3"}}, nil)
	if got.ReferenceID != nil {
		t.Errorf("reference = %v, want nil", got.ReferenceID)
	}
}

func TestNormalizeUserJoinDateFallback(t *testing.T) {
	user := &discordgo.User{ID: docSnowflake, Username: "bob", Bot: true}

	t.Run("history message without member", func(t *testing.T) {
		got := NormalizeUser(42, user, nil)
		if !got.JoinedAt.Equal(got.CreatedAt) {
			t.Errorf("joined_at = %v, want account creation %v", got.JoinedAt, got.CreatedAt)
		}
		if !got.IsBot || !got.IsActive {
			t.Errorf("flags = %+v", got)
		}
	})

	t.Run("live message with member", func(t *testing.T) {
		joined := time.Date(2020, 6, 1, 9, 30, 0, 0, time.UTC)
		got := NormalizeUser(42, user, &joined)
		if !got.JoinedAt.Equal(joined) {
			t.Errorf("joined_at = %v, want %v", got.JoinedAt, joined)
		}
	})
}

func TestNormalizeMentions(t *testing.T) {
	msg := &discordgo.Message{
		ID:     "1001",
		Author: &discordgo.User{ID: "3003"},
		Mentions: []*discordgo.User{
			{ID: "4004"},
			{ID: "5005"},
		},
	}

	got := NormalizeMentions(42, msg)
	if len(got) != 2 {
		t.Fatalf("mentions = %v", got)
	}
	for i, want := range []uint64{4004, 5005} {
		m := got[i]
		if m.MessageID != 1001 || m.UserID != 3003 || m.MentionID != want || m.GuildID != 42 {
			t.Errorf("mention %d = %+v", i, m)
		}
	}

	if got := NormalizeMentions(42, &discordgo.Message{ID: "1", Author: &discordgo.User{ID: "2"}}); got != nil {
		t.Errorf("mentions of a plain message = %v, want nil", got)
	}
}

func TestNormalizeChannelTypeNames(t *testing.T) {
	cases := []struct {
		typ  discordgo.ChannelType
		want string
	}{
		{discordgo.ChannelTypeGuildText, "text"},
		{discordgo.ChannelTypeGuildNews, "news"},
		{discordgo.ChannelTypeGuildPublicThread, "public_thread"},
		{discordgo.ChannelType(99), "99"},
	}
	for _, c := range cases {
		got := NormalizeChannel(42, &discordgo.Channel{ID: "7", Type: c.typ})
		if got.Type != c.want {
			t.Errorf("type %d = %q, want %q", c.typ, got.Type, c.want)
		}
		if got.GuildID != 42 {
			t.Errorf("guild id = %d", got.GuildID)
		}
	}
}
