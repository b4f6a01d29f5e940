// Package discord hosts the mirror bot personas: the live ingestion path,
// the command surface and the sweep trigger.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/posthog/posthog-go"

	"weeps/internal/config"
	"weeps/internal/llm"
	"weeps/internal/mirror"
	"weeps/internal/store"
)

type Bot struct {
	Session *discordgo.Session

	persona   string
	cfg       *config.Config
	store     *store.Store
	llm       *llm.Client
	analytics posthog.Client
	log       *slog.Logger

	appID    string
	ownerID  string
	sweeping atomic.Bool
}

// New builds the bot session. llmClient and analytics may be nil; the lean
// persona runs without them.
func New(
	persona string,
	cfg *config.Config,
	st *store.Store,
	llmClient *llm.Client,
	analytics posthog.Client,
	log *slog.Logger,
) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("init discordgo: %w", err)
	}

	bot := &Bot{
		Session:   dg,
		persona:   persona,
		cfg:       cfg,
		store:     st,
		llm:       llmClient,
		analytics: analytics,
		log:       log,
	}
	bot.Session.Identify.Intents = discordgo.IntentsAllWithoutPrivileged |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	bot.Session.AddHandler(bot.onMessageCreate)
	bot.Session.AddHandler(bot.onInteractionCreate)

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	app, err := b.Session.Application("@me")
	if err != nil {
		return fmt.Errorf("fetch application: %w", err)
	}
	b.appID = app.ID
	if app.Owner != nil {
		b.ownerID = app.Owner.ID
	}

	b.log.Info("bot connected", "persona", b.persona, "app_id", b.appID)
	return nil
}

func (b *Bot) Close() {
	if err := b.Session.Close(); err != nil {
		b.log.Error("error closing discord session", "err", err)
	}
}

func (b *Bot) isOwner(userID string) bool {
	return b.ownerID != "" && userID == b.ownerID
}

// onMessageCreate is the live ingestion path: every message is mirrored
// immediately with per-message upserts, then command dispatch runs for
// non-bot authors.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	ctx := context.Background()

	if m.GuildID == "" {
		if m.Author.ID == s.State.User.ID {
			return
		}
		b.mirrorPrivateMessage(ctx, m.Message)
		return
	}

	b.mirrorGuildMessage(ctx, s, m)

	if !m.Author.Bot {
		b.dispatchCommand(ctx, s, m)
	}
}

func (b *Bot) mirrorPrivateMessage(ctx context.Context, m *discordgo.Message) {
	pm := mirror.NormalizePrivateMessage(m)
	if err := b.store.InsertPrivateMessages(ctx, []store.PrivateMessage{pm}); err != nil {
		b.log.Error("mirror private message", "message", m.ID, "err", err)
	}
}

// mirrorGuildMessage applies the per-message upsert chain in dependency
// order: guild, channel, user, message, mentions. A failure stops the
// chain so no row can reference a missing parent.
func (b *Bot) mirrorGuildMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	guild, err := b.resolveGuild(s, m.GuildID)
	if err != nil {
		b.log.Error("resolve guild", "guild", m.GuildID, "err", err)
		return
	}
	channel, err := b.resolveChannel(s, m.ChannelID)
	if err != nil {
		b.log.Error("resolve channel", "channel", m.ChannelID, "err", err)
		return
	}

	guildID := mirror.NormalizeGuild(guild).ID

	if err := b.store.UpsertGuilds(ctx, []store.Guild{mirror.NormalizeGuild(guild)}); err != nil {
		b.log.Error("mirror guild", "guild", m.GuildID, "err", err)
		return
	}
	if err := b.store.UpsertChannels(ctx, []store.Channel{mirror.NormalizeChannel(guildID, channel)}); err != nil {
		b.log.Error("mirror channel", "channel", m.ChannelID, "err", err)
		return
	}

	user := mirror.NormalizeUser(guildID, m.Author, nil)
	if m.Member != nil && !m.Member.JoinedAt.IsZero() {
		user = mirror.NormalizeUser(guildID, m.Author, &m.Member.JoinedAt)
	}
	if err := b.store.UpsertUsers(ctx, []store.User{user}); err != nil {
		b.log.Error("mirror user", "user", m.Author.ID, "err", err)
		return
	}

	if err := b.store.UpsertMessages(ctx, []store.Message{mirror.NormalizeMessage(guildID, m.Message, mirror.GuildRoleIndex(guild))}); err != nil {
		b.log.Error("mirror message", "message", m.ID, "err", err)
		return
	}

	if mentions := mirror.NormalizeMentions(guildID, m.Message); len(mentions) > 0 {
		if err := b.store.InsertMentions(ctx, mentions); err != nil {
			b.log.Error("mirror mentions", "message", m.ID, "err", err)
		}
	}
}

func (b *Bot) resolveGuild(s *discordgo.Session, guildID string) (*discordgo.Guild, error) {
	if g, err := s.State.Guild(guildID); err == nil {
		return g, nil
	}
	return s.Guild(guildID)
}

func (b *Bot) resolveChannel(s *discordgo.Session, channelID string) (*discordgo.Channel, error) {
	if c, err := s.State.Channel(channelID); err == nil {
		return c, nil
	}
	return s.Channel(channelID)
}
