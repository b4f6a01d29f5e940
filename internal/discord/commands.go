package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/posthog/posthog-go"

	"weeps/internal/mirror"
)

func (b *Bot) dispatchCommand(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if !strings.HasPrefix(m.Content, b.cfg.CommandPrefix) {
		return
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, b.cfg.CommandPrefix))
	if len(fields) == 0 {
		return
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "sweep":
		b.cmdSweep(ctx, s, m)
	case "updatejoindates":
		b.cmdUpdateJoinDates(ctx, s, m)
	case "synctree":
		b.cmdSyncTree(s, m)
	case "clearcache":
		b.cmdClearCache(s, m)
	case "avatar":
		b.cmdAvatar(s, m)
	case "card":
		b.cmdCard(ctx, s, m)
	case "account":
		b.cmdAccount(ctx, s, m)
	case "bank":
		b.cmdBank(ctx, s, m)
	case "ask":
		b.cmdAsk(ctx, s, m, strings.Join(args, " "))
	case "ping":
		b.reply(s, m, "pong")
	}
}

func (b *Bot) reply(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSend(m.ChannelID, content); err != nil {
		b.log.Error("send reply", "channel", m.ChannelID, "err", err)
	}
}

func (b *Bot) react(s *discordgo.Session, m *discordgo.MessageCreate, emoji string) {
	if err := s.MessageReactionAdd(m.ChannelID, m.ID, emoji); err != nil {
		b.log.Error("add reaction", "message", m.ID, "err", err)
	}
}

// targetMember resolves the member a command applies to: first mention if
// present, otherwise the author.
func (b *Bot) targetMember(m *discordgo.MessageCreate) *discordgo.User {
	if len(m.Mentions) > 0 {
		return m.Mentions[0]
	}
	return m.Author
}

// cmdSweep runs the historical backfill for the guild. Owner-only, one at
// a time per process; not meant to be used often.
func (b *Bot) cmdSweep(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if !b.isOwner(m.Author.ID) {
		return
	}
	if !b.sweeping.CompareAndSwap(false, true) {
		b.reply(s, m, "Un sweep est déjà en cours.")
		return
	}
	defer b.sweeping.Store(false)

	guild, err := b.resolveGuild(s, m.GuildID)
	if err != nil {
		b.reply(s, m, "Impossible de résoudre le serveur.")
		return
	}

	b.reply(s, m, "Je commence le sweep")

	sweeper := mirror.NewSweeper(s, b.store, b.cfg.SweepChunk, b.log)
	res, err := sweeper.Sweep(ctx, guild)
	if err != nil {
		b.log.Error("sweep failed", "guild", m.GuildID, "err", err)
		b.reply(s, m, fmt.Sprintf("Sweep échoué : %v", err))
		return
	}

	b.captureSweep(m.Author.ID, m.GuildID, res)
	b.reply(s, m, fmt.Sprintf("Sweep done : %d channels, %d messages", res.Channels, res.Messages))
}

func (b *Bot) captureSweep(authorID, guildID string, res mirror.SweepResult) {
	if b.analytics == nil {
		return
	}
	err := b.analytics.Enqueue(posthog.Capture{
		DistinctId: authorID,
		Event:      "sweep_completed",
		Properties: posthog.NewProperties().
			Set("guild_id", guildID).
			Set("channels", res.Channels).
			Set("messages", res.Messages),
	})
	if err != nil {
		b.log.Error("posthog capture", "err", err)
	}
}

// cmdUpdateJoinDates rewinds join dates from the oldest mirrored message
// of each member. Owner-only.
func (b *Bot) cmdUpdateJoinDates(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if !b.isOwner(m.Author.ID) {
		return
	}
	updated, err := b.store.RefreshJoinDates(ctx, mirror.Snowflake(m.GuildID))
	if err != nil {
		b.log.Error("refresh join dates", "guild", m.GuildID, "err", err)
		b.reply(s, m, "Erreur pendant la mise à jour.")
		return
	}
	b.react(s, m, "✅")
	b.reply(s, m, fmt.Sprintf("%d membres mis à jour", updated))
}

// cmdSyncTree re-registers the slash command tree for this guild. Not a
// routine command; Discord rate-limits registration aggressively.
func (b *Bot) cmdSyncTree(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !b.isOwner(m.Author.ID) {
		return
	}
	if _, err := s.ApplicationCommandBulkOverwrite(b.appID, m.GuildID, slashCommands); err != nil {
		b.log.Error("sync command tree", "guild", m.GuildID, "err", err)
		b.reply(s, m, "Erreur pendant la synchronisation.")
		return
	}
	b.react(s, m, "👍")
}

// cmdClearCache drops the session's cached guild state so the next
// resolve refetches from the API.
func (b *Bot) cmdClearCache(s *discordgo.Session, m *discordgo.MessageCreate) {
	if !b.isOwner(m.Author.ID) {
		return
	}
	if guild, err := s.State.Guild(m.GuildID); err == nil {
		if err := s.State.GuildRemove(guild); err != nil {
			b.log.Error("clear cache", "guild", m.GuildID, "err", err)
		}
	}
	b.react(s, m, "👍")
}

func (b *Bot) cmdAvatar(s *discordgo.Session, m *discordgo.MessageCreate) {
	member := b.targetMember(m)
	b.reply(s, m, member.AvatarURL("256"))
}

// cmdCard shows the mirrored join-date card for a member.
func (b *Bot) cmdCard(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	member := b.targetMember(m)
	embed, err := b.cardEmbed(ctx, s, m.GuildID, member)
	if err != nil {
		b.log.Error("card", "user", member.ID, "err", err)
		return
	}
	if embed == nil {
		b.reply(s, m, fmt.Sprintf("Pas de données pour %s", member.Username))
		return
	}
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		b.log.Error("send card", "channel", m.ChannelID, "err", err)
	}
}

func (b *Bot) cardEmbed(ctx context.Context, s *discordgo.Session, guildID string, member *discordgo.User) (*discordgo.MessageEmbed, error) {
	user, err := b.store.GetUser(ctx, mirror.Snowflake(guildID), mirror.Snowflake(member.ID))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	embed := &discordgo.MessageEmbed{
		Title: user.Pseudo,
		Description: fmt.Sprintf(
			"- A rejoint le serveur le %s\n- A rejoint discord le %s",
			user.JoinedAt.Format("02/01/2006 à 15h04"),
			user.CreatedAt.Format("02/01/2006"),
		),
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: member.AvatarURL("256")},
	}
	if guild, gerr := b.resolveGuild(s, guildID); gerr == nil {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text:    guild.Name,
			IconURL: guild.IconURL("64"),
		}
	}
	return embed, nil
}

// cmdAccount shows a member's mirror account: identity plus activity
// counters.
func (b *Bot) cmdAccount(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	member := b.targetMember(m)
	embed, err := b.accountEmbed(ctx, m.GuildID, member)
	if err != nil {
		b.log.Error("account", "user", member.ID, "err", err)
		return
	}
	if embed == nil {
		b.reply(s, m, fmt.Sprintf("Pas de compte pour %s", member.Username))
		return
	}
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		b.log.Error("send account", "channel", m.ChannelID, "err", err)
	}
}

func (b *Bot) accountEmbed(ctx context.Context, guildID string, member *discordgo.User) (*discordgo.MessageEmbed, error) {
	gid := mirror.Snowflake(guildID)

	user, err := b.store.GetUser(ctx, gid, mirror.Snowflake(member.ID))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	count, err := b.store.CountMessages(ctx, gid, user.ID)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf(
		"**%s**\n- Membre depuis le %s\n- %d messages archivés",
		user.Pseudo,
		user.JoinedAt.Format("02/01/2006"),
		count,
	)
	if oldest, err := b.store.OldestMessageTime(ctx, gid, user.ID); err == nil && oldest != nil {
		description += fmt.Sprintf("\n- Premier message le %s", oldest.Format("02/01/2006"))
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Compte de %s", user.Pseudo),
		Description: description,
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: member.AvatarURL("256")},
	}, nil
}

// cmdBank shows the sonium balance, earned one per archived message.
func (b *Bot) cmdBank(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	member := b.targetMember(m)
	count, err := b.store.CountMessages(ctx, mirror.Snowflake(m.GuildID), mirror.Snowflake(member.ID))
	if err != nil {
		b.log.Error("bank", "user", member.ID, "err", err)
		return
	}
	b.reply(s, m, fmt.Sprintf("Banque de %s : %d soniums", member.Username, count))
}

func (b *Bot) cmdAsk(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, prompt string) {
	if b.llm == nil {
		b.reply(s, m, fmt.Sprintf("%s ne répond pas aux questions.", b.persona))
		return
	}
	if prompt == "" {
		b.reply(s, m, "Pose-moi une question après la commande.")
		return
	}

	if err := s.ChannelTyping(m.ChannelID); err != nil {
		b.log.Debug("channel typing", "err", err)
	}

	answer, err := b.llm.Reply(ctx, mirror.Snowflake(m.GuildID), prompt)
	if err != nil {
		b.log.Error("llm reply", "err", err)
		b.reply(s, m, "Je n'arrive pas à réfléchir pour le moment.")
		return
	}
	b.reply(s, m, answer)
}
