package mirror

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"weeps/internal/store"
)

// historyPageSize is the platform's maximum page size for channel history.
const historyPageSize = 100

// ChannelHistorian is the slice of the chat platform the sweep needs:
// channel enumeration and paged history retrieval. *discordgo.Session
// satisfies it.
type ChannelHistorian interface {
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildThreadsActive(guildID string, options ...discordgo.RequestOption) (*discordgo.ThreadsList, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
}

type SweepResult struct {
	Channels int
	Messages int
}

// Sweeper runs one historical backfill for a guild. One sweep in flight
// per process; the live path does not share its accumulator.
type Sweeper struct {
	hist   ChannelHistorian
	writer BulkWriter
	acc    *Accumulator
	log    *slog.Logger
}

func NewSweeper(hist ChannelHistorian, writer BulkWriter, chunk int, log *slog.Logger) *Sweeper {
	return &Sweeper{
		hist:   hist,
		writer: writer,
		acc:    NewAccumulator(writer, chunk),
		log:    log,
	}
}

// Sweep walks every active thread (forum threads included) and text/news
// channel of the guild and streams their full history through the
// accumulator. It is idempotent per record but not transactional across
// the guild: a failure leaves all previously flushed chunks committed, and
// the operator re-runs the sweep.
func (s *Sweeper) Sweep(ctx context.Context, guild *discordgo.Guild) (SweepResult, error) {
	var res SweepResult

	// The guild row goes in first so channel foreign keys resolve.
	if err := s.writer.UpsertGuilds(ctx, []store.Guild{NormalizeGuild(guild)}); err != nil {
		return res, fmt.Errorf("sweep guild %s: %w", guild.ID, err)
	}
	guildID := Snowflake(guild.ID)
	roles := GuildRoleIndex(guild)

	var channels []*discordgo.Channel

	threads, err := s.hist.GuildThreadsActive(guild.ID)
	if err != nil {
		return res, fmt.Errorf("list active threads: %w", err)
	}
	channels = append(channels, threads.Threads...)

	guildChannels, err := s.hist.GuildChannels(guild.ID)
	if err != nil {
		return res, fmt.Errorf("list channels: %w", err)
	}
	for _, c := range guildChannels {
		if c.Type == discordgo.ChannelTypeGuildText || c.Type == discordgo.ChannelTypeGuildNews {
			channels = append(channels, c)
		}
	}

	for _, c := range channels {
		if err := s.sweepChannel(ctx, guildID, roles, c, &res); err != nil {
			return res, err
		}
		res.Channels++
	}

	if err := s.acc.Flush(ctx); err != nil {
		return res, err
	}

	s.log.Info("sweep complete", "guild", guild.ID, "channels", res.Channels, "messages", res.Messages)
	return res, nil
}

func (s *Sweeper) sweepChannel(ctx context.Context, guildID uint64, roles RoleIndex, c *discordgo.Channel, res *SweepResult) error {
	s.log.Info("sweeping channel", "channel", c.ID, "name", c.Name)
	s.acc.AddChannel(NormalizeChannel(guildID, c))

	before := ""
	for {
		page, err := s.hist.ChannelMessages(c.ID, historyPageSize, before, "", "")
		if err != nil {
			return fmt.Errorf("history of channel %s: %w", c.ID, err)
		}
		if len(page) == 0 {
			return nil
		}

		for _, m := range page {
			if m.Author != nil {
				s.acc.AddUser(NormalizeUser(guildID, m.Author, nil))
			}
			for _, mention := range NormalizeMentions(guildID, m) {
				s.acc.AddMention(mention)
			}
			if err := s.acc.AddMessage(ctx, NormalizeMessage(guildID, m, roles)); err != nil {
				return err
			}
			res.Messages++
		}

		before = page[len(page)-1].ID
		if len(page) < historyPageSize {
			return nil
		}
	}
}
