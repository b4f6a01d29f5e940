package mirror

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/goccy/go-json"
	"github.com/samber/lo"
)

// Metadata extraction is best-effort: a structurally valid event always
// yields a payload, and absent categories omit their keys entirely rather
// than emitting empty placeholders.

type attachmentMetadata struct {
	Filename     string  `json:"filename"`
	URL          string  `json:"url"`
	ProxyURL     string  `json:"proxy_url"`
	Size         int     `json:"size"`
	Ephemeral    bool    `json:"ephemeral"`
	VoiceMessage bool    `json:"voice_message"`
	Duration     float64 `json:"duration,omitempty"`
	Waveform     string  `json:"waveform,omitempty"`
	Spoiler      bool    `json:"spoiler"`
}

type interactionMetadata struct {
	Type int    `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type messageMetadata struct {
	Attachments     []attachmentMetadata      `json:"attachments,omitempty"`
	ChannelMentions []string                  `json:"channel_mentions,omitempty"`
	MentionEveryone bool                      `json:"mention_everyone,omitempty"`
	RolesMentions   []string                  `json:"roles_mentions,omitempty"`
	Flags           []string                  `json:"flags,omitempty"`
	Interaction     *interactionMetadata      `json:"interaction_metadata,omitempty"`
	Stickers        []string                  `json:"stickers,omitempty"`
	Embeds          []*discordgo.MessageEmbed `json:"embeds,omitempty"`
}

type channelMetadata struct {
	NSFW         bool     `json:"nsfw"`
	News         bool     `json:"news"`
	Archived     *bool    `json:"archived,omitempty"`
	Flags        []string `json:"flags,omitempty"`
	MessageCount *int     `json:"message_count,omitempty"`
	Parent       *uint64  `json:"parent,omitempty"`
}

// RoleIndex maps role ids to display names so mentioned roles are stored
// by name, the way channel mentions already are.
type RoleIndex map[string]string

// GuildRoleIndex builds the role lookup from a guild's role list.
func GuildRoleIndex(g *discordgo.Guild) RoleIndex {
	if g == nil || len(g.Roles) == 0 {
		return nil
	}
	idx := make(RoleIndex, len(g.Roles))
	for _, r := range g.Roles {
		idx[r.ID] = r.Name
	}
	return idx
}

// names resolves mentioned role ids; an id missing from the index (role
// deleted since the message was sent) stays as the raw id.
func (idx RoleIndex) names(ids []string) []string {
	return lo.Map(ids, func(id string, _ int) string {
		if name, ok := idx[id]; ok {
			return name
		}
		return id
	})
}

var messageFlagNames = []struct {
	flag discordgo.MessageFlags
	name string
}{
	{discordgo.MessageFlagsCrossPosted, "crossposted"},
	{discordgo.MessageFlagsIsCrossPosted, "is_crosspost"},
	{discordgo.MessageFlagsSupressEmbeds, "suppress_embeds"},
	{discordgo.MessageFlagsSourceMessageDeleted, "source_message_deleted"},
	{discordgo.MessageFlagsUrgent, "urgent"},
	{discordgo.MessageFlagsHasThread, "has_thread"},
	{discordgo.MessageFlagsEphemeral, "ephemeral"},
	{discordgo.MessageFlagsLoading, "loading"},
	{discordgo.MessageFlagsFailedToMentionSomeRolesInThread, "failed_to_mention_some_roles_in_thread"},
}

// MessageMetadata serializes the auxiliary payload for one message:
// attachments, explicit channel/role mentions, active flags, interaction
// provenance, stickers and structural embeds.
func MessageMetadata(m *discordgo.Message, roles RoleIndex) []byte {
	meta := messageMetadata{
		MentionEveryone: m.MentionEveryone,
		RolesMentions:   roles.names(m.MentionRoles),
		Embeds:          m.Embeds,
	}

	if len(m.Attachments) > 0 {
		meta.Attachments = lo.Map(m.Attachments, func(a *discordgo.MessageAttachment, _ int) attachmentMetadata {
			return attachmentMetadata{
				Filename:     a.Filename,
				URL:          a.URL,
				ProxyURL:     a.ProxyURL,
				Size:         a.Size,
				Ephemeral:    a.Ephemeral,
				VoiceMessage: a.Waveform != "",
				Duration:     a.DurationSecs,
				Waveform:     a.Waveform,
				Spoiler:      strings.HasPrefix(a.Filename, "SPOILER_"),
			}
		})
	}

	if len(m.MentionChannels) > 0 {
		meta.ChannelMentions = lo.Map(m.MentionChannels, func(c *discordgo.Channel, _ int) string {
			return c.Name
		})
	}

	for _, f := range messageFlagNames {
		if m.Flags&f.flag != 0 {
			meta.Flags = append(meta.Flags, f.name)
		}
	}

	if m.Interaction != nil {
		meta.Interaction = &interactionMetadata{
			Type: int(m.Interaction.Type),
			ID:   m.Interaction.ID,
			Name: m.Interaction.Name,
		}
	}

	if len(m.StickerItems) > 0 {
		meta.Stickers = lo.Map(m.StickerItems, func(s *discordgo.StickerItem, _ int) string {
			return s.Name
		})
	}

	return marshalMetadata(meta)
}

// ChannelMetadata serializes the nsfw/news flags, plus thread state when
// the channel is a thread.
func ChannelMetadata(c *discordgo.Channel) []byte {
	meta := channelMetadata{
		NSFW: c.NSFW,
		News: c.Type == discordgo.ChannelTypeGuildNews,
	}

	if c.IsThread() {
		archived := false
		if c.ThreadMetadata != nil {
			archived = c.ThreadMetadata.Archived
		}
		meta.Archived = &archived

		if c.Flags&discordgo.ChannelFlagPinned != 0 {
			meta.Flags = append(meta.Flags, "pinned")
		}
		if c.Flags&discordgo.ChannelFlagRequireTag != 0 {
			meta.Flags = append(meta.Flags, "require_tag")
		}

		count := c.MessageCount
		meta.MessageCount = &count

		if c.ParentID != "" {
			parent := Snowflake(c.ParentID)
			meta.Parent = &parent
		}
	}

	return marshalMetadata(meta)
}

func marshalMetadata(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Extraction never fails the event; an unserializable payload
		// degrades to an absent metadata column.
		return nil
	}
	return data
}
