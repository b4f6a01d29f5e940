package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// slashCommands mirrors the member-facing half of the prefix surface.
// Registration happens through the owner's synctree command, never at
// startup.
var slashCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "avatar",
		Description: "Affiche l'avatar du membre spécifié, ou le tien",
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("Membre à afficher"),
		},
	},
	{
		Name:        "card",
		Description: "Affiche les informations discord du membre spécifié, ou les tiennes",
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("Membre à afficher"),
		},
	},
	{
		Name:        "account",
		Description: "Affiche le compte du membre spécifié, ou le tien",
		Options: []*discordgo.ApplicationCommandOption{
			memberOption("Membre à afficher"),
		},
	},
}

func memberOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "member",
		Description: description,
		Required:    false,
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx := context.Background()
	data := i.ApplicationCommandData()

	target := b.interactionTarget(s, i)
	if target == nil {
		return
	}

	switch data.Name {
	case "avatar":
		b.respond(s, i, target.AvatarURL("256"), nil)
	case "card":
		embed, err := b.cardEmbed(ctx, s, i.GuildID, target)
		if err != nil {
			b.log.Error("card interaction", "user", target.ID, "err", err)
			return
		}
		if embed == nil {
			b.respond(s, i, "Pas de données pour "+target.Username, nil)
			return
		}
		b.respond(s, i, "", embed)
	case "account":
		embed, err := b.accountEmbed(ctx, i.GuildID, target)
		if err != nil {
			b.log.Error("account interaction", "user", target.ID, "err", err)
			return
		}
		if embed == nil {
			b.respond(s, i, "Pas de compte pour "+target.Username, nil)
			return
		}
		b.respond(s, i, "", embed)
	}
}

// interactionTarget picks the user option when given, otherwise the
// invoking member.
func (b *Bot) interactionTarget(s *discordgo.Session, i *discordgo.InteractionCreate) *discordgo.User {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Type == discordgo.ApplicationCommandOptionUser {
			return opt.UserValue(s)
		}
	}
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, embed *discordgo.MessageEmbed) {
	data := &discordgo.InteractionResponseData{Content: content}
	if embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.log.Error("interaction respond", "err", err)
	}
}
