// Package llm wires the persona's language model through Genkit.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"weeps/internal/store"
)

type Client struct {
	g       *genkit.Genkit
	persona string

	recentMessagesTool ai.Tool
}

// Init sets up Genkit with the OpenAI-compatible and GoogleAI plugins and
// defines the recentMessages tool over the mirror store.
func Init(ctx context.Context, persona string, st *store.Store) (*Client, error) {
	oai := &openai.OpenAI{}
	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{}, oai),
		genkit.WithDefaultModel("googleai/gemini-flash-latest"),
	)

	return &Client{
		g:                  g,
		persona:            persona,
		recentMessagesTool: defineRecentMessagesTool(g, st),
	}, nil
}

// Reply generates a persona answer to a prompt. The model can pull recent
// mirrored messages for context through the recentMessages tool.
func (c *Client) Reply(ctx context.Context, guildID uint64, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, c.g,
		ai.WithSystem(c.systemPrompt(guildID)),
		ai.WithPrompt(prompt),
		ai.WithTools(c.recentMessagesTool),
	)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return resp.Text(), nil
}

func (c *Client) systemPrompt(guildID uint64) string {
	now := time.Now()
	return fmt.Sprintf(
		"Your name is %s. You are a helpful AI assistant on a Discord server.\n"+
			"Date of day (DD/MM/YYYY): %s. Hour of the day: %s.\n"+
			"When you need conversation context, call the recentMessages tool with guild_id %d.",
		c.persona, now.Format("02/01/2006"), now.Format("15:04"), guildID,
	)
}

type RecentMessagesInput struct {
	GuildID uint64 `json:"guild_id"`
	Limit   int    `json:"limit,omitempty"`
}

type RecentMessagesOutput struct {
	Messages []ContextMessage `json:"messages"`
}

type ContextMessage struct {
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

func defineRecentMessagesTool(g *genkit.Genkit, st *store.Store) ai.Tool {
	return genkit.DefineTool(
		g,
		"recentMessages",
		"Get the most recent messages of the guild, with author name and timestamp",
		func(ctx *ai.ToolContext, input RecentMessagesInput) (*RecentMessagesOutput, error) {
			limit := input.Limit
			if limit <= 0 || limit > 50 {
				limit = 20
			}

			messages, err := st.RecentMessages(ctx, input.GuildID, limit)
			if err != nil {
				return nil, err
			}

			output := make([]ContextMessage, len(messages))
			for i, m := range messages {
				output[i] = ContextMessage{
					Content:   m.Content,
					Author:    m.Author,
					Timestamp: m.CreatedAt,
				}
			}
			return &RecentMessagesOutput{Messages: output}, nil
		},
	)
}
