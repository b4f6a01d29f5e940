package mirror

import (
	"context"
	"fmt"

	"weeps/internal/store"
)

// BulkWriter is the storage collaborator: conflict-tolerant bulk writes,
// one call per entity kind. *store.Store satisfies it; tests swap in a
// fake.
type BulkWriter interface {
	UpsertGuilds(ctx context.Context, guilds []store.Guild) error
	UpsertChannels(ctx context.Context, channels []store.Channel) error
	UpsertUsers(ctx context.Context, users []store.User) error
	UpsertMessages(ctx context.Context, messages []store.Message) error
	InsertMentions(ctx context.Context, mentions []store.Mention) error
}

// DefaultChunk is how many messages a sweep processes between flushes.
const DefaultChunk = 1000

type userKey struct {
	id    uint64
	guild uint64
}

// Accumulator buffers rows per entity kind until the message count reaches
// the chunk size, then flushes them in dependency order. One accumulator
// serves one sweep; it is not safe for concurrent use.
type Accumulator struct {
	writer BulkWriter
	chunk  int
	count  int

	channels     []store.Channel
	seenChannels map[uint64]struct{}
	users        []store.User
	seenUsers    map[userKey]struct{}
	messages     []store.Message
	mentions     []store.Mention
}

func NewAccumulator(writer BulkWriter, chunk int) *Accumulator {
	if chunk <= 0 {
		chunk = DefaultChunk
	}
	return &Accumulator{
		writer:       writer,
		chunk:        chunk,
		seenChannels: make(map[uint64]struct{}),
		seenUsers:    make(map[userKey]struct{}),
	}
}

// AddChannel queues a channel row once per run; the same channel shows up
// on thousands of messages within one sweep.
func (a *Accumulator) AddChannel(c store.Channel) {
	if _, seen := a.seenChannels[c.ID]; seen {
		return
	}
	a.seenChannels[c.ID] = struct{}{}
	a.channels = append(a.channels, c)
}

// AddUser queues a user row once per (user, guild) pair per run.
func (a *Accumulator) AddUser(u store.User) {
	key := userKey{id: u.ID, guild: u.GuildID}
	if _, seen := a.seenUsers[key]; seen {
		return
	}
	a.seenUsers[key] = struct{}{}
	a.users = append(a.users, u)
}

func (a *Accumulator) AddMention(m store.Mention) {
	a.mentions = append(a.mentions, m)
}

// AddMessage queues a message row and triggers an automatic flush once the
// chunk size is reached.
func (a *Accumulator) AddMessage(ctx context.Context, m store.Message) error {
	a.messages = append(a.messages, m)
	a.count++
	if a.count >= a.chunk {
		return a.Flush(ctx)
	}
	return nil
}

// Pending reports how many rows are waiting across all kinds.
func (a *Accumulator) Pending() int {
	return len(a.channels) + len(a.users) + len(a.messages) + len(a.mentions)
}

// Flush writes pending rows kind by kind in fixed dependency order:
// channels before the messages that reference them, users before messages,
// messages before mentions. A failing kind aborts the remaining kinds;
// kinds already written in this flush stay committed and cleared. Calling
// Flush with nothing pending is a no-op.
func (a *Accumulator) Flush(ctx context.Context) error {
	a.count = 0

	steps := []struct {
		kind string
		run  func(context.Context) error
	}{
		{"channel", a.flushChannels},
		{"user", a.flushUsers},
		{"message", a.flushMessages},
		{"mention", a.flushMentions},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("flush %s: %w", step.kind, err)
		}
	}
	return nil
}

func (a *Accumulator) flushChannels(ctx context.Context) error {
	if len(a.channels) == 0 {
		return nil
	}
	if err := a.writer.UpsertChannels(ctx, a.channels); err != nil {
		return err
	}
	a.channels = nil
	a.seenChannels = make(map[uint64]struct{})
	return nil
}

func (a *Accumulator) flushUsers(ctx context.Context) error {
	if len(a.users) == 0 {
		return nil
	}
	if err := a.writer.UpsertUsers(ctx, a.users); err != nil {
		return err
	}
	a.users = nil
	a.seenUsers = make(map[userKey]struct{})
	return nil
}

func (a *Accumulator) flushMessages(ctx context.Context) error {
	if len(a.messages) == 0 {
		return nil
	}
	if err := a.writer.UpsertMessages(ctx, a.messages); err != nil {
		return err
	}
	a.messages = nil
	return nil
}

func (a *Accumulator) flushMentions(ctx context.Context) error {
	if len(a.mentions) == 0 {
		return nil
	}
	if err := a.writer.InsertMentions(ctx, a.mentions); err != nil {
		return err
	}
	a.mentions = nil
	return nil
}
