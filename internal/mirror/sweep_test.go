package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

// fakeHistorian serves canned channels and paged history the way the
// platform does: newest first, at most `limit` per page, `before` as the
// cursor.
type fakeHistorian struct {
	channels []*discordgo.Channel
	threads  []*discordgo.Channel
	history  map[string][]*discordgo.Message

	historyErr map[string]error
}

func (h *fakeHistorian) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return h.channels, nil
}

func (h *fakeHistorian) GuildThreadsActive(string, ...discordgo.RequestOption) (*discordgo.ThreadsList, error) {
	return &discordgo.ThreadsList{Threads: h.threads}, nil
}

func (h *fakeHistorian) ChannelMessages(channelID string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	if err := h.historyErr[channelID]; err != nil {
		return nil, err
	}
	all := h.history[channelID]

	start := 0
	if beforeID != "" {
		for i, m := range all {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func fakeHistory(channelID string, count int, author string) []*discordgo.Message {
	messages := make([]*discordgo.Message, count)
	for i := 0; i < count; i++ {
		messages[i] = &discordgo.Message{
			ID:        fmt.Sprintf("%s%04d", channelID, count-i),
			ChannelID: channelID,
			Content:   "message " + strconv.Itoa(count-i),
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(count-i) * time.Minute),
			Author:    &discordgo.User{ID: author, Username: "author-" + author},
			Mentions:  []*discordgo.User{{ID: "99"}},
		}
	}
	return messages
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweep(t *testing.T) {
	hist := &fakeHistorian{
		channels: []*discordgo.Channel{
			{ID: "100", Type: discordgo.ChannelTypeGuildText, Name: "general"},
			{ID: "101", Type: discordgo.ChannelTypeGuildVoice, Name: "voice"},
			{ID: "102", Type: discordgo.ChannelTypeGuildCategory, Name: "category"},
		},
		threads: []*discordgo.Channel{
			{ID: "200", Type: discordgo.ChannelTypeGuildPublicThread, Name: "thread", ParentID: "100"},
		},
		history: map[string][]*discordgo.Message{
			"100": fakeHistory("100", 250, "77"),
			"200": fakeHistory("200", 10, "88"),
		},
	}
	w := newFakeWriter()

	sweeper := NewSweeper(hist, w, 100, testLogger())
	res, err := sweeper.Sweep(context.Background(), &discordgo.Guild{ID: "42", Name: "guild"})
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	// Voice and category channels are not swept.
	if res.Channels != 2 {
		t.Errorf("channels swept = %d, want 2", res.Channels)
	}
	if res.Messages != 260 {
		t.Errorf("messages swept = %d, want 260", res.Messages)
	}

	if len(w.calls) == 0 || w.calls[0].kind != "guild" {
		t.Fatalf("guild row not written first: %v", w.calls)
	}
	if w.totals["guild"] != 1 {
		t.Errorf("guild rows = %d, want 1", w.totals["guild"])
	}
	if w.totals["channel"] != 2 {
		t.Errorf("channel rows = %d, want 2", w.totals["channel"])
	}
	// Authors requeue after each flush clears the seen set: both in the
	// first flush, then the active author once per remaining flush.
	if w.totals["user"] != 4 {
		t.Errorf("user rows = %d, want 4", w.totals["user"])
	}
	if w.totals["message"] != 260 {
		t.Errorf("message rows = %d, want 260", w.totals["message"])
	}
	if w.totals["mention"] != 260 {
		t.Errorf("mention rows = %d, want 260", w.totals["mention"])
	}

	// Chunk size 100 over 260 messages: two automatic flushes plus the
	// final one.
	var messageFlushes []int
	for _, c := range w.calls {
		if c.kind == "message" {
			messageFlushes = append(messageFlushes, c.rows)
		}
	}
	want := []int{100, 100, 60}
	if len(messageFlushes) != len(want) {
		t.Fatalf("message flushes = %v, want %v", messageFlushes, want)
	}
	for i := range want {
		if messageFlushes[i] != want[i] {
			t.Errorf("message flush %d = %d, want %d", i, messageFlushes[i], want[i])
		}
	}
}

func TestSweepHistoryFailure(t *testing.T) {
	boom := errors.New("rate limited")
	hist := &fakeHistorian{
		channels: []*discordgo.Channel{
			{ID: "100", Type: discordgo.ChannelTypeGuildText, Name: "general"},
		},
		history:    map[string][]*discordgo.Message{"100": fakeHistory("100", 5, "77")},
		historyErr: map[string]error{"100": boom},
	}
	w := newFakeWriter()

	sweeper := NewSweeper(hist, w, 100, testLogger())
	_, err := sweeper.Sweep(context.Background(), &discordgo.Guild{ID: "42", Name: "guild"})
	if !errors.Is(err, boom) {
		t.Fatalf("sweep error = %v, want %v", err, boom)
	}
}

func TestSweepWriteFailure(t *testing.T) {
	hist := &fakeHistorian{
		channels: []*discordgo.Channel{
			{ID: "100", Type: discordgo.ChannelTypeGuildText, Name: "general"},
		},
		history: map[string][]*discordgo.Message{"100": fakeHistory("100", 150, "77")},
	}
	w := newFakeWriter()
	boom := errors.New("constraint violation")
	w.fail["message"] = boom

	sweeper := NewSweeper(hist, w, 100, testLogger())
	_, err := sweeper.Sweep(context.Background(), &discordgo.Guild{ID: "42", Name: "guild"})
	if !errors.Is(err, boom) {
		t.Fatalf("sweep error = %v, want %v", err, boom)
	}

	// The failing flush still committed its channel and user rows, and
	// never reached mentions.
	if w.totals["channel"] != 1 || w.totals["user"] != 1 {
		t.Errorf("earlier kinds not committed: %v", w.totals)
	}
	if w.totals["mention"] != 0 {
		t.Errorf("mentions attempted after failed message write")
	}
}
