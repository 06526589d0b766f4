package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"economy-game-bot/internal/media"
	"economy-game-bot/internal/pkg/cache"
)

// MediaHandler handles the chat's playback queue. The chat id is the
// queue's session key.
type MediaHandler struct {
	queue *media.Queue
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(queue *media.Queue) *MediaHandler {
	return &MediaHandler{queue: queue}
}

func (h *MediaHandler) mediaFail(c tele.Context, err error, op string) error {
	switch {
	case errors.Is(err, media.ErrIndexOutOfRange):
		return c.Reply("❌ There is no track at that position")
	case errors.Is(err, cache.ErrLockTimeout):
		return c.Reply("⏳ The queue is busy, try again")
	default:
		return fail(c, err, op)
	}
}

// HandleQueue handles /queue.
func (h *MediaHandler) HandleQueue(c tele.Context) error {
	return h.list(c, media.Playlist, "🎵 Queue", "queue")
}

// HandleHistory handles /history.
func (h *MediaHandler) HandleHistory(c tele.Context) error {
	return h.list(c, media.History, "📜 Recently played", "history")
}

func (h *MediaHandler) list(c tele.Context, list media.List, title, op string) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	tracks, err := h.queue.List(ctx, list, chat.ID)
	if err != nil {
		return h.mediaFail(c, err, op)
	}
	return c.Reply(FormatTracks(title, tracks))
}

// FormatTracks renders a numbered track list starting at 1.
func FormatTracks(title string, tracks []media.Track) string {
	if len(tracks) == 0 {
		return title + ": empty"
	}
	var sb strings.Builder
	sb.WriteString(title + "\n━━━━━━━━━━━━━━━\n")
	for i, t := range tracks {
		fmt.Fprintf(&sb, "%d. %s", i+1, t.Title)
		if t.Duration > 0 {
			fmt.Fprintf(&sb, " (%d:%02d)", t.Duration/60, t.Duration%60)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("━━━━━━━━━━━━━━━")
	return sb.String()
}

// HandleEnqueue handles /enqueue <title...> <url>.
func (h *MediaHandler) HandleEnqueue(c tele.Context) error {
	sender, chat := c.Sender(), c.Chat()
	if sender == nil || chat == nil {
		return nil
	}
	track, ok := ParseTrack(c.Args(), sender.ID)
	if !ok {
		return c.Reply("❌ Usage: /enqueue <title> <url>")
	}
	ctx, cancel := newContext()
	defer cancel()

	pos, err := h.queue.Enqueue(ctx, media.Playlist, chat.ID, track)
	if err != nil {
		return h.mediaFail(c, err, "enqueue")
	}
	return c.Reply(fmt.Sprintf("➕ Queued #%d: %s", pos+1, track.Title))
}

// ParseTrack reads the last argument as the URL and the rest as the title.
func ParseTrack(args []string, requestedBy int64) (media.Track, bool) {
	if len(args) < 2 {
		return media.Track{}, false
	}
	url := args[len(args)-1]
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return media.Track{}, false
	}
	return media.Track{
		Title:       strings.Join(args[:len(args)-1], " "),
		URL:         url,
		RequestedBy: requestedBy,
	}, true
}

// HandleSkip handles /skip.
func (h *MediaHandler) HandleSkip(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	track, ok, err := h.queue.Skip(ctx, chat.ID)
	if err != nil {
		return h.mediaFail(c, err, "skip")
	}
	if !ok {
		return c.Reply("🎵 The queue is empty")
	}
	return c.Reply("⏭ Skipped: " + track.Title)
}

// HandleRemove handles /remove <n>.
func (h *MediaHandler) HandleRemove(c tele.Context) error {
	chat := c.Chat()
	args := c.Args()
	if chat == nil {
		return nil
	}
	if len(args) != 1 {
		return c.Reply("❌ Usage: /remove <position>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return c.Reply("❌ Usage: /remove <position>")
	}
	ctx, cancel := newContext()
	defer cancel()

	track, err := h.queue.RemoveAt(ctx, media.Playlist, chat.ID, n-1)
	if err != nil {
		return h.mediaFail(c, err, "remove")
	}
	return c.Reply("🗑 Removed: " + track.Title)
}

// HandleMove handles /move <from> <to>.
func (h *MediaHandler) HandleMove(c tele.Context) error {
	chat := c.Chat()
	args := c.Args()
	if chat == nil {
		return nil
	}
	if len(args) != 2 {
		return c.Reply("❌ Usage: /move <from> <to>")
	}
	from, err1 := strconv.Atoi(args[0])
	to, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		return c.Reply("❌ Usage: /move <from> <to>")
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.queue.Move(ctx, media.Playlist, chat.ID, from-1, to-1); err != nil {
		return h.mediaFail(c, err, "move")
	}
	return c.Reply(fmt.Sprintf("↕️ Moved #%d to #%d", from, to))
}

// HandleClear handles /clearqueue.
func (h *MediaHandler) HandleClear(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	ctx, cancel := newContext()
	defer cancel()

	if err := h.queue.Clear(ctx, media.Playlist, chat.ID); err != nil {
		return h.mediaFail(c, err, "clear")
	}
	return c.Reply("🧹 Queue cleared")
}
