// Package media keeps per-session playback queues in the cache.
package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrIndexOutOfRange is returned when a position does not exist in the queue.
var ErrIndexOutOfRange = errors.New("queue index out of range")

// DefaultTTL is how long an idle queue survives.
const DefaultTTL = 12 * time.Hour

// Track describes one queued item.
type Track struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Duration    int    `json:"duration"`
	RequestedBy int64  `json:"requested_by"`
}

// List names one of a session's queues.
type List string

const (
	Playlist List = "playlist"
	History  List = "history"
)

// Store is the Cache/Lock Service the queue runs on.
type Store interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Queue stores ordered track lists. Every mutation is a read-modify-write
// under the list's advisory lock, and an empty list is stored as no key.
type Queue struct {
	store        Store
	ttl          time.Duration
	historyLimit int
}

// NewQueue creates a Queue. Zero ttl falls back to DefaultTTL; a historyLimit
// of zero or less keeps history unbounded.
func NewQueue(store Store, ttl time.Duration, historyLimit int) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{store: store, ttl: ttl, historyLimit: historyLimit}
}

// Key returns the cache key of a session's list.
func Key(list List, session int64) string {
	return fmt.Sprintf("%s:%d", list, session)
}

// List returns the tracks without modifying them.
func (q *Queue) List(ctx context.Context, list List, session int64) ([]Track, error) {
	return q.load(ctx, Key(list, session))
}

// Enqueue appends track and returns its position.
func (q *Queue) Enqueue(ctx context.Context, list List, session int64, track Track) (int, error) {
	var pos int
	err := q.mutate(ctx, Key(list, session), func(tracks []Track) ([]Track, error) {
		tracks = q.trim(list, append(tracks, track))
		pos = len(tracks) - 1
		return tracks, nil
	})
	return pos, err
}

// Dequeue pops the head. ok is false when the list is empty.
func (q *Queue) Dequeue(ctx context.Context, list List, session int64) (track Track, ok bool, err error) {
	err = q.mutate(ctx, Key(list, session), func(tracks []Track) ([]Track, error) {
		if len(tracks) == 0 {
			return tracks, nil
		}
		track, ok = tracks[0], true
		return tracks[1:], nil
	})
	return track, ok, err
}

// RemoveAt deletes the track at index and returns it.
func (q *Queue) RemoveAt(ctx context.Context, list List, session int64, index int) (Track, error) {
	var removed Track
	err := q.mutate(ctx, Key(list, session), func(tracks []Track) ([]Track, error) {
		if index < 0 || index >= len(tracks) {
			return nil, ErrIndexOutOfRange
		}
		removed = tracks[index]
		return append(tracks[:index], tracks[index+1:]...), nil
	})
	return removed, err
}

// Move relocates the track at from so it ends up at to.
func (q *Queue) Move(ctx context.Context, list List, session int64, from, to int) error {
	return q.mutate(ctx, Key(list, session), func(tracks []Track) ([]Track, error) {
		return MoveTrack(tracks, from, to)
	})
}

// Clear empties the list.
func (q *Queue) Clear(ctx context.Context, list List, session int64) error {
	key := Key(list, session)
	return q.store.WithLock(ctx, key, func(ctx context.Context) error {
		return q.store.Delete(ctx, key)
	})
}

// Skip pops the playlist head and records it in history. The playlist lock is
// always taken before the history lock.
func (q *Queue) Skip(ctx context.Context, session int64) (track Track, ok bool, err error) {
	playlistKey, historyKey := Key(Playlist, session), Key(History, session)

	err = q.store.WithLock(ctx, playlistKey, func(ctx context.Context) error {
		tracks, err := q.load(ctx, playlistKey)
		if err != nil || len(tracks) == 0 {
			return err
		}
		track, ok = tracks[0], true

		err = q.store.WithLock(ctx, historyKey, func(ctx context.Context) error {
			history, err := q.load(ctx, historyKey)
			if err != nil {
				return err
			}
			return q.save(ctx, historyKey, q.trim(History, append(history, track)))
		})
		if err != nil {
			return err
		}
		return q.save(ctx, playlistKey, tracks[1:])
	})
	if err != nil {
		return Track{}, false, err
	}
	if ok {
		log.Debug().Int64("chat_id", session).Str("title", track.Title).Msg("Track skipped")
	}
	return track, ok, nil
}

// MoveTrack removes the track at from and inserts it at to. A to beyond the
// end appends.
func MoveTrack(tracks []Track, from, to int) ([]Track, error) {
	if from < 0 || from >= len(tracks) || to < 0 {
		return nil, ErrIndexOutOfRange
	}
	moved := tracks[from]
	out := make([]Track, 0, len(tracks))
	out = append(out, tracks[:from]...)
	out = append(out, tracks[from+1:]...)

	to = min(to, len(out))
	out = append(out[:to], append([]Track{moved}, out[to:]...)...)
	return out, nil
}

func (q *Queue) mutate(ctx context.Context, key string, fn func([]Track) ([]Track, error)) error {
	return q.store.WithLock(ctx, key, func(ctx context.Context) error {
		tracks, err := q.load(ctx, key)
		if err != nil {
			return err
		}
		tracks, err = fn(tracks)
		if err != nil {
			return err
		}
		return q.save(ctx, key, tracks)
	})
}

func (q *Queue) load(ctx context.Context, key string) ([]Track, error) {
	var tracks []Track
	if _, err := q.store.GetJSON(ctx, key, &tracks); err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	return tracks, nil
}

// save writes tracks and refreshes the TTL, or deletes the key when empty.
func (q *Queue) save(ctx context.Context, key string, tracks []Track) error {
	if len(tracks) == 0 {
		if err := q.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete empty queue: %w", err)
		}
		return nil
	}
	if err := q.store.SetJSON(ctx, key, tracks, q.ttl); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	return nil
}

// trim drops the oldest history entries beyond the limit.
func (q *Queue) trim(list List, tracks []Track) []Track {
	if list != History || q.historyLimit <= 0 || len(tracks) <= q.historyLimit {
		return tracks
	}
	return tracks[len(tracks)-q.historyLimit:]
}
