package setting

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Source reads every stored setting.
type Source interface {
	All(ctx context.Context) (map[string]string, error)
}

// Provider gives engines the current snapshot.
type Provider interface {
	Current() *Snapshot
}

// Store keeps the published snapshot.
type Store struct {
	src     Source
	current atomic.Pointer[Snapshot]
	onLoad  func(error)
}

// NewStore creates an empty store. Load must succeed before Current is used.
func NewStore(src Source) *Store {
	return &Store{src: src}
}

// OnLoad registers a hook invoked after each Load attempt.
func (s *Store) OnLoad(fn func(error)) {
	s.onLoad = fn
}

// Load reads all settings, builds a new snapshot and publishes it. On error
// the previously published snapshot stays in place.
func (s *Store) Load(ctx context.Context) (snap *Snapshot, err error) {
	defer func() {
		if s.onLoad != nil {
			s.onLoad(err)
		}
	}()

	raw, err := s.src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	snap, err = Parse(raw)
	if err != nil {
		return nil, err
	}

	s.current.Store(snap)
	log.Debug().Int("keys", len(raw)).Msg("Settings snapshot published")
	return snap, nil
}

// Reload is Load without the returned snapshot.
func (s *Store) Reload(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}

// Current returns the published snapshot, or nil before the first Load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Refresher reloads a Store on a cron schedule.
type Refresher struct {
	cron *cron.Cron
}

// NewRefresher schedules store reloads using a standard 5-field spec or a
// descriptor such as "@every 5m".
func NewRefresher(store *Store, spec string) (*Refresher, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := store.Reload(context.Background()); err != nil {
			log.Error().Err(err).Msg("Scheduled settings reload failed")
			return
		}
		log.Info().Msg("Settings reloaded on schedule")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid settings refresh schedule %q: %w", spec, err)
	}
	return &Refresher{cron: c}, nil
}

// Start begins running the schedule in the background.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running reload to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}
