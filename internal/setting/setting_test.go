package setting

import (
	"context"
	"errors"
	"maps"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"economy-game-bot/internal/repository"
)

type fakeSource struct {
	mu  sync.Mutex
	raw map[string]string
	err error
}

func (f *fakeSource) All(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return maps.Clone(f.raw), nil
}

func (f *fakeSource) set(k, v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[k] = v
}

func TestParse_SeededDefaultsAreComplete(t *testing.T) {
	snap, err := Parse(repository.DefaultSettings)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, snap.AttendanceCooldown())
}

func TestParse_MissingKey(t *testing.T) {
	for _, key := range Keys {
		t.Run(key, func(t *testing.T) {
			raw := maps.Clone(repository.DefaultSettings)
			delete(raw, key)

			snap, err := Parse(raw)
			assert.Nil(t, snap, "partial snapshots are never returned")
			assert.ErrorIs(t, err, ErrConfigIncomplete)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestParse_InvalidValue(t *testing.T) {
	raw := maps.Clone(repository.DefaultSettings)
	raw[KeyFishingTimeout] = "three"

	_, err := Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSnapshot_DisabledTimeouts(t *testing.T) {
	raw := maps.Clone(repository.DefaultSettings)
	raw[KeyTicTacToeGameTimeout] = "-1"
	raw[KeyTicTacToeInviteTimeout] = "-1"

	snap, err := Parse(raw)
	require.NoError(t, err)

	_, ok := snap.TicTacToeGameTimeout()
	assert.False(t, ok)
	_, ok = snap.TicTacToeInviteTimeout()
	assert.False(t, ok)
}

// Accessors return the stored values, converted only from percent to unit
// probability and from integer counts to durations.
func TestSnapshot_AccessorRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ints := make(map[string]int64)
		raw := make(map[string]string)
		for _, k := range Keys {
			if percentKeys[k] {
				continue
			}
			n := rapid.Int64Range(-1, 1_000_000).Draw(t, k)
			ints[k] = n
			raw[k] = strconv.FormatInt(n, 10)
		}
		bonus := rapid.Float64Range(0, 100).Draw(t, "bonus")
		loss := rapid.Float64Range(0, 100).Draw(t, "loss")
		raw[KeyAttendanceBonusProb] = strconv.FormatFloat(bonus, 'g', -1, 64)
		raw[KeyCoinflipTotalLossProb] = strconv.FormatFloat(loss, 'g', -1, 64)

		snap, err := Parse(raw)
		require.NoError(t, err)

		for k, v := range raw {
			got, ok := snap.Raw(k)
			assert.True(t, ok)
			assert.Equal(t, v, got)
		}

		assert.Equal(t, time.Duration(ints[KeyAttendanceCooldown])*time.Hour, snap.AttendanceCooldown())
		assert.Equal(t, ints[KeyAttendanceBonusMoney], snap.AttendanceBonusMoney())
		assert.Equal(t, ints[KeyAttendanceMultiple], snap.AttendanceMultiple())
		lo, hi := snap.AttendanceRandomMoney()
		assert.Equal(t, ints[KeyAttendanceRandomMin], lo)
		assert.Equal(t, ints[KeyAttendanceRandomMax], hi)

		blo, bhi := snap.FishingBiteWindow()
		assert.Equal(t, time.Duration(ints[KeyFishingRandomMin])*time.Second, blo)
		assert.Equal(t, time.Duration(ints[KeyFishingRandomMax])*time.Second, bhi)
		assert.Equal(t, time.Duration(ints[KeyFishingTimeout])*time.Second, snap.FishingTimeout())

		assert.Equal(t, bonus/100, snap.AttendanceBonusProb())
		assert.Equal(t, loss/100, snap.CoinflipTotalLossProb())

		d, ok := snap.TicTacToeGameTimeout()
		assert.Equal(t, ints[KeyTicTacToeGameTimeout] != -1, ok)
		if ok {
			assert.Equal(t, time.Duration(ints[KeyTicTacToeGameTimeout])*time.Second, d)
		}
	})
}

func TestStore_LoadPublishes(t *testing.T) {
	src := &fakeSource{raw: maps.Clone(repository.DefaultSettings)}
	store := NewStore(src)
	assert.Nil(t, store.Current())

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Same(t, snap, store.Current())
}

func TestStore_ReloadReplacesSnapshot(t *testing.T) {
	src := &fakeSource{raw: maps.Clone(repository.DefaultSettings)}
	store := NewStore(src)
	require.NoError(t, store.Reload(context.Background()))

	before := store.Current()
	src.set(KeyFishingTimeout, "9")
	require.NoError(t, store.Reload(context.Background()))

	assert.Equal(t, 3*time.Second, before.FishingTimeout(), "held snapshots never change")
	assert.Equal(t, 9*time.Second, store.Current().FishingTimeout())
}

func TestStore_FailedReloadKeepsPrevious(t *testing.T) {
	src := &fakeSource{raw: maps.Clone(repository.DefaultSettings)}
	store := NewStore(src)
	require.NoError(t, store.Reload(context.Background()))
	before := store.Current()

	src.mu.Lock()
	delete(src.raw, KeyFishingTimeout)
	src.mu.Unlock()
	assert.ErrorIs(t, store.Reload(context.Background()), ErrConfigIncomplete)
	assert.Same(t, before, store.Current())

	src.err = errors.New("connection reset")
	assert.Error(t, store.Reload(context.Background()))
	assert.Same(t, before, store.Current())
}

func TestStore_OnLoadHook(t *testing.T) {
	src := &fakeSource{raw: maps.Clone(repository.DefaultSettings)}
	store := NewStore(src)

	var results []error
	store.OnLoad(func(err error) { results = append(results, err) })

	require.NoError(t, store.Reload(context.Background()))
	src.err = errors.New("down")
	require.Error(t, store.Reload(context.Background()))

	require.Len(t, results, 2)
	assert.NoError(t, results[0])
	assert.Error(t, results[1])
}

// Readers racing a reload always see a complete snapshot.
func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	src := &fakeSource{raw: maps.Clone(repository.DefaultSettings)}
	store := NewStore(src)
	require.NoError(t, store.Reload(context.Background()))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Current()
				lo, hi := snap.FishingBiteWindow()
				assert.Equal(t, hi, lo+12*time.Second)
			}
		}()
	}

	for i := 0; i < 200; i++ {
		lo := strconv.Itoa(i)
		src.mu.Lock()
		src.raw[KeyFishingRandomMin] = lo
		src.raw[KeyFishingRandomMax] = strconv.Itoa(i + 12)
		src.mu.Unlock()
		require.NoError(t, store.Reload(context.Background()))
	}
	close(stop)
	wg.Wait()
}

func TestRefresher_InvalidSpec(t *testing.T) {
	_, err := NewRefresher(NewStore(&fakeSource{}), "not a schedule")
	assert.Error(t, err)
}

func TestRefresher_Reloads(t *testing.T) {
	src := &fakeSource{raw: maps.Clone(repository.DefaultSettings)}
	store := NewStore(src)

	r, err := NewRefresher(store, "@every 1s")
	require.NoError(t, err)
	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool { return store.Current() != nil }, 3*time.Second, 50*time.Millisecond)
}
