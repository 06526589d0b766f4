package coinflip

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"economy-game-bot/internal/model"
	"economy-game-bot/internal/pkg/random"
	"economy-game-bot/internal/service"
	"economy-game-bot/internal/service/servicetest"
	"economy-game-bot/internal/setting/settingtest"
)

// fixedSource returns scripted draws.
type fixedSource struct {
	ints   []int
	floats []float64
}

func (f *fixedSource) IntN(n int) int {
	v := f.ints[0]
	f.ints = f.ints[1:]
	return v % n
}

func (f *fixedSource) Float64() float64 {
	v := f.floats[0]
	f.floats = f.floats[1:]
	return v
}

func newEngine(t *testing.T, rnd random.Source, lossPercent string) (*Engine, *servicetest.MemoryAccounts) {
	t.Helper()
	store := servicetest.NewMemoryAccounts()
	settings := settingtest.New(map[string]string{"coinflip_total_loss_prob": lossPercent})
	wallet := service.NewAccountService(store, nil, settings, rnd, nil)
	return New(wallet, settings, rnd, nil), store
}

func TestParseFace(t *testing.T) {
	for _, s := range []string{"heads", "H", " head "} {
		f, err := ParseFace(s)
		require.NoError(t, err)
		assert.Equal(t, Heads, f)
	}
	f, err := ParseFace("tails")
	require.NoError(t, err)
	assert.Equal(t, Tails, f)

	_, err = ParseFace("edge")
	assert.ErrorIs(t, err, ErrInvalidFace)
}

func TestParseStake(t *testing.T) {
	tests := []struct {
		arg     string
		balance int64
		want    int64
		wantErr bool
	}{
		{"250", 1000, 250, false},
		{"all", 1000, 1000, false},
		{"ALLIN", 77, 77, false},
		{"25%", 1000, 250, false},
		{"33%", 10, 3, false},
		{"100%", 9, 9, false},
		{"0%", 1000, 0, true},
		{"101%", 1000, 0, true},
		{"-5", 1000, 0, true},
		{"+5", 1000, 0, true},
		{"1.5", 1000, 0, true},
		{"", 1000, 0, true},
		{"%", 1000, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := ParseStake(tt.arg, tt.balance)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStake)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStake_PercentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		balance := rapid.Int64Range(0, 1_000_000_000).Draw(t, "balance")
		percent := rapid.Int64Range(1, 100).Draw(t, "percent")

		got, err := ParseStake(strconv.FormatInt(percent, 10)+"%", balance)
		require.NoError(t, err)
		if got < 0 || got > balance {
			t.Fatalf("%d%% of %d gave %d", percent, balance, got)
		}
		if got != balance*percent/100 {
			t.Fatalf("want floor, got %d", got)
		}
	})
}

func TestSettle_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		stake := rapid.Int64Range(1, 1_000_000).Draw(t, "stake")
		won := rapid.Bool().Draw(t, "won")
		roll := rapid.Float64Range(0, 0.999).Draw(t, "roll")
		prob := rapid.Float64Range(0, 1).Draw(t, "prob")

		win, total, delta := Settle(stake, won, &fixedSource{floats: []float64{roll}}, prob)
		switch {
		case won:
			assert.True(t, win)
			assert.Equal(t, max(1, stake/2), delta)
		case stake == 1 || roll < prob:
			assert.True(t, total)
			assert.Equal(t, -stake, delta)
		default:
			assert.False(t, total)
			assert.Equal(t, -(stake / 2), delta)
		}
	})
}

func TestFlip_Win(t *testing.T) {
	rnd := &fixedSource{ints: []int{int(Heads)}}
	e, store := newEngine(t, rnd, "10")
	store.Seed(1, 1000)

	res, err := e.Flip(context.Background(), 1, Heads, "300")
	require.NoError(t, err)
	assert.Equal(t, model.ReasonNone, res.Reason)
	assert.True(t, res.Won)
	assert.Equal(t, int64(150), res.Delta)
	assert.Equal(t, int64(1150), res.Balance)
}

func TestFlip_HalfLoss(t *testing.T) {
	rnd := &fixedSource{ints: []int{int(Tails)}, floats: []float64{0.5}}
	e, store := newEngine(t, rnd, "10")
	store.Seed(1, 1000)

	res, err := e.Flip(context.Background(), 1, Heads, "301")
	require.NoError(t, err)
	assert.False(t, res.Won)
	assert.False(t, res.TotalLoss)
	assert.Equal(t, int64(-150), res.Delta)
	assert.Equal(t, int64(850), store.Snapshot(1).Balance)
}

func TestFlip_TotalLoss(t *testing.T) {
	rnd := &fixedSource{ints: []int{int(Tails)}, floats: []float64{0.05}}
	e, store := newEngine(t, rnd, "10")
	store.Seed(1, 1000)

	res, err := e.Flip(context.Background(), 1, Heads, "all")
	require.NoError(t, err)
	assert.True(t, res.TotalLoss)
	assert.Equal(t, int64(0), store.Snapshot(1).Balance)
}

func TestFlip_StakeOfOneAlwaysLosesAll(t *testing.T) {
	rnd := &fixedSource{ints: []int{int(Tails)}}
	e, store := newEngine(t, rnd, "0")
	store.Seed(1, 5)

	res, err := e.Flip(context.Background(), 1, Heads, "1")
	require.NoError(t, err)
	assert.True(t, res.TotalLoss)
	assert.Equal(t, int64(4), store.Snapshot(1).Balance)
}

func TestFlip_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		seed  bool
		stake string
		want  model.Reason
	}{
		{"not registered", false, "10", model.ReasonNotRegistered},
		{"unparseable", true, "lots", model.ReasonInvalidAmount},
		{"zero", true, "0", model.ReasonInvalidAmount},
		{"over balance", true, "101", model.ReasonInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, store := newEngine(t, &fixedSource{}, "10")
			if tt.seed {
				store.Seed(1, 100)
			}

			res, err := e.Flip(context.Background(), 1, Heads, tt.stake)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Reason)
			if tt.seed {
				assert.Equal(t, int64(100), store.Snapshot(1).Balance)
			}
		})
	}
}

func TestFlip_AllInWithEmptyBalance(t *testing.T) {
	e, store := newEngine(t, &fixedSource{}, "10")
	store.Seed(1, 0)

	res, err := e.Flip(context.Background(), 1, Tails, "all")
	require.NoError(t, err)
	assert.Equal(t, model.ReasonInvalidAmount, res.Reason)
}
