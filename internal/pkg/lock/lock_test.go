package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Concurrent read-modify-write under the lock matches sequential execution.
func TestConcurrentBalanceSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		amounts := rapid.SliceOfN(rapid.Int64Range(-500, 500), 2, 20).Draw(t, "amounts")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		ul := NewUserLock()
		balance := initial
		expected := initial
		for _, a := range amounts {
			expected += a
		}

		var wg sync.WaitGroup
		for _, a := range amounts {
			wg.Add(1)
			go func(amount int64) {
				defer wg.Done()
				ul.Lock(userID)
				defer ul.Unlock(userID)
				current := balance
				time.Sleep(time.Microsecond)
				balance = current + amount
			}(a)
		}
		wg.Wait()

		if balance != expected {
			t.Fatalf("balance = %d, want %d", balance, expected)
		}
	})
}

func TestTryLock(t *testing.T) {
	ul := NewUserLock()

	require.True(t, ul.TryLock(1))
	assert.True(t, ul.IsLocked(1))
	assert.False(t, ul.TryLock(1))
	assert.True(t, ul.TryLock(2), "locks are independent per account")

	ul.Unlock(1)
	assert.False(t, ul.IsLocked(1))
	assert.True(t, ul.TryLock(1))
}

func TestUnlockFreeLockIsNoop(t *testing.T) {
	ul := NewUserLock()
	ul.Unlock(42)
	assert.True(t, ul.TryLock(42))
}

func TestLockWithTimeout(t *testing.T) {
	ul := NewUserLock()
	ctx := context.Background()

	require.True(t, ul.LockWithTimeout(ctx, 1, 10*time.Millisecond))
	start := time.Now()
	assert.False(t, ul.LockWithTimeout(ctx, 1, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ul.Unlock(1)
	assert.True(t, ul.LockWithTimeout(ctx, 1, 10*time.Millisecond))
}

func TestWithLockContext(t *testing.T) {
	ul := NewUserLock()
	ctx := context.Background()

	called := false
	err := ul.WithLockContext(ctx, time.Second, func() error {
		called = true
		assert.True(t, ul.IsLocked(1))
		assert.True(t, ul.IsLocked(2))
		return nil
	}, 2, 1, 2)
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, ul.IsLocked(1))
	assert.False(t, ul.IsLocked(2))

	require.True(t, ul.TryLock(2))
	err = ul.WithLockContext(ctx, 10*time.Millisecond, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	}, 1, 2)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, ul.IsLocked(1), "partially acquired locks are released")
}

func TestIdleSlotsAreDropped(t *testing.T) {
	ul := NewUserLock()
	ctx := context.Background()

	for id := range int64(100) {
		ul.Lock(id)
		ul.Unlock(id)
	}
	assert.Zero(t, ul.size())

	require.True(t, ul.TryLock(1))
	assert.False(t, ul.TryLock(1))
	assert.False(t, ul.LockWithTimeout(ctx, 1, 5*time.Millisecond))
	assert.Equal(t, 1, ul.size(), "failed attempts must not leak interest")

	ul.Unlock(1)
	assert.Zero(t, ul.size())

	require.NoError(t, ul.WithLockContext(ctx, time.Second, func() error { return nil }, 3, 4))
	assert.Zero(t, ul.size())
}

// A waiter keeps the slot alive, so it is handed the same semaphore the
// holder releases.
func TestWaiterKeepsSlot(t *testing.T) {
	ul := NewUserLock()
	ul.Lock(7)

	acquired := make(chan struct{})
	go func() {
		ul.Lock(7)
		close(acquired)
	}()

	require.Eventually(t, func() bool {
		ul.mu.Lock()
		defer ul.mu.Unlock()
		return ul.slots[7] != nil && ul.slots[7].refs == 2
	}, time.Second, time.Millisecond)

	ul.Unlock(7)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
	assert.True(t, ul.IsLocked(7))
	assert.Equal(t, 1, ul.size())

	ul.Unlock(7)
	assert.Zero(t, ul.size())
}

// Opposite-order pair locking does not deadlock.
func TestWithLockContextPairOrdering(t *testing.T) {
	ul := NewUserLock()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, ul.WithLockContext(ctx, time.Second, func() error { return nil }, 1, 2))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, ul.WithLockContext(ctx, time.Second, func() error { return nil }, 2, 1))
		}()
	}
	wg.Wait()
}
