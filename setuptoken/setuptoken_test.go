package setuptoken

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is shared by both stores so tests can move time forward.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storeCase struct {
	name  string
	setup func(t *testing.T, clock *fakeClock) Registry
}

func stores() []storeCase {
	return []storeCase{
		{"memory", func(t *testing.T, clock *fakeClock) Registry {
			s := NewMemoryStore()
			s.nowF = clock.Now
			return s
		}},
		{"redis", func(t *testing.T, clock *fakeClock) Registry {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			s := NewRedisStore(client)
			s.nowF = clock.Now
			return s
		}},
	}
}

func TestRegistry_ConsumeIsSingleUse(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			reg := sc.setup(t, &fakeClock{now: time.Now()})

			token, err := reg.Issue(ctx, 42)
			require.NoError(t, err)
			require.Len(t, token, 64)

			userID, err := reg.Consume(ctx, token)
			require.NoError(t, err)
			assert.Equal(t, uint(42), userID)

			_, err = reg.Consume(ctx, token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRegistry_PeekDoesNotConsume(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			reg := sc.setup(t, &fakeClock{now: time.Now()})

			token, err := reg.Issue(ctx, 7)
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				userID, err := reg.Peek(ctx, token)
				require.NoError(t, err)
				assert.Equal(t, uint(7), userID)
			}

			userID, err := reg.Consume(ctx, token)
			require.NoError(t, err)
			assert.Equal(t, uint(7), userID)

			_, err = reg.Peek(ctx, token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRegistry_UnknownToken(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			reg := sc.setup(t, &fakeClock{now: time.Now()})

			_, err := reg.Consume(ctx, "does-not-exist")
			assert.ErrorIs(t, err, ErrInvalidToken)
			_, err = reg.Peek(ctx, "does-not-exist")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRegistry_ExpiredConsumeRemovesEntry(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.Now()}
			reg := sc.setup(t, clock)

			token, err := reg.Issue(ctx, 1)
			require.NoError(t, err)
			clock.Advance(TTL + time.Second)

			_, err = reg.Consume(ctx, token)
			assert.ErrorIs(t, err, ErrExpired)
			_, err = reg.Consume(ctx, token)
			assert.ErrorIs(t, err, ErrInvalidToken, "expired entry should be gone")
		})
	}
}

func TestRegistry_ExpiredPeekRemovesEntry(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.Now()}
			reg := sc.setup(t, clock)

			token, err := reg.Issue(ctx, 1)
			require.NoError(t, err)
			clock.Advance(TTL + time.Second)

			_, err = reg.Peek(ctx, token)
			assert.ErrorIs(t, err, ErrExpired)
			_, err = reg.Peek(ctx, token)
			assert.ErrorIs(t, err, ErrInvalidToken, "expired entry should be gone")
		})
	}
}

func TestRegistry_ValidUntilExactExpiry(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			clock := &fakeClock{now: time.Now()}
			reg := sc.setup(t, clock)

			token, err := reg.Issue(ctx, 3)
			require.NoError(t, err)
			clock.Advance(TTL)

			userID, err := reg.Peek(ctx, token)
			require.NoError(t, err)
			assert.Equal(t, uint(3), userID)
		})
	}
}

func TestRegistry_MultipleLiveTokensPerUser(t *testing.T) {
	for _, sc := range stores() {
		t.Run(sc.name, func(t *testing.T) {
			ctx := context.Background()
			reg := sc.setup(t, &fakeClock{now: time.Now()})

			a, err := reg.Issue(ctx, 5)
			require.NoError(t, err)
			b, err := reg.Issue(ctx, 5)
			require.NoError(t, err)
			require.NotEqual(t, a, b)

			_, err = reg.Consume(ctx, a)
			require.NoError(t, err)
			userID, err := reg.Consume(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, uint(5), userID)
		})
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	s := NewMemoryStore()
	s.nowF = clock.Now

	_, err := s.Issue(ctx, 1)
	require.NoError(t, err)
	clock.Advance(20 * time.Minute)
	fresh, err := s.Issue(ctx, 2)
	require.NoError(t, err)
	clock.Advance(15 * time.Minute)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	userID, err := s.Peek(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, uint(2), userID)
}

func TestMemoryStore_ConcurrentConsumeSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	token, err := s.Issue(ctx, 9)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(ctx, token); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestRedisStore_KeyExpiresInRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s := NewRedisStore(client)

	token, err := s.Issue(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, TTL+expiredGrace, mr.TTL(keyPrefix+token))

	mr.FastForward(TTL + expiredGrace + time.Second)
	_, err = s.Peek(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
