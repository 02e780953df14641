package redis

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOpen_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty URL returns ErrEmptyConnectionURL", func(t *testing.T) {
		t.Parallel()

		client, err := Open(ctx, Config{})
		require.Nil(t, client)
		require.ErrorIs(t, err, ErrEmptyConnectionURL)
	})

	t.Run("invalid scheme returns ErrFailedToParseURL", func(t *testing.T) {
		t.Parallel()

		for _, url := range []string{
			"http://localhost:6379",
			"localhost:6379",
			"postgresql://localhost:6379",
		} {
			t.Run(url, func(t *testing.T) {
				t.Parallel()

				client, err := Open(ctx, Config{URL: url})
				require.Nil(t, client)
				require.ErrorIs(t, err, ErrFailedToParseURL)
			})
		}
	})

	t.Run("malformed URL returns ErrFailedToParseURL", func(t *testing.T) {
		t.Parallel()

		for _, url := range []string{
			"redis://localhost:notaport",
			"redis://localhost:6379/notanumber",
		} {
			t.Run(url, func(t *testing.T) {
				t.Parallel()

				client, err := Open(ctx, Config{URL: url})
				require.Nil(t, client)
				require.ErrorIs(t, err, ErrFailedToParseURL)
			})
		}
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(ctx)
		cancel()

		client, err := Open(ctx, Config{
			URL:           "redis://127.0.0.1:1/0",
			RetryAttempts: 3,
			RetryInterval: 10 * time.Second,
			DialTimeout:   100 * time.Millisecond,
		})
		require.Nil(t, client)
		require.ErrorIs(t, err, ErrConnectionFailed)
	})
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	t.Run("zero config gets defaults", func(t *testing.T) {
		t.Parallel()

		cfg := Config{}.withDefaults()
		require.Equal(t, 10, cfg.PoolSize)
		require.Equal(t, 5, cfg.MinIdleConns)
		require.Equal(t, 10*time.Minute, cfg.MaxIdleTime)
		require.Equal(t, 30*time.Minute, cfg.MaxActiveTime)
		require.Equal(t, 3, cfg.RetryAttempts)
		require.Equal(t, 5*time.Second, cfg.RetryInterval)
		require.Equal(t, 3*time.Second, cfg.ReadTimeout)
		require.Equal(t, 3*time.Second, cfg.WriteTimeout)
		require.Equal(t, 5*time.Second, cfg.DialTimeout)
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		t.Parallel()

		cfg := Config{PoolSize: 25, RetryAttempts: 7, DialTimeout: time.Second}.withDefaults()
		require.Equal(t, 25, cfg.PoolSize)
		require.Equal(t, 7, cfg.RetryAttempts)
		require.Equal(t, time.Second, cfg.DialTimeout)
	})
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	err := Healthcheck(nil)(context.Background())
	require.ErrorIs(t, err, ErrHealthcheckFailed)
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	t.Run("calls Close on the client", func(t *testing.T) {
		t.Parallel()

		c := &fakeCloser{}
		require.NoError(t, Shutdown(c)(context.Background()))
		require.True(t, c.closed)
	})

	t.Run("propagates Close error", func(t *testing.T) {
		t.Parallel()

		closeErr := errors.New("close error")
		c := &fakeCloser{err: closeErr}

		err := Shutdown(c)(context.Background())
		require.Equal(t, closeErr, err)
		require.True(t, c.closed)
	})
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("cancelled context returns immediately", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		err := wait(ctx, 10*time.Second)

		require.Equal(t, context.Canceled, err)
		require.Less(t, time.Since(start), time.Second)
	})

	t.Run("timeout completes normally", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		require.NoError(t, wait(context.Background(), 20*time.Millisecond))
		require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})
}

type fakeCloser struct {
	err    error
	closed bool
}

func (c *fakeCloser) Close() error {
	c.closed = true
	return c.err
}

var _ io.Closer = (*fakeCloser)(nil)
