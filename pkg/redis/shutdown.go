package redis

import (
	"context"
	"io"
)

// Shutdown returns a hook that closes the Redis client.
// Register it with the application's shutdown hooks.
func Shutdown(client io.Closer) func(ctx context.Context) error {
	return func(context.Context) error {
		return client.Close()
	}
}
