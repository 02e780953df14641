// Command estate serves the property listings API with a read-through cache
// in front of Postgres or Supabase.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/dmitrymomot/estate/internal/app"
	"github.com/dmitrymomot/estate/internal/config"
)

// flushTimeout bounds how long buffered Sentry events may delay exit.
const flushTimeout = 2 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "estate:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer sentry.Flush(flushTimeout)

	return a.Run(ctx)
}
