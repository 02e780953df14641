package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func requestIDExtractor(ctx context.Context) (slog.Attr, bool) {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return slog.String("request_id", v), true
	}
	return slog.Attr{}, false
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for in, want := range testCases {
		require.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("json output carries context attributes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := newLogger(&buf, Config{Level: "info", Format: "json"}, requestIDExtractor, nil)

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
		log.InfoContext(ctx, "hello", slog.String("k", "v"))

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		require.Equal(t, "hello", rec["msg"])
		require.Equal(t, "req-1", rec["request_id"])
		require.Equal(t, "v", rec["k"])
	})

	t.Run("level filters records", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := newLogger(&buf, Config{Level: "warn"})

		log.Info("dropped")
		require.Zero(t, buf.Len())

		log.Warn("kept")
		require.Contains(t, buf.String(), "kept")
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := newLogger(&buf, Config{Format: "text"}).With(slog.String("component", "cache"))

		log.Info("hello")
		require.Contains(t, buf.String(), "msg=hello")
		require.Contains(t, buf.String(), "component=cache")
	})
}

func TestFanoutHandler(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	h := newFanoutHandler(
		slog.NewJSONHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h)

	log.Info("info only")
	require.Contains(t, a.String(), "info only")
	require.Zero(t, b.Len())

	log.Error("both")
	require.Contains(t, a.String(), "both")
	require.Contains(t, b.String(), "both")
}
