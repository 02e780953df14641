package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/estate/pkg/health"
)

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("no checks is healthy", func(t *testing.T) {
		t.Parallel()

		report := health.Run(context.Background(), nil)
		require.Equal(t, health.StatusHealthy, report.Status)
		require.NoError(t, report.Err())
	})

	t.Run("one failing check fails the report", func(t *testing.T) {
		t.Parallel()

		report := health.Run(context.Background(), health.Checks{
			"postgres": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		require.ErrorIs(t, report.Err(), health.ErrCheckFailed)
		require.Equal(t, health.StatusHealthy, report.Checks["postgres"].Status)
		require.Equal(t, health.StatusUnhealthy, report.Checks["redis"].Status)
		require.Equal(t, "connection refused", report.Checks["redis"].Error)
	})

	t.Run("slow check times out", func(t *testing.T) {
		t.Parallel()

		report := health.Run(context.Background(), health.Checks{
			"slow": func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}, health.WithTimeout(10*time.Millisecond))

		require.Equal(t, health.StatusUnhealthy, report.Status)
		require.Contains(t, report.Checks["slow"].Error, health.ErrCheckTimeout.Error())
	})
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	t.Run("liveness plain text", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
	})

	t.Run("readiness json on failure", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{
			"db": func(context.Context) error { return errors.New("down") },
		})

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health/ready?format=json", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var report health.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		require.Equal(t, health.StatusUnhealthy, report.Status)
		require.Equal(t, "down", report.Checks["db"].Error)
	})

	t.Run("readiness plain text ok", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.ReadinessHandler(nil)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "OK", rec.Body.String())
	})
}
