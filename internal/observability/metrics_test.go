package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-mapcraft/internal/apperr"
	"github.com/joeblew999/plat-mapcraft/internal/composer"
)

func TestComposeCollectorCountsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewComposeCollector(reg)
	require.NoError(t, err)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.Transition(composer.Transition{RunID: "a", From: composer.Idle, To: composer.ResolvingBasemap, At: t0})
	assert.Equal(t, 1.0, testutil.ToFloat64(c.InFlight))
	c.Transition(composer.Transition{RunID: "a", From: composer.ResolvingBasemap, To: composer.Done, At: t0.Add(2 * time.Second)})

	c.Transition(composer.Transition{
		RunID: "b", From: composer.Idle, To: composer.Failed, At: t0,
		Err: apperr.New(apperr.MissingRequiredInput, "project name"),
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("done", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Runs.WithLabelValues("failed", "missing_required_input")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Transitions.WithLabelValues("resolving_basemap")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.InFlight))

	families, err := reg.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, f := range families {
		if f.GetName() == "mapcraft_compose_run_duration_seconds" {
			samples = f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), samples)
}

func TestNewComposeCollectorReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewComposeCollector(reg)
	require.NoError(t, err)
	b, err := NewComposeCollector(reg)
	require.NoError(t, err)
	assert.Same(t, a.Runs, b.Runs)
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewComposeCollector(reg)
	require.NoError(t, err)
	c.Transitions.WithLabelValues("done").Inc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "mapcraft_compose_state_transitions_total")
}
