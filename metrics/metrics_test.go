package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/ui-harness/failure"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveAction("click", failure.KindNone, 10*time.Millisecond)
	c.ObserveAction("click", failure.KindElementNotFound, time.Second)
	c.ObserveAction("", failure.KindNone, 0)
	c.ObserveWait("readiness document", failure.KindNone, 200*time.Millisecond)
	c.ObserveWait("readiness semantics-layer", failure.KindTimeoutExceeded, 2*time.Second)
	c.ObserveScenario(true, 3*time.Second)
	c.ObserveScenario(false, time.Second)
	c.ObserveScenario(false, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("click", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("click", "element_not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.actions.WithLabelValues("error", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.scenarios.WithLabelValues("failed")))

	expected := `
# HELP uiharness_scenarios_total Total number of scenario runs by status
# TYPE uiharness_scenarios_total counter
uiharness_scenarios_total{status="failed"} 2
uiharness_scenarios_total{status="passed"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "uiharness_scenarios_total"))

	count, err := testutil.GatherAndCount(reg, "uiharness_wait_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
