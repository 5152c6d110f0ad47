package readiness

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/browser/browsertest"
	"github.com/hairizuan-noorazman/ui-harness/environment"
	"github.com/hairizuan-noorazman/ui-harness/failure"
	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flutterPage = `<html><head><script src="flutter.js"></script></head><body><flutter-view></flutter-view></body></html>`

func testEnv(t *testing.T, timeouts environment.Timeouts, readiness environment.Readiness) *environment.Environment {
	t.Helper()
	env, err := environment.Resolve(environment.Config{
		Settings: environment.Settings{
			BaseURL:   "http://localhost:8080",
			Timeouts:  timeouts,
			Readiness: readiness,
		},
	}, "")
	require.NoError(t, err)
	return env
}

func indexOf(calls []string, call string, last bool) int {
	idx := -1
	for i, c := range calls {
		if c == call {
			idx = i
			if !last {
				return idx
			}
		}
	}
	return idx
}

func TestDetector_DefaultSignalsResolve(t *testing.T) {
	env := testEnv(t,
		environment.Timeouts{Short: 5 * time.Second, Medium: 5 * time.Second, Long: 5 * time.Second, Interval: 50 * time.Millisecond},
		environment.Readiness{FirstScreenSelector: "label=Email address"},
	)
	session := browsertest.NewSession().
		SetDocument(browser.Document{BodyAttached: true, HTML: flutterPage}, 50*time.Millisecond).
		AddElement(browser.CSS("flt-semantics"), browser.ElementState{}, 150*time.Millisecond).
		AddVisible(browser.Label("Email address", ""), "", 250*time.Millisecond)

	out := NewDetector(logger.NewTestLogger()).WaitUntilReady(context.Background(), session, env)

	require.True(t, out.Succeeded, "readiness failed: %v", out.Err)
	assert.Less(t, out.Elapsed, 5*time.Second)
	assert.GreaterOrEqual(t, out.Elapsed, 250*time.Millisecond)

	calls := session.Calls()
	lastSnapshot := indexOf(calls, "snapshot", true)
	firstSemantics := indexOf(calls, "element css=flt-semantics", false)
	lastSemantics := indexOf(calls, "element css=flt-semantics", true)
	firstScreen := indexOf(calls, "element label=Email address", false)

	require.NotEqual(t, -1, firstSemantics)
	require.NotEqual(t, -1, firstScreen)
	assert.Greater(t, firstSemantics, lastSnapshot)
	assert.Greater(t, firstScreen, lastSemantics)
}

func TestDetector_SemanticsLayerNeverResolves(t *testing.T) {
	env := testEnv(t,
		environment.Timeouts{Short: 2 * time.Second, Medium: 2 * time.Second, Long: 2 * time.Second, Interval: 100 * time.Millisecond},
		environment.Readiness{FirstScreenSelector: "css=app-root"},
	)
	session := browsertest.NewSession().
		SetDocument(browser.Document{BodyAttached: true, HTML: flutterPage}, 0).
		AddVisible(browser.CSS("app-root"), "", 0)

	out := NewDetector(logger.NewTestLogger()).WaitUntilReady(context.Background(), session, env)

	require.False(t, out.Succeeded)
	assert.Equal(t, failure.KindReadinessTimeout, out.Kind())
	assert.Equal(t, SignalSemanticsLayer, failure.SignalOf(out.Err))
	assert.True(t, errors.Is(out.Err, failure.ErrReadinessTimeout))
	assert.GreaterOrEqual(t, out.Elapsed, 2*time.Second)
	assert.Less(t, out.Elapsed, 2*time.Second+500*time.Millisecond)
	assert.Contains(t, out.LastObservation, "css=flt-semantics not found")

	assert.Equal(t, -1, indexOf(session.Calls(), "element css=app-root", false))
}

func TestDetector_FirstScreenSkippedWhenUnset(t *testing.T) {
	env := testEnv(t, environment.Timeouts{}, environment.Readiness{})
	d := NewDetector(logger.NewTestLogger())

	assert.Equal(t, []string{SignalDocument, SignalFrameworkMarker, SignalSemanticsLayer}, d.Names(env))
}

func TestDetector_SignalOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	polls := map[string]int{}

	signal := func(name string, okAfter int) Signal {
		return Signal{
			Name:     name,
			Timeout:  time.Second,
			Interval: 10 * time.Millisecond,
			Check: func(ctx context.Context, s browser.Session) (string, bool, error) {
				mu.Lock()
				defer mu.Unlock()
				order = append(order, name)
				polls[name]++
				return name, polls[name] >= okAfter, nil
			},
		}
	}

	d := NewDetector(logger.NewTestLogger(), WithSignals(func(*environment.Environment) []Signal {
		return []Signal{signal("a", 3), signal("b", 2), signal("c", 1)}
	}))
	env := testEnv(t, environment.Timeouts{}, environment.Readiness{})

	out := d.WaitUntilReady(context.Background(), browsertest.NewSession(), env)
	require.True(t, out.Succeeded)
	assert.Equal(t, []string{"a", "a", "a", "b", "b", "c"}, order)
	assert.Equal(t, 6, out.Attempts)
}

func TestDetector_CheckErrorsSurface(t *testing.T) {
	boom := errors.New("devtools disconnected")
	d := NewDetector(logger.NewTestLogger(), WithSignals(func(*environment.Environment) []Signal {
		return []Signal{{
			Name:     "document",
			Timeout:  100 * time.Millisecond,
			Interval: 20 * time.Millisecond,
			Check: func(context.Context, browser.Session) (string, bool, error) {
				return "", false, boom
			},
		}}
	}))
	env := testEnv(t, environment.Timeouts{}, environment.Readiness{})

	out := d.WaitUntilReady(context.Background(), browsertest.NewSession(), env)
	require.False(t, out.Succeeded)
	assert.Equal(t, failure.KindReadinessTimeout, out.Kind())
	assert.ErrorIs(t, out.Err, boom)
	assert.ErrorIs(t, out.LastError, boom)
}

func TestDetector_InvalidSignalIsNotAStall(t *testing.T) {
	d := NewDetector(logger.NewTestLogger(), WithSignals(func(*environment.Environment) []Signal {
		return []Signal{{
			Name:     "document",
			Timeout:  50 * time.Millisecond,
			Interval: 100 * time.Millisecond,
			Check: func(context.Context, browser.Session) (string, bool, error) {
				return "", true, nil
			},
		}}
	}))
	env := testEnv(t, environment.Timeouts{}, environment.Readiness{})

	out := d.WaitUntilReady(context.Background(), browsertest.NewSession(), env)
	require.False(t, out.Succeeded)
	assert.Equal(t, failure.KindInvalidConfiguration, out.Kind())
	assert.Empty(t, failure.SignalOf(out.Err))
}

func TestDetector_Cancelled(t *testing.T) {
	env := testEnv(t,
		environment.Timeouts{Short: 5 * time.Second, Medium: 5 * time.Second, Long: 5 * time.Second, Interval: 50 * time.Millisecond},
		environment.Readiness{},
	)
	session := browsertest.NewSession()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	out := NewDetector(logger.NewTestLogger()).WaitUntilReady(ctx, session, env)
	require.False(t, out.Succeeded)
	assert.Equal(t, failure.KindCancelled, out.Kind())
	assert.Less(t, out.Elapsed, time.Second)
}

func TestDetector_GraceRespectsCancellation(t *testing.T) {
	env := testEnv(t,
		environment.Timeouts{Interval: 10 * time.Millisecond},
		environment.Readiness{Grace: 5 * time.Second},
	)
	session := browsertest.NewSession().
		SetDocument(browser.Document{BodyAttached: true, HTML: flutterPage}, 0).
		AddElement(browser.CSS("flt-semantics"), browser.ElementState{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	out := NewDetector(logger.NewTestLogger()).WaitUntilReady(ctx, session, env)
	require.False(t, out.Succeeded)
	assert.Equal(t, failure.KindCancelled, out.Kind())
	assert.Less(t, out.Elapsed, time.Second)
}

func TestDetector_GraceApplied(t *testing.T) {
	env := testEnv(t,
		environment.Timeouts{Interval: 10 * time.Millisecond},
		environment.Readiness{Grace: 150 * time.Millisecond},
	)
	session := browsertest.NewSession().
		SetDocument(browser.Document{BodyAttached: true, HTML: flutterPage}, 0).
		AddElement(browser.CSS("flt-semantics"), browser.ElementState{}, 0)

	out := NewDetector(logger.NewTestLogger()).WaitUntilReady(context.Background(), session, env)
	require.True(t, out.Succeeded)
	assert.GreaterOrEqual(t, out.Elapsed, 150*time.Millisecond)
}
