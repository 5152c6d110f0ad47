package static

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signInPage = `<!DOCTYPE html>
<html><head><title>Sign in</title><script>var flutter = {};</script></head>
<body>
  <h1>Welcome to Cleteci Cross Platform</h1>
  <p>please sign in!</p>
  <form action="/session" method="post">
    <input aria-label="Email address" type="email" name="email">
    <input aria-label="Password" type="password" name="password" value="stale">
    <input aria-label="Token" type="text" name="token" disabled>
    <button aria-label="Sign in" type="submit">Sign in</button>
  </form>
  <div style="display: none"><span id="secret">hidden text</span></div>
  <a href="/register">Register</a>
  <section><div><span>Forgot password?</span></div></section>
</body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, signInPage)
	})
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><input aria-label="Display name"></body></html>`)
	})
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `<html><body><h1>Homepage for %s</h1></body></html>`, r.PostForm.Get("email"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSession(t *testing.T) browser.Session {
	t.Helper()
	s, err := NewRuntime(logger.NewTestLogger()).NewSession(context.Background(), browser.SessionConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSession_SnapshotBeforeNavigate(t *testing.T) {
	s := newSession(t)
	doc, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, doc.BodyAttached)
	assert.Empty(t, doc.HTML)
}

func TestSession_NavigateAndSnapshot(t *testing.T) {
	srv := newServer(t)
	s := newSession(t)
	ctx := context.Background()

	require.NoError(t, s.Navigate(ctx, srv.URL+"/"))
	doc, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, doc.BodyAttached)
	assert.Contains(t, doc.HTML, "flutter")
	assert.Contains(t, doc.Text, "please sign in!")
	assert.Equal(t, srv.URL+"/", doc.URL)
}

func TestSession_NavigateFailure(t *testing.T) {
	srv := newServer(t)
	s := newSession(t)

	err := s.Navigate(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestSession_Element(t *testing.T) {
	srv := newServer(t)
	s := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, srv.URL+"/"))

	tests := []struct {
		name string
		sel  browser.Selector
		want browser.ElementState
	}{
		{
			name: "label resolves input",
			sel:  browser.Label("Email address", ""),
			want: browser.ElementState{Found: true, Visible: true, Enabled: true, Editable: true},
		},
		{
			name: "label with role",
			sel:  browser.Label("Sign in", "button"),
			want: browser.ElementState{Found: true, Visible: true, Enabled: true, Text: "Sign in"},
		},
		{
			name: "label with wrong role",
			sel:  browser.Label("Sign in", "link"),
			want: browser.ElementState{},
		},
		{
			name: "css with value",
			sel:  browser.CSS(`input[name="password"]`),
			want: browser.ElementState{Found: true, Visible: true, Enabled: true, Editable: true, Value: "stale"},
		},
		{
			name: "disabled input is not editable",
			sel:  browser.Label("Token", ""),
			want: browser.ElementState{Found: true, Visible: true},
		},
		{
			name: "hidden ancestor",
			sel:  browser.CSS("#secret"),
			want: browser.ElementState{Found: true, Enabled: true, Text: "hidden text"},
		},
		{
			name: "text picks deepest element",
			sel:  browser.Text("Forgot password?"),
			want: browser.ElementState{Found: true, Visible: true, Enabled: true, Text: "Forgot password?"},
		},
		{
			name: "text matches a substring",
			sel:  browser.Text("password?"),
			want: browser.ElementState{Found: true, Visible: true, Enabled: true, Text: "Forgot password?"},
		},
		{
			name: "missing element",
			sel:  browser.Text("Dashboard"),
			want: browser.ElementState{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Element(ctx, tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSession_ClearAndTypeIsIdempotent(t *testing.T) {
	srv := newServer(t)
	s := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, srv.URL+"/"))

	email := browser.Label("Email address", "")
	require.NoError(t, s.ClearAndType(ctx, email, "test@example.com"))
	require.NoError(t, s.ClearAndType(ctx, email, "test@example.com"))

	state, err := s.Element(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", state.Value)
}

func TestSession_ClickFollowsLink(t *testing.T) {
	srv := newServer(t)
	s := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, srv.URL+"/"))

	require.NoError(t, s.Click(ctx, browser.Text("Register")))

	state, err := s.Element(ctx, browser.Label("Display name", ""))
	require.NoError(t, err)
	assert.True(t, state.Found)

	doc, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/register", doc.URL)
}

func TestSession_ClickSubmitsForm(t *testing.T) {
	srv := newServer(t)
	s := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.Navigate(ctx, srv.URL+"/"))

	require.NoError(t, s.ClearAndType(ctx, browser.Label("Email address", ""), "test@example.com"))
	require.NoError(t, s.Click(ctx, browser.Label("Sign in", "")))

	doc, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Homepage for test@example.com")
}

func TestSession_ClosedSession(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Navigate(context.Background(), "http://localhost"), browser.ErrSessionClosed)
	_, err := s.Element(context.Background(), browser.CSS("body"))
	assert.ErrorIs(t, err, browser.ErrSessionClosed)
}

func TestSession_ScreenshotUnsupported(t *testing.T) {
	s := newSession(t)
	_, err := s.Screenshot(context.Background())
	assert.ErrorIs(t, err, browser.ErrUnsupported)
	assert.Empty(t, s.Exceptions())
}
