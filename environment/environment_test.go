package environment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Settings: Settings{
			Vars: map[string]string{
				"TEST_USER_EMAIL":    "test@example.com",
				"TEST_USER_PASSWORD": "hunter2",
			},
		},
		Profiles: map[string]Settings{
			"web": {
				BaseURL: "http://localhost:8080",
			},
			"emulator": {
				BaseURL: "http://localhost:8081",
				Timeouts: Timeouts{
					Long: 90 * time.Second,
				},
				Emulators: map[string]string{
					"auth": "http://localhost:9099",
				},
				Vars: map[string]string{
					"FIREBASE_AUTH_EMULATOR_HOST": "localhost:9099",
				},
			},
		},
	}
}

func TestResolve(t *testing.T) {
	t.Run("defaults without profile", func(t *testing.T) {
		env, err := Resolve(Config{}, "")
		require.NoError(t, err)
		assert.Equal(t, "default", env.Name)
		assert.Equal(t, "http://localhost:8080", env.BaseURL)
		assert.Equal(t, ModeTest, env.Mode)
		assert.Equal(t, 10*time.Second, env.Timeouts.Short)
		assert.Equal(t, "flutter", env.Readiness.FrameworkMarker)
		assert.Equal(t, "flt-semantics", env.Readiness.SemanticsSelector)
	})

	t.Run("credentials fall back to env vars", func(t *testing.T) {
		env, err := Resolve(testConfig(), "web")
		require.NoError(t, err)
		assert.Equal(t, "test@example.com", env.Credentials.Identifier)
		assert.Equal(t, "hunter2", env.Credentials.Secret)
	})

	t.Run("profile overrides base", func(t *testing.T) {
		env, err := Resolve(testConfig(), "emulator")
		require.NoError(t, err)
		assert.Equal(t, "emulator", env.Name)
		assert.Equal(t, "http://localhost:8081", env.BaseURL)
		assert.Equal(t, 90*time.Second, env.Timeouts.Long)
		assert.Equal(t, 30*time.Second, env.Timeouts.Medium)
		assert.Equal(t, "http://localhost:9099", env.Emulators["auth"])
		assert.Equal(t, "localhost:9099", env.Vars["FIREBASE_AUTH_EMULATOR_HOST"])
		assert.Equal(t, "test@example.com", env.Vars["TEST_USER_EMAIL"])
	})

	t.Run("explicit credentials win", func(t *testing.T) {
		cfg := testConfig()
		cfg.Credentials = Credentials{Identifier: "qa@example.com", Secret: "s3cret"}
		env, err := Resolve(cfg, "")
		require.NoError(t, err)
		assert.Equal(t, "qa@example.com", env.Credentials.Identifier)
		assert.Equal(t, "s3cret", env.Credentials.Secret)
	})

	t.Run("unknown profile", func(t *testing.T) {
		_, err := Resolve(testConfig(), "staging")
		assert.ErrorIs(t, err, ErrUnknownProfile)
		assert.Contains(t, err.Error(), "[emulator web]")
	})

	t.Run("invalid base url", func(t *testing.T) {
		cfg := Config{Settings: Settings{BaseURL: "localhost:8080/app"}}
		_, err := Resolve(cfg, "")
		assert.ErrorIs(t, err, ErrInvalidBaseURL)
	})

	t.Run("invalid mode", func(t *testing.T) {
		cfg := Config{Settings: Settings{Mode: "staging"}}
		_, err := Resolve(cfg, "")
		assert.ErrorIs(t, err, ErrInvalidMode)
	})

	t.Run("interval larger than short budget", func(t *testing.T) {
		cfg := Config{Settings: Settings{Timeouts: Timeouts{Short: time.Second, Interval: 2 * time.Second}}}
		_, err := Resolve(cfg, "")
		assert.ErrorIs(t, err, ErrInvalidTimeouts)
	})

	t.Run("interval larger than medium budget", func(t *testing.T) {
		cfg := Config{Settings: Settings{Timeouts: Timeouts{Medium: 50 * time.Millisecond}}}
		_, err := Resolve(cfg, "")
		assert.ErrorIs(t, err, ErrInvalidTimeouts)
		assert.Contains(t, err.Error(), "exceeds medium")
	})
}

func TestEnvironment_Clone(t *testing.T) {
	env, err := Resolve(testConfig(), "emulator")
	require.NoError(t, err)

	clone := env.Clone()
	clone.Vars["TEST_USER_EMAIL"] = "other@example.com"
	clone.Emulators["auth"] = "http://elsewhere"

	assert.Equal(t, "test@example.com", env.Vars["TEST_USER_EMAIL"])
	assert.Equal(t, "http://localhost:9099", env.Emulators["auth"])
	assert.Equal(t, env.BaseURL, clone.BaseURL)
}

func TestEnvironment_ResolveURL(t *testing.T) {
	env, err := Resolve(Config{}, "")
	require.NoError(t, err)

	tests := []struct {
		ref  string
		want string
	}{
		{ref: "/", want: "http://localhost:8080/"},
		{ref: "/register", want: "http://localhost:8080/register"},
		{ref: "login?next=home", want: "http://localhost:8080/login?next=home"},
		{ref: "https://example.com/x", want: "https://example.com/x"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := env.ResolveURL(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvironment_ResolveURLWithoutResolve(t *testing.T) {
	env := &Environment{BaseURL: "http://localhost:8081"}
	got, err := env.ResolveURL("/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081/", got)
}

func TestEnvironment_Expand(t *testing.T) {
	env, err := Resolve(testConfig(), "emulator")
	require.NoError(t, err)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "env var", in: "${env.TEST_USER_EMAIL}", want: "test@example.com"},
		{name: "credentials", in: "${credentials.identifier}:${credentials.secret}", want: "test@example.com:hunter2"},
		{name: "emulator", in: "${emulators.auth}/verify", want: "http://localhost:9099/verify"},
		{name: "base url and mode", in: "${base_url} in ${mode}", want: "http://localhost:8081 in test"},
		{name: "no placeholders", in: "plain text", want: "plain text"},
		{name: "unknown var", in: "${env.MISSING}", wantErr: true},
		{name: "unknown scope", in: "${secrets.token}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Expand(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPlaceholder)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
