package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/environment"
)

const sampleConfig = `
base_url: http://localhost:8080
timeouts:
  short: 10s
  long: 60s
readiness:
  first_screen_selector: css=input[aria-label="Email address"]
vars:
  TEST_USER_EMAIL: file@example.com
  Feature_Flag: "on"
browser:
  backend: static
  flags: ["--disable-gpu"]
database:
  driver: sqlite
  path: runs.db
  password: hunter2
run:
  parallelism: 3
profiles:
  web:
    base_url: http://localhost:8080
  emulator:
    base_url: http://localhost:8081
    timeouts:
      long: 90s
    emulators:
      auth: http://localhost:9099
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "uiharness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "uiharness.db", cfg.Database.Path)
	assert.Equal(t, BackendChrome, cfg.Browser.Backend)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, browser.Viewport{Width: 1280, Height: 720}, cfg.Browser.Viewport)
	assert.Equal(t, defaultLaunchFlags, cfg.Browser.Flags)
	assert.Equal(t, "scenarios", cfg.Run.ScenariosDir)
	assert.Equal(t, 2, cfg.retries(false))
	assert.Equal(t, 0, cfg.retries(true))
	assert.True(t, cfg.Run.ScreenshotOnFailure)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, 15*time.Minute, cfg.Storage.PresignExpiry)
	assert.Empty(t, cfg.Environment.Profiles)

	env, err := environment.Resolve(cfg.Environment, "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", env.BaseURL)
	assert.Equal(t, environment.ModeTest, env.Mode)
	assert.Equal(t, 10*time.Second, env.Timeouts.Short)
}

func TestLoadConfig_File(t *testing.T) {
	t.Setenv(environment.IdentifierVar, "")
	os.Unsetenv(environment.IdentifierVar)

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, BackendStatic, cfg.Browser.Backend)
	assert.Equal(t, []string{"--disable-gpu"}, cfg.Browser.Flags)
	assert.Equal(t, 3, cfg.Run.Parallelism)
	assert.Equal(t, "runs.db", cfg.Database.connection().Path)

	assert.Equal(t, map[string]string{
		"TEST_USER_EMAIL": "file@example.com",
		"FEATURE_FLAG":    "on",
	}, cfg.Environment.Vars)
	assert.Equal(t, []string{"emulator", "web"}, cfg.Environment.ProfileNames())

	env, err := environment.Resolve(cfg.Environment, "emulator")
	require.NoError(t, err)
	assert.Equal(t, "emulator", env.Name)
	assert.Equal(t, "http://localhost:8081", env.BaseURL)
	assert.Equal(t, 90*time.Second, env.Timeouts.Long)
	assert.Equal(t, 10*time.Second, env.Timeouts.Short)
	assert.Equal(t, "http://localhost:9099", env.Emulators["auth"])
	assert.Equal(t, `css=input[aria-label="Email address"]`, env.Readiness.FirstScreenSelector)
	assert.Equal(t, "file@example.com", env.Credentials.Identifier)

	sc := cfg.sessionConfig(env)
	assert.Equal(t, env.Timeouts.Request, sc.RequestTimeout)
	assert.Equal(t, cfg.Browser.Viewport, sc.Viewport)

	rc := cfg.Browser.chrome()
	assert.Equal(t, cfg.Browser.Flags, rc.Flags)
	assert.Equal(t, cfg.Browser.Headless, rc.Headless)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("UIHARNESS_LOG_LEVEL", "debug")
	t.Setenv("UIHARNESS_RUN_PARALLELISM", "4")
	t.Setenv(environment.IdentifierVar, "ci@example.com")
	t.Setenv(environment.SecretVar, "ci-secret")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Run.Parallelism)

	env, err := environment.Resolve(cfg.Environment, "web")
	require.NoError(t, err)
	assert.Equal(t, "ci@example.com", env.Credentials.Identifier)
	assert.Equal(t, "ci-secret", env.Credentials.Secret)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown backend", content: "browser:\n  backend: firefox\n"},
		{name: "malformed yaml", content: "browser: [\n"},
		{name: "profile is not a mapping", content: "profiles:\n  web: 8080\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestRedact(t *testing.T) {
	in := map[string]interface{}{
		"database": map[string]interface{}{
			"password": "hunter2",
			"host":     "db",
		},
		"credentials": map[string]interface{}{
			"identifier": "user@example.com",
			"secret":     "s3cret",
		},
		"vars": map[string]interface{}{
			"test_user_password": "pw",
			"empty_token":        "",
		},
	}

	out := redact(in)

	db := out["database"].(map[string]interface{})
	assert.Equal(t, "********", db["password"])
	assert.Equal(t, "db", db["host"])
	creds := out["credentials"].(map[string]interface{})
	assert.Equal(t, "user@example.com", creds["identifier"])
	assert.Equal(t, "********", creds["secret"])
	vars := out["vars"].(map[string]interface{})
	assert.Equal(t, "********", vars["test_user_password"])
	assert.Equal(t, "", vars["empty_token"])

	assert.Equal(t, "hunter2", in["database"].(map[string]interface{})["password"], "input is not modified")
}
