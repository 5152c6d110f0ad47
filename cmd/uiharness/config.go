package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/browser/chrome"
	"github.com/hairizuan-noorazman/ui-harness/database"
	"github.com/hairizuan-noorazman/ui-harness/environment"
	"github.com/hairizuan-noorazman/ui-harness/storage"
)

// envPrefix is prepended to every environment variable override, so
// log.level is read from UIHARNESS_LOG_LEVEL.
const envPrefix = "UIHARNESS"

// Browser backends.
const (
	BackendChrome = "chrome"
	BackendStatic = "static"
)

// defaultLaunchFlags keep Chromium stable in containers and stop it from
// throttling background tabs while a scenario waits.
var defaultLaunchFlags = []string{
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--no-first-run",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
	"--disable-renderer-backgrounding",
}

// Config holds all application configuration.
type Config struct {
	Log         LogConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	Browser     BrowserConfig
	Run         RunConfig
	Server      ServerConfig
	Environment environment.Config
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig holds run history database configuration.
type DatabaseConfig struct {
	Driver       string // "sqlite" or "mysql"
	Path         string // For sqlite: database file
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
}

// StorageConfig holds artifact storage configuration.
type StorageConfig struct {
	Type          string // "local" or "s3"
	BaseDir       string // For local: "./artifacts"
	Bucket        string
	Region        string
	Prefix        string
	Endpoint      string
	PresignExpiry time.Duration
}

// BrowserConfig selects and configures the browser backend.
type BrowserConfig struct {
	Backend   string
	RemoteURL string
	ExecPath  string
	Headless  bool
	Viewport  browser.Viewport
	Flags     []string
}

// RetryConfig holds how many extra attempts a scenario gets.
type RetryConfig struct {
	RunMode  int
	OpenMode int
}

// RunConfig holds scenario execution configuration.
type RunConfig struct {
	ScenariosDir        string
	Parallelism         int
	Retries             RetryConfig
	ScreenshotOnFailure bool
	// Pushgateway receives the run's metrics when set.
	Pushgateway string
}

// ServerConfig holds report server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// connection converts the section into a database.Config.
func (c DatabaseConfig) connection() database.Config {
	return database.Config{
		Driver:       c.Driver,
		Path:         c.Path,
		Host:         c.Host,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		Database:     c.Database,
		MaxOpenConns: c.MaxOpenConns,
		MaxIdleConns: c.MaxIdleConns,
	}
}

// blobStorage converts the section into a storage.Config.
func (c StorageConfig) blobStorage() storage.Config {
	return storage.Config{
		Type:          c.Type,
		BaseDir:       c.BaseDir,
		Bucket:        c.Bucket,
		Region:        c.Region,
		Prefix:        c.Prefix,
		Endpoint:      c.Endpoint,
		PresignExpiry: c.PresignExpiry,
	}
}

// chrome converts the section into a chrome.Config.
func (c BrowserConfig) chrome() chrome.Config {
	return chrome.Config{
		RemoteURL: c.RemoteURL,
		ExecPath:  c.ExecPath,
		Headless:  c.Headless,
		Viewport:  c.Viewport,
		Flags:     c.Flags,
	}
}

// sessionConfig is what every scenario session is opened with.
func (c *Config) sessionConfig(env *environment.Environment) browser.SessionConfig {
	return browser.SessionConfig{
		Viewport:       c.Browser.Viewport,
		RequestTimeout: env.Timeouts.Request,
	}
}

// retries returns the retry budget for a normal or an interactive run.
func (c *Config) retries(interactive bool) int {
	if interactive {
		return c.Run.Retries.OpenMode
	}
	return c.Run.Retries.RunMode
}

// newViper reads the config file and wires environment overrides. A
// missing config file is not an error.
func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("uiharness")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Enable environment variable overrides
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", database.DriverSQLite)
	v.SetDefault("database.path", "uiharness.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "uiharness")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./artifacts")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.presign_expiry", "15m")

	v.SetDefault("browser.backend", BackendChrome)
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 720)
	v.SetDefault("browser.flags", defaultLaunchFlags)

	v.SetDefault("run.scenarios_dir", "scenarios")
	v.SetDefault("run.parallelism", 1)
	v.SetDefault("run.retries.run_mode", 2)
	v.SetDefault("run.retries.open_mode", 0)
	v.SetDefault("run.screenshot_on_failure", true)
	v.SetDefault("run.pushgateway", "")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("mode", string(environment.ModeTest))
	v.SetDefault("import_env", []string{environment.IdentifierVar, environment.SecretVar})

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults
	}

	return v, nil
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	// Parse configuration
	var config Config

	config.Log.Level = v.GetString("log.level")
	config.Log.Format = v.GetString("log.format")

	config.Database.Driver = v.GetString("database.driver")
	config.Database.Path = v.GetString("database.path")
	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.Bucket = v.GetString("storage.bucket")
	config.Storage.Region = v.GetString("storage.region")
	config.Storage.Prefix = v.GetString("storage.prefix")
	config.Storage.Endpoint = v.GetString("storage.endpoint")
	config.Storage.PresignExpiry = v.GetDuration("storage.presign_expiry")

	config.Browser.Backend = strings.ToLower(v.GetString("browser.backend"))
	config.Browser.RemoteURL = v.GetString("browser.remote_url")
	config.Browser.ExecPath = v.GetString("browser.exec_path")
	config.Browser.Headless = v.GetBool("browser.headless")
	config.Browser.Viewport = browser.Viewport{
		Width:  v.GetInt("browser.viewport.width"),
		Height: v.GetInt("browser.viewport.height"),
	}
	config.Browser.Flags = v.GetStringSlice("browser.flags")

	config.Run.ScenariosDir = v.GetString("run.scenarios_dir")
	config.Run.Parallelism = v.GetInt("run.parallelism")
	config.Run.Retries.RunMode = v.GetInt("run.retries.run_mode")
	config.Run.Retries.OpenMode = v.GetInt("run.retries.open_mode")
	config.Run.ScreenshotOnFailure = v.GetBool("run.screenshot_on_failure")
	config.Run.Pushgateway = v.GetString("run.pushgateway")

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")

	config.Environment.Settings = settingsFrom(v)
	importEnv(&config.Environment.Settings, v.GetStringSlice("import_env"))

	profiles := v.GetStringMap("profiles")
	if len(profiles) > 0 {
		config.Environment.Profiles = make(map[string]environment.Settings, len(profiles))
		for name := range profiles {
			sub := v.Sub("profiles." + name)
			if sub == nil {
				return nil, fmt.Errorf("profile %q must be a mapping", name)
			}
			config.Environment.Profiles[name] = settingsFrom(sub)
		}
	}

	if config.Browser.Backend != BackendChrome && config.Browser.Backend != BackendStatic {
		return nil, fmt.Errorf("unsupported browser backend: %s", config.Browser.Backend)
	}

	return &config, nil
}

// settingsFrom reads one layer of environment settings. The same keys are
// used at the top level and inside each profile.
func settingsFrom(v *viper.Viper) environment.Settings {
	return environment.Settings{
		BaseURL: v.GetString("base_url"),
		Mode:    environment.Mode(v.GetString("mode")),
		Credentials: environment.Credentials{
			Identifier: v.GetString("credentials.identifier"),
			Secret:     v.GetString("credentials.secret"),
		},
		Timeouts: environment.Timeouts{
			Short:    v.GetDuration("timeouts.short"),
			Medium:   v.GetDuration("timeouts.medium"),
			Long:     v.GetDuration("timeouts.long"),
			Request:  v.GetDuration("timeouts.request"),
			Response: v.GetDuration("timeouts.response"),
			Interval: v.GetDuration("timeouts.interval"),
		},
		Readiness: environment.Readiness{
			FrameworkMarker:     v.GetString("readiness.framework_marker"),
			SemanticsSelector:   v.GetString("readiness.semantics_selector"),
			FirstScreenSelector: v.GetString("readiness.first_screen_selector"),
			Grace:               v.GetDuration("readiness.grace"),
		},
		Vars:      upperKeys(v.GetStringMapString("vars")),
		Emulators: v.GetStringMapString("emulators"),
	}
}

// upperKeys restores the conventional upper-case variable names that viper
// lowercases on read.
func upperKeys(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, val := range m {
		out[strings.ToUpper(k)] = val
	}
	return out
}

// importEnv copies the named process environment variables into the base
// vars. Process values win over the config file.
func importEnv(s *environment.Settings, names []string) {
	for _, name := range names {
		val, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if s.Vars == nil {
			s.Vars = make(map[string]string)
		}
		s.Vars[name] = val
	}
}

// sensitiveKeys are redacted by "config show".
var sensitiveKeys = []string{"password", "secret", "token", "access_key"}

// redact replaces every sensitive leaf of settings with a placeholder.
func redact(settings map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = redact(val)
		default:
			if isSensitive(k) && fmt.Sprint(val) != "" {
				out[k] = "********"
			} else {
				out[k] = val
			}
		}
	}
	return out
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
