package environment

import (
	"fmt"
	"sort"
	"time"
)

// Variables consulted when no credentials are configured explicitly.
const (
	IdentifierVar = "TEST_USER_EMAIL"
	SecretVar     = "TEST_USER_PASSWORD"
)

// Settings is one layer of environment configuration. Zero fields mean
// "inherit" when a profile is merged over the base.
type Settings struct {
	BaseURL     string
	Mode        Mode
	Credentials Credentials
	Timeouts    Timeouts
	Readiness   Readiness
	Vars        map[string]string
	Emulators   map[string]string
}

// Config is the base settings plus named profiles, such as a plain web
// build and an emulator-backed build of the same application.
type Config struct {
	Settings
	Profiles map[string]Settings
}

// Defaults returns the budgets and markers used when nothing is configured.
func Defaults() Settings {
	return Settings{
		BaseURL: "http://localhost:8080",
		Mode:    ModeTest,
		Timeouts: Timeouts{
			Short:    10 * time.Second,
			Medium:   30 * time.Second,
			Long:     60 * time.Second,
			Request:  15 * time.Second,
			Response: 15 * time.Second,
			Interval: 100 * time.Millisecond,
		},
		Readiness: Readiness{
			FrameworkMarker:   "flutter",
			SemanticsSelector: "flt-semantics",
		},
	}
}

// ProfileNames returns the configured profile names, sorted.
func (c Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve builds the Environment for profile. An empty profile uses the
// base settings alone. The mode is fixed here for the whole run.
func Resolve(cfg Config, profile string) (*Environment, error) {
	settings := merge(Defaults(), cfg.Settings)
	name := "default"
	if profile != "" {
		p, ok := cfg.Profiles[profile]
		if !ok {
			return nil, fmt.Errorf("%w: %q (configured: %v)", ErrUnknownProfile, profile, cfg.ProfileNames())
		}
		settings = merge(settings, p)
		name = profile
	}

	base, err := parseBaseURL(settings.BaseURL)
	if err != nil {
		return nil, err
	}
	if !settings.Mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, settings.Mode)
	}
	if err := settings.Timeouts.Validate(); err != nil {
		return nil, err
	}

	creds := settings.Credentials
	if creds.Identifier == "" {
		creds.Identifier = settings.Vars[IdentifierVar]
	}
	if creds.Secret == "" {
		creds.Secret = settings.Vars[SecretVar]
	}

	return &Environment{
		Name:        name,
		BaseURL:     base.String(),
		Mode:        settings.Mode,
		Credentials: creds,
		Timeouts:    settings.Timeouts,
		Readiness:   settings.Readiness,
		Vars:        copyMap(settings.Vars),
		Emulators:   copyMap(settings.Emulators),
		base:        base,
	}, nil
}

// merge overlays the non-zero fields of top onto base. Maps merge by key.
func merge(base, top Settings) Settings {
	out := base
	if top.BaseURL != "" {
		out.BaseURL = top.BaseURL
	}
	if top.Mode != "" {
		out.Mode = top.Mode
	}
	if top.Credentials.Identifier != "" {
		out.Credentials.Identifier = top.Credentials.Identifier
	}
	if top.Credentials.Secret != "" {
		out.Credentials.Secret = top.Credentials.Secret
	}
	out.Timeouts = mergeTimeouts(base.Timeouts, top.Timeouts)

	if top.Readiness.FrameworkMarker != "" {
		out.Readiness.FrameworkMarker = top.Readiness.FrameworkMarker
	}
	if top.Readiness.SemanticsSelector != "" {
		out.Readiness.SemanticsSelector = top.Readiness.SemanticsSelector
	}
	if top.Readiness.FirstScreenSelector != "" {
		out.Readiness.FirstScreenSelector = top.Readiness.FirstScreenSelector
	}
	if top.Readiness.Grace > 0 {
		out.Readiness.Grace = top.Readiness.Grace
	}

	out.Vars = mergeMaps(base.Vars, top.Vars)
	out.Emulators = mergeMaps(base.Emulators, top.Emulators)
	return out
}

func mergeTimeouts(base, top Timeouts) Timeouts {
	pick := func(b, t time.Duration) time.Duration {
		if t > 0 {
			return t
		}
		return b
	}
	return Timeouts{
		Short:    pick(base.Short, top.Short),
		Medium:   pick(base.Medium, top.Medium),
		Long:     pick(base.Long, top.Long),
		Request:  pick(base.Request, top.Request),
		Response: pick(base.Response, top.Response),
		Interval: pick(base.Interval, top.Interval),
	}
}

func mergeMaps(base, top map[string]string) map[string]string {
	if len(base) == 0 && len(top) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}
