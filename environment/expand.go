package environment

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnknownPlaceholder is returned when a placeholder names nothing configured.
var ErrUnknownPlaceholder = errors.New("unknown placeholder")

var placeholderPattern = regexp.MustCompile(`\$\{([a-z_]+)(?:\.([A-Za-z0-9_]+))?\}`)

// Expand replaces ${env.KEY}, ${emulators.NAME}, ${credentials.identifier},
// ${credentials.secret}, ${base_url} and ${mode} in s.
func (e *Environment) Expand(s string) (string, error) {
	var errs []error
	out := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := placeholderPattern.FindStringSubmatch(match)
		value, err := e.lookup(parts[1], parts[2])
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return out, nil
}

func (e *Environment) lookup(scope, key string) (string, error) {
	switch scope {
	case "env":
		if v, ok := e.Vars[key]; ok {
			return v, nil
		}
	case "emulators":
		if v, ok := e.Emulators[key]; ok {
			return v, nil
		}
	case "credentials":
		switch strings.ToLower(key) {
		case "identifier":
			return e.Credentials.Identifier, nil
		case "secret":
			return e.Credentials.Secret, nil
		}
	case "base_url":
		if key == "" {
			return e.BaseURL, nil
		}
	case "mode":
		if key == "" {
			return string(e.Mode), nil
		}
	}
	if key == "" {
		return "", fmt.Errorf("%w: ${%s}", ErrUnknownPlaceholder, scope)
	}
	return "", fmt.Errorf("%w: ${%s.%s}", ErrUnknownPlaceholder, scope, key)
}
