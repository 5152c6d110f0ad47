package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/driver"
	"gopkg.in/yaml.v3"
)

// ErrInvalidStep is returned when a YAML step cannot be decoded.
var ErrInvalidStep = errors.New("invalid step")

// suiteFile is the YAML layout of one scenario file. Setup steps run
// before every scenario's own steps.
type suiteFile struct {
	Suite       string          `yaml:"suite"`
	Description string          `yaml:"description"`
	Entry       string          `yaml:"entry"`
	Exceptions  ExceptionPolicy `yaml:"exceptions"`
	Tags        []string        `yaml:"tags"`
	Setup       []step          `yaml:"setup"`
	Scenarios   []scenarioEntry `yaml:"scenarios"`
}

type scenarioEntry struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Entry       string          `yaml:"entry"`
	Exceptions  ExceptionPolicy `yaml:"exceptions"`
	Tags        []string        `yaml:"tags"`
	Steps       []step          `yaml:"steps"`
}

// step decodes either a bare kind ("- wait-ready") or a single-key
// mapping whose value is a selector, a payload, or a detailed form.
type step struct {
	actions []driver.Action
}

type detailedStep struct {
	Target  string        `yaml:"target"`
	Role    string        `yaml:"role"`
	Text    string        `yaml:"text"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type loginStep struct {
	Identifier        string `yaml:"identifier"`
	Secret            string `yaml:"secret"`
	IdentifierField   string `yaml:"identifier_field"`
	SecretField       string `yaml:"secret_field"`
	Submit            string `yaml:"submit"`
	ExpectURLExcludes string `yaml:"expect_url_excludes"`
}

type logoutStep struct {
	Menu              string `yaml:"menu"`
	SignOut           string `yaml:"sign_out"`
	ExpectURLContains string `yaml:"expect_url_contains"`
}

// Macro names accepted in step lists.
const (
	MacroLogin  = "login"
	MacroLogout = "logout"
)

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *step) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		kind := node.Value
		switch kind {
		case MacroLogin:
			return s.login(node, loginStep{})
		case MacroLogout:
			return s.logout(node, logoutStep{})
		}
		a := driver.Action{Kind: driver.Kind(kind)}
		if err := a.Validate(); err != nil {
			return stepError(node, err)
		}
		s.actions = []driver.Action{a}
		return nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return stepError(node, errors.New("a step must have exactly one key"))
		}
		key, value := node.Content[0].Value, node.Content[1]
		switch key {
		case MacroLogin:
			var m loginStep
			if err := decodeStrict(value, &m); err != nil {
				return stepError(value, err)
			}
			return s.login(value, m)
		case MacroLogout:
			var m logoutStep
			if err := decodeStrict(value, &m); err != nil {
				return stepError(value, err)
			}
			return s.logout(value, m)
		}
		a, err := decodeAction(driver.Kind(key), value)
		if err != nil {
			return stepError(value, err)
		}
		s.actions = []driver.Action{a}
		return nil
	}
	return stepError(node, errors.New("a step must be a kind or a single-key mapping"))
}

func decodeAction(kind driver.Kind, value *yaml.Node) (driver.Action, error) {
	a := driver.Action{Kind: kind}
	if !kind.IsValid() {
		return a, fmt.Errorf("%w: %q", driver.ErrUnknownKind, kind)
	}

	switch value.Kind {
	case yaml.ScalarNode:
		if takesTarget(kind) {
			sel, err := browser.ParseSelector(value.Value)
			if err != nil {
				return a, err
			}
			a.Target = &sel
		} else {
			a.Payload = value.Value
		}
	case yaml.MappingNode:
		var d detailedStep
		if err := decodeStrict(value, &d); err != nil {
			return a, err
		}
		if d.Target != "" {
			sel, err := browser.ParseSelector(d.Target)
			if err != nil {
				return a, err
			}
			if d.Role != "" {
				sel.Role = d.Role
			}
			a.Target = &sel
		}
		a.Payload = d.Text
		if d.URL != "" {
			a.Payload = d.URL
		}
		a.Timeout = d.Timeout
	default:
		return a, errors.New("step value must be a string or a mapping")
	}
	return a, a.Validate()
}

func takesTarget(kind driver.Kind) bool {
	switch kind {
	case driver.KindNavigate, driver.KindAssertURLContains, driver.KindAssertURLExcludes, driver.KindWaitReady:
		return false
	}
	return true
}

// login expands into: type identifier, type secret, click submit, and an
// optional URL check.
func (s *step) login(node *yaml.Node, m loginStep) error {
	identifierField := orDefault(m.IdentifierField, `css=input[type="email"]`)
	secretField := orDefault(m.SecretField, `css=input[type="password"]`)
	submit := orDefault(m.Submit, "text=Sign in")

	sels, err := parseSelectors(identifierField, secretField, submit)
	if err != nil {
		return stepError(node, err)
	}
	s.actions = []driver.Action{
		driver.Type(sels[0], orDefault(m.Identifier, "${credentials.identifier}")),
		driver.Type(sels[1], orDefault(m.Secret, "${credentials.secret}")),
		driver.Click(sels[2]),
	}
	if m.ExpectURLExcludes != "" {
		s.actions = append(s.actions, driver.AssertURLExcludes(m.ExpectURLExcludes))
	}
	return nil
}

// logout expands into: open the account menu, click sign out, and an
// optional URL check.
func (s *step) logout(node *yaml.Node, m logoutStep) error {
	menu := orDefault(m.Menu, `css=[data-cy="profile-button"]`)
	signOut := orDefault(m.SignOut, "text=Sign out")

	sels, err := parseSelectors(menu, signOut)
	if err != nil {
		return stepError(node, err)
	}
	s.actions = []driver.Action{
		driver.Click(sels[0]),
		driver.Click(sels[1]),
	}
	if m.ExpectURLContains != "" {
		s.actions = append(s.actions, driver.AssertURLContains(m.ExpectURLContains))
	}
	return nil
}

func parseSelectors(raw ...string) ([]browser.Selector, error) {
	sels := make([]browser.Selector, len(raw))
	for i, r := range raw {
		sel, err := browser.ParseSelector(r)
		if err != nil {
			return nil, err
		}
		sels[i] = sel
	}
	return sels, nil
}

func decodeStrict(node *yaml.Node, out interface{}) error {
	if node.Kind == yaml.ScalarNode && (node.Tag == "!!null" || node.Value == "") {
		return nil
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func stepError(node *yaml.Node, err error) error {
	return fmt.Errorf("%w at line %d: %v", ErrInvalidStep, node.Line, err)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Parse decodes one scenario file. Scenario names are prefixed with the
// suite name.
func Parse(data []byte) ([]Scenario, error) {
	var file suiteFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var setup []driver.Action
	for _, st := range file.Setup {
		setup = append(setup, st.actions...)
	}

	scenarios := make([]Scenario, 0, len(file.Scenarios))
	for _, entry := range file.Scenarios {
		name := entry.Name
		if file.Suite != "" {
			name = file.Suite + "/" + entry.Name
		}
		sc := Scenario{
			Name:            name,
			Description:     entry.Description,
			Entry:           orDefault(entry.Entry, file.Entry),
			ExceptionPolicy: entry.Exceptions,
			Tags:            append(append([]string{}, file.Tags...), entry.Tags...),
		}
		if sc.ExceptionPolicy == "" {
			sc.ExceptionPolicy = file.Exceptions
		}
		sc.Actions = append(sc.Actions, setup...)
		for _, st := range entry.Steps {
			sc.Actions = append(sc.Actions, st.actions...)
		}
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// LoadFile reads and parses a scenario file.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenarios, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenarios, nil
}

// LoadDir loads every *.yaml and *.yml file in dir, in name order.
func LoadDir(dir string) ([]Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	var all []Scenario
	seen := make(map[string]string)
	for _, path := range paths {
		scenarios, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, sc := range scenarios {
			if prev, ok := seen[sc.Name]; ok {
				return nil, fmt.Errorf("duplicate scenario %q in %s and %s", sc.Name, prev, path)
			}
			seen[sc.Name] = path
			all = append(all, sc)
		}
	}
	return all, nil
}
