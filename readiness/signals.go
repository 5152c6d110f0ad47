package readiness

import (
	"context"
	"fmt"
	"strings"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/hairizuan-noorazman/ui-harness/environment"
)

// Names of the default signals.
const (
	SignalDocument        = "document"
	SignalFrameworkMarker = "framework-marker"
	SignalSemanticsLayer  = "semantics-layer"
	SignalFirstScreen     = "first-screen"
)

// DefaultSignals is the chain for a canvas-rendered application: the
// document body is attached, the framework marker is in the markup, the
// semantics layer exists, and the first screen is visible. The last signal
// is skipped when no first-screen selector is configured.
func DefaultSignals(env *environment.Environment) []Signal {
	t := env.Timeouts
	signals := []Signal{
		{
			Name:     SignalDocument,
			Timeout:  t.Medium,
			Interval: t.Interval,
			Check:    DocumentAttached(),
		},
		{
			Name:     SignalFrameworkMarker,
			Timeout:  t.Medium,
			Interval: t.Interval,
			Check:    MarkupContains(env.Readiness.FrameworkMarker),
		},
		{
			Name:     SignalSemanticsLayer,
			Timeout:  t.Long,
			Interval: t.Interval,
			Check:    ElementExists(browser.CSS(env.Readiness.SemanticsSelector)),
		},
	}
	if env.Readiness.FirstScreenSelector != "" {
		signals = append(signals, Signal{
			Name:     SignalFirstScreen,
			Timeout:  t.Short,
			Interval: t.Interval,
			Check:    firstScreen(env.Readiness.FirstScreenSelector),
		})
	}
	return signals
}

func firstScreen(raw string) Check {
	sel, err := browser.ParseSelector(raw)
	if err != nil {
		return func(context.Context, browser.Session) (string, bool, error) {
			return "", false, fmt.Errorf("invalid first-screen selector: %w", err)
		}
	}
	return ElementVisible(sel)
}

// DocumentAttached holds once the body is attached and has content.
func DocumentAttached() Check {
	return func(ctx context.Context, s browser.Session) (string, bool, error) {
		doc, err := s.Snapshot(ctx)
		if err != nil {
			return "", false, err
		}
		if !doc.BodyAttached {
			return "body not attached", false, nil
		}
		return fmt.Sprintf("body attached, %d bytes of markup", len(doc.HTML)), true, nil
	}
}

// MarkupContains holds once marker appears in the rendered markup.
func MarkupContains(marker string) Check {
	return func(ctx context.Context, s browser.Session) (string, bool, error) {
		doc, err := s.Snapshot(ctx)
		if err != nil {
			return "", false, err
		}
		if strings.Contains(doc.HTML, marker) {
			return fmt.Sprintf("marker %q present", marker), true, nil
		}
		return fmt.Sprintf("marker %q absent from %d bytes of markup", marker, len(doc.HTML)), false, nil
	}
}

// ElementExists holds once sel resolves, visible or not.
func ElementExists(sel browser.Selector) Check {
	return func(ctx context.Context, s browser.Session) (string, bool, error) {
		state, err := s.Element(ctx, sel)
		if err != nil {
			return "", false, err
		}
		if !state.Found {
			return fmt.Sprintf("%s not found", sel), false, nil
		}
		return fmt.Sprintf("%s found", sel), true, nil
	}
}

// ElementVisible holds once sel resolves and is visible.
func ElementVisible(sel browser.Selector) Check {
	return func(ctx context.Context, s browser.Session) (string, bool, error) {
		state, err := s.Element(ctx, sel)
		if err != nil {
			return "", false, err
		}
		switch {
		case !state.Found:
			return fmt.Sprintf("%s not found", sel), false, nil
		case !state.Visible:
			return fmt.Sprintf("%s found but hidden", sel), false, nil
		}
		return fmt.Sprintf("%s visible", sel), true, nil
	}
}
