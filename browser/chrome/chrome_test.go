package chrome

import (
	"testing"

	"github.com/hairizuan-noorazman/ui-harness/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFlag(t *testing.T) {
	tests := []struct {
		flag      string
		wantName  string
		wantValue interface{}
	}{
		{flag: "--no-sandbox", wantName: "no-sandbox", wantValue: true},
		{flag: "--window-size=1280,720", wantName: "window-size", wantValue: "1280,720"},
		{flag: "disable-gpu", wantName: "disable-gpu", wantValue: true},
		{flag: "--lang=en-US", wantName: "lang", wantValue: "en-US"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			name, value := splitFlag(tt.flag)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestResolveScript(t *testing.T) {
	script, err := resolveScript(browser.Label(`Say "hi"`, "button"), "r7")
	require.NoError(t, err)

	assert.Contains(t, script, `("role-label", "Say \"hi\"", "button", "data-uiharness-ref", "r7")`)
}

func TestResolveScript_EmptyRole(t *testing.T) {
	script, err := resolveScript(browser.CSS("#app"), "r1")
	require.NoError(t, err)

	assert.Contains(t, script, `("attribute-match", "#app", "", "data-uiharness-ref", "r1")`)
}
