package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"timeout matches sentinel", Timeout("wait", nil), ErrTimeoutExceeded, true},
		{"readiness matches sentinel", Readiness("semantics-layer", nil), ErrReadinessTimeout, true},
		{"assertion does not match timeout", Assertion("no"), ErrTimeoutExceeded, false},
		{"wrapped failure still matches", fmt.Errorf("step 2: %w", New(KindElementNotFound, "#email")), ErrElementNotFound, true},
		{"cancelled matches sentinel", Cancelled(context.Canceled), ErrCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := Readiness("semantics-layer", errors.New("boom"))
	assert.Equal(t, "readiness_timeout(semantics-layer): boom", err.Error())

	err = Assertion("expected \"a\", got \"b\"")
	assert.Equal(t, "assertion_failed: expected \"a\", got \"b\"", err.Error())
}

func TestError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("node detached")
	err := Timeout("locate #email", cause)
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil error", nil, KindNone},
		{"plain error", errors.New("x"), KindNone},
		{"failure error", New(KindElementNotInteractable, ""), KindElementNotInteractable},
		{"wrapped failure", fmt.Errorf("ctx: %w", Assertion("x")), KindAssertionFailed},
		{"context canceled", context.Canceled, KindCancelled},
		{"deadline exceeded", fmt.Errorf("run: %w", context.DeadlineExceeded), KindCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestKind_IsRetryable(t *testing.T) {
	assert.True(t, KindTimeoutExceeded.IsRetryable())
	assert.True(t, KindElementNotFound.IsRetryable())
	assert.True(t, KindElementNotInteractable.IsRetryable())
	assert.True(t, KindNavigationFailed.IsRetryable())
	assert.True(t, KindReadinessTimeout.IsRetryable())
	assert.False(t, KindAssertionFailed.IsRetryable())
	assert.False(t, KindInvalidConfiguration.IsRetryable())
	assert.False(t, KindCancelled.IsRetryable())
}

func TestInvalid(t *testing.T) {
	cause := errors.New("unknown placeholder")
	err := Invalid("type text=Email", cause)

	assert.Equal(t, KindInvalidConfiguration, KindOf(err))
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invalid_configuration: type text=Email: unknown placeholder", err.Error())
}

func TestKind_IsValid(t *testing.T) {
	assert.True(t, KindUncaughtException.IsValid())
	assert.True(t, KindInvalidConfiguration.IsValid())
	assert.False(t, KindNone.IsValid())
	assert.False(t, Kind("bogus").IsValid())
}

func TestSignalOf(t *testing.T) {
	assert.Equal(t, "document", SignalOf(fmt.Errorf("x: %w", Readiness("document", nil))))
	assert.Equal(t, "", SignalOf(errors.New("x")))
}
