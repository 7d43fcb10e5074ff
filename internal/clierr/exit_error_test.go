package clierr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "plain error", err: errors.New("boom"), want: ExitFailure},
		{name: "explicit code", err: New(3, "three"), want: 3},
		{name: "zero code normalized", err: New(0, "zero"), want: ExitFailure},
		{name: "interrupted", err: Interrupted(context.Canceled), want: ExitInterrupted},
		{name: "wrapped exit error", err: fmt.Errorf("outer: %w", New(ExitPanic, "panic")), want: ExitPanic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeOf(tt.err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(ExitFailure, "load config", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "load config: context deadline exceeded", err.Error())

	assert.Equal(t, "plain", Wrap(4, "plain", nil).Error())
	assert.True(t, IsInterrupted(Interrupted(nil)))
	assert.False(t, IsInterrupted(errors.New("x")))
}
