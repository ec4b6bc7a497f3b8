package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meigma/ferry"
)

func TestFormatError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "invalid argument", err: fmt.Errorf("%w: empty url", ferry.ErrInvalidArgument), want: "Error: invalid argument: ferry: invalid argument: empty url"},
		{name: "not initialized", err: ferry.ErrNotInitialized, want: "Error: transfer engine not initialized"},
		{name: "unauthorized wins over transport", err: fmt.Errorf("%w: %w", ferry.ErrTransport, ferry.ErrUnauthorized), want: "Error: authentication failed (check your credentials)"},
		{name: "canceled", err: ferry.ErrCanceled, want: "Error: operation canceled"},
		{name: "context canceled", err: context.Canceled, want: "Error: operation canceled"},
		{name: "other", err: errors.New("boom"), want: "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, formatError(tt.err))
		})
	}
}

func TestFormatError_Prefixes(t *testing.T) {
	t.Parallel()

	assert.Contains(t, formatError(fmt.Errorf("%w: %w", ferry.ErrTransport, ferry.ErrNotFound)), "Error: not found")
	assert.Contains(t, formatError(fmt.Errorf("%w: %w", ferry.ErrTransport, ferry.ErrUnsupportedScheme)), "unsupported URL scheme")
	assert.Contains(t, formatError(fmt.Errorf("%w: create", ferry.ErrLocalIO)), "Error: local file")
}

func TestHumanSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown size", humanSize(ferry.UnknownSize))
	assert.Equal(t, "0 B", humanSize(0))
	assert.Equal(t, "1.0 KiB", humanSize(1024))
}
