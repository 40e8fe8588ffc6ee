package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndStatus(t *testing.T) {
	tests := []struct {
		err    error
		kind   string
		status int
	}{
		{nil, "", http.StatusOK},
		{fmt.Errorf("order 1: %w", ErrNotFound), "not_found", http.StatusNotFound},
		{ErrDateUnavailable, "date_unavailable", http.StatusBadRequest},
		{ErrOptionClosed, "option_closed", http.StatusBadRequest},
		{fmt.Errorf("to side: %w", ErrInvalidTransition), "invalid_transition", http.StatusConflict},
		{ErrAmountMismatch, "amount_mismatch", http.StatusBadRequest},
		{fmt.Errorf("toss: %w", ErrUpstream), "upstream_unavailable", http.StatusBadGateway},
		{context.DeadlineExceeded, "timeout", http.StatusGatewayTimeout},
		{errors.New("boom"), "internal", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.kind, Kind(tt.err))
		assert.Equal(t, tt.status, HTTPStatus(tt.err))
	}
}

func TestMessage(t *testing.T) {
	assert.Empty(t, Message(nil))
	assert.Contains(t, Message(ErrOptionClosed), "14시")
	assert.NotEmpty(t, Message(errors.New("boom")))
}
