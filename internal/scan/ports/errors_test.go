package ports

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	err := NewError(ErrorOutage, "reputation", "status 503", nil)
	assert.Equal(t, ErrorOutage, Category(fmt.Errorf("scan: %w", err)))
	assert.Equal(t, ErrorInternal, Category(errors.New("plain")))
	assert.True(t, IsNotConfigured(NewError(ErrorNotConfigured, "heuristic", "no api key", nil)))
	assert.False(t, IsNotConfigured(err))
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	err := NewError(ErrorTimeout, "reputation", "poll analysis", context.DeadlineExceeded)
	assert.Equal(t, "reputation [timeout]: poll analysis: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "heuristic [bad_data]: empty", NewError(ErrorBadData, "heuristic", "empty", nil).Error())
}
