package util

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingGradingErrorMessage(t *testing.T) {
	err := &PendingGradingError{Total: 5, Graded: 3}
	assert.Equal(t, 2, err.Pending())
	assert.Equal(t, "2 out of 5 responses pending grading", err.Error())
}

func TestPendingGradingErrorUnwrapsThroughWrapping(t *testing.T) {
	inner := &PendingGradingError{Total: 10, Graded: 4}
	wrapped := fmt.Errorf("publish exam 3: %w", inner)

	var pending *PendingGradingError
	require.True(t, errors.As(wrapped, &pending))
	assert.Equal(t, 6, pending.Pending())
}
