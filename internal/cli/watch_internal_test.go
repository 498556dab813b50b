package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitForChange_Debounces(t *testing.T) {
	changes := make(chan string, 4)
	changes <- "payroll"
	changes <- "payroll"
	changes <- "payroll"

	start := time.Now()
	assert.True(t, waitForChange(context.Background(), changes, "payroll"))
	assert.GreaterOrEqual(t, time.Since(start), debounce)
	assert.Empty(t, changes)
}

func TestWaitForChange_Stops(t *testing.T) {
	t.Run("Closed", func(t *testing.T) {
		changes := make(chan string)
		close(changes)
		assert.False(t, waitForChange(context.Background(), changes, "payroll"))
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, waitForChange(ctx, make(chan string), "payroll"))
	})
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, handleExecutionError(nil))
	assert.NoError(t, handleExecutionError(fmt.Errorf("evaluate: %w", context.Canceled)))

	boom := errors.New("boom")
	assert.ErrorIs(t, handleExecutionError(boom), boom)
}
