package logging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rajtan/qtoggleserver/pkg/logging"
)

func TestContextFunctions(t *testing.T) {
	t.Run("WithSession adds session to context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithSession(ctx, "qtoggle-7f3a9c2e11d04b88")

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("WithEventType adds event type to context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithEventType(ctx, "port-update")

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("WithEndpoint adds endpoint to context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithEndpoint(ctx, "/listen")

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("WithOperation adds operation to context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithOperation(ctx, "listen_cycle")

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("WithFields adds custom fields to context", func(t *testing.T) {
		ctx := context.Background()
		fields := map[string]interface{}{
			"session_id":  "qtoggle-abc",
			"error_count": 2,
		}
		ctx = logging.WithFields(ctx, fields)

		logger := logging.FromContext(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("FromContext returns default when empty", func(t *testing.T) {
		logger := logging.FromContext(context.Background())
		assert.NotNil(t, logger)
		assert.Equal(t, logging.Default(), logger)
	})

	t.Run("Ctx extracts logger from context", func(t *testing.T) {
		ctx := context.Background()
		ctx = logging.WithSession(ctx, "qtoggle-def")

		logger := logging.Ctx(ctx)
		assert.NotNil(t, logger)
	})

	t.Run("chaining context functions", func(t *testing.T) {
		tl := logging.NewTestLogger(t)
		ctx := logging.WithLogger(context.Background(), tl.Logger)
		ctx = logging.WithSession(ctx, "qtoggle-123")
		ctx = logging.WithEventType(ctx, "value-change")
		ctx = logging.WithOperation(ctx, "dispatch")

		logging.FromContext(ctx).Info().Msg("chained")

		tl.AssertContains(t, "qtoggle-123")
		tl.AssertContains(t, "value-change")
		tl.AssertContains(t, "dispatch")
		tl.AssertContains(t, "chained")
	})
}
