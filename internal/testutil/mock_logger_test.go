package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.Messages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.Messages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildrenShareRecorder(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Named("pipeline").Warn("cache write failed")
	logger.With(logging.String("run", "r1")).Info("run finished")

	assert.True(t, logger.HasMessage("warn", "cache write failed"))
	assert.True(t, logger.HasMessage("info", "run finished"))
}
