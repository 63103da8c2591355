package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Defaults(t *testing.T) {
	logger, level, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Equal(t, zapcore.InfoLevel, level.Level())
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_LevelAndFormat(t *testing.T) {
	logger, level, err := New(Config{Level: "debug", Format: FormatConsole})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	level.SetLevel(zapcore.ErrorLevel)
	assert.False(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_Rejections(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)

	_, _, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}
