package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	config := Config{
		Level:  "debug",
		Debug:  true,
		Output: "stdout",
	}

	err := Init(config)
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())
}

func TestInitInvalidLevel(t *testing.T) {
	err := Init(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestWithComponent(t *testing.T) {
	componentLogger := WithComponent("test-component")
	assert.NotEqual(t, zerolog.Disabled, componentLogger.GetLevel())
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("INPUTSWITCH_LOG_LEVEL", "warn")
	t.Setenv("INPUTSWITCH_DEBUG", "yes")

	config := DefaultConfig()

	assert.Equal(t, "warn", config.Level)
	assert.True(t, config.Debug)
	assert.Equal(t, "stderr", config.Output)
}

func TestBufferLogger(t *testing.T) {
	var buf bytes.Buffer

	l := NewBufferLogger(&buf)
	l.Debug().Str("display", "1").Msg("hello")

	assert.Contains(t, buf.String(), `"display":"1"`)
	assert.Contains(t, buf.String(), `"message":"hello"`)
}
