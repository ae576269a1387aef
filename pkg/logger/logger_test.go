package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLogUsableBeforeInit(t *testing.T) {
	assert.NotNil(t, Log)
	assert.NotPanics(t, func() { Log.Info("noop") })
}

func TestSetMode(t *testing.T) {
	SetMode("debug")
	assert.Equal(t, zapcore.DebugLevel, Level())

	SetMode("release")
	assert.Equal(t, zapcore.InfoLevel, Level())
}
