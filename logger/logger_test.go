package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
	}{
		{name: "JSON output mode", jsonOutput: true, verbosity: 0},
		{name: "Console output mode", jsonOutput: false, verbosity: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			err := Initialize(tt.jsonOutput, tt.verbosity)
			require.NoError(t, err)
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)

			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestNewCoreEncodesForMachinesAndPeople(t *testing.T) {
	var buf bytes.Buffer
	log := zap.New(newCore(true, zapcore.InfoLevel, &buf)).Sugar()
	log.Debugw("hidden")
	log.Infow("Frame changed", FieldFrame, 3)
	require.NoError(t, log.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "Frame changed", entry["msg"])
	assert.Equal(t, float64(3), entry[FieldFrame])

	buf.Reset()
	log = zap.New(newCore(false, zapcore.WarnLevel, &buf)).Sugar()
	log.Infow("hidden")
	log.Warnw("Zone file unusable", FieldFile, "zones.json")
	require.NoError(t, log.Sync())
	assert.Contains(t, buf.String(), "Zone file unusable")
	assert.Contains(t, buf.String(), "zones.json")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestTraceEnabled(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved; verbosity.Store(0) }()

	require.NoError(t, Initialize(false, 2))
	assert.False(t, TraceEnabled())
	require.NoError(t, Initialize(false, 3))
	assert.True(t, TraceEnabled())
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(-1))
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(VerbosityUser))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(VerbosityInfo))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(VerbosityDebug))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(9))

	assert.Equal(t, "Info (-v)", LevelName(1))
	assert.Equal(t, "Trace (-vvv)", LevelName(5))
	assert.True(t, ShouldLogTrace(3))
	assert.False(t, ShouldLogTrace(2))
}

func TestFieldsFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FieldsFromContext(ctx))

	ctx = WithSession(ctx, "3f1c")
	ctx = WithComponent(ctx, "locate")

	fields := FieldsFromContext(ctx)
	assert.Equal(t, []interface{}{FieldSession, "3f1c", FieldComponent, "locate"}, fields)
}

func TestHelpersWithNilLogger(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()

	Logger = nil
	assert.NotPanics(t, func() {
		Infow("message", FieldFrame, 1)
		Warnw("message")
		Errorw("message")
		Debugw("message")
		Cleanup()
	})
}
