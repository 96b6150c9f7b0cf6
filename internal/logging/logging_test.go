package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.WarnLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: " INFO ", want: zapcore.InfoLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "loud", wantErr: true},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := New("debug", FormatJSON)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New("warn", FormatConsole)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = New("nope", FormatConsole)
	assert.Error(t, err)
}

func TestMustFallsBack(t *testing.T) {
	logger := Must("nope", "")
	assert.NotNil(t, logger)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}
