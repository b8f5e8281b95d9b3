package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LogConfig
		debugOn bool
	}{
		{name: "default level is info", cfg: config.LogConfig{}, debugOn: false},
		{name: "debug", cfg: config.LogConfig{Level: "DEBUG", Encoding: "console"}, debugOn: true},
		{name: "unknown encoding falls back to json", cfg: config.LogConfig{Level: "warn", Encoding: "xml"}, debugOn: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.debugOn, logger.Core().Enabled(zap.DebugLevel))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.ErrorContains(t, err, "parsing log level")
}
