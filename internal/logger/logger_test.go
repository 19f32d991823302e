package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func capture(t *testing.T, opts Options) (*zap.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := build(opts, zapcore.AddSync(&buf))
	require.NoError(t, err)
	return logger, &buf
}

// Feature: storefront-cart, Property 14: Production logs are structured
func TestProperty_ProductionLogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every production entry is a JSON object with the service field", prop.ForAll(
		func(message string, sessionID string) bool {
			logger, buf := capture(t, Options{Env: "production", Service: ServiceName})
			logger.Info(message, zap.String("session_id", sessionID))

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				return false
			}
			return entry["message"] == message &&
				entry["session_id"] == sessionID &&
				entry["service"] == ServiceName &&
				entry["level"] == "info" &&
				entry["timestamp"] != nil
		},
		gen.AnyString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestBuild_ProductionDropsDebug(t *testing.T) {
	logger, buf := capture(t, Options{Env: "production"})
	logger.Debug("Request started")
	assert.Zero(t, buf.Len())

	logger.Warn("Failed to refresh order history")
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestBuild_LevelOverride(t *testing.T) {
	logger, buf := capture(t, Options{Env: "production", Level: "debug"})
	logger.Debug("Request started")
	assert.Contains(t, buf.String(), "Request started")

	logger, buf = capture(t, Options{Env: "development", Level: "error"})
	logger.Warn("Submission rejected")
	assert.Zero(t, buf.Len())
}

func TestBuild_InvalidLevel(t *testing.T) {
	_, err := build(Options{Env: "production", Level: "loud"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)
}

func TestBuild_DevelopmentIsConsole(t *testing.T) {
	logger, buf := capture(t, Options{Env: "development"})
	logger.Info("Cart saved", zap.String("session_id", "abc"))

	line := buf.String()
	assert.False(t, strings.HasPrefix(line, "{"))
	assert.Contains(t, line, "Cart saved")
	assert.Contains(t, line, `"session_id": "abc"`)
}

func TestBuild_ErrorsCarryStacktrace(t *testing.T) {
	logger, buf := capture(t, Options{Env: "production"})
	logger.Error("Failed to save cart", zap.String("error", "connection refused"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "connection refused", entry["error"])
	assert.NotEmpty(t, entry["stacktrace"])
}

func TestNewWithDefaults(t *testing.T) {
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("LOG_LEVEL", "not-a-level")
	assert.NotNil(t, NewWithDefaults())
}
