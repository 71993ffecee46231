package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsSensitiveKeys(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("provider call",
		"api_key", "sk-123",
		"email", "jane@example.com",
		"session_id", "abc",
		"input_tokens", 42,
		"provider", "openai",
	)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "[REDACTED]", fields["email"])
	assert.Contains(t, fields["session_id"], "hash:")
	assert.NotContains(t, fields["session_id"], "abc")
	assert.EqualValues(t, 42, fields["input_tokens"])
	assert.Equal(t, "openai", fields["provider"])
}

func TestWithKeepsRedaction(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromZap(zap.New(core)).With("authorization", "Bearer x")
	log.Warn("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "[REDACTED]", logs.All()[0].ContextMap()["authorization"])
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Options{Mode: "dev", Level: "loud"})
	assert.Error(t, err)

	l, err := New(Options{Mode: "prod", Level: "warn", Redact: true})
	require.NoError(t, err)
	l.Info("dropped")
}
