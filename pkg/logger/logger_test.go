package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContext_AttachesRequestFields(t *testing.T) {
	var buf bytes.Buffer
	Setup("debug", &buf)
	t.Cleanup(func() { Setup("", os.Stdout) })

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, "user-7")
	ctx = context.WithValue(ctx, ServiceKey, "bookings")

	DebugContext(ctx, "slot claimed", "slot_id", "s1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "slot claimed", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "user-7", entry["user_id"])
	assert.Equal(t, "bookings", entry["service"])
	assert.Equal(t, "s1", entry["slot_id"])
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Setup("warn", &buf)
	t.Cleanup(func() { Setup("", os.Stdout) })

	Info("dropped")
	assert.Zero(t, buf.Len())

	Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}
