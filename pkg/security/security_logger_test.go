package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSecurityLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	sl := NewSecurityLoggerWithZap(zap.New(core), "autopost-backend", "test")

	t.Run("Should log admin denials at error level with the reason", func(t *testing.T) {
		sl.LogAdminDenied(context.Background(), "user-1", "role_missing", "10.0.0.1", "curl", "req-1", "/v1/admin/credentials")

		entries := logs.FilterMessage(string(EventAdminDenied)).All()
		require.Len(t, entries, 1)
		assert.Equal(t, "error", entries[0].Level.String())

		fields := entries[0].ContextMap()
		assert.Equal(t, "10.0.0.1", fields["ip"])
		assert.Contains(t, fields["details"], "role_missing")
		assert.NotEqual(t, "user-1", fields["subject_value"])
	})

	t.Run("Should hand events to the persist func", func(t *testing.T) {
		got := make(chan SecurityEvent, 1)
		sl.SetPersistFunc(func(_ context.Context, e SecurityEvent) error {
			got <- e
			return nil
		})
		defer sl.SetPersistFunc(nil)

		sl.LogCredentialsSubmitted(context.Background(), "user-1", "tiktok")

		select {
		case e := <-got:
			assert.Equal(t, EventCredentialsSubmitted, e.Event)
			assert.Equal(t, "info", e.Level)
			assert.Equal(t, "test", e.Environment)
		case <-time.After(2 * time.Second):
			t.Fatal("persist func was not called")
		}
	})
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "c***@example.com", MaskEmail("coach@example.com"))
	assert.Equal(t, "***", MaskEmail("ab"))
}
