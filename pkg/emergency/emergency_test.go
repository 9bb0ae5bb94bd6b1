package emergency

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassphrase = "emergency passphrase"

func newTestHeartbeat(t *testing.T, threshold time.Duration) *Heartbeat {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heartbeat.json")
	return NewHeartbeat(path, testPassphrase, threshold, zap.NewNop())
}

func TestHeartbeatRoundTrip(t *testing.T) {
	hb := newTestHeartbeat(t, 30*24*time.Hour)

	require.NoError(t, hb.Update())
	assert.False(t, hb.Triggered())
}

func TestHeartbeatTriggersAfterThreshold(t *testing.T) {
	hb := newTestHeartbeat(t, 30*24*time.Hour)

	require.NoError(t, hb.write(time.Now().UTC().Add(-31*24*time.Hour)))
	assert.True(t, hb.Triggered())
}

func TestHeartbeatMissingFileNotTriggered(t *testing.T) {
	hb := newTestHeartbeat(t, time.Hour)
	assert.False(t, hb.Triggered())
}

func TestHeartbeatFailsClosedOnTampering(t *testing.T) {
	hb := newTestHeartbeat(t, time.Nanosecond)
	require.NoError(t, hb.write(time.Now().UTC().Add(-time.Hour)))
	require.True(t, hb.Triggered())

	data, err := os.ReadFile(hb.path)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))

	flip := func(hexField string) string {
		raw, err := hex.DecodeString(hexField)
		require.NoError(t, err)
		raw[0] ^= 0xff
		return hex.EncodeToString(raw)
	}

	cases := map[string]func(e envelope) envelope{
		"ciphertext": func(e envelope) envelope { e.Ciphertext = flip(e.Ciphertext); return e },
		"tag":        func(e envelope) envelope { e.Tag = flip(e.Tag); return e },
		"salt":       func(e envelope) envelope { e.Salt = flip(e.Salt); return e },
		"iv":         func(e envelope) envelope { e.IV = flip(e.IV); return e },
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			tampered, err := json.Marshal(corrupt(env))
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(hb.path, tampered, 0o600))
			assert.False(t, hb.Triggered())
		})
	}
}

func TestHeartbeatFailsClosedOnGarbage(t *testing.T) {
	hb := newTestHeartbeat(t, time.Nanosecond)
	require.NoError(t, os.WriteFile(hb.path, []byte("{not an envelope"), 0o600))
	assert.False(t, hb.Triggered())
}

func TestHeartbeatWrongPassphraseFailsClosed(t *testing.T) {
	hb := newTestHeartbeat(t, time.Nanosecond)
	require.NoError(t, hb.write(time.Now().UTC().Add(-time.Hour)))

	other := NewHeartbeat(hb.path, "different passphrase", time.Nanosecond, zap.NewNop())
	assert.False(t, other.Triggered())
}

func TestMonitorFiresOnceAndStops(t *testing.T) {
	hb := newTestHeartbeat(t, time.Nanosecond)
	require.NoError(t, hb.write(time.Now().UTC().Add(-time.Hour)))

	fired := 0
	m := NewMonitor(hb, 5*time.Millisecond, func(ctx context.Context) error {
		fired++
		return nil
	}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		m.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after firing")
	}
	assert.Equal(t, 1, fired)
}

func TestMonitorStopsOnCancel(t *testing.T) {
	hb := newTestHeartbeat(t, time.Hour)
	require.NoError(t, hb.Update())

	m := NewMonitor(hb, 5*time.Millisecond, func(ctx context.Context) error {
		t.Fatal("recovery must not fire while heartbeat is fresh")
		return nil
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}
