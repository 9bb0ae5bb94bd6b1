package updater

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name": "v1.4.0"}`))
	}))
	defer srv.Close()

	c := NewWithEndpoint(srv.URL, "1.3.2", zap.NewNop())
	latest, newer, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1.4.0", latest)
	assert.True(t, newer)
}

func TestCheckServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWithEndpoint(srv.URL, "1.0.0", zap.NewNop())
	_, _, err := c.Check(context.Background())
	assert.Error(t, err)
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		candidate, current string
		want               bool
	}{
		{"v1.4.0", "1.3.2", true},
		{"1.3.2", "1.3.2", false},
		{"1.3.1", "1.3.2", false},
		{"2.0", "1.9.9", true},
		{"1.10.0", "1.9.0", true},
		{"1.3.2.1", "1.3.2", true},
		{"", "1.0.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNewer(tt.candidate, tt.current),
			"%s vs %s", tt.candidate, tt.current)
	}
}
