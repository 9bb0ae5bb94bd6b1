package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStrength(t *testing.T) {
	tests := []struct {
		password string
		want     Level
	}{
		{"", LevelVeryWeak},
		{"abcd", LevelVeryWeak},
		{"abcdefgh", LevelWeak},
		{"Abcdef12!", LevelFair},
		{"Abcdefgh12!!", LevelStrong},
		{"abcdefghijkl", LevelFair},
		{"Abcdefgh12", LevelFair},
		{"Abcdefghij12!!", LevelStrong},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CheckStrength(tt.password), "password %q", tt.password)
	}
}

func TestLevelLabels(t *testing.T) {
	assert.Equal(t, "Very Weak", LevelVeryWeak.String())
	assert.Equal(t, "Strong", LevelStrong.String())
	assert.True(t, LevelFair.IsWeak())
	assert.False(t, LevelGood.IsWeak())
}

func TestHealthScore(t *testing.T) {
	assert.Equal(t, 100.0, HealthScore(nil))
	assert.Equal(t, 100.0, HealthScore([]Level{LevelStrong, LevelStrong}))
	assert.Equal(t, 50.0, HealthScore([]Level{LevelStrong, LevelVeryWeak}))
	assert.Equal(t, 25.0, HealthScore([]Level{LevelWeak}))
}

func TestFindDuplicates(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	groups := a.FindDuplicates([]Credential{
		{ID: "1", Title: "a", Password: "shared"},
		{ID: "2", Title: "b", Password: "shared"},
		{ID: "3", Title: "c", Password: "unique"},
		{ID: "4", Title: "d", Password: "shared "}, // trimmed before comparison
		{ID: "5", Title: "e", Password: ""},
	})

	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, []string{"1", "2", "4"}, groups[0].IDs)

	ids := DuplicateIDs(groups)
	assert.True(t, ids["1"])
	assert.False(t, ids["3"])
}

func TestFindDuplicatesNormalizesUnicode(t *testing.T) {
	a, err := NewAnalyzer()
	require.NoError(t, err)

	// "é" precomposed vs "e" + combining acute.
	groups := a.FindDuplicates([]Credential{
		{ID: "1", Password: "café"},
		{ID: "2", Password: "café"},
	})

	require.Len(t, groups, 1)
	assert.Equal(t, 2, groups[0].Count)
}

func TestCheckPasswordPwned(t *testing.T) {
	// SHA-1("password") = 5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/5BAA6"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(
			"0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n" +
				"1E4C9B93F3F0682250B6CF8331B7EE68FD8:9545824\r\n" +
				"FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF:1\r\n"))
	}))
	defer srv.Close()

	client := NewPwnedClientWithBase(srv.URL)
	count, err := client.CheckPassword(context.Background(), "password")
	require.NoError(t, err)
	assert.Equal(t, 9545824, count)
}

func TestCheckPasswordClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n"))
	}))
	defer srv.Close()

	client := NewPwnedClientWithBase(srv.URL)
	count, err := client.CheckPassword(context.Background(), "definitely-not-in-the-fixture")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCheckPasswordServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewPwnedClientWithBase(srv.URL)
	_, err := client.CheckPassword(context.Background(), "password")
	assert.Error(t, err)
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(32, GenerateOptions{})
	require.NoError(t, err)
	assert.Len(t, pw, 32)

	digitsOnly, err := GeneratePassword(16, GenerateOptions{
		NoLowercase: true, NoUppercase: true, NoSymbols: true,
	})
	require.NoError(t, err)
	for _, r := range digitsOnly {
		assert.Contains(t, charsetDigits, string(r))
	}

	excluded, err := GeneratePassword(64, GenerateOptions{Exclude: "0O1lI"})
	require.NoError(t, err)
	assert.NotContains(t, excluded, "0")
	assert.NotContains(t, excluded, "O")

	_, err = GeneratePassword(4, GenerateOptions{})
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = GeneratePassword(16, GenerateOptions{
		NoLowercase: true, NoUppercase: true, NoDigits: true, NoSymbols: true,
	})
	assert.ErrorIs(t, err, ErrEmptyCharset)
}

func TestReview(t *testing.T) {
	creds := []Credential{
		{ID: "1", Title: "a", Password: "Abcdefgh12!!"},
		{ID: "2", Title: "b", Password: "abcd"},
		{ID: "3", Title: "c", Password: "abcd"},
	}
	a, err := NewAnalyzer()
	require.NoError(t, err)
	groups := a.FindDuplicates(creds)

	reports, summary := Review(creds, groups, map[string]bool{"2": true})

	require.Len(t, reports, 3)
	assert.False(t, reports[0].Weak)
	assert.True(t, reports[1].Weak)
	assert.True(t, reports[1].Pwned)
	assert.True(t, reports[2].Duplicate)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Weak)
	assert.Equal(t, 2, summary.Duplicates)
	assert.Equal(t, 1, summary.Pwned)
	assert.InDelta(t, 33.33, summary.HealthScore, 0.1)
}
