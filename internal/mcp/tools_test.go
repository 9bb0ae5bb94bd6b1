package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cpadlab/project-key/pkg/auditor"
	"github.com/cpadlab/project-key/pkg/backup"
	"github.com/cpadlab/project-key/pkg/vault"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	rotator := backup.NewRotator(filepath.Join(dir, "backups"), 3, zap.NewNop())
	session := vault.NewSession(rotator, nil, zap.NewNop())
	t.Cleanup(session.Close)
	require.NoError(t, session.Create(filepath.Join(dir, "mcp.pkv"), "master password", ""))

	audit, err := auditor.New(session, nil, auditor.DefaultConfig(), zap.NewNop())
	require.NoError(t, err)

	s := &Server{session: session, audit: audit, log: zap.NewNop()}

	_, err = session.Entries().Add(vault.Entry{
		Title: "github", Username: "octocat", Password: "Sup3rS3cret!pass",
		URL: "https://github.com", Group: "Work", Tags: []string{"dev"},
	})
	require.NoError(t, err)
	_, err = session.Entries().Add(vault.Entry{
		Title: "bank", Password: "weakpw12", Notes: "main account",
	})
	require.NoError(t, err)
	return s
}

func TestEntryListNeverReturnsPasswords(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleEntryList(context.Background(), nil, EntryListInput{})
	require.NoError(t, err)
	require.Len(t, out.Entries, 2)
	for _, e := range out.Entries {
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.Title)
	}
}

func TestEntryListFilters(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, byGroup, err := s.handleEntryList(ctx, nil, EntryListInput{Group: "Work"})
	require.NoError(t, err)
	require.Len(t, byGroup.Entries, 1)
	assert.Equal(t, "github", byGroup.Entries[0].Title)

	_, byTag, err := s.handleEntryList(ctx, nil, EntryListInput{Tag: "dev"})
	require.NoError(t, err)
	require.Len(t, byTag.Entries, 1)

	_, missing, err := s.handleEntryList(ctx, nil, EntryListInput{Group: "Nope"})
	assert.Error(t, err)
	assert.Empty(t, missing.Entries)
}

func TestEntrySearch(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleEntrySearch(context.Background(), nil, EntrySearchInput{Query: "octo"})
	require.NoError(t, err)
	require.Len(t, out.Entries, 1)
	assert.Equal(t, "github", out.Entries[0].Title)
	assert.False(t, out.Entries[0].HasNotes)
}

func TestEntryGetMasked(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, list, err := s.handleEntryList(ctx, nil, EntryListInput{Group: "Work"})
	require.NoError(t, err)
	require.Len(t, list.Entries, 1)

	_, out, err := s.handleEntryGetMasked(ctx, nil, EntryGetMaskedInput{ID: list.Entries[0].ID})
	require.NoError(t, err)
	assert.Equal(t, len("Sup3rS3cret!pass"), out.PasswordLength)
	assert.Equal(t, "************pass", out.MaskedPassword)
	assert.NotContains(t, out.MaskedPassword, "Sup3rS3cret!")
	assert.Equal(t, "Strong", out.StrengthLabel)

	_, _, err = s.handleEntryGetMasked(ctx, nil, EntryGetMaskedInput{ID: "nope"})
	assert.ErrorIs(t, err, vault.ErrEntryNotFound)
}

func TestGroupList(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleGroupList(context.Background(), nil, GroupListInput{})
	require.NoError(t, err)

	names := map[string]int{}
	for _, g := range out.Groups {
		names[g.Name] = g.EntryCount
	}
	assert.Equal(t, 1, names["Work"])
	assert.Equal(t, 1, names["Personal"])
}

func TestSecuritySummary(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleSecuritySummary(context.Background(), nil, SecuritySummaryInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Summary.Total)
	assert.Equal(t, 1, out.Summary.Weak)
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "****", maskValue("abcd"))
	assert.Equal(t, "***", maskValue("abc"))
	assert.Equal(t, "*WXYZ", maskValue("VWXYZ"))
	assert.Equal(t, "", maskValue(""))
}
