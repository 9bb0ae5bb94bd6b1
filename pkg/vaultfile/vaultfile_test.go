package vaultfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vaultPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.pkv")
}

func TestCreateOpenRoundTrip(t *testing.T) {
	path := vaultPath(t)

	h, err := Create(path, "master-password", "")
	require.NoError(t, err)
	require.NotNil(t, h.Root())

	g := h.AddGroup("Personal")
	e := h.AddEntry(g, "email", "alice", "hunter22")
	e.URL = "https://mail.example.com"
	e.Tags = []string{"mail"}
	e.SetProp(PropFavorite, "true")
	require.NoError(t, h.Save())

	reopened, err := Open(path, "master-password", "")
	require.NoError(t, err)

	entries := reopened.Entries()
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "email", got.Title)
	assert.Equal(t, "hunter22", got.Password)
	assert.Equal(t, "https://mail.example.com", got.URL)
	assert.Equal(t, []string{"mail"}, got.Tags)
	assert.Equal(t, "Personal", got.Group().Name)

	fav, ok := got.Prop(PropFavorite)
	require.True(t, ok)
	assert.Equal(t, "true", fav)
}

func TestOpenWrongPassword(t *testing.T) {
	path := vaultPath(t)

	_, err := Create(path, "master-password", "")
	require.NoError(t, err)

	_, err = Open(path, "not-the-password", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestOpenMissingVault(t *testing.T) {
	_, err := Open(vaultPath(t), "pw", "")
	assert.ErrorIs(t, err, ErrVaultNotFound)
}

func TestCreateExistingVault(t *testing.T) {
	path := vaultPath(t)

	_, err := Create(path, "pw", "")
	require.NoError(t, err)

	_, err = Create(path, "pw", "")
	assert.ErrorIs(t, err, ErrVaultExists)
}

func TestOpenWithKey(t *testing.T) {
	path := vaultPath(t)

	h, err := Create(path, "master-password", "")
	require.NoError(t, err)
	h.AddEntry(h.AddGroup("Work"), "vpn", "bob", "pw123456")
	require.NoError(t, h.Save())

	key := h.TransformedKey()

	silent, err := OpenWithKey(path, key)
	require.NoError(t, err)
	require.Len(t, silent.Entries(), 1)
	assert.Equal(t, "vpn", silent.Entries()[0].Title)

	// Flipping a key byte must not authenticate.
	key[0] ^= 0xff
	_, err = OpenWithKey(path, key)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestKeyfile(t *testing.T) {
	path := vaultPath(t)
	keyfile := filepath.Join(t.TempDir(), "vault.key")
	require.NoError(t, GenerateKeyfile(keyfile))

	_, err := Create(path, "master-password", keyfile)
	require.NoError(t, err)

	_, err = Open(path, "master-password", keyfile)
	require.NoError(t, err)

	// Password alone is not enough once a keyfile is bound.
	_, err = Open(path, "master-password", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMoveAndDeleteEntry(t *testing.T) {
	path := vaultPath(t)

	h, err := Create(path, "pw", "")
	require.NoError(t, err)

	personal := h.AddGroup("Personal")
	work := h.AddGroup("Work")
	e := h.AddEntry(personal, "site", "", "secret")

	h.MoveEntry(e, work)
	assert.Empty(t, personal.Entries())
	require.Len(t, work.Entries(), 1)
	assert.Equal(t, work, e.Group())

	h.DeleteEntry(e)
	assert.Empty(t, work.Entries())
	assert.Nil(t, h.FindEntry(e.ID))
}

func TestDeleteGroupDropsEntries(t *testing.T) {
	path := vaultPath(t)

	h, err := Create(path, "pw", "")
	require.NoError(t, err)

	g := h.AddGroup("Doomed")
	h.AddEntry(g, "a", "", "x")
	h.AddEntry(g, "b", "", "y")

	h.DeleteGroup(g)
	assert.Nil(t, h.FindGroup("Doomed"))
	assert.Empty(t, h.Entries())

	// Root is never removable.
	h.DeleteGroup(h.Root())
	assert.NotNil(t, h.FindGroup(RootGroupName))
}

func TestSaveIsRewritable(t *testing.T) {
	path := vaultPath(t)

	h, err := Create(path, "pw", "")
	require.NoError(t, err)
	g := h.AddGroup("Personal")
	e := h.AddEntry(g, "first", "", "one")
	require.NoError(t, h.Save())

	e.Password = "two"
	e.Touch()
	require.NoError(t, h.Save())

	reopened, err := Open(path, "pw", "")
	require.NoError(t, err)
	require.Len(t, reopened.Entries(), 1)
	assert.Equal(t, "two", reopened.Entries()[0].Password)
}
