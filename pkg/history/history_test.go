package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "history.json"))
}

func TestListEmptyWhenMissing(t *testing.T) {
	s := newTestStore(t)

	paths, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestAddOrdersMostRecentFirst(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Add("/vaults/a.pkv"))
	require.NoError(t, s.Add("/vaults/b.pkv"))
	require.NoError(t, s.Add("/vaults/c.pkv"))

	paths, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"/vaults/c.pkv", "/vaults/b.pkv", "/vaults/a.pkv"}, paths)
}

func TestAddDeduplicates(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Add("/vaults/a.pkv"))
	require.NoError(t, s.Add("/vaults/b.pkv"))
	require.NoError(t, s.Add("/vaults/a.pkv"))

	paths, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"/vaults/a.pkv", "/vaults/b.pkv"}, paths)
}

func TestAddTrimsToMaxEntries(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < MaxEntries+5; i++ {
		require.NoError(t, s.Add(filepath.Join("/vaults", string(rune('a'+i))+".pkv")))
	}

	paths, err := s.List()
	require.NoError(t, err)
	assert.Len(t, paths, MaxEntries)
	assert.Equal(t, "/vaults/o.pkv", paths[0])
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Add("/vaults/a.pkv"))
	require.NoError(t, s.Add("/vaults/b.pkv"))
	require.NoError(t, s.Remove("/vaults/a.pkv"))

	paths, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"/vaults/b.pkv"}, paths)
}

func TestAddRecoversFromCorruptFile(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte("{not json"), 0o600))

	require.NoError(t, s.Add("/vaults/a.pkv"))

	paths, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"/vaults/a.pkv"}, paths)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Add("/vaults/a.pkv"))
	require.NoError(t, s.Clear())

	paths, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, paths)
}
