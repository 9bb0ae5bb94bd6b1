package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRotateCreatesTimestampedCopy(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "vault.pkv")
	require.NoError(t, os.WriteFile(source, []byte("vault-bytes"), 0o600))

	r := NewRotator(filepath.Join(dir, "backups"), 5, zap.NewNop())
	r.Rotate(source)

	backups, err := r.List(source)
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Contains(t, filepath.Base(backups[0]), "vault_")
	assert.Equal(t, ".pkv", filepath.Ext(backups[0]))

	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, []byte("vault-bytes"), data)
}

func TestRotateBound(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "vault.pkv")

	const maxCount = 3
	r := NewRotator(filepath.Join(dir, "backups"), maxCount, zap.NewNop())

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		require.NoError(t, os.WriteFile(source, []byte{byte(i)}, 0o600))
		r.Rotate(source)

		// Spread mtimes so rotation order is unambiguous.
		backups, err := r.List(source)
		require.NoError(t, err)
		require.NoError(t, os.Chtimes(backups[0], base.Add(time.Duration(i)*time.Minute), base.Add(time.Duration(i)*time.Minute)))
	}

	backups, err := r.List(source)
	require.NoError(t, err)
	require.Len(t, backups, maxCount)

	// The survivors are the most recent snapshots.
	for i, path := range backups {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(7 - i)}, data)
	}
}

func TestRotateMissingSourceIsNoop(t *testing.T) {
	dir := t.TempDir()
	r := NewRotator(filepath.Join(dir, "backups"), 5, zap.NewNop())

	r.Rotate(filepath.Join(dir, "nope.pkv"))
	r.Rotate("")

	_, err := os.Stat(filepath.Join(dir, "backups"))
	assert.True(t, os.IsNotExist(err))
}

func TestRotateKeepsOtherStems(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "home.pkv")
	second := filepath.Join(dir, "work.pkv")
	require.NoError(t, os.WriteFile(first, []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("b"), 0o600))

	r := NewRotator(filepath.Join(dir, "backups"), 1, zap.NewNop())
	r.Rotate(first)
	r.Rotate(second)

	firstBackups, err := r.List(first)
	require.NoError(t, err)
	secondBackups, err := r.List(second)
	require.NoError(t, err)
	assert.Len(t, firstBackups, 1)
	assert.Len(t, secondBackups, 1)
}
