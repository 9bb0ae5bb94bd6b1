package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyLength)
	plaintext := []byte("correct horse battery staple")

	ciphertext, nonce, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	require.Len(t, nonce, NonceLength)
	assert.NotEqual(t, plaintext, ciphertext)

	got, err := Decrypt(key, ciphertext, nonce)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecryptWrongKey(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyLength)
	other := bytes.Repeat([]byte{0x7f}, KeyLength)

	ciphertext, nonce, err := Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	_, err = Decrypt(other, ciphertext, nonce)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptTampered(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyLength)

	ciphertext, nonce, err := Encrypt(key, []byte("secret"))
	require.NoError(t, err)

	ciphertext[0] ^= 0xff
	_, err = Decrypt(key, ciphertext, nonce)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEncryptInvalidKeyLength(t *testing.T) {
	_, _, err := Encrypt([]byte("short"), []byte("data"))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)

	_, err = Decrypt([]byte("short"), []byte("data"), make([]byte, NonceLength))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestSealOpenWithNonce(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, KeyLength)

	blob, err := SealWithNonce(key, []byte("payload"))
	require.NoError(t, err)

	got, err := OpenWithNonce(key, blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	_, err = OpenWithNonce(key, blob[:NonceLength-1])
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestTransformKeyDeterministic(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	k1 := TransformKey([]byte("master password"), salt)
	k2 := TransformKey([]byte("master password"), salt)
	require.Len(t, k1, KeyLength)
	assert.Equal(t, k1, k2)

	other, err := NewSalt()
	require.NoError(t, err)
	assert.NotEqual(t, k1, TransformKey([]byte("master password"), other))
}

func TestDeriveHeartbeatKey(t *testing.T) {
	salt := bytes.Repeat([]byte{0x0a}, SaltLength)

	k1 := DeriveHeartbeatKey("release the archive", salt)
	k2 := DeriveHeartbeatKey("release the archive", salt)
	require.Len(t, k1, KeyLength)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, DeriveHeartbeatKey("another phrase", salt))
}

func TestSecureWipe(t *testing.T) {
	key := bytes.Repeat([]byte{0xee}, KeyLength)
	SecureWipe(key)
	assert.Equal(t, make([]byte, KeyLength), key)
}
