// Package crypto provides the cryptographic primitives used by Project Key:
// AES-256-GCM authenticated encryption, Argon2id derivation for the vault
// master key transform, and PBKDF2-SHA256 derivation for the emergency
// heartbeat key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Argon2Memory is the Argon2id memory cost in KiB (64MB).
	Argon2Memory = 64 * 1024

	// Argon2Time is the number of Argon2id iterations.
	Argon2Time = 3

	// Argon2Threads is the Argon2id degree of parallelism.
	Argon2Threads = 4

	// HeartbeatIterations is the PBKDF2 iteration count for the emergency
	// heartbeat key derivation.
	HeartbeatIterations = 100_000

	// KeyLength is the length of derived keys in bytes (256 bits).
	KeyLength = 32

	// SaltLength is the length of derivation salts in bytes (128 bits).
	SaltLength = 16

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12
)

// Sentinel errors returned by crypto functions.
var (
	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = errors.New("crypto: invalid nonce length, must be 12 bytes")

	// ErrDecryptionFailed indicates decryption or tag verification failed.
	ErrDecryptionFailed = errors.New("crypto: decryption failed, authentication tag verification failed")

	// ErrCiphertextTooShort indicates the ciphertext is shorter than the GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
)

// TransformKey derives the vault transformed key from the composite master
// secret and a salt using Argon2id. The result unlocks the vault file without
// re-running derivation, so callers must treat it as key material and wipe it
// when the session ends.
func TransformKey(secret, salt []byte) []byte {
	return argon2.IDKey(secret, salt, Argon2Time, Argon2Memory, Argon2Threads, KeyLength)
}

// DeriveHeartbeatKey derives the 256-bit emergency heartbeat key from a
// passphrase using PBKDF2-SHA256 with a fixed iteration count. A fresh salt
// is expected for every heartbeat write.
func DeriveHeartbeatKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, HeartbeatIterations, KeyLength, sha256.New)
}

// NewSalt returns a fresh random derivation salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate salt: %w", err)
	}
	return salt, nil
}

// Encrypt encrypts plaintext with AES-256-GCM under the given 32-byte key.
// A random 12-byte nonce is generated per call and returned alongside the
// ciphertext; the authentication tag is appended to the ciphertext.
func Encrypt(key, plaintext []byte) (ciphertext, nonce []byte, err error) {
	if len(key) != KeyLength {
		return nil, nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts an AES-256-GCM ciphertext and verifies its authentication
// tag. Tampering or a wrong key yields ErrDecryptionFailed.
func Decrypt(key, ciphertext, nonce []byte) ([]byte, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}
	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// SealWithNonce encrypts plaintext and prepends the nonce to the ciphertext,
// producing a single self-contained blob.
func SealWithNonce(key, plaintext []byte) ([]byte, error) {
	ciphertext, nonce, err := Encrypt(key, plaintext)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

// OpenWithNonce decrypts a blob produced by SealWithNonce.
func OpenWithNonce(key, blob []byte) ([]byte, error) {
	if len(blob) < NonceLength {
		return nil, ErrCiphertextTooShort
	}
	return Decrypt(key, blob[NonceLength:], blob[:NonceLength])
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents the
// compiler from optimizing the writes away. Used to destroy the cached
// transformed key on session close.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}
