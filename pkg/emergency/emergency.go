// Package emergency maintains an encrypted liveness heartbeat and the
// inactivity monitor that releases a recovery export when the owner stops
// checking in.
package emergency

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cpadlab/project-key/pkg/crypto"
)

const (
	statusActive = "active"
	gcmTagSize   = 16
	fileMode     = 0o600
)

// ErrDecryption indicates a malformed or tampered heartbeat file. Callers of
// Triggered never see it; it exists for tests and diagnostics.
var ErrDecryption = errors.New("emergency: heartbeat decryption failed")

// envelope is the on-disk heartbeat format. Every field is hex-encoded; the
// authentication tag is stored separately from the ciphertext.
type envelope struct {
	Salt       string `json:"salt"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	Ciphertext string `json:"ciphertext"`
}

// payload is the encrypted heartbeat content.
type payload struct {
	LastActivity string `json:"last_activity"`
	Status       string `json:"status"`
}

// Heartbeat writes and checks the encrypted liveness file. The file is
// rewritten with a fresh random salt and nonce on every update, so two
// updates never produce comparable ciphertexts.
type Heartbeat struct {
	path       string
	passphrase string
	threshold  time.Duration
	log        *zap.Logger
}

// NewHeartbeat returns a heartbeat over the given status file. The threshold
// is the inactivity window after which Triggered reports true.
func NewHeartbeat(path, passphrase string, threshold time.Duration, log *zap.Logger) *Heartbeat {
	return &Heartbeat{path: path, passphrase: passphrase, threshold: threshold, log: log}
}

// Update records the current time as the last activity. Failures are
// returned for logging but must never abort the caller.
func (h *Heartbeat) Update() error {
	return h.write(time.Now().UTC())
}

func (h *Heartbeat) write(at time.Time) error {
	body, err := json.Marshal(payload{
		LastActivity: at.Format(time.RFC3339),
		Status:       statusActive,
	})
	if err != nil {
		return fmt.Errorf("emergency: failed to encode heartbeat: %w", err)
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return fmt.Errorf("emergency: failed to generate salt: %w", err)
	}
	key := crypto.DeriveHeartbeatKey(h.passphrase, salt)
	defer crypto.SecureWipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("emergency: failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("emergency: failed to init cipher: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("emergency: failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, body, nil)
	split := len(sealed) - gcmTagSize
	env := envelope{
		Salt:       hex.EncodeToString(salt),
		IV:         hex.EncodeToString(nonce),
		Tag:        hex.EncodeToString(sealed[split:]),
		Ciphertext: hex.EncodeToString(sealed[:split]),
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("emergency: failed to encode envelope: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o700); err != nil {
		return fmt.Errorf("emergency: failed to create directory: %w", err)
	}
	if err := os.WriteFile(h.path, data, fileMode); err != nil {
		return fmt.Errorf("emergency: failed to write heartbeat: %w", err)
	}
	return nil
}

// Triggered reports whether the recorded last activity is older than the
// threshold. Any read, decryption or format failure reports false; a
// heartbeat that cannot be verified must never release the recovery kit.
func (h *Heartbeat) Triggered() bool {
	last, err := h.lastActivity()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.log.Debug("heartbeat unreadable, treating as not triggered", zap.Error(err))
		}
		return false
	}
	return time.Since(last) >= h.threshold
}

func (h *Heartbeat) lastActivity() (time.Time, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		return time.Time{}, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return time.Time{}, ErrDecryption
	}
	salt, err1 := hex.DecodeString(env.Salt)
	nonce, err2 := hex.DecodeString(env.IV)
	tag, err3 := hex.DecodeString(env.Tag)
	ciphertext, err4 := hex.DecodeString(env.Ciphertext)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return time.Time{}, ErrDecryption
	}

	key := crypto.DeriveHeartbeatKey(h.passphrase, salt)
	defer crypto.SecureWipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return time.Time{}, ErrDecryption
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return time.Time{}, ErrDecryption
	}
	if len(nonce) != gcm.NonceSize() {
		return time.Time{}, ErrDecryption
	}

	body, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return time.Time{}, ErrDecryption
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return time.Time{}, ErrDecryption
	}
	last, err := time.Parse(time.RFC3339, p.LastActivity)
	if err != nil {
		return time.Time{}, ErrDecryption
	}
	return last, nil
}
