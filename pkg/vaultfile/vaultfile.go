// Package vaultfile implements the on-disk vault store for Project Key.
//
// A vault is a single SQLite file in which every group and entry is kept as
// an AES-256-GCM encrypted JSON record under a key derived from the master
// password (and optional keyfile) with Argon2id. Opening a vault loads the
// whole database into an in-memory Handle and closes the file; saving
// rewrites every record in one transaction. The derived key (the
// "transformed key") can be cached by the caller to reopen the vault without
// the master password.
package vaultfile

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cpadlab/project-key/pkg/crypto"
)

const (
	// FileMode restricts vault files to the owner.
	FileMode = 0o600

	// DirMode restricts created vault directories to the owner.
	DirMode = 0o700

	// RootGroupName is the reserved name of the root container group.
	RootGroupName = "Root"

	// formatVersion is the schema version written into vault_meta.
	formatVersion = 1

	// keyCheckMagic is the verifier plaintext stored encrypted in vault_meta.
	// A successful decrypt proves the derived key is correct.
	keyCheckMagic = "project-key/v1"
)

// Errors returned by the vault store.
var (
	ErrVaultNotFound      = errors.New("vaultfile: vault not found at this path")
	ErrVaultExists        = errors.New("vaultfile: vault already exists at this path")
	ErrInvalidCredentials = errors.New("vaultfile: invalid master password or keyfile")
	ErrVaultCorrupted     = errors.New("vaultfile: vault file is corrupted")
)

// Create initializes a new vault file at path, protected by the master
// password and an optional keyfile, and returns an open Handle containing
// only the root group.
func Create(path, password, keyfile string) (*Handle, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, ErrVaultExists
	}
	if err := os.MkdirAll(filepath.Dir(path), DirMode); err != nil {
		return nil, fmt.Errorf("vaultfile: failed to create vault directory: %w", err)
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, err
	}

	secret, err := compositeSecret(password, keyfile)
	if err != nil {
		return nil, err
	}
	key := crypto.TransformKey(secret, salt)
	crypto.SecureWipe(secret)

	keyCheck, err := crypto.SealWithNonce(key, []byte(keyCheckMagic))
	if err != nil {
		return nil, err
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("vaultfile: failed to create tables: %w", err)
	}

	_, err = db.Exec(
		"INSERT INTO vault_meta (id, version, salt, key_check, created_at) VALUES (1, ?, ?, ?, ?)",
		formatVersion, salt, keyCheck, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("vaultfile: failed to write vault metadata: %w", err)
	}

	if err := os.Chmod(path, FileMode); err != nil {
		return nil, fmt.Errorf("vaultfile: failed to set vault permissions: %w", err)
	}

	h := newHandle(path, key)
	if err := h.Save(); err != nil {
		return nil, err
	}
	return h, nil
}

// Open decrypts the vault at path with the master password and optional
// keyfile and returns its in-memory Handle. A wrong password or keyfile
// yields ErrInvalidCredentials.
func Open(path, password, keyfile string) (*Handle, error) {
	salt, err := readSalt(path)
	if err != nil {
		return nil, err
	}

	secret, err := compositeSecret(password, keyfile)
	if err != nil {
		return nil, err
	}
	key := crypto.TransformKey(secret, salt)
	crypto.SecureWipe(secret)

	return OpenWithKey(path, key)
}

// OpenWithKey reopens the vault at path with a previously derived transformed
// key, skipping password derivation entirely. This is the silent-reopen path
// used by the session's cached key.
func OpenWithKey(path string, key []byte) (*Handle, error) {
	if len(key) != crypto.KeyLength {
		return nil, crypto.ErrInvalidKeyLength
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("vaultfile: failed to stat vault: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var keyCheck []byte
	err = db.QueryRow("SELECT key_check FROM vault_meta WHERE id = 1").Scan(&keyCheck)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVaultCorrupted
		}
		return nil, fmt.Errorf("vaultfile: failed to read vault metadata: %w", err)
	}

	magic, err := crypto.OpenWithNonce(key, keyCheck)
	if err != nil || string(magic) != keyCheckMagic {
		return nil, ErrInvalidCredentials
	}

	h := newHandle(path, key)
	if err := h.load(db); err != nil {
		return nil, err
	}
	return h, nil
}

// Save persists every group and entry of the handle back into the vault
// file, replacing the previous contents in a single transaction.
func (h *Handle) Save() error {
	db, err := openDB(h.path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("vaultfile: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM vault_groups"); err != nil {
		return fmt.Errorf("vaultfile: failed to clear groups: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM vault_entries"); err != nil {
		return fmt.Errorf("vaultfile: failed to clear entries: %w", err)
	}

	for _, g := range h.groups {
		blob, err := h.sealRecord(groupRecord{
			Name:      g.Name,
			Props:     g.props,
			CreatedAt: g.Created,
			UpdatedAt: g.Updated,
		})
		if err != nil {
			return err
		}
		if _, err := tx.Exec("INSERT INTO vault_groups (record) VALUES (?)", blob); err != nil {
			return fmt.Errorf("vaultfile: failed to save group: %w", err)
		}
	}

	for _, g := range h.groups {
		for _, e := range g.entries {
			blob, err := h.sealRecord(entryRecord{
				ID:        e.ID,
				Group:     g.Name,
				Title:     e.Title,
				Username:  e.Username,
				Password:  e.Password,
				URL:       e.URL,
				Notes:     e.Notes,
				Tags:      e.Tags,
				Props:     e.props,
				CreatedAt: e.Created,
				UpdatedAt: e.Updated,
			})
			if err != nil {
				return err
			}
			if _, err := tx.Exec("INSERT INTO vault_entries (record) VALUES (?)", blob); err != nil {
				return fmt.Errorf("vaultfile: failed to save entry: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vaultfile: failed to commit save: %w", err)
	}
	return nil
}

// groupRecord is the persisted JSON form of a group.
type groupRecord struct {
	Name      string            `json:"name"`
	Props     map[string]string `json:"props,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// entryRecord is the persisted JSON form of an entry.
type entryRecord struct {
	ID        string            `json:"id"`
	Group     string            `json:"group"`
	Title     string            `json:"title"`
	Username  string            `json:"username,omitempty"`
	Password  string            `json:"password"`
	URL       string            `json:"url,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Tags      []string          `json:"tags,omitempty"`
	Props     map[string]string `json:"props,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (h *Handle) sealRecord(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("vaultfile: failed to marshal record: %w", err)
	}
	blob, err := crypto.SealWithNonce(h.key, data)
	if err != nil {
		return nil, fmt.Errorf("vaultfile: failed to encrypt record: %w", err)
	}
	return blob, nil
}

func (h *Handle) openRecord(blob []byte, v any) error {
	data, err := crypto.OpenWithNonce(h.key, blob)
	if err != nil {
		return ErrVaultCorrupted
	}
	if err := json.Unmarshal(data, v); err != nil {
		return ErrVaultCorrupted
	}
	return nil
}

// load reads and decrypts every record in the open database into the handle.
func (h *Handle) load(db *sql.DB) error {
	rows, err := db.Query("SELECT record FROM vault_groups ORDER BY seq")
	if err != nil {
		return fmt.Errorf("vaultfile: failed to query groups: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return fmt.Errorf("vaultfile: failed to scan group row: %w", err)
		}
		var rec groupRecord
		if err := h.openRecord(blob, &rec); err != nil {
			return err
		}
		g := &Group{
			Name:    rec.Name,
			Created: rec.CreatedAt,
			Updated: rec.UpdatedAt,
			props:   rec.Props,
		}
		if g.props == nil {
			g.props = make(map[string]string)
		}
		if g.Name == RootGroupName {
			h.root = g
		}
		h.groups = append(h.groups, g)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("vaultfile: error iterating groups: %w", err)
	}

	// Older files may predate the persisted root record.
	if h.root == nil {
		h.root = &Group{Name: RootGroupName, Created: time.Now().UTC(), Updated: time.Now().UTC(), props: make(map[string]string)}
		h.groups = append([]*Group{h.root}, h.groups...)
	}

	entryRows, err := db.Query("SELECT record FROM vault_entries ORDER BY seq")
	if err != nil {
		return fmt.Errorf("vaultfile: failed to query entries: %w", err)
	}
	defer entryRows.Close()

	for entryRows.Next() {
		var blob []byte
		if err := entryRows.Scan(&blob); err != nil {
			return fmt.Errorf("vaultfile: failed to scan entry row: %w", err)
		}
		var rec entryRecord
		if err := h.openRecord(blob, &rec); err != nil {
			return err
		}
		g := h.FindGroup(rec.Group)
		if g == nil {
			g = h.root
		}
		e := &Entry{
			ID:       rec.ID,
			Title:    rec.Title,
			Username: rec.Username,
			Password: rec.Password,
			URL:      rec.URL,
			Notes:    rec.Notes,
			Tags:     rec.Tags,
			Created:  rec.CreatedAt,
			Updated:  rec.UpdatedAt,
			group:    g,
			props:    rec.Props,
		}
		if e.props == nil {
			e.props = make(map[string]string)
		}
		g.entries = append(g.entries, e)
	}
	if err := entryRows.Err(); err != nil {
		return fmt.Errorf("vaultfile: error iterating entries: %w", err)
	}
	return nil
}

func readSalt(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrVaultNotFound
		}
		return nil, fmt.Errorf("vaultfile: failed to stat vault: %w", err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var salt []byte
	err = db.QueryRow("SELECT salt FROM vault_meta WHERE id = 1").Scan(&salt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVaultCorrupted
		}
		return nil, fmt.Errorf("vaultfile: failed to read vault salt: %w", err)
	}
	if len(salt) != crypto.SaltLength {
		return nil, ErrVaultCorrupted
	}
	return salt, nil
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vaultfile: failed to open vault database: %w", err)
	}

	// Single connection avoids "database is locked" under the session lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("vaultfile: failed to configure database: %w", err)
	}
	return db, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vault_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL,
			salt BLOB NOT NULL,
			key_check BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vault_groups (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			record BLOB NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vault_entries (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			record BLOB NOT NULL
		)
	`)
	return err
}

// compositeSecret combines the master password with the SHA-256 digest of the
// keyfile contents when a keyfile is supplied.
func compositeSecret(password, keyfile string) ([]byte, error) {
	secret := []byte(password)
	if keyfile == "" {
		return secret, nil
	}
	data, err := os.ReadFile(keyfile)
	if err != nil {
		return nil, fmt.Errorf("vaultfile: failed to read keyfile: %w", err)
	}
	digest := sha256.Sum256(data)
	return append(secret, digest[:]...), nil
}
