package vault

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cpadlab/project-key/pkg/backup"
	"github.com/cpadlab/project-key/pkg/crypto"
	"github.com/cpadlab/project-key/pkg/history"
	"github.com/cpadlab/project-key/pkg/journal"
	"github.com/cpadlab/project-key/pkg/vaultfile"
)

// Session owns the single active decrypted vault of the process: the live
// handle, the path it came from, and the cached transformed key that allows
// reopening it without the master password. One exclusive lock serializes
// open/close/reopen and every read-modify-write-save sequence against the
// three audit loops and foreground callers.
//
// Opening a vault while another is active replaces and closes the previous
// one; the old key material is wiped before the new session takes effect.
type Session struct {
	mu         sync.Mutex
	log        *zap.Logger
	rotator    *backup.Rotator
	history    *history.Store
	journalDir string
	journal    *journal.Journal
	names      Names

	activePath string
	cachedKey  []byte
	handle     *vaultfile.Handle
}

// NewSession returns an empty session. The history store may be nil when no
// recent-paths tracking is wanted.
func NewSession(rotator *backup.Rotator, hist *history.Store, log *zap.Logger) *Session {
	return NewSessionWithNames(rotator, hist, DefaultNames(), log)
}

// NewSessionWithNames returns a session with custom reserved group names.
func NewSessionWithNames(rotator *backup.Rotator, hist *history.Store, names Names, log *zap.Logger) *Session {
	return &Session{log: log, rotator: rotator, history: hist, names: names}
}

// Names returns the reserved group names of this session.
func (s *Session) Names() Names { return s.names }

// SetJournalDir enables the activity journal. Each vault gets its own
// journal file under dir, signed with a key derived from that vault's key
// material; recording failures are logged and never block vault work.
func (s *Session) SetJournalDir(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.journalDir = dir
}

// Journal returns the journal of the active vault, nil when journaling is
// disabled or no vault is open.
func (s *Session) Journal() *journal.Journal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journal
}

// record writes a journal event when a journal is attached. Caller holds
// the lock.
func (s *Session) record(op, target, result string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(op, target, result); err != nil {
		s.log.Warn("failed to record journal event", zap.String("op", op), zap.Error(err))
	}
}

// Entries returns the entry repository bound to this session.
func (s *Session) Entries() *Entries { return &Entries{s: s} }

// Groups returns the group repository bound to this session.
func (s *Session) Groups() *Groups { return &Groups{s: s} }

// Create initializes a new vault file at path and activates it, replacing
// any previously open vault. On failure the session state is unchanged.
func (s *Session) Create(path, password, keyfile string) error {
	h, err := vaultfile.Create(path, password, keyfile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activate(h, journal.OpVaultCreate)
	s.log.Info("vault created", zap.String("path", path))
	return nil
}

// Open decrypts the vault at path and activates it, replacing any previously
// open vault. On failure the session state is unchanged.
func (s *Session) Open(path, password, keyfile string) error {
	h, err := vaultfile.Open(path, password, keyfile)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.activate(h, journal.OpVaultOpen)
	s.log.Info("vault opened", zap.String("path", path))
	return nil
}

// activate installs a freshly opened handle, wiping any previous session
// first. Caller holds the lock.
func (s *Session) activate(h *vaultfile.Handle, op string) {
	s.clearLocked()
	s.handle = h
	s.activePath = h.Path()
	s.cachedKey = h.TransformedKey()
	s.ensureReserved(h)

	if s.history != nil {
		if err := s.history.Add(s.activePath); err != nil {
			s.log.Warn("failed to update vault history", zap.Error(err))
		}
	}
	if s.journalDir != "" {
		j := journal.New(journalPath(s.journalDir, s.activePath))
		if err := j.BindKey(s.cachedKey); err != nil {
			s.log.Warn("failed to bind journal key", zap.Error(err))
		} else {
			s.journal = j
		}
	}
	s.record(op, s.activePath, journal.ResultSuccess)
}

// ensureReserved creates the default and recycle-bin groups when the vault
// is missing them and persists the result. Reserved-group rules assume both
// exist from the first operation on a vault. Caller holds the lock.
func (s *Session) ensureReserved(h *vaultfile.Handle) {
	created := false
	for _, name := range []string{s.names.Default, s.names.RecycleBin} {
		if h.FindGroup(name) == nil {
			h.AddGroup(name)
			created = true
		}
	}
	if !created {
		return
	}
	if err := h.Save(); err != nil {
		s.log.Warn("failed to persist reserved groups", zap.Error(err))
	}
}

// journalPath names the per-vault journal file after the vault file stem.
func journalPath(dir, vaultPath string) string {
	stem := strings.TrimSuffix(filepath.Base(vaultPath), filepath.Ext(vaultPath))
	return filepath.Join(dir, stem+".journal.jsonl")
}

// Close drops the handle and purges the cached key and active path. Safe to
// call when already closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePath != "" {
		s.log.Info("vault closed", zap.String("path", s.activePath))
	}
	s.clearLocked()
}

func (s *Session) clearLocked() {
	if s.activePath != "" {
		s.record(journal.OpVaultClose, s.activePath, journal.ResultSuccess)
	}
	if s.journal != nil {
		s.journal.Unbind()
		s.journal = nil
	}
	crypto.SecureWipe(s.cachedKey)
	s.cachedKey = nil
	s.handle = nil
	s.activePath = ""
}

// Active reports whether a vault is logically open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePath != "" && s.cachedKey != nil
}

// Path returns the active vault path, empty when closed.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePath
}

// getActive returns the live handle, silently reopening it from the cached
// key when a previous holder dropped it. Reconstruction failure clears the
// session. Caller holds the lock.
func (s *Session) getActive() (*vaultfile.Handle, error) {
	if s.handle != nil {
		return s.handle, nil
	}
	if s.activePath == "" || s.cachedKey == nil {
		return nil, ErrNoActiveSession
	}

	h, err := vaultfile.OpenWithKey(s.activePath, s.cachedKey)
	if err != nil {
		s.log.Error("silent vault reopen failed, clearing session",
			zap.String("path", s.activePath), zap.Error(err))
		s.clearLocked()
		return nil, ErrNoActiveSession
	}
	s.log.Debug("vault handle reconstructed from cached key", zap.String("path", s.activePath))
	s.handle = h
	s.ensureReserved(h)
	return h, nil
}

// withRead runs fn against the live handle under the session lock.
func (s *Session) withRead(fn func(h *vaultfile.Handle) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.getActive()
	if err != nil {
		return err
	}
	return fn(h)
}

// withWrite runs fn against the live handle and, when fn succeeds, performs
// the save protocol before releasing the lock: rotate a backup of the vault
// file (best-effort), then persist the handle. Mutation, backup and save form
// one critical section.
func (s *Session) withWrite(fn func(h *vaultfile.Handle) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.getActive()
	if err != nil {
		return err
	}
	if err := fn(h); err != nil {
		return err
	}

	if s.rotator != nil {
		s.rotator.Rotate(s.activePath)
	}
	if err := h.Save(); err != nil {
		s.record(journal.OpVaultSave, s.activePath, journal.ResultError)
		return fmt.Errorf("vault: failed to persist vault: %w", err)
	}
	s.record(journal.OpVaultSave, s.activePath, journal.ResultSuccess)
	return nil
}

// dropHandle releases the in-memory handle while keeping the session
// logically open; the next access reconstructs it from the cached key.
func (s *Session) dropHandle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = nil
}
