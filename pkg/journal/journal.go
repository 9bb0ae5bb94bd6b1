// Package journal keeps a tamper-evident activity log of vault operations.
// Events form an HMAC chain: each record's MAC covers the previous record's
// MAC, so deleting or editing any line breaks verification of everything
// after it. Target names are stored as HMACs, never in plaintext.
package journal

import (
	"bufio"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// Vault operations recorded by the session.
const (
	OpVaultCreate = "vault.create"
	OpVaultOpen   = "vault.open"
	OpVaultClose  = "vault.close"
	OpVaultSave   = "vault.save"
)

// Result values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

const genesisHash = "genesis"

// ErrKeyNotBound indicates Record was called before BindKey.
var ErrKeyNotBound = errors.New("journal: signing key not bound")

// ErrChainBroken indicates verification found a tampered or missing record.
var ErrChainBroken = errors.New("journal: chain verification failed")

// Event is one journal record.
type Event struct {
	Version   int    `json:"v"`
	ID        string `json:"id"`
	Timestamp string `json:"ts"`
	Op        string `json:"op"`
	// Target is the HMAC of the affected path or entry id; the plaintext
	// never reaches the journal.
	Target string `json:"target,omitempty"`
	Result string `json:"result"`
	Chain  Chain  `json:"chain"`
}

// Chain links an event to its predecessor.
type Chain struct {
	Sequence int64  `json:"seq"`
	PrevHash string `json:"prev"`
	HMAC     string `json:"hmac"`
}

// Journal appends HMAC-chained events to a single JSONL file.
type Journal struct {
	path string

	mu       sync.Mutex
	key      []byte
	sequence int64
	prevHash string
}

// New returns a journal over the given file. No events can be recorded until
// BindKey supplies key material.
func New(path string) *Journal {
	return &Journal{path: path, prevHash: genesisHash}
}

// BindKey derives the signing key from vault key material via HKDF-SHA256
// and resumes the chain from the last record on disk.
func (j *Journal) BindKey(masterKey []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	reader := hkdf.New(sha256.New, masterKey, nil, []byte("projectkey-journal-v1"))
	key := make([]byte, 32)
	if _, err := reader.Read(key); err != nil {
		return fmt.Errorf("journal: failed to derive signing key: %w", err)
	}
	j.key = key

	last, seq, err := j.lastRecord()
	if err != nil {
		return err
	}
	j.sequence = seq
	j.prevHash = genesisHash
	if last != nil {
		j.sequence = last.Chain.Sequence
		j.prevHash = last.Chain.HMAC
	}
	return nil
}

// Unbind wipes the signing key; subsequent Record calls fail.
func (j *Journal) Unbind() {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.key {
		j.key[i] = 0
	}
	j.key = nil
}

// Record appends one event. The target is hashed before it is stored.
func (j *Journal) Record(op, target, result string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.key == nil {
		return ErrKeyNotBound
	}

	event := Event{
		Version:   1,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Op:        op,
		Result:    result,
	}
	if target != "" {
		event.Target = j.mac([]byte(target))
	}

	j.sequence++
	event.Chain.Sequence = j.sequence
	event.Chain.PrevHash = j.prevHash
	event.Chain.HMAC = j.mac(recordData(&event))

	if err := j.append(&event); err != nil {
		j.sequence--
		return err
	}
	j.prevHash = event.Chain.HMAC
	return nil
}

// Verify walks the whole journal and checks every record's MAC and chain
// link. It returns the number of valid records; a broken chain reports the
// count of records before the break alongside ErrChainBroken.
func (j *Journal) Verify() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.key == nil {
		return 0, ErrKeyNotBound
	}

	f, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("journal: failed to open %s: %w", j.path, err)
	}
	defer f.Close()

	count := 0
	prev := genesisHash
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return count, fmt.Errorf("%w: malformed record after %d events", ErrChainBroken, count)
		}
		if event.Chain.PrevHash != prev {
			return count, fmt.Errorf("%w: chain link broken at sequence %d", ErrChainBroken, event.Chain.Sequence)
		}
		want := event.Chain.HMAC
		event.Chain.HMAC = ""
		if j.mac(recordData(&event)) != want {
			return count, fmt.Errorf("%w: record tampered at sequence %d", ErrChainBroken, event.Chain.Sequence)
		}
		prev = want
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("journal: failed to read %s: %w", j.path, err)
	}
	return count, nil
}

func (j *Journal) mac(data []byte) string {
	m := hmac.New(sha256.New, j.key)
	m.Write(data)
	return hex.EncodeToString(m.Sum(nil))
}

// recordData is the canonical byte form covered by a record's MAC. The MAC
// field itself is excluded.
func recordData(e *Event) []byte {
	return []byte(fmt.Sprintf("%d|%s|%s|%s|%s|%s|%s",
		e.Chain.Sequence, e.Chain.PrevHash, e.ID, e.Timestamp, e.Op, e.Target, e.Result))
}

func (j *Journal) append(e *Event) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("journal: failed to create directory: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("journal: failed to encode event: %w", err)
	}

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("journal: failed to open %s: %w", j.path, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("journal: failed to append event: %w", err)
	}
	return f.Close()
}

// lastRecord returns the final event and total count, or nil on an empty or
// missing journal.
func (j *Journal) lastRecord() (*Event, int64, error) {
	f, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("journal: failed to open %s: %w", j.path, err)
	}
	defer f.Close()

	var (
		last  *Event
		count int64
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			// Resume after the last readable record; Verify reports the
			// damage explicitly.
			break
		}
		e := event
		last = &e
		count++
	}
	return last, count, nil
}
