package vaultfile

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Well-known custom property keys. The property bag carries the attributes
// the KDBX-style schema has no native field for.
const (
	PropColor     = "color"
	PropIcon      = "icon"
	PropFavorite  = "is_favorite"
	PropDeletedAt = "deleted_at"
	PropTOTPSeed  = "totp_seed"
)

// Handle is the live decrypted vault. It owns every group and entry and is
// only valid while its session keeps it; all access must be serialized by the
// caller.
type Handle struct {
	path   string
	key    []byte
	root   *Group
	groups []*Group
}

// Group is a named flat container of entries. The root group is the reserved
// top-level container; all other groups live directly under it.
type Group struct {
	Name    string
	Created time.Time
	Updated time.Time

	entries []*Entry
	props   map[string]string
}

// Entry is a single credential record. Created/Updated are owned by this
// layer; mutators must call Touch.
type Entry struct {
	ID       string
	Title    string
	Username string
	Password string
	URL      string
	Notes    string
	Tags     []string
	Created  time.Time
	Updated  time.Time

	group *Group
	props map[string]string
}

func newHandle(path string, key []byte) *Handle {
	now := time.Now().UTC()
	root := &Group{Name: RootGroupName, Created: now, Updated: now, props: make(map[string]string)}
	return &Handle{
		path:   path,
		key:    key,
		root:   root,
		groups: []*Group{root},
	}
}

// Path returns the filesystem location of the vault file.
func (h *Handle) Path() string { return h.path }

// TransformedKey returns a copy of the derived key that unlocks this vault.
// The caller owns the copy and must wipe it when done.
func (h *Handle) TransformedKey() []byte {
	key := make([]byte, len(h.key))
	copy(key, h.key)
	return key
}

// Root returns the reserved root container group.
func (h *Handle) Root() *Group { return h.root }

// Groups returns every group including the root container.
func (h *Handle) Groups() []*Group {
	out := make([]*Group, len(h.groups))
	copy(out, h.groups)
	return out
}

// FindGroup returns the group with the exact given name, or nil.
func (h *Handle) FindGroup(name string) *Group {
	for _, g := range h.groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// AddGroup creates a new empty group under the root container. Group names
// are a flat namespace; the caller must check FindGroup first to enforce
// uniqueness.
func (h *Handle) AddGroup(name string) *Group {
	now := time.Now().UTC()
	g := &Group{Name: name, Created: now, Updated: now, props: make(map[string]string)}
	h.groups = append(h.groups, g)
	return g
}

// DeleteGroup removes a group and every entry it contains. The root group
// cannot be removed.
func (h *Handle) DeleteGroup(g *Group) {
	if g == h.root {
		return
	}
	for i, have := range h.groups {
		if have == g {
			h.groups = append(h.groups[:i], h.groups[i+1:]...)
			break
		}
	}
	g.entries = nil
}

// Entries returns every entry in the vault across all groups.
func (h *Handle) Entries() []*Entry {
	var out []*Entry
	for _, g := range h.groups {
		out = append(out, g.entries...)
	}
	return out
}

// FindEntry returns the entry with the given id, or nil.
func (h *Handle) FindEntry(id string) *Entry {
	for _, g := range h.groups {
		for _, e := range g.entries {
			if e.ID == id {
				return e
			}
		}
	}
	return nil
}

// AddEntry creates an entry in the given group, assigning its stable id and
// timestamps.
func (h *Handle) AddEntry(g *Group, title, username, password string) *Entry {
	now := time.Now().UTC()
	e := &Entry{
		ID:       uuid.NewString(),
		Title:    title,
		Username: username,
		Password: password,
		Created:  now,
		Updated:  now,
		group:    g,
		props:    make(map[string]string),
	}
	g.entries = append(g.entries, e)
	g.Updated = now
	return e
}

// MoveEntry reparents an entry into the target group.
func (h *Handle) MoveEntry(e *Entry, target *Group) {
	if e.group == target {
		return
	}
	if e.group != nil {
		e.group.removeEntry(e)
	}
	e.group = target
	target.entries = append(target.entries, e)
	e.Touch()
}

// DeleteEntry removes an entry from the vault permanently.
func (h *Handle) DeleteEntry(e *Entry) {
	if e.group != nil {
		e.group.removeEntry(e)
		e.group = nil
	}
}

func (g *Group) removeEntry(e *Entry) {
	for i, have := range g.entries {
		if have == e {
			g.entries = append(g.entries[:i], g.entries[i+1:]...)
			return
		}
	}
}

// Entries returns the entries directly contained in the group.
func (g *Group) Entries() []*Entry {
	out := make([]*Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// IsRoot reports whether the group is the reserved root container.
func (g *Group) IsRoot() bool { return g.Name == RootGroupName }

// Prop returns a custom property value.
func (g *Group) Prop(key string) (string, bool) {
	v, ok := g.props[key]
	return v, ok
}

// SetProp stores a custom property on the group.
func (g *Group) SetProp(key, value string) {
	g.props[key] = value
	g.Updated = time.Now().UTC()
}

// DeleteProp removes a custom property from the group.
func (g *Group) DeleteProp(key string) {
	delete(g.props, key)
	g.Updated = time.Now().UTC()
}

// Group returns the group currently containing the entry, or nil when the
// entry has been permanently deleted.
func (e *Entry) Group() *Group { return e.group }

// Touch updates the entry's modification timestamp.
func (e *Entry) Touch() { e.Updated = time.Now().UTC() }

// Prop returns a custom property value.
func (e *Entry) Prop(key string) (string, bool) {
	v, ok := e.props[key]
	return v, ok
}

// SetProp stores a custom property on the entry.
func (e *Entry) SetProp(key, value string) {
	e.props[key] = value
}

// DeleteProp removes a custom property from the entry.
func (e *Entry) DeleteProp(key string) {
	delete(e.props, key)
}

// Props returns a copy of the entry's custom property bag.
func (e *Entry) Props() map[string]string {
	out := make(map[string]string, len(e.props))
	for k, v := range e.props {
		out[k] = v
	}
	return out
}

// GenerateKeyfile writes a new random keyfile (64 bytes, hex encoded) that
// can be combined with the master password when creating or opening a vault.
func GenerateKeyfile(path string) error {
	raw := make([]byte, 64)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("vaultfile: failed to generate keyfile material: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(raw)), FileMode); err != nil {
		return fmt.Errorf("vaultfile: failed to write keyfile: %w", err)
	}
	return nil
}
