package vault

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/cpadlab/project-key/pkg/vaultfile"
)

// errNoop signals a write callback that changed nothing; withWrite callers
// translate it to success without triggering the backup-and-save protocol.
var errNoop = errors.New("vault: no changes")

// Entries is the entry repository of a session. Every method runs under the
// session's exclusive lock and every mutation persists through the save
// protocol before returning.
type Entries struct {
	s *Session
}

// FindFilter narrows an entry search. Query matches title, username, URL and
// notes case-insensitively; Group restricts to one group by exact name; Tags
// requires every listed tag to be present.
type FindFilter struct {
	Query string
	Group string
	Tags  []string
}

// List returns snapshots of every entry outside the recycle bin.
func (r *Entries) List() ([]Entry, error) {
	var out []Entry
	err := r.s.withRead(func(h *vaultfile.Handle) error {
		bin := h.FindGroup(r.s.names.RecycleBin)
		for _, e := range h.Entries() {
			if bin != nil && e.Group() == bin {
				continue
			}
			out = append(out, entrySnapshot(e))
		}
		return nil
	})
	return out, err
}

// ListByGroup returns snapshots of the entries in the named group.
func (r *Entries) ListByGroup(group string) ([]Entry, error) {
	var out []Entry
	err := r.s.withRead(func(h *vaultfile.Handle) error {
		g := h.FindGroup(group)
		if g == nil {
			return ErrGroupNotFound
		}
		for _, e := range g.Entries() {
			out = append(out, entrySnapshot(e))
		}
		return nil
	})
	return out, err
}

// ListRecycleBin returns snapshots of the soft-deleted entries.
func (r *Entries) ListRecycleBin() ([]Entry, error) {
	return r.ListByGroup(r.s.names.RecycleBin)
}

// Find returns the entries matching the filter, excluding the recycle bin.
func (r *Entries) Find(filter FindFilter) ([]Entry, error) {
	fold := cases.Fold()
	query := fold.String(filter.Query)

	var out []Entry
	err := r.s.withRead(func(h *vaultfile.Handle) error {
		var scope *vaultfile.Group
		if filter.Group != "" {
			scope = h.FindGroup(filter.Group)
			if scope == nil {
				return ErrGroupNotFound
			}
		}
		bin := h.FindGroup(r.s.names.RecycleBin)
		for _, e := range h.Entries() {
			if bin != nil && e.Group() == bin {
				continue
			}
			if scope != nil && e.Group() != scope {
				continue
			}
			snap := entrySnapshot(e)
			if query != "" && !matchesQuery(fold, snap, query) {
				continue
			}
			if !hasAllTags(snap, filter.Tags) {
				continue
			}
			out = append(out, snap)
		}
		return nil
	})
	return out, err
}

func matchesQuery(fold cases.Caser, e Entry, query string) bool {
	for _, field := range []string{e.Title, e.Username, e.URL, e.Notes} {
		if strings.Contains(fold.String(field), query) {
			return true
		}
	}
	return false
}

func hasAllTags(e Entry, tags []string) bool {
	for _, t := range tags {
		if !e.HasTag(t) {
			return false
		}
	}
	return true
}

// Get returns the entry with the given id.
func (r *Entries) Get(id string) (Entry, error) {
	var out Entry
	err := r.s.withRead(func(h *vaultfile.Handle) error {
		e := h.FindEntry(id)
		if e == nil {
			return ErrEntryNotFound
		}
		out = entrySnapshot(e)
		return nil
	})
	return out, err
}

// Add creates a new entry from the snapshot and returns the stored result.
// An empty group name lands the entry in the default group; a missing group
// is created on the fly.
func (r *Entries) Add(data Entry) (Entry, error) {
	if err := validateEntry(data); err != nil {
		return Entry{}, err
	}

	var out Entry
	err := r.s.withWrite(func(h *vaultfile.Handle) error {
		g := r.resolveGroup(h, data.Group)
		e := h.AddEntry(g, data.Title, data.Username, data.Password)
		applyEntry(e, data)
		out = entrySnapshot(e)
		return nil
	})
	return out, err
}

// Update overwrites every field of the entry from the snapshot; a changed
// group name moves the entry, creating the destination when needed.
func (r *Entries) Update(id string, data Entry) (Entry, error) {
	if err := validateEntry(data); err != nil {
		return Entry{}, err
	}

	var out Entry
	err := r.s.withWrite(func(h *vaultfile.Handle) error {
		e := h.FindEntry(id)
		if e == nil {
			return ErrEntryNotFound
		}
		applyEntry(e, data)
		if data.Group != "" && (e.Group() == nil || e.Group().Name != data.Group) {
			h.MoveEntry(e, r.resolveGroup(h, data.Group))
		}
		out = entrySnapshot(e)
		return nil
	})
	return out, err
}

// Delete removes the entry. A soft delete stamps the deletion time and moves
// the entry to the recycle bin; deleting an entry already in the bin, or
// passing permanent, erases it outright.
func (r *Entries) Delete(id string, permanent bool) error {
	return r.s.withWrite(func(h *vaultfile.Handle) error {
		e := h.FindEntry(id)
		if e == nil {
			return ErrEntryNotFound
		}
		bin := r.resolveGroup(h, r.s.names.RecycleBin)
		if permanent || e.Group() == bin {
			h.DeleteEntry(e)
			return nil
		}
		e.SetProp(vaultfile.PropDeletedAt, time.Now().UTC().Format(time.RFC3339))
		h.MoveEntry(e, bin)
		return nil
	})
}

// Restore moves a recycled entry back out of the bin, clearing its deletion
// stamp. An empty group restores to the default group.
func (r *Entries) Restore(id, group string) (Entry, error) {
	var out Entry
	err := r.s.withWrite(func(h *vaultfile.Handle) error {
		e := h.FindEntry(id)
		if e == nil {
			return ErrEntryNotFound
		}
		e.DeleteProp(vaultfile.PropDeletedAt)
		h.MoveEntry(e, r.resolveGroup(h, group))
		e.Touch()
		out = entrySnapshot(e)
		return nil
	})
	return out, err
}

// Move places the entry in the named group, creating it when needed.
func (r *Entries) Move(id, group string) error {
	return r.s.withWrite(func(h *vaultfile.Handle) error {
		e := h.FindEntry(id)
		if e == nil {
			return ErrEntryNotFound
		}
		h.MoveEntry(e, r.resolveGroup(h, group))
		e.Touch()
		return nil
	})
}

// SetTags replaces an entry's tag set. Used by the audit loops to publish
// findings without rewriting the whole entry.
func (r *Entries) SetTags(id string, tags []string) error {
	err := r.s.withWrite(func(h *vaultfile.Handle) error {
		e := h.FindEntry(id)
		if e == nil {
			return ErrEntryNotFound
		}
		next := uniqueTags(tags)
		if equalTags(e.Tags, next) {
			return errNoop
		}
		e.Tags = next
		e.Touch()
		return nil
	})
	if errors.Is(err, errNoop) {
		return nil
	}
	return err
}

// SetFlagTag adds or removes a single tag, leaving the rest of the tag set
// untouched. The read-modify-write happens under the session lock, so
// concurrent flaggers never clobber each other. Unchanged sets skip the save
// protocol entirely.
func (r *Entries) SetFlagTag(id, tag string, present bool) error {
	err := r.s.withWrite(func(h *vaultfile.Handle) error {
		e := h.FindEntry(id)
		if e == nil {
			return ErrEntryNotFound
		}
		has := false
		for _, t := range e.Tags {
			if t == tag {
				has = true
				break
			}
		}
		if has == present {
			return errNoop
		}
		if present {
			e.Tags = append(e.Tags, tag)
		} else {
			next := e.Tags[:0]
			for _, t := range e.Tags {
				if t != tag {
					next = append(next, t)
				}
			}
			e.Tags = next
		}
		e.Touch()
		return nil
	})
	if errors.Is(err, errNoop) {
		return nil
	}
	return err
}

// PurgeExpired permanently deletes recycled entries whose deletion stamp is
// older than the retention window, returning how many were removed.
func (r *Entries) PurgeExpired(retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	removed := 0
	err := r.s.withWrite(func(h *vaultfile.Handle) error {
		bin := h.FindGroup(r.s.names.RecycleBin)
		if bin == nil {
			return errNoop
		}
		for _, e := range bin.Entries() {
			stamp, ok := e.Prop(vaultfile.PropDeletedAt)
			if !ok {
				continue
			}
			ts, err := time.Parse(time.RFC3339, stamp)
			if err != nil || ts.After(cutoff) {
				continue
			}
			h.DeleteEntry(e)
			removed++
		}
		if removed == 0 {
			return errNoop
		}
		return nil
	})
	if errors.Is(err, errNoop) {
		err = nil
	}
	return removed, err
}

// resolveGroup maps an entry's group name to a live group, creating it when
// absent. Empty and root both resolve to the default landing group.
func (r *Entries) resolveGroup(h *vaultfile.Handle, name string) *vaultfile.Group {
	if name == "" || name == vaultfile.RootGroupName {
		name = r.s.names.Default
	}
	if g := h.FindGroup(name); g != nil {
		return g
	}
	return h.AddGroup(name)
}

func validateEntry(data Entry) error {
	if strings.TrimSpace(data.Title) == "" {
		return ErrTitleRequired
	}
	if data.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
