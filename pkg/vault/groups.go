package vault

import (
	"strconv"
	"strings"
	"time"

	"github.com/cpadlab/project-key/pkg/vaultfile"
)

// Groups is the group repository of a session.
type Groups struct {
	s *Session
}

// DeleteOptions controls what happens to a deleted group's entries. MoveTo
// relocates them to the named group; Force erases them permanently. With
// neither set, deleting a populated group fails.
type DeleteOptions struct {
	MoveTo string
	Force  bool
}

// List returns snapshots of every group except the root container.
func (r *Groups) List() ([]Group, error) {
	var out []Group
	err := r.s.withRead(func(h *vaultfile.Handle) error {
		for _, g := range h.Groups() {
			if g.IsRoot() {
				continue
			}
			out = append(out, groupSnapshot(g))
		}
		return nil
	})
	return out, err
}

// Get returns the named group.
func (r *Groups) Get(name string) (Group, error) {
	var out Group
	err := r.s.withRead(func(h *vaultfile.Handle) error {
		g := h.FindGroup(name)
		if g == nil || g.IsRoot() {
			return ErrGroupNotFound
		}
		out = groupSnapshot(g)
		return nil
	})
	return out, err
}

// Create adds a new group with the given name and appearance.
func (r *Groups) Create(data Group) (Group, error) {
	name := strings.TrimSpace(data.Name)
	if name == "" || name == vaultfile.RootGroupName {
		return Group{}, ErrGroupReserved
	}

	var out Group
	err := r.s.withWrite(func(h *vaultfile.Handle) error {
		if h.FindGroup(name) != nil {
			return ErrGroupExists
		}
		g := h.AddGroup(name)
		applyGroupProps(g, data)
		out = groupSnapshot(g)
		return nil
	})
	return out, err
}

// Update renames a group and rewrites its appearance. Reserved groups keep
// their names but accept appearance changes.
func (r *Groups) Update(name string, data Group) (Group, error) {
	next := strings.TrimSpace(data.Name)
	var out Group
	err := r.s.withWrite(func(h *vaultfile.Handle) error {
		g := h.FindGroup(name)
		if g == nil || g.IsRoot() {
			return ErrGroupNotFound
		}
		if next != "" && next != g.Name {
			if r.s.isReserved(g.Name) {
				return ErrGroupReserved
			}
			if h.FindGroup(next) != nil {
				return ErrGroupExists
			}
			g.Name = next
		}
		applyGroupProps(g, data)
		g.Updated = time.Now().UTC()
		out = groupSnapshot(g)
		return nil
	})
	return out, err
}

// Delete removes the named group. Reserved groups cannot be deleted.
func (r *Groups) Delete(name string, opts DeleteOptions) error {
	if r.s.isReserved(name) {
		return ErrGroupReserved
	}

	return r.s.withWrite(func(h *vaultfile.Handle) error {
		g := h.FindGroup(name)
		if g == nil || g.IsRoot() {
			return ErrGroupNotFound
		}
		entries := g.Entries()
		switch {
		case len(entries) == 0:
		case opts.MoveTo != "":
			if opts.MoveTo == name {
				return ErrGroupSelfMove
			}
			target := h.FindGroup(opts.MoveTo)
			if target == nil {
				target = h.AddGroup(opts.MoveTo)
			}
			for _, e := range entries {
				h.MoveEntry(e, target)
			}
		case opts.Force:
			for _, e := range entries {
				h.DeleteEntry(e)
			}
		default:
			return ErrGroupNotEmpty
		}
		h.DeleteGroup(g)
		return nil
	})
}

// isReserved reports whether the name belongs to a group that must always
// exist: the root container, the default landing group and the recycle bin.
func (s *Session) isReserved(name string) bool {
	return name == vaultfile.RootGroupName ||
		name == s.names.Default ||
		name == s.names.RecycleBin
}

func applyGroupProps(g *vaultfile.Group, data Group) {
	if data.Icon != 0 {
		g.SetProp(vaultfile.PropIcon, strconv.Itoa(data.Icon))
	} else {
		g.DeleteProp(vaultfile.PropIcon)
	}
	if data.Color != "" {
		g.SetProp(vaultfile.PropColor, data.Color)
	} else {
		g.DeleteProp(vaultfile.PropColor)
	}
}
