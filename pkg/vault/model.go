// Package vault owns the active vault session and the entry/group
// repositories built on top of it. All mutations funnel through the session's
// exclusive lock and the pre-save backup rotation, so foreground requests and
// the background audit loops never race on the decrypted handle or the file
// on disk.
package vault

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cpadlab/project-key/pkg/vaultfile"
)

// Names holds the reserved group names of a vault. The default landing group
// receives entries with no explicit group; the recycle bin holds soft-deleted
// entries pending retention expiry.
type Names struct {
	Default    string
	RecycleBin string
}

// DefaultNames returns the stock reserved group names.
func DefaultNames() Names {
	return Names{Default: "Personal", RecycleBin: "Recycle Bin"}
}

// Entry is a transient snapshot of a vault entry. Mutations must go back
// through the repository; editing a snapshot changes nothing by itself.
type Entry struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Username  string     `json:"username,omitempty"`
	Password  string     `json:"password"`
	URL       string     `json:"url,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Group     string     `json:"group"`
	Icon      int        `json:"icon,omitempty"`
	Color     string     `json:"color,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	Favorite  bool       `json:"is_favorite"`
	TOTPSeed  string     `json:"totp_seed,omitempty"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	Created   time.Time  `json:"created_at"`
	Updated   time.Time  `json:"updated_at"`
}

// HasTag reports whether the entry carries the given tag.
func (e Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Group is a transient snapshot of a vault group.
type Group struct {
	Name       string    `json:"name"`
	Icon       int       `json:"icon,omitempty"`
	Color      string    `json:"color,omitempty"`
	EntryCount int       `json:"entry_count"`
	Created    time.Time `json:"created_at"`
	Updated    time.Time `json:"updated_at"`
}

// entrySnapshot copies a live vault entry into a detached model.
func entrySnapshot(e *vaultfile.Entry) Entry {
	out := Entry{
		ID:       e.ID,
		Title:    e.Title,
		Username: e.Username,
		Password: e.Password,
		URL:      e.URL,
		Notes:    e.Notes,
		Tags:     append([]string(nil), e.Tags...),
		Created:  e.Created,
		Updated:  e.Updated,
	}
	if g := e.Group(); g != nil {
		out.Group = g.Name
	}
	if v, ok := e.Prop(vaultfile.PropIcon); ok {
		if icon, err := strconv.Atoi(v); err == nil {
			out.Icon = icon
		}
	}
	if v, ok := e.Prop(vaultfile.PropColor); ok {
		out.Color = v
	}
	if v, ok := e.Prop(vaultfile.PropFavorite); ok {
		out.Favorite = v == "true"
	}
	if v, ok := e.Prop(vaultfile.PropTOTPSeed); ok {
		out.TOTPSeed = v
	}
	if v, ok := e.Prop(vaultfile.PropDeletedAt); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			out.DeletedAt = &ts
		}
	}
	return out
}

// applyEntry overwrites every scalar field of a live entry from the snapshot.
// Group membership and the deleted-at stamp are managed separately.
func applyEntry(e *vaultfile.Entry, data Entry) {
	e.Title = data.Title
	e.Username = data.Username
	e.Password = data.Password
	e.URL = data.URL
	e.Notes = data.Notes
	e.Tags = uniqueTags(data.Tags)

	if data.Icon != 0 {
		e.SetProp(vaultfile.PropIcon, strconv.Itoa(data.Icon))
	} else {
		e.DeleteProp(vaultfile.PropIcon)
	}
	if data.Color != "" {
		e.SetProp(vaultfile.PropColor, data.Color)
	} else {
		e.DeleteProp(vaultfile.PropColor)
	}
	if data.TOTPSeed != "" {
		e.SetProp(vaultfile.PropTOTPSeed, data.TOTPSeed)
	} else {
		e.DeleteProp(vaultfile.PropTOTPSeed)
	}
	e.SetProp(vaultfile.PropFavorite, strconv.FormatBool(data.Favorite))
	e.Touch()
}

// uniqueTags strips duplicates and empty tags, preserving first-seen order.
func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func groupSnapshot(g *vaultfile.Group) Group {
	out := Group{
		Name:       g.Name,
		EntryCount: len(g.Entries()),
		Created:    g.Created,
		Updated:    g.Updated,
	}
	if v, ok := g.Prop(vaultfile.PropIcon); ok {
		if icon, err := strconv.Atoi(v); err == nil {
			out.Icon = icon
		}
	}
	if v, ok := g.Prop(vaultfile.PropColor); ok {
		out.Color = v
	}
	return out
}

// SortField selects the attribute entries and groups are ordered by.
type SortField string

const (
	SortByName    SortField = "name"
	SortByCreated SortField = "created_at"
	SortByUpdated SortField = "updated_at"
)

// SortEntries orders entries in place, ascending unless desc is set. The
// name field sorts by title, case-insensitively; a missing timestamp sorts
// as the minimum value.
func SortEntries(entries []Entry, field SortField, desc bool) {
	less := func(i, j int) bool {
		switch field {
		case SortByCreated:
			return entries[i].Created.Before(entries[j].Created)
		case SortByUpdated:
			return entries[i].Updated.Before(entries[j].Updated)
		default:
			return strings.ToLower(entries[i].Title) < strings.ToLower(entries[j].Title)
		}
	}
	if desc {
		sort.SliceStable(entries, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(entries, less)
}

// SortGroups orders groups in place, ascending unless desc is set.
func SortGroups(groups []Group, field SortField, desc bool) {
	less := func(i, j int) bool {
		switch field {
		case SortByCreated:
			return groups[i].Created.Before(groups[j].Created)
		case SortByUpdated:
			return groups[i].Updated.Before(groups[j].Updated)
		default:
			return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name)
		}
	}
	if desc {
		sort.SliceStable(groups, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.SliceStable(groups, less)
}
