// Package export serializes vault snapshots to CSV or JSON. Exports are
// plaintext; callers own the decision to produce one.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cpadlab/project-key/pkg/vault"
)

// Format selects the output serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

const fileMode = 0o600

// ErrUnknownFormat indicates an unsupported format string.
var ErrUnknownFormat = fmt.Errorf("export: unknown format")

// ParseFormat maps a user-supplied string to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Document is the JSON export envelope.
type Document struct {
	ExportedAt time.Time     `json:"exported_at"`
	Groups     []vault.Group `json:"groups,omitempty"`
	Entries    []vault.Entry `json:"entries"`
}

// Write serializes the snapshot in the given format.
func Write(w io.Writer, format Format, groups []vault.Group, entries []vault.Entry) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, entries)
	case FormatJSON:
		return writeJSON(w, groups, entries)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ToFile writes the snapshot to path with owner-only permissions.
func ToFile(path string, format Format, groups []vault.Group, entries []vault.Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("export: failed to create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("export: failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := Write(f, format, groups, entries); err != nil {
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, entries []vault.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "username", "password", "url", "notes", "group", "tags"}); err != nil {
		return fmt.Errorf("export: failed to write header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.ID, e.Title, e.Username, e.Password, e.URL, e.Notes, e.Group,
			strings.Join(e.Tags, ";"),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("export: failed to write entry %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, groups []vault.Group, entries []vault.Entry) error {
	doc := Document{
		ExportedAt: time.Now().UTC(),
		Groups:     groups,
		Entries:    entries,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: failed to encode document: %w", err)
	}
	return nil
}
