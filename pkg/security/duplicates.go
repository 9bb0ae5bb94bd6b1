package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Credential pairs an entry id with its password for duplicate analysis.
// Titles ride along purely for reporting.
type Credential struct {
	ID       string
	Title    string
	Password string
}

// DuplicateGroup is a set of entries sharing the same password.
type DuplicateGroup struct {
	IDs    []string `json:"ids"`
	Titles []string `json:"titles"`
	Count  int      `json:"count"`
}

// Analyzer performs privacy-preserving duplicate detection. Passwords are
// compared through HMAC-SHA256 with a process-local random key, so the
// comparison table never contains recoverable password material.
type Analyzer struct {
	hmacKey []byte
}

// NewAnalyzer returns an analyzer with a fresh random comparison key.
func NewAnalyzer() (*Analyzer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &Analyzer{hmacKey: key}, nil
}

// FindDuplicates groups credentials by password, returning only groups with
// more than one member, largest first. Values are trimmed and normalized to
// Unicode NFC before comparison so visually identical passwords collide.
func (a *Analyzer) FindDuplicates(creds []Credential) []DuplicateGroup {
	byHash := make(map[string][]Credential)
	for _, c := range creds {
		value := norm.NFC.String(strings.TrimSpace(c.Password))
		if value == "" {
			continue
		}
		h := a.hash(value)
		byHash[h] = append(byHash[h], c)
	}

	var groups []DuplicateGroup
	for _, members := range byHash {
		if len(members) < 2 {
			continue
		}
		g := DuplicateGroup{Count: len(members)}
		for _, m := range members {
			g.IDs = append(g.IDs, m.ID)
			g.Titles = append(g.Titles, m.Title)
		}
		sort.Strings(g.IDs)
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].IDs[0] < groups[j].IDs[0]
	})
	return groups
}

// DuplicateIDs flattens the groups into the set of affected entry ids.
func DuplicateIDs(groups []DuplicateGroup) map[string]bool {
	out := make(map[string]bool)
	for _, g := range groups {
		for _, id := range g.IDs {
			out[id] = true
		}
	}
	return out
}

func (a *Analyzer) hash(value string) string {
	mac := hmac.New(sha256.New, a.hmacKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
