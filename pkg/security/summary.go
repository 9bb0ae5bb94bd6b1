package security

// EntryReport is the per-entry outcome of a security review.
type EntryReport struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Level     Level  `json:"level"`
	Label     string `json:"label"`
	Weak      bool   `json:"weak"`
	Duplicate bool   `json:"duplicate"`
	Pwned     bool   `json:"pwned"`
}

// Summary is the vault-wide roll-up of a security review.
type Summary struct {
	Total       int            `json:"total"`
	HealthScore float64        `json:"health_score"`
	Weak        int            `json:"weak"`
	Duplicates  int            `json:"duplicates"`
	Pwned       int            `json:"pwned"`
	ByLabel     map[string]int `json:"by_label"`
}

// Review scores every credential and folds in duplicate groups and known
// breached ids, returning per-entry reports and the vault summary.
func Review(creds []Credential, groups []DuplicateGroup, pwnedIDs map[string]bool) ([]EntryReport, Summary) {
	dupIDs := DuplicateIDs(groups)

	reports := make([]EntryReport, 0, len(creds))
	levels := make([]Level, 0, len(creds))
	summary := Summary{Total: len(creds), ByLabel: make(map[string]int)}

	for _, c := range creds {
		level := CheckStrength(c.Password)
		r := EntryReport{
			ID:        c.ID,
			Title:     c.Title,
			Level:     level,
			Label:     level.String(),
			Weak:      level.IsWeak(),
			Duplicate: dupIDs[c.ID],
			Pwned:     pwnedIDs[c.ID],
		}
		if r.Weak {
			summary.Weak++
		}
		if r.Duplicate {
			summary.Duplicates++
		}
		if r.Pwned {
			summary.Pwned++
		}
		summary.ByLabel[r.Label]++
		reports = append(reports, r)
		levels = append(levels, level)
	}

	summary.HealthScore = HealthScore(levels)
	return reports, summary
}
