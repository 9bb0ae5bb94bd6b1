package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cpadlab/project-key/pkg/security"
	"github.com/cpadlab/project-key/pkg/vault"
)

// EntryInfo is the password-free projection of an entry returned by every
// listing tool.
type EntryInfo struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Username  string   `json:"username,omitempty"`
	URL       string   `json:"url,omitempty"`
	Group     string   `json:"group"`
	Tags      []string `json:"tags,omitempty"`
	Favorite  bool     `json:"favorite"`
	HasNotes  bool     `json:"has_notes"`
	HasTOTP   bool     `json:"has_totp"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// EntryListInput narrows entry_list by group or tag.
type EntryListInput struct {
	Group string `json:"group,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// EntryListOutput is the entry_list result.
type EntryListOutput struct {
	Entries []EntryInfo `json:"entries"`
}

// EntrySearchInput is the entry_search filter.
type EntrySearchInput struct {
	Query string   `json:"query"`
	Group string   `json:"group,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// EntrySearchOutput is the entry_search result.
type EntrySearchOutput struct {
	Entries []EntryInfo `json:"entries"`
}

// EntryGetMaskedInput selects one entry by id.
type EntryGetMaskedInput struct {
	ID string `json:"id"`
}

// EntryGetMaskedOutput carries the metadata plus a masked password.
type EntryGetMaskedOutput struct {
	Entry          EntryInfo `json:"entry"`
	MaskedPassword string    `json:"masked_password"`
	PasswordLength int       `json:"password_length"`
	StrengthLabel  string    `json:"strength_label"`
}

// GroupInfo is one group in group_list output.
type GroupInfo struct {
	Name       string `json:"name"`
	EntryCount int    `json:"entry_count"`
	CreatedAt  string `json:"created_at"`
}

// GroupListInput has no parameters.
type GroupListInput struct{}

// GroupListOutput is the group_list result.
type GroupListOutput struct {
	Groups []GroupInfo `json:"groups"`
}

// SecuritySummaryInput has no parameters.
type SecuritySummaryInput struct{}

// SecuritySummaryOutput is the vault-wide security roll-up.
type SecuritySummaryOutput struct {
	Summary security.Summary `json:"summary"`
}

func entryInfo(e vault.Entry) EntryInfo {
	return EntryInfo{
		ID:        e.ID,
		Title:     e.Title,
		Username:  e.Username,
		URL:       e.URL,
		Group:     e.Group,
		Tags:      e.Tags,
		Favorite:  e.Favorite,
		HasNotes:  e.Notes != "",
		HasTOTP:   e.TOTPSeed != "",
		CreatedAt: e.Created.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: e.Updated.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) handleEntryList(_ context.Context, _ *mcp.CallToolRequest, input EntryListInput) (*mcp.CallToolResult, EntryListOutput, error) {
	var (
		entries []vault.Entry
		err     error
	)
	if input.Group != "" {
		entries, err = s.session.Entries().ListByGroup(input.Group)
	} else {
		entries, err = s.session.Entries().List()
	}
	if err != nil {
		return nil, EntryListOutput{}, err
	}

	out := EntryListOutput{Entries: []EntryInfo{}}
	for _, e := range entries {
		if input.Tag != "" && !e.HasTag(input.Tag) {
			continue
		}
		out.Entries = append(out.Entries, entryInfo(e))
	}
	return nil, out, nil
}

func (s *Server) handleEntrySearch(_ context.Context, _ *mcp.CallToolRequest, input EntrySearchInput) (*mcp.CallToolResult, EntrySearchOutput, error) {
	entries, err := s.session.Entries().Find(vault.FindFilter{
		Query: input.Query,
		Group: input.Group,
		Tags:  input.Tags,
	})
	if err != nil {
		return nil, EntrySearchOutput{}, err
	}

	out := EntrySearchOutput{Entries: []EntryInfo{}}
	for _, e := range entries {
		out.Entries = append(out.Entries, entryInfo(e))
	}
	return nil, out, nil
}

func (s *Server) handleEntryGetMasked(_ context.Context, _ *mcp.CallToolRequest, input EntryGetMaskedInput) (*mcp.CallToolResult, EntryGetMaskedOutput, error) {
	e, err := s.session.Entries().Get(input.ID)
	if err != nil {
		return nil, EntryGetMaskedOutput{}, err
	}

	return nil, EntryGetMaskedOutput{
		Entry:          entryInfo(e),
		MaskedPassword: maskValue(e.Password),
		PasswordLength: len(e.Password),
		StrengthLabel:  security.CheckStrength(e.Password).String(),
	}, nil
}

func (s *Server) handleGroupList(_ context.Context, _ *mcp.CallToolRequest, _ GroupListInput) (*mcp.CallToolResult, GroupListOutput, error) {
	groups, err := s.session.Groups().List()
	if err != nil {
		return nil, GroupListOutput{}, err
	}

	out := GroupListOutput{Groups: []GroupInfo{}}
	for _, g := range groups {
		out.Groups = append(out.Groups, GroupInfo{
			Name:       g.Name,
			EntryCount: g.EntryCount,
			CreatedAt:  g.Created.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return nil, out, nil
}

func (s *Server) handleSecuritySummary(ctx context.Context, _ *mcp.CallToolRequest, _ SecuritySummaryInput) (*mcp.CallToolResult, SecuritySummaryOutput, error) {
	_, summary, err := s.audit.Report(ctx)
	if err != nil {
		return nil, SecuritySummaryOutput{}, err
	}
	return nil, SecuritySummaryOutput{Summary: summary}, nil
}

// maskValue hides all but the last four characters. Short values are fully
// masked so the mask never narrows the search space below four characters.
func maskValue(v string) string {
	const visible = 4
	runes := []rune(v)
	if len(runes) <= visible {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", len(runes)-visible) + string(runes[len(runes)-visible:])
}
