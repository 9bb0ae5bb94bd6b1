// Package mcp implements the MCP (Model Context Protocol) server over an
// open vault. Every tool is read-only and none of them ever returns a
// plaintext password; agents see metadata, masked values and security
// findings only.
package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/cpadlab/project-key/pkg/auditor"
	"github.com/cpadlab/project-key/pkg/vault"
)

// PasswordEnv is the environment variable the server reads the master
// password from. It is unset immediately after reading.
const PasswordEnv = "PROJECTKEY_PASSWORD"

// ServerOptions configures the MCP server.
type ServerOptions struct {
	// VaultPath is the vault file to open.
	VaultPath string

	// Password is the master password. When empty the server reads
	// PasswordEnv instead.
	Password string

	// Keyfile is the optional second credential factor.
	Keyfile string

	// Version is reported in the MCP handshake.
	Version string
}

// Server exposes the vault through MCP over stdio.
type Server struct {
	server  *mcp.Server
	session *vault.Session
	audit   *auditor.Scheduler
	log     *zap.Logger
}

// NewServer opens the vault and builds the tool surface. The session is
// owned by the server and closed when Run returns.
func NewServer(opts ServerOptions, session *vault.Session, audit *auditor.Scheduler, log *zap.Logger) (*Server, error) {
	password := opts.Password
	if password == "" {
		password = os.Getenv(PasswordEnv)
		os.Unsetenv(PasswordEnv)
	}
	if password == "" {
		return nil, fmt.Errorf("mcp: no password provided: set %s", PasswordEnv)
	}

	if err := session.Open(opts.VaultPath, password, opts.Keyfile); err != nil {
		return nil, fmt.Errorf("mcp: failed to open vault: %w", err)
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "project-key",
			Version: opts.Version,
		},
		nil,
	)

	s := &Server{
		server:  mcpServer,
		session: session,
		audit:   audit,
		log:     log,
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_list",
		Description: "List vault entries with metadata: title, username, url, group, tags and security flags. Does NOT return passwords.",
	}, s.handleEntryList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_search",
		Description: "Search entries by a case-insensitive query over title, username, url and notes, optionally narrowed by group and tags. Does NOT return passwords.",
	}, s.handleEntrySearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "entry_get_masked",
		Description: "Get one entry with a masked password (e.g. '****WXYZ') for verifying format without exposing the value.",
	}, s.handleEntryGetMasked)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "group_list",
		Description: "List vault groups with entry counts.",
	}, s.handleGroupList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "security_summary",
		Description: "Summarize vault security health: strength distribution, weak, duplicate and breached counts. Does NOT identify passwords.",
	}, s.handleSecuritySummary)
}

// Run serves MCP over stdio until the context is canceled, then closes the
// session.
func (s *Server) Run(ctx context.Context) error {
	defer s.session.Close()
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close locks the vault.
func (s *Server) Close() error {
	s.session.Close()
	return nil
}
