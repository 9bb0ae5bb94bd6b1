// Package main provides the projectkey CLI commands.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/cpadlab/project-key/internal/config"
	"github.com/cpadlab/project-key/internal/logging"
	"github.com/cpadlab/project-key/pkg/backup"
	"github.com/cpadlab/project-key/pkg/history"
	"github.com/cpadlab/project-key/pkg/vault"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagConfigDir string
	flagVault     string
	flagKeyfile   string
	flagVerbose   bool

	cfg     config.Config
	log     *zap.Logger
	session *vault.Session
)

var rootCmd = &cobra.Command{
	Use:   "projectkey",
	Short: "projectkey is a local encrypted credential vault with built-in security audits",
	Long: `A local credential vault manager.

Entries are stored in a single encrypted file. Every save rotates a backup
copy, and background audits flag weak, duplicate and breached passwords.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := flagConfigDir
		if dir == "" {
			var err error
			dir, err = config.Dir()
			if err != nil {
				return err
			}
		}

		var err error
		cfg, err = config.Load(dir)
		if err != nil {
			return err
		}
		if flagVault != "" {
			cfg.VaultPath = flagVault
		}

		log, err = logging.New(cfg.Logging.Level, flagVerbose)
		if err != nil {
			return err
		}

		rotator := backup.NewRotator(cfg.Backups.Dir, cfg.Backups.MaxCount, log)
		hist := history.NewStore(config.HistoryFile(dir))
		names := vault.Names{Default: cfg.Groups.Default, RecycleBin: cfg.Groups.RecycleBin}
		session = vault.NewSessionWithNames(rotator, hist, names, log)
		session.SetJournalDir(config.JournalDir(dir))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if session != nil {
			session.Close()
		}
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "Configuration directory (default ~/.projectkey)")
	rootCmd.PersistentFlags().StringVar(&flagVault, "vault", "", "Vault file path (default from configuration)")
	rootCmd.PersistentFlags().StringVar(&flagKeyfile, "keyfile", "", "Keyfile path for two-factor vault credentials")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = version
}

// openVault prompts for the master password and opens the configured vault.
func openVault() error {
	password, err := promptPassword("Master password")
	if err != nil {
		return err
	}
	if err := session.Open(cfg.VaultPath, password, flagKeyfile); err != nil {
		return fmt.Errorf("failed to open vault %s: %w", cfg.VaultPath, err)
	}

	// Successful activity refreshes the emergency heartbeat. Failures are
	// logged only; they must never block foreground work.
	if cfg.Emergency.Enabled {
		if err := newHeartbeat().Update(); err != nil {
			log.Warn("failed to update emergency heartbeat", zap.Error(err))
		}
	}
	return nil
}

// promptPassword reads a password without echo, falling back to a plain
// line read when stdin is not a terminal (piped input).
func promptPassword(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	return readLine()
}

// promptNewPassword reads and confirms a password for vault creation.
func promptNewPassword() (string, error) {
	first, err := promptPassword("New master password")
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", fmt.Errorf("master password must not be empty")
	}
	second, err := promptPassword("Confirm master password")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	return first, nil
}

func readLine() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

// configDir returns the effective configuration directory.
func configDir() (string, error) {
	if flagConfigDir != "" {
		return flagConfigDir, nil
	}
	return config.Dir()
}

// resolveVaultPath returns the explicit argument when present, otherwise the
// configured default.
func resolveVaultPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.VaultPath
}

// shortID abbreviates an entry id for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
