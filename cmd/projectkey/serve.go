package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/pkg/emergency"
	"github.com/cpadlab/project-key/pkg/export"
	"github.com/cpadlab/project-key/pkg/updater"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keep the vault open and run the background security loops",
	Long: `Open the vault and run the background audit loops until interrupted.

While serving, entries are periodically re-checked for weak, duplicate and
breached passwords, the recycle bin is swept, and the emergency inactivity
monitor (when enabled) watches the heartbeat file.`,
	Args: cobra.NoArgs,
	RunE: executeServe,
}

func executeServe(cmd *cobra.Command, args []string) error {
	if err := openVault(); err != nil {
		return err
	}

	scheduler, err := newScheduler()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	updater.New(version, log).LogCheck(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	if cfg.Emergency.Enabled {
		hb := newHeartbeat()
		monitor := emergency.NewMonitor(hb, cfg.Emergency.CheckInterval, recoverVault, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			monitor.Run(ctx)
		}()
	}

	fmt.Println("Serving; press Ctrl+C to stop")
	wg.Wait()
	return nil
}

// newHeartbeat builds the emergency heartbeat from configuration.
func newHeartbeat() *emergency.Heartbeat {
	threshold := time.Duration(cfg.Emergency.ThresholdDays) * 24 * time.Hour
	return emergency.NewHeartbeat(cfg.Emergency.StatusFile, cfg.Emergency.Passphrase, threshold, log)
}

// recoverVault writes the plaintext recovery kit. Runs once when the
// inactivity monitor fires.
func recoverVault(ctx context.Context) error {
	entries, err := session.Entries().List()
	if err != nil {
		return err
	}
	groups, err := session.Groups().List()
	if err != nil {
		return err
	}
	return export.ToFile(cfg.Emergency.RecoveryFile, export.FormatJSON, groups, entries)
}
