package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cpadlab/project-key/pkg/auditor"
	"github.com/cpadlab/project-key/pkg/security"
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditRunCmd, auditReportCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run security audits against the vault",
}

var auditRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every audit once and tag the findings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openVault(); err != nil {
			return err
		}

		scheduler, err := newScheduler()
		if err != nil {
			return err
		}
		if err := scheduler.RunOnce(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Audit complete, findings tagged")
		return nil
	},
}

var auditReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the security health of the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openVault(); err != nil {
			return err
		}

		scheduler, err := newScheduler()
		if err != nil {
			return err
		}
		reports, summary, err := scheduler.Report(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Health score: %.0f%%  (%d entries", summary.HealthScore, summary.Total)
		fmt.Printf(", %d weak, %d duplicated, %d breached)\n\n",
			summary.Weak, summary.Duplicates, summary.Pwned)

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTRENGTH\tFLAGS")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				shortID(r.ID), r.Title, r.Label, flagString(r))
		}
		return w.Flush()
	},
}

// newScheduler builds a scheduler from the loaded configuration.
func newScheduler() (*auditor.Scheduler, error) {
	var pwned *security.PwnedClient
	if cfg.Audit.PwnedEnabled {
		pwned = security.NewPwnedClient()
	}
	return auditor.New(session, pwned, auditor.Config{
		DuplicateInterval: cfg.Audit.DuplicateInterval,
		StrengthInterval:  cfg.Audit.StrengthInterval,
		PwnedInterval:     cfg.Audit.PwnedInterval,
		SweepInterval:     cfg.Audit.SweepInterval,
		RecycleRetention:  cfg.Audit.RecycleRetention,
	}, log)
}

func flagString(r security.EntryReport) string {
	out := ""
	if r.Weak {
		out += "weak "
	}
	if r.Duplicate {
		out += "duplicate "
	}
	if r.Pwned {
		out += "pwned"
	}
	if out == "" {
		return "-"
	}
	return out
}
