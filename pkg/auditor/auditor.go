// Package auditor runs the background security loops of an open vault:
// duplicate detection, strength scoring, breach lookups and the recycle bin
// sweep. Findings are published as tags on the affected entries, so every
// surface of the application sees them without a separate findings store.
package auditor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cpadlab/project-key/pkg/security"
	"github.com/cpadlab/project-key/pkg/vault"
)

// Tags published on entries by the audit loops.
const (
	TagDuplicate = "duplicate"
	TagWeak      = "weak"
	TagPwned     = "pwned"
)

// Config holds the loop cadences. A zero interval disables that loop.
type Config struct {
	DuplicateInterval time.Duration
	StrengthInterval  time.Duration
	PwnedInterval     time.Duration
	SweepInterval     time.Duration

	// RecycleRetention is how long soft-deleted entries survive before the
	// sweep erases them.
	RecycleRetention time.Duration
}

// DefaultConfig returns the stock cadences.
func DefaultConfig() Config {
	return Config{
		DuplicateInterval: 30 * time.Second,
		StrengthInterval:  30 * time.Second,
		PwnedInterval:     30 * time.Second,
		SweepInterval:     time.Hour,
		RecycleRetention:  30 * 24 * time.Hour,
	}
}

// Scheduler owns the audit loops over one session.
type Scheduler struct {
	session  *vault.Session
	analyzer *security.Analyzer
	pwned    *security.PwnedClient
	log      *zap.Logger
	cfg      Config
}

// New returns a scheduler. The pwned client may be nil to disable breach
// lookups regardless of the configured interval.
func New(session *vault.Session, pwned *security.PwnedClient, cfg Config, log *zap.Logger) (*Scheduler, error) {
	analyzer, err := security.NewAnalyzer()
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		session:  session,
		analyzer: analyzer,
		pwned:    pwned,
		log:      log,
		cfg:      cfg,
	}, nil
}

// Run starts every enabled loop and blocks until the context is canceled.
// Each loop ticks independently; a cycle with no open vault is skipped.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup

	s.spawn(ctx, &wg, "duplicates", s.cfg.DuplicateInterval, s.AuditDuplicates)
	s.spawn(ctx, &wg, "strength", s.cfg.StrengthInterval, s.AuditStrength)
	if s.pwned != nil {
		s.spawn(ctx, &wg, "pwned", s.cfg.PwnedInterval, s.AuditPwned)
	}
	s.spawn(ctx, &wg, "sweep", s.cfg.SweepInterval, s.SweepRecycleBin)

	wg.Wait()
}

func (s *Scheduler) spawn(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, cycle func(context.Context) error) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if !s.session.Active() {
				s.log.Debug("audit cycle skipped, no open vault", zap.String("loop", name))
				continue
			}
			if err := cycle(ctx); err != nil {
				s.log.Warn("audit cycle failed", zap.String("loop", name), zap.Error(err))
			}
		}
	}()
}

// RunOnce executes every audit immediately, in order, against the open
// vault. Used by the foreground audit command.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if err := s.AuditDuplicates(ctx); err != nil {
		return err
	}
	if err := s.AuditStrength(ctx); err != nil {
		return err
	}
	if s.pwned != nil {
		if err := s.AuditPwned(ctx); err != nil {
			return err
		}
	}
	return s.SweepRecycleBin(ctx)
}

// AuditDuplicates flags entries sharing a password and clears the flag from
// entries that no longer do.
func (s *Scheduler) AuditDuplicates(ctx context.Context) error {
	entries, err := s.session.Entries().List()
	if err != nil {
		return err
	}

	creds := make([]security.Credential, 0, len(entries))
	for _, e := range entries {
		creds = append(creds, security.Credential{ID: e.ID, Title: e.Title, Password: e.Password})
	}
	dupIDs := security.DuplicateIDs(s.analyzer.FindDuplicates(creds))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.setFlag(e.ID, TagDuplicate, dupIDs[e.ID])
	}
	return nil
}

// AuditStrength flags entries whose password scores below the acceptable
// threshold.
func (s *Scheduler) AuditStrength(ctx context.Context) error {
	entries, err := s.session.Entries().List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.setFlag(e.ID, TagWeak, security.CheckStrength(e.Password).IsWeak())
	}
	return nil
}

// AuditPwned checks every entry against the breach corpus. A failed lookup
// leaves that entry's flag untouched; only a definite answer changes state.
func (s *Scheduler) AuditPwned(ctx context.Context) error {
	entries, err := s.session.Entries().List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		count, err := s.pwned.CheckPassword(ctx, e.Password)
		if err != nil {
			s.log.Warn("breach lookup failed, keeping previous state",
				zap.String("entry", e.ID), zap.Error(err))
			continue
		}
		s.setFlag(e.ID, TagPwned, count > 0)
	}
	return nil
}

// SweepRecycleBin permanently erases recycled entries past retention.
func (s *Scheduler) SweepRecycleBin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	removed, err := s.session.Entries().PurgeExpired(s.cfg.RecycleRetention)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Info("recycle bin swept", zap.Int("removed", removed))
	}
	return nil
}

// Report scores the open vault and returns per-entry reports plus the
// roll-up summary, reading the flags the loops have published.
func (s *Scheduler) Report(ctx context.Context) ([]security.EntryReport, security.Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, security.Summary{}, err
	}
	entries, err := s.session.Entries().List()
	if err != nil {
		return nil, security.Summary{}, err
	}

	creds := make([]security.Credential, 0, len(entries))
	pwned := make(map[string]bool)
	for _, e := range entries {
		creds = append(creds, security.Credential{ID: e.ID, Title: e.Title, Password: e.Password})
		if e.HasTag(TagPwned) {
			pwned[e.ID] = true
		}
	}
	groups := s.analyzer.FindDuplicates(creds)
	reports, summary := security.Review(creds, groups, pwned)
	return reports, summary, nil
}

// setFlag updates one finding tag, logging and continuing on failure. An
// entry deleted mid-cycle is not an error.
func (s *Scheduler) setFlag(id, tag string, present bool) {
	err := s.session.Entries().SetFlagTag(id, tag, present)
	if err == nil || errors.Is(err, vault.ErrEntryNotFound) {
		return
	}
	s.log.Warn("failed to update finding tag",
		zap.String("entry", id), zap.String("tag", tag), zap.Error(err))
}
