package auditor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cpadlab/project-key/pkg/backup"
	"github.com/cpadlab/project-key/pkg/security"
	"github.com/cpadlab/project-key/pkg/vault"
)

func newTestScheduler(t *testing.T, pwned *security.PwnedClient) (*Scheduler, *vault.Session) {
	t.Helper()
	dir := t.TempDir()
	rotator := backup.NewRotator(filepath.Join(dir, "backups"), 3, zap.NewNop())
	session := vault.NewSession(rotator, nil, zap.NewNop())
	t.Cleanup(session.Close)
	require.NoError(t, session.Create(filepath.Join(dir, "audit.pkv"), "master password", ""))

	s, err := New(session, pwned, DefaultConfig(), zap.NewNop())
	require.NoError(t, err)
	return s, session
}

func addEntry(t *testing.T, session *vault.Session, title, password string) vault.Entry {
	t.Helper()
	e, err := session.Entries().Add(vault.Entry{Title: title, Password: password})
	require.NoError(t, err)
	return e
}

func entryTags(t *testing.T, session *vault.Session, id string) []string {
	t.Helper()
	e, err := session.Entries().Get(id)
	require.NoError(t, err)
	return e.Tags
}

func TestAuditDuplicatesFlagsAndClears(t *testing.T) {
	s, session := newTestScheduler(t, nil)
	ctx := context.Background()

	a := addEntry(t, session, "a", "sameSecret99!")
	b := addEntry(t, session, "b", "sameSecret99!")
	c := addEntry(t, session, "c", "differentSecret1!")

	require.NoError(t, s.AuditDuplicates(ctx))
	assert.Contains(t, entryTags(t, session, a.ID), TagDuplicate)
	assert.Contains(t, entryTags(t, session, b.ID), TagDuplicate)
	assert.NotContains(t, entryTags(t, session, c.ID), TagDuplicate)

	// Break the duplication and verify the flag converges away.
	got, err := session.Entries().Get(b.ID)
	require.NoError(t, err)
	got.Password = "nowUnique42$xyz"
	_, err = session.Entries().Update(b.ID, got)
	require.NoError(t, err)

	require.NoError(t, s.AuditDuplicates(ctx))
	assert.NotContains(t, entryTags(t, session, a.ID), TagDuplicate)
	assert.NotContains(t, entryTags(t, session, b.ID), TagDuplicate)
}

func TestAuditStrength(t *testing.T) {
	s, session := newTestScheduler(t, nil)
	ctx := context.Background()

	weak := addEntry(t, session, "weak", "abcd1234")
	strong := addEntry(t, session, "strong", "Tr0ub4dor&3horse!")

	require.NoError(t, s.AuditStrength(ctx))
	assert.Contains(t, entryTags(t, session, weak.ID), TagWeak)
	assert.NotContains(t, entryTags(t, session, strong.ID), TagWeak)
}

func TestAuditStrengthPreservesUserTags(t *testing.T) {
	s, session := newTestScheduler(t, nil)
	ctx := context.Background()

	e, err := session.Entries().Add(vault.Entry{
		Title: "tagged", Password: "abcd1234", Tags: []string{"work", "email"},
	})
	require.NoError(t, err)

	require.NoError(t, s.AuditStrength(ctx))
	tags := entryTags(t, session, e.ID)
	assert.Contains(t, tags, "work")
	assert.Contains(t, tags, "email")
	assert.Contains(t, tags, TagWeak)
}

func TestAuditPwned(t *testing.T) {
	// SHA-1("password") suffix after the 5BAA6 prefix.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("1E4C9B93F3F0682250B6CF8331B7EE68FD8:9545824\r\n"))
	}))
	defer srv.Close()

	s, session := newTestScheduler(t, security.NewPwnedClientWithBase(srv.URL))
	ctx := context.Background()

	breached := addEntry(t, session, "breached", "password")
	clean := addEntry(t, session, "clean", "n0tInAnyDump!xyz")

	require.NoError(t, s.AuditPwned(ctx))
	assert.Contains(t, entryTags(t, session, breached.ID), TagPwned)
	assert.NotContains(t, entryTags(t, session, clean.ID), TagPwned)
}

func TestAuditPwnedKeepsFlagOnLookupFailure(t *testing.T) {
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer flaky.Close()

	s, session := newTestScheduler(t, security.NewPwnedClientWithBase(flaky.URL))
	ctx := context.Background()

	e := addEntry(t, session, "breached", "password")
	require.NoError(t, session.Entries().SetFlagTag(e.ID, TagPwned, true))

	require.NoError(t, s.AuditPwned(ctx))
	assert.Contains(t, entryTags(t, session, e.ID), TagPwned)
}

func TestCycleSkippedWithoutSession(t *testing.T) {
	s, session := newTestScheduler(t, nil)
	session.Close()

	err := s.AuditStrength(context.Background())
	assert.ErrorIs(t, err, vault.ErrNoActiveSession)
}

func TestSweepRecycleBin(t *testing.T) {
	s, session := newTestScheduler(t, nil)
	ctx := context.Background()

	e := addEntry(t, session, "old", "someSecret1!")
	require.NoError(t, session.Entries().Delete(e.ID, false))

	s.cfg.RecycleRetention = time.Nanosecond
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, s.SweepRecycleBin(ctx))
	remaining, err := session.Entries().ListRecycleBin()
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDefaultConfigIntervals(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.DuplicateInterval)
	assert.Equal(t, 30*time.Second, cfg.StrengthInterval)
	assert.Equal(t, 30*time.Second, cfg.PwnedInterval)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	cfg := DefaultConfig()
	cfg.DuplicateInterval = 10 * time.Millisecond
	cfg.StrengthInterval = 10 * time.Millisecond
	cfg.PwnedInterval = 0
	cfg.SweepInterval = 10 * time.Millisecond
	s.cfg = cfg

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestReport(t *testing.T) {
	s, session := newTestScheduler(t, nil)
	ctx := context.Background()

	addEntry(t, session, "a", "shared1!")
	addEntry(t, session, "b", "shared1!")
	addEntry(t, session, "c", "Str0ngAndL0ng!!pass")

	reports, summary, err := s.Report(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 3)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Duplicates)
}
