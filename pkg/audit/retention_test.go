package audit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindcastle/warden/pkg/errs"
)

type fakePruner struct {
	records []ArchiveRecord
	cutoff  time.Time
}

func (f *fakePruner) PruneResolvedBefore(cutoff time.Time) []ArchiveRecord {
	f.cutoff = cutoff
	return f.records
}

func newTestManager(t *testing.T, clock clockwork.Clock, opts ...ManagerOption) (*Manager, *Log, *SecurityLog, *AccessLog, *Archive) {
	t.Helper()
	log := NewLog(clock)
	secLog := NewSecurityLog(clock)
	accLog := NewAccessLog(clock)
	archive := NewArchive()
	opts = append([]ManagerOption{WithManagerClock(clock)}, opts...)
	m := NewManager(log, secLog, accLog, archive, nil, opts...)
	return m, log, secLog, accLog, archive
}

func TestApplyPolicyValidation(t *testing.T) {
	m, _, _, _, _ := newTestManager(t, clockwork.NewFakeClock())

	assert.ErrorIs(t, m.ApplyPolicy(LogKind("syslog"), RetentionPolicy{RetentionDays: 30}), errs.ErrInvalidRequest)
	assert.ErrorIs(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: 0}), errs.ErrInvalidRequest)
	assert.ErrorIs(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: -5}), errs.ErrInvalidRequest)
	assert.ErrorIs(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: 30, ArchiveAfterDays: 30}), errs.ErrInvalidRequest)
	assert.ErrorIs(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: 30, ArchiveAfterDays: -1}), errs.ErrInvalidRequest)

	require.NoError(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: 30, ArchiveAfterDays: 7}))
	p, ok := m.Policy(KindAudit)
	require.True(t, ok)
	assert.Equal(t, 7, p.ArchiveAfterDays)

	// A later policy replaces the prior one.
	require.NoError(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: 60}))
	p, ok = m.Policy(KindAudit)
	require.True(t, ok)
	assert.Equal(t, 60, p.RetentionDays)
	assert.Equal(t, 0, p.ArchiveAfterDays)
}

func TestCleanupDeletesExpired(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	m, log, _, _, archive := newTestManager(t, clock)
	require.NoError(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: 30}))

	_, err := log.Append(Event{UserID: "u1", Action: "old"})
	require.NoError(t, err)
	clock.Advance(40 * 24 * time.Hour)
	fresh, err := log.Append(Event{UserID: "u1", Action: "fresh"})
	require.NoError(t, err)

	result := m.CleanupExpiredLogs()
	assert.Equal(t, 1, result.Deleted[KindAudit])
	assert.Equal(t, 0, result.Archived[KindAudit])
	assert.Equal(t, 0, archive.Len())

	// Only the fresh entry survives.
	assert.Equal(t, 1, log.Len())
	_, err = log.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestCleanupArchivesBeforeDeleting(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	m, log, _, _, archive := newTestManager(t, clock)
	require.NoError(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: 30, ArchiveAfterDays: 7}))

	ancient, err := log.Append(Event{UserID: "u1", Action: "ancient"})
	require.NoError(t, err)
	clock.Advance(25 * 24 * time.Hour)
	middle, err := log.Append(Event{UserID: "u1", Action: "middle"})
	require.NoError(t, err)
	clock.Advance(10 * 24 * time.Hour)
	_, err = log.Append(Event{UserID: "u1", Action: "fresh"})
	require.NoError(t, err)

	// Now: ancient is 35d old (past retention), middle is 10d old (past
	// archive-after, inside retention), fresh is 0d old.
	result := m.CleanupExpiredLogs()
	assert.Equal(t, 1, result.Deleted[KindAudit])
	assert.Equal(t, 1, result.Archived[KindAudit])
	assert.Equal(t, 1, log.Len())

	archived := archive.ByKind(KindAudit)
	require.Len(t, archived, 1)
	assert.Equal(t, middle.ID, archived[0].ID)
	assert.NotContains(t, string(archived[0].Payload), ancient.ID)
	assert.Contains(t, string(archived[0].Payload), "middle")
}

func TestCleanupAgesOutArchivedEntries(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	m, log, _, _, archive := newTestManager(t, clock)
	require.NoError(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: 30, ArchiveAfterDays: 7}))

	_, err := log.Append(Event{UserID: "u1", Action: "doomed"})
	require.NoError(t, err)

	// First sweep moves it to the archive.
	clock.Advance(10 * 24 * time.Hour)
	result := m.CleanupExpiredLogs()
	require.Equal(t, 1, result.Archived[KindAudit])
	require.Equal(t, 1, archive.Len())

	// Second sweep past the retention window deletes it from the archive.
	clock.Advance(25 * 24 * time.Hour)
	result = m.CleanupExpiredLogs()
	assert.Equal(t, 1, result.Deleted[KindAudit])
	assert.Equal(t, 0, archive.Len())
}

func TestCleanupCoversAllLogs(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	m, log, secLog, accLog, _ := newTestManager(t, clock)
	require.NoError(t, m.ApplyPolicy(KindAudit, RetentionPolicy{RetentionDays: 30}))
	require.NoError(t, m.ApplyPolicy(KindSecurity, RetentionPolicy{RetentionDays: 30}))
	require.NoError(t, m.ApplyPolicy(KindAccess, RetentionPolicy{RetentionDays: 30}))

	_, err := log.Append(Event{UserID: "u1", Action: "x"})
	require.NoError(t, err)
	_, err = secLog.Append(SecurityEvent{EventType: SecurityEventLogin, UserID: "u1"})
	require.NoError(t, err)
	_, err = accLog.Append(AccessEvent{UserID: "u1", Operation: AccessOpRead, ResourceID: "map-1"})
	require.NoError(t, err)

	clock.Advance(31 * 24 * time.Hour)
	result := m.CleanupExpiredLogs()
	assert.Equal(t, 1, result.Deleted[KindAudit])
	assert.Equal(t, 1, result.Deleted[KindSecurity])
	assert.Equal(t, 1, result.Deleted[KindAccess])
}

func TestCleanupSkipsKindsWithoutPolicy(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	m, log, _, _, _ := newTestManager(t, clock)

	_, err := log.Append(Event{UserID: "u1", Action: "x"})
	require.NoError(t, err)
	clock.Advance(365 * 24 * time.Hour)

	result := m.CleanupExpiredLogs()
	assert.Empty(t, result.Deleted)
	assert.Equal(t, 1, log.Len())
}

func TestCleanupCompliancePruner(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	pruner := &fakePruner{records: []ArchiveRecord{
		{ID: "v1", Timestamp: testEpoch.Add(-60 * 24 * time.Hour), Payload: []byte(`{}`)},
		{ID: "v2", Timestamp: testEpoch.Add(-10 * 24 * time.Hour), Payload: []byte(`{}`)},
	}}
	m, _, _, _, archive := newTestManager(t, clock, WithViolationPruner(pruner))
	require.NoError(t, m.ApplyPolicy(KindCompliance, RetentionPolicy{RetentionDays: 30, ArchiveAfterDays: 7}))

	result := m.CleanupExpiredLogs()
	assert.Equal(t, testEpoch.AddDate(0, 0, -7), pruner.cutoff)
	assert.Equal(t, 1, result.Deleted[KindCompliance])
	assert.Equal(t, 1, result.Archived[KindCompliance])

	archived := archive.ByKind(KindCompliance)
	require.Len(t, archived, 1)
	assert.Equal(t, "v2", archived[0].ID)
}
