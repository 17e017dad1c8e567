package audit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindcastle/warden/pkg/errs"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestLogAppend(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	l := NewLog(clock)

	stored, err := l.Append(Event{
		UserID:     "u1",
		Action:     "map.update",
		ResourceID: "map-1",
		Metadata:   map[string]string{"field": "title"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, testEpoch, stored.Timestamp)
	assert.Equal(t, SeverityInfo, stored.Severity)

	got, err := l.Get(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, got)
}

func TestLogAppendValidation(t *testing.T) {
	l := NewLog(nil)

	_, err := l.Append(Event{Action: "map.update"})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)

	_, err = l.Append(Event{UserID: "u1"})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestLogImmutability(t *testing.T) {
	l := NewLog(nil)
	stored, err := l.Append(Event{
		UserID:   "u1",
		Action:   "map.update",
		Metadata: map[string]string{"field": "title"},
	})
	require.NoError(t, err)

	// Mutating the returned copy never reaches the store.
	stored.Metadata["field"] = "tampered"
	first, err := l.Get(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "title", first.Metadata["field"])

	first.UserID = "mallory"
	first.Metadata["field"] = "tampered"
	second, err := l.Get(stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", second.UserID)
	assert.Equal(t, "title", second.Metadata["field"])
}

func TestLogGetNotFound(t *testing.T) {
	l := NewLog(nil)
	_, err := l.Get("missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestLogQueries(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	l := NewLog(clock)

	for i, e := range []Event{
		{UserID: "alice", Action: "map.create", ResourceID: "map-1"},
		{UserID: "bob", Action: "map.update", ResourceID: "map-1"},
		{UserID: "alice", Action: "folder.delete", ResourceID: "folder-1"},
	} {
		_, err := l.Append(e)
		require.NoError(t, err, "event %d", i)
		clock.Advance(time.Hour)
	}

	assert.Len(t, l.ByUser("alice"), 2)
	assert.Len(t, l.ByUser("nobody"), 0)
	assert.Len(t, l.ByResource("map-1"), 2)
	assert.Equal(t, 3, l.Len())

	// Range bounds are inclusive on both ends.
	second := testEpoch.Add(time.Hour)
	got := l.ByDateRange(second, second)
	require.Len(t, got, 1)
	assert.Equal(t, "bob", got[0].UserID)

	got = l.ByDateRange(testEpoch, testEpoch.Add(2*time.Hour))
	assert.Len(t, got, 3)

	got = l.ByDateRange(testEpoch.Add(time.Nanosecond), testEpoch.Add(2*time.Hour).Add(-time.Nanosecond))
	assert.Len(t, got, 1)
}

func TestSecurityLogAppend(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testEpoch)
	l := NewSecurityLog(clock)

	stored, err := l.Append(SecurityEvent{
		EventType: SecurityEventLoginFailed,
		UserID:    "u1",
		Severity:  SeverityWarning,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, testEpoch, stored.Timestamp)

	_, err = l.Append(SecurityEvent{})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)

	// System events without a user are fine.
	_, err = l.Append(SecurityEvent{EventType: SecurityEventLogin, Success: true})
	require.NoError(t, err)

	assert.Len(t, l.ByType(SecurityEventLoginFailed), 1)
	assert.Len(t, l.ByUser("u1"), 1)
	assert.Len(t, l.All(), 2)
}

func TestAccessLogAppend(t *testing.T) {
	l := NewAccessLog(nil)

	stored, err := l.Append(AccessEvent{
		UserID:     "u1",
		Operation:  AccessOpExport,
		ResourceID: "map-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)

	_, err = l.Append(AccessEvent{Operation: AccessOpRead})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)
	_, err = l.Append(AccessEvent{UserID: "u1"})
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)

	assert.Len(t, l.ByUser("u1"), 1)
	assert.Len(t, l.ByResource("map-1"), 1)
}
