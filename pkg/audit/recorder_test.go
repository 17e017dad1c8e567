package audit

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindcastle/warden/pkg/alerting"
)

type captureAlerter struct {
	mu     sync.Mutex
	alerts []alerting.Alert
}

func (c *captureAlerter) Alert(a alerting.Alert) {
	c.mu.Lock()
	c.alerts = append(c.alerts, a)
	c.mu.Unlock()
}

func (c *captureAlerter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRecorderWritesAllLogs(t *testing.T) {
	log := NewLog(nil)
	secLog := NewSecurityLog(nil)
	accLog := NewAccessLog(nil)
	r := NewRecorder(log, secLog, accLog, quietLogger(), nil)
	defer r.Close()

	r.Action(Event{UserID: "u1", Action: "map.update", ResourceID: "map-1"})
	r.Security(SecurityEvent{EventType: SecurityEventLogin, UserID: "u1", Success: true})
	r.DataAccess(AccessEvent{UserID: "u1", Operation: AccessOpRead, ResourceID: "map-1"})

	assert.Equal(t, 1, log.Len())
	assert.Len(t, secLog.All(), 1)
	assert.Len(t, accLog.All(), 1)
}

func TestRecorderFailureNeverPropagates(t *testing.T) {
	log := NewLog(nil)
	secLog := NewSecurityLog(nil)
	accLog := NewAccessLog(nil)
	alerter := &captureAlerter{}
	r := NewRecorder(log, secLog, accLog, quietLogger(), alerter)
	defer r.Close()

	// An invalid event fails validation on every attempt. The call still
	// returns normally; the failure surfaces through alerting after the
	// retries are exhausted.
	r.Action(Event{Action: "map.update"})
	assert.Equal(t, 0, log.Len())

	require.Eventually(t, func() bool {
		return alerter.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	alerter.mu.Lock()
	defer alerter.mu.Unlock()
	assert.Equal(t, "audit.recorder", alerter.alerts[0].Source)
	assert.Equal(t, string(KindAudit), alerter.alerts[0].Metadata["log"])
	assert.Error(t, alerter.alerts[0].Err)
}

func TestRecorderCloseIdempotent(t *testing.T) {
	r := NewRecorder(NewLog(nil), NewSecurityLog(nil), NewAccessLog(nil), quietLogger(), nil)
	r.Close()
	r.Close()
}
