// Package alerting is the out-of-band path for failures that must not
// fail the operation they accompany, chiefly audit writes that could not
// be recorded even after retries.
package alerting

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Alert describes a surfaced failure.
type Alert struct {
	Source    string            `json:"source"`
	Message   string            `json:"message"`
	Err       error             `json:"-"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Alerter receives alerts. Implementations must not block; the callers
// sit on hot paths.
type Alerter interface {
	Alert(a Alert)
}

// LogAlerter surfaces alerts through the structured log at error level.
type LogAlerter struct {
	log *logrus.Logger
}

// NewLogAlerter creates an alerter over the given logger.
func NewLogAlerter(log *logrus.Logger) *LogAlerter {
	if log == nil {
		log = logrus.New()
	}
	return &LogAlerter{log: log}
}

// Alert logs the alert.
func (a *LogAlerter) Alert(alert Alert) {
	entry := a.log.WithFields(logrus.Fields{
		"source":  alert.Source,
		"alerted": alert.Timestamp,
	})
	for k, v := range alert.Metadata {
		entry = entry.WithField(k, v)
	}
	if alert.Err != nil {
		entry = entry.WithError(alert.Err)
	}
	entry.Error(alert.Message)
}

// MultiAlerter fans an alert out to several alerters.
type MultiAlerter []Alerter

// Alert delivers the alert to every member.
func (m MultiAlerter) Alert(a Alert) {
	for _, alerter := range m {
		alerter.Alert(a)
	}
}
