package audit

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mindcastle/warden/pkg/alerting"
	"github.com/mindcastle/warden/pkg/observability"
)

const (
	recorderQueueSize    = 256
	recorderMaxAttempts  = 3
	recorderRetryBackoff = 100 * time.Millisecond
)

// Recorder is the best-effort logging facade. A failed append never
// propagates to the business operation being recorded: the write moves
// to a bounded retry queue drained out-of-band, and exhausted retries
// surface through the alerting path instead.
type Recorder struct {
	log     *Log
	secLog  *SecurityLog
	accLog  *AccessLog
	logger  *logrus.Logger
	metrics *observability.Metrics
	alerter alerting.Alerter

	queue    chan retryItem
	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
}

type retryItem struct {
	log      LogKind
	attempts int
	write    func() error
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderMetrics records write/failure counters on the given
// metric set.
func WithRecorderMetrics(m *observability.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// NewRecorder creates a recorder over the three logs and starts its
// retry worker. Close stops the worker.
func NewRecorder(log *Log, secLog *SecurityLog, accLog *AccessLog, logger *logrus.Logger, alerter alerting.Alerter, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = logrus.New()
	}
	if alerter == nil {
		alerter = alerting.NewLogAlerter(logger)
	}
	r := &Recorder{
		log:     log,
		secLog:  secLog,
		accLog:  accLog,
		logger:  logger,
		alerter: alerter,
		queue:   make(chan retryItem, recorderQueueSize),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.wg.Add(1)
	go r.retryLoop()
	return r
}

// Action records a business action. Best-effort: errors are handled
// out-of-band.
func (r *Recorder) Action(e Event) {
	r.record(KindAudit, func() error {
		_, err := r.log.Append(e)
		return err
	})
}

// Security records a security event. Best-effort.
func (r *Recorder) Security(e SecurityEvent) {
	r.record(KindSecurity, func() error {
		_, err := r.secLog.Append(e)
		return err
	})
}

// DataAccess records a data operation. Best-effort.
func (r *Recorder) DataAccess(e AccessEvent) {
	r.record(KindAccess, func() error {
		_, err := r.accLog.Append(e)
		return err
	})
}

// Close stops the retry worker after draining what it can.
func (r *Recorder) Close() {
	r.stopOnce.Do(func() {
		close(r.stopped)
	})
	r.wg.Wait()
}

func (r *Recorder) record(kind LogKind, write func() error) {
	err := write()
	if err == nil {
		if r.metrics != nil {
			r.metrics.EventsRecordedTotal.WithLabelValues(string(kind)).Inc()
		}
		return
	}

	if r.metrics != nil {
		r.metrics.EventWriteFailuresTotal.WithLabelValues(string(kind)).Inc()
	}
	r.logger.WithError(err).WithField("log", kind).Warn("event write failed, queueing retry")

	select {
	case r.queue <- retryItem{log: kind, attempts: 1, write: write}:
	default:
		// Queue full: surface immediately rather than blocking the
		// protected action.
		r.raise(kind, err)
	}
}

func (r *Recorder) retryLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopped:
			return
		case item := <-r.queue:
			timer := time.NewTimer(recorderRetryBackoff)
			select {
			case <-r.stopped:
				timer.Stop()
				return
			case <-timer.C:
			}

			if r.metrics != nil {
				r.metrics.EventWriteRetriesTotal.Inc()
			}
			err := item.write()
			if err == nil {
				if r.metrics != nil {
					r.metrics.EventsRecordedTotal.WithLabelValues(string(item.log)).Inc()
				}
				continue
			}

			item.attempts++
			if item.attempts >= recorderMaxAttempts {
				r.raise(item.log, err)
				continue
			}
			select {
			case r.queue <- item:
			default:
				r.raise(item.log, err)
			}
		}
	}
}

func (r *Recorder) raise(kind LogKind, err error) {
	if r.metrics != nil {
		r.metrics.AlertsRaisedTotal.WithLabelValues("audit.recorder").Inc()
	}
	r.alerter.Alert(alerting.Alert{
		Source:    "audit.recorder",
		Message:   "event write abandoned after retries",
		Err:       err,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]string{"log": string(kind)},
	})
}
