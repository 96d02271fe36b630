package netplay

import (
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/sirupsen/logrus"
)

// ConnectionQuality is a coarse bucket derived from latency/loss samples.
type ConnectionQuality string

const (
	QualityExcellent ConnectionQuality = "excellent"
	QualityGood      ConnectionQuality = "good"
	QualityFair      ConnectionQuality = "fair"
	QualityPoor      ConnectionQuality = "poor"
)

const (
	latencyWindow   = 20
	lossWindow      = 20
	errorHistoryCap = 10
)

// Metrics is a read-only snapshot of connection health.
type Metrics struct {
	Latency        time.Duration
	AverageLatency time.Duration
	PacketLoss     float64 // fraction of recent probes lost, 0..1
	Quality        ConnectionQuality
	LastPingTime   time.Time
}

// Tracker derives connection-quality signals from round-trip probes and
// records classified failures. It is purely observational: it never touches
// the connection state machine.
type Tracker struct {
	mu      sync.Mutex
	logger  *logrus.Logger
	pending map[string]time.Time // probe nonce -> send time
	samples *queue.Queue         // recent RTTs, bounded to latencyWindow
	results *queue.Queue         // recent probe outcomes (bool acked), bounded to lossWindow
	metrics Metrics

	errors    *queue.Queue // ErrorRecord, bounded to errorHistoryCap
	lastError *ErrorRecord
}

func newTracker(logger *logrus.Logger) *Tracker {
	return &Tracker{
		logger:  logger,
		pending: make(map[string]time.Time),
		samples: queue.New(),
		results: queue.New(),
		errors:  queue.New(),
		metrics: Metrics{Quality: QualityExcellent},
	}
}

// Metrics returns the current snapshot.
func (t *Tracker) Metrics() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics
}

// probeSent registers an outstanding ping probe.
func (t *Tracker) probeSent(nonce string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[nonce] = at
	t.metrics.LastPingTime = at
}

// probeAcked matches a pong to its probe and records the round trip.
// Unmatched pongs (late arrivals already counted as lost) are dropped.
func (t *Tracker) probeAcked(nonce string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sent, ok := t.pending[nonce]
	if !ok {
		t.logger.Debugf("pong for unknown probe %s", nonce)
		return
	}
	delete(t.pending, nonce)

	rtt := at.Sub(sent)
	t.metrics.Latency = rtt
	t.samples.Add(rtt)
	for t.samples.Length() > latencyWindow {
		t.samples.Remove()
	}
	t.results.Add(true)
	for t.results.Length() > lossWindow {
		t.results.Remove()
	}
	t.recompute()
}

// expirePending marks probes older than timeout as lost.
func (t *Tracker) expirePending(now time.Time, timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	expired := false
	for nonce, sent := range t.pending {
		if now.Sub(sent) < timeout {
			continue
		}
		delete(t.pending, nonce)
		t.results.Add(false)
		for t.results.Length() > lossWindow {
			t.results.Remove()
		}
		expired = true
	}
	if expired {
		t.recompute()
	}
}

// recompute refreshes averageLatency, packetLoss and the quality bucket.
// Caller holds t.mu.
func (t *Tracker) recompute() {
	if n := t.samples.Length(); n > 0 {
		var total time.Duration
		for i := 0; i < n; i++ {
			total += t.samples.Get(i).(time.Duration)
		}
		t.metrics.AverageLatency = total / time.Duration(n)
	}
	if n := t.results.Length(); n > 0 {
		lost := 0
		for i := 0; i < n; i++ {
			if !t.results.Get(i).(bool) {
				lost++
			}
		}
		t.metrics.PacketLoss = float64(lost) / float64(n)
	}
	t.metrics.Quality = bucketQuality(t.metrics.AverageLatency, t.metrics.PacketLoss)
}

func bucketQuality(latency time.Duration, loss float64) ConnectionQuality {
	switch {
	case latency < 50*time.Millisecond && loss < 0.02:
		return QualityExcellent
	case latency < 100*time.Millisecond && loss < 0.05:
		return QualityGood
	case latency < 200*time.Millisecond && loss < 0.10:
		return QualityFair
	default:
		return QualityPoor
	}
}

// AddError appends a record to the history, evicting the oldest past the cap.
func (t *Tracker) AddError(rec ErrorRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors.Add(rec)
	for t.errors.Length() > errorHistoryCap {
		t.errors.Remove()
	}
	t.lastError = &rec
	if rec.Critical {
		t.logger.Warnf("%s error: %s", rec.Type, rec.Message)
	} else {
		t.logger.Debugf("%s error: %s", rec.Type, rec.Message)
	}
}

// LastError returns the newest record, or nil if the history is empty.
func (t *Tracker) LastError() *ErrorRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastError == nil {
		return nil
	}
	rec := *t.lastError
	return &rec
}

// Errors returns a copy of the history, oldest first.
func (t *Tracker) Errors() []ErrorRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ErrorRecord, 0, t.errors.Length())
	for i := 0; i < t.errors.Length(); i++ {
		out = append(out, t.errors.Get(i).(ErrorRecord))
	}
	return out
}

// ClearErrors empties the history.
func (t *Tracker) ClearErrors() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errors = queue.New()
	t.lastError = nil
}
