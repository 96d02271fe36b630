package netplay

import (
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTracker() *Tracker {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return newTracker(logger)
}

func TestProbeRoundTrip(t *testing.T) {
	tr := testTracker()
	t0 := time.Now()

	tr.probeSent("n1", t0)
	tr.probeAcked("n1", t0.Add(30*time.Millisecond))

	m := tr.Metrics()
	assert.Equal(t, 30*time.Millisecond, m.Latency)
	assert.Equal(t, 30*time.Millisecond, m.AverageLatency)
	assert.Equal(t, QualityExcellent, m.Quality)
	assert.Equal(t, t0, m.LastPingTime)
	assert.Zero(t, m.PacketLoss)
}

func TestAverageLatencyWindow(t *testing.T) {
	tr := testTracker()
	t0 := time.Now()

	// Fill past the window; only the newest latencyWindow samples count.
	for i := 0; i < latencyWindow+5; i++ {
		nonce := fmt.Sprintf("n%d", i)
		rtt := time.Duration(i+1) * 10 * time.Millisecond
		tr.probeSent(nonce, t0)
		tr.probeAcked(nonce, t0.Add(rtt))
	}

	m := tr.Metrics()
	assert.Equal(t, 250*time.Millisecond, m.Latency)
	// Samples 6..25 -> mean of 60ms..250ms = 155ms.
	assert.Equal(t, 155*time.Millisecond, m.AverageLatency)
}

func TestExpiredProbesCountAsLoss(t *testing.T) {
	tr := testTracker()
	t0 := time.Now()

	tr.probeSent("acked", t0)
	tr.probeAcked("acked", t0.Add(20*time.Millisecond))
	tr.probeSent("lost", t0)
	tr.expirePending(t0.Add(10*time.Second), 4*time.Second)

	m := tr.Metrics()
	assert.InDelta(t, 0.5, m.PacketLoss, 1e-9)
	assert.Equal(t, QualityPoor, m.Quality)

	// A late pong for an expired probe is dropped.
	tr.probeAcked("lost", t0.Add(11*time.Second))
	assert.InDelta(t, 0.5, tr.Metrics().PacketLoss, 1e-9)
}

func TestQualityBuckets(t *testing.T) {
	cases := []struct {
		latency time.Duration
		loss    float64
		want    ConnectionQuality
	}{
		{20 * time.Millisecond, 0.0, QualityExcellent},
		{49 * time.Millisecond, 0.019, QualityExcellent},
		{60 * time.Millisecond, 0.0, QualityGood},
		{30 * time.Millisecond, 0.03, QualityGood},
		{150 * time.Millisecond, 0.08, QualityFair},
		{250 * time.Millisecond, 0.0, QualityPoor},
		{20 * time.Millisecond, 0.5, QualityPoor},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, bucketQuality(tc.latency, tc.loss), "latency=%v loss=%v", tc.latency, tc.loss)
	}
}

func TestErrorHistoryCap(t *testing.T) {
	tr := testTracker()
	for i := 1; i <= 12; i++ {
		tr.AddError(ErrorRecord{Type: ErrTypeConnection, Message: fmt.Sprintf("err %d", i)})
	}

	errs := tr.Errors()
	require.Len(t, errs, 10)
	assert.Equal(t, "err 3", errs[0].Message)
	assert.Equal(t, "err 12", errs[9].Message)

	last := tr.LastError()
	require.NotNil(t, last)
	assert.Equal(t, "err 12", last.Message)
	assert.False(t, last.Timestamp.IsZero())
}

func TestClearErrors(t *testing.T) {
	tr := testTracker()
	tr.AddError(ErrorRecord{Type: ErrTypeAuthentication, Message: "rejected", Critical: true})
	require.NotNil(t, tr.LastError())

	tr.ClearErrors()
	assert.Nil(t, tr.LastError())
	assert.Empty(t, tr.Errors())
}
