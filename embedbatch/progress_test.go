package embedbatch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerReports(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Increment(10)
	assert.Contains(t, buf.String(), "10/100")

	tracker.Increment(5)
	// Below the report interval, no new output
	assert.NotContains(t, buf.String(), "15/100")

	tracker.Finish()
	assert.Contains(t, buf.String(), "100/100")
	assert.Contains(t, buf.String(), "100.0%")
}

func TestProgressTrackerIgnoresUpdatesBeforeStart(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Increment(5)
	tracker.Finish()
	assert.Empty(t, buf.String())
}

func TestProgressTrackerCapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Start()
	tracker.Increment(25)
	assert.Contains(t, buf.String(), "10/10")
}
