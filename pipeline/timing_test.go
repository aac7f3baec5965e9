package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRollingTimersAverage(t *testing.T) {
	var rt rollingTimers
	rt.record(stageNetwork, 10*time.Millisecond)
	rt.record(stageNetwork, 20*time.Millisecond)
	assert.Equal(t, 15*time.Millisecond, rt.average(stageNetwork))
}

func TestRollingTimersAverageEmptyIsZero(t *testing.T) {
	var rt rollingTimers
	assert.Equal(t, time.Duration(0), rt.average(stagePreproc))
}

func TestRollingTimersWindowWraps(t *testing.T) {
	var rt rollingTimers
	for i := 0; i < timingWindow+5; i++ {
		rt.record(stageTotal, time.Duration(i+1)*time.Millisecond)
	}
	assert.Equal(t, timingWindow, rt.counts[stageTotal])
}

func TestRollingTimersSummaryHasHeaderAndOneBulletPerStage(t *testing.T) {
	var rt rollingTimers
	rt.record(stagePreproc, time.Millisecond)
	lines := rt.summary()
	header := lines[0]
	assert.Contains(t, header, "Timing")
	assert.Len(t, lines, int(numStages)+1)
}
