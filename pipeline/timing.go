package pipeline

import "time"

// timingStage names the three per-frame stages tracked in the rolling
// average, plus the supplemented pipeline-wide total (§12).
type timingStage int

const (
	stagePreproc timingStage = iota
	stageNetwork
	stagePostproc
	stageTotal
	numStages
)

func (s timingStage) String() string {
	switch s {
	case stagePreproc:
		return "preproc"
	case stageNetwork:
		return "network"
	case stagePostproc:
		return "postproc"
	case stageTotal:
		return "total"
	default:
		return "?"
	}
}

// timingWindow is a small fixed-size rolling average per stage, matching the
// originating toolkit's per-stage timing convention without pulling in a
// metrics library. It is informational only; Process does not attach the
// averages to Result.Info.
const timingWindow = 32

type rollingTimers struct {
	samples [numStages][timingWindow]time.Duration
	counts  [numStages]int
	next    [numStages]int
}

func (t *rollingTimers) record(stage timingStage, d time.Duration) {
	i := t.next[stage]
	t.samples[stage][i] = d
	t.next[stage] = (i + 1) % timingWindow
	if t.counts[stage] < timingWindow {
		t.counts[stage]++
	}
}

func (t *rollingTimers) average(stage timingStage) time.Duration {
	n := t.counts[stage]
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < n; i++ {
		sum += t.samples[stage][i]
	}
	return sum / time.Duration(n)
}

// summary renders one header-plus-bullets block of the current rolling
// averages, in the InfoBuilder header/bullet convention (§12).
func (t *rollingTimers) summary() []string {
	lines := make([]string, 0, numStages+1)
	lines = append(lines, "* Timing (rolling avg over up to "+itoa(timingWindow)+" frames)")
	for s := timingStage(0); s < numStages; s++ {
		lines = append(lines, "- "+s.String()+": "+t.average(s).String())
	}
	return lines
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
