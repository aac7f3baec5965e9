package pipeline

// Report renders the serial message lines for a decoded Result, one line
// per entry, matching §6's "stable textual format" requirement. An empty
// Classify result reports the originating toolkit's own fallback line
// rather than nothing, so a host module watching the serial stream can
// distinguish "ran and found nothing" from "didn't run".
func Report(r Result) []string {
	switch r.Kind {
	case PostProcClassify:
		if len(r.Classify) == 0 {
			return []string{"(no detections above threshold)"}
		}
		lines := make([]string, len(r.Classify))
		for i, e := range r.Classify {
			lines[i] = e.String()
		}
		return lines

	case PostProcDetect:
		if len(r.Detect) == 0 {
			return []string{"(no detections above threshold)"}
		}
		lines := make([]string, len(r.Detect))
		for i, d := range r.Detect {
			lines[i] = d.String()
		}
		return lines

	case PostProcSegment:
		return []string{"segment: " + itoa(r.Segment.Width) + "x" + itoa(r.Segment.Height)}

	default:
		return nil
	}
}
