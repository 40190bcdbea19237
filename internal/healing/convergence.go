package healing

// Trend labels the direction a healing session's error counts are moving.
type Trend string

const (
	TrendImproving   Trend = "improving"
	TrendDegrading   Trend = "degrading"
	TrendOscillating Trend = "oscillating"
	TrendStagnating  Trend = "stagnating"
	TrendUnknown     Trend = "unknown"
)

// ConvergenceDetector watches the error-count series across healing attempts
// and names the trend. It is the early-warning half of loop termination; the
// CircuitBreaker is the hard stop.
type ConvergenceDetector struct {
	counts          []int
	stagnationCount int
}

func NewConvergenceDetector() *ConvergenceDetector {
	return &ConvergenceDetector{}
}

// Record appends the error count observed after an attempt. A count equal to
// its predecessor bumps the stagnation counter; any movement resets it.
func (d *ConvergenceDetector) Record(errorCount int) {
	if n := len(d.counts); n > 0 {
		if errorCount == d.counts[n-1] {
			d.stagnationCount++
		} else {
			d.stagnationCount = 0
		}
	}
	d.counts = append(d.counts, errorCount)
}

// Converged reports whether the latest attempt produced zero errors.
func (d *ConvergenceDetector) Converged() bool {
	n := len(d.counts)
	return n > 0 && d.counts[n-1] == 0
}

// StagnationCount returns how many consecutive attempts changed nothing.
func (d *ConvergenceDetector) StagnationCount() int {
	return d.stagnationCount
}

// Trend classifies the recent error-count series. Oscillation is checked
// first over the last four counts (successive differences alternating sign),
// then stagnation (last three flat, or the stagnation counter tripped), then
// monotonic improvement or degradation over the last three.
func (d *ConvergenceDetector) Trend() Trend {
	n := len(d.counts)
	if n < 2 {
		return TrendUnknown
	}

	if n >= 4 && alternating(d.counts[n-4:]) {
		return TrendOscillating
	}

	if d.stagnationCount >= 2 {
		return TrendStagnating
	}
	if n >= 3 {
		a, b, c := d.counts[n-3], d.counts[n-2], d.counts[n-1]
		if a == b && b == c {
			return TrendStagnating
		}
		if a > b && b > c {
			return TrendImproving
		}
		if a < b && b < c {
			return TrendDegrading
		}
	}

	// Two points, or three without a monotonic shape: judge the last step.
	switch last, prev := d.counts[n-1], d.counts[n-2]; {
	case last < prev:
		return TrendImproving
	case last > prev:
		return TrendDegrading
	default:
		return TrendStagnating
	}
}

// alternating reports whether successive differences strictly alternate sign.
func alternating(window []int) bool {
	if len(window) < 3 {
		return false
	}
	prev := 0
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		if d == 0 {
			return false
		}
		if prev != 0 && (d > 0) == (prev > 0) {
			return false
		}
		prev = d
	}
	return true
}
