package llkb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWilsonLowerBound(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		failures  int
		want      float64
	}{
		{"no observations", 0, 0, 0},
		{"one success", 1, 0, 0.2065},
		{"ten successes", 10, 0, 0.7225},
		{"even split", 5, 5, 0.2366},
		{"all failures", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WilsonLowerBound(tt.successes, tt.failures)
			assert.InDelta(t, tt.want, got, 0.001)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestWilsonMonotoneInSuccesses(t *testing.T) {
	for _, failures := range []int{0, 1, 5} {
		prev := 0.0
		for s := 1; s <= 50; s++ {
			got := WilsonLowerBound(s, failures)
			if got < prev {
				t.Fatalf("bound decreased at successes=%d failures=%d: %f < %f",
					s, failures, got, prev)
			}
			prev = got
		}
	}
}

func TestWilsonMonotoneInFailures(t *testing.T) {
	for _, successes := range []int{1, 5, 20} {
		prev := 1.0
		for f := 0; f <= 50; f++ {
			got := WilsonLowerBound(successes, f)
			if got > prev {
				t.Fatalf("bound increased at successes=%d failures=%d: %f > %f",
					successes, f, got, prev)
			}
			prev = got
		}
	}
}
