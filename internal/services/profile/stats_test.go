package profile

import (
	"reflect"
	"testing"
	"time"
)

func TestMedian(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 7},
		{"odd", []float64{3, 1, 2}, 2},
		{"even averages middle pair", []float64{4, 1, 3, 2}, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := median(tt.values); got != tt.want {
				t.Errorf("median(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	t.Parallel()

	in := []float64{3, 1, 2}
	_ = median(in)
	if !reflect.DeepEqual(in, []float64{3, 1, 2}) {
		t.Errorf("median mutated its input: %v", in)
	}
}

func TestCounterTopBreaksTiesByEncounter(t *testing.T) {
	t.Parallel()

	c := newCounter[string]()
	for _, k := range []string{"x", "y", "z", "y", "x", "w"} {
		c.add(k)
	}
	if got := c.top(3); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Errorf("top(3) = %v, want [x y z]", got)
	}
	if got := newCounter[string]().top(5); got == nil || len(got) != 0 {
		t.Errorf("empty top = %#v, want empty non-nil", got)
	}
}

func TestPeakHours(t *testing.T) {
	t.Parallel()

	var stamps []time.Time
	add := func(hour, n int) {
		for i := 0; i < n; i++ {
			stamps = append(stamps, time.Date(2026, 1, 1, hour, i, 0, 0, time.UTC))
		}
	}
	add(7, 1)
	add(8, 3)
	add(12, 2)
	add(20, 2)
	add(22, 1)

	if got := peakHours(stamps, 4); !reflect.DeepEqual(got, []int{7, 8, 12, 20}) {
		t.Errorf("peakHours = %v, want [7 8 12 20]", got)
	}
	if got := peakHours(nil, 4); got != nil {
		t.Errorf("peakHours(nil) = %v, want nil", got)
	}
}

func TestAverageSessionSeconds(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	stamps := []time.Time{
		base,
		base.Add(30 * time.Minute),
		base.Add(61 * time.Minute),
	}
	// 30 minute gap stays in the session; 31 minutes starts a new one
	if got := averageSessionSeconds(stamps, 30*time.Minute); got != 900 {
		t.Errorf("averageSessionSeconds = %v, want 900", got)
	}
	if got := averageSessionSeconds(nil, 30*time.Minute); got != 0 {
		t.Errorf("averageSessionSeconds(nil) = %v, want 0", got)
	}
}
