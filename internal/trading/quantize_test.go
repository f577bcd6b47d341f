package trading

import (
	"math"
	"testing"
)

func TestQuantize(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		step  float64
		want  float64
	}{
		{"whole step floors to integer", 1.9, 1, 1},
		{"whole step exact", 3.0, 1, 3},
		{"large step still floors to integer", 7.4, 10, 7},
		{"tenth step", 1.6666666666666667, 0.1, 1.6},
		{"hundredth step", 2.389, 0.01, 2.38},
		{"thousandth step", 0.12349, 0.001, 0.123},
		{"half-step five", 1.6666666666666667, 0.05, 1.65},
		{"half-step five above grid", 1.68, 0.05, 1.65},
		{"half-step five on grid", 1.65, 0.05, 1.65},
		{"coarse half step", 2.7, 0.5, 2.5},
		{"fine half step", 0.1234, 0.005, 0.12},
		{"zero value", 0, 0.1, 0},
		{"value below one step", 0.04, 0.1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quantize(tt.value, tt.step)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Quantize(%v, %v) = %v, want %v", tt.value, tt.step, got, tt.want)
			}
		})
	}
}

func TestQuantizeNeverRoundsUp(t *testing.T) {
	// A value one float ulp below a grid point must not land on it.
	value := math.Nextafter(1.7, 0)
	got := Quantize(value, 0.1)
	if got > value {
		t.Errorf("Quantize(%v, 0.1) = %v, rounded up", value, got)
	}
}
