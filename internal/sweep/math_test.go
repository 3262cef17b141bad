package sweep

import (
	"math"
	"testing"
)

func TestMeanStddev(t *testing.T) {
	tests := []struct {
		name       string
		input      []float64
		wantMean   float64
		wantStddev float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{4}, 4, 0},
		{"constant", []float64{2, 2, 2, 2}, 2, 0},
		{"known", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 5, 2.13808993529939},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, stddev := MeanStddev(tt.input)
			if math.Abs(mean-tt.wantMean) > 1e-9 {
				t.Errorf("mean = %v, want %v", mean, tt.wantMean)
			}
			if math.Abs(stddev-tt.wantStddev) > 1e-9 {
				t.Errorf("stddev = %v, want %v", stddev, tt.wantStddev)
			}
		})
	}
}
