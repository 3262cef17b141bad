package sweep

import (
	"math"
	"testing"
)

func TestParseRangeSpec(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RangeSpec
		wantErr bool
	}{
		{"valid", "0.5:5:0.25", RangeSpec{Min: 0.5, Max: 5, Step: 0.25}, false},
		{"spaces", " 1 : 2 : 0.5 ", RangeSpec{Min: 1, Max: 2, Step: 0.5}, false},
		{"two parts", "1:2", RangeSpec{}, true},
		{"four parts", "1:2:3:4", RangeSpec{}, true},
		{"bad min", "x:2:1", RangeSpec{}, true},
		{"bad max", "1:y:1", RangeSpec{}, true},
		{"bad step", "1:2:z", RangeSpec{}, true},
		{"zero step", "1:2:0", RangeSpec{}, true},
		{"negative step", "1:2:-1", RangeSpec{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRangeSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRangeSpec(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseRangeSpec(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateRange(t *testing.T) {
	tests := []struct {
		name           string
		min, max, step float64
		want           []float64
	}{
		{"simple", 1, 3, 1, []float64{1, 2, 3}},
		{"fractional", 0.5, 1.5, 0.25, []float64{0.5, 0.75, 1.0, 1.25, 1.5}},
		{"single", 2, 2, 1, []float64{2}},
		{"min above max", 3, 1, 1, nil},
		{"zero step", 1, 3, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRange(tt.min, tt.max, tt.step)
			if len(got) != len(tt.want) {
				t.Fatalf("GenerateRange(%v, %v, %v) = %v, want %v", tt.min, tt.max, tt.step, got, tt.want)
			}
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 1e-9 {
					t.Errorf("value %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestGenerateRangeDefaultSweep(t *testing.T) {
	// The default sweep 0.5..5 step 0.25 must include both endpoints.
	values := GenerateRange(0.5, 5.0, 0.25)
	if len(values) != 19 {
		t.Fatalf("expected 19 values, got %d: %v", len(values), values)
	}
	if values[0] != 0.5 || values[len(values)-1] != 5.0 {
		t.Errorf("endpoints = %v, %v; want 0.5, 5.0", values[0], values[len(values)-1])
	}
}

func TestParseParamList(t *testing.T) {
	t.Run("range spec", func(t *testing.T) {
		got, err := ParseParamList("1:2:0.5")
		if err != nil {
			t.Fatal(err)
		}
		want := []float64{1, 1.5, 2}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})

	t.Run("csv", func(t *testing.T) {
		got, err := ParseParamList("0.5, 1.25,3")
		if err != nil {
			t.Fatal(err)
		}
		want := []float64{0.5, 1.25, 3}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("value %d = %v, want %v", i, got[i], want[i])
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		got, err := ParseParamList("")
		if err != nil || got != nil {
			t.Errorf("got %v, %v; want nil, nil", got, err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := ParseParamList("1,banana"); err == nil {
			t.Error("expected error for invalid float")
		}
	})
}
