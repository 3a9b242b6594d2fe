package utils

import (
	"math"
	"testing"
)

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v", v)
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector should be unchanged, got %v", zero)
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"identical", []float32{1, 2}, []float32{1, 2}, 0},
		{"mixed", []float32{1, -1}, []float32{-1, 1}, 8},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SquaredL2(tt.a, tt.b); got != tt.want {
				t.Errorf("SquaredL2 = %v, want %v", got, tt.want)
			}
		})
	}
}
