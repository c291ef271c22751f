package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1000, 48000, 0.5, 48)
	if s[0] != 0 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	if math.Abs(s[12]-0.5) > 1e-12 {
		t.Fatalf("quarter period = %v, want 0.5", s[12])
	}
}

func TestDeterministicNoiseReproducible(t *testing.T) {
	a := DeterministicNoise(42, 1, 64)
	b := DeterministicNoise(42, 1, 64)
	c := DeterministicNoise(43, 1, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d differs for equal seeds", i)
		}
		if math.Abs(a[i]) > 1 {
			t.Fatalf("index %d out of amplitude: %v", i, a[i])
		}
	}
	if d, _ := MaxAbsDiff(a, c); d == 0 {
		t.Fatal("different seeds produced identical noise")
	}
}

func TestImpulse(t *testing.T) {
	x := Impulse(8, 3)
	if got := NonZero(x, 0); len(got) != 1 || got[0] != 3 {
		t.Fatalf("NonZero = %v, want [3]", got)
	}
	if got := NonZero(Impulse(4, 9), 0); len(got) != 0 {
		t.Fatalf("out-of-range impulse = %v, want none", got)
	}
}

func TestRamp(t *testing.T) {
	r := Ramp(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	RequireSliceNearlyEqual(t, r, want, 1e-12)

	if one := Ramp(3, 7, 1); one[0] != 7 {
		t.Fatalf("single-sample ramp = %v, want 7", one[0])
	}
}

func TestSilence(t *testing.T) {
	s := Silence(2, 3)
	if len(s) != 2 || len(s[1]) != 3 || s[1][2] != 0 {
		t.Fatalf("unexpected silence block: %v", s)
	}
}
