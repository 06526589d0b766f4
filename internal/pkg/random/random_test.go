package random

import (
	"testing"

	"pgregory.net/rapid"
)

func TestBetweenStaysInBounds(t *testing.T) {
	src := NewSeeded(1, 2)
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.IntRange(-1000, 1000).Draw(t, "lo")
		hi := rapid.IntRange(-1000, 1000).Draw(t, "hi")

		v := Between(src, lo, hi)

		minV, maxV := min(lo, hi), max(lo, hi)
		if v < minV || v > maxV {
			t.Fatalf("Between(%d, %d) = %d out of range", lo, hi, v)
		}
	})
}

func TestChanceExtremes(t *testing.T) {
	src := NewSeeded(3, 4)
	for i := 0; i < 1000; i++ {
		if Chance(src, 0) {
			t.Fatal("Chance(0) returned true")
		}
		if !Chance(src, 1) {
			t.Fatal("Chance(1) returned false")
		}
	}
}
