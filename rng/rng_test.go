package rng

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministicWithSeed(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 10; i++ {
		require.Equal(t, a.Uniform01(), b.Uniform01())
	}
}

func TestExponentialLogPDF(t *testing.T) {
	s := New(1)
	rate := 2.0
	x := 0.5
	got := s.LogExponentialPDF(x, rate)
	want := math.Log(rate) - rate*x
	require.InDelta(t, want, got, 1e-9)
}

func TestNormalLogPDF(t *testing.T) {
	s := New(1)
	got := s.LogNormalPDF(0, 0, 1)
	want := -0.5 * math.Log(2*math.Pi)
	require.InDelta(t, want, got, 1e-9)
}

func TestUniformRange(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		x := s.Uniform(-2, 3)
		require.GreaterOrEqual(t, x, -2.0)
		require.Less(t, x, 3.0)
	}
}
