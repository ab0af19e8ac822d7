// Package rng provides the reproducible scalar random draws and
// log-densities that the rjMCMC engine treats as an external
// collaborator (spec.md §2 item 1): uniform, exponential, and normal.
// It wraps gonum.org/v1/gonum/stat/distuv instead of hand-rolling
// inverse-CDF/Box-Muller sampling, the same way the phylogeography
// code in the example pack (js-arias/phygeo's diffusion and walk
// packages) leans on gonum for scalar distribution sampling over a
// tree.
package rng

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Source draws reproducible scalars and evaluates their log-densities.
// A *Source is not safe for concurrent use; the rjMCMC engine is
// strictly single-threaded (spec.md §5) so this is never a problem.
type Source struct {
	rnd *rand.Rand
}

// New returns a Source seeded deterministically. A seed of -1 derives
// the seed from the current time, per the control-file "seed" key
// (spec.md §6).
func New(seed int64) *Source {
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return &Source{rnd: rand.New(rand.NewSource(seed))}
}

// Uniform draws from Uniform(lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	d := distuv.Uniform{Min: lo, Max: hi, Src: s.rnd}
	return d.Rand()
}

// Uniform01 draws from Uniform(0, 1).
func (s *Source) Uniform01() float64 { return s.Uniform(0, 1) }

// Exponential draws from Exponential(rate).
func (s *Source) Exponential(rate float64) float64 {
	d := distuv.Exponential{Rate: rate, Src: s.rnd}
	return d.Rand()
}

// LogExponentialPDF returns the log-density of Exponential(rate) at x.
func (s *Source) LogExponentialPDF(x, rate float64) float64 {
	d := distuv.Exponential{Rate: rate, Src: s.rnd}
	return d.LogProb(x)
}

// Normal draws from Normal(mean, sd).
func (s *Source) Normal(mean, sd float64) float64 {
	d := distuv.Normal{Mu: mean, Sigma: sd, Src: s.rnd}
	return d.Rand()
}

// LogNormalPDF returns the log-density of Normal(mean, sd) at x.
func (s *Source) LogNormalPDF(x, mean, sd float64) float64 {
	d := distuv.Normal{Mu: mean, Sigma: sd, Src: s.rnd}
	return d.LogProb(x)
}

// Int63n draws a uniform integer in [0, n).
func (s *Source) Int63n(n int64) int64 { return s.rnd.Int63n(n) }

// Bool draws a fair coin flip; used by the birth-death kernel to choose
// between a birth and a death when the event set is non-empty.
func (s *Source) Bool() bool { return s.rnd.Float64() < 0.5 }
