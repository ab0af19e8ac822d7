package model

import "github.com/altingia/bamm/event"

// Step selects one proposal kernel by categorical draw over the
// user-configured weights and executes it, then increments the
// generation counter (spec.md §4.1's one public operation).
func (m *Model) Step() {
	kernel := m.drawKernel()
	switch kernel {
	case kernelBirthDeath:
		m.proposeBirthDeath()
	case kernelMove:
		m.proposeMove()
	case kernelEventRate:
		m.proposeEventRate()
	case kernelLambdaInit:
		m.proposeMultiplicative(kernelLambdaInit, m.scales[kernelLambdaInit],
			func(r event.Regime) float64 { return r.LambdaInit },
			func(r *event.Regime, v float64) { r.LambdaInit = v })
	case kernelLambdaShift:
		m.proposeAdditive(kernelLambdaShift, m.scales[kernelLambdaShift],
			func(r event.Regime) float64 { return r.LambdaShift },
			func(r *event.Regime, v float64) { r.LambdaShift = v })
	case kernelMuInit:
		m.proposeMultiplicative(kernelMuInit, m.scales[kernelMuInit],
			func(r event.Regime) float64 { return r.MuInit },
			func(r *event.Regime, v float64) { r.MuInit = v })
	case kernelMuShift:
		m.proposeAdditive(kernelMuShift, m.scales[kernelMuShift],
			func(r event.Regime) float64 { return r.MuShift },
			func(r *event.Regime, v float64) { r.MuShift = v })
	case kernelBetaInit:
		m.proposeMultiplicative(kernelBetaInit, m.scales[kernelBetaInit],
			func(r event.Regime) float64 { return r.BetaInit },
			func(r *event.Regime, v float64) { r.BetaInit = v })
	case kernelBetaShift:
		m.proposeAdditive(kernelBetaShift, m.scales[kernelBetaShift],
			func(r event.Regime) float64 { return r.BetaShift },
			func(r *event.Regime, v float64) { r.BetaShift = v })
	case kernelNodeState:
		m.proposeNodeState()
	}
	m.generation++
}

// drawKernel performs the categorical draw over m.kernelNames weighted
// by m.weights (spec.md §4.1).
func (m *Model) drawKernel() string {
	total := 0.0
	for _, w := range m.weights {
		total += w
	}
	if total <= 0 {
		return m.kernelNames[0]
	}
	u := m.rng.Uniform(0, total)
	cum := 0.0
	for i, w := range m.weights {
		cum += w
		if u < cum {
			return m.kernelNames[i]
		}
	}
	return m.kernelNames[len(m.kernelNames)-1]
}
