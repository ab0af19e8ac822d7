package model

// autotuneTargetLow and autotuneTargetHigh bound the acceptance-rate
// window Autotune nudges each kernel's move scale toward (spec.md §1
// Non-goals' "optional scale adjustment", SPEC_FULL.md §4.17).
const (
	autotuneTargetLow  = 0.2
	autotuneTargetHigh = 0.4
	autotuneFactor     = 1.1
)

// Autotune nudges every scaled kernel's move-scale parameter by a
// small multiplicative factor, up if its acceptance rate since the
// counters were last reset (by the previous call or by a ResetStats
// after an accept-rate write) has run above autotuneTargetHigh, down if below
// autotuneTargetLow, then resets every kernel's accept/reject counters
// so the next window starts clean. Driven by mcmc.Driver at a fixed
// multiple of printFreq when config.Settings.Autotune is set.
func (m *Model) Autotune() {
	for kernel, scale := range m.scales {
		stat, ok := m.stats[kernel]
		if !ok || stat.proposed == 0 {
			continue
		}
		rate := stat.acceptRate()
		switch {
		case rate > autotuneTargetHigh:
			m.scales[kernel] = scale * autotuneFactor
		case rate < autotuneTargetLow:
			m.scales[kernel] = scale / autotuneFactor
		}
	}
	m.ResetStats()
}
