package model

import "math"

// proposeBirthDeath implements spec.md §4.3: with probability 1/2
// (unless K==0, which forces birth, or the event set can't shrink
// further) attempt a birth, else a death.
func (m *Model) proposeBirthDeath() {
	stat := m.stats[kernelBirthDeath]
	stat.proposed++

	K := len(m.eventOrder)
	doBirth := K == 0 || m.rng.Bool()
	if doBirth {
		if m.proposeBirth() {
			stat.accepted++
		}
		return
	}
	if m.proposeDeath() {
		stat.accepted++
	}
}

// proposeBirth draws a map location and a regime from the prior,
// inserts the event, and accepts/rejects by Metropolis-Hastings
// (spec.md §4.3 "Birth").
func (m *Model) proposeBirth() bool {
	x := m.rng.Uniform(0, m.tr.TotalMapLength())
	attach, _, err := m.tr.InverseMap(x)
	if err != nil {
		return false
	}
	if tips := m.tr.NumDescendantTips(attach); tips < m.settings.MinCladeSizeForShift {
		return false
	}

	logLOld, logPriorOld := m.logL, m.logPrior
	regime, timeVar := m.drawRegimeFromPrior()
	logQJump := m.logRegimeDrawDensity(regime)

	id := m.hist.InsertEvent(attach, x, regime, timeVar)
	if m.violatesI4(attach) {
		m.hist.RemoveEvent(id)
		return false
	}
	m.eventOrder = insertSorted(m.eventOrder, id)

	newLogL := m.computeLogL()
	newLogPrior := m.computeLogPrior()
	K := len(m.eventOrder) - 1 // K before this birth

	logQRatio := 0.0
	if K == 0 {
		logQRatio = math.Log(0.5)
	}

	logAlpha := (newLogL - logLOld) +
		(newLogPrior - logPriorOld) +
		math.Log(m.eventRate) - math.Log(float64(K+1)) +
		logQRatio -
		logQJump

	if m.accept(logAlpha) {
		m.logL, m.logPrior = newLogL, newLogPrior
		return true
	}

	m.hist.RemoveEvent(id)
	m.eventOrder = removeSorted(m.eventOrder, id)
	m.logL, m.logPrior = logLOld, logPriorOld
	return false
}

// proposeDeath uniformly removes a non-root event and accepts/rejects
// by the symmetric counterpart of proposeBirth (spec.md §4.3 "Death").
func (m *Model) proposeDeath() bool {
	K := len(m.eventOrder)
	if K == 0 {
		return false
	}
	idx := int(m.rng.Int63n(int64(K)))
	id := m.eventOrder[idx]
	e := m.hist.Event(id)
	savedAttach := e.AttachNode()
	savedMapTime := e.MapTime()
	savedRegime := e.Regime()
	savedTimeVar := e.IsTimeVariable()

	logLOld, logPriorOld := m.logL, m.logPrior
	logQJump := m.logRegimeDrawDensity(savedRegime)

	m.hist.RemoveEvent(id)
	m.eventOrder = removeSorted(m.eventOrder, id)

	newLogL := m.computeLogL()
	newLogPrior := m.computeLogPrior()

	logQRatio := 0.0
	if K == 1 {
		logQRatio = math.Log(2)
	}

	logAlpha := (newLogL - logLOld) +
		(newLogPrior - logPriorOld) +
		math.Log(float64(K)) - math.Log(m.eventRate) +
		logQRatio +
		logQJump

	if m.accept(logAlpha) {
		m.logL, m.logPrior = newLogL, newLogPrior
		return true
	}

	restored := m.hist.InsertEvent(savedAttach, savedMapTime, savedRegime, savedTimeVar)
	m.eventOrder = insertSorted(m.eventOrder, restored)
	m.logL, m.logPrior = logLOld, logPriorOld
	return false
}
