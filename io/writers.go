package io

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// MCMCLogWriter writes the per-generation MCMC log (spec.md §6): log-
// likelihood, log-prior, event count, event rate, and an acceptance
// rate. mcmc.Driver supplies the unweighted mean of the per-kernel
// acceptance rates since the model's counters were last reset (after
// an accept-rate write or an autotune pass), not a rate since the
// previous row of this log.
type MCMCLogWriter struct {
	w   *csv.Writer
	f   *os.File
}

// NewMCMCLogWriter opens path and writes the header row.
func NewMCMCLogWriter(path string) (*MCMCLogWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("io: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"generation", "logLikelihood", "logPrior", "numEvents", "eventRate", "acceptRate"}); err != nil {
		f.Close()
		return nil, err
	}
	return &MCMCLogWriter{w: w, f: f}, nil
}

// Write appends one generation's row.
func (m *MCMCLogWriter) Write(generation int64, logL, logPrior float64, numEvents int, eventRate, acceptRate float64) error {
	return m.w.Write([]string{
		strconv.FormatInt(generation, 10),
		strconv.FormatFloat(logL, 'g', -1, 64),
		strconv.FormatFloat(logPrior, 'g', -1, 64),
		strconv.Itoa(numEvents),
		strconv.FormatFloat(eventRate, 'g', -1, 64),
		strconv.FormatFloat(acceptRate, 'g', -1, 64),
	})
}

// Flush flushes buffered rows to disk.
func (m *MCMCLogWriter) Flush() error {
	m.w.Flush()
	return m.w.Error()
}

// Close flushes and closes the underlying file.
func (m *MCMCLogWriter) Close() error {
	if err := m.Flush(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}

// EventDataWriter appends event-snapshot rows (spec.md §6), one row
// per currently-installed event, each generation it is asked to write.
type EventDataWriter struct {
	w     *csv.Writer
	f     *os.File
	trait bool
}

// NewEventDataWriter opens path and writes the header appropriate to
// the model family.
func NewEventDataWriter(path string, trait bool) (*EventDataWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("io: %w", err)
	}
	w := csv.NewWriter(f)
	w.Comma = '\t'
	header := []string{"generation", "leftchild", "rightchild", "abstime", "lambdainit", "lambdashift", "muinit", "mushift"}
	if trait {
		header = []string{"generation", "leftchild", "rightchild", "abstime", "betainit", "betashift"}
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return &EventDataWriter{w: w, f: f, trait: trait}, nil
}

// Write appends one event row.
func (e *EventDataWriter) Write(r EventRecord) error {
	row := []string{
		strconv.FormatInt(r.Generation, 10),
		r.LeftTip, r.RightTip,
		strconv.FormatFloat(r.AbsoluteTime, 'g', -1, 64),
	}
	if e.trait {
		row = append(row,
			strconv.FormatFloat(r.BetaInit, 'g', -1, 64),
			strconv.FormatFloat(r.BetaShift, 'g', -1, 64))
	} else {
		row = append(row,
			strconv.FormatFloat(r.LambdaInit, 'g', -1, 64),
			strconv.FormatFloat(r.LambdaShift, 'g', -1, 64),
			strconv.FormatFloat(r.MuInit, 'g', -1, 64),
			strconv.FormatFloat(r.MuShift, 'g', -1, 64))
	}
	return e.w.Write(row)
}

// Flush flushes buffered rows to disk.
func (e *EventDataWriter) Flush() error {
	e.w.Flush()
	return e.w.Error()
}

// Close flushes and closes the underlying file.
func (e *EventDataWriter) Close() error {
	if err := e.Flush(); err != nil {
		e.f.Close()
		return err
	}
	return e.f.Close()
}

// AcceptWriter writes the per-kernel acceptance-rate diagnostic
// (SPEC_FULL.md §4.12), one row per write, one column per proposal
// kind.
type AcceptWriter struct {
	w      *csv.Writer
	f      *os.File
	kinds  []string
	header bool
}

// NewAcceptWriter opens path; kinds fixes the column order.
func NewAcceptWriter(path string, kinds []string) (*AcceptWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("io: %w", err)
	}
	w := csv.NewWriter(f)
	row := append([]string{"generation"}, kinds...)
	if err := w.Write(row); err != nil {
		f.Close()
		return nil, err
	}
	return &AcceptWriter{w: w, f: f, kinds: kinds}, nil
}

// Write appends one row of acceptance rates, keyed by kind name.
func (a *AcceptWriter) Write(generation int64, rates map[string]float64) error {
	row := []string{strconv.FormatInt(generation, 10)}
	for _, k := range a.kinds {
		row = append(row, strconv.FormatFloat(rates[k], 'g', -1, 64))
	}
	return a.w.Write(row)
}

// Flush flushes buffered rows to disk.
func (a *AcceptWriter) Flush() error {
	a.w.Flush()
	return a.w.Error()
}

// Close flushes and closes the underlying file.
func (a *AcceptWriter) Close() error {
	if err := a.Flush(); err != nil {
		a.f.Close()
		return err
	}
	return a.f.Close()
}

// BranchRatesWriter writes per-node rates (spec.md §6 output sinks):
// one row per node, the rate value(s) the caller supplies for its
// inbound branch at the generation the snapshot was taken. The writer
// does no averaging of its own.
type BranchRatesWriter struct {
	w     *csv.Writer
	f     *os.File
	trait bool
}

// NewBranchRatesWriter opens path and writes the header.
func NewBranchRatesWriter(path string, trait bool) (*BranchRatesWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("io: %w", err)
	}
	w := csv.NewWriter(f)
	header := []string{"generation", "node", "lambda", "mu"}
	if trait {
		header = []string{"generation", "node", "beta"}
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return &BranchRatesWriter{w: w, f: f, trait: trait}, nil
}

// WriteDiversification appends one node's lambda/mu as supplied.
func (b *BranchRatesWriter) WriteDiversification(generation int64, node int, lambda, mu float64) error {
	return b.w.Write([]string{
		strconv.FormatInt(generation, 10), strconv.Itoa(node),
		strconv.FormatFloat(lambda, 'g', -1, 64), strconv.FormatFloat(mu, 'g', -1, 64),
	})
}

// WriteTrait appends one node's beta as supplied.
func (b *BranchRatesWriter) WriteTrait(generation int64, node int, beta float64) error {
	return b.w.Write([]string{
		strconv.FormatInt(generation, 10), strconv.Itoa(node),
		strconv.FormatFloat(beta, 'g', -1, 64),
	})
}

// Flush flushes buffered rows to disk.
func (b *BranchRatesWriter) Flush() error {
	b.w.Flush()
	return b.w.Error()
}

// Close flushes and closes the underlying file.
func (b *BranchRatesWriter) Close() error {
	if err := b.Flush(); err != nil {
		b.f.Close()
		return err
	}
	return b.f.Close()
}
