package io

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EventRecord is one row of the event-data snapshot TSV (spec.md §6):
// "generation, leftTipName, rightTipName, absoluteTime, then either
// (lambdaInit, lambdaShift, muInit, muShift) or (betaInit, betaShift)".
type EventRecord struct {
	Generation   int64
	LeftTip      string
	RightTip     string
	AbsoluteTime float64
	LambdaInit   float64
	LambdaShift  float64
	MuInit       float64
	MuShift      float64
	BetaInit     float64
	BetaShift    float64
}

// IsRoot reports whether the record denotes the sentinel root event
// (leftTip == rightTip == "NA").
func (r EventRecord) IsRoot() bool { return r.LeftTip == "NA" && r.RightTip == "NA" }

// IsTerminal reports whether the record denotes an event on a single
// tip's terminal branch (exactly one of leftTip/rightTip is "NA").
func (r EventRecord) IsTerminal() (tip string, ok bool) {
	if r.LeftTip == "NA" && r.RightTip != "NA" {
		return r.RightTip, true
	}
	if r.RightTip == "NA" && r.LeftTip != "NA" {
		return r.LeftTip, true
	}
	return "", false
}

// ReadEventSnapshot parses an event-data TSV. trait selects whether
// the last two numeric columns are (betaInit, betaShift) instead of
// the diversification model's four columns.
func ReadEventSnapshot(path string, trait bool) ([]EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("io: %w", err)
	}
	defer f.Close()

	var out []EventRecord
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "generation") {
			continue
		}
		fields := strings.Split(line, "\t")
		wantFields := 8
		if trait {
			wantFields = 6
		}
		if len(fields) != wantFields {
			return nil, fmt.Errorf("io: %s:%d: expected %d columns, got %d", path, lineNo, wantFields, len(fields))
		}
		rec := EventRecord{LeftTip: fields[1], RightTip: fields[2]}
		var err error
		if rec.Generation, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
			return nil, fmt.Errorf("io: %s:%d: generation: %w", path, lineNo, err)
		}
		if rec.AbsoluteTime, err = strconv.ParseFloat(fields[3], 64); err != nil {
			return nil, fmt.Errorf("io: %s:%d: absoluteTime: %w", path, lineNo, err)
		}
		if trait {
			if rec.BetaInit, err = strconv.ParseFloat(fields[4], 64); err != nil {
				return nil, fmt.Errorf("io: %s:%d: betaInit: %w", path, lineNo, err)
			}
			if rec.BetaShift, err = strconv.ParseFloat(fields[5], 64); err != nil {
				return nil, fmt.Errorf("io: %s:%d: betaShift: %w", path, lineNo, err)
			}
		} else {
			vals := make([]float64, 4)
			for i := 0; i < 4; i++ {
				if vals[i], err = strconv.ParseFloat(fields[4+i], 64); err != nil {
					return nil, fmt.Errorf("io: %s:%d: column %d: %w", path, lineNo, 4+i, err)
				}
			}
			rec.LambdaInit, rec.LambdaShift, rec.MuInit, rec.MuShift = vals[0], vals[1], vals[2], vals[3]
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("io: %w", err)
	}
	return out, nil
}
