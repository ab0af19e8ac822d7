// Package traits loads the tip-indexed continuous trait values used
// by the Brownian-with-shifts likelihood (spec.md §4.7). The format is
// the plain two-column TSV ("tip\tvalue") that a BAMM control file
// names via traitfile, consistent with the rest of the control-file
// driven external-interface convention (spec.md §6).
package traits

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Load reads a tip/value TSV file and returns a map from tip name to
// observed trait value.
func Load(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("traits: %w", err)
	}
	defer f.Close()

	out := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("traits: %s:%d: expected 2 fields, got %d", path, line, len(fields))
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("traits: %s:%d: invalid trait value %q: %w", path, line, fields[1], err)
		}
		if _, dup := out[fields[0]]; dup {
			return nil, fmt.Errorf("traits: %s:%d: duplicate tip %q", path, line, fields[0])
		}
		out[fields[0]] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("traits: %w", err)
	}
	return out, nil
}

// Validate checks that every tip name has a matching trait value and
// reports the first mismatch, per spec.md §7 ("tip-name mismatch
// between tree and traits").
func Validate(tipNames []string, values map[string]float64) error {
	for _, name := range tipNames {
		if _, ok := values[name]; !ok {
			return fmt.Errorf("traits: tree tip %q has no trait value", name)
		}
	}
	return nil
}
