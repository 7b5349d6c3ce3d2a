// Package provision registers a configured list of breakpoints with a
// running debugging engine at session start.
package provision

import (
	"fmt"
	"strconv"
	"strings"
)

// BreakpointSpec is a source location where a breakpoint should be placed.
type BreakpointSpec struct {
	File string
	Line int
}

func (s BreakpointSpec) String() string {
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// ParseSpec parses a "file:line" location. The split happens at the last
// colon so paths containing colons (e.g. "C:/src/main.go:10") still parse.
func ParseSpec(s string) (BreakpointSpec, error) {
	idx := strings.LastIndex(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return BreakpointSpec{}, fmt.Errorf("invalid breakpoint location %q, expected file:line", s)
	}
	file := s[:idx]
	line, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return BreakpointSpec{}, fmt.Errorf("invalid line in breakpoint location %q: %w", s, err)
	}
	if line <= 0 {
		return BreakpointSpec{}, fmt.Errorf("invalid line %d in breakpoint location %q, must be positive", line, s)
	}
	return BreakpointSpec{File: file, Line: line}, nil
}

// ParseSpecList parses a newline- or comma-separated list of "file:line"
// locations. Empty entries are skipped. Order is preserved.
func ParseSpecList(s string) ([]BreakpointSpec, error) {
	var specs []BreakpointSpec
	entries := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ','
	})
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		spec, err := ParseSpec(entry)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
