package provision

import (
	"fmt"
	"os"
	"strings"
)

// EnvBreakpoints is the environment variable consulted by EnvSource. It
// holds a comma- or newline-separated list of file:line locations.
const EnvBreakpoints = "DLV_AUTOBREAK_BREAKPOINTS"

// SpecSource supplies the breakpoint list from some external configuration.
// Keeping the source behind an interface decouples where the specs come
// from (flags, environment, a file) from the provisioning logic.
type SpecSource interface {
	Specs() ([]BreakpointSpec, error)
}

// ArgsSource parses specs from command-line values, one "file:line" each.
type ArgsSource []string

func (a ArgsSource) Specs() ([]BreakpointSpec, error) {
	specs := make([]BreakpointSpec, 0, len(a))
	for _, arg := range a {
		spec, err := ParseSpec(arg)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// EnvSource reads specs from the EnvBreakpoints environment variable.
type EnvSource struct{}

func (EnvSource) Specs() ([]BreakpointSpec, error) {
	value := os.Getenv(EnvBreakpoints)
	if value == "" {
		return nil, nil
	}
	specs, err := ParseSpecList(value)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", EnvBreakpoints, err)
	}
	return specs, nil
}

// FileSource reads specs from a file, one "file:line" per line. Blank lines
// and lines starting with '#' are skipped.
type FileSource string

func (f FileSource) Specs() ([]BreakpointSpec, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("read breakpoints file: %w", err)
	}
	var specs []BreakpointSpec
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		spec, err := ParseSpec(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
