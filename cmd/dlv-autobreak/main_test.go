package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhd2015/dlv-autobreak/provision"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, showHelp, err := parseArgs(nil)
	require.NoError(t, err)
	require.False(t, showHelp)
	assert.Equal(t, "headless", opts.debugger)
	assert.Equal(t, "remote", opts.mode)
}

func TestParseArgsFlagsAndOperands(t *testing.T) {
	opts, showHelp, err := parseArgs([]string{
		"--debugger", "dap",
		"--mode", "exec",
		"--addr", "127.0.0.1:9999",
		"--program", "./bin/app",
		"--reset",
		"main.go:10",
		"server.go:42",
	})
	require.NoError(t, err)
	require.False(t, showHelp)
	assert.Equal(t, "dap", opts.debugger)
	assert.Equal(t, "exec", opts.mode)
	assert.Equal(t, "127.0.0.1:9999", opts.addr)
	assert.Equal(t, "./bin/app", opts.program)
	assert.True(t, opts.reset)
	assert.Equal(t, []string{"main.go:10", "server.go:42"}, opts.operands)
}

func TestParseArgsHelp(t *testing.T) {
	for _, args := range [][]string{{"help"}, {"-h"}, {"--help"}} {
		_, showHelp, err := parseArgs(args)
		require.NoError(t, err)
		assert.True(t, showHelp)
	}
}

func TestParseArgsErrors(t *testing.T) {
	_, _, err := parseArgs([]string{"--mode"})
	require.Error(t, err)

	_, _, err = parseArgs([]string{"--bogus"})
	require.Error(t, err)
}

func TestLoadSpecsPriority(t *testing.T) {
	t.Setenv(provision.EnvBreakpoints, "env.go:3")

	// Operands win over everything
	specs, err := loadSpecs(&options{
		operands:    []string{"args.go:1"},
		breakpoints: "flag.go:2",
	})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "args.go", specs[0].File)

	// Then the --breakpoints flag
	specs, err = loadSpecs(&options{breakpoints: "flag.go:2"})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "flag.go", specs[0].File)

	// Then the environment
	specs, err = loadSpecs(&options{})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "env.go", specs[0].File)
}

func TestLoadSpecsFromFile(t *testing.T) {
	t.Setenv(provision.EnvBreakpoints, "")
	path := filepath.Join(t.TempDir(), "breakpoints")
	require.NoError(t, os.WriteFile(path, []byte("file.go:4\n"), 0644))

	specs, err := loadSpecs(&options{breakpointsFile: path})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, provision.BreakpointSpec{File: "file.go", Line: 4}, specs[0])
}

func TestHandleNoBreakpoints(t *testing.T) {
	t.Setenv(provision.EnvBreakpoints, "")
	err := handle(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no breakpoints configured")
}
