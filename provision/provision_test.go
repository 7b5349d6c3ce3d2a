package provision

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine implements Engine with monotonically increasing breakpoint IDs.
// Locations listed in reject fail resolution, mirroring how a real engine
// reports an unknown file or a line with no statement.
type fakeEngine struct {
	nextID     int
	registered []BreakpointSpec
	reject     map[string]bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{nextID: 1, reject: make(map[string]bool)}
}

func (e *fakeEngine) SetBreakpoint(file string, line int) (int, error) {
	loc := fmt.Sprintf("%s:%d", file, line)
	if e.reject[loc] {
		return 0, fmt.Errorf("could not find statement at %s: %w", loc, ErrUnresolvedLocation)
	}
	id := e.nextID
	e.nextID++
	e.registered = append(e.registered, BreakpointSpec{File: file, Line: line})
	return id, nil
}

func TestProvisionReturnsHandlesInInputOrder(t *testing.T) {
	engine := newFakeEngine()
	specs := []BreakpointSpec{
		{File: "main.go", Line: 10},
		{File: "server.go", Line: 42},
		{File: "main.go", Line: 99},
	}

	handles, err := Provision(engine, specs)
	require.NoError(t, err)
	require.Len(t, handles, len(specs))

	for i, h := range handles {
		assert.Equal(t, specs[i].File, h.File)
		assert.Equal(t, specs[i].Line, h.Line)
	}
	assert.Equal(t, specs, engine.registered)
}

func TestProvisionReRunCreatesNewHandles(t *testing.T) {
	engine := newFakeEngine()
	specs := []BreakpointSpec{
		{File: "main.go", Line: 10},
		{File: "main.go", Line: 20},
	}

	first, err := Provision(engine, specs)
	require.NoError(t, err)
	second, err := Provision(engine, specs)
	require.NoError(t, err)

	// The provisioner never deduplicates: a second run registers a fresh
	// breakpoint per spec and yields distinct IDs.
	require.Len(t, engine.registered, 4)
	for i := range first {
		assert.NotEqual(t, first[i].ID, second[i].ID)
	}
}

func TestProvisionAbortsOnFirstUnresolvedLocation(t *testing.T) {
	engine := newFakeEngine()
	engine.reject["missing.go:5"] = true
	specs := []BreakpointSpec{
		{File: "main.go", Line: 10},
		{File: "missing.go", Line: 5},
		{File: "main.go", Line: 20},
	}

	handles, err := Provision(engine, specs)
	require.ErrorIs(t, err, ErrUnresolvedLocation)
	assert.Contains(t, err.Error(), "missing.go:5")

	// The failing spec stops the run: the spec after it is never attempted,
	// and the breakpoint registered before it stays registered.
	require.Len(t, handles, 1)
	assert.Equal(t, "main.go", handles[0].File)
	require.Len(t, engine.registered, 1)
}

func TestProvisionUnresolvedFileRegistersNothing(t *testing.T) {
	engine := newFakeEngine()
	engine.reject["missing.src:1"] = true

	handles, err := Provision(engine, []BreakpointSpec{{File: "missing.src", Line: 1}})
	require.ErrorIs(t, err, ErrUnresolvedLocation)
	assert.Empty(t, handles)
	assert.Empty(t, engine.registered)
}

func TestProvisionAndReport(t *testing.T) {
	engine := newFakeEngine()
	specs := []BreakpointSpec{
		{File: "a.src", Line: 10},
		{File: "a.src", Line: 20},
	}

	handles, err := Provision(engine, specs)
	require.NoError(t, err)
	require.Len(t, handles, 2)

	var out bytes.Buffer
	require.NoError(t, Report(&out, handles))

	line := out.String()
	assert.Equal(t, "breakpoints: 1 at a.src:10, 2 at a.src:20\n", line)
}

func TestReportEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Report(&out, nil))
	assert.Equal(t, "breakpoints: none\n", out.String())
}
