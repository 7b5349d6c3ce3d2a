package provision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsSource(t *testing.T) {
	specs, err := ArgsSource{"main.go:10", "server.go:42"}.Specs()
	require.NoError(t, err)
	assert.Equal(t, []BreakpointSpec{
		{File: "main.go", Line: 10},
		{File: "server.go", Line: 42},
	}, specs)

	_, err = ArgsSource{"nope"}.Specs()
	assert.Error(t, err)
}

func TestEnvSource(t *testing.T) {
	t.Setenv(EnvBreakpoints, "main.go:10,server.go:42")
	specs, err := EnvSource{}.Specs()
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "server.go", specs[1].File)
}

func TestEnvSourceUnset(t *testing.T) {
	t.Setenv(EnvBreakpoints, "")
	specs, err := EnvSource{}.Specs()
	require.NoError(t, err)
	assert.Empty(t, specs)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "breakpoints")
	content := "# session defaults\nmain.go:10\n\nserver.go:42\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	specs, err := FileSource(path).Specs()
	require.NoError(t, err)
	assert.Equal(t, []BreakpointSpec{
		{File: "main.go", Line: 10},
		{File: "server.go", Line: 42},
	}, specs)
}

func TestFileSourceMissing(t *testing.T) {
	_, err := FileSource(filepath.Join(t.TempDir(), "absent")).Specs()
	assert.Error(t, err)
}
