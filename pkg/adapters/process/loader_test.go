package process_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/studio/pkg/adapters/process"
	"github.com/aretw0/studio/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.FileLoader = (*process.Loader)(nil)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("loader tests use sh")
	}
}

func TestLoader_PassesFileThroughEnvironment(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()

	l := process.NewLoader("sh", []string{"-c", `printf '%s|%s|%s' "$STUDIO_FILE" "$STUDIO_FILE_EXT" "$PIPELINE" > out.txt`},
		process.WithDir(dir),
		process.WithEnv(map[string]string{"PIPELINE": "layout"}),
	)
	require.NoError(t, l.Load(context.Background(), "shots/sh010 --force.USDA"))

	out, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "shots/sh010 --force.USDA|usda|layout", string(out))
}

func TestLoader_FailureCarriesStderr(t *testing.T) {
	requireShell(t)

	l := process.NewLoader("sh", []string{"-c", "echo 'invalid prim path' >&2; exit 3"})
	err := l.Load(context.Background(), "bad.usda")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid prim path")
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestLoader_MissingCommand(t *testing.T) {
	l := process.NewLoader("studio-no-such-command", nil)
	assert.Error(t, l.Load(context.Background(), "a.usda"))
}

func TestLoader_HonoursContext(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := process.NewLoader("sleep", []string{"5"}).Load(ctx, "a.usda")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
}
