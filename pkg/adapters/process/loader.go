// Package process runs external commands as file loaders, for example a stage
// validator or converter invoked once the user has picked a file.
package process

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/studio/internal/logging"
)

// Environment variables describing the chosen file. The path is never passed
// as an argument, so a crafted file name cannot inject flags.
const (
	EnvFile = "STUDIO_FILE"
	EnvExt  = "STUDIO_FILE_EXT"
)

// Loader is a ports.FileLoader that runs one configured command per file.
type Loader struct {
	command string
	args    []string
	dir     string
	env     map[string]string
	logger  *slog.Logger
}

// Option configures the Loader.
type Option func(*Loader)

// WithDir sets the working directory of the command.
func WithDir(dir string) Option {
	return func(l *Loader) {
		l.dir = dir
	}
}

// WithEnv adds environment variables to the command.
func WithEnv(env map[string]string) Option {
	return func(l *Loader) {
		l.env = env
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader running command with args.
func NewLoader(command string, args []string, opts ...Option) *Loader {
	l := &Loader{
		command: command,
		args:    append([]string(nil), args...),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.Component(l.logger, "process")
	return l
}

// Load runs the command for path. A non-zero exit is an error carrying stderr.
func (l *Loader) Load(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, l.command, l.args...)
	cmd.Dir = l.dir

	env := []string{
		EnvFile + "=" + path,
		EnvExt + "=" + strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
	}
	keys := make([]string, 0, len(l.env))
	for k := range l.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+l.env[k])
	}
	cmd.Env = append(cmd.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		l.logger.Warn("load command failed", "command", l.command, "path", path, "err", err, "stderr", msg)
		if msg != "" {
			return fmt.Errorf("%s %s: %w: %s", l.command, path, err, msg)
		}
		return fmt.Errorf("%s %s: %w", l.command, path, err)
	}

	l.logger.Debug("load command finished", "command", l.command, "path", path, "stdout", strings.TrimSpace(stdout.String()))
	return nil
}
