// Package clangformat invokes a clang-format style binary over selected
// line ranges of a file buffer. Haiku ships the same interface under the
// name haiku-format; any binary accepting repeated "-lines start:end" flags
// and a buffer on stdin works.
package clangformat

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/haiku/haiku-format-bot/cli/internal/erruser"
	"github.com/haiku/haiku-format-bot/cli/internal/segment"
)

// Runner is the formatter boundary the pipeline depends on. Format takes the
// full buffer as lines plus the ranges to restrict formatting to (none means
// the whole file) and returns the formatted lines, or nil when the formatter
// left the buffer unchanged. The formatter must be deterministic and must
// not touch lines outside the requested ranges.
type Runner interface {
	Format(ctx context.Context, lines []string, ranges []segment.Segment) ([]string, error)
}

// Command runs an external formatter binary.
type Command struct {
	path string
}

// New returns a Command that invokes the binary at path (resolved through
// PATH when not absolute).
func New(path string) *Command {
	return &Command{path: path}
}

// Path returns the configured binary name or path.
func (c *Command) Path() string {
	return c.path
}

// Format implements Runner. The buffer is written to the binary's stdin and
// the formatted buffer is read from its stdout. Any invocation failure is an
// error; there is no way to tell a crashed formatter from "no changes"
// otherwise.
func (c *Command) Format(ctx context.Context, lines []string, ranges []segment.Segment) ([]string, error) {
	args, err := rangeArgs(ranges)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdin = strings.NewReader(joinLines(lines))
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, erruser.New("Running the formatter failed.", err)
	}
	formatted := splitLines(string(out))
	if equalLines(lines, formatted) {
		return nil, nil
	}
	return formatted, nil
}

func rangeArgs(ranges []segment.Segment) ([]string, error) {
	args := make([]string, 0, 2*len(ranges))
	for _, r := range ranges {
		str, err := r.FormatRange()
		if err != nil {
			return nil, err
		}
		args = append(args, "-lines", str)
	}
	return args, nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// splitLines keeps empty output as an empty non-nil slice; a formatter that
// produced nothing is not the same as one that changed nothing.
func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
