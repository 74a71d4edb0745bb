// Package process runs external tools and streams their output line by line.
package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"strings"
)

// ErrMissingBinary is returned when the executable cannot be found.
var ErrMissingBinary = errors.New("binary not found")

// maxLineSize bounds a single streamed output line.
const maxLineSize = 1 << 20

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes name with args and captures stdout and stderr separately. A
// non-zero exit is reported both in Result.ExitCode and as a non-nil error.
func Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		return classify(res, name, err)
	}
	return res, nil
}

// Cmd describes a process to stream.
type Cmd struct {
	Name string
	Args []string
	Dir  string
	// Started, if set, is called once the process is running.
	Started func()
}

// Stream runs c with stdout and stderr merged, calling onLine for every
// output line (trailing CR trimmed) as it arrives. It returns the exit code
// once the process has exited and its output is drained.
func Stream(ctx context.Context, c Cmd, onLine func(string)) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		res, err := classify(Result{}, c.Name, err)
		return res.ExitCode, err
	}
	if c.Started != nil {
		c.Started()
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		onLine(strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		// Keep draining so the writer side never blocks.
		_, _ = io.Copy(io.Discard, pr)
	}

	res, err := classify(Result{}, c.Name, <-waitErr)
	return res.ExitCode, err
}

// ExitCode extracts the process exit code from err, or -1 when err does not
// describe an exited process.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func classify(res Result, name string, err error) (Result, error) {
	if err == nil {
		return res, nil
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Op == "chdir" {
		res.ExitCode = -1
		return res, fmt.Errorf("working directory: %w", err)
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		res.ExitCode = -1
		return res, fmt.Errorf("%w: %s", ErrMissingBinary, name)
	}
	res.ExitCode = ExitCode(err)
	return res, err
}

// Tail returns at most the last n non-empty lines of s joined by newlines.
func Tail(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	out := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			out = append([]string{l}, out...)
		}
	}
	return strings.Join(out, "\n")
}
