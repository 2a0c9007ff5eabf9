package remotelab

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Result contains the outcome of a blocking command execution.
// A non-zero exit code is data, not an error.
type Result struct {
	Stdout   []byte        // Fully drained standard output
	Stderr   []byte        // Fully drained standard error
	ExitCode int           // Remote exit code (0 indicates success)
	Duration time.Duration // Time taken for execution
}

// Success returns true if the command completed with exit code 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Failed returns true if the command exited non-zero.
func (r *Result) Failed() bool {
	return !r.Success()
}

// Execute runs command on a fresh channel and blocks until both streams are
// fully drained and the exit code is known.
//
// Fails with ErrNotConnected before any remote call if the session is not
// connected.
func (s *Session) Execute(ctx context.Context, command string) (*Result, error) {
	transport, err := s.acquireTransport()
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer

	start := time.Now()

	code, err := runOnTransport(ctx, transport, command, &stdout, &stderr, nil)
	if err != nil {
		return nil, err
	}

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: code,
		Duration: time.Since(start),
	}, nil
}

// ExecuteStream runs command, forwarding output to the writers as it
// arrives rather than buffering it. Used for long-running operations where
// the caller wants live progress. Blocks until completion and returns the
// exit code; any remaining buffered output is flushed before the exit code
// is read.
func (s *Session) ExecuteStream(ctx context.Context, command string, stdout, stderr io.Writer) (int, error) {
	transport, err := s.acquireTransport()
	if err != nil {
		return 0, err
	}

	return runOnTransport(ctx, transport, command, stdout, stderr, nil)
}

// RunScript executes a multi-line script line by line, skipping blank lines
// and '#' comments. Each remaining line runs as an independent blocking
// command over a fresh channel; no shell state is shared between lines
// beyond what the remote shell itself persists. Command, stdout and any
// stderr are printed to out.
//
// A non-zero exit code does not stop the script; transport failures do.
func (s *Session) RunScript(ctx context.Context, script string, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	scanner := bufio.NewScanner(strings.NewReader(script))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fmt.Fprintf(out, "$ %s\n", line)

		res, err := s.Execute(ctx, line)
		if err != nil {
			return err
		}

		if len(res.Stdout) > 0 {
			_, _ = out.Write(res.Stdout)
		}

		if len(res.Stderr) > 0 {
			fmt.Fprintf(out, "STDERR: %s", res.Stderr)
		}
	}

	return scanner.Err()
}

// runOnTransport executes one command over a fresh channel, closing the
// channel when the context is cancelled to abort the in-flight command.
func runOnTransport(ctx context.Context, transport Transport, command string, stdout, stderr io.Writer, stdin io.Reader) (int, error) {
	channel, err := transport.Exec()
	if err != nil {
		return 0, err
	}

	defer func() { _ = channel.Close() }()

	watchDone := make(chan struct{})
	defer close(watchDone)

	go func() {
		select {
		case <-ctx.Done():
			_ = channel.Close()
		case <-watchDone:
		}
	}()

	code, err := channel.Run(command, stdout, stderr, stdin)
	if err != nil {
		if ctx.Err() != nil {
			return code, ctx.Err()
		}

		return code, err
	}

	return code, nil
}
