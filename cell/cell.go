// Package cell maps notebook-style cell directives onto session operations.
//
// A directive line selects the execution mode for a cell body:
//
//	""                                  shell commands, line by line
//	"python"                            Python via the default venv if present
//	"python:ml_env"                     Python via a named venv
//	"python persistent script.py"       append body to a file, then run it
//	"python:ml_env persistent script.py"
//
// The package holds no connection state; callers pass an explicit
// *remotelab.Session into Run.
package cell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"github.com/remotelab/remotelab"
)

// Mode selects how a cell body is executed.
type Mode int

const (
	// ModeShell runs the body as shell commands, one per line.
	ModeShell Mode = iota
	// ModePython pipes the body into a Python interpreter.
	ModePython
)

// DefaultPersistentFile is the append target when persistent mode names no file.
const DefaultPersistentFile = "persistent.py"

// Directive is a parsed cell mode line.
type Directive struct {
	Mode       Mode
	Venv       string // Named venv, or "" for autodetection
	Persistent bool   // Append body to Filename and run the file
	Filename   string // Persistent target, defaults to DefaultPersistentFile
}

// Parse parses a directive line. An empty line selects shell mode.
func Parse(line string) (Directive, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return Directive{}, fmt.Errorf("failed to parse directive: %w", err)
	}

	if len(tokens) == 0 {
		return Directive{Mode: ModeShell}, nil
	}

	mode, venv, found := strings.Cut(tokens[0], ":")
	if mode != "python" {
		return Directive{}, fmt.Errorf("unknown mode %q: expected empty line or python[:venv]", tokens[0])
	}

	if found && venv == "" {
		return Directive{}, errors.New("empty venv name in python: directive")
	}

	d := Directive{
		Mode: ModePython,
		Venv: venv,
	}

	rest := tokens[1:]
	if len(rest) == 0 {
		return d, nil
	}

	if rest[0] != "persistent" {
		return Directive{}, fmt.Errorf("unknown argument %q: expected persistent", rest[0])
	}

	d.Persistent = true
	d.Filename = DefaultPersistentFile

	if len(rest) > 1 {
		d.Filename = rest[1]
	}

	if len(rest) > 2 {
		return Directive{}, fmt.Errorf("unexpected trailing arguments: %v", rest[2:])
	}

	return d, nil
}

// Run executes the cell body on the given session according to the
// directive, writing command output to out.
func (d Directive) Run(ctx context.Context, s *remotelab.Session, body string, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	if d.Mode == ModeShell {
		return s.RunScript(ctx, body, out)
	}

	python, err := d.interpreter(ctx, s)
	if err != nil {
		return err
	}

	var command string

	if d.Persistent {
		// Append the body to the file, then run the whole file.
		command = fmt.Sprintf("cat >> %s << 'REMOTELAB_EOF'\n%s\nREMOTELAB_EOF\n%s %s",
			remotelab.Quote(d.Filename), body, python, remotelab.Quote(d.Filename))
	} else {
		command = fmt.Sprintf("%s << 'REMOTELAB_EOF'\n%s\nREMOTELAB_EOF", python, body)
	}

	res, err := s.Execute(ctx, command)
	if err != nil {
		return err
	}

	if len(res.Stderr) > 0 {
		fmt.Fprintf(out, "STDERR: %s", res.Stderr)
	}

	if len(res.Stdout) > 0 {
		_, _ = out.Write(res.Stdout)
	}

	return nil
}

// interpreter picks the Python binary: the named venv if given, otherwise
// the session's default venv when it exists on the remote, otherwise the
// system python3.
func (d Directive) interpreter(ctx context.Context, s *remotelab.Session) (string, error) {
	venv := d.Venv
	if venv == "" {
		venv = s.Config().VenvName

		res, err := s.Execute(ctx, "test -f "+remotelab.Quote(venv+"/bin/python3"))
		if err != nil {
			return "", err
		}

		if res.Failed() {
			return "python3", nil
		}
	}

	return remotelab.Quote(venv + "/bin/python3"), nil
}
