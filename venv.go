package remotelab

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// VenvOption selects which virtual environment an operation targets.
type VenvOption func(*venvConfig)

type venvConfig struct {
	name string
}

// WithVenv targets a specific virtual environment instead of the session's
// default.
func WithVenv(name string) VenvOption {
	return func(c *venvConfig) {
		c.name = name
	}
}

func (s *Session) venvName(opts []VenvOption) string {
	cfg := venvConfig{name: s.config.VenvName}
	for _, o := range opts {
		o(&cfg)
	}

	return cfg.name
}

// CreateVenv creates a Python virtual environment on the remote.
func (s *Session) CreateVenv(ctx context.Context, name string, out io.Writer) error {
	return s.RunScript(ctx, "python3 -m venv "+Quote(name), out)
}

// InstallPackages installs packages into the named (or default) virtual
// environment via a single activate-and-install command.
func (s *Session) InstallPackages(ctx context.Context, packages []string, out io.Writer, opts ...VenvOption) error {
	venv := s.venvName(opts)
	command := fmt.Sprintf(". %s && pip install %s", Quote(venv+"/bin/activate"), QuoteAll(packages))

	return s.RunScript(ctx, command, out)
}

// RunPythonFile runs a remote Python file inside the named (or default)
// virtual environment. Output streams live to out; the remote exit code is
// returned as data.
func (s *Session) RunPythonFile(ctx context.Context, path string, out io.Writer, opts ...VenvOption) (int, error) {
	venv := s.venvName(opts)
	command := fmt.Sprintf(". %s && python3 %s", Quote(venv+"/bin/activate"), Quote(path))

	return s.ExecuteStream(ctx, command, out, out)
}

// WriteAndRun writes code to a remote path over the file channel, then runs
// it with RunPythonFile.
func (s *Session) WriteAndRun(ctx context.Context, path, code string, out io.Writer, opts ...VenvOption) (int, error) {
	if err := s.WriteFile(ctx, path, []byte(code)); err != nil {
		return 0, err
	}

	return s.RunPythonFile(ctx, path, out, opts...)
}

// SetupOption configures SetupVenv.
type SetupOption func(*setupConfig)

type setupConfig struct {
	forceReinstall bool
}

// WithForceReinstall removes an existing environment before creating a
// fresh one.
func WithForceReinstall() SetupOption {
	return func(c *setupConfig) {
		c.forceReinstall = true
	}
}

// SetupVenv provisions a virtual environment end to end: optional removal
// of an existing environment, creation if absent, pip self-upgrade,
// streamed package installation, and a verification pass listing the
// installed packages. Progress narration is written to out.
func (s *Session) SetupVenv(ctx context.Context, name string, packages []string, out io.Writer, opts ...SetupOption) error {
	var cfg setupConfig
	for _, o := range opts {
		o(&cfg)
	}

	if name == "" {
		name = s.config.VenvName
	}

	if out == nil {
		out = io.Discard
	}

	fmt.Fprintf(out, "Setting up virtual environment: %s\n", name)

	if cfg.forceReinstall {
		fmt.Fprintln(out, "Removing existing virtual environment...")

		if _, err := s.Execute(ctx, "rm -rf "+Quote(name)); err != nil {
			return err
		}
	}

	res, err := s.Execute(ctx, "test -d "+Quote(name))
	if err != nil {
		return err
	}

	if res.Failed() {
		fmt.Fprintf(out, "Creating new virtual environment: %s\n", name)

		created, err := s.Execute(ctx, "python3 -m venv "+Quote(name))
		if err != nil {
			return err
		}

		if created.Failed() {
			return fmt.Errorf("venv creation exited with code %d: %s", created.ExitCode, created.Stderr)
		}
	} else {
		fmt.Fprintf(out, "Virtual environment already exists: %s\n", name)
	}

	pip := Quote(name + "/bin/pip")

	fmt.Fprintln(out, "Upgrading pip...")

	if _, err := s.Execute(ctx, pip+" install --upgrade pip"); err != nil {
		return err
	}

	fmt.Fprintf(out, "Installing: %s\n", strings.Join(packages, " "))

	code, err := s.ExecuteStream(ctx, pip+" install "+QuoteAll(packages), out, out)
	if err != nil {
		return err
	}

	if code != 0 {
		return fmt.Errorf("package installation exited with code %d", code)
	}

	// Verification: filter the installed-package listing by the requested names.
	pattern := strings.Join(packages, "|")

	listed, err := s.Execute(ctx, fmt.Sprintf("%s list | grep -E %s", pip, Quote(pattern)))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Installed packages:\n%s", listed.Stdout)

	return nil
}
