package remotelab

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Default values applied by WithDefaults for fields absent from the config file.
const (
	DefaultPort        = 22
	DefaultTmuxSession = "main"
	DefaultVenvName    = "ml_env"
	DefaultTimeout     = 10 * time.Second
)

// Config holds all parameters required to establish a remote session.
type Config struct {
	// Connection details
	Host string // Hostname or IP address
	Port int    // Port number (default 22)
	User string // Username to authenticate as

	// Authentication methods (tried in order: password, key file, agent)
	Password string // Password for authentication (use sparingly)
	KeyFile  string // Path to private key file (e.g. "~/.ssh/id_rsa")
	UseAgent bool   // If true, attempt to connect to SSH_AUTH_SOCK

	// Remote environment
	TmuxSession string // Name of the persistent multiplexer session (default "main")
	VenvName    string // Default Python virtual environment name (default "ml_env")

	// Connection settings
	Timeout            time.Duration       // Connection timeout (default 10s)
	HostKeyCheck       ssh.HostKeyCallback // Callback to verify host key. You normally generate this from known_hosts.
	InsecureSkipVerify bool                // If true, disables strict host key checking. Use ONLY for testing.
}

// NewConfig creates a Config with safe defaults.
// Note: It does NOT set a default HostKeyCheck. You must provide one or set InsecureSkipVerify=true.
func NewConfig(host, username string) Config {
	return Config{
		Host:    host,
		User:    username,
		Port:    DefaultPort,
		Timeout: DefaultTimeout,
	}
}

// Load reads a key=value connection config file from path.
//
// A missing file is reported as an error matching both ErrConfigNotFound and
// fs.ErrNotExist; the caller decides whether that is fatal.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %w", ErrConfigNotFound, err)
		}

		return Config{}, fmt.Errorf("failed to open config %q: %w", path, err)
	}

	defer func() { _ = f.Close() }()

	return Decode(f)
}

// Decode parses line-oriented key=value config data.
//
// Blank lines and lines starting with '#' are skipped. Each remaining line is
// split on the first '=' with surrounding whitespace trimmed from key and
// value. Unrecognized keys are ignored.
func Decode(r io.Reader) (Config, error) {
	var c Config

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "hostname":
			c.Host = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return Config{}, fmt.Errorf("invalid port %q: %w", value, err)
			}

			c.Port = port
		case "username":
			c.User = value
		case "password":
			c.Password = value
		case "key_filename":
			c.KeyFile = value
		case "tmux_session":
			c.TmuxSession = value
		case "venv_name":
			c.VenvName = value
		}
	}

	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	return c, nil
}

// Encode writes the config back out in the key=value file format.
// Only fields with non-zero values are emitted.
func (c Config) Encode(w io.Writer) error {
	fields := []struct {
		key   string
		value string
	}{
		{"hostname", c.Host},
		{"port", portString(c.Port)},
		{"username", c.User},
		{"password", c.Password},
		{"key_filename", c.KeyFile},
		{"tmux_session", c.TmuxSession},
		{"venv_name", c.VenvName},
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}

		if _, err := fmt.Fprintf(w, "%s=%s\n", f.key, f.value); err != nil {
			return err
		}
	}

	return nil
}

func portString(port int) string {
	if port == 0 {
		return ""
	}

	return strconv.Itoa(port)
}

// LoadSSHConfig resolves connection details for an alias from an OpenSSH
// config file. If path is empty, ~/.ssh/config is used.
func LoadSSHConfig(alias, path string) (Config, error) {
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".ssh", "config")
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open ssh config: %w", err)
	}

	defer func() { _ = f.Close() }()

	return DecodeSSHConfig(alias, f)
}

// DecodeSSHConfig parses OpenSSH config data and resolves the alias to the
// actual HostName, User, Port and IdentityFile.
func DecodeSSHConfig(alias string, r io.Reader) (Config, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse ssh config: %w", err)
	}

	hostName, err := cfg.Get(alias, "HostName")
	if err != nil || hostName == "" {
		hostName = alias // Fallback if no HostName defined
	}

	username, _ := cfg.Get(alias, "User")
	if username == "" {
		// Use current system user if not specified in config
		u, _ := user.Current()
		if u != nil {
			username = u.Username
		}
	}

	portStr, _ := cfg.Get(alias, "Port")

	port := DefaultPort
	if portStr != "" {
		_, _ = fmt.Sscanf(portStr, "%d", &port)
	}

	identityFile, _ := cfg.Get(alias, "IdentityFile")
	if strings.HasPrefix(identityFile, "~/") {
		identityFile = filepath.Join(os.Getenv("HOME"), identityFile[2:])
	}

	c := NewConfig(hostName, username)
	c.Port = port
	c.KeyFile = identityFile

	strict, _ := cfg.Get(alias, "StrictHostKeyChecking")
	if strict == "no" {
		c.InsecureSkipVerify = true
	}

	return c, nil
}

// WithDefaults sets default values for zero-valued fields.
func (c Config) WithDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}

	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}

	if c.TmuxSession == "" {
		c.TmuxSession = DefaultTmuxSession
	}

	if c.VenvName == "" {
		c.VenvName = DefaultVenvName
	}

	// If insecure is requested and no callback provided, use insecure ignore.
	if c.InsecureSkipVerify && c.HostKeyCheck == nil {
		c.HostKeyCheck = ssh.InsecureIgnoreHostKey()
	}

	return c
}

// Validate ensures all required fields are present.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("configuration error: host address cannot be empty")
	}

	if c.User == "" {
		return errors.New("configuration error: user cannot be empty")
	}

	if c.Password == "" && c.KeyFile == "" && !c.UseAgent {
		return errors.New("configuration error: no authentication method; set password, key_filename or UseAgent")
	}

	if c.HostKeyCheck == nil {
		return errors.New("configuration error: HostKeyCheck is missing; you must provide a callback (e.g. valid 'known_hosts') or set InsecureSkipVerify=true (testing only)")
	}

	return nil
}

// ToClientConfig converts the Config to the underlying ssh.ClientConfig,
// assembling the configured authentication methods.
func (c Config) ToClientConfig() (*ssh.ClientConfig, error) {
	config := &ssh.ClientConfig{
		User:            c.User,
		Auth:            []ssh.AuthMethod{},
		HostKeyCallback: c.HostKeyCheck,
		Timeout:         c.Timeout,
	}

	if c.Password != "" {
		config.Auth = append(config.Auth, ssh.Password(c.Password))
	}

	if keyAuth, err := loadPrivateKeyAuth(c.KeyFile); err != nil {
		return nil, err
	} else if keyAuth != nil {
		config.Auth = append(config.Auth, keyAuth)
	}

	if agentAuth := loadAgentAuth(c.UseAgent); agentAuth != nil {
		config.Auth = append(config.Auth, agentAuth)
	}

	return config, nil
}

// loadPrivateKeyAuth loads a private key from a file and returns an ssh.AuthMethod.
// Returns nil if the path is empty.
func loadPrivateKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	if keyPath == "" {
		return nil, nil //nolint:nilnil // Valid state: no key path provided, so no auth method returned
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key file: %w", err)
	}

	return ssh.PublicKeys(signer), nil
}

// loadAgentAuth connects to the SSH agent and returns an ssh.AuthMethod.
// Returns nil if useAgent is false or the agent socket is unavailable.
func loadAgentAuth(useAgent bool) ssh.AuthMethod {
	if !useAgent {
		return nil
	}

	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := (&net.Dialer{Timeout: 500 * time.Millisecond}).DialContext(context.Background(), "unix", socket)
	if err != nil {
		return nil
	}

	signers, err := agent.NewClient(conn).Signers()
	if err != nil {
		return nil
	}

	return ssh.PublicKeys(signers...)
}

// DefaultKnownHosts returns a HostKeyCallback that verifies the host key
// against strict entries in the user's ~/.ssh/known_hosts file.
func DefaultKnownHosts() (ssh.HostKeyCallback, error) {
	path := filepath.Join(os.Getenv("HOME"), ".ssh", "known_hosts")

	return knownhosts.New(path)
}
