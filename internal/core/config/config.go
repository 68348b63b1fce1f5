// Package config holds the deployment configuration entity.
// This package is pure: it performs no I/O and is tested with values in/out.
package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Deployment Configuration
// =============================================================================

// DefaultBranch is used when no branch is supplied.
const DefaultBranch = "main"

// DefaultAppPort is used when no application port is supplied.
const DefaultAppPort = 8080

// Deployment holds every value one run needs. It is collected once at
// startup and never modified afterwards.
type Deployment struct {
	RepoURL string `mapstructure:"repo_url" yaml:"repo_url"`
	Token   string `mapstructure:"token" yaml:"token"`
	Branch  string `mapstructure:"branch" yaml:"branch"`
	SSHUser string `mapstructure:"ssh_user" yaml:"ssh_user"`
	Server  string `mapstructure:"server" yaml:"server"`
	KeyPath string `mapstructure:"key_path" yaml:"key_path"`
	AppPort int    `mapstructure:"app_port" yaml:"app_port"`
}

// ApplyDefaults fills the branch and port when they were left empty.
func (d *Deployment) ApplyDefaults() {
	if d.Branch == "" {
		d.Branch = DefaultBranch
	}
	if d.AppPort == 0 {
		d.AppPort = DefaultAppPort
	}
}

// Validate checks the required fields. Repository URL, token and server
// address must be present before anything touches the filesystem or network.
func (d *Deployment) Validate() error {
	var missing []string
	if strings.TrimSpace(d.RepoURL) == "" {
		missing = append(missing, "repo_url")
	}
	if strings.TrimSpace(d.Token) == "" {
		missing = append(missing, "token")
	}
	if strings.TrimSpace(d.Server) == "" {
		missing = append(missing, "server")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	if d.AppPort < 1 || d.AppPort > 65535 {
		return &ValidationError{Fields: []string{"app_port"}}
	}
	return nil
}

// WorkdirName derives the local working directory from the repository URL:
// the path basename with any ".git" suffix stripped.
//
// Example:
//
//	{RepoURL: "https://example.com/app.git"}.WorkdirName() // returns "app"
func (d *Deployment) WorkdirName() string {
	trimmed := strings.TrimSuffix(strings.TrimRight(d.RepoURL, "/"), ".git")
	if u, err := url.Parse(trimmed); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(trimmed)
}

// AuthenticatedURL returns the repository URL with the access token embedded
// in the authority component, suitable for non-interactive clones.
func (d *Deployment) AuthenticatedURL() (string, error) {
	u, err := url.Parse(d.RepoURL)
	if err != nil {
		return "", fmt.Errorf("parse repository URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("repository URL %q has no host", d.RepoURL)
	}
	u.User = url.User(d.Token)
	return u.String(), nil
}

// RemoteAppDir is where artifacts land on the target host.
const RemoteAppDir = "~/app"

// AppURL returns the externally reachable address once the proxy is up.
func (d *Deployment) AppURL() string {
	return "http://" + d.Server
}

// =============================================================================
// Log Snapshot
// =============================================================================

// Redacted renders the configuration as YAML with the token masked, for the
// head of the run log.
func (d *Deployment) Redacted() (string, error) {
	snap := *d
	if snap.Token != "" {
		snap.Token = "********"
	}
	out, err := yaml.Marshal(&snap)
	if err != nil {
		return "", fmt.Errorf("marshal config snapshot: %w", err)
	}
	return string(out), nil
}

// =============================================================================
// Errors
// =============================================================================

// ValidationError reports required configuration fields that were left empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required configuration: " + strings.Join(e.Fields, ", ")
}
