// Package prompt collects the deployment configuration interactively.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/avelar/caravel/internal/core/config"
)

// =============================================================================
// Prompter
// =============================================================================

// Prompter reads configuration values from the terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New returns a Prompter over the given streams (stdin/stdout when nil).
func New(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints the label and reads one trimmed line. An empty answer falls
// back to def.
func (p *Prompter) Ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// AskSecret reads a value without echoing when stdin is a terminal, falling
// back to a plain read otherwise (tests, pipes).
func (p *Prompter) AskSecret(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// =============================================================================
// Configuration Collection
// =============================================================================

// Fill prompts for every field of cfg that is still empty and applies
// defaults afterwards. Fields already supplied by config file or environment
// are not asked again.
func (p *Prompter) Fill(cfg *config.Deployment) error {
	var err error

	if cfg.RepoURL == "" {
		if cfg.RepoURL, err = p.Ask("Repository URL", ""); err != nil {
			return err
		}
	}
	if cfg.Token == "" {
		if cfg.Token, err = p.AskSecret("Access token"); err != nil {
			return err
		}
	}
	if cfg.Branch == "" {
		if cfg.Branch, err = p.Ask("Branch", config.DefaultBranch); err != nil {
			return err
		}
	}
	if cfg.SSHUser == "" {
		if cfg.SSHUser, err = p.Ask("SSH user", ""); err != nil {
			return err
		}
	}
	if cfg.Server == "" {
		if cfg.Server, err = p.Ask("Server address", ""); err != nil {
			return err
		}
	}
	if cfg.KeyPath == "" {
		if cfg.KeyPath, err = p.Ask("SSH key path", defaultKeyPath()); err != nil {
			return err
		}
	}
	if cfg.AppPort == 0 {
		answer, err := p.Ask("Application port", strconv.Itoa(config.DefaultAppPort))
		if err != nil {
			return err
		}
		port, err := strconv.Atoi(answer)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", answer, err)
		}
		cfg.AppPort = port
	}

	cfg.ApplyDefaults()
	return nil
}

func defaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.ssh/id_rsa"
}
