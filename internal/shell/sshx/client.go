// Package sshx is the secure-shell execution channel: it runs the rendered
// remote scripts and streams uploads to the target host.
package sshx

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/avelar/caravel/internal/core/script"
)

// =============================================================================
// Client
// =============================================================================

// Client executes scripts on one remote host over SSH. A new session is
// opened per command group; the underlying connection is reused.
type Client struct {
	user    string
	host    string
	port    int
	keyPath string
	output  io.Writer
	timeout time.Duration

	mu        sync.Mutex // protects sshClient
	sshClient *ssh.Client
}

// Config configures the SSH client.
type Config struct {
	User    string
	Host    string
	Port    int           // Default: 22
	KeyPath string        // Path to the private key file
	Output  io.Writer     // Remote command output destination (the run log)
	Timeout time.Duration // Connect timeout, default 10 seconds
}

// NewClient prepares a client. The key is read and the connection made on
// the first operation, so key problems surface as connectivity failures.
func NewClient(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	return &Client{
		user:    cfg.User,
		host:    cfg.Host,
		port:    cfg.Port,
		keyPath: cfg.KeyPath,
		output:  cfg.Output,
		timeout: cfg.Timeout,
	}
}

// connect establishes the SSH connection if not already connected.
func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sshClient != nil {
		_, _, err := c.sshClient.SendRequest("keepalive@caravel", true, nil)
		if err == nil {
			return nil
		}
		// Connection dead, reconnect
		c.sshClient.Close()
		c.sshClient = nil
	}

	keyBytes, err := os.ReadFile(c.keyPath)
	if err != nil {
		return fmt.Errorf("read SSH key %s: %w", c.keyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return fmt.Errorf("parse SSH private key: %w", err)
	}

	config := &ssh.ClientConfig{
		User:            c.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // single interactively chosen host
		Timeout:         c.timeout,
	}

	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return fmt.Errorf("SSH dial %s: %w", addr, err)
	}

	c.sshClient = client
	return nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sshClient != nil {
		err := c.sshClient.Close()
		c.sshClient = nil
		return err
	}
	return nil
}

func (c *Client) newSession() (*ssh.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sshClient == nil {
		return nil, fmt.Errorf("not connected")
	}
	return c.sshClient.NewSession()
}

// =============================================================================
// Operations
// =============================================================================

// CheckConnectivity opens a non-interactive session and runs a trivial
// command within the connect timeout. No retry.
func (c *Client) CheckConnectivity(ctx context.Context) error {
	if err := c.connect(); err != nil {
		return err
	}

	session, err := c.newSession()
	if err != nil {
		return fmt.Errorf("create SSH session: %w", err)
	}
	defer session.Close()

	done := make(chan error, 1)
	go func() {
		done <- session.Run("true")
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.timeout):
		return fmt.Errorf("connectivity check timed out after %v", c.timeout)
	case err := <-done:
		return err
	}
}

// Run executes a rendered script in a fresh session. Combined output is
// streamed into the configured writer as it arrives.
func (c *Client) Run(ctx context.Context, s script.Script) error {
	if err := c.connect(); err != nil {
		return err
	}

	session, err := c.newSession()
	if err != nil {
		return fmt.Errorf("create SSH session: %w", err)
	}
	defer session.Close()

	session.Stdout = c.output
	session.Stderr = c.output

	done := make(chan error, 1)
	go func() {
		done <- session.Run(s.Render())
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("remote %s script: %w", s.Name, err)
		}
		return nil
	}
}

// Push streams stdin into a remote command over a fresh session. Used for
// artifact transfer.
func (c *Client) Push(ctx context.Context, cmd string, stdin io.Reader) error {
	if err := c.connect(); err != nil {
		return err
	}

	session, err := c.newSession()
	if err != nil {
		return fmt.Errorf("create SSH session: %w", err)
	}
	defer session.Close()

	session.Stdin = stdin
	session.Stdout = c.output
	session.Stderr = c.output

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("remote receive: %w", err)
		}
		return nil
	}
}
