// Package transfer ships the working directory to the remote application
// path over the SSH channel: archived with attributes, compressed in transit.
package transfer

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// =============================================================================
// Uploader
// =============================================================================

// Pusher streams a reader into a remote command. Satisfied by sshx.Client.
type Pusher interface {
	Push(ctx context.Context, cmd string, stdin io.Reader) error
}

// Uploader implements the artifact-transfer stage as a tar+gzip stream piped
// into an extracting command on the target.
type Uploader struct {
	pusher Pusher
}

// NewUploader wraps an SSH pusher.
func NewUploader(p Pusher) *Uploader {
	return &Uploader{pusher: p}
}

// ReceiveCommand is the remote side of the transfer for the given directory.
func ReceiveCommand(remoteDir string) string {
	return fmt.Sprintf("mkdir -p %s && tar -xzf - -C %s", remoteDir, remoteDir)
}

// Transfer archives localDir (excluding its .git directory) and streams the
// archive into remoteDir on the target host.
func (u *Uploader) Transfer(ctx context.Context, localDir, remoteDir string) error {
	pr, pw := io.Pipe()

	go func() {
		pw.CloseWithError(Pack(localDir, pw))
	}()

	if err := u.pusher.Push(ctx, ReceiveCommand(remoteDir), pr); err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("transfer artifacts: %w", err)
	}
	return nil
}

// =============================================================================
// Archiving
// =============================================================================

// Pack writes dir as a gzip-compressed tar stream. File modes and
// modification times are preserved; the .git directory is skipped.
func Pack(dir string, out io.Writer) error {
	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		if _, err := io.Copy(tw, f); err != nil {
			return fmt.Errorf("archive %s: %w", rel, err)
		}
		return nil
	})
	if err != nil {
		tw.Close()
		gz.Close()
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}
