// Package buildcfg locates and validates the build descriptor of a fetched
// working directory: either a multi-service compose file or a single-service
// Dockerfile.
package buildcfg

import (
	"errors"
	"os"
	"path/filepath"
)

// =============================================================================
// Descriptor Detection
// =============================================================================

// Mode says which deployment shape the working directory supports.
type Mode string

const (
	// ModeCompose deploys a multi-service stack from a compose file.
	ModeCompose Mode = "compose"
	// ModeDockerfile builds and runs a single container.
	ModeDockerfile Mode = "dockerfile"
)

// composeFileNames are checked in order; the first hit wins.
var composeFileNames = []string{
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// ErrNoBuildConfig means the working directory has neither a compose file nor
// a Dockerfile.
var ErrNoBuildConfig = errors.New("no build descriptor found (Dockerfile or compose file)")

// Descriptor is the result of detection.
type Descriptor struct {
	Mode Mode
	// File is the descriptor filename relative to the working directory
	// ("docker-compose.yml", "Dockerfile", ...).
	File string
}

// Detect inspects dir for a build descriptor. A compose file takes precedence
// over a Dockerfile, matching how the deploy stage chooses its path.
func Detect(dir string) (*Descriptor, error) {
	for _, name := range composeFileNames {
		if fileExists(filepath.Join(dir, name)) {
			return &Descriptor{Mode: ModeCompose, File: name}, nil
		}
	}
	if fileExists(filepath.Join(dir, "Dockerfile")) {
		return &Descriptor{Mode: ModeDockerfile, File: "Dockerfile"}, nil
	}
	return nil, ErrNoBuildConfig
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
