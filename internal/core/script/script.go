// Package script builds the remote command descriptors the pipeline executes
// over SSH. Each stage is a named, ordered list of commands rendered to a
// fail-fast shell script. Everything here is pure string construction and is
// tested with values in/out.
package script

import "strings"

// =============================================================================
// Script Descriptor
// =============================================================================

// Script is one remote stage: a name for logging plus the commands it runs.
type Script struct {
	// Name identifies the stage in logs and errors.
	Name string
	// Commands run in order on the remote host.
	Commands []string
	// FailFast renders the script under `set -e` so the first failing
	// command aborts the rest.
	FailFast bool
}

// Render produces the shell text sent to the remote host.
func (s Script) Render() string {
	var b strings.Builder
	if s.FailFast {
		b.WriteString("set -e\n")
	}
	for _, cmd := range s.Commands {
		b.WriteString(cmd)
		b.WriteByte('\n')
	}
	return b.String()
}
