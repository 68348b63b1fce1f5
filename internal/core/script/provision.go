package script

import "fmt"

// =============================================================================
// Host Provisioning
// =============================================================================

// installIfMissing guards an install behind a presence check so provisioning
// stays idempotent across runs.
func installIfMissing(binary, pkg string) string {
	return fmt.Sprintf("command -v %s >/dev/null 2>&1 || sudo apt-get install -y %s", binary, pkg)
}

// Provision prepares the remote host: container runtime, compose tool and
// reverse proxy, the SSH user in the docker group, and the docker service
// enabled and running. Installs are keyed on presence checks.
func Provision(sshUser string) Script {
	return Script{
		Name:     "provision",
		FailFast: true,
		Commands: []string{
			"sudo apt-get update -y",
			installIfMissing("docker", "docker.io"),
			installIfMissing("docker-compose", "docker-compose"),
			installIfMissing("nginx", "nginx"),
			fmt.Sprintf("sudo usermod -aG docker %s", sshUser),
			"sudo systemctl enable --now docker",
		},
	}
}
