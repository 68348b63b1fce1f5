package script

import (
	"fmt"
)

// =============================================================================
// Build & Run
// =============================================================================

// ImageName derives the image for single-container mode from the project
// (working directory) name.
func ImageName(project string) string {
	return project
}

// ContainerName derives the container name for single-container mode.
// Pattern: {project}_app
func ContainerName(project string) string {
	return fmt.Sprintf("%s_app", project)
}

// DeployCompose tears down any previous stack and brings up a freshly built
// one in the background. Absence of a previous stack is not an error.
func DeployCompose(remoteDir string) Script {
	return Script{
		Name:     "deploy-compose",
		FailFast: true,
		Commands: []string{
			fmt.Sprintf("cd %s", remoteDir),
			"docker-compose down --remove-orphans || true",
			"docker-compose up -d --build",
		},
	}
}

// DeploySingle replaces the project's single container: stop and remove the
// previous one (ignoring absence), build a new image, run it detached with
// the application port published to the same host port.
func DeploySingle(remoteDir, project string, port int) Script {
	image := ImageName(project)
	container := ContainerName(project)
	return Script{
		Name:     "deploy-single",
		FailFast: true,
		Commands: []string{
			fmt.Sprintf("cd %s", remoteDir),
			fmt.Sprintf("docker stop %s || true", container),
			fmt.Sprintf("docker rm %s || true", container),
			fmt.Sprintf("docker build -t %s .", image),
			fmt.Sprintf("docker run -d --name %s --restart unless-stopped -p %d:%d %s",
				container, port, port, image),
		},
	}
}

// =============================================================================
// Cleanup (terminal alternate path)
// =============================================================================

// Cleanup tears the remote application down: stop every running container,
// prune unused images and layers, remove the application directory.
func Cleanup(remoteDir string) Script {
	return Script{
		Name:     "cleanup",
		FailFast: true,
		Commands: []string{
			`running=$(docker ps -q); [ -z "$running" ] || docker stop $running`,
			"docker system prune -af",
			fmt.Sprintf("rm -rf %s", remoteDir),
		},
	}
}
