package buildcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// =============================================================================
// Detection Tests
// =============================================================================

func TestDetect_ComposeFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "docker-compose.yml", "services: {}")

	desc, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, ModeCompose, desc.Mode)
	assert.Equal(t, "docker-compose.yml", desc.File)
}

func TestDetect_ComposeAlternateNames(t *testing.T) {
	for _, name := range []string{"docker-compose.yaml", "compose.yml", "compose.yaml"} {
		dir := t.TempDir()
		writeFile(t, dir, name, "services: {}")

		desc, err := Detect(dir)
		require.NoError(t, err, name)
		assert.Equal(t, ModeCompose, desc.Mode)
		assert.Equal(t, name, desc.File)
	}
}

func TestDetect_DockerfileOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Dockerfile", "FROM alpine")

	desc, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, ModeDockerfile, desc.Mode)
}

func TestDetect_ComposeTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Dockerfile", "FROM alpine")
	writeFile(t, dir, "docker-compose.yml", "services: {}")

	desc, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, ModeCompose, desc.Mode)
}

func TestDetect_NothingFound(t *testing.T) {
	dir := t.TempDir()

	_, err := Detect(dir)
	assert.ErrorIs(t, err, ErrNoBuildConfig)
}

func TestDetect_DirectoryNamedDockerfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Dockerfile"), 0o755))

	_, err := Detect(dir)
	assert.ErrorIs(t, err, ErrNoBuildConfig)
}

// =============================================================================
// Compose Validation Tests
// =============================================================================

func TestValidateCompose_Minimal(t *testing.T) {
	summary, err := ValidateCompose(`
services:
  web:
    image: nginx:alpine
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, summary.ServiceNames)
}

func TestValidateCompose_BuildOnlyService(t *testing.T) {
	summary, err := ValidateCompose(`
services:
  app:
    build: .
`)
	require.NoError(t, err)
	assert.Equal(t, []string{"app"}, summary.ServiceNames)
}

func TestValidateCompose_Empty(t *testing.T) {
	_, err := ValidateCompose("")

	var pErr *ParseError
	assert.ErrorAs(t, err, &pErr)
}

func TestValidateCompose_InvalidYAML(t *testing.T) {
	_, err := ValidateCompose("services: [unclosed")

	var pErr *ParseError
	assert.ErrorAs(t, err, &pErr)
}

func TestValidateCompose_NoServices(t *testing.T) {
	_, err := ValidateCompose("services: {}")

	var pErr *ParseError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Error(), "no services")
}
