package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelar/caravel/internal/core/config"
	"github.com/avelar/caravel/internal/core/script"
)

// =============================================================================
// Fakes
// =============================================================================

// fakeExecutor records every remote interaction in a shared event list.
type fakeExecutor struct {
	events          *[]string
	connectivityErr error
	runErr          map[string]error
}

func (f *fakeExecutor) CheckConnectivity(_ context.Context) error {
	*f.events = append(*f.events, "connectivity")
	return f.connectivityErr
}

func (f *fakeExecutor) Run(_ context.Context, s script.Script) error {
	*f.events = append(*f.events, "run:"+s.Name)
	if err, ok := f.runErr[s.Name]; ok {
		return err
	}
	return nil
}

// fakeSyncer simulates a fetch by materializing the working directory.
type fakeSyncer struct {
	events *[]string
	files  map[string]string // written into the workdir on Sync
	err    error
}

func (f *fakeSyncer) Sync(_ context.Context, authURL, dir, branch string) error {
	*f.events = append(*f.events, "sync:"+dir+"@"+branch)
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, content := range f.files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

type fakeTransferrer struct {
	events *[]string
	err    error
}

func (f *fakeTransferrer) Transfer(_ context.Context, localDir, remoteDir string) error {
	*f.events = append(*f.events, "transfer:"+localDir+"->"+remoteDir)
	return f.err
}

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	events   []string
	cfg      config.Deployment
	exec     *fakeExecutor
	syncer   *fakeSyncer
	transfer *fakeTransferrer
	runner   *Runner
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()
	t.Chdir(t.TempDir())

	h := &harness{
		cfg: config.Deployment{
			RepoURL: "https://example.com/app.git",
			Token:   "abc123",
			Branch:  "main",
			SSHUser: "deploy",
			Server:  "203.0.113.5",
			KeyPath: "/home/u/.ssh/id_rsa",
			AppPort: 8080,
		},
	}
	h.exec = &fakeExecutor{events: &h.events, runErr: map[string]error{}}
	h.syncer = &fakeSyncer{events: &h.events, files: files}
	h.transfer = &fakeTransferrer{events: &h.events}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.runner = NewRunner(&h.cfg, h.exec, h.syncer, h.transfer, logger)
	return h
}

// =============================================================================
// Pre-mutation Check Tests
// =============================================================================

func TestRun_MissingRequiredInput(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.Token = ""

	err := h.runner.Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, ExitValidationError, ExitCodeFor(err))
	assert.Empty(t, h.events, "no filesystem or network action before validation")
}

func TestRun_MissingBuildDescriptor(t *testing.T) {
	h := newHarness(t, map[string]string{"README.md": "hi"})

	err := h.runner.Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, ExitMissingBuildCfg, ExitCodeFor(err))
	assert.ErrorContains(t, err, "build descriptor")
	assert.NotContains(t, h.events, "connectivity", "no remote session before descriptor check")
}

func TestRun_InvalidComposeDescriptor(t *testing.T) {
	h := newHarness(t, map[string]string{"docker-compose.yml": "services: {}"})

	err := h.runner.Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, ExitMissingBuildCfg, ExitCodeFor(err))
	assert.NotContains(t, h.events, "connectivity")
}

func TestRun_ConnectivityFailure(t *testing.T) {
	h := newHarness(t, map[string]string{"Dockerfile": "FROM alpine"})
	h.exec.connectivityErr = errors.New("dial tcp: connection refused")

	err := h.runner.Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, ExitConnectivityError, ExitCodeFor(err))
	assert.ErrorIs(t, err, ErrConnectivity)

	// No provisioning and no transfer happened.
	assert.Equal(t, []string{"sync:app@main", "connectivity"}, h.events)
}

func TestRun_SyncFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.syncer.err = errors.New("authentication required")

	err := h.runner.Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, ExitRemoteError, ExitCodeFor(err))
}

// =============================================================================
// Cleanup Path Tests
// =============================================================================

func TestRun_CleanupSkipsDeploymentStages(t *testing.T) {
	h := newHarness(t, map[string]string{"Dockerfile": "FROM alpine"})

	err := h.runner.Run(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, []string{"sync:app@main", "connectivity", "run:cleanup"}, h.events)
}

func TestRun_CleanupFailurePropagates(t *testing.T) {
	h := newHarness(t, map[string]string{"Dockerfile": "FROM alpine"})
	h.exec.runErr["cleanup"] = errors.New("docker: permission denied")

	err := h.runner.Run(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, ExitRemoteError, ExitCodeFor(err))
}

// =============================================================================
// Deploy Path Tests
// =============================================================================

func TestRun_FullDeploy_SingleContainer(t *testing.T) {
	h := newHarness(t, map[string]string{"Dockerfile": "FROM alpine"})

	err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"sync:app@main",
		"connectivity",
		"run:provision",
		"transfer:app->~/app",
		"run:deploy-single",
		"run:configure-proxy",
		"run:validate",
	}, h.events)
}

func TestRun_FullDeploy_ComposeStack(t *testing.T) {
	h := newHarness(t, map[string]string{
		"docker-compose.yml": "services:\n  web:\n    image: nginx:alpine\n",
	})

	err := h.runner.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Contains(t, h.events, "run:deploy-compose")
	assert.NotContains(t, h.events, "run:deploy-single")
}

func TestRun_ValidationWarningsAreNonFatal(t *testing.T) {
	h := newHarness(t, map[string]string{"Dockerfile": "FROM alpine"})
	h.exec.runErr["validate"] = errors.New("curl: (7) connection refused")

	err := h.runner.Run(context.Background(), false)
	assert.NoError(t, err, "outcome validation failures are warnings only")
}

func TestRun_ProvisionFailureAbortsBeforeTransfer(t *testing.T) {
	h := newHarness(t, map[string]string{"Dockerfile": "FROM alpine"})
	h.exec.runErr["provision"] = errors.New("apt-get: exit status 100")

	err := h.runner.Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, ExitRemoteError, ExitCodeFor(err))

	for _, ev := range h.events {
		assert.NotContains(t, ev, "transfer:")
	}
}

// =============================================================================
// Exit Code Mapping Tests
// =============================================================================

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCodeFor(nil))
	assert.Equal(t, ExitValidationError, ExitCodeFor(&StageError{Stage: "collect-inputs", Err: errors.New("x"), ExitCode: 1}))
	assert.Equal(t, ExitRemoteError, ExitCodeFor(errors.New("anything else")))
}

func TestStageError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &StageError{Stage: "provision", Err: inner, ExitCode: ExitRemoteError}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "provision")
}
