// Package pipeline runs the deployment as an explicit finite sequence of
// named stages. Each stage returns a typed result consumed by the next; the
// first fatal error stops the run. Remote work goes through small interfaces
// so every stage can be tested against a mocked execution channel.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/avelar/caravel/internal/core/buildcfg"
	"github.com/avelar/caravel/internal/core/config"
	"github.com/avelar/caravel/internal/core/script"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// Executor runs remote command scripts over an established channel.
type Executor interface {
	// CheckConnectivity opens a short-lived non-interactive session to
	// confirm the host is reachable. No retry.
	CheckConnectivity(ctx context.Context) error
	// Run executes a rendered script on the remote host, streaming its
	// output into the run log.
	Run(ctx context.Context, s script.Script) error
}

// SourceSyncer fetches or updates the local working directory.
type SourceSyncer interface {
	// Sync clones authURL into dir if dir does not exist, pulls otherwise,
	// then checks out branch.
	Sync(ctx context.Context, authURL, dir, branch string) error
}

// Transferrer ships the working directory to the remote application path.
type Transferrer interface {
	Transfer(ctx context.Context, localDir, remoteDir string) error
}

// =============================================================================
// Runner
// =============================================================================

// Runner executes the deployment (or cleanup) pipeline for one configuration.
type Runner struct {
	cfg      *config.Deployment
	exec     Executor
	syncer   SourceSyncer
	transfer Transferrer
	logger   *slog.Logger
}

// NewRunner wires a pipeline for one invocation.
func NewRunner(cfg *config.Deployment, exec Executor, syncer SourceSyncer, transfer Transferrer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()[:8]
	return &Runner{
		cfg:      cfg,
		exec:     exec,
		syncer:   syncer,
		transfer: transfer,
		logger:   logger.With("component", "pipeline", "run_id", runID),
	}
}

// Run drives the stages top to bottom. With cleanup set, the teardown path
// replaces stages six through ten and the run ends there.
func (r *Runner) Run(ctx context.Context, cleanup bool) error {
	if err := r.stageCollectInputs(); err != nil {
		return err
	}

	workdir, err := r.stageSyncSource(ctx)
	if err != nil {
		return err
	}

	desc, err := r.stageValidateBuildConfig(workdir)
	if err != nil {
		return err
	}

	if err := r.stageVerifyConnectivity(ctx); err != nil {
		return err
	}

	if cleanup {
		return r.stageCleanup(ctx)
	}

	if err := r.stageProvision(ctx); err != nil {
		return err
	}
	if err := r.stageTransfer(ctx, workdir); err != nil {
		return err
	}
	if err := r.stageBuildAndRun(ctx, desc); err != nil {
		return err
	}
	if err := r.stageConfigureProxy(ctx); err != nil {
		return err
	}
	r.stageValidateDeployment(ctx)

	r.logger.Info("deployment complete", "url", r.cfg.AppURL())
	return nil
}

// =============================================================================
// Stages
// =============================================================================

func (r *Runner) stageCollectInputs() error {
	if err := r.cfg.Validate(); err != nil {
		return &StageError{Stage: "collect-inputs", Err: err, ExitCode: ExitValidationError}
	}
	r.logger.Info("configuration validated",
		"repo", r.cfg.RepoURL,
		"branch", r.cfg.Branch,
		"server", r.cfg.Server,
		"port", r.cfg.AppPort,
	)
	return nil
}

func (r *Runner) stageSyncSource(ctx context.Context) (string, error) {
	workdir := r.cfg.WorkdirName()
	authURL, err := r.cfg.AuthenticatedURL()
	if err != nil {
		return "", &StageError{Stage: "sync-source", Err: err, ExitCode: ExitValidationError}
	}

	r.logger.Info("syncing source", "workdir", workdir, "branch", r.cfg.Branch)
	if err := r.syncer.Sync(ctx, authURL, workdir, r.cfg.Branch); err != nil {
		return "", &StageError{Stage: "sync-source", Err: err, ExitCode: ExitRemoteError}
	}
	return workdir, nil
}

func (r *Runner) stageValidateBuildConfig(workdir string) (*buildcfg.Descriptor, error) {
	desc, err := buildcfg.Detect(workdir)
	if err != nil {
		return nil, &StageError{Stage: "validate-build-config", Err: err, ExitCode: ExitMissingBuildCfg}
	}

	if desc.Mode == buildcfg.ModeCompose {
		content, err := os.ReadFile(filepath.Join(workdir, desc.File))
		if err != nil {
			return nil, &StageError{Stage: "validate-build-config", Err: err, ExitCode: ExitMissingBuildCfg}
		}
		summary, err := buildcfg.ValidateCompose(string(content))
		if err != nil {
			return nil, &StageError{Stage: "validate-build-config", Err: err, ExitCode: ExitMissingBuildCfg}
		}
		r.logger.Info("build descriptor found", "mode", desc.Mode, "file", desc.File,
			"services", len(summary.ServiceNames))
		return desc, nil
	}

	r.logger.Info("build descriptor found", "mode", desc.Mode, "file", desc.File)
	return desc, nil
}

func (r *Runner) stageVerifyConnectivity(ctx context.Context) error {
	r.logger.Info("verifying SSH connectivity", "server", r.cfg.Server, "user", r.cfg.SSHUser)
	if err := r.exec.CheckConnectivity(ctx); err != nil {
		return &StageError{
			Stage:    "verify-connectivity",
			Err:      fmt.Errorf("%w: %v", ErrConnectivity, err),
			ExitCode: ExitConnectivityError,
		}
	}
	return nil
}

func (r *Runner) stageCleanup(ctx context.Context) error {
	r.logger.Info("cleanup requested, skipping deployment stages")
	if err := r.exec.Run(ctx, script.Cleanup(config.RemoteAppDir)); err != nil {
		return &StageError{Stage: "cleanup", Err: err, ExitCode: ExitRemoteError}
	}
	r.logger.Info("remote cleanup complete")
	return nil
}

func (r *Runner) stageProvision(ctx context.Context) error {
	r.logger.Info("provisioning remote host")
	if err := r.exec.Run(ctx, script.Provision(r.cfg.SSHUser)); err != nil {
		return &StageError{Stage: "provision", Err: err, ExitCode: ExitRemoteError}
	}
	return nil
}

func (r *Runner) stageTransfer(ctx context.Context, workdir string) error {
	r.logger.Info("transferring artifacts", "from", workdir, "to", config.RemoteAppDir)
	if err := r.transfer.Transfer(ctx, workdir, config.RemoteAppDir); err != nil {
		return &StageError{Stage: "transfer", Err: err, ExitCode: ExitRemoteError}
	}
	return nil
}

func (r *Runner) stageBuildAndRun(ctx context.Context, desc *buildcfg.Descriptor) error {
	project := r.cfg.WorkdirName()

	var s script.Script
	switch desc.Mode {
	case buildcfg.ModeCompose:
		s = script.DeployCompose(config.RemoteAppDir)
	default:
		s = script.DeploySingle(config.RemoteAppDir, project, r.cfg.AppPort)
	}

	r.logger.Info("building and running containers", "mode", desc.Mode)
	if err := r.exec.Run(ctx, s); err != nil {
		return &StageError{Stage: "build-and-run", Err: err, ExitCode: ExitRemoteError}
	}
	return nil
}

func (r *Runner) stageConfigureProxy(ctx context.Context) error {
	project := r.cfg.WorkdirName()
	r.logger.Info("configuring reverse proxy",
		"upstream", script.UpstreamAddress(r.cfg.AppPort))
	if err := r.exec.Run(ctx, script.ConfigureProxy(project, r.cfg.AppPort)); err != nil {
		return &StageError{Stage: "configure-proxy", Err: err, ExitCode: ExitRemoteError}
	}
	return nil
}

// stageValidateDeployment reports outcome checks as warnings only.
func (r *Runner) stageValidateDeployment(ctx context.Context) {
	r.logger.Info("validating deployment")
	if err := r.exec.Run(ctx, script.Validate()); err != nil {
		r.logger.Warn("deployment validation reported problems", "error", err)
	}
}
