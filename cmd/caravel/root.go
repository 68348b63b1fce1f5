package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avelar/caravel/internal/core/pipeline"
	"github.com/avelar/caravel/internal/shell/gitsync"
	"github.com/avelar/caravel/internal/shell/prompt"
	"github.com/avelar/caravel/internal/shell/runlog"
	"github.com/avelar/caravel/internal/shell/sshx"
	"github.com/avelar/caravel/internal/shell/transfer"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

var (
	cleanupFlag bool
	configFile  string
	showVersion bool
)

var rootCmd = &cobra.Command{
	Use:   "caravel",
	Short: "Deploy a containerized application to a remote host behind nginx",
	Long: `caravel provisions a single remote Linux host over SSH, ships your
application source, builds and runs its containers and puts nginx in front
of them. Invoked with --cleanup it tears the remote deployment down instead.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("caravel %s (built %s)\n", Version, BuildTime)
			return nil
		}
		return runDeploy(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().BoolVar(&cleanupFlag, "cleanup", false, "tear down the remote deployment instead of deploying")
	rootCmd.Flags().StringVar(&configFile, "config", "", "path to config file pre-filling the prompts")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print version and exit")
}

// runDeploy wires the collaborators and drives the pipeline. The returned
// error carries the process exit code.
func runDeploy(ctx context.Context) error {
	// The run log exists for the whole invocation; every line below lands
	// in it as well as on the console.
	log, err := runlog.Open("", time.Now())
	if err != nil {
		return err
	}
	defer log.Close()

	appCfg, err := LoadConfig(configFile)
	if err != nil {
		return err
	}
	logger := SetupLogger(appCfg.Log, log.Writer())

	cfg := appCfg.Deploy
	prompter := prompt.New(nil, os.Stdout)
	if err := prompter.Fill(&cfg); err != nil {
		return &pipeline.StageError{Stage: "collect-inputs", Err: err, ExitCode: pipeline.ExitValidationError}
	}

	if snapshot, err := cfg.Redacted(); err == nil {
		fmt.Fprintf(log.Writer(), "--- deployment configuration ---\n%s---\n", snapshot)
	}

	client := sshx.NewClient(sshx.Config{
		User:    cfg.SSHUser,
		Host:    cfg.Server,
		KeyPath: cfg.KeyPath,
		Output:  log.Writer(),
	})
	defer client.Close()

	runner := pipeline.NewRunner(
		&cfg,
		client,
		gitsync.NewSyncer(log.Writer()),
		transfer.NewUploader(client),
		logger,
	)

	if err := runner.Run(ctx, cleanupFlag); err != nil {
		logger.Error("run failed", "error", err)
		errorColor.Fprintf(os.Stdout, "Run failed: %v\n", err)
		infoColor.Fprintf(os.Stdout, "Full log: %s\n", log.Name())
		return err
	}

	if cleanupFlag {
		successColor.Fprintln(os.Stdout, "Remote cleanup complete.")
	} else {
		successColor.Fprintf(os.Stdout, "Deployment complete: %s\n", cfg.AppURL())
	}
	infoColor.Fprintf(os.Stdout, "Full log: %s\n", log.Name())
	return nil
}
