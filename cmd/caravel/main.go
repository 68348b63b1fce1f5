package main

import (
	"context"
	"fmt"
	"os"

	"github.com/avelar/caravel/internal/core/pipeline"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "caravel: %v\n", err)
		return pipeline.ExitCodeFor(err)
	}
	return pipeline.ExitSuccess
}
