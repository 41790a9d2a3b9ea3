package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/eknihyzdarma/catalog-migrator/pkg/cli"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	// SIGINT/SIGTERM stop the run between entities; running the command again resumes it.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := cli.NewRootCommand(Version)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		format, _ := cmd.PersistentFlags().GetString("format")
		formatter := &cli.OutputFormatter{Format: format, Writer: os.Stderr}
		if ferr := formatter.Error(err); ferr != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	stop()
	os.Exit(cli.GetExitCode(err))
}
