// Command orbitwatch trains an orbital anomaly detector over a TLE catalog
// and serves risk scores over HTTP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "orbitwatch",
		Short:        "Orbital anomaly detection over TLE catalogs",
		SilenceUsage: true,
	}
	root.AddCommand(serveCommand(), scanCommand())
	return root
}
