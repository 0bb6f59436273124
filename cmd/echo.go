package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hreq/internal/echo"
)

var echoAddr string

func init() {
	echoCmd := &cobra.Command{
		Use:    "echo-server",
		Short:  "Run a local server that echoes requests back as JSON",
		Hidden: true,
		Args:   cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runEcho(); err != nil {
				fail(err)
			}
		},
	}
	echoCmd.Flags().StringVar(&echoAddr, "addr", "127.0.0.1:5000", "Listen address")
	rootCmd.AddCommand(echoCmd)
}

func runEcho() error {
	a, err := setup(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return echo.ListenAndServe(ctx, echoAddr, a.log.Logger)
}
