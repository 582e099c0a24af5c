package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for medscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medscan",
		Short: "Medical scan, prescription and report analysis",
		Long: `medscan analyzes medical images and documents with rule based computer
vision, pattern extraction and optional hosted models.

Run "medscan serve" to start the HTTP services, or use the analysis
commands to process single files from the command line.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: $CONFIG_PATH or config/config.toml)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewPrescriptionCmd())
	cmd.AddCommand(NewRiskCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewAdviseCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command until it finishes or a signal arrives.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
