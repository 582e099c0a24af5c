package main

import (
	"context"

	"github.com/agenthands/medscan/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP services",
		Long: `Serve starts every enabled service on its own port:

  scans         POST /analyze, GET /models
  prescription  POST /analyze-prescription
  risk          POST /analyze-risk
  report        POST /analyze-report
  advisor       POST /health-advisor

Ports and enabled services come from the [services] config sections.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if a.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	return server.New(a.svc, a.logger, server.WithLimits(a.cfg.Limits)).Serve(cmd.Context(), a.cfg.Services)
}
