package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/agenthands/medscan/internal/config"
	"github.com/agenthands/medscan/internal/core/model"
	"github.com/agenthands/medscan/internal/logging"
	"github.com/agenthands/medscan/internal/ocr/tesseract"
	"github.com/agenthands/medscan/internal/render"
	"github.com/agenthands/medscan/internal/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app is what every command needs after flag parsing.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	svc    *server.Services
	close  func(context.Context) error
}

// newApp loads .env and the configuration and builds the services. Logs
// go to stderr so stdout carries only results.
func newApp(cmd *cobra.Command) (*app, error) {
	_ = godotenv.Load()

	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	logger := logging.New(cmd.ErrOrStderr(), level, cfg.Log.Format)

	svc, closeFn := server.Build(cmd.Context(), cfg, server.BuildOptions{
		Tesseract: tesseract.New(cfg.OCR.Languages),
		Logger:    logger,
	})
	return &app{cfg: cfg, logger: logger, svc: svc, close: closeFn}, nil
}

// emit archives the result when a patient was given and prints it as
// JSON or Markdown.
func (a *app) emit(cmd *cobra.Command, result any, archived *model.ArchivedAnalysis) error {
	if archived.PatientID != "" {
		if a.svc.Archive == nil {
			a.logger.Warn("patient given but archive is not configured")
		} else if _, err := a.svc.Archive.Save(cmd.Context(), archived); err != nil {
			a.logger.Warn("failed to archive analysis", "error", err)
		}
	}

	out := cmd.OutOrStdout()
	if md, _ := cmd.Flags().GetBool("markdown"); md {
		return render.Markdown(out, archived)
	}
	return writeJSON(out, result)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// textInput joins the arguments or reads stdin when there are none.
func textInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("markdown", "m", false, "Print a Markdown report instead of JSON")
	cmd.Flags().StringP("patient", "p", "", "Archive the result for this patient id")
}
