package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agenthands/medscan/internal/core/archive"
	"github.com/agenthands/medscan/internal/core/scans"
	"github.com/agenthands/medscan/internal/imaging"
	"github.com/spf13/cobra"
)

func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [image]",
		Short: "Analyze a medical scan image",
		Long: fmt.Sprintf(`Scan runs the rule based analyzer, blended with a pretrained model when
one is configured for the scan type.

Supported scan types: %s

Examples:
  medscan scan --type chest xray.png
  medscan scan --type skin --markdown lesion.jpg`, strings.Join(scans.ScanTypes(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: runScanCmd,
	}
	cmd.Flags().StringP("type", "t", "", "Scan type (required)")
	_ = cmd.MarkFlagRequired("type")
	addOutputFlags(cmd)
	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	scanType, _ := cmd.Flags().GetString("type")
	if !scans.Supported(scanType) {
		return fmt.Errorf("%w: %s", scans.ErrUnsupportedScanType, scanType)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	img, err := imaging.DecodeLimit(data, a.cfg.Limits.MaxImagePixels)
	if err != nil {
		return err
	}

	res, err := a.svc.Scans.Analyze(cmd.Context(), img, scanType)
	if err != nil {
		return err
	}
	patient, _ := cmd.Flags().GetString("patient")
	return a.emit(cmd, res, archive.FromScan(patient, filepath.Base(args[0]), res))
}

func NewPrescriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prescription [image]",
		Short: "Read medicines from a prescription photo",
		Args:  cobra.ExactArgs(1),
		RunE:  runPrescriptionCmd,
	}
	addOutputFlags(cmd)
	return cmd
}

func runPrescriptionCmd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	res, err := a.svc.Prescription.Read(cmd.Context(), data)
	if err != nil {
		return err
	}
	patient, _ := cmd.Flags().GetString("patient")
	return a.emit(cmd, res, archive.FromPrescription(patient, filepath.Base(args[0]), res))
}

func NewRiskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk [text...]",
		Short: "Classify mental health risk in a piece of text",
		Long: `Risk classifies text as Normal, Anxious, Depressed or Suicidal. Text is
taken from the arguments, or from stdin when none are given.`,
		RunE: runRiskCmd,
	}
	addOutputFlags(cmd)
	return cmd
}

func runRiskCmd(cmd *cobra.Command, args []string) error {
	text, err := textInput(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	res := a.svc.Risk.Classify(cmd.Context(), text)
	patient, _ := cmd.Flags().GetString("patient")
	return a.emit(cmd, res, archive.FromRisk(patient, res))
}

func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [file]",
		Short: "Analyze a medical report (PDF or text)",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportCmd,
	}
	addOutputFlags(cmd)
	return cmd
}

func runReportCmd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	res, err := a.svc.Report.Report(cmd.Context(), filepath.Base(args[0]), data)
	if err != nil {
		return err
	}
	patient, _ := cmd.Flags().GetString("patient")
	return a.emit(cmd, res, archive.FromReport(patient, res))
}

func NewAdviseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advise [text...]",
		Short: "Summarize report text and suggest next steps",
		Long: `Advise summarizes report text with the configured LLM, searches for
related articles and writes recommendations. Text is taken from the
arguments, or from stdin when none are given.`,
		RunE: runAdviseCmd,
	}
	addOutputFlags(cmd)
	return cmd
}

func runAdviseCmd(cmd *cobra.Command, args []string) error {
	text, err := textInput(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	res, err := a.svc.Advisor.Advise(cmd.Context(), text)
	if err != nil {
		return err
	}
	patient, _ := cmd.Flags().GetString("patient")
	return a.emit(cmd, res, archive.FromAdvice(patient, res))
}
