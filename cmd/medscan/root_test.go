package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agenthands/medscan/internal/core/scans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with a config path that does not exist,
// so defaults apply.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.toml")))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "medscan", cmd.Use)
	assert.NotEmpty(t, cmd.Version)
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"serve", "scan", "prescription", "risk", "report", "advise", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "medscan version")
}

func TestRiskCmd_Args(t *testing.T) {
	out, err := run(t, "", "risk", "I", "want", "to", "end", "my", "life")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Suicidal", res["risk_level"])
	assert.Equal(t, "keyword", res["method"])
}

func TestRiskCmd_StdinMarkdown(t *testing.T) {
	out, err := run(t, "I feel so nervous and worried", "risk", "--markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Risk assessment")
}

func TestScanCmd(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 48, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 48; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "liver.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	out, err := run(t, "", "scan", "--type", "liver", path)
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Liver Scan", res["scan_type"])
	assert.Equal(t, "Normal", res["status"])
}

func TestScanCmd_Errors(t *testing.T) {
	_, err := run(t, "", "scan", "--type", "ultrasound", "x.png")
	assert.ErrorIs(t, err, scans.ErrUnsupportedScanType)

	_, err = run(t, "", "scan", "x.png")
	assert.Error(t, err)

	_, err = run(t, "", "scan", "--type", "mri", filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestReportCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labs.txt")
	require.NoError(t, os.WriteFile(path, []byte("Glucose 180 mg/dL fasting. Hemoglobin 10 g/dL."), 0o600))

	out, err := run(t, "", "report", path)
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "labs.txt", res["filename"])
	assert.Contains(t, res, "analysis")
}
