package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaxcli/internal/shared/testutil"
)

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{name: "no args", args: nil, wantCode: 2, wantErr: "usage: vaxcli"},
		{name: "unknown command", args: []string{"frobnicate"}, wantCode: 2, wantErr: `unknown command "frobnicate"`},
		{name: "help", args: []string{"help"}, wantCode: 0, wantOut: "commands:"},
		{name: "version", args: []string{"version"}, wantCode: 0, wantOut: "vaxcli 1.0.0"},
		{name: "missing input", args: []string{"run"}, wantCode: 2, wantErr: "-in is required"},
		{name: "bad flag", args: []string{"run", "-nope"}, wantCode: 2, wantErr: "flag provided but not defined"},
		{name: "flag help", args: []string{"run", "-h"}, wantCode: 0, wantErr: "-stamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VAX_CONFIG_FILE", "")
			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stdout, &stderr)

			assert.Equal(t, tt.wantCode, code, stderr.String())
			if tt.wantOut != "" {
				assert.Contains(t, stdout.String(), tt.wantOut)
			}
			if tt.wantErr != "" {
				assert.Contains(t, stderr.String(), tt.wantErr)
			}
		})
	}
}

func TestRun_Batch(t *testing.T) {
	t.Setenv("VAX_CONFIG_FILE", "")
	t.Setenv("VAX_TELEMETRY_METRIC_EXPORTER", "none")
	out := t.TempDir()

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"run", "-in", testutil.WriteCSV(t, testutil.FixtureCSV), "-out", out, "-stamp", "test"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Contains(t, stdout.String(), "55 records")
	for _, name := range []string{"test_vaccinated.csv", "test_vaccinated.xlsx", "test_summary.txt"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestRun_BatchConfigFile(t *testing.T) {
	t.Setenv("VAX_CONFIG_FILE", "")
	dir := t.TempDir()
	out := filepath.Join(dir, "results")
	cfgPath := filepath.Join(dir, "vaxcli.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"paths:\n  output_dir: "+out+"\n"+
			"pipeline:\n  forecast: false\n  dose_timing: false\n"+
			"telemetry:\n  metric_exporter: none\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"run", "-config", cfgPath, "-in", testutil.WriteCSV(t, testutil.FixtureCSV)}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Contains(t, stdout.String(), "3 records")
	_, err := os.Stat(filepath.Join(out, "vaccinated.csv"))
	assert.NoError(t, err)
}

func TestRun_BatchFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "inconsistent aggregate",
			content: testutil.InconsistentCSV,
			wantErr: "stage deaggregate",
		},
		{
			name:    "prediction input",
			content: testutil.CSVHeader + "prediction,2021-03-07,2021-03-07,daily,dose_1,A,all,1\n",
			wantErr: "row 2",
		},
		{
			name:    "empty input",
			content: "",
			wantErr: "is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VAX_CONFIG_FILE", "")
			t.Setenv("VAX_TELEMETRY_METRIC_EXPORTER", "none")

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), []string{"run", "-in", testutil.WriteCSV(t, tt.content), "-out", t.TempDir()}, &stdout, &stderr)

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr.String(), tt.wantErr)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("VAX_CONFIG_FILE", "")
	t.Setenv("VAX_LOGGING_LEVEL", "loud")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"run", "-in", testutil.WriteCSV(t, testutil.FixtureCSV)}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "[CONFIG]")
}
