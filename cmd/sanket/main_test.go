package main

import (
	"bytes"
	"errors"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/ingestion"
)

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	for _, level := range []string{"debug", "INFO", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			set := flag.NewFlagSet("test", flag.ContinueOnError)
			set.String("log-level", level, "")
			assert.NoError(t, setupLogger(cli.NewContext(nil, set, nil)))
		})
	}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("log-level", "loud", "")
	assert.Error(t, setupLogger(cli.NewContext(nil, set, nil)))
}

func TestLoadEnv(t *testing.T) {
	assert.NoError(t, loadEnv(""))
	assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SANKET_TEST_ENV_VALUE=from-file\n"), 0644))
	t.Setenv("SANKET_TEST_ENV_VALUE", "")
	require.NoError(t, os.Unsetenv("SANKET_TEST_ENV_VALUE"))

	require.NoError(t, loadEnv(path))
	assert.Equal(t, "from-file", os.Getenv("SANKET_TEST_ENV_VALUE"))
}

func TestAskRequiresQuestion(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"sanket", "--env-file", "", "ask"})
	assert.EqualError(t, err, "a question is required")
}

func TestConsoleMonitor(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	m := newConsoleMonitor(&out)

	m.StateChanged(core.StateIdle, core.StateFetching)
	m.EmbeddingProgress(1, 2)
	m.EmbeddingProgress(2, 2)
	m.SkipRateAlert("abc", core.SkipStats{Total: 10, Skipped: 3})
	m.CycleFinished(&ingestion.CycleReport{Outcome: core.OutcomeActivated})

	text := out.String()
	assert.Contains(t, text, "FETCHING")
	assert.Contains(t, text, "skipped 3 of 10 rows (30.0%)")
	assert.Nil(t, m.bar)
}

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	stats := core.SkipStats{Total: 10}
	stats.Add(core.SkipUnknownState)

	tests := []struct {
		name   string
		report *ingestion.CycleReport
		want   string
	}{
		{
			name:   "activated",
			report: &ingestion.CycleReport{Outcome: core.OutcomeActivated, Namespace: "g000002-abc", Previous: "g000001-abc", Version: "abc", Rows: 10, Records: 9, Chunks: 2, Stats: stats},
			want:   "Activated g000002-abc (version abc)\n  replaced g000001-abc\n  rows 10, records 9, skipped 1 (10.0%), chunks 2\n",
		},
		{
			name:   "unchanged",
			report: &ingestion.CycleReport{Outcome: ingestion.OutcomeUnchanged},
			want:   "Already up to date\n",
		},
		{
			name:   "failed",
			report: &ingestion.CycleReport{Outcome: ingestion.OutcomeFailed, Err: errors.New("boom")},
			want:   "Cycle failed: boom\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printReport(&out, tt.report)
			assert.True(t, strings.Contains(out.String(), tt.want), out.String())
		})
	}
}
