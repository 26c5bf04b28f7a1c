// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/ingestion"
)

// consoleMonitor renders cycle progress on a terminal.
type consoleMonitor struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

var _ ingestion.CycleMonitor = (*consoleMonitor)(nil)

func newConsoleMonitor(out io.Writer) *consoleMonitor {
	return &consoleMonitor{out: out}
}

func (m *consoleMonitor) StateChanged(from, to core.State) {
	if to == core.StateIdle || to == core.StateEmbedding {
		return
	}
	fmt.Fprintln(m.out, color.CyanString("%s", to))
}

func (m *consoleMonitor) EmbeddingProgress(done, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bar == nil {
		m.bar = newProgressBar(m.out, total, "Embedding chunks")
	}
	m.bar.Set(done)
}

func (m *consoleMonitor) SkipRateAlert(version string, stats core.SkipStats) {
	color.New(color.FgYellow).Fprintf(m.out, "warning: version %s skipped %d of %d rows (%.1f%%)\n",
		version, stats.Skipped, stats.Total, stats.Rate()*100)
}

func (m *consoleMonitor) CycleFinished(report *ingestion.CycleReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bar != nil {
		m.bar.Finish()
		fmt.Fprintln(m.out)
		m.bar = nil
	}
}

func newProgressBar(out io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("chunks"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// printReport summarizes a finished cycle.
func printReport(w io.Writer, report *ingestion.CycleReport) {
	switch report.Outcome {
	case core.OutcomeActivated:
		color.New(color.FgGreen).Fprintf(w, "✓ Activated %s (version %s)\n", report.Namespace, report.Version)
		if report.Previous != "" {
			fmt.Fprintf(w, "  replaced %s\n", report.Previous)
		}
	case core.OutcomeSkipped:
		color.New(color.FgYellow).Fprintf(w, "Skipped version %s: %v\n", report.Version, report.Err)
	case ingestion.OutcomeUnchanged:
		fmt.Fprintln(w, "Already up to date")
		return
	default:
		color.New(color.FgRed).Fprintf(w, "Cycle %s: %v\n", report.Outcome, report.Err)
		return
	}
	fmt.Fprintf(w, "  rows %d, records %d, skipped %d (%.1f%%), chunks %d\n",
		report.Rows, report.Records, report.Stats.Skipped, report.Stats.Rate()*100, report.Chunks)
	for reason, n := range report.Stats.Reasons {
		fmt.Fprintf(w, "    %-18s %d\n", reason, n)
	}
}
