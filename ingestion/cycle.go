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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/sanket/core"
	"github.com/poiesic/sanket/notify"
	"github.com/poiesic/sanket/retry"
)

// cycle runs one pass of the state machine and always ends in IDLE.
func (o *Orchestrator) cycle(ctx context.Context, force bool) *CycleReport {
	report := &CycleReport{StartedAt: o.now()}
	logger := o.logger.With("force", force)

	err := o.process(ctx, force, report)
	report.FinishedAt = o.now()

	o.mu.Lock()
	if report.Version != "" {
		o.lastVersion = report.Version
	}
	if err != nil {
		o.lastError = err.Error()
	} else {
		o.lastError = ""
	}
	o.mu.Unlock()

	if err != nil {
		report.Err = err
		if report.Outcome == "" {
			report.Outcome = OutcomeFailed
		}
		o.setState(core.StateError)
		logger.Error("update cycle failed", "version", report.Version, "outcome", report.Outcome, "err", err)
		if report.Outcome == OutcomeFailed {
			o.publish(ctx, notify.Event{
				Type:      notify.EventCycleFailed,
				Version:   report.Version,
				SourceURL: report.SourceURL,
				Reason:    err.Error(),
			})
		}
	} else {
		logger.Info("update cycle finished",
			"version", report.Version,
			"outcome", report.Outcome,
			"namespace", report.Namespace,
			"records", report.Records,
			"chunks", report.Chunks,
			"duration", report.FinishedAt.Sub(report.StartedAt))
	}
	o.setState(core.StateIdle)
	o.monitor.CycleFinished(report)
	return report
}

func (o *Orchestrator) process(ctx context.Context, force bool, report *CycleReport) error {
	o.setState(core.StateFetching)
	last, err := o.repo.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("load pipeline state: %w", err)
	}
	compareTo := last
	if force {
		compareTo = nil
	}

	doc, err := o.fetch(ctx, compareTo)
	if err != nil {
		return err
	}
	if doc == nil {
		report.Outcome = OutcomeUnchanged
		return nil
	}
	version := doc.Version()
	report.Version = version
	report.SourceURL = doc.URL
	logger := o.logger.With("version", version)
	logger.Info("new document version", "url", doc.URL, "bytes", len(doc.Body))

	if name, err := o.archive.Put(ctx, doc); err != nil {
		logger.Warn("archiving document failed", "err", err)
	} else {
		report.Archived = name
	}

	o.setState(core.StateExtracting)
	rows, err := o.extractor.Extract(doc)
	if err != nil {
		return o.skipVersion(ctx, doc, last, report, err)
	}
	report.Rows = len(rows)

	o.setState(core.StateNormalizing)
	records, stats := o.normalizer.NormalizeAll(version, rows)
	report.Records = len(records)
	report.Stats = stats
	if rate := stats.Rate(); rate > o.skipRateAlert {
		logger.Warn("skip rate above threshold",
			"alert", "skip_rate",
			"rate", rate,
			"threshold", o.skipRateAlert,
			"skipped", stats.Skipped,
			"total", stats.Total,
			"reasons", stats.Reasons)
		o.monitor.SkipRateAlert(version, stats)
	}
	if len(records) == 0 {
		return o.skipVersion(ctx, doc, last, report, fmt.Errorf("version %s: %w", version, ErrNoRecords))
	}
	if o.sink != nil {
		if err := o.sink.WriteRecords(ctx, version, records); err != nil {
			logger.Warn("writing records to sink failed", "records", len(records), "err", err)
		}
	}

	o.setState(core.StateChunking)
	chunks := o.chunker.Chunk(records)
	report.Chunks = len(chunks)

	o.setState(core.StateEmbedding)
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := o.embedder.EmbedWithProgress(ctx, texts, o.monitor.EmbeddingProgress)
	if err != nil {
		return err
	}

	o.setState(core.StateIndexing)
	generation, err := o.repo.NextGeneration(ctx)
	if err != nil {
		return fmt.Errorf("allocate namespace generation: %w", err)
	}
	ns := core.NewNamespace(generation, version)
	report.Namespace = ns
	if err := o.upsert(ctx, ns, chunks, vectors); err != nil {
		o.discard(ctx, ns)
		return err
	}

	o.setState(core.StateActivating)
	previous, err := o.index.Activate(ctx, ns, core.PipelineState{
		Fingerprint:  doc.Fingerprint,
		SourceURL:    doc.URL,
		ETag:         doc.ETag,
		LastModified: doc.LastModified,
		LastUpdate:   o.now().UTC(),
		LastSkipRate: stats.Rate(),
	})
	if err != nil {
		o.discard(ctx, ns)
		return fmt.Errorf("activate %s: %w", ns, err)
	}
	report.Previous = previous
	report.Outcome = core.OutcomeActivated

	// The new namespace is live; bookkeeping must not be lost to cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	o.saveMetrics(ctx, doc, report, "")
	o.publish(ctx, notify.Event{
		Type:      notify.EventIndexActivated,
		Version:   version,
		SourceURL: doc.URL,
		Namespace: ns,
		Previous:  previous,
		Records:   report.Records,
		Chunks:    report.Chunks,
		SkipRate:  stats.Rate(),
	})
	if previous != "" && previous != ns {
		o.scheduleRetire(previous)
	}
	return nil
}

// fetch retries transient failures under the fetch policy.
func (o *Orchestrator) fetch(ctx context.Context, last *core.PipelineState) (*core.SourceDocument, error) {
	var doc *core.SourceDocument
	err := o.fetchPolicy.Do(ctx, func(ctx context.Context) error {
		var err error
		doc, err = o.fetcher.CheckForUpdate(ctx, last)
		if err != nil && !errors.Is(err, core.ErrTransient) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (o *Orchestrator) upsert(ctx context.Context, ns core.Namespace, chunks []core.Chunk, vectors [][]float32) error {
	if len(vectors) != len(chunks) {
		return &core.EmbeddingError{Attempts: 1, Err: fmt.Errorf("received %d vectors for %d chunks", len(vectors), len(chunks))}
	}
	for start := 0; start < len(chunks); start += o.upsertBatchSize {
		end := min(start+o.upsertBatchSize, len(chunks))
		entries := make([]core.IndexEntry, 0, end-start)
		for i := start; i < end; i++ {
			chunk := chunks[i]
			chunk.Records = nil
			entries = append(entries, core.IndexEntry{Chunk: chunk, Vector: vectors[i]})
		}
		if err := o.index.Upsert(ctx, ns, entries); err != nil {
			return fmt.Errorf("upsert into %s: %w", ns, err)
		}
	}
	return nil
}

// skipVersion marks doc processed without activating anything, so the
// same bytes are not reprocessed on the next poll.
func (o *Orchestrator) skipVersion(ctx context.Context, doc *core.SourceDocument, last *core.PipelineState, report *CycleReport, cause error) error {
	report.Outcome = core.OutcomeSkipped

	state := core.PipelineState{}
	if last != nil {
		state = *last
	}
	state.Fingerprint = doc.Fingerprint
	state.SourceURL = doc.URL
	state.ETag = doc.ETag
	state.LastModified = doc.LastModified
	state.ActiveNamespace = o.index.Active()
	if report.Stats.Total > 0 {
		state.LastSkipRate = report.Stats.Rate()
	}
	if err := o.repo.SaveState(ctx, &state); err != nil {
		return errors.Join(cause, fmt.Errorf("mark version skipped: %w", err))
	}

	o.saveMetrics(ctx, doc, report, cause.Error())
	o.publish(ctx, notify.Event{
		Type:      notify.EventVersionSkipped,
		Version:   report.Version,
		SourceURL: doc.URL,
		Records:   report.Records,
		SkipRate:  report.Stats.Rate(),
		Reason:    cause.Error(),
	})
	return cause
}

func (o *Orchestrator) saveMetrics(ctx context.Context, doc *core.SourceDocument, report *CycleReport, reason string) {
	reasons := make(map[string]int, len(report.Stats.Reasons))
	for r, n := range report.Stats.Reasons {
		reasons[string(r)] = n
	}
	metrics := &core.VersionMetrics{
		Version:     report.Version,
		Fingerprint: doc.Fingerprint,
		SourceURL:   doc.URL,
		Namespace:   report.Namespace,
		Outcome:     report.Outcome,
		Rows:        report.Rows,
		Records:     report.Records,
		Skipped:     report.Stats.Skipped,
		Chunks:      report.Chunks,
		SkipRate:    report.Stats.Rate(),
		Reasons:     reasons,
		Error:       reason,
		CompletedAt: o.now().UTC(),
	}
	if err := o.repo.SaveVersionMetrics(ctx, metrics); err != nil {
		o.logger.Warn("saving version metrics failed", "version", report.Version, "err", err)
	}
}

// discard deletes a namespace that was never activated.
func (o *Orchestrator) discard(ctx context.Context, ns core.Namespace) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := o.index.Retire(ctx, ns); err != nil {
		o.logger.Warn("discarding partial namespace failed", "namespace", ns, "err", err)
		return
	}
	o.logger.Info("discarded partial namespace", "namespace", ns)
}

// scheduleRetire deletes ns after the grace period.
func (o *Orchestrator) scheduleRetire(ns core.Namespace) {
	if o.retireGrace == 0 {
		o.retire(ns)
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.retireTimer[ns]; ok {
		return
	}
	o.retiring.Add(1)
	o.retireTimer[ns] = time.AfterFunc(o.retireGrace, func() {
		defer o.retiring.Done()
		o.mu.Lock()
		_, pending := o.retireTimer[ns]
		delete(o.retireTimer, ns)
		o.mu.Unlock()
		// Stop got here first.
		if !pending {
			return
		}
		o.retire(ns)
	})
	o.logger.Info("namespace retirement scheduled", "namespace", ns, "grace", o.retireGrace)
}

func (o *Orchestrator) retirePending(ns core.Namespace) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.retireTimer[ns]
	return ok
}

func (o *Orchestrator) retire(ns core.Namespace) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := o.index.Retire(ctx, ns); err != nil {
		o.logger.Warn("retiring namespace failed", "namespace", ns, "err", err)
		return
	}
	o.publish(ctx, notify.Event{Type: notify.EventNamespaceRetired, Namespace: ns})
}

func (o *Orchestrator) publish(ctx context.Context, event notify.Event) {
	event.Time = o.now().UTC()
	if err := o.publisher.Publish(ctx, event); err != nil {
		o.logger.Warn("publishing event failed", "type", event.Type, "err", err)
	}
}

func (o *Orchestrator) setState(to core.State) {
	from := core.State(o.state.Swap(int32(to)))
	if from == to {
		return
	}
	o.logger.Debug("state changed", "from", from, "to", to)
	o.monitor.StateChanged(from, to)
}
