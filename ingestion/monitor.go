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

import "github.com/poiesic/sanket/core"

// CycleMonitor provides hooks to observe update cycles.
// Hooks are called synchronously from the cycle goroutine.
type CycleMonitor interface {
	StateChanged(from, to core.State)
	EmbeddingProgress(done, total int)
	SkipRateAlert(version string, stats core.SkipStats)
	CycleFinished(report *CycleReport)
}

// noopMonitor is a no-op implementation of CycleMonitor
type noopMonitor struct{}

var _ CycleMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) StateChanged(_, _ core.State)             {}
func (n *noopMonitor) EmbeddingProgress(_, _ int)               {}
func (n *noopMonitor) SkipRateAlert(_ string, _ core.SkipStats) {}
func (n *noopMonitor) CycleFinished(_ *CycleReport)             {}
