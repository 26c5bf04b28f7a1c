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

package search

import "github.com/poiesic/sanket/core"

// SearchMonitor provides hooks to observe retrieval.
// Implement this interface to track intermediate steps and results.
type SearchMonitor interface {
	Start(question string, keywords []string)
	AfterEmbedding(dimensions int)
	AfterQuery(ns core.Namespace, hits []core.Hit)
	BelowFloor(hit core.Hit)
	VerbatimHit(hit core.Hit)
	Finish(result *core.RetrievalResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ []string)                {}
func (n *noopMonitor) AfterEmbedding(_ int)                      {}
func (n *noopMonitor) AfterQuery(_ core.Namespace, _ []core.Hit) {}
func (n *noopMonitor) BelowFloor(_ core.Hit)                     {}
func (n *noopMonitor) VerbatimHit(_ core.Hit)                    {}
func (n *noopMonitor) Finish(_ *core.RetrievalResult)            {}
