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

package index

import (
	"sync/atomic"

	"github.com/poiesic/sanket/core"
)

// Register holds the active namespace. The zero value has none.
type Register struct {
	active atomic.Pointer[core.Namespace]
}

// Load returns the active namespace, or "" if none has been activated.
func (r *Register) Load() core.Namespace {
	if ns := r.active.Load(); ns != nil {
		return *ns
	}
	return ""
}

// Swap installs ns and returns the namespace it replaced.
func (r *Register) Swap(ns core.Namespace) core.Namespace {
	if old := r.active.Swap(&ns); old != nil {
		return *old
	}
	return ""
}
