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

package notify

import (
	"context"
	"time"

	"github.com/poiesic/sanket/core"
)

// EventType names a lifecycle event.
type EventType string

const (
	EventIndexActivated   EventType = "index.activated"
	EventNamespaceRetired EventType = "namespace.retired"
	EventVersionSkipped   EventType = "version.skipped"
	EventCycleFailed      EventType = "cycle.failed"
)

// Event describes one change to the index.
type Event struct {
	Type      EventType      `json:"type"`
	Version   string         `json:"version,omitempty"`
	SourceURL string         `json:"source_url,omitempty"`
	Namespace core.Namespace `json:"namespace,omitempty"`
	Previous  core.Namespace `json:"previous,omitempty"`
	Records   int            `json:"records,omitempty"`
	Chunks    int            `json:"chunks,omitempty"`
	SkipRate  float64        `json:"skip_rate,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Time      time.Time      `json:"time"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
