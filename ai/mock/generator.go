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


package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc allows custom behavior. If nil, a deterministic summary is returned.
	GenerateFunc func(ctx context.Context, contextText, question string) (string, error)

	mu          sync.Mutex
	callCount   int
	lastContext string
}

// NewMockGenerator creates a mock generator with default deterministic behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// WithGenerateFunc sets custom behavior and returns the generator.
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, contextText, question string) (string, error)) *MockGenerator {
	m.GenerateFunc = fn
	return m
}

// Generate returns "Answer to <question> from <n> sources." by default.
func (m *MockGenerator) Generate(ctx context.Context, contextText, question string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastContext = contextText
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, contextText, question)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sources := strings.Count(contextText, "[Source:")
	return fmt.Sprintf("Answer to %q from %d sources.", question, sources), nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastContext returns the context passed to the most recent call.
func (m *MockGenerator) LastContext() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastContext
}
