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


// Package ai provides abstractions for the AI capabilities used by sanket.
//
// The pipeline depends on two capabilities only:
//
//   - Embedder: maps chunk and question text to fixed-size vectors
//   - Generator: answers a question from a retrieved context
//
// AIProvider aggregates both so a backend can be selected in one place.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible APIs (OpenAI, vLLM, LocalAI, Ollama's /v1)
//   - ai/ollama: the native Ollama API
//   - ai/mock: deterministic test doubles with no network access
//
// Public constructors in the implementation packages return interface types.
// The mock constructors return concrete types so tests can inject behavior
// and assert call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithProvider(ai.ProviderOllama), ai.WithHost("http://localhost:11434"))
//	provider, err := ollama.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "roof fall in underground coal mine")
//	answer, err := provider.Generator().Generate(ctx, contextText, "How many died in Dhanbad in 2019?")
package ai
