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


package ollama

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/sanket/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// ErrNoChoices is returned when the model produced no completion.
var ErrNoChoices = errors.New("ollama: model returned no choices")

// Embedder implements ai.Embedder over the native Ollama API.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	client, err := ollama.New(
		ollama.WithServerURL(config.EmbeddingHost),
		ollama.WithModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, err
	}
	return &Embedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "ollama-embedder"),
	}, nil
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.embedder.EmbedQuery(ctx, text)
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))
	return e.embedder.EmbedDocuments(ctx, texts)
}

// Generator implements ai.Generator over the native Ollama chat API.
type Generator struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func newGenerator(config *ai.Config) (*Generator, error) {
	client, err := ollama.New(
		ollama.WithServerURL(config.GenerationHost),
		ollama.WithModel(config.GenerationModel),
	)
	if err != nil {
		return nil, err
	}
	return &Generator{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "ollama-generator"),
	}, nil
}

func (g *Generator) Generate(ctx context.Context, contextText, question string) (string, error) {
	system, user := ai.BuildAnswerMessages(contextText, question)
	response, err := g.client.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}, llms.WithTemperature(g.temperature), llms.WithMaxTokens(g.maxTokens))
	if err != nil {
		g.logger.Error("failed to generate content", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}

// Provider implements ai.AIProvider over the native Ollama API.
type Provider struct {
	embedder  *Embedder
	generator *Generator
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider creates an Ollama-backed provider.
// The config Provider field is forced to ollama so hosts are normalized without /v1.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	config.Provider = ai.ProviderOllama
	if err := config.Validate(); err != nil {
		return nil, err
	}
	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(config)
	if err != nil {
		return nil, err
	}
	return &Provider{embedder: embedder, generator: generator}, nil
}

func (p *Provider) Embedder() ai.Embedder { return p.embedder }

func (p *Provider) Generator() ai.Generator { return p.generator }

func (p *Provider) Close() error { return nil }
