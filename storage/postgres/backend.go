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


package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Backend owns the connection pool shared by the vector store and record sink.
type Backend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to the database at connString and verifies the connection.
func Open(ctx context.Context, connString string) (*Backend, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Backend{
		pool:   pool,
		logger: slog.Default().With("component", "postgres"),
	}, nil
}

// Pool returns the underlying connection pool.
func (b *Backend) Pool() *pgxpool.Pool {
	return b.pool
}

// Close closes every pooled connection.
func (b *Backend) Close() {
	b.pool.Close()
}
