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


package storage

import (
	"fmt"

	"github.com/poiesic/sanket/core"
)

func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, core.ChunkMUS.Size(*chunk))
	core.ChunkMUS.Marshal(*chunk, buf)
	return buf
}

func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := core.ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk: %w", ErrSerializationFailed, err)
	}
	return &chunk, nil
}

func MarshalVector(vector []float32) []byte {
	buf := make([]byte, core.VectorMUS.Size(vector))
	core.VectorMUS.Marshal(vector, buf)
	return buf
}

func UnmarshalVector(data []byte) ([]float32, error) {
	vector, _, err := core.VectorMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: vector: %w", ErrSerializationFailed, err)
	}
	return vector, nil
}

func MarshalAccidentRecord(record *core.AccidentRecord) []byte {
	buf := make([]byte, core.AccidentRecordMUS.Size(*record))
	core.AccidentRecordMUS.Marshal(*record, buf)
	return buf
}

func UnmarshalAccidentRecord(data []byte) (*core.AccidentRecord, error) {
	record, _, err := core.AccidentRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: accident record: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

func MarshalPipelineState(state *core.PipelineState) []byte {
	buf := make([]byte, core.PipelineStateMUS.Size(*state))
	core.PipelineStateMUS.Marshal(*state, buf)
	return buf
}

func UnmarshalPipelineState(data []byte) (*core.PipelineState, error) {
	state, _, err := core.PipelineStateMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: pipeline state: %w", ErrSerializationFailed, err)
	}
	return &state, nil
}

func MarshalVersionMetrics(metrics *core.VersionMetrics) []byte {
	buf := make([]byte, core.VersionMetricsMUS.Size(*metrics))
	core.VersionMetricsMUS.Marshal(*metrics, buf)
	return buf
}

func UnmarshalVersionMetrics(data []byte) (*core.VersionMetrics, error) {
	metrics, _, err := core.VersionMetricsMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: version metrics: %w", ErrSerializationFailed, err)
	}
	return &metrics, nil
}
