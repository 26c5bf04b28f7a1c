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

package core

import (
	"sort"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for persisted types. Field order is the wire order;
// append new fields at the end only.
var (
	ProvenanceMUS     = provenanceMUS{}
	ChunkMUS          = chunkMUS{}
	VectorMUS         = vectorMUS{}
	AccidentRecordMUS = accidentRecordMUS{}
	PipelineStateMUS  = pipelineStateMUS{}
	VersionMetricsMUS = versionMetricsMUS{}
)

// musWriter sequences Marshal calls over a pre-sized buffer.
type musWriter struct {
	bs []byte
	n  int
}

func (w *musWriter) str(v string) { w.n += ord.String.Marshal(v, w.bs[w.n:]) }
func (w *musWriter) int(v int) { w.n += varint.Int.Marshal(v, w.bs[w.n:]) }
func (w *musWriter) i64(v int64) { w.n += varint.Int64.Marshal(v, w.bs[w.n:]) }
func (w *musWriter) u64(v uint64) { w.n += varint.Uint64.Marshal(v, w.bs[w.n:]) }
func (w *musWriter) f32(v float32) { w.n += raw.Float32.Marshal(v, w.bs[w.n:]) }
func (w *musWriter) f64(v float64) { w.n += raw.Float64.Marshal(v, w.bs[w.n:]) }
func (w *musWriter) time(v time.Time) {
	if v.IsZero() {
		w.i64(0)
		return
	}
	w.i64(v.UnixMicro())
}

// musReader sequences Unmarshal calls and keeps the first error.
type musReader struct {
	bs  []byte
	n   int
	err error
}

func (r *musReader) str() (v string) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) int() (v int) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = varint.Int.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) i64() (v int64) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) u64() (v uint64) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = varint.Uint64.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) f32() (v float32) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = raw.Float32.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) f64() (v float64) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = raw.Float64.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) time() time.Time {
	us := r.i64()
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us).UTC()
}

func sizeTime(v time.Time) int {
	if v.IsZero() {
		return varint.Int64.Size(0)
	}
	return varint.Int64.Size(v.UnixMicro())
}

type provenanceMUS struct{}

func (provenanceMUS) Marshal(v Provenance, bs []byte) int {
	w := musWriter{bs: bs}
	w.str(v.Version)
	w.int(v.FirstRow)
	w.int(v.LastRow)
	return w.n
}

func (provenanceMUS) Unmarshal(bs []byte) (v Provenance, n int, err error) {
	r := musReader{bs: bs}
	v = readProvenance(&r)
	return v, r.n, r.err
}

func (provenanceMUS) Size(v Provenance) int {
	return ord.String.Size(v.Version) + varint.Int.Size(v.FirstRow) + varint.Int.Size(v.LastRow)
}

func readProvenance(r *musReader) Provenance {
	return Provenance{Version: r.str(), FirstRow: r.int(), LastRow: r.int()}
}

// chunkMUS persists the stored form of a chunk. Records are not written.
type chunkMUS struct{}

func (chunkMUS) Marshal(v Chunk, bs []byte) int {
	w := musWriter{bs: bs}
	w.str(v.ID)
	w.int(v.Seq)
	w.str(v.Text)
	w.n += ProvenanceMUS.Marshal(v.Provenance, bs[w.n:])
	w.int(v.RecordCount)
	return w.n
}

func (chunkMUS) Unmarshal(bs []byte) (v Chunk, n int, err error) {
	r := musReader{bs: bs}
	v.ID = r.str()
	v.Seq = r.int()
	v.Text = r.str()
	v.Provenance = readProvenance(&r)
	v.RecordCount = r.int()
	return v, r.n, r.err
}

func (chunkMUS) Size(v Chunk) int {
	return ord.String.Size(v.ID) +
		varint.Int.Size(v.Seq) +
		ord.String.Size(v.Text) +
		ProvenanceMUS.Size(v.Provenance) +
		varint.Int.Size(v.RecordCount)
}

// vectorMUS writes a length prefix followed by raw float32 values.
type vectorMUS struct{}

func (vectorMUS) Marshal(v []float32, bs []byte) int {
	w := musWriter{bs: bs}
	w.int(len(v))
	for _, f := range v {
		w.f32(f)
	}
	return w.n
}

func (vectorMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	r := musReader{bs: bs}
	length := r.int()
	if r.err != nil {
		return nil, r.n, r.err
	}
	v = make([]float32, length)
	for i := range v {
		v[i] = r.f32()
	}
	return v, r.n, r.err
}

func (vectorMUS) Size(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

type accidentRecordMUS struct{}

func (accidentRecordMUS) Marshal(v AccidentRecord, bs []byte) int {
	w := musWriter{bs: bs}
	w.u64(uint64(v.ID))
	w.str(v.State)
	w.str(v.District)
	w.int(v.Year)
	w.str(v.Date)
	w.str(v.MineName)
	w.str(v.MineType)
	w.str(v.Owner)
	w.str(v.Cause)
	w.int(v.Fatalities)
	w.int(v.Injuries)
	w.str(v.Description)
	w.str(v.Precaution)
	w.n += ProvenanceMUS.Marshal(v.Provenance, bs[w.n:])
	return w.n
}

func (accidentRecordMUS) Unmarshal(bs []byte) (v AccidentRecord, n int, err error) {
	r := musReader{bs: bs}
	v.ID = ID(r.u64())
	v.State = r.str()
	v.District = r.str()
	v.Year = r.int()
	v.Date = r.str()
	v.MineName = r.str()
	v.MineType = r.str()
	v.Owner = r.str()
	v.Cause = r.str()
	v.Fatalities = r.int()
	v.Injuries = r.int()
	v.Description = r.str()
	v.Precaution = r.str()
	v.Provenance = readProvenance(&r)
	return v, r.n, r.err
}

func (accidentRecordMUS) Size(v AccidentRecord) int {
	return varint.Uint64.Size(uint64(v.ID)) +
		ord.String.Size(v.State) +
		ord.String.Size(v.District) +
		varint.Int.Size(v.Year) +
		ord.String.Size(v.Date) +
		ord.String.Size(v.MineName) +
		ord.String.Size(v.MineType) +
		ord.String.Size(v.Owner) +
		ord.String.Size(v.Cause) +
		varint.Int.Size(v.Fatalities) +
		varint.Int.Size(v.Injuries) +
		ord.String.Size(v.Description) +
		ord.String.Size(v.Precaution) +
		ProvenanceMUS.Size(v.Provenance)
}

type pipelineStateMUS struct{}

func (pipelineStateMUS) Marshal(v PipelineState, bs []byte) int {
	w := musWriter{bs: bs}
	w.str(v.Fingerprint)
	w.str(v.SourceURL)
	w.str(v.ETag)
	w.str(v.LastModified)
	w.str(string(v.ActiveNamespace))
	w.time(v.LastUpdate)
	w.f64(v.LastSkipRate)
	return w.n
}

func (pipelineStateMUS) Unmarshal(bs []byte) (v PipelineState, n int, err error) {
	r := musReader{bs: bs}
	v.Fingerprint = r.str()
	v.SourceURL = r.str()
	v.ETag = r.str()
	v.LastModified = r.str()
	v.ActiveNamespace = Namespace(r.str())
	v.LastUpdate = r.time()
	v.LastSkipRate = r.f64()
	return v, r.n, r.err
}

func (pipelineStateMUS) Size(v PipelineState) int {
	return ord.String.Size(v.Fingerprint) +
		ord.String.Size(v.SourceURL) +
		ord.String.Size(v.ETag) +
		ord.String.Size(v.LastModified) +
		ord.String.Size(string(v.ActiveNamespace)) +
		sizeTime(v.LastUpdate) +
		raw.Float64.Size(v.LastSkipRate)
}

type versionMetricsMUS struct{}

// sortedReasons returns reason keys in a fixed order so encoding is deterministic.
func sortedReasons(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (versionMetricsMUS) Marshal(v VersionMetrics, bs []byte) int {
	w := musWriter{bs: bs}
	w.str(v.Version)
	w.str(v.Fingerprint)
	w.str(v.SourceURL)
	w.str(string(v.Namespace))
	w.str(v.Outcome)
	w.int(v.Rows)
	w.int(v.Records)
	w.int(v.Skipped)
	w.int(v.Chunks)
	w.f64(v.SkipRate)
	w.int(len(v.Reasons))
	for _, k := range sortedReasons(v.Reasons) {
		w.str(k)
		w.int(v.Reasons[k])
	}
	w.str(v.Error)
	w.time(v.CompletedAt)
	return w.n
}

func (versionMetricsMUS) Unmarshal(bs []byte) (v VersionMetrics, n int, err error) {
	r := musReader{bs: bs}
	v.Version = r.str()
	v.Fingerprint = r.str()
	v.SourceURL = r.str()
	v.Namespace = Namespace(r.str())
	v.Outcome = r.str()
	v.Rows = r.int()
	v.Records = r.int()
	v.Skipped = r.int()
	v.Chunks = r.int()
	v.SkipRate = r.f64()
	count := r.int()
	if r.err == nil && count > 0 {
		v.Reasons = make(map[string]int, count)
		for i := 0; i < count && r.err == nil; i++ {
			k := r.str()
			v.Reasons[k] = r.int()
		}
	}
	v.Error = r.str()
	v.CompletedAt = r.time()
	return v, r.n, r.err
}

func (versionMetricsMUS) Size(v VersionMetrics) int {
	size := ord.String.Size(v.Version) +
		ord.String.Size(v.Fingerprint) +
		ord.String.Size(v.SourceURL) +
		ord.String.Size(string(v.Namespace)) +
		ord.String.Size(v.Outcome) +
		varint.Int.Size(v.Rows) +
		varint.Int.Size(v.Records) +
		varint.Int.Size(v.Skipped) +
		varint.Int.Size(v.Chunks) +
		raw.Float64.Size(v.SkipRate) +
		varint.Int.Size(len(v.Reasons))
	for k, c := range v.Reasons {
		size += ord.String.Size(k) + varint.Int.Size(c)
	}
	return size + ord.String.Size(v.Error) + sizeTime(v.CompletedAt)
}
