package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/sanket/core"
)

// Key prefixes for different data types
const (
	metricKey        = "meta:metric"
	namespacePrefix  = "ns"
	vectorPrefix     = "vec"
	chunkPrefix      = "chk"
	stateKey         = "state:pipeline"
	metricsPrefix    = "metrics"
	recordPrefix     = "rec"
	generationSeqKey = "seq:generation"
)

// makeNamespaceKey generates the marker key recording that ns exists.
func makeNamespaceKey(ns core.Namespace) []byte {
	return []byte(fmt.Sprintf("%s:%s", namespacePrefix, ns))
}

// makeVectorKey generates a key for a chunk vector.
// Format: vec:namespace:chunkID
func makeVectorKey(ns core.Namespace, chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", vectorPrefix, ns, chunkID))
}

// makeVectorPrefix generates the prefix covering every vector in ns.
func makeVectorPrefix(ns core.Namespace) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorPrefix, ns))
}

// makeChunkKey generates a key for stored chunk text and provenance.
// Format: chk:namespace:chunkID
func makeChunkKey(ns core.Namespace, chunkID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", chunkPrefix, ns, chunkID))
}

// makeChunkPrefix generates the prefix covering every chunk in ns.
func makeChunkPrefix(ns core.Namespace) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, ns))
}

// makeMetricsKey generates a key for per-version ingestion metrics.
func makeMetricsKey(version string) []byte {
	return []byte(fmt.Sprintf("%s:%s", metricsPrefix, version))
}

// makeRecordKey generates a composite key for a normalized record.
// Format: rec:version:row
func makeRecordKey(version string, row int) []byte {
	prefix := makeRecordPrefix(version)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort matches row order
	binary.BigEndian.PutUint64(buf[offset:], uint64(row))
	return buf
}

// makeRecordPrefix generates the prefix covering every record of a version.
func makeRecordPrefix(version string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", recordPrefix, version))
}
