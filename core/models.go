package core

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Fingerprint returns the hex encoded BLAKE2b-256 digest of a document body.
func Fingerprint(body []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// SourceDocument is a single fetched artifact from the publisher.
// It is immutable once fetched.
type SourceDocument struct {
	URL          string
	Name         string
	Fingerprint  string
	ContentType  string
	ETag         string
	LastModified string
	FetchedAt    time.Time
	Body         []byte
}

// Version returns the short document version derived from the fingerprint.
func (d *SourceDocument) Version() string {
	return ShortVersion(d.Fingerprint)
}

// ShortVersion truncates a fingerprint to the 16 character version form.
func ShortVersion(fingerprint string) string {
	if len(fingerprint) > 16 {
		return fingerprint[:16]
	}
	return fingerprint
}

// Canonical field keys used by RawRow.
const (
	FieldDate        = "date"
	FieldYear        = "year"
	FieldState       = "state"
	FieldDistrict    = "district"
	FieldMine        = "mine"
	FieldMineType    = "mine_type"
	FieldOwner       = "owner"
	FieldTime        = "time"
	FieldCause       = "cause"
	FieldKilled      = "killed"
	FieldInjured     = "injured"
	FieldDescription = "description"
	FieldPrecaution  = "precaution"
)

// RawRow is one structured row produced by the extractor.
// Index is the zero-based position of the row within its document.
type RawRow struct {
	Index  int
	Fields map[string]string
}

// Get returns the trimmed value of a field, or "" when absent.
func (r RawRow) Get(field string) string {
	return strings.TrimSpace(r.Fields[field])
}

// Provenance ties a record or chunk back to its source document version and rows.
type Provenance struct {
	Version  string
	FirstRow int
	LastRow  int
}

func (p Provenance) String() string {
	return fmt.Sprintf("%s:%d-%d", p.Version, p.FirstRow, p.LastRow)
}

// AccidentRecord is the canonical normalized accident record.
type AccidentRecord struct {
	ID          ID
	State       string
	District    string
	Year        int
	Date        string
	MineName    string
	MineType    string
	Owner       string
	Cause       string
	Fatalities  int
	Injuries    int
	Description string
	Precaution  string
	Provenance  Provenance
}

// Chunk is a bounded group of records rendered as one retrievable text unit.
// Records is populated by the chunker and is not persisted by the index.
type Chunk struct {
	ID          string
	Seq         int
	Text        string
	Provenance  Provenance
	RecordCount int
	Records     []AccidentRecord
}

// ChunkID derives a stable chunk identifier from provenance.
func ChunkID(p Provenance) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(p.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// Namespace names one generation of the vector index.
type Namespace string

// NewNamespace builds a namespace name from a generation number and document version.
func NewNamespace(generation uint64, version string) Namespace {
	v := version
	if len(v) > 12 {
		v = v[:12]
	}
	return Namespace(fmt.Sprintf("g%06d-%s", generation, v))
}

// Validate checks that the namespace can be used as a storage key component.
func (n Namespace) Validate() error {
	if n == "" {
		return fmt.Errorf("%w: empty", ErrInvalidNamespace)
	}
	if strings.ContainsAny(string(n), ": \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, string(n))
	}
	return nil
}

// Metric is the similarity function an index was created with.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
)

// ParseMetric parses a metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case MetricCosine, "":
		return MetricCosine, nil
	case MetricDot, "ip", "inner_product":
		return MetricDot, nil
	}
	return "", fmt.Errorf("unknown similarity metric %q", s)
}

// IndexEntry pairs a chunk with its embedding for upsert.
type IndexEntry struct {
	Chunk  Chunk
	Vector []float32
}

// Hit is one ranked chunk returned from an index query.
type Hit struct {
	Chunk Chunk
	Score float32
}

// RetrievalResult holds hits ordered by descending score.
type RetrievalResult struct {
	Namespace Namespace
	Hits      []Hit
}

// Empty reports whether no hits were retrieved.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Hits) == 0
}

// QueryRequest is a question posed against the index.
// TopK and Namespace are optional.
type QueryRequest struct {
	Question  string
	TopK      int
	Namespace Namespace
}

// AnswerResponse is a synthesized answer plus the evidence it was built from.
type AnswerResponse struct {
	Question string
	Answer   string
	Grounded bool
	Evidence RetrievalResult
}

// State is a stage of the update cycle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateExtracting
	StateNormalizing
	StateChunking
	StateEmbedding
	StateIndexing
	StateActivating
	StateError
)

var stateNames = [...]string{
	"IDLE",
	"FETCHING",
	"EXTRACTING",
	"NORMALIZING",
	"CHUNKING",
	"EMBEDDING",
	"INDEXING",
	"ACTIVATING",
	"ERROR",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// IndexStatus is the externally visible status of the index.
type IndexStatus struct {
	ActiveNamespace Namespace
	LastUpdateTime  time.Time
	LastSkipRate    float64
	State           State
	LastVersion     string
	LastError       string
}

// SkipReason explains why a raw row was not normalized.
type SkipReason string

const (
	SkipEmptyRow         SkipReason = "empty_row"
	SkipMissingState     SkipReason = "missing_state"
	SkipUnknownState     SkipReason = "unknown_state"
	SkipMissingYear      SkipReason = "missing_year"
	SkipBadYear          SkipReason = "bad_year"
	SkipBadFatalities    SkipReason = "bad_fatalities"
	SkipEmptyDescription SkipReason = "empty_description"
	SkipInvalidRecord    SkipReason = "invalid_record"
)

// SkipStats counts normalization outcomes for one batch.
type SkipStats struct {
	Total   int
	Skipped int
	Reasons map[SkipReason]int
}

// Add records one skipped row.
func (s *SkipStats) Add(reason SkipReason) {
	if s.Reasons == nil {
		s.Reasons = make(map[SkipReason]int)
	}
	s.Skipped++
	s.Reasons[reason]++
}

// Rate returns the fraction of rows skipped, 0 for an empty batch.
func (s SkipStats) Rate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Skipped) / float64(s.Total)
}

// PipelineState is the persisted ingestion state that survives restarts.
type PipelineState struct {
	Fingerprint     string
	SourceURL       string
	ETag            string
	LastModified    string
	ActiveNamespace Namespace
	LastUpdate      time.Time
	LastSkipRate    float64
}

// Cycle outcomes recorded in VersionMetrics.
const (
	OutcomeActivated = "activated"
	OutcomeSkipped   = "skipped"
)

// VersionMetrics records the ingestion result for one document version.
type VersionMetrics struct {
	Version     string
	Fingerprint string
	SourceURL   string
	Namespace   Namespace
	Outcome     string
	Rows        int
	Records     int
	Skipped     int
	Chunks      int
	SkipRate    float64
	Reasons     map[string]int
	Error       string
	CompletedAt time.Time
}
