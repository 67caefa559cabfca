package extract

import (
	"maps"
	"slices"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Stats accumulates the counters of a run. A Finder updates the lookup
// counters; the Driver owns the target counters and timing.
type Stats struct {
	Targets   int
	Extracted int
	NotFound  int
	// Skipped counts pages whose content address carried no record id.
	Skipped int

	// Attempts counts windows read from the store.
	Attempts int
	// WindowRetries counts windows re-read larger after a truncated tuple.
	WindowRetries int
	// Mismatches counts "(id," candidates that did not parse as a tuple.
	Mismatches int

	BlobHits map[int64]int

	Started time.Time
	Elapsed time.Duration

	latency *hdrhistogram.Histogram
}

// NewStats returns empty stats.
func NewStats() *Stats {
	return &Stats{
		BlobHits: make(map[int64]int),
		latency:  hdrhistogram.New(1, int64(time.Minute), 2),
	}
}

func (s *Stats) hit(blobID int64) {
	s.BlobHits[blobID]++
}

// ObserveLookup records the duration of one record lookup.
func (s *Stats) ObserveLookup(d time.Duration) {
	v := int64(d)
	v = max(v, 1)
	v = min(v, s.latency.HighestTrackableValue())
	_ = s.latency.RecordValue(v)
}

// Rate is the number of processed targets per second.
func (s *Stats) Rate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Targets) / secs
}

// HitBlobs returns the blob ids with at least one hit, ascending.
func (s *Stats) HitBlobs() []int64 {
	return slices.Sorted(maps.Keys(s.BlobHits))
}

// Latency summarises lookup durations.
type Latency struct {
	Count int64         `yaml:"count" json:"count"`
	P50   time.Duration `yaml:"p50" json:"p50"`
	P95   time.Duration `yaml:"p95" json:"p95"`
	P99   time.Duration `yaml:"p99" json:"p99"`
	Max   time.Duration `yaml:"max" json:"max"`
}

func (s *Stats) Latency() Latency {
	h := s.latency
	if h.TotalCount() == 0 {
		return Latency{}
	}
	return Latency{
		Count: h.TotalCount(),
		P50:   time.Duration(h.ValueAtQuantile(50)),
		P95:   time.Duration(h.ValueAtQuantile(95)),
		P99:   time.Duration(h.ValueAtQuantile(99)),
		Max:   time.Duration(h.Max()),
	}
}
