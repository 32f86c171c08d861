package bench

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/abdul-hamid-achik/hitcall/packages/call"
	"github.com/abdul-hamid-achik/hitcall/packages/http"
)

// Latencies are recorded in microseconds between 1us and 60s.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
)

// Metrics aggregates call entries. It is an http.Recorder and is safe for
// concurrent use.
type Metrics struct {
	mu sync.RWMutex

	total     atomic.Int64
	success   atomic.Int64
	failure   atomic.Int64
	transport atomic.Int64
	decode    atomic.Int64

	histogram *hdrhistogram.Histogram
	codes     map[int]int64

	startTime time.Time
	endTime   time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3),
		codes:     make(map[int]int64),
	}
}

// Start marks the beginning of the run
func (m *Metrics) Start() {
	m.mu.Lock()
	m.startTime = time.Now()
	m.endTime = time.Time{}
	m.mu.Unlock()
}

// Stop marks the end of the run
func (m *Metrics) Stop() {
	m.mu.Lock()
	m.endTime = time.Now()
	m.mu.Unlock()
}

// Reset discards everything recorded so far.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total.Store(0)
	m.success.Store(0)
	m.failure.Store(0)
	m.transport.Store(0)
	m.decode.Store(0)
	m.histogram.Reset()
	m.codes = make(map[int]int64)
	m.startTime = time.Time{}
	m.endTime = time.Time{}
}

// Record implements http.Recorder.
func (m *Metrics) Record(e http.Entry) {
	m.total.Add(1)

	if e.Outcome == http.OutcomeSuccess {
		m.success.Add(1)
	} else {
		m.failure.Add(1)
		switch e.Code {
		case call.CodeTransport:
			m.transport.Add(1)
		case call.CodeDecode:
			m.decode.Add(1)
		}
	}

	latencyUs := e.Duration.Microseconds()
	if latencyUs < minLatencyUs {
		latencyUs = minLatencyUs
	}
	if latencyUs > maxLatencyUs {
		latencyUs = maxLatencyUs
	}

	m.mu.Lock()
	_ = m.histogram.RecordValue(latencyUs)
	if e.Outcome != http.OutcomeSuccess {
		m.codes[e.Code]++
	}
	m.mu.Unlock()
}

// CodeCount is the number of failures reported with one error code.
type CodeCount struct {
	Code  int
	Count int64
}

// Summary is the final result of a run.
type Summary struct {
	Duration       time.Duration
	TotalRequests  int64
	SuccessCount   int64
	ErrorCount     int64
	TransportCount int64
	DecodeCount    int64

	RPS         float64
	SuccessRate float64
	ErrorRate   float64

	P50    time.Duration
	P95    time.Duration
	P99    time.Duration
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration

	// Codes lists the failure codes, most frequent first.
	Codes []CodeCount
}

func us(v int64) time.Duration { return time.Duration(v) * time.Microsecond }

// GetSummary returns the metrics summary. Before Stop the duration runs up to now.
func (m *Metrics) GetSummary() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	duration := m.endTime.Sub(m.startTime)
	if m.endTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	total := m.total.Load()
	success := m.success.Load()
	failures := m.failure.Load()

	s := &Summary{
		Duration:       duration,
		TotalRequests:  total,
		SuccessCount:   success,
		ErrorCount:     failures,
		TransportCount: m.transport.Load(),
		DecodeCount:    m.decode.Load(),
	}
	if duration.Seconds() > 0 {
		s.RPS = float64(total) / duration.Seconds()
	}
	if total > 0 {
		s.SuccessRate = float64(success) / float64(total)
		s.ErrorRate = float64(failures) / float64(total)

		s.P50 = us(m.histogram.ValueAtQuantile(50))
		s.P95 = us(m.histogram.ValueAtQuantile(95))
		s.P99 = us(m.histogram.ValueAtQuantile(99))
		s.Min = us(m.histogram.Min())
		s.Max = us(m.histogram.Max())
		s.Mean = time.Duration(m.histogram.Mean() * float64(time.Microsecond))
		s.StdDev = time.Duration(m.histogram.StdDev() * float64(time.Microsecond))
	}

	for code, n := range m.codes {
		s.Codes = append(s.Codes, CodeCount{Code: code, Count: n})
	}
	sort.Slice(s.Codes, func(i, j int) bool {
		if s.Codes[i].Count != s.Codes[j].Count {
			return s.Codes[i].Count > s.Codes[j].Count
		}
		return s.Codes[i].Code < s.Codes[j].Code
	})

	return s
}
