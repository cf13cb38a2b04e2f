package common

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Metrics counts the work done by a viewer process.
type Metrics struct {
	mu            sync.Mutex
	start         time.Time
	views         int64
	rows          int64
	importedBytes int64
	exports       int64
	parseFailures int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
	}
	m.mu.Unlock()
}

// AddView records a view built with the given number of projected rows.
func (m *Metrics) AddView(projected int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.views++
	if projected > 0 {
		m.rows += int64(projected)
	}
	m.mu.Unlock()
}

func (m *Metrics) AddImportedBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.mu.Lock()
	m.importedBytes += n
	m.mu.Unlock()
}

func (m *Metrics) IncExport() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.exports++
	m.mu.Unlock()
}

func (m *Metrics) IncParseFailure() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.parseFailures++
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var uptime time.Duration
	if !m.start.IsZero() {
		uptime = time.Since(m.start)
	}
	return MetricsSnapshot{
		Uptime:        uptime,
		Views:         m.views,
		Rows:          m.rows,
		ImportedBytes: m.importedBytes,
		Exports:       m.exports,
		ParseFailures: m.parseFailures,
	}
}

type MetricsSnapshot struct {
	Uptime        time.Duration `json:"uptime"`
	Views         int64         `json:"views"`
	Rows          int64         `json:"rows"`
	ImportedBytes int64         `json:"importedBytes"`
	Exports       int64         `json:"exports"`
	ParseFailures int64         `json:"parseFailures"`
}

// RowsPerView is the mean number of projected rows per view.
func (s MetricsSnapshot) RowsPerView() float64 {
	if s.Views <= 0 {
		return 0
	}
	return float64(s.Rows) / float64(s.Views)
}

func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div := float64(unit)
	exp := 0
	for n := float64(b) / div; n >= unit && exp < 6; n /= unit {
		div *= unit
		exp++
	}
	prefixes := []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	return fmt.Sprintf("%.2f %s", float64(b)/div, prefixes[exp])
}

// FormatStatusLine renders a snapshot as a single log line.
func FormatStatusLine(s MetricsSnapshot) string {
	return fmt.Sprintf("status: up %s, %d views (%.1f rows/view), %s imported, %d exports, %d parse failures",
		s.Uptime.Truncate(time.Second), s.Views, s.RowsPerView(), FormatBytes(s.ImportedBytes), s.Exports, s.ParseFailures)
}

// StartStatusPrinter writes a status line to w every interval until the
// returned stop function is called.
func StartStatusPrinter(w io.Writer, m *Metrics, interval time.Duration) func() {
	if m == nil || w == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Minute
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fmt.Fprintln(w, FormatStatusLine(m.Snapshot()))
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
