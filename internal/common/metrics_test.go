package common

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.Start()
	m.AddView(300)
	m.AddView(100)
	m.AddImportedBytes(2048)
	m.IncExport()
	m.IncParseFailure()
	snap := m.Snapshot()
	if snap.Views != 2 || snap.Rows != 400 || snap.Exports != 1 || snap.ParseFailures != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.RowsPerView() != 200 {
		t.Fatalf("rows per view = %v", snap.RowsPerView())
	}
	line := FormatStatusLine(snap)
	if !strings.Contains(line, "2.00 KiB imported") {
		t.Fatalf("unexpected status line %q", line)
	}
	var nilMetrics *Metrics
	nilMetrics.AddView(1)
	if nilMetrics.Snapshot().Views != 0 {
		t.Fatalf("nil metrics should report nothing")
	}
}

func TestFormatBytes(t *testing.T) {
	cases := map[int64]string{
		12:      "12 B",
		1536:    "1.50 KiB",
		5 << 20: "5.00 MiB",
	}
	for in, want := range cases {
		if got := FormatBytes(in); got != want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestStartStatusPrinter(t *testing.T) {
	m := NewMetrics()
	m.Start()
	var buf bytes.Buffer
	stop := StartStatusPrinter(&buf, m, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	stop()
	if !strings.Contains(buf.String(), "status: up") {
		t.Fatalf("expected a status line, got %q", buf.String())
	}
}

func TestSha256OfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resp.json")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sum, size, err := Sha256OfFile(path)
	if err != nil {
		t.Fatalf("sha256: %v", err)
	}
	if size != 3 || sum != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected digest %s (%d bytes)", sum, size)
	}
}
