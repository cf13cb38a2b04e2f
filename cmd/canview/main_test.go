package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/canview/internal/bundle"
)

const savedResponse = `{"success": true, "data": {
	"headers": ["Time", "Source", "Target", "Name", "Buffer"],
	"rows": [
		["10:00:01.100", "Host", "Probe", "", "string=2cf:8:[10 40 ff 37 48 c1 0a 00]"],
		["10:00:01.200", "Host", "Probe", "", "string=100:1:[05]"],
		["10:00:02.100", "Host", "Probe", "", "string=2cf:8:[11 40 ff 37 48 c8 16 00]"]
	],
	"total": 3}}`

func writeProtocolConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "can")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	files := map[string]string{
		bundle.DefinitionsFile: `{"2cf": {"description": "Reply Thermal State"}, "100": {"description": "Heartbeat"}}`,
		bundle.DataParserFile:  `{"2cf": {"bytes": {"5-6": {"type": "uint16_le", "name": "HUR", "scale": 0.01, "precision": 2, "unit": "%"}}}}`,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
	}
	return root
}

func writeResponse(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestShowRendersVisibleRows(t *testing.T) {
	cfg := writeProtocolConfig(t)
	in := writeResponse(t, t.TempDir(), "bench.json", savedResponse)
	sess, err := openView(viewOptions{In: in, ConfigDir: cfg, Protocol: "can", Hide: []string{"100"}})
	if err != nil {
		t.Fatalf("openView: %v", err)
	}
	if sess.File() != "bench.csv" {
		t.Fatalf("unexpected file name %q", sess.File())
	}
	var out bytes.Buffer
	runShow(&out, sess, "")
	text := out.String()
	if !strings.Contains(text, "0x2CF - Reply Thermal State") || !strings.Contains(text, "HUR 27.53%") {
		t.Fatalf("missing thermal row in output:\n%s", text)
	}
	if strings.Contains(text, "Heartbeat") {
		t.Fatalf("hidden id rendered:\n%s", text)
	}
	if !strings.Contains(text, "2 of 3 rows shown") {
		t.Fatalf("missing row count:\n%s", text)
	}
}

func TestSidebarListsGroups(t *testing.T) {
	cfg := writeProtocolConfig(t)
	in := writeResponse(t, t.TempDir(), "bench.json", savedResponse)
	sess, err := openView(viewOptions{In: in, ConfigDir: cfg, Hide: []string{"2cf"}})
	if err != nil {
		t.Fatalf("openView: %v", err)
	}
	var out bytes.Buffer
	runSidebar(&out, sess)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and two entries, got:\n%s", out.String())
	}
	if !strings.Contains(lines[2], "0x2CF - Reply Thermal State") || !strings.HasSuffix(lines[2], "yes") {
		t.Fatalf("unexpected entry %q", lines[2])
	}
}

func TestRunDecode(t *testing.T) {
	b := bundle.Load(writeProtocolConfig(t), "can")
	var out bytes.Buffer
	if err := runDecode(&out, b, "2CF", "10 40 ff 37 48 c1 0a 00", ""); err != nil {
		t.Fatalf("runDecode: %v", err)
	}
	if out.String() != "0x2CF - Reply Thermal State\nHUR 27.53%\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
	if err := runDecode(&out, b, "7ff", "00", ""); err == nil {
		t.Fatalf("expected error for message without decoder")
	}
}

func TestRunStatsTable(t *testing.T) {
	in := writeResponse(t, t.TempDir(), "bench.json", savedResponse)
	res, err := readResult(in)
	if err != nil {
		t.Fatalf("readResult: %v", err)
	}
	var out bytes.Buffer
	if err := runStats(&out, res.Data.Table(), "thermal", ""); err != nil {
		t.Fatalf("runStats: %v", err)
	}
	if !strings.Contains(out.String(), "27.53%") || !strings.Contains(out.String(), "58.32%") {
		t.Fatalf("unexpected stats output:\n%s", out.String())
	}
	png := filepath.Join(t.TempDir(), "rate.png")
	if err := runStats(&out, res.Data.Table(), "rate", png); err != nil {
		t.Fatalf("runStats png: %v", err)
	}
	if _, err := os.Stat(png); err != nil {
		t.Fatalf("chart not written: %v", err)
	}
	if err := runStats(&out, res.Data.Table(), "bogus", ""); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestHighlightMatchesKeepsText(t *testing.T) {
	got := highlightMatches("Reply Thermal State", "thermal")
	if !strings.Contains(got, "Thermal") || !strings.HasPrefix(got, "Reply ") {
		t.Fatalf("unexpected highlight %q", got)
	}
	if truncate("abcdef", 4) != "abc…" || truncate("abc", 4) != "abc" {
		t.Fatalf("unexpected truncation")
	}
}
