package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/canview/internal/report"
)

func TestBatchCmdGeneratesOutputs(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "inputs")
	writeResponse(t, inputDir, "alpha.json", savedResponse)
	writeResponse(t, filepath.Join(inputDir, "nested"), "beta.json", savedResponse)
	outDir := filepath.Join(root, "out")

	batchCmd([]string{
		"--in", inputDir,
		"--config", writeProtocolConfig(t),
		"--formats", "json,xlsx",
		"--hide", "100",
		"--out-dir", outDir,
	})

	check := func(name string) {
		out := filepath.Join(outDir, name)
		if info, err := os.Stat(out); err != nil || !info.IsDir() {
			t.Fatalf("Output dir missing for %s: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(out, "view.xlsx")); err != nil {
			t.Fatalf("Stat xlsx %s: %v", name, err)
		}
		rep, err := report.LoadViewJSON(filepath.Join(out, "view.json"))
		if err != nil {
			t.Fatalf("LoadViewJSON %s: %v", name, err)
		}
		if rep.File != name+".csv" || len(rep.Rows) != 2 || rep.Summary.Hidden != 1 {
			t.Fatalf("unexpected export for %s: %+v", name, rep.Summary)
		}
	}

	check("alpha")
	check("beta")
}

func TestRunBatchReportsFailures(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "inputs")
	writeResponse(t, inputDir, "good.json", savedResponse)
	writeResponse(t, inputDir, "bad.json", `{"success": false, "message": "CSV header missing"}`)

	var out bytes.Buffer
	err := runBatch(&out, batchOptions{
		InDir:  inputDir,
		OutDir: filepath.Join(root, "out"),
		View:   viewOptions{ConfigDir: writeProtocolConfig(t), Protocol: "can"},
	})
	if err == nil || !strings.Contains(err.Error(), "1 of 2 files failed") {
		t.Fatalf("expected one failure, got %v", err)
	}
	if !strings.Contains(out.String(), "FAIL") || !strings.Contains(out.String(), "CSV header missing") {
		t.Fatalf("failure not reported:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(root, "out", "good", "view.json")); err != nil {
		t.Fatalf("good file not exported: %v", err)
	}
}
