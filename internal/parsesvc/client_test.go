package parsesvc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseSuccess(t *testing.T) {
	var gotPath, gotProtocol string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotProtocol = r.URL.Query().Get("protocol")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"headers":["Time","Buffer"],"rows":[["1","string=2cf:1:[00]"]],"total":1},"cached":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	res, err := c.Parse(context.Background(), "log 1.csv", "CANOPEN")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if gotPath != "/api/parse/log 1.csv" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotProtocol != "CANOPEN" {
		t.Fatalf("unexpected protocol %q", gotProtocol)
	}
	if !res.Cached || res.Data.Total != 1 || len(res.Data.Table().Rows) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Digest) != 64 {
		t.Fatalf("expected sha256 digest, got %q", res.Digest)
	}
}

func TestParseFailureIsTerminalError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"file not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Parse(context.Background(), "missing.csv", "CAN")
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if perr.Message != "file not found" || perr.Status != http.StatusInternalServerError {
		t.Fatalf("unexpected error %+v", perr)
	}
}

func TestParseNonJSONReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Parse(context.Background(), "x.csv", "")
	var perr *Error
	if !errors.As(err, &perr) || perr.Status != http.StatusBadGateway {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestParseHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient(srv.URL).Parse(ctx, "x.csv", "CAN"); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestDecodeResult(t *testing.T) {
	res, err := DecodeResult(strings.NewReader(`{"success":true,"data":{"headers":["Name"],"rows":[]}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Data.Headers) != 1 {
		t.Fatalf("unexpected headers %v", res.Data.Headers)
	}
	if _, err := DecodeResult(strings.NewReader(`{"success":false}`)); err == nil {
		t.Fatalf("expected failure")
	}
	if _, err := DecodeResult(strings.NewReader(`nope`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := NewClient("").Parse(context.Background(), "a.csv", ""); err == nil {
		t.Fatalf("expected missing URL error")
	}
}
