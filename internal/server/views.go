package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"example.com/canview/internal/bundle"
	"example.com/canview/internal/highlight"
	"example.com/canview/internal/parsesvc"
	"example.com/canview/internal/report"
	"example.com/canview/internal/rows"
	"example.com/canview/internal/stats"
	"example.com/canview/internal/view"
)

type createViewRequest struct {
	File     string `json:"file"`
	Protocol string `json:"protocol"`
}

type viewResponse struct {
	ID       string       `json:"id"`
	File     string       `json:"file"`
	Protocol string       `json:"protocol"`
	Digest   string       `json:"digest,omitempty"`
	Cached   bool         `json:"cached"`
	Created  time.Time    `json:"created"`
	Summary  view.Summary `json:"summary"`
	Message  string       `json:"message,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
	Source   *ArtifactRef `json:"source,omitempty"`
}

// failureResponse mirrors the parse service error shape.
type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type rowPayload struct {
	rows.Row
	Style    *highlight.Style `json:"style,omitempty"`
	Segments [][]view.Segment `json:"segments,omitempty"`
}

type rowsResponse struct {
	Rows    []rowPayload `json:"rows"`
	Summary view.Summary `json:"summary"`
	Message string       `json:"message,omitempty"`
}

type toggleRequest struct {
	IDs       []string `json:"ids"`
	DisplayID string   `json:"displayId"`
}

type toggleResponse struct {
	Hidden    bool         `json:"hidden"`
	HiddenIDs []string     `json:"hiddenIds"`
	Summary   view.Summary `json:"summary"`
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.File) == "" {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	res, err := s.parser.Parse(r.Context(), req.File, bundle.NormalizeProtocol(req.Protocol))
	if err != nil {
		s.metrics.IncParseFailure()
		log.Printf("parse %s: %v", req.File, err)
		msg := err.Error()
		var perr *parsesvc.Error
		if errors.As(err, &perr) {
			msg = perr.Message
		}
		writeJSON(w, http.StatusBadGateway, failureResponse{Success: false, Message: msg})
		return
	}
	id, sess, b := s.openView(req.File, req.Protocol, res)
	resp := s.describe(id, sess, s.requestLang(r))
	resp.Cached = res.Cached
	resp.Warnings = b.Warnings
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) openView(file, protocol string, res *parsesvc.Result) (string, *view.Session, *bundle.Bundle) {
	b := s.bundles.Get(protocol)
	sess := view.NewSession(b.ViewConfig(file, res.Digest, s.rowCap), res.Data.Table())
	id := s.sessions.Put(sess)
	s.metrics.AddView(len(sess.Rows()))
	return id, sess, b
}

func (s *Server) describe(id string, sess *view.Session, lang report.Language) viewResponse {
	sum := sess.Summary("")
	return viewResponse{
		ID:       id,
		File:     sess.File(),
		Protocol: sess.Protocol(),
		Digest:   sess.Digest(),
		Created:  sess.Created(),
		Summary:  sum,
		Message:  report.NewTranslator(lang).SummaryMessage(sum),
	}
}

func (s *Server) requestLang(r *http.Request) report.Language {
	raw := r.URL.Query().Get("lang")
	if raw == "" {
		return s.lang
	}
	lang, err := report.ParseLanguage(raw)
	if err != nil {
		return s.lang
	}
	return lang
}

// handleView dispatches /views/{id}[/sub].
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/views/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.describe(id, sess, s.requestLang(r)))
		case http.MethodDelete:
			s.sessions.Delete(id)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	case "rows":
		s.handleRows(w, r, sess)
	case "sidebar":
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Entries []view.SidebarEntry `json:"entries"`
		}{Entries: sess.Sidebar()})
	case "toggle":
		s.handleToggle(w, r, sess)
	case "export.pdf", "export.xlsx", "export.json":
		s.handleExport(w, r, sess, strings.TrimPrefix(sub, "export"))
	case "stats/thermal", "stats/thermal.png", "stats/rate", "stats/rate.png":
		s.handleStats(w, r, sess, strings.TrimPrefix(sub, "stats/"))
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request, sess *view.Session) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	search := r.URL.Query().Get("search")
	visible := sess.Visible(search)
	payloads := make([]rowPayload, 0, len(visible))
	for _, row := range visible {
		p := rowPayload{Row: row, Style: sess.Style(row)}
		if search != "" {
			for _, cell := range row.Cells() {
				p.Segments = append(p.Segments, view.HighlightSegments(cell, search))
			}
		}
		payloads = append(payloads, p)
	}
	sum := sess.Summary(search)
	msg := report.NewTranslator(s.requestLang(r)).SummaryMessage(sum)

	if r.URL.Query().Get("stream") == "true" {
		stream := newRowStream(w)
		for _, p := range payloads {
			if err := stream.WriteRow(p); err != nil {
				log.Printf("stream rows for %s: stopped after %d rows: %v", sess.File(), stream.Rows(), err)
				return
			}
		}
		if err := stream.WriteSummary(sum, msg); err != nil {
			log.Printf("stream rows for %s: summary: %v", sess.File(), err)
		}
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Rows: payloads, Summary: sum, Message: msg})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request, sess *view.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	var hidden bool
	switch {
	case req.DisplayID != "":
		var found bool
		hidden, found = sess.ToggleGroup(req.DisplayID)
		if !found {
			http.Error(w, fmt.Sprintf("unknown display id %q", req.DisplayID), http.StatusNotFound)
			return
		}
	case len(req.IDs) > 0:
		hidden = sess.Toggle(req.IDs)
	default:
		http.Error(w, "ids or displayId required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{
		Hidden:    hidden,
		HiddenIDs: sess.Hidden().Sorted(),
		Summary:   sess.Summary(""),
	})
}

// handleExport writes the current view to a workspace file, registers it as
// an artifact and sends it back.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *view.Session, ext string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rep := report.FromSession(sess, r.URL.Query().Get("search"))
	lang := s.requestLang(r)
	out, err := s.tempPath("export-*" + ext)
	if err != nil {
		http.Error(w, fmt.Sprintf("create export: %v", err), http.StatusInternalServerError)
		return
	}
	switch ext {
	case ".pdf":
		err = report.SaveViewPDF(rep, out, report.PDFOptions{Lang: lang, FontPath: s.fontPath})
	case ".xlsx":
		err = report.SaveViewXLSX(rep, out, lang)
	default:
		err = report.SaveViewJSON(rep, out)
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("export: %v", err), http.StatusInternalServerError)
		return
	}
	art, err := s.addArtifact(out, exportName(sess.File(), ext), "", "export")
	if err != nil {
		http.Error(w, fmt.Sprintf("register export: %v", err), http.StatusInternalServerError)
		return
	}
	s.metrics.IncExport()
	s.serveArtifact(w, art)
}

func exportName(file, ext string) string {
	base := filepath.Base(strings.TrimSpace(file))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "view"
	}
	return base + "-view" + ext
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, sess *view.Session, kind string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	table := sess.Table()
	var (
		title  string
		series []stats.Series
		body   any
	)
	switch strings.TrimSuffix(kind, ".png") {
	case "thermal":
		th := stats.ThermalSeries(table)
		title, series, body = "Heat Unit Ratio", []stats.Series{th.Anode, th.Casing}, th
	default:
		rate := stats.MessageRate(table)
		title, series, body = "Messages per second", []stats.Series{rate}, rate
	}
	if !strings.HasSuffix(kind, ".png") {
		writeJSON(w, http.StatusOK, body)
		return
	}
	var buf bytes.Buffer
	if err := stats.RenderPNG(&buf, title, series...); err != nil {
		if errors.Is(err, stats.ErrNoData) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
