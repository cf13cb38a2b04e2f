package server

import (
	"encoding/json"
	"io"
	"net/http"

	"example.com/canview/internal/view"
)

// summaryLine closes a streamed rows response.
type summaryLine struct {
	Type    string       `json:"type"`
	Summary view.Summary `json:"summary"`
	Message string       `json:"message,omitempty"`
}

// rowStream writes one projected row per line, then a single summary line.
// Each line is flushed so clients can render rows before the view is done.
type rowStream struct {
	w       io.Writer
	flusher http.Flusher
	rows    int
}

func newRowStream(w http.ResponseWriter) *rowStream {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return &rowStream{w: w, flusher: flusher}
}

func (s *rowStream) WriteRow(p rowPayload) error {
	if err := s.writeLine(p); err != nil {
		return err
	}
	s.rows++
	return nil
}

// WriteSummary ends the stream. Rows counts what was actually sent, which
// can be fewer than Summary.Visible when the client went away.
func (s *rowStream) WriteSummary(sum view.Summary, msg string) error {
	return s.writeLine(summaryLine{Type: "summary", Summary: sum, Message: msg})
}

func (s *rowStream) Rows() int {
	return s.rows
}

func (s *rowStream) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
