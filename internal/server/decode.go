package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"example.com/canview/internal/rows"
)

type decodeRequest struct {
	Protocol string `json:"protocol"`
	ID       string `json:"id"`
	Bytes    string `json:"bytes"`
	Name     string `json:"name"`
}

type decodeResponse struct {
	Protocol    string `json:"protocol"`
	ID          string `json:"id,omitempty"`
	IDDisplay   string `json:"idDisplay,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text"`
	Decoded     bool   `json:"decoded"`
}

// handleDecode runs one message through the protocol's codec and
// definitions. A name is decoded with the name table when no id is given.
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return
	}
	id := strings.ToLower(strings.TrimSpace(req.ID))
	if id == "" && strings.TrimSpace(req.Name) == "" {
		http.Error(w, "id or name is required", http.StatusBadRequest)
		return
	}
	b := s.bundles.Get(req.Protocol)
	resp := decodeResponse{Protocol: b.Protocol, ID: id}
	if id != "" {
		res := b.Definitions.Resolve(id)
		if res.Known {
			resp.Description = res.Description
		}
		resp.IDDisplay = rows.FormatIDDisplay(id, res.Description)
		resp.Text, resp.Decoded = b.Codec.DecodeData(id, req.Bytes)
	} else {
		resp.Text, resp.Decoded = b.Codec.DecodeName(strings.TrimSpace(req.Name))
	}
	writeJSON(w, http.StatusOK, resp)
}
