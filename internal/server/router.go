package server

import "net/http"

// NewRouter wires HTTP routes to the server's handlers.
func NewRouter(s *Server) (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/views", s.handleViews)
	mux.HandleFunc("/views/import", s.handleImport)
	mux.HandleFunc("/views/", s.handleView)
	mux.HandleFunc("/decode", s.handleDecode)
	mux.HandleFunc("/config/reload", s.handleReload)
	mux.HandleFunc("/artifacts/", s.handleArtifactDownload)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux, nil
}
