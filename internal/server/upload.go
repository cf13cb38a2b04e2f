package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"example.com/canview/internal/parsesvc"
)

// handleImport opens a view from a saved parse service reply, either as the
// "file" part of a multipart form or as the raw request body. The source file
// name and protocol come from the "name" and "protocol" form values or query
// parameters.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Query().Get("name")
	protocol := r.URL.Query().Get("protocol")
	var (
		art Artifact
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(512 << 20); err != nil {
			http.Error(w, fmt.Sprintf("parse multipart: %v", err), http.StatusBadRequest)
			return
		}
		if v := r.FormValue("name"); v != "" {
			name = v
		}
		if v := r.FormValue("protocol"); v != "" {
			protocol = v
		}
		file, fh, ferr := r.FormFile("file")
		if ferr != nil {
			http.Error(w, fmt.Sprintf("no file provided: %v", ferr), http.StatusBadRequest)
			return
		}
		art, err = s.saveUpload(file, fh.Filename)
		file.Close()
	} else {
		art, err = s.saveUpload(r.Body, "response.json")
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("save upload: %v", err), http.StatusBadRequest)
		return
	}
	s.metrics.AddImportedBytes(art.Size)

	f, err := os.Open(art.Path)
	if err != nil {
		http.Error(w, fmt.Sprintf("open upload: %v", err), http.StatusInternalServerError)
		return
	}
	res, err := parsesvc.DecodeResult(f)
	f.Close()
	if err != nil {
		var perr *parsesvc.Error
		if errors.As(err, &perr) {
			s.metrics.IncParseFailure()
			writeJSON(w, http.StatusUnprocessableEntity, failureResponse{Success: false, Message: perr.Message})
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if name == "" {
		name = strings.TrimSuffix(art.Name, filepath.Ext(art.Name)) + ".csv"
	}
	id, sess, b := s.openView(name, protocol, res)
	resp := s.describe(id, sess, s.requestLang(r))
	resp.Cached = res.Cached
	resp.Warnings = b.Warnings
	ref := toRef(art)
	resp.Source = &ref
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) saveUpload(src io.Reader, filename string) (Artifact, error) {
	ext := filepath.Ext(filename)
	pattern := "upload-*"
	if ext != "" {
		pattern = fmt.Sprintf("upload-*%s", ext)
	}
	dest, err := os.CreateTemp(s.uploadsDir, pattern)
	if err != nil {
		return Artifact{}, err
	}
	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		os.Remove(dest.Name())
		return Artifact{}, err
	}
	dest.Close()
	return s.addArtifact(dest.Name(), filename, guessContentType(filename), "source")
}
