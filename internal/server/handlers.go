package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/canview/internal/bundle"
	"example.com/canview/internal/common"
	"example.com/canview/internal/parsesvc"
	"example.com/canview/internal/report"
)

// DefaultSessionTTL is how long an untouched view is kept.
const DefaultSessionTTL = 30 * time.Minute

// Parser fetches the parsed content of a file.
type Parser interface {
	Parse(ctx context.Context, filename, protocol string) (*parsesvc.Result, error)
}

// Server coordinates HTTP handlers, open views and the exports they produce.
type Server struct {
	artifacts  *ArtifactStore
	sessions   *SessionStore
	bundles    *bundle.Cache
	parser     Parser
	metrics    *common.Metrics
	workDir    string
	uploadsDir string
	rowCap     int
	lang       report.Language
	fontPath   string
	stopSweep  func()
}

// Options configures server creation.
type Options struct {
	StorageDir      string
	ConfigDir       string
	ParseServiceURL string

	// Parser overrides the HTTP parse client built from ParseServiceURL.
	Parser     Parser
	RowCap     int
	Lang       report.Language
	FontPath   string
	SessionTTL time.Duration
	Metrics    *common.Metrics
}

// Artifact represents a file generated or stored by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	Kind        string
	Sha256      string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Sha256      string `json:"sha256,omitempty"`
}

// ArtifactStore keeps track of generated artifacts for later download.
type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewServer constructs a Server rooted at a temporary workspace directory.
func NewServer(opts Options) (*Server, error) {
	storageDir := opts.StorageDir
	if storageDir == "" {
		storageDir = os.TempDir()
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(storageDir, "canviewd-")
	if err != nil {
		return nil, err
	}
	uploadsDir := filepath.Join(workDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	parser := opts.Parser
	if parser == nil {
		parser = parsesvc.NewClient(opts.ParseServiceURL)
	}
	lang := opts.Lang
	if lang == "" {
		lang = report.LangEnglish
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = common.NewMetrics()
	}
	metrics.Start()
	s := &Server{
		artifacts:  &ArtifactStore{entries: make(map[string]Artifact)},
		sessions:   NewSessionStore(ttl),
		bundles:    bundle.NewCache(opts.ConfigDir),
		parser:     parser,
		metrics:    metrics,
		workDir:    workDir,
		uploadsDir: uploadsDir,
		rowCap:     opts.RowCap,
		lang:       lang,
		fontPath:   opts.FontPath,
	}
	s.stopSweep = s.sessions.StartSweeper(ttl / 2)
	return s, nil
}

// Close stops the session sweeper and removes any temporary state.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	if s.stopSweep != nil {
		s.stopSweep()
		s.stopSweep = nil
	}
	return os.RemoveAll(s.workDir)
}

func (s *Server) tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (s *Server) addArtifact(path, displayName, contentType, kind string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New("empty path")
	}
	sum, size, err := common.Sha256OfFile(path)
	if err != nil {
		return Artifact{}, err
	}
	id := randomID()
	art := Artifact{
		ID:          id,
		Path:        path,
		Name:        displayName,
		ContentType: contentType,
		Size:        size,
		Kind:        kind,
		Sha256:      sum,
	}
	if art.Name == "" {
		art.Name = filepath.Base(path)
	}
	if art.ContentType == "" {
		art.ContentType = guessContentType(art.Name)
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[id] = art
	s.artifacts.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	art, ok := s.artifacts.entries[id]
	s.artifacts.mu.RUnlock()
	return art, ok
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := s.metrics.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"uptime":   snap.Uptime.Truncate(time.Second).String(),
		"metrics":  snap,
		"imported": common.FormatBytes(snap.ImportedBytes),
	})
}

// ReloadConfig drops the cached protocol bundles; open views keep the
// configuration they were built with.
func (s *Server) ReloadConfig() {
	s.bundles.Reload()
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.ReloadConfig()
	writeJSON(w, http.StatusOK, map[string]bool{"reloaded": true})
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if id == "" {
		writeJSON(w, http.StatusOK, struct {
			Artifacts []ArtifactRef `json:"artifacts"`
		}{Artifacts: s.listArtifacts()})
		return
	}
	art, ok := s.getArtifact(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.serveArtifact(w, art)
}

func (s *Server) serveArtifact(w http.ResponseWriter, art Artifact) {
	f, err := os.Open(art.Path)
	if err != nil {
		http.Error(w, fmt.Sprintf("open artifact: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, fmt.Sprintf("stat artifact: %v", err), http.StatusInternalServerError)
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", art.Name))
	if art.ID != "" {
		w.Header().Set("X-Artifact-Id", art.ID)
	}
	io.Copy(w, f)
}

func toRef(art Artifact) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		Name:        art.Name,
		ContentType: art.ContentType,
		Size:        art.Size,
		Kind:        art.Kind,
		Sha256:      art.Sha256,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func guessContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".json":
		return "application/json"
	case ".ndjson":
		return "application/x-ndjson"
	case ".pdf":
		return "application/pdf"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".png":
		return "image/png"
	case ".csv", ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func randomID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		now := time.Now().UTC()
		return fmt.Sprintf("%d%06d", now.UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(b[:])
}

func (s *Server) listArtifacts() []ArtifactRef {
	s.artifacts.mu.RLock()
	refs := make([]ArtifactRef, 0, len(s.artifacts.entries))
	for _, art := range s.artifacts.entries {
		refs = append(refs, toRef(art))
	}
	s.artifacts.mu.RUnlock()
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}
