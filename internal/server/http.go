package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/bcrypt"

	"github.com/tracelens/tracelens/internal/aggregate"
	"github.com/tracelens/tracelens/internal/analysis"
	"github.com/tracelens/tracelens/internal/archive"
	"github.com/tracelens/tracelens/internal/model"
	"github.com/tracelens/tracelens/internal/session"
)

// Config holds the HTTP surface settings.
type Config struct {
	Addr string
	// TokenHash is the bcrypt hash of the access token. Empty disables
	// authentication.
	TokenHash []byte
}

// Server exposes loaded traces over HTTP: upload, search, flows,
// aggregates, histogram, field introspection and snapshot export.
type Server struct {
	cfg      Config
	sessions *session.Store
	srv      *http.Server
}

func New(cfg Config, sessions *session.Store) *Server {
	return &Server{
		cfg:      cfg,
		sessions: sessions,
	}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/api/traces", s.authMiddleware(http.HandlerFunc(s.handleTraces)))
	mux.Handle("/api/traces/", s.authMiddleware(http.HandlerFunc(s.handleTraceItem)))

	s.srv = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: mux,
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// authMiddleware checks the bearer token against the configured bcrypt
// hash. The plaintext token is never kept server-side.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.cfg.TokenHash) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}

		if token == "" || bcrypt.CompareHashAndPassword(s.cfg.TokenHash, []byte(token)) != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="tracelens"`)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleTraces serves POST (upload) and GET (list) on /api/traces.
func (s *Server) handleTraces(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpload(w, r)
	case http.MethodGet:
		writeJSON(w, s.sessions.List())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleUpload loads a JSONL request body into a new analysis session.
// A zstd Content-Encoding is decompressed transparently.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var body io.Reader = r.Body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "zstd") {
		dec, err := zstd.NewReader(r.Body)
		if err != nil {
			http.Error(w, "Bad zstd stream", http.StatusBadRequest)
			return
		}
		defer dec.Close()
		body = dec
	}

	tr, err := analysis.FromReader(body)
	if err != nil {
		log.Printf("Upload failed: %v", err)
		http.Error(w, "Failed to read trace body", http.StatusBadRequest)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "trace"
	}
	sess := s.sessions.Create(name, tr)
	log.Printf("Trace %s loaded: %d events, %d malformed lines skipped", sess.ID, tr.Len(), tr.Skipped())

	writeJSONStatus(w, http.StatusCreated, sess)
}

// handleTraceItem dispatches /api/traces/{id} and /api/traces/{id}/{verb}.
func (s *Server) handleTraceItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/traces/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	verb := ""
	if len(parts) == 2 {
		verb = parts[1]
	}

	sess, ok := s.sessions.Get(id)
	if !ok {
		http.Error(w, "Trace not found", http.StatusNotFound)
		return
	}

	if verb == "" {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, sess)
		case http.MethodDelete:
			s.sessions.Delete(id)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tr := sess.Trace
	switch verb {
	case "search":
		s.handleSearch(w, r, tr)
	case "flows":
		s.handleFlows(w, r, tr)
	case "aggregate":
		s.handleAggregate(w, r, tr)
	case "histogram":
		s.handleHistogram(w, r, tr)
	case "fields":
		writeJSON(w, tr.Fields())
	case "stats":
		writeJSON(w, tr.Summarize())
	case "archive":
		s.handleArchive(w, tr)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, tr *analysis.Trace) {
	q := r.URL.Query().Get("q")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	rows := tr.Search(q, limit)
	if rows == nil {
		rows = []model.Event{}
	}
	writeJSON(w, rows)
}

func (s *Server) handleFlows(w http.ResponseWriter, r *http.Request, tr *analysis.Trace) {
	by := r.URL.Query().Get("by")
	if by == "" {
		http.Error(w, "Missing 'by' parameter", http.StatusBadRequest)
		return
	}
	keyFields := strings.Split(by, ",")
	for i := range keyFields {
		keyFields[i] = strings.TrimSpace(keyFields[i])
	}
	writeJSON(w, tr.Flows(keyFields))
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request, tr *analysis.Trace) {
	req := aggregate.Request{
		Op:    r.URL.Query().Get("op"),
		Field: r.URL.Query().Get("field"),
	}
	res, err := tr.Aggregate(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request, tr *analysis.Trace) {
	q := r.URL.Query()
	parseInt := func(key string) int64 {
		v, _ := strconv.ParseInt(q.Get(key), 10, 64)
		return v
	}
	points := tr.Histogram(parseInt("start"), parseInt("end"), parseInt("interval"), q.Get("q"))
	writeJSON(w, points)
}

// handleArchive streams the session's events as a compressed snapshot.
func (s *Server) handleArchive(w http.ResponseWriter, tr *analysis.Trace) {
	aw, err := archive.NewWriter()
	if err != nil {
		http.Error(w, "Archive writer unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if err := aw.WriteTo(w, tr.Events()); err != nil {
		log.Printf("Archive write error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}
