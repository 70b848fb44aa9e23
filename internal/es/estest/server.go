// Package estest serves an in-memory stand-in for the subset of the
// Elasticsearch REST API that esprobe uses.
package estest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

type storedDoc struct {
	source  json.RawMessage
	version int64
	seqNo   int64
}

type index struct {
	docs  map[string]*storedDoc
	seqNo int64
}

type Server struct {
	*httptest.Server

	username string
	password string

	mu          sync.Mutex
	clusterName string
	health      string
	indices     map[string]*index
	requests    []string
}

type Option func(*Server)

// WithBasicAuth makes the server reject requests without these credentials.
func WithBasicAuth(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

func WithHealth(status string) Option {
	return func(s *Server) { s.health = status }
}

func WithClusterName(name string) Option {
	return func(s *Server) { s.clusterName = name }
}

// NewServer starts a fake cluster. Close it when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		clusterName: "estest",
		health:      "green",
		indices:     make(map[string]*index),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter().UseEncodedPath()
	r.Use(s.record, s.headers, s.auth)

	r.HandleFunc("/", s.info).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/_cluster/health", s.clusterHealth).Methods(http.MethodGet)
	r.HandleFunc("/_cat/indices", s.catIndices).Methods(http.MethodGet)

	r.HandleFunc("/{index}/_search", s.search).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/{index}/_validate/query", s.validateQuery).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/{index}/_mapping", s.mapping).Methods(http.MethodGet)

	r.HandleFunc("/{index}/_doc/{id}", s.putDocument).Methods(http.MethodPut, http.MethodPost)
	r.HandleFunc("/{index}/_doc/{id}", s.getDocument).Methods(http.MethodGet)
	r.HandleFunc("/{index}/_doc/{id}", s.deleteDocument).Methods(http.MethodDelete)

	r.HandleFunc("/{index}", s.createIndex).Methods(http.MethodPut)
	r.HandleFunc("/{index}", s.indexExists).Methods(http.MethodHead)
	r.HandleFunc("/{index}", s.deleteIndex).Methods(http.MethodDelete)
	return r
}

// pathVar returns a decoded route variable. Routes match on the escaped path
// so an id such as "a%2Fb" stays one segment.
func pathVar(r *http.Request, name string) string {
	raw := mux.Vars(r)[name]
	v, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return v
}

// SetHealth changes the status reported by _cluster/health.
func (s *Server) SetHealth(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.health = status
}

// Requests returns every request seen so far as "METHOD /path".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// HasIndex reports whether the fake currently holds the index.
func (s *Server) HasIndex(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.indices[name]
	return ok
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.username != "" {
			u, p, ok := r.BasicAuth()
			if !ok || u != s.username || p != s.password {
				writeError(w, http.StatusUnauthorized, "security_exception", "missing authentication credentials for REST request ["+r.URL.Path+"]")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, typ, reason string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"type":   typ,
			"reason": reason,
			"root_cause": []map[string]any{
				{"type": typ, "reason": reason},
			},
		},
		"status": status,
	})
}

func indexNotFound(w http.ResponseWriter, name string) {
	writeError(w, http.StatusNotFound, "index_not_found_exception", "no such index ["+name+"]")
}

func validIndexName(name string) bool {
	return name != "" && name == strings.ToLower(name) && !strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "-")
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":         "estest-0",
		"cluster_name": s.clusterName,
		"version":      map[string]any{"number": "8.19.0", "build_flavor": "default"},
		"tagline":      "You Know, for Search",
	})
}

func (s *Server) clusterHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"cluster_name":          s.clusterName,
		"status":                s.health,
		"timed_out":             false,
		"number_of_nodes":       1,
		"number_of_data_nodes":  1,
		"active_primary_shards": len(s.indices),
		"active_shards":         len(s.indices),
		"unassigned_shards":     0,
	})
}

func (s *Server) catIndices(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]string, 0, len(s.indices))
	for name, idx := range s.indices {
		out = append(out, map[string]string{
			"index":      name,
			"health":     s.health,
			"docs.count": fmt.Sprint(len(idx.docs)),
			"store.size": "1kb",
			"pri":        "1",
			"rep":        "0",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createIndex(w http.ResponseWriter, r *http.Request) {
	name := pathVar(r, "index")
	if !validIndexName(name) {
		writeError(w, http.StatusBadRequest, "invalid_index_name_exception", "Invalid index name ["+name+"], must be lowercase")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indices[name]; ok {
		writeError(w, http.StatusBadRequest, "resource_already_exists_exception", "index ["+name+"] already exists")
		return
	}
	s.indices[name] = &index{docs: make(map[string]*storedDoc)}
	writeJSON(w, http.StatusOK, map[string]any{
		"acknowledged":        true,
		"shards_acknowledged": true,
		"index":               name,
	})
}

func (s *Server) indexExists(w http.ResponseWriter, r *http.Request) {
	name := pathVar(r, "index")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indices[name]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) deleteIndex(w http.ResponseWriter, r *http.Request) {
	name := pathVar(r, "index")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indices[name]; !ok {
		indexNotFound(w, name)
		return
	}
	delete(s.indices, name)
	writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

func shards() map[string]int {
	return map[string]int{"total": 1, "successful": 1, "failed": 0}
}

func (s *Server) putDocument(w http.ResponseWriter, r *http.Request) {
	name, id := pathVar(r, "index"), pathVar(r, "id")
	if !validIndexName(name) {
		writeError(w, http.StatusBadRequest, "invalid_index_name_exception", "Invalid index name ["+name+"], must be lowercase")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "parse_exception", err.Error())
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		writeError(w, http.StatusBadRequest, "mapper_parsing_exception", "failed to parse: "+err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indices[name]
	if !ok {
		idx = &index{docs: make(map[string]*storedDoc)}
		s.indices[name] = idx
	}

	status, result := http.StatusCreated, "created"
	doc, ok := idx.docs[id]
	if ok {
		status, result = http.StatusOK, "updated"
		doc.version++
	} else {
		doc = &storedDoc{version: 1}
		idx.docs[id] = doc
	}
	doc.source = json.RawMessage(body)
	doc.seqNo = idx.seqNo
	idx.seqNo++

	writeJSON(w, status, map[string]any{
		"_index":        name,
		"_id":           id,
		"_version":      doc.version,
		"result":        result,
		"_shards":       shards(),
		"_seq_no":       doc.seqNo,
		"_primary_term": 1,
	})
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	name, id := pathVar(r, "index"), pathVar(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indices[name]
	if !ok {
		indexNotFound(w, name)
		return
	}
	doc, ok := idx.docs[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"_index": name, "_id": id, "found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"_index":        name,
		"_id":           id,
		"_version":      doc.version,
		"_seq_no":       doc.seqNo,
		"_primary_term": 1,
		"found":         true,
		"_source":       doc.source,
	})
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	name, id := pathVar(r, "index"), pathVar(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indices[name]
	if !ok {
		indexNotFound(w, name)
		return
	}
	doc, ok := idx.docs[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"_index": name, "_id": id, "_version": 1, "result": "not_found", "_shards": shards(),
		})
		return
	}
	delete(idx.docs, id)
	writeJSON(w, http.StatusOK, map[string]any{
		"_index":        name,
		"_id":           id,
		"_version":      doc.version + 1,
		"result":        "deleted",
		"_shards":       shards(),
		"_seq_no":       idx.seqNo,
		"_primary_term": 1,
	})
}

type searchBody struct {
	Query map[string]json.RawMessage `json:"query"`
	Size  *int                       `json:"size"`
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	name := pathVar(r, "index")

	var req searchBody
	if body, _ := io.ReadAll(r.Body); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "parsing_exception", err.Error())
			return
		}
	}
	size := 10
	if req.Size != nil {
		size = *req.Size
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indices[name]
	if !ok {
		indexNotFound(w, name)
		return
	}

	ids := make([]string, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	hits := []map[string]any{}
	total := 0
	for _, id := range ids {
		doc := idx.docs[id]
		var src map[string]any
		_ = json.Unmarshal(doc.source, &src)

		ok, err := matches(req.Query, src)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parsing_exception", err.Error())
			return
		}
		if !ok {
			continue
		}
		total++
		if len(hits) < size {
			hits = append(hits, map[string]any{
				"_index":  name,
				"_id":     id,
				"_score":  1.0,
				"_source": doc.source,
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"took":      1,
		"timed_out": false,
		"_shards":   shards(),
		"hits": map[string]any{
			"total":     map[string]any{"value": total, "relation": "eq"},
			"max_score": 1.0,
			"hits":      hits,
		},
	})
}

func (s *Server) validateQuery(w http.ResponseWriter, r *http.Request) {
	var req searchBody
	if body, _ := io.ReadAll(r.Body); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
			return
		}
	}
	if _, err := matches(req.Query, map[string]any{}); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) mapping(w http.ResponseWriter, r *http.Request) {
	name := pathVar(r, "index")

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indices[name]
	if !ok {
		indexNotFound(w, name)
		return
	}

	props := map[string]any{}
	for _, doc := range idx.docs {
		var src map[string]any
		_ = json.Unmarshal(doc.source, &src)
		inferProperties(props, src)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		name: map[string]any{"mappings": map[string]any{"properties": props}},
	})
}

func inferProperties(props map[string]any, src map[string]any) {
	for field, v := range src {
		switch val := v.(type) {
		case map[string]any:
			nested, _ := props[field].(map[string]any)
			if nested == nil {
				nested = map[string]any{"properties": map[string]any{}}
				props[field] = nested
			}
			inner, _ := nested["properties"].(map[string]any)
			inferProperties(inner, val)
		case float64:
			if val == float64(int64(val)) {
				props[field] = map[string]any{"type": "long"}
			} else {
				props[field] = map[string]any{"type": "float"}
			}
		case bool:
			props[field] = map[string]any{"type": "boolean"}
		default:
			props[field] = map[string]any{"type": "text"}
		}
	}
}
