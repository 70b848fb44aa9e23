package es

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labtiva/esprobe/internal/config"
	"github.com/labtiva/esprobe/internal/es/estest"
)

func testConfig(host, driver string) *config.Config {
	return &config.Config{
		Host:     host,
		Username: "elastic",
		Password: "changeme",
		Driver:   driver,
		Refresh:  config.RefreshWaitFor,
		Timeout:  5 * time.Second,
	}
}

// forEachDriver runs fn once per driver against a fresh fake cluster.
func forEachDriver(t *testing.T, fn func(t *testing.T, srv *estest.Server, store Store)) {
	t.Helper()
	for _, driver := range config.Drivers {
		t.Run(driver, func(t *testing.T) {
			srv := estest.NewServer(estest.WithBasicAuth("elastic", "changeme"))
			defer srv.Close()

			store, err := Open(testConfig(srv.URL, driver))
			if err != nil {
				t.Fatalf("Open(%s) error = %v", driver, err)
			}
			defer store.Close()

			if store.Driver() != driver {
				t.Errorf("Driver() = %q, want %q", store.Driver(), driver)
			}
			fn(t, srv, store)
		})
	}
}

func TestStoreHealth(t *testing.T) {
	forEachDriver(t, func(t *testing.T, srv *estest.Server, store Store) {
		ctx := context.Background()

		health, err := store.Health(ctx)
		if err != nil {
			t.Fatalf("Health() error = %v", err)
		}
		if health.Status != HealthGreen {
			t.Errorf("status = %q, want green", health.Status)
		}
		if health.ClusterName != "estest" {
			t.Errorf("cluster name = %q, want estest", health.ClusterName)
		}

		srv.SetHealth("red")
		health, err = store.Health(ctx)
		if err != nil {
			t.Fatalf("Health() error = %v", err)
		}
		if !health.Status.Critical() {
			t.Errorf("status %q should be critical", health.Status)
		}
	})
}

func TestStoreIndexLifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, srv *estest.Server, store Store) {
		ctx := context.Background()

		exists, err := store.IndexExists(ctx, "books")
		if err != nil {
			t.Fatalf("IndexExists() error = %v", err)
		}
		if exists {
			t.Fatal("index exists before creation")
		}

		ack, err := store.CreateIndex(ctx, "books")
		if err != nil {
			t.Fatalf("CreateIndex() error = %v", err)
		}
		if !ack {
			t.Error("CreateIndex() not acknowledged")
		}

		exists, err = store.IndexExists(ctx, "books")
		if err != nil {
			t.Fatalf("IndexExists() error = %v", err)
		}
		if !exists {
			t.Fatal("index missing after creation")
		}

		_, err = store.CreateIndex(ctx, "books")
		if !errors.Is(err, ErrConflict) {
			t.Errorf("second CreateIndex() error = %v, want ErrConflict", err)
		}

		ack, err = store.DeleteIndex(ctx, "books")
		if err != nil {
			t.Fatalf("DeleteIndex() error = %v", err)
		}
		if !ack {
			t.Error("DeleteIndex() not acknowledged")
		}
		if srv.HasIndex("books") {
			t.Error("fake still holds the index")
		}

		_, err = store.DeleteIndex(ctx, "books")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("second DeleteIndex() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStoreDocumentLifecycle(t *testing.T) {
	forEachDriver(t, func(t *testing.T, srv *estest.Server, store Store) {
		ctx := context.Background()
		body := []byte(`{"name":"Foobar","number":42}`)

		if _, err := store.CreateIndex(ctx, "docs"); err != nil {
			t.Fatalf("CreateIndex() error = %v", err)
		}

		created, err := store.PutDocument(ctx, "docs", "1", body)
		if err != nil {
			t.Fatalf("PutDocument() error = %v", err)
		}
		if !created {
			t.Error("first PutDocument() should create")
		}

		created, err = store.PutDocument(ctx, "docs", "1", body)
		if err != nil {
			t.Fatalf("PutDocument() overwrite error = %v", err)
		}
		if created {
			t.Error("second PutDocument() should overwrite")
		}

		doc, err := store.GetDocument(ctx, "docs", "1")
		if err != nil {
			t.Fatalf("GetDocument() error = %v", err)
		}
		if doc.ID != "1" || doc.Index != "docs" || !doc.Found {
			t.Errorf("doc = %+v, want docs/1 found", doc)
		}
		var got struct {
			Name   string `json:"name"`
			Number int    `json:"number"`
		}
		if err := doc.Decode(&got); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if got.Name != "Foobar" || got.Number != 42 {
			t.Errorf("source = %+v, want Foobar/42", got)
		}

		res, err := store.Search(ctx, "docs", SearchRequest{Query: QueryString("name:Foo*"), Size: 10})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if res.Total != 1 || len(res.Hits) != 1 {
			t.Fatalf("Search() total = %d hits = %d, want 1/1", res.Total, len(res.Hits))
		}
		if res.Hits[0].ID != "1" {
			t.Errorf("hit id = %q, want 1", res.Hits[0].ID)
		}
		if !jsonEqual(t, res.Hits[0].Source, body) {
			t.Errorf("hit source = %s, want %s", res.Hits[0].Source, body)
		}

		res, err = store.Search(ctx, "docs", SearchRequest{Query: Wildcard("name", "bar*")})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if res.Total != 0 {
			t.Errorf("non-matching wildcard total = %d, want 0", res.Total)
		}

		deleted, err := store.DeleteDocument(ctx, "docs", "1")
		if err != nil {
			t.Fatalf("DeleteDocument() error = %v", err)
		}
		if !deleted {
			t.Error("DeleteDocument() should report deleted")
		}

		if _, err := store.GetDocument(ctx, "docs", "1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetDocument() after delete error = %v, want ErrNotFound", err)
		}
		if _, err := store.DeleteDocument(ctx, "docs", "1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteDocument() twice error = %v, want ErrNotFound", err)
		}

		if _, err := store.PutDocument(ctx, "docs", "2", body); err != nil {
			t.Fatalf("PutDocument() error = %v", err)
		}
		if _, err := store.DeleteIndex(ctx, "docs"); err != nil {
			t.Fatalf("DeleteIndex() error = %v", err)
		}
		if _, err := store.GetDocument(ctx, "docs", "2"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetDocument() after index delete error = %v, want ErrNotFound", err)
		}
	})
}

func TestStoreOddDocumentIDs(t *testing.T) {
	ids := []string{"q?r", "p%2F", "a/b", "with space", "#hash", "ümlaut"}

	forEachDriver(t, func(t *testing.T, srv *estest.Server, store Store) {
		ctx := context.Background()
		body := []byte(`{"name":"Foobar"}`)

		for _, id := range ids {
			created, err := store.PutDocument(ctx, "odd", id, body)
			if err != nil {
				t.Fatalf("PutDocument(%q) error = %v", id, err)
			}
			if !created {
				t.Errorf("PutDocument(%q) should create", id)
			}

			doc, err := store.GetDocument(ctx, "odd", id)
			if err != nil {
				t.Fatalf("GetDocument(%q) error = %v", id, err)
			}
			if doc.ID != id {
				t.Errorf("GetDocument(%q) id = %q", id, doc.ID)
			}
		}

		res, err := store.Search(ctx, "odd", SearchRequest{Query: MatchAll(), Size: 20})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if int(res.Total) != len(ids) {
			t.Errorf("Search() total = %d, want %d", res.Total, len(ids))
		}

		for _, id := range ids {
			deleted, err := store.DeleteDocument(ctx, "odd", id)
			if err != nil {
				t.Fatalf("DeleteDocument(%q) error = %v", id, err)
			}
			if !deleted {
				t.Errorf("DeleteDocument(%q) should report deleted", id)
			}
		}
	})
}

func TestStoreRefreshParam(t *testing.T) {
	for _, driver := range config.Drivers {
		t.Run(driver, func(t *testing.T) {
			var (
				mu         sync.Mutex
				gotRefresh []string
			)
			srv := estest.NewServer()
			defer srv.Close()

			proxy := newRecordingProxy(t, srv.URL, func(r *http.Request) {
				if r.Method == http.MethodPut || r.Method == http.MethodDelete {
					if strings.Contains(r.URL.Path, "/_doc/") {
						mu.Lock()
						gotRefresh = append(gotRefresh, r.URL.Query().Get("refresh"))
						mu.Unlock()
					}
				}
			})
			defer proxy.Close()

			cfg := testConfig(proxy.URL, driver)
			cfg.Refresh = config.RefreshTrue
			store, err := Open(cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			ctx := context.Background()
			if _, err := store.PutDocument(ctx, "idx", "1", []byte(`{"a":1}`)); err != nil {
				t.Fatalf("PutDocument() error = %v", err)
			}
			if _, err := store.DeleteDocument(ctx, "idx", "1"); err != nil {
				t.Fatalf("DeleteDocument() error = %v", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(gotRefresh) != 2 || gotRefresh[0] != "true" || gotRefresh[1] != "true" {
				t.Errorf("refresh params = %v, want [true true]", gotRefresh)
			}
		})
	}
}

func TestStoreUsesExpectedVerbs(t *testing.T) {
	want := []string{
		"GET /_cluster/health",
		"PUT /verbs",
		"HEAD /verbs",
		"PUT /verbs/_doc/1",
		"GET /verbs/_doc/1",
		"POST /verbs/_search",
		"DELETE /verbs/_doc/1",
		"DELETE /verbs",
	}

	forEachDriver(t, func(t *testing.T, srv *estest.Server, store Store) {
		ctx := context.Background()
		_, _ = store.Health(ctx)
		_, _ = store.CreateIndex(ctx, "verbs")
		_, _ = store.IndexExists(ctx, "verbs")
		_, _ = store.PutDocument(ctx, "verbs", "1", []byte(`{"x":"y"}`))
		_, _ = store.GetDocument(ctx, "verbs", "1")
		_, _ = store.Search(ctx, "verbs", SearchRequest{Query: MatchAll()})
		_, _ = store.DeleteDocument(ctx, "verbs", "1")
		_, _ = store.DeleteIndex(ctx, "verbs")

		got := srv.Requests()
		if len(got) != len(want) {
			t.Fatalf("requests = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("request[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})
}

func TestStoreUnauthorized(t *testing.T) {
	for _, driver := range config.Drivers {
		t.Run(driver, func(t *testing.T) {
			srv := estest.NewServer(estest.WithBasicAuth("elastic", "changeme"))
			defer srv.Close()

			cfg := testConfig(srv.URL, driver)
			cfg.Password = "wrong"
			store, err := Open(cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			_, err = store.Health(context.Background())
			var re *ResponseError
			if !errors.As(err, &re) {
				t.Fatalf("Health() error = %v, want *ResponseError", err)
			}
			if re.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", re.StatusCode)
			}
			if re.Type != "security_exception" {
				t.Errorf("type = %q, want security_exception", re.Type)
			}
		})
	}
}

func TestStoreTransportError(t *testing.T) {
	srv := estest.NewServer()
	addr := srv.URL
	srv.Close()

	for _, driver := range config.Drivers {
		t.Run(driver, func(t *testing.T) {
			store, err := Open(testConfig(addr, driver))
			if err != nil {
				t.Fatal(err)
			}
			defer store.Close()

			_, err = store.Health(context.Background())
			var te *TransportError
			if !errors.As(err, &te) {
				t.Fatalf("Health() error = %v, want *TransportError", err)
			}
			if te.Op != opHealth {
				t.Errorf("op = %q, want %q", te.Op, opHealth)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(testConfig("http://localhost:9200", "jest")); err == nil {
		t.Error("expected error for unknown driver")
	}
}

// newRecordingProxy forwards to target after handing each request to hook.
func newRecordingProxy(t *testing.T, target string, hook func(*http.Request)) *httptest.Server {
	t.Helper()
	u, err := url.Parse(target)
	if err != nil {
		t.Fatal(err)
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hook(r)
		rp.ServeHTTP(w, r)
	}))
}

func jsonEqual(t *testing.T, a, b []byte) bool {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		t.Fatalf("unmarshal %s: %v", a, err)
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	ja, _ := json.Marshal(va)
	jb, _ := json.Marshal(vb)
	return string(ja) == string(jb)
}
