package es

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/labtiva/esprobe/internal/config"
	"github.com/labtiva/esprobe/internal/es/estest"
)

func TestNewClient(t *testing.T) {
	cfg := &config.Config{
		Host:     "http://localhost:9200",
		Username: "elastic",
		Password: "test",
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
}

func TestClientPing(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()

	client, err := NewClient(&config.Config{Host: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestClientRequest(t *testing.T) {
	srv := estest.NewServer(estest.WithBasicAuth("elastic", "changeme"))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL, config.DriverESAPI))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "create index",
			method:     "put",
			path:       "raw",
			wantStatus: http.StatusOK,
			wantBody:   `"acknowledged": true`,
		},
		{
			name:       "index document",
			method:     http.MethodPut,
			path:       "/raw/_doc/1",
			body:       `{"name":"Foobar"}`,
			wantStatus: http.StatusCreated,
			wantBody:   `"result": "created"`,
		},
		{
			name:       "missing document",
			method:     http.MethodGet,
			path:       "/raw/_doc/2",
			wantStatus: http.StatusNotFound,
			wantBody:   `"found": false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := client.Request(context.Background(), tt.method, tt.path, tt.body)
			if res.Error != nil {
				t.Fatalf("Request() error = %v", res.Error)
			}
			if res.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			if !strings.Contains(res.Body, tt.wantBody) {
				t.Errorf("body = %s, want it to contain %s", res.Body, tt.wantBody)
			}
		})
	}
}

func TestClientListIndicesAndMapping(t *testing.T) {
	srv := estest.NewServer()
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL, config.DriverESAPI))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := client.CreateIndex(ctx, name); err != nil {
			t.Fatalf("CreateIndex(%s) error = %v", name, err)
		}
	}
	if _, err := client.PutDocument(ctx, "alpha", "1", []byte(`{"name":"Foobar","number":42,"address":{"city":"Berlin"}}`)); err != nil {
		t.Fatal(err)
	}

	indices, err := client.ListIndices(ctx)
	if err != nil {
		t.Fatalf("ListIndices() error = %v", err)
	}
	if len(indices) != 2 || indices[0].Name != "alpha" || indices[1].Name != "zeta" {
		t.Errorf("indices = %+v, want alpha, zeta", indices)
	}
	if indices[0].DocsCount != "1" {
		t.Errorf("alpha docs.count = %q, want 1", indices[0].DocsCount)
	}

	fields, err := client.FetchMapping(ctx, "alpha")
	if err != nil {
		t.Fatalf("FetchMapping() error = %v", err)
	}
	want := []string{"address.city", "name", "number"}
	if strings.Join(fields, ",") != strings.Join(want, ",") {
		t.Errorf("fields = %v, want %v", fields, want)
	}
}
