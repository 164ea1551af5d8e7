package sparql

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wegman-software/osm2sparql-go/internal/config"
)

func testConfig(endpoint string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.SparqlEndpointURI = endpoint
	return cfg
}

func TestRunQuery(t *testing.T) {
	resultsXML := `<?xml version="1.0"?><sparql><results></results></sparql>`

	var gotAccept, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotQuery = r.URL.Query().Get("query")
		io.WriteString(w, resultsXML)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.SetPrefixes([]string{PrefixNode})
	client.SetQuery("SELECT ?s WHERE { ?s ?p ?o }")

	body, err := client.RunQuery(context.Background())
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if string(body) != resultsXML {
		t.Errorf("unexpected body: %s", body)
	}
	if gotAccept != "application/sparql-results+xml" {
		t.Errorf("Accept = %q", gotAccept)
	}
	if !strings.HasPrefix(gotQuery, PrefixNode+" SELECT") {
		t.Errorf("query did not include prefixes: %q", gotQuery)
	}

	// Pending query and prefixes are cleared after a successful call
	if client.fullQuery() != "" {
		t.Errorf("pending query not cleared: %q", client.fullQuery())
	}
}

func TestRunUpdate(t *testing.T) {
	var gotContentType, gotUpdate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotUpdate = r.PostForm.Get("update")
		io.WriteString(w, "OK")
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.SetQuery("INSERT DATA { osmnode:1 rdf:type osm:node . }")

	if err := client.RunUpdate(context.Background()); err != nil {
		t.Fatalf("RunUpdate: %v", err)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotUpdate != "INSERT DATA { osmnode:1 rdf:type osm:node . }" {
		t.Errorf("update body = %q", gotUpdate)
	}
}

func TestClearCache(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		io.WriteString(w, "OK")
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := client.ClearCache(context.Background()); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	if gotBody != "cmd=clear-cache" {
		t.Errorf("body = %q", gotBody)
	}
}

func TestErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"ERROR","exception":"Malformed query"}`)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.SetQuery("INSERT DATA { broken }")

	err = client.RunUpdate(context.Background())
	var endpointErr *EndpointError
	if !errors.As(err, &endpointErr) {
		t.Fatalf("expected EndpointError, got %v", err)
	}
	if endpointErr.Message != "Malformed query" {
		t.Errorf("Message = %q", endpointErr.Message)
	}
}

func TestNonErrorJSONPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"OK","warnings":[]}`)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.SetQuery("INSERT DATA { osmnode:1 rdf:type osm:node . }")
	if err := client.RunUpdate(context.Background()); err != nil {
		t.Fatalf("RunUpdate: %v", err)
	}
}

func TestQueryLogFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<sparql/>")
	}))
	defer server.Close()

	logPath := filepath.Join(t.TempDir(), "queries.txt")
	cfg := testConfig(server.URL)
	cfg.WriteSparqlQueriesToFile = true
	cfg.SparqlQueryOutputPath = logPath

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	client.SetPrefixes([]string{PrefixNode})
	client.SetQuery("SELECT ?s WHERE { ?s ?p ?o }")
	if _, err := client.RunQuery(context.Background()); err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	client.SetQuery("SELECT ?p WHERE { ?s ?p ?o }")
	if _, err := client.RunQuery(context.Background()); err != nil {
		t.Fatalf("RunQuery: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 logged queries, got %d: %q", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], PrefixNode+" SELECT ?s") {
		t.Errorf("first logged query = %q", lines[0])
	}
}
