package sparql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wegman-software/osm2sparql-go/internal/config"
	"github.com/wegman-software/osm2sparql-go/internal/logger"
)

// EndpointError is returned when the endpoint answers with its JSON error
// envelope ({"status":"ERROR","exception":"…"}) instead of a result.
type EndpointError struct {
	Message string
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("sparql endpoint returned status ERROR: %s", e.Message)
}

// Client issues queries and updates against one SPARQL 1.1 endpoint. The
// pending query and prefixes are set before each call and cleared after a
// successful one. The client targets the QLever engine; its JSON error
// envelope and clear-cache control are not part of the SPARQL standard.
type Client struct {
	endpoint     string
	http         *http.Client
	query        string
	prefixes     []string
	queryLogPath string
}

// NewClient creates a client for the configured endpoint. When query
// logging is enabled the output file is truncated once here.
func NewClient(cfg *config.Config) (*Client, error) {
	c := &Client{
		endpoint: cfg.SparqlEndpointURI,
		http: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeout),
		},
	}
	if cfg.WriteSparqlQueriesToFile {
		c.queryLogPath = cfg.SparqlQueryOutputPath
		if err := os.WriteFile(c.queryLogPath, nil, 0644); err != nil {
			return nil, fmt.Errorf("failed to truncate query log: %w", err)
		}
	}
	return c, nil
}

// SetQuery sets the pending query or update
func (c *Client) SetQuery(q string) {
	c.query = q
}

// SetPrefixes sets the prefix declarations sent ahead of the pending query
func (c *Client) SetPrefixes(prefixes []string) {
	c.prefixes = prefixes
}

// fullQuery joins the pending prefixes and query
func (c *Client) fullQuery() string {
	if len(c.prefixes) == 0 {
		return c.query
	}
	return strings.Join(c.prefixes, " ") + " " + c.query
}

// reset clears the pending query and prefix buffers
func (c *Client) reset() {
	c.query = ""
	c.prefixes = nil
}

// logQuery appends the pending prefixes and query to the query log file
// before dispatch
func (c *Client) logQuery() error {
	if c.queryLogPath == "" {
		return nil
	}
	f, err := os.OpenFile(c.queryLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open query log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(c.fullQuery() + "\n"); err != nil {
		return fmt.Errorf("failed to write query log: %w", err)
	}
	return nil
}

// RunQuery sends the pending query via HTTP GET and returns the raw
// SPARQL results XML document
func (c *Client) RunQuery(ctx context.Context) ([]byte, error) {
	if err := c.logQuery(); err != nil {
		return nil, err
	}

	reqURL := c.endpoint + "?query=" + url.QueryEscape(c.fullQuery())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/sparql-results+xml")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql query failed: %w", err)
	}
	c.reset()
	return body, nil
}

// RunUpdate sends the pending update via HTTP POST
func (c *Client) RunUpdate(ctx context.Context) error {
	if err := c.logQuery(); err != nil {
		return err
	}

	form := url.Values{"update": {c.fullQuery()}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("sparql update failed: %w", err)
	}
	c.reset()
	return nil
}

// ClearCache sends the endpoint's clear-cache control command so
// subsequent reads observe the updated state
func (c *Client) ClearCache(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader("cmd=clear-cache"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if _, err := c.do(req); err != nil {
		return fmt.Errorf("failed to clear endpoint cache: %w", err)
	}
	return nil
}

// do performs the request and checks the response for the endpoint's JSON
// error envelope before handing the body back
func (c *Client) do(req *http.Request) ([]byte, error) {
	log := logger.Get()
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transport error reading response: %w", err)
	}

	log.Debug("SPARQL request",
		zap.String("method", req.Method),
		zap.Int("status", resp.StatusCode),
		zap.Int("response_bytes", len(body)),
		zap.Duration("took", time.Since(start)))

	if err := checkErrorEnvelope(body); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

// checkErrorEnvelope inspects a response body as a JSON envelope; bodies
// that are not JSON objects pass through untouched.
func checkErrorEnvelope(body []byte) error {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var envelope struct {
		Status    string `json:"status"`
		Exception string `json:"exception"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil
	}
	if envelope.Status == "ERROR" {
		return &EndpointError{Message: envelope.Exception}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
