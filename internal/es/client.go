package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/labtiva/esprobe/internal/config"
)

// Client is the esapi driver: every call goes through the typed request
// builders of go-elasticsearch.
type Client struct {
	es        *elasticsearch.Client
	cfg       *config.Config
	transport *httpTransport
}

func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	o := newOptions(opts)

	transport, err := newHTTPTransport(cfg)
	if err != nil {
		return nil, err
	}

	esCfg := elasticsearch.Config{
		Addresses:    []string{cfg.Host},
		Transport:    transport.rt,
		Logger:       &roundTripLogger{log: o.logger, trace: o.trace},
		DisableRetry: true,
	}

	if useBasicAuth(cfg) {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("creating ES client: %w", err)
	}

	return &Client{
		es:        es,
		cfg:       cfg,
		transport: transport,
	}, nil
}

func (c *Client) Driver() string { return config.DriverESAPI }

func (c *Client) Close() error {
	c.transport.close()
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("connecting to ES: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ES error: %s", res.Status())
	}
	return nil
}

// read drains and closes an esapi response. esapi joins path segments
// verbatim, so callers escape index names and ids before building a request.
func read(op string, res *esapi.Response, err error) (int, []byte, error) {
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: reading response: %w", op, err)
	}
	return res.StatusCode, body, nil
}

func (c *Client) Health(ctx context.Context) (*ClusterHealth, error) {
	res, err := c.es.Cluster.Health(
		c.es.Cluster.Health.WithContext(ctx),
	)
	status, body, err := read(opHealth, res, err)
	if err != nil {
		return nil, err
	}
	return parseHealth(status, body)
}

func (c *Client) CreateIndex(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Create(url.PathEscape(name),
		c.es.Indices.Create.WithContext(ctx),
	)
	status, body, err := read(opCreateIndex, res, err)
	if err != nil {
		return false, err
	}
	return parseAck(opCreateIndex, status, body)
}

func (c *Client) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Exists([]string{url.PathEscape(name)},
		c.es.Indices.Exists.WithContext(ctx),
	)
	status, _, err := read(opIndexExists, res, err)
	if err != nil {
		return false, err
	}
	return parseExists(status)
}

func (c *Client) DeleteIndex(ctx context.Context, name string) (bool, error) {
	res, err := c.es.Indices.Delete([]string{url.PathEscape(name)},
		c.es.Indices.Delete.WithContext(ctx),
	)
	status, body, err := read(opDeleteIndex, res, err)
	if err != nil {
		return false, err
	}
	return parseAck(opDeleteIndex, status, body)
}

func (c *Client) PutDocument(ctx context.Context, index, id string, body []byte) (bool, error) {
	res, err := c.es.Index(url.PathEscape(index), bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(url.PathEscape(id)),
		c.es.Index.WithRefresh(c.cfg.Refresh),
	)
	status, resBody, err := read(opPutDocument, res, err)
	if err != nil {
		return false, err
	}
	w, err := parseWrite(opPutDocument, status, resBody)
	if err != nil {
		return false, err
	}
	return w.Result == "created", nil
}

func (c *Client) GetDocument(ctx context.Context, index, id string) (*Document, error) {
	res, err := c.es.Get(url.PathEscape(index), url.PathEscape(id),
		c.es.Get.WithContext(ctx),
	)
	status, body, err := read(opGetDocument, res, err)
	if err != nil {
		return nil, err
	}
	return parseGet(status, body)
}

func (c *Client) Search(ctx context.Context, index string, req SearchRequest) (*SearchResult, error) {
	query, err := req.body()
	if err != nil {
		return nil, err
	}
	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(url.PathEscape(index)),
		c.es.Search.WithBody(bytes.NewReader(query)),
	)
	status, body, err := read(opSearch, res, err)
	if err != nil {
		return nil, err
	}
	return parseSearch(status, body)
}

func (c *Client) DeleteDocument(ctx context.Context, index, id string) (bool, error) {
	res, err := c.es.Delete(url.PathEscape(index), url.PathEscape(id),
		c.es.Delete.WithContext(ctx),
		c.es.Delete.WithRefresh(c.cfg.Refresh),
	)
	status, body, err := read(opDeleteDocument, res, err)
	if err != nil {
		return false, err
	}
	w, err := parseWrite(opDeleteDocument, status, body)
	if err != nil {
		return false, err
	}
	return w.Result == "deleted", nil
}

type RequestResult struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Request sends an arbitrary method/path/body through the client's transport
// and pretty-prints JSON responses.
func (c *Client) Request(ctx context.Context, method, path, body string) RequestResult {
	start := time.Now()

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), path, bodyReader)
	if err != nil {
		return RequestResult{Error: err, Duration: time.Since(start)}
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.es.Perform(req)
	if err != nil {
		return RequestResult{Error: err, Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return RequestResult{Error: err, Duration: time.Since(start)}
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, respBody, "", "  "); err == nil {
		return RequestResult{
			StatusCode: resp.StatusCode,
			Body:       pretty.String(),
			Duration:   time.Since(start),
		}
	}

	return RequestResult{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Duration:   time.Since(start),
	}
}
