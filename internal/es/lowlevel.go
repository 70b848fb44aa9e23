package es

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/elastic/elastic-transport-go/v8/elastictransport"
	"github.com/labtiva/esprobe/internal/config"
)

// LowLevelClient is the lowlevel driver. Requests are plain method + path
// pairs performed on elastictransport, with no API layer on top.
type LowLevelClient struct {
	tp        *elastictransport.Client
	cfg       *config.Config
	transport *httpTransport
}

func NewLowLevelClient(cfg *config.Config, opts ...Option) (*LowLevelClient, error) {
	o := newOptions(opts)

	u, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("parsing host: %w", err)
	}

	transport, err := newHTTPTransport(cfg)
	if err != nil {
		return nil, err
	}

	tpCfg := elastictransport.Config{
		URLs:         []*url.URL{u},
		Transport:    transport.rt,
		Logger:       &roundTripLogger{log: o.logger, trace: o.trace},
		DisableRetry: true,
	}
	if useBasicAuth(cfg) {
		tpCfg.Username = cfg.Username
		tpCfg.Password = cfg.Password
	}

	tp, err := elastictransport.New(tpCfg)
	if err != nil {
		return nil, fmt.Errorf("creating transport: %w", err)
	}

	return &LowLevelClient{tp: tp, cfg: cfg, transport: transport}, nil
}

func (c *LowLevelClient) Driver() string { return config.DriverLowLevel }

func (c *LowLevelClient) Close() error {
	c.transport.close()
	return nil
}

// perform sends one request and returns the status and the drained body.
func (c *LowLevelClient) perform(ctx context.Context, op, method, path string, query url.Values, body []byte) (int, []byte, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, r)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.tp.Perform(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: reading response: %w", op, err)
	}
	return res.StatusCode, resBody, nil
}

func (c *LowLevelClient) refresh() url.Values {
	return url.Values{"refresh": []string{c.cfg.Refresh}}
}

func (c *LowLevelClient) Health(ctx context.Context) (*ClusterHealth, error) {
	status, body, err := c.perform(ctx, opHealth, http.MethodGet, "/_cluster/health", nil, nil)
	if err != nil {
		return nil, err
	}
	return parseHealth(status, body)
}

func (c *LowLevelClient) CreateIndex(ctx context.Context, name string) (bool, error) {
	status, body, err := c.perform(ctx, opCreateIndex, http.MethodPut, indexPath(name), nil, nil)
	if err != nil {
		return false, err
	}
	return parseAck(opCreateIndex, status, body)
}

func (c *LowLevelClient) IndexExists(ctx context.Context, name string) (bool, error) {
	status, _, err := c.perform(ctx, opIndexExists, http.MethodHead, indexPath(name), nil, nil)
	if err != nil {
		return false, err
	}
	return parseExists(status)
}

func (c *LowLevelClient) DeleteIndex(ctx context.Context, name string) (bool, error) {
	status, body, err := c.perform(ctx, opDeleteIndex, http.MethodDelete, indexPath(name), nil, nil)
	if err != nil {
		return false, err
	}
	return parseAck(opDeleteIndex, status, body)
}

func (c *LowLevelClient) PutDocument(ctx context.Context, index, id string, body []byte) (bool, error) {
	status, resBody, err := c.perform(ctx, opPutDocument, http.MethodPut, documentPath(index, id), c.refresh(), body)
	if err != nil {
		return false, err
	}
	w, err := parseWrite(opPutDocument, status, resBody)
	if err != nil {
		return false, err
	}
	return w.Result == "created", nil
}

func (c *LowLevelClient) GetDocument(ctx context.Context, index, id string) (*Document, error) {
	status, body, err := c.perform(ctx, opGetDocument, http.MethodGet, documentPath(index, id), nil, nil)
	if err != nil {
		return nil, err
	}
	return parseGet(status, body)
}

func (c *LowLevelClient) Search(ctx context.Context, index string, req SearchRequest) (*SearchResult, error) {
	query, err := req.body()
	if err != nil {
		return nil, err
	}
	status, body, err := c.perform(ctx, opSearch, http.MethodPost, indexPath(index)+"/_search", nil, query)
	if err != nil {
		return nil, err
	}
	return parseSearch(status, body)
}

func (c *LowLevelClient) DeleteDocument(ctx context.Context, index, id string) (bool, error) {
	status, body, err := c.perform(ctx, opDeleteDocument, http.MethodDelete, documentPath(index, id), c.refresh(), nil)
	if err != nil {
		return false, err
	}
	w, err := parseWrite(opDeleteDocument, status, body)
	if err != nil {
		return false, err
	}
	return w.Result == "deleted", nil
}
