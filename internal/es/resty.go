package es

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/labtiva/esprobe/internal/config"
)

// RestyClient is the resty driver: a thin HTTP wrapper that decodes replies
// straight into typed results.
type RestyClient struct {
	rc        *resty.Client
	cfg       *config.Config
	transport *httpTransport
}

func NewRestyClient(cfg *config.Config, opts ...Option) (*RestyClient, error) {
	o := newOptions(opts)

	transport, err := newHTTPTransport(cfg)
	if err != nil {
		return nil, err
	}

	rc := resty.New().
		SetLogger(restyLogger{log: o.logger}).
		SetBaseURL(cfg.Host).
		SetTransport(transport.rt).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	if useBasicAuth(cfg) {
		rc.SetBasicAuth(cfg.Username, cfg.Password)
	}

	log := o.logger
	trace := o.trace
	rc.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ev := log.Debug()
		if !ev.Enabled() {
			return nil
		}
		ev = ev.Str("method", res.Request.Method).
			Str("url", res.Request.URL).
			Int("status", res.StatusCode()).
			Dur("duration", res.Time())
		if trace {
			ev = ev.Bytes("response_body", res.Body())
		}
		ev.Msg("es round trip")
		return nil
	})

	return &RestyClient{rc: rc, cfg: cfg, transport: transport}, nil
}

func (c *RestyClient) Driver() string { return config.DriverResty }

func (c *RestyClient) Close() error {
	c.transport.close()
	return nil
}

func (c *RestyClient) request(ctx context.Context) *resty.Request {
	return c.rc.R().
		SetContext(ctx).
		ForceContentType("application/json")
}

func (c *RestyClient) document(ctx context.Context, index, id string) *resty.Request {
	return c.request(ctx).SetPathParams(map[string]string{
		"index": index,
		"id":    id,
	})
}

func responseErr(op string, res *resty.Response) error {
	return newResponseError(op, res.StatusCode(), res.Body())
}

func (c *RestyClient) Health(ctx context.Context) (*ClusterHealth, error) {
	var health ClusterHealth
	res, err := c.request(ctx).
		SetResult(&health).
		Get("/_cluster/health")
	if err != nil {
		return nil, &TransportError{Op: opHealth, Err: err}
	}
	if res.IsError() {
		return nil, responseErr(opHealth, res)
	}
	return &health, nil
}

func (c *RestyClient) CreateIndex(ctx context.Context, name string) (bool, error) {
	var ack ackResponse
	res, err := c.request(ctx).
		SetPathParam("index", name).
		SetResult(&ack).
		Put("/{index}")
	if err != nil {
		return false, &TransportError{Op: opCreateIndex, Err: err}
	}
	if res.IsError() {
		return false, responseErr(opCreateIndex, res)
	}
	return ack.Acknowledged, nil
}

func (c *RestyClient) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := c.request(ctx).
		SetPathParam("index", name).
		Head("/{index}")
	if err != nil {
		return false, &TransportError{Op: opIndexExists, Err: err}
	}
	return parseExists(res.StatusCode())
}

func (c *RestyClient) DeleteIndex(ctx context.Context, name string) (bool, error) {
	var ack ackResponse
	res, err := c.request(ctx).
		SetPathParam("index", name).
		SetResult(&ack).
		Delete("/{index}")
	if err != nil {
		return false, &TransportError{Op: opDeleteIndex, Err: err}
	}
	if res.IsError() {
		return false, responseErr(opDeleteIndex, res)
	}
	return ack.Acknowledged, nil
}

func (c *RestyClient) PutDocument(ctx context.Context, index, id string, body []byte) (bool, error) {
	var w writeResponse
	res, err := c.document(ctx, index, id).
		SetQueryParam("refresh", c.cfg.Refresh).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&w).
		Put("/{index}/_doc/{id}")
	if err != nil {
		return false, &TransportError{Op: opPutDocument, Err: err}
	}
	if res.IsError() {
		return false, responseErr(opPutDocument, res)
	}
	return w.Result == "created", nil
}

func (c *RestyClient) GetDocument(ctx context.Context, index, id string) (*Document, error) {
	var doc Document
	res, err := c.document(ctx, index, id).
		SetResult(&doc).
		Get("/{index}/_doc/{id}")
	if err != nil {
		return nil, &TransportError{Op: opGetDocument, Err: err}
	}
	if res.IsError() {
		return nil, responseErr(opGetDocument, res)
	}
	if !doc.Found {
		return nil, &ResponseError{Op: opGetDocument, StatusCode: 404}
	}
	return &doc, nil
}

func (c *RestyClient) Search(ctx context.Context, index string, req SearchRequest) (*SearchResult, error) {
	query, err := req.body()
	if err != nil {
		return nil, err
	}
	var sr searchResponse
	res, err := c.request(ctx).
		SetPathParam("index", index).
		SetHeader("Content-Type", "application/json").
		SetBody(query).
		SetResult(&sr).
		Post("/{index}/_search")
	if err != nil {
		return nil, &TransportError{Op: opSearch, Err: err}
	}
	if res.IsError() {
		return nil, responseErr(opSearch, res)
	}
	return sr.result(), nil
}

func (c *RestyClient) DeleteDocument(ctx context.Context, index, id string) (bool, error) {
	var w writeResponse
	res, err := c.document(ctx, index, id).
		SetQueryParam("refresh", c.cfg.Refresh).
		SetResult(&w).
		Delete("/{index}/_doc/{id}")
	if err != nil {
		return false, &TransportError{Op: opDeleteDocument, Err: err}
	}
	if res.IsError() {
		return false, responseErr(opDeleteDocument, res)
	}
	return w.Result == "deleted", nil
}
