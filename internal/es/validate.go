package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type ValidateResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func (c *Client) ValidateQuery(ctx context.Context, index string, query json.RawMessage) (*ValidateResult, error) {
	body := map[string]json.RawMessage{"query": query}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}

	opts := []func(*esapi.IndicesValidateQueryRequest){
		c.es.Indices.ValidateQuery.WithContext(ctx),
		c.es.Indices.ValidateQuery.WithBody(bytes.NewReader(bodyBytes)),
		c.es.Indices.ValidateQuery.WithExplain(true),
	}
	if index != "" {
		opts = append(opts, c.es.Indices.ValidateQuery.WithIndex(index))
	}

	res, err := c.es.Indices.ValidateQuery(opts...)
	if err != nil {
		return nil, &TransportError{Op: "validate query", Err: err}
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if res.IsError() {
		return nil, newResponseError("validate query", res.StatusCode, respBody)
	}

	var result ValidateResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &result, nil
}

// ValidateSearch checks the query part of a SearchRequest.
func (c *Client) ValidateSearch(ctx context.Context, index string, req SearchRequest) (*ValidateResult, error) {
	q := req.Query
	if q == nil {
		q = MatchAll()
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("marshaling query: %w", err)
	}
	return c.ValidateQuery(ctx, index, raw)
}
