package es

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

type IndexInfo struct {
	Name      string `json:"index"`
	Health    string `json:"health"`
	DocsCount string `json:"docs.count"`
	StoreSize string `json:"store.size"`
	Pri       string `json:"pri"`
	Rep       string `json:"rep"`
}

func (c *Client) ListIndices(ctx context.Context) ([]IndexInfo, error) {
	res, err := c.es.Cat.Indices(
		c.es.Cat.Indices.WithContext(ctx),
		c.es.Cat.Indices.WithFormat("json"),
		c.es.Cat.Indices.WithH("index", "health", "docs.count", "store.size", "pri", "rep"),
	)
	if err != nil {
		return nil, &TransportError{Op: "list indices", Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading indices response: %w", err)
	}

	if res.IsError() {
		return nil, newResponseError("list indices", res.StatusCode, body)
	}

	return parseIndicesResponse(body)
}

func parseIndicesResponse(body []byte) ([]IndexInfo, error) {
	var indices []IndexInfo
	if err := json.Unmarshal(body, &indices); err != nil {
		return nil, fmt.Errorf("parsing indices: %w", err)
	}

	sort.Slice(indices, func(i, j int) bool {
		return indices[i].Name < indices[j].Name
	})

	return indices, nil
}

func parseMappingResponse(data []byte) ([]string, error) {
	var response map[string]struct {
		Mappings struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"mappings"`
	}

	if err := json.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("parsing mapping response: %w", err)
	}

	var fields []string
	for _, indexData := range response {
		fields = extractFields(indexData.Mappings.Properties, "")
		break
	}

	sort.Strings(fields)
	return fields, nil
}

func extractFields(properties map[string]interface{}, prefix string) []string {
	var fields []string

	for name, prop := range properties {
		fieldName := name
		if prefix != "" {
			fieldName = prefix + "." + name
		}

		propMap, ok := prop.(map[string]interface{})
		if !ok {
			continue
		}

		if nested, ok := propMap["properties"].(map[string]interface{}); ok {
			fields = append(fields, extractFields(nested, fieldName)...)
		} else {
			fields = append(fields, fieldName)
		}
	}

	return fields
}

// FetchMapping returns the flattened field names of an index mapping, sorted.
func (c *Client) FetchMapping(ctx context.Context, index string) ([]string, error) {
	res, err := c.es.Indices.GetMapping(
		c.es.Indices.GetMapping.WithContext(ctx),
		c.es.Indices.GetMapping.WithIndex(index),
	)
	if err != nil {
		return nil, &TransportError{Op: "fetch mapping", Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading mapping response: %w", err)
	}

	if res.IsError() {
		return nil, newResponseError("fetch mapping", res.StatusCode, body)
	}

	return parseMappingResponse(body)
}
