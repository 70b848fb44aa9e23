package es

import (
	"encoding/json"
	"fmt"
)

// Query is a single query DSL clause, e.g. {"match_all": {}}.
type Query map[string]any

func MatchAll() Query {
	return Query{"match_all": map[string]any{}}
}

// QueryString runs a Lucene query string such as "name:Foo*".
func QueryString(q string) Query {
	return Query{"query_string": map[string]any{"query": q}}
}

func Wildcard(field, pattern string) Query {
	return Query{"wildcard": map[string]any{
		field: map[string]any{"value": pattern},
	}}
}

type SearchRequest struct {
	Query Query
	Size  int
}

type searchBody struct {
	Query Query `json:"query"`
	Size  *int  `json:"size,omitempty"`
}

func (r SearchRequest) MarshalJSON() ([]byte, error) {
	body := searchBody{Query: r.Query}
	if body.Query == nil {
		body.Query = MatchAll()
	}
	if r.Size > 0 {
		size := r.Size
		body.Size = &size
	}
	return json.Marshal(body)
}

func (r SearchRequest) body() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}
	return b, nil
}
