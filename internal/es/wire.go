package es

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const (
	opHealth         = "cluster health"
	opCreateIndex    = "create index"
	opIndexExists    = "index exists"
	opDeleteIndex    = "delete index"
	opPutDocument    = "put document"
	opGetDocument    = "get document"
	opSearch         = "search"
	opDeleteDocument = "delete document"
)

type ackResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

type writeResponse struct {
	Index   string `json:"_index"`
	ID      string `json:"_id"`
	Version int64  `json:"_version"`
	Result  string `json:"result"`
}

// hitsTotal accepts both {"value":1,"relation":"eq"} and the pre-7.x bare
// number.
type hitsTotal int64

func (t *hitsTotal) UnmarshalJSON(b []byte) error {
	var obj struct {
		Value int64 `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		*t = hitsTotal(obj.Value)
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("parsing hits.total %s: %w", string(b), err)
	}
	*t = hitsTotal(n)
	return nil
}

type searchResponse struct {
	Took     int  `json:"took"`
	TimedOut bool `json:"timed_out"`
	Hits     struct {
		Total hitsTotal  `json:"total"`
		Hits  []Document `json:"hits"`
	} `json:"hits"`
}

func (r *searchResponse) result() *SearchResult {
	return &SearchResult{
		Total:    int64(r.Hits.Total),
		TimedOut: r.TimedOut,
		Took:     r.Took,
		Hits:     r.Hits.Hits,
	}
}

func indexPath(index string) string {
	return "/" + url.PathEscape(index)
}

func documentPath(index, id string) string {
	return indexPath(index) + "/_doc/" + url.PathEscape(id)
}

func decode(op string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: parsing response: %w", op, err)
	}
	return nil
}

func parseHealth(status int, body []byte) (*ClusterHealth, error) {
	if !isSuccess(status) {
		return nil, newResponseError(opHealth, status, body)
	}
	var health ClusterHealth
	if err := decode(opHealth, body, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

func parseAck(op string, status int, body []byte) (bool, error) {
	if !isSuccess(status) {
		return false, newResponseError(op, status, body)
	}
	var ack ackResponse
	if err := decode(op, body, &ack); err != nil {
		return false, err
	}
	return ack.Acknowledged, nil
}

// parseExists maps a HEAD reply: 200 exists, 404 does not, anything else is an
// error.
func parseExists(status int) (bool, error) {
	switch {
	case isSuccess(status):
		return true, nil
	case status == http.StatusNotFound:
		return false, nil
	default:
		return false, newResponseError(opIndexExists, status, nil)
	}
}

func parseWrite(op string, status int, body []byte) (*writeResponse, error) {
	if !isSuccess(status) {
		return nil, newResponseError(op, status, body)
	}
	var w writeResponse
	if err := decode(op, body, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func parseGet(status int, body []byte) (*Document, error) {
	if !isSuccess(status) {
		return nil, newResponseError(opGetDocument, status, body)
	}
	var doc Document
	if err := decode(opGetDocument, body, &doc); err != nil {
		return nil, err
	}
	if !doc.Found {
		return nil, &ResponseError{Op: opGetDocument, StatusCode: http.StatusNotFound}
	}
	return &doc, nil
}

func parseSearch(status int, body []byte) (*SearchResult, error) {
	if !isSuccess(status) {
		return nil, newResponseError(opSearch, status, body)
	}
	var res searchResponse
	if err := decode(opSearch, body, &res); err != nil {
		return nil, err
	}
	return res.result(), nil
}
