package es

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// TransportError is a failure to reach the cluster at all. It is never
// retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ResponseError is a non-2xx reply from the cluster.
type ResponseError struct {
	Op         string
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: ES error %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: ES error %d %s: %s", e.Op, e.StatusCode, e.Type, e.Reason)
}

func (e *ResponseError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusConflict, e.Type == "resource_already_exists_exception":
		return ErrConflict
	}
	return nil
}

type errorBody struct {
	Error json.RawMessage `json:"error"`
}

type errorCause struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// newResponseError builds a ResponseError from a status code and whatever body
// came back. ES sends either an object, a bare string or nothing for errors.
func newResponseError(op string, status int, body []byte) *ResponseError {
	re := &ResponseError{Op: op, StatusCode: status}
	if len(body) == 0 {
		return re
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Error) == 0 {
		return re
	}

	var cause errorCause
	if err := json.Unmarshal(eb.Error, &cause); err == nil {
		re.Type = cause.Type
		re.Reason = cause.Reason
		return re
	}

	var reason string
	if err := json.Unmarshal(eb.Error, &reason); err == nil {
		re.Reason = reason
	}
	return re
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
