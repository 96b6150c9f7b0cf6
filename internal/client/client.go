// Package client provides the transport contract the resource engine talks
// through, an HTTP/JSON implementation for the Paymo REST API, and a caching
// decorator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Transport executes a single API request. Implementations return an error
// only when no HTTP response was obtained; non-2xx responses come back as a
// Response with Success false.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Request describes one API call. Path is relative to the API root
// ("projects/12"). Include and Where are the already compiled query values.
type Request struct {
	Method  string
	Path    string
	Include string
	Where   string
	Body    map[string]any
}

// IsRead reports whether the request only reads state.
func (r *Request) IsRead() bool {
	return r.Method == "" || r.Method == http.MethodGet
}

// Response is the outcome of a request that reached the server.
type Response struct {
	Success      bool
	StatusCode   int
	StatusReason string
	Body         json.RawMessage
	// Cached is set when the response was served from a cache.
	Cached bool
}

// Err returns an *APIError for unsuccessful responses and nil otherwise.
func (r *Response) Err() error {
	if r.Success {
		return nil
	}
	return &APIError{StatusCode: r.StatusCode, Message: r.StatusReason}
}

// Records decodes the records stored under key in the response envelope.
// The API wraps both single records and lists in an array under the
// entity's key; a bare object is accepted too. Numbers decode as
// json.Number so integer ids keep their precision.
func (r *Response) Records(key string) ([]map[string]any, error) {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil, nil
	}
	var envelope map[string]json.RawMessage
	if err := decode(r.Body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding response envelope: %w", err)
	}
	raw, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("response has no %q key", key)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '{' {
		var one map[string]any
		if err := decode(raw, &one); err != nil {
			return nil, fmt.Errorf("decoding %s record: %w", key, err)
		}
		return []map[string]any{one}, nil
	}
	var list []map[string]any
	if err := decode(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding %s records: %w", key, err)
	}
	return list, nil
}

func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
