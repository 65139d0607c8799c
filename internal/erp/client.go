// Package erp is the thin client for the platform backend's remote
// read/search/create/write/call interface. The backend is an opaque,
// possibly-failing RPC boundary: every operation returns an error the
// caller owns handling.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Result is the discriminated response envelope every remote operation
// returns: success carries data, failure carries an error string.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RemoteError is a failure reported by the backend (as opposed to a
// transport failure, which is wrapped as-is).
type RemoteError struct {
	Op         string
	Collection string
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("erp %s %s: %s", e.Op, e.Collection, e.Message)
}

type Client struct {
	base string
	http *http.Client
}

func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}
}

type readRequest struct {
	IDs    []int    `json:"ids"`
	Fields []string `json:"fields,omitempty"`
}

type searchRequest struct {
	Filters map[string]any `json:"filters,omitempty"`
	Limit   int            `json:"limit,omitempty"`
}

type createRequest struct {
	Values map[string]any `json:"values"`
}

type writeRequest struct {
	IDs    []int          `json:"ids"`
	Values map[string]any `json:"values"`
}

type callRequest struct {
	Method string         `json:"method"`
	Args   map[string]any `json:"args,omitempty"`
}

// Read fetches records of a collection by id.
func Read[T any](ctx context.Context, c *Client, collection string, ids []int, fields []string) ([]T, error) {
	var out []T
	err := c.do(ctx, "read", collection, readRequest{IDs: ids, Fields: fields}, &out)
	return out, err
}

// Search fetches the records of a collection matching filters. A limit of
// zero means no limit.
func Search[T any](ctx context.Context, c *Client, collection string, filters map[string]any, limit int) ([]T, error) {
	var out []T
	err := c.do(ctx, "search", collection, searchRequest{Filters: filters, Limit: limit}, &out)
	return out, err
}

// Create inserts one record and returns its id.
func Create(ctx context.Context, c *Client, collection string, values map[string]any) (int, error) {
	var id int
	err := c.do(ctx, "create", collection, createRequest{Values: values}, &id)
	return id, err
}

// Write updates the given records in place.
func Write(ctx context.Context, c *Client, collection string, ids []int, values map[string]any) error {
	return c.do(ctx, "write", collection, writeRequest{IDs: ids, Values: values}, nil)
}

// Call invokes a named backend method on a collection.
func Call[T any](ctx context.Context, c *Client, collection, method string, args map[string]any) (T, error) {
	var out T
	err := c.do(ctx, "call", collection, callRequest{Method: method, Args: args}, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, collection string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", op, collection, err)
	}

	url := fmt.Sprintf("%s/api/rpc/%s/%s", c.base, collection, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, collection, err)
	}
	defer resp.Body.Close()

	var envelope Result[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s %s response: %w", op, collection, err)
	}
	if !envelope.Success {
		log.Debug().Str("module", "erp").Str("op", op).Str("collection", collection).
			Str("error", envelope.Error).Msg("remote call failed")
		return &RemoteError{Op: op, Collection: collection, Message: envelope.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", op, collection, err)
	}
	return nil
}
