package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"tweetwall.live/internal/protocol"
)

// HTTPClient talks JSON to the board server. Request bodies and error
// envelopes match the wire shapes in internal/protocol.
type HTTPClient struct {
	base  string
	token string
	hc    *http.Client
}

func NewHTTPClient(base, token string) *HTTPClient {
	return &HTTPClient{
		base:  strings.TrimRight(base, "/"),
		token: token,
		hc:    &http.Client{},
	}
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *HTTPClient) FetchItems(ctx context.Context, boardID string) ([]protocol.ItemWire, error) {
	var items []protocol.ItemWire
	err := c.do(ctx, http.MethodGet, "/v1/boards/"+url.PathEscape(boardID)+"/items", nil, &items)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *HTTPClient) CreateItem(ctx context.Context, boardID, content, corrID string, x, y float64) (protocol.ItemWire, error) {
	req := struct {
		Content string  `json:"content"`
		CorrID  string  `json:"corr_id,omitempty"`
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
	}{Content: content, CorrID: corrID, X: x, Y: y}
	var item protocol.ItemWire
	err := c.do(ctx, http.MethodPost, "/v1/boards/"+url.PathEscape(boardID)+"/items", req, &item)
	return item, err
}

func (c *HTTPClient) UpdateItemPosition(ctx context.Context, id string, x, y float64) error {
	req := struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}{X: x, Y: y}
	return c.do(ctx, http.MethodPatch, "/v1/items/"+url.PathEscape(id)+"/position", req, nil)
}

func (c *HTTPClient) ToggleLike(ctx context.Context, id string, liked bool) error {
	if liked {
		return c.do(ctx, http.MethodDelete, "/v1/items/"+url.PathEscape(id)+"/like", nil, nil)
	}
	return c.do(ctx, http.MethodPut, "/v1/items/"+url.PathEscape(id)+"/like", nil, nil)
}

func (c *HTTPClient) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/items/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode}
		var env errorEnvelope
		if raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10)); err == nil {
			if json.Unmarshal(raw, &env) == nil && protocol.IsKnownCode(env.Code) {
				se.Code = env.Code
				se.Message = env.Message
			} else {
				se.Message = strings.TrimSpace(string(raw))
			}
		}
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
