// Package apiclient is the HTTP client for the gestion API.
//
// Every call returns a model.Result and never an error: transport failures,
// non-2xx statuses and malformed bodies all resolve into the result value.
// The client performs a single attempt per call with no retries and no
// timeout of its own; cancellation comes only from the caller's context.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/me/gestion/internal/logging"
	"github.com/me/gestion/pkg/model"
)

// TokenStore is the session state the client reads and, on login, writes.
// *session.Store satisfies it.
type TokenStore interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, token string) error
}

// Client is an HTTP client for the gestion API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Session    TokenStore
	Logger     *slog.Logger
}

// NewClient creates an API client for baseURL that authenticates with the
// token held in sess.
func NewClient(baseURL string, sess TokenStore, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Session:    sess,
		Logger:     logger.With("component", "apiclient"),
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) model.Result {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, payload map[string]any) model.Result {
	return c.do(ctx, http.MethodPost, path, payload)
}

// Put performs a full update.
func (c *Client) Put(ctx context.Context, path string, payload map[string]any) model.Result {
	return c.do(ctx, http.MethodPut, path, payload)
}

// Patch performs a partial update.
func (c *Client) Patch(ctx context.Context, path string, payload map[string]any) model.Result {
	return c.do(ctx, http.MethodPatch, path, payload)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) model.Result {
	return c.do(ctx, http.MethodDelete, path, nil)
}

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// do performs one HTTP exchange and folds every outcome into a Result.
func (c *Client) do(ctx context.Context, method, path string, payload map[string]any) model.Result {
	reqID := requestID()
	url := c.url(path)
	logger := c.Logger.With("method", method, "url", url, "request_id", reqID)

	res := c.exchange(ctx, logger, method, url, reqID, payload)
	res.RequestID = reqID
	if !res.OK {
		logger.Debug("HTTP request failed", "kind", res.Kind, "status", res.Status, "error", res.Error)
	}
	return res
}

func (c *Client) exchange(ctx context.Context, logger *slog.Logger, method, url, reqID string, payload map[string]any) model.Result {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return model.Failure(model.KindClient, 0, fmt.Sprintf("marshal request: %v", err))
		}
		bodyReader = bytes.NewReader(data)
		logger.Debug("HTTP request body", "body", string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return model.Failure(model.KindTransport, 0, fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Session != nil {
		if token, ok := c.Session.Get(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logger.Debug("HTTP request", "authenticated", req.Header.Get("Authorization") != "")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return model.Failure(model.KindTransport, 0, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Debug("read response failed, treating body as empty", "error", err)
		respBody = nil
	}

	logger.Debug("HTTP response", "status", resp.StatusCode, "body", string(respBody))

	fields := parseBody(respBody)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := fields["error"].(string)
		if msg == "" {
			msg = model.StatusText(resp.StatusCode)
		}
		return model.Failure(model.KindHTTP, resp.StatusCode, msg)
	}
	return model.Success(resp.StatusCode, fields)
}

// url joins the base URL and a relative path.
func (c *Client) url(path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	return c.BaseURL + path
}

// parseBody decodes a JSON body into a mapping. An empty or malformed body
// yields an empty mapping; a JSON value that is not an object is placed
// under "data".
func parseBody(body []byte) map[string]any {
	var v any
	if len(bytes.TrimSpace(body)) == 0 || json.Unmarshal(body, &v) != nil {
		return map[string]any{}
	}
	switch t := v.(type) {
	case map[string]any:
		return t
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"data": t}
	}
}
