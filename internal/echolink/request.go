package echolink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/0gfoundation/echolink-client/internal/auth"
)

// do issues one request and never returns a Go error: transport failures
// come back as (500, {"error": ...}) and unparseable bodies as
// (status, {"error": "Failed to parse response"}).
func (c *Client) do(ctx context.Context, method, path string, body any, query url.Values, withAuth bool) (int, Result) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return http.StatusInternalServerError, errorResult(err.Error())
		}
		bodyReader = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		c.log.Error("request error", zap.String("url", u), zap.Error(err))
		return http.StatusInternalServerError, errorResult(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	if withAuth {
		if status, res, ok := c.sign(req); !ok {
			return status, res
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("request error", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return http.StatusInternalServerError, errorResult(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Error("request error", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return http.StatusInternalServerError, errorResult(err.Error())
	}

	var data Result
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return resp.StatusCode, errorResult("Failed to parse response")
	}

	c.log.Debug("api response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return resp.StatusCode, data
}

// sign attaches fresh auth headers. ok=false means the request must not be
// sent and (status, res) should be returned instead.
func (c *Client) sign(req *http.Request) (int, Result, bool) {
	if c.identity == nil {
		if c.strictAuth {
			return http.StatusUnauthorized, errorResult("no identity configured"), false
		}
		// The server gives the authoritative rejection.
		c.log.Error("No private key configured. Authentication will fail.")
		return 0, nil, true
	}
	sh, err := auth.NewSignedHeaders(c.identity, c.now())
	if err != nil {
		c.log.Error("sign auth headers", zap.Error(err))
		return 0, nil, true
	}
	sh.Apply(req.Header)
	return 0, nil, true
}
