// Package rest is the HTTP transport shared by the identity provider,
// the table repositories and the telemetry client.
package rest

import (
	"chat-panel/errors"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Doer is satisfied by *fasthttp.Client. Tests plug an in-memory client.
type Doer interface {
	DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error
}

type Client struct {
	log     *slog.Logger
	http    Doer
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewClient(log *slog.Logger, http Doer, baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		log:     log,
		http:    http,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
	}
}

// NewHTTPClient returns the fasthttp client used in production.
func NewHTTPClient(timeout time.Duration) *fasthttp.Client {
	return &fasthttp.Client{
		Name:                     "chat-panel",
		ReadTimeout:              timeout,
		WriteTimeout:             timeout,
		NoDefaultUserAgentHeader: true,
	}
}

// Request describes one call relative to the backend base URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Bearer  string
	Body    any
}

// Response is a non-transport outcome: any status code, with the raw body.
type Response struct {
	Status int
	Body   []byte
}

// Error is a non-2xx answer from the backend.
// Code carries the backend specific code when present (SQLSTATE for the row API).
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend answered %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend answered %d: %s", e.Status, e.Message)
}

// BaseURL exposes the backend root, used to derive the realtime endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// APIKey is sent on every request and on the realtime handshake.
func (c *Client) APIKey() string { return c.apiKey }

// Do sends the request and decodes a 2xx JSON body into out when out is not nil.
// Network failures wrap errors.ErrTransport; non-2xx statuses return *Error.
func (c *Client) Do(ctx context.Context, r Request, out any) (Response, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	target := c.baseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}
	req.SetRequestURI(target)
	req.Header.SetMethod(r.Method)
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	bearer := r.Bearer
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set(fasthttp.HeaderAuthorization, "Bearer "+bearer)
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if r.Body != nil {
		body, err := json.Marshal(r.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encode %s %s: %w", r.Method, r.Path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	start := time.Now()
	if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		c.log.Warn("Request failed", "method", r.Method, "path", r.Path, "error", err)
		return Response{}, fmt.Errorf("%w: %s %s: %v", errors.ErrTransport, r.Method, r.Path, err)
	}
	if ctx.Err() != nil {
		return Response{}, fmt.Errorf("%w: %v", errors.ErrTransport, ctx.Err())
	}

	res := Response{Status: resp.StatusCode(), Body: append([]byte(nil), resp.Body()...)}
	c.log.Debug("Request done", "method", r.Method, "path", r.Path,
		"status", res.Status, "duration", time.Since(start))

	if res.Status < 200 || res.Status > 299 {
		return res, decodeError(res)
	}
	if out != nil && len(res.Body) > 0 {
		if err := json.Unmarshal(res.Body, out); err != nil {
			return res, fmt.Errorf("%w: decode %s %s: %v", errors.ErrTransport, r.Method, r.Path, err)
		}
	}
	return res, nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

// decodeError reads the error shapes of both the row API ({code, message}) and the
// identity provider ({error, error_description} or {msg}).
func decodeError(res Response) *Error {
	var body struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	e := &Error{Status: res.Status}
	if err := json.Unmarshal(res.Body, &body); err != nil {
		e.Message = strings.TrimSpace(string(res.Body))
		return e
	}
	switch code := body.Code.(type) {
	case string:
		e.Code = code
	}
	if e.Code == "" {
		e.Code = body.ErrorCode
	}
	if e.Code == "" {
		e.Code = body.Error
	}
	for _, m := range []string{body.Message, body.Msg, body.ErrorDescription, body.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	return e
}

// StatusOf returns the backend status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Status
	}
	return 0
}

// CodeOf returns the backend code carried by err, or "".
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
