// Package resttest runs an in-memory backend for tests of rest based clients.
package resttest

import (
	"chat-panel/infrastructure/rest"
	"encoding/json"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const BaseURL = "http://backend.test"

// Recorded is a request as the fake backend saw it.
type Recorded struct {
	Method string
	Path   string
	Query  url.Values
	Header map[string]string
	Body   []byte
}

type Server struct {
	ln       *fasthttputil.InmemoryListener
	mu       sync.Mutex
	handlers map[string]fasthttp.RequestHandler
	requests []Recorded
}

func NewServer(t testing.TB) *Server {
	s := &Server{
		ln:       fasthttputil.NewInmemoryListener(),
		handlers: make(map[string]fasthttp.RequestHandler),
	}
	go func() {
		_ = fasthttp.Serve(s.ln, s.serve)
	}()
	t.Cleanup(func() { _ = s.ln.Close() })
	return s
}

// Handle registers h for method and path (query excluded).
func (s *Server) Handle(method, path string, h fasthttp.RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method+" "+path] = h
}

// JSON registers a handler answering status with body encoded as JSON.
func (s *Server) JSON(method, path string, status int, body any) {
	s.Handle(method, path, func(ctx *fasthttp.RequestCtx) {
		Reply(ctx, status, body)
	})
}

func Reply(ctx *fasthttp.RequestCtx, status int, body any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	if body != nil {
		bytes, _ := json.Marshal(body)
		ctx.SetBody(bytes)
	}
}

func (s *Server) serve(ctx *fasthttp.RequestCtx) {
	header := make(map[string]string)
	ctx.Request.Header.VisitAll(func(k, v []byte) {
		header[string(k)] = string(v)
	})
	rec := Recorded{
		Method: string(ctx.Method()),
		Path:   string(ctx.Path()),
		Query:  parseQuery(ctx),
		Header: header,
		Body:   append([]byte(nil), ctx.PostBody()...),
	}
	s.mu.Lock()
	s.requests = append(s.requests, rec)
	h, ok := s.handlers[rec.Method+" "+rec.Path]
	s.mu.Unlock()
	if !ok {
		Reply(ctx, fasthttp.StatusNotFound, map[string]string{"message": "no route " + rec.Path})
		return
	}
	h(ctx)
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// Calls counts the requests received for method and path.
func (s *Server) Calls(method, path string) int {
	count := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			count++
		}
	}
	return count
}

func (s *Server) HTTPClient() *fasthttp.Client {
	return &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return s.ln.Dial()
		},
	}
}

func (s *Server) Client(log *slog.Logger) *rest.Client {
	return rest.NewClient(log, s.HTTPClient(), BaseURL, "anon-key", 2*time.Second)
}

func parseQuery(ctx *fasthttp.RequestCtx) url.Values {
	values, err := url.ParseQuery(string(ctx.URI().QueryString()))
	if err != nil {
		return url.Values{}
	}
	return values
}
