// Package ghostdriver implements the WebDriver REST layer: URL routing,
// session management, command handlers and the HTTP server that hosts them.
package ghostdriver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
)

const maxBodyBytes = 16 << 20

// ParsedURL is a request path split into the pieces routing works with.
type ParsedURL struct {
	Path string
	// Chunks are the non-empty path segments.
	Chunks []string
	// Directory is the path up to and including the last slash.
	Directory string
	// File is the segment after the last slash, possibly empty.
	File string
}

// ParseURL splits path into segments.
func ParseURL(path string) ParsedURL {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	p := ParsedURL{Path: path}
	for _, c := range strings.Split(path, "/") {
		if c != "" {
			p.Chunks = append(p.Chunks, c)
		}
	}
	idx := strings.LastIndex(path, "/")
	p.Directory = path[:idx+1]
	p.File = path[idx+1:]
	return p
}

// Chunk returns segment i or "" when the path is shorter.
func (p ParsedURL) Chunk(i int) string {
	if i < 0 || i >= len(p.Chunks) {
		return ""
	}
	return p.Chunks[i]
}

// Request is an inbound command with its parsed URL. Rerouting produces a
// copy whose URL is relative to the new handler; the body is shared.
type Request struct {
	HTTP *http.Request
	URL  ParsedURL

	body *requestBody
}

type requestBody struct {
	data []byte
	err  error
	read bool
}

// NewRequest wraps r.
func NewRequest(r *http.Request) *Request {
	return &Request{
		HTTP: r,
		URL:  ParseURL(r.URL.Path),
		body: &requestBody{},
	}
}

// Method returns the HTTP method.
func (r *Request) Method() string {
	return r.HTTP.Method
}

// Body returns the raw request body, reading it on first use.
func (r *Request) Body() ([]byte, error) {
	b := r.body
	if !b.read {
		b.read = true
		if r.HTTP.Body != nil {
			b.data, b.err = io.ReadAll(io.LimitReader(r.HTTP.Body, maxBodyBytes))
		}
	}
	return b.data, b.err
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Request) Decode(v any) error {
	data, err := r.Body()
	if err != nil {
		return apperrors.InvalidParameters("unable to read request body: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.InvalidParameters("request body is not valid JSON: %v", err)
	}
	return nil
}

// Strip returns a copy of r with prefix removed from its path.
func (r *Request) Strip(prefix string) *Request {
	prefix = strings.TrimSuffix(prefix, "/")
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == r.URL.Path && prefix != "" {
		rest = "/"
	}
	return &Request{
		HTTP: r.HTTP,
		URL:  ParseURL(rest),
		body: r.body,
	}
}

// Reroute forwards req to target with prefix stripped from the path.
func Reroute(w http.ResponseWriter, req *Request, prefix string, target Handler) error {
	return target.Handle(w, req.Strip(prefix))
}
