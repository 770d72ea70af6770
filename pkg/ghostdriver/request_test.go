package ghostdriver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/odvcencio/ghostdriver/pkg/errors"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		path      string
		chunks    []string
		directory string
		file      string
	}{
		{"/status", []string{"status"}, "/", "status"},
		{"/session", []string{"session"}, "/", "session"},
		{"/session/", []string{"session"}, "/session/", ""},
		{"/session/abc", []string{"session", "abc"}, "/session/", "abc"},
		{"/session/abc/element/e1/text", []string{"session", "abc", "element", "e1", "text"}, "/session/abc/element/e1/", "text"},
		{"//session//abc", []string{"session", "abc"}, "//session//", "abc"},
		{"", nil, "/", ""},
		{"url", []string{"url"}, "/", "url"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p := ParseURL(tt.path)
			assert.Equal(t, tt.chunks, p.Chunks)
			assert.Equal(t, tt.directory, p.Directory)
			assert.Equal(t, tt.file, p.File)
		})
	}
}

func TestParsedURLChunk(t *testing.T) {
	p := ParseURL("/session/abc")
	assert.Equal(t, "session", p.Chunk(0))
	assert.Equal(t, "abc", p.Chunk(1))
	assert.Empty(t, p.Chunk(2))
	assert.Empty(t, p.Chunk(-1))
}

func TestRequestStrip(t *testing.T) {
	r := NewRequest(httptest.NewRequest(http.MethodGet, "/session/abc/element/e1/text", nil))

	sub := r.Strip("/session/abc")
	assert.Equal(t, "/element/e1/text", sub.URL.Path)
	assert.Equal(t, []string{"element", "e1", "text"}, sub.URL.Chunks)
	assert.Equal(t, "/session/abc/element/e1/text", sub.HTTP.URL.Path)

	root := NewRequest(httptest.NewRequest(http.MethodGet, "/session/abc", nil)).Strip("/session/abc/")
	assert.Equal(t, "/", root.URL.Path)
	assert.Empty(t, root.URL.Chunks)
}

func TestRequestBodySharedAcrossReroute(t *testing.T) {
	r := NewRequest(httptest.NewRequest(http.MethodPost, "/session/abc/url", strings.NewReader(`{"url":"x"}`)))

	var first struct{ URL string }
	require.NoError(t, r.Decode(&first))

	var second struct{ URL string }
	require.NoError(t, r.Strip("/session/abc").Decode(&second))
	assert.Equal(t, "x", first.URL)
	assert.Equal(t, "x", second.URL)
}

func TestRequestDecode(t *testing.T) {
	empty := NewRequest(httptest.NewRequest(http.MethodPost, "/x", nil))
	v := map[string]any{"keep": true}
	require.NoError(t, empty.Decode(&v))
	assert.Equal(t, true, v["keep"])

	bad := NewRequest(httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("{not json")))
	err := bad.Decode(&v)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidParameters))
}

func TestReroute(t *testing.T) {
	var seen ParsedURL
	target := HandlerFunc(func(w http.ResponseWriter, req *Request) error {
		seen = req.URL
		return nil
	})
	r := NewRequest(httptest.NewRequest(http.MethodGet, "/session/abc/title", nil))
	require.NoError(t, Reroute(httptest.NewRecorder(), r, "/session/abc", target))
	assert.Equal(t, []string{"title"}, seen.Chunks)
}

func TestMethodHandler(t *testing.T) {
	h := MethodHandler{
		http.MethodGet: func(w http.ResponseWriter, _ *Request) error {
			return respond(w, "", "ok")
		},
	}

	rec := httptest.NewRecorder()
	require.NoError(t, h.Handle(rec, NewRequest(httptest.NewRequest(http.MethodGet, "/x", nil))))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sessionId":null,"status":0,"value":"ok"}`, rec.Body.String())
	assert.Equal(t, "application/json;charset=UTF-8", rec.Header().Get("Content-Type"))

	err := h.Handle(httptest.NewRecorder(), NewRequest(httptest.NewRequest(http.MethodPut, "/x", nil)))
	perr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindInvalidCommandMethod, perr.Kind)
	assert.Equal(t, http.StatusMethodNotAllowed, perr.HTTPStatus)
}

func TestRespondEncodingFailureWritesNothing(t *testing.T) {
	rec := httptest.NewRecorder()
	err := respond(rec, "", make(chan int))
	require.Error(t, err)
	assert.Zero(t, rec.Body.Len())
	assert.False(t, rec.Flushed)
}
