package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ferry/core"
)

// newTestEngine returns an engine over its own initialized state.
func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	s := &State{}
	s.Acquire()
	t.Cleanup(s.Release)

	return New(append([]Option{WithState(s), WithPlainHTTP(true)}, opts...)...)
}

type sampleRecorder struct {
	mu      sync.Mutex
	samples [][2]int64
}

func (r *sampleRecorder) record(done, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, [2]int64{done, total})
}

func (r *sampleRecorder) all() [][2]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][2]int64(nil), r.samples...)
}

func TestHTTPGet(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte("f"), 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "ferry-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer server.Close()

	e := newTestEngine(t, WithUserAgent("ferry-test/1.0"), WithProgressStep(1))

	var buf bytes.Buffer
	rec := &sampleRecorder{}
	err := e.Get(context.Background(), server.URL+"/file.bin", &buf, rec.record)
	require.NoError(t, err)
	assert.Equal(t, payload, buf.Bytes())

	samples := rec.all()
	require.NotEmpty(t, samples)
	last := samples[len(samples)-1]
	assert.Equal(t, [2]int64{1000, 1000}, last)
	for _, s := range samples {
		assert.LessOrEqual(t, s[0], s[1])
	}
}

func TestHTTPGet_UnknownLength(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "chunk-one;")
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		io.WriteString(w, "chunk-two")
	}))
	defer server.Close()

	e := newTestEngine(t)

	var buf bytes.Buffer
	rec := &sampleRecorder{}
	require.NoError(t, e.Get(context.Background(), server.URL, &buf, rec.record))
	assert.Equal(t, "chunk-one;chunk-two", buf.String())

	samples := rec.all()
	require.NotEmpty(t, samples)
	assert.Equal(t, [2]int64{int64(buf.Len()), core.UnknownSize}, samples[len(samples)-1])
}

func TestHTTPGet_StatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, want: core.ErrNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized, want: core.ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, want: core.ErrUnauthorized},
		{name: "server error", status: http.StatusInternalServerError, want: core.ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			e := newTestEngine(t)
			err := e.Get(context.Background(), server.URL, io.Discard, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, core.ErrTransport)
		})
	}
}

func TestHTTPGet_NotInitialized(t *testing.T) {
	t.Parallel()

	e := New(WithState(&State{}))
	err := e.Get(context.Background(), "http://127.0.0.1:1/x", io.Discard, nil)
	assert.ErrorIs(t, err, core.ErrNotInitialized)
	assert.False(t, e.Ready())
}

func TestHTTPGet_Canceled(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Get(ctx, "http://127.0.0.1:1/x", io.Discard, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t)

	err := e.Get(context.Background(), "ftp://example.test/file", io.Discard, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedScheme)

	err = e.Put(context.Background(), "gopher://example.test/file", strings.NewReader("x"), 1, nil, nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedScheme)
}

func TestHTTPPut(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		received []byte
		user     string
		pass     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		mu.Lock()
		received = body
		user, pass, _ = r.BasicAuth()
		mu.Unlock()

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	e := newTestEngine(t, WithProgressStep(100))
	payload := bytes.Repeat([]byte("u"), 250)
	rec := &sampleRecorder{}

	err := e.Put(context.Background(), server.URL+"/upload", bytes.NewReader(payload), int64(len(payload)),
		&core.Credentials{Username: "alice", Password: "s3cret"}, rec.record)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, payload, received)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "s3cret", pass)

	samples := rec.all()
	require.NotEmpty(t, samples)
	assert.Equal(t, [2]int64{250, 250}, samples[len(samples)-1])
}

func TestHTTPPut_Unauthorized(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "right" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	e := newTestEngine(t)
	err := e.Put(context.Background(), server.URL, strings.NewReader("data"), 4,
		&core.Credentials{Username: "alice", Password: "wrong"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	err = e.Put(context.Background(), server.URL, strings.NewReader("data"), 4,
		&core.Credentials{Username: "alice", Password: "right"}, nil)
	assert.NoError(t, err)
}

func TestHTTPPut_EmptyBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(0), r.ContentLength)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := newTestEngine(t)
	rec := &sampleRecorder{}
	require.NoError(t, e.Put(context.Background(), server.URL, strings.NewReader(""), 0, nil, rec.record))
	assert.Equal(t, [][2]int64{{0, 0}}, rec.all())
}
