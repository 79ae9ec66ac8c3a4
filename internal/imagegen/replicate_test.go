package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		APIKey:       "r8_test",
		Endpoint:     srv.URL,
		PollInterval: 5 * time.Millisecond,
		Timeout:      2 * time.Second,
		HTTPClient:   srv.Client(),
	}
}

func TestRunPollsUntilSucceeded(t *testing.T) {
	var polls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer r8_test", r.Header.Get("Authorization"))
		switch {
		case r.Method == "POST" && r.URL.Path == "/models/black-forest-labs/flux-schnell/predictions":
			var body createRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a fjord", body.Input["prompt"])
			assert.Empty(t, body.Version)
			w.Write([]byte(`{"id":"p1","status":"starting","urls":{"get":"` + srv.URL + `/predictions/p1"}}`))
		case r.Method == "GET" && r.URL.Path == "/predictions/p1":
			if polls.Add(1) < 2 {
				w.Write([]byte(`{"id":"p1","status":"processing","urls":{"get":"` + srv.URL + `/predictions/p1"}}`))
				return
			}
			w.Write([]byte(`{"id":"p1","status":"succeeded","output":["https://cdn.example/out-0.webp"]}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	url, err := testClient(srv).Run(context.Background(), "black-forest-labs/flux-schnell", map[string]any{"prompt": "a fjord"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/out-0.webp", url)
	assert.Equal(t, int32(2), polls.Load())
}

func TestRunWithVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions", r.URL.Path)
		var body createRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "350d", body.Version)
		w.Write([]byte(`{"id":"p2","status":"succeeded","output":"https://cdn.example/up.png"}`))
	}))
	defer srv.Close()

	url, err := testClient(srv).Run(context.Background(), "nightmareai/real-esrgan:350d", map[string]any{"scale": 2})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/up.png", url)
}

func TestRunClassifiesErrors(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   apperr.Type
	}{
		{http.StatusUnauthorized, `{"detail":"bad token"}`, apperr.TypeAuth},
		{http.StatusBadRequest, `{"detail":"input.aspect_ratio must be one of 1:1, 16:9"}`, apperr.TypeConfig},
		{http.StatusUnprocessableEntity, `{"detail":"invalid version"}`, apperr.TypeConfig},
		{http.StatusTooManyRequests, `{}`, apperr.TypeResourceExhausted},
		{http.StatusInternalServerError, `{}`, apperr.TypeExternal},
		{http.StatusOK, `{"id":"p","status":"failed","error":"CUDA out of memory"}`, apperr.TypeResourceExhausted},
		{http.StatusOK, `{"id":"p","status":"failed","error":"NSFW content detected"}`, apperr.TypeExternal},
		{http.StatusOK, `{"id":"p","status":"canceled"}`, apperr.TypeExternal},
		{http.StatusOK, `{"id":"p","status":"succeeded","output":"/local/path.png"}`, apperr.TypeExternal},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))
		_, err := testClient(srv).Run(context.Background(), "a/b", nil)
		srv.Close()
		require.Error(t, err, tc.body)
		assert.Equal(t, tc.want, apperr.GetType(err), tc.body)
	}
}

func TestRunTimesOut(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"slow","status":"processing","urls":{"get":"` + srv.URL + `/predictions/slow"}}`))
	}))
	defer srv.Close()

	c := testClient(srv)
	c.Timeout = 50 * time.Millisecond
	_, err := c.Run(context.Background(), "a/b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still processing")
}

func TestOutputURL(t *testing.T) {
	good := map[string]string{
		`"https://a/1.png"`:                   "https://a/1.png",
		`["http://a/1.png", "http://a/2.png"]`: "http://a/1.png",
		`[{"url": "https://a/3.png"}]`:         "https://a/3.png",
		`{"url": "https://a/4.png"}`:           "https://a/4.png",
	}
	for raw, want := range good {
		got, err := OutputURL(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got)
	}
	for _, raw := range []string{``, `null`, `[]`, `"ftp://a"`, `42`} {
		_, err := OutputURL(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.png") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("PNGDATA"))
	}))
	defer srv.Close()
	c := testClient(srv)
	dir := filepath.Join(t.TempDir(), "images")

	path, err := c.Download(context.Background(), srv.URL+"/files/out.webp", dir, "42")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "42.webp"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PNGDATA", string(data))

	_, err = c.Download(context.Background(), srv.URL+"/files/missing.png", dir, "43")
	assert.True(t, apperr.Is(err, apperr.TypeExternal))
	_, statErr := os.Stat(filepath.Join(dir, "43.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDataURI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tile.png")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
	uri, err := DataURI(path)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AQID", uri)
}
