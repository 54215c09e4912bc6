package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/clobrano/youtubedoc/internal/cache"
	"github.com/clobrano/youtubedoc/internal/models"
	"github.com/clobrano/youtubedoc/internal/processor"
	"github.com/clobrano/youtubedoc/internal/storage"
	"github.com/clobrano/youtubedoc/internal/youtube"
	"github.com/clobrano/youtubedoc/internal/youtubeurl"
)

type fakeClient struct {
	mu          sync.Mutex
	metadataErr error
	languages   []string
}

func (f *fakeClient) Metadata(ctx context.Context, videoID, url string) (models.VideoInfo, error) {
	if f.metadataErr != nil {
		return models.VideoInfo{}, f.metadataErr
	}
	views := int64(1234567)
	return models.VideoInfo{
		Title:     "Python Tutorial",
		Channel:   "Code Academy",
		Duration:  125,
		ViewCount: &views,
		URL:       url,
		VideoID:   videoID,
	}, nil
}

func (f *fakeClient) Transcript(ctx context.Context, videoID, language string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.languages = append(f.languages, language)
	return "welcome to the tutorial", nil
}

func (f *fakeClient) Comments(ctx context.Context, videoID string, max int) ([]string, error) {
	return nil, youtube.ErrCommentsUnavailable
}

type fakePublisher struct {
	published map[string]bool
}

func (f *fakePublisher) Publish(ctx context.Context, key, markdown string) (string, error) {
	f.published[key] = true
	return "https://docs.example.com/" + key, nil
}

func (f *fakePublisher) Lookup(ctx context.Context, key string) (string, error) {
	if f.published[key] {
		return "https://docs.example.com/" + key, nil
	}
	return "", storage.ErrNotFound
}

type fixture struct {
	server *Server
	client *fakeClient
	cache  *cache.Cache
}

func newFixture(t *testing.T, publisher storage.Publisher, opts ...func(*Config)) *fixture {
	t.Helper()
	client := &fakeClient{}
	c := cache.New(context.Background(), cache.Options{TTL: time.Minute, MaxEntries: 10, CleanupInterval: time.Minute})
	t.Cleanup(func() { c.Close() })

	svc := processor.NewService(processor.ServiceConfig{
		Processor:      processor.NewYouTubeProcessor(client, nil),
		Publisher:      publisher,
		Cache:          c,
		MaxDisplaySize: 300_000,
	})
	cfg := Config{Addr: "127.0.0.1:0", IndexRateLimit: 10, VideoRateLimit: 5, Cache: c}
	for _, opt := range opts {
		opt(&cfg)
	}
	s, err := New(cfg, svc)
	require.NoError(t, err)
	return &fixture{server: s, client: client, cache: c}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func formRequest(target, input string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(url.Values{"input_text": {input}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestIndex(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	for _, ex := range Examples {
		assert.Contains(t, body, ex.Name)
	}
	assert.Contains(t, body, `href="/watch?v=_uQrJ0TkZlc"`)
	assert.Contains(t, body, "https://youtu.be/VIDEO_ID")

	assert.Equal(t, http.StatusNotFound, f.get("/nope").Code)
}

func TestIndexPost(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(formRequest("/", "https://youtu.be/_uQrJ0TkZlc"))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "# YouTube Video Documentation")
	assert.Contains(t, body, "welcome to the tutorial")
	assert.Contains(t, body, "2m 5s")
	assert.Contains(t, body, "1,234,567 views")
	assert.Equal(t, []string{"en"}, f.client.languages)

	rec = f.do(formRequest("/", "https://vimeo.com/12345678"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), processor.MsgInvalidURL)
}

func TestIndexPostVideoUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	f.client.metadataErr = youtube.ErrVideoUnavailable

	rec := f.do(formRequest("/", "https://youtu.be/_uQrJ0TkZlc"))
	assert.Contains(t, rec.Body.String(), processor.MsgVideoUnavailable)
}

func TestVideoPage(t *testing.T) {
	pub := &fakePublisher{published: map[string]bool{storage.ObjectKey("7t2alSnE2-I"): true}}
	f := newFixture(t, pub)

	rec := f.get("/video/_uQrJ0TkZlc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="https://www.youtube.com/watch?v=_uQrJ0TkZlc"`)
	assert.Contains(t, rec.Body.String(), `action="/video/_uQrJ0TkZlc"`)
	assert.NotContains(t, rec.Body.String(), "Already documented")

	rec = f.get("/video/7t2alSnE2-I")
	assert.Contains(t, rec.Body.String(), "Already documented: <a href=\"https://docs.example.com/docs/youtube/7t2alSnE2-I.md\"")

	rec = f.get("/video/short")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), processor.MsgInvalidURL)
}

func TestVideoPost(t *testing.T) {
	pub := &fakePublisher{published: map[string]bool{}}
	f := newFixture(t, pub)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/video/_uQrJ0TkZlc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Documentation published: <a href=\"https://docs.example.com/docs/youtube/_uQrJ0TkZlc.md\"")
	assert.True(t, pub.published["docs/youtube/_uQrJ0TkZlc.md"])

	rec = f.do(httptest.NewRequest(http.MethodPost, "/video/not-an-id", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWatch(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/watch?v=_uQrJ0TkZlc")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="https://www.youtube.com/watch?v=_uQrJ0TkZlc"`)

	rec = f.get("/watch")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/watch"`)

	rec = f.get("/watch?v=bad")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), processor.MsgInvalidURL)

	rec = f.do(formRequest("/watch", "https://www.youtube.com/embed/_uQrJ0TkZlc"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "welcome to the tutorial")
}

func TestRecognizeAPI(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.get("/api/recognize?url=" + url.QueryEscape("https://youtu.be/dQw4w9WgXcQ?t=42"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res youtubeurl.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Valid)
	assert.Equal(t, "dQw4w9WgXcQ", res.VideoID)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", res.CanonicalURL)

	rec = f.get("/api/recognize?url=not+a+url")
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())

	rec = f.get("/api/patterns")
	var patterns []youtubeurl.Pattern
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patterns))
	assert.Len(t, patterns, len(youtubeurl.Patterns()))
}

func TestDocsAPI(t *testing.T) {
	f := newFixture(t, nil)

	body := `{"url":"https://youtu.be/_uQrJ0TkZlc","language":"it","max_transcript_length":5000}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/docs", strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var res processor.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.OK)
	assert.Contains(t, res.Content, "**Title:** Python Tutorial")
	assert.Equal(t, []string{"it"}, f.client.languages)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/docs", strings.NewReader(body)))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Cached, "second request is served from the cache")

	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/docs", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, nil)

	post := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/video/_uQrJ0TkZlc", nil)
		req.RemoteAddr = remoteAddr
		return f.do(req)
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, post("203.0.113.7:4000").Code, "request %d", i+1)
	}
	rec := post("203.0.113.7:4001")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "the budget is per host, not per port")
	assert.JSONEq(t, `{"error":"Rate limit exceeded: 5 per 1 minute"}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, post("203.0.113.8:4000").Code, "other clients keep their budget")

	// Routes do not share a budget.
	req := formRequest("/watch", "https://youtu.be/_uQrJ0TkZlc")
	req.RemoteAddr = "203.0.113.7:4000"
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	f := newFixture(t, nil)

	accepted := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/video/_uQrJ0TkZlc", nil)
		req.RemoteAddr = "198.51.100.1:4242"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.9.9.%d", i))
		if f.do(req).Code == http.StatusOK {
			accepted++
		}
	}
	assert.Equal(t, 5, accepted, "rotating X-Forwarded-For does not buy a new budget")
}

func TestRateLimitTrustProxy(t *testing.T) {
	f := newFixture(t, nil, func(c *Config) { c.TrustProxy = true })

	post := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/video/_uQrJ0TkZlc", nil)
		req.RemoteAddr = "10.0.0.1:8080"
		req.Header.Set("X-Forwarded-For", forwarded+", 10.0.0.1")
		return f.do(req).Code
	}

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, post("203.0.113.7"), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.7"))
	assert.Equal(t, http.StatusOK, post("203.0.113.8"), "each forwarded client has its own budget")
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newRateLimiter(2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(10 * time.Minute)
	l.Allow("b")
	l.mu.Lock()
	_, kept := l.clients["a"]
	l.mu.Unlock()
	assert.False(t, kept, "idle clients are pruned")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "forwarded ignored", remoteAddr: "10.0.0.2:80", forwarded: "198.51.100.4", want: "10.0.0.2"},
		{name: "forwarded first hop", remoteAddr: "10.0.0.2:80", forwarded: " 198.51.100.4 , 10.0.0.1", trustProxy: true, want: "198.51.100.4"},
		{name: "empty forwarded", remoteAddr: "10.0.0.2:80", forwarded: " ", trustProxy: true, want: "10.0.0.2"},
		{name: "no port", remoteAddr: "pipe", want: "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.trustProxy))
		})
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, nil)
	f.get("/")
	f.get("/api/recognize?url=https://youtu.be/dQw4w9WgXcQ")
	f.do(formRequest("/", "https://youtu.be/_uQrJ0TkZlc"))
	f.do(formRequest("/", "https://youtu.be/_uQrJ0TkZlc"))

	rec := f.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `youtubedoc_http_requests_total{code="200",route="GET /{$}"} 1`)
	assert.Contains(t, body, `youtubedoc_url_recognitions_total{pattern="short",valid="true"} 3`)
	assert.Contains(t, body, `youtubedoc_documents_total{outcome="generated"} 1`)
	assert.Contains(t, body, `youtubedoc_documents_total{outcome="cached"} 1`)
	assert.Contains(t, body, "youtubedoc_cache_hits_total 1")
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	transport := &http.Transport{}
	client := &http.Client{Transport: transport, Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	transport.CloseIdleConnections()
	assert.Equal(t, "ok\n", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
