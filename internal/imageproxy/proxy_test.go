package imageproxy

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustPatterns(t *testing.T, ss ...string) []RemotePattern {
	t.Helper()
	ps, err := ParsePatterns(ss)
	require.NoError(t, err)
	return ps
}

func newTestProxy(t *testing.T, opts Options) *Proxy {
	t.Helper()
	cache, err := OpenCache("", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	if opts.Patterns == nil {
		opts.Patterns = mustPatterns(t, "http://**")
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = time.Hour
	}
	return New(opts, cache, testLogger())
}

func get(p *Proxy, src string, extra string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	target := Path + "?url=" + url.QueryEscape(src) + extra
	p.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRemotePattern_Match(t *testing.T) {
	tests := []struct {
		pattern string
		url     string
		want    bool
	}{
		{"https://**", "https://images.example.com/a.png", true},
		{"https://**", "http://images.example.com/a.png", false},
		{"https://*.example.com/assets/**", "https://cdn.example.com/assets/x/y.png", true},
		{"https://*.example.com/assets/**", "https://example.com/assets/y.png", false},
		{"https://*.example.com/assets/**", "https://a.b.example.com/assets/y.png", false},
		{"https://**.example.com", "https://a.b.example.com/any", true},
		{"https://cdn.example.com/*.png", "https://cdn.example.com/a.png", false},
		{"https://cdn.example.com/*", "https://cdn.example.com/a.png", true},
		{"https://cdn.example.com/*", "https://cdn.example.com/a/b.png", false},
	}
	for _, tt := range tests {
		rp, err := ParsePattern(tt.pattern)
		require.NoError(t, err)
		u, err := url.Parse(tt.url)
		require.NoError(t, err)
		assert.Equal(t, tt.want, rp.Match(u), "%s vs %s", tt.pattern, tt.url)
	}

	_, err := ParsePattern("example.com")
	assert.Error(t, err)
}

func TestProxy_ServesAndCaches(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer upstream.Close()

	p := newTestProxy(t, Options{})
	src := upstream.URL + "/cover.png"

	first := get(p, src, "&w=640&q=80")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "image/png", first.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Equal(t, "public, max-age=3600", first.Header().Get("Cache-Control"))
	assert.Equal(t, pngBytes, first.Body.Bytes())

	second := get(p, src, "&w=640&q=80")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, int32(1), hits.Load())

	// A different width is a different cache entry.
	third := get(p, src, "&w=320&q=80")
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, int32(2), hits.Load())
}

func TestProxy_CollapsesConcurrentMisses(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer upstream.Close()

	p := newTestProxy(t, Options{})
	src := upstream.URL + "/slow.png"

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = get(p, src, "").Code
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestProxy_LimitsFetchesPerHost(t *testing.T) {
	var inflight, peak atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer upstream.Close()

	p := newTestProxy(t, Options{MaxPerHost: 1})
	var wg sync.WaitGroup
	codes := make([]int, 4)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = get(p, upstream.URL+"/img-"+strconv.Itoa(i)+".png", "&w=64").Code
		}()
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, int32(1), peak.Load())
}

func TestProxy_SVGPolicy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
		io.WriteString(w, `<svg xmlns="http://www.w3.org/2000/svg"/>`)
	}))
	defer upstream.Close()

	denied := get(newTestProxy(t, Options{AllowSVG: false}), upstream.URL+"/i.svg", "")
	assert.Equal(t, http.StatusBadRequest, denied.Code)

	allowed := get(newTestProxy(t, Options{AllowSVG: true}), upstream.URL+"/i.svg", "")
	require.Equal(t, http.StatusOK, allowed.Code)
	assert.Equal(t, "image/svg+xml", allowed.Header().Get("Content-Type"))
	assert.Equal(t, "script-src 'none'; sandbox;", allowed.Header().Get("Content-Security-Policy"))
}

func TestProxy_Rejects(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			io.WriteString(w, "<html></html>")
		case "/big.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(make([]byte, 2048))
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	p := newTestProxy(t, Options{MaxBytes: 1024})

	tests := []struct {
		name string
		src  string
		q    string
		want int
	}{
		{"missing url", "", "", http.StatusBadRequest},
		{"relative url", "/local.png", "", http.StatusBadRequest},
		{"not an image", upstream.URL + "/page", "", http.StatusBadRequest},
		{"too large", upstream.URL + "/big.png", "", http.StatusRequestEntityTooLarge},
		{"upstream 404", upstream.URL + "/nope.png", "", http.StatusBadGateway},
		{"bad width", upstream.URL + "/big.png", "&w=0", http.StatusBadRequest},
		{"bad quality", upstream.URL + "/big.png", "&q=101", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, get(p, tt.src, tt.q).Code)
		})
	}
}

func TestProxy_PatternNotAllowed(t *testing.T) {
	p := newTestProxy(t, Options{Patterns: mustPatterns(t, "https://cdn.example.com/**")})
	rec := get(p, "https://evil.example.net/x.png", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "not allowed"))
}

func TestURL(t *testing.T) {
	assert.Equal(t, "/_image?q=75&url=https%3A%2F%2Fcdn.example.com%2Fa.png&w=1200",
		URL("https://cdn.example.com/a.png", 1200, 75))
	assert.Equal(t, "/_image?url=https%3A%2F%2Fcdn.example.com%2Fa.png",
		URL("https://cdn.example.com/a.png", 0, 0))
	assert.Equal(t, "/local.png", URL("/local.png", 640, 75))
}
