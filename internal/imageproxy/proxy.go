package imageproxy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Path is where the proxy is mounted.
const Path = "/_image"

const (
	defaultQuality = 75
	maxWidth       = 4096
	fetchTimeout   = 15 * time.Second

	// svgCSP keeps scripts in proxied SVGs from running.
	svgCSP = "script-src 'none'; sandbox;"
)

var errBadPattern = errors.New("pattern must look like scheme://host[/path]")

// Options configures a Proxy.
type Options struct {
	AllowSVG bool
	Patterns []RemotePattern
	MaxBytes int64
	CacheTTL time.Duration
	Client   *http.Client
	// MaxPerHost bounds concurrent upstream fetches to one host.
	MaxPerHost int
}

// Proxy fetches allowed remote images and serves them from a local cache.
type Proxy struct {
	opts  Options
	cache *Cache
	group singleflight.Group
	log   *slog.Logger

	mu    sync.Mutex
	hosts map[string]*semaphore.Weighted
}

// New creates a proxy. cache may be nil to disable caching.
func New(opts Options, cache *Cache, log *slog.Logger) *Proxy {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: fetchTimeout}
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 10 << 20
	}
	if opts.MaxPerHost <= 0 {
		opts.MaxPerHost = 4
	}
	return &Proxy{
		opts:  opts,
		cache: cache,
		log:   log.With("component", "imageproxy"),
		hosts: make(map[string]*semaphore.Weighted),
	}
}

// hostSemaphore returns the fetch limiter for host, creating it on first use.
func (p *Proxy) hostSemaphore(host string) *semaphore.Weighted {
	p.mu.Lock()
	defer p.mu.Unlock()
	sem, ok := p.hosts[host]
	if !ok {
		sem = semaphore.NewWeighted(int64(p.opts.MaxPerHost))
		p.hosts[host] = sem
	}
	return sem
}

// URL returns the proxied address for src at width w and quality q.
// Relative sources are returned unchanged.
func URL(src string, w, q int) string {
	u, err := url.Parse(src)
	if err != nil || !u.IsAbs() {
		return src
	}
	v := url.Values{}
	v.Set("url", src)
	if w > 0 {
		v.Set("w", strconv.Itoa(w))
	}
	if q > 0 {
		v.Set("q", strconv.Itoa(q))
	}
	return Path + "?" + v.Encode()
}

// statusError carries the HTTP status to answer with.
type statusError struct {
	code int
	msg  string
}

func (e *statusError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &statusError{code: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

type request struct {
	src *url.URL
	w   int
	q   int
}

func (p *Proxy) parse(r *http.Request) (*request, error) {
	q := r.URL.Query()
	raw := q.Get("url")
	if raw == "" {
		return nil, badRequest(`"url" parameter is required`)
	}
	src, err := url.Parse(raw)
	if err != nil || !src.IsAbs() || src.Host == "" {
		return nil, badRequest(`"url" parameter must be an absolute URL`)
	}
	if !p.allowed(src) {
		return nil, badRequest(`"url" parameter is not allowed`)
	}

	req := &request{src: src, q: defaultQuality}
	if s := q.Get("w"); s != "" {
		if req.w, err = strconv.Atoi(s); err != nil || req.w <= 0 || req.w > maxWidth {
			return nil, badRequest(`"w" parameter must be between 1 and %d`, maxWidth)
		}
	}
	if s := q.Get("q"); s != "" {
		if req.q, err = strconv.Atoi(s); err != nil || req.q < 1 || req.q > 100 {
			return nil, badRequest(`"q" parameter must be between 1 and 100`)
		}
	}
	return req, nil
}

func (p *Proxy) allowed(u *url.URL) bool {
	for _, rp := range p.opts.Patterns {
		if rp.Match(u) {
			return true
		}
	}
	return false
}

// cacheKey derives the badger key for a request.
func cacheKey(req *request) string {
	sum := sha256.Sum256([]byte(req.src.String() + "|" + strconv.Itoa(req.w) + "|" + strconv.Itoa(req.q)))
	return "img:" + hex.EncodeToString(sum[:])
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := p.parse(r)
	if err != nil {
		p.fail(w, err)
		return
	}
	key := cacheKey(req)

	if p.cache != nil {
		hit, ok, err := p.cache.get(key)
		if err != nil {
			p.log.Warn("image cache read failed", "key", key, "error", err)
		}
		if ok {
			p.write(w, hit, "HIT")
			return
		}
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		// Shared by every waiter; must outlive the first caller's request.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), fetchTimeout)
		defer cancel()
		img, err := p.fetch(ctx, req.src)
		if err != nil {
			return nil, err
		}
		if p.cache != nil {
			if err := p.cache.set(key, img, p.opts.CacheTTL); err != nil {
				p.log.Warn("image cache write failed", "key", key, "error", err)
			}
		}
		return img, nil
	})
	if err != nil {
		p.fail(w, err)
		return
	}
	p.write(w, v.(*cached), "MISS")
}

func (p *Proxy) fetch(ctx context.Context, src *url.URL) (*cached, error) {
	sem := p.hostSemaphore(src.Host)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, &statusError{code: http.StatusServiceUnavailable, msg: "image host busy"}
	}
	defer sem.Release(1)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, src.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	httpReq.Header.Set("Accept", "image/*")

	resp, err := p.opts.Client.Do(httpReq)
	if err != nil {
		return nil, &statusError{code: http.StatusBadGateway, msg: "upstream image fetch failed"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: http.StatusBadGateway, msg: fmt.Sprintf("upstream image returned %d", resp.StatusCode)}
	}

	ct, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(ct, "image/") {
		return nil, badRequest("upstream response is not an image")
	}
	if ct == "image/svg+xml" && !p.opts.AllowSVG {
		return nil, badRequest("svg images are not allowed")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.opts.MaxBytes+1))
	if err != nil {
		return nil, &statusError{code: http.StatusBadGateway, msg: "reading upstream image failed"}
	}
	if int64(len(body)) > p.opts.MaxBytes {
		return nil, &statusError{code: http.StatusRequestEntityTooLarge, msg: "upstream image too large"}
	}

	p.log.Debug("fetched image", "url", src.String(), "content_type", ct, "bytes", len(body))
	return &cached{ContentType: ct, Body: body}, nil
}

func (p *Proxy) write(w http.ResponseWriter, img *cached, cacheStatus string) {
	h := w.Header()
	h.Set("Content-Type", img.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(img.Body)))
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Cache", cacheStatus)
	maxAge := int(p.opts.CacheTTL.Seconds())
	if maxAge < 60 {
		maxAge = 60
	}
	h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	if img.ContentType == "image/svg+xml" {
		h.Set("Content-Security-Policy", svgCSP)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(img.Body)
}

func (p *Proxy) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := "internal error"
	var se *statusError
	if errors.As(err, &se) {
		code, msg = se.code, se.msg
	} else {
		p.log.Error("image proxy failed", "error", err)
	}
	http.Error(w, msg, code)
}
