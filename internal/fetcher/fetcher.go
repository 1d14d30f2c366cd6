// Package fetcher provides a default net/http-backed implementation of
// the Fetcher interface: a cookie jar, TLS config, timeout handling, and
// gzip-aware body reads. It satisfies internal/element.Fetcher directly
// (FetchSync) and additionally offers FetchAsync for callers that want a
// non-blocking fetch bounded by a worker pool rather than one goroutine per
// call.
package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/purc-go/purc/internal/perrors"
	"github.com/purc-go/purc/internal/variant"
)

// defaultMaxConcurrency bounds FetchAsync's worker pool so a runaway HVML
// program issuing many concurrent fetch_async calls can't unbounded-spawn
// goroutines ("the outer interpreter stays single-threaded").
const defaultMaxConcurrency = 16

// HTTPFetcher is the default Fetcher. It is safe for concurrent use: one
// instance is shared by every coroutine of a PurC scheduler.
type HTTPFetcher struct {
	client *http.Client
	sem    *semaphore.Weighted

	mu      sync.RWMutex
	baseURI string
}

// Option configures an HTTPFetcher at construction time.
type Option func(*HTTPFetcher)

// WithTimeout sets the client-wide request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) { f.client.Timeout = d }
}

// WithInsecureSkipVerify disables TLS certificate verification. Off by
// default — PurC is an interpreter core, not a security scanner, so the
// safer default is kept.
func WithInsecureSkipVerify(skip bool) Option {
	return func(f *HTTPFetcher) {
		f.client.Transport.(*http.Transport).TLSClientConfig.InsecureSkipVerify = skip
	}
}

// WithProxy routes every request through proxyURL.
func WithProxy(proxyURL string) Option {
	return func(f *HTTPFetcher) {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return
		}
		f.client.Transport.(*http.Transport).Proxy = http.ProxyURL(parsed)
	}
}

// WithMaxConcurrency overrides the FetchAsync worker-pool bound.
func WithMaxConcurrency(n int64) Option {
	return func(f *HTTPFetcher) { f.sem = semaphore.NewWeighted(n) }
}

// New builds an HTTPFetcher with a cookie jar (so a sequence of fetches
// from one coroutine shares session state) and sane HTTP/TLS defaults.
func New(opts ...Option) *HTTPFetcher {
	jar, _ := cookiejar.New(nil)
	f := &HTTPFetcher{
		client: &http.Client{
			Jar:       jar,
			Timeout:   30 * time.Second,
			Transport: &http.Transport{TLSClientConfig: &tls.Config{}},
		},
		sem: semaphore.NewWeighted(defaultMaxConcurrency),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetBaseURI implements the library API's set_base_uri for relative
// fetch targets.
func (f *HTTPFetcher) SetBaseURI(uri string) {
	f.mu.Lock()
	f.baseURI = uri
	f.mu.Unlock()
}

func (f *HTTPFetcher) resolve(uri string) (string, error) {
	f.mu.RLock()
	base := f.baseURI
	f.mu.RUnlock()
	if base == "" {
		return uri, nil
	}
	baseU, err := url.Parse(base)
	if err != nil {
		return uri, nil
	}
	refU, err := url.Parse(uri)
	if err != nil {
		return "", perrors.Wrap(perrors.InvalidValue, err, "invalid fetch URL %q", uri)
	}
	return baseU.ResolveReference(refU).String(), nil
}

// requestShape is what FetchSync/FetchAsync pull out of the params
// variant: method/headers/timeout/body, all optional ('s
// fetch_sync(url, method, params, timeout) folded into one object since
// internal/element.Fetcher's signature is (uri, params)-only).
type requestShape struct {
	method  string
	headers map[string]string
	timeout time.Duration
	body    []byte
}

func parseParams(params *variant.Variant) requestShape {
	shape := requestShape{method: http.MethodGet}
	if params == nil || params.Kind() != variant.Object {
		return shape
	}
	if v, err := params.ObjectGet("method"); err == nil {
		if s, ok := variant.CastToString(v, true); ok {
			shape.method = strings.ToUpper(s.Str())
			s.Unref()
		}
	}
	if v, err := params.ObjectGet("timeout"); err == nil {
		if n, ok := variant.CastToNumber(v, true); ok {
			shape.timeout = time.Duration(n.Float()) * time.Millisecond
			n.Unref()
		}
	}
	if v, err := params.ObjectGet("headers"); err == nil && v.Kind() == variant.Object {
		shape.headers = make(map[string]string)
		v.ObjectEach(func(key string, val *variant.Variant) bool {
			if s, ok := variant.CastToString(val, true); ok {
				shape.headers[key] = s.Str()
				s.Unref()
			}
			return true
		})
	}
	if v, err := params.ObjectGet("body"); err == nil {
		switch v.Kind() {
		case variant.ByteSeq:
			shape.body = append([]byte(nil), v.Bytes()...)
		default:
			if s, ok := variant.CastToString(v, true); ok {
				shape.body = []byte(s.Str())
				s.Unref()
			}
		}
	}
	return shape
}

// FetchSync implements internal/element.Fetcher ('s
// fetch_sync): a blocking HTTP round trip returning {status, body, mime},
// with body JSON-decoded into a variant tree when the response's content
// type is JSON (the common case for <init from="https://...">).
func (f *HTTPFetcher) FetchSync(uri string, params *variant.Variant) (*variant.Variant, error) {
	shape := parseParams(params)
	ctx := context.Background()
	var cancel context.CancelFunc
	if shape.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, shape.timeout)
		defer cancel()
	}
	status, mime, body, err := f.do(ctx, uri, shape)
	if err != nil {
		return nil, err
	}
	return buildResult(status, mime, body)
}

// FetchAsync implements fetch_async: the round trip runs on a
// pool-bounded goroutine (golang.org/x/sync/semaphore); onComplete is
// invoked from that goroutine once the response (or a terminal error)
// lands, so a caller bridging back onto a single-threaded scheduler must
// hand off onComplete's invocation itself (e.g. via its own PostMessage)
// rather than call into coroutine state directly from here.
func (f *HTTPFetcher) FetchAsync(uri string, params *variant.Variant, onComplete func(requestID string, result *variant.Variant, err error)) (string, error) {
	requestID := uuid.NewString()
	shape := parseParams(params)

	if err := f.sem.Acquire(context.Background(), 1); err != nil {
		return "", perrors.Wrap(perrors.BrokenPipe, err, "fetch_async pool closed")
	}

	go func() {
		defer f.sem.Release(1)
		ctx := context.Background()
		var cancel context.CancelFunc
		if shape.timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, shape.timeout)
			defer cancel()
		}
		status, mime, body, err := f.do(ctx, uri, shape)
		if err != nil {
			onComplete(requestID, nil, err)
			return
		}
		result, err := buildResult(status, mime, body)
		onComplete(requestID, result, err)
	}()

	return requestID, nil
}

func (f *HTTPFetcher) do(ctx context.Context, uri string, shape requestShape) (status int, mime string, body []byte, err error) {
	resolved, err := f.resolve(uri)
	if err != nil {
		return 0, "", nil, err
	}

	var reqBody io.Reader
	if len(shape.body) > 0 {
		reqBody = bytes.NewReader(shape.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, shape.method, resolved, reqBody)
	if err != nil {
		return 0, "", nil, perrors.Wrap(perrors.InvalidValue, err, "invalid fetch request for %q", uri)
	}
	for k, v := range shape.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return 0, "", nil, perrors.Wrap(perrors.BrokenPipe, err, "fetch %q failed", uri)
	}
	defer resp.Body.Close()

	var bodyBytes []byte
	if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
		gr, gerr := gzip.NewReader(resp.Body)
		if gerr == nil {
			defer gr.Close()
			bodyBytes, _ = io.ReadAll(gr)
		}
	} else {
		bodyBytes, _ = io.ReadAll(resp.Body)
	}

	mime = resp.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(bodyBytes)
	}
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = mime[:idx]
	}
	return resp.StatusCode, mime, bodyBytes, nil
}

// buildResult assembles the {status, body, mime} object 
// names. A JSON mime type decodes body into its own variant tree (objects,
// arrays, strings, numbers, booleans, null) rather than leaving the caller
// to re-parse a string; anything else is carried as a plain string.
func buildResult(status int, mime string, raw []byte) (*variant.Variant, error) {
	var bodyV *variant.Variant
	if strings.Contains(mime, "json") {
		v, err := jsonToVariant(raw)
		if err != nil {
			bodyV = variant.MakeString(string(raw))
		} else {
			bodyV = v
		}
	} else {
		bodyV = variant.MakeString(string(raw))
	}
	return variant.MakeObjectByKeys(
		[]string{"status", "body", "mime"},
		[]*variant.Variant{variant.MakeNumber(float64(status)), bodyV, variant.MakeString(mime)},
	)
}

func jsonToVariant(raw []byte) (*variant.Variant, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return variant.MakeUndefined(), nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, perrors.Wrap(perrors.InvalidValue, err, "invalid JSON response body")
	}
	return anyToVariant(decoded)
}

func anyToVariant(v any) (*variant.Variant, error) {
	switch t := v.(type) {
	case nil:
		return variant.MakeNull(), nil
	case bool:
		return variant.MakeBoolean(t), nil
	case float64:
		return variant.MakeNumber(t), nil
	case string:
		return variant.MakeString(t), nil
	case []any:
		items := make([]*variant.Variant, 0, len(t))
		for _, e := range t {
			ev, err := anyToVariant(e)
			if err != nil {
				for _, done := range items {
					done.Unref()
				}
				return nil, err
			}
			items = append(items, ev)
		}
		return variant.MakeArray(items...), nil
	case map[string]any:
		obj := variant.MakeObject()
		for k, e := range t {
			ev, err := anyToVariant(e)
			if err != nil {
				obj.Unref()
				return nil, err
			}
			if err := obj.ObjectSet(k, ev); err != nil {
				obj.Unref()
				return nil, err
			}
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value %T", v)
	}
}
