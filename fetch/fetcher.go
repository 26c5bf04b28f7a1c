// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/sanket/core"
	"golang.org/x/time/rate"
)

const (
	DefaultKeyword   = "sanket"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1.0
	DefaultMaxBytes  = 64 << 20
	DefaultUserAgent = "sanket-fetcher/1.0"
)

// Config configures a Fetcher. Exactly one of ListingURL or DocumentURL is
// normally set; DocumentURL wins when both are.
type Config struct {
	ListingURL  string
	DocumentURL string
	// Keyword must appear in a link for it to be considered a bulletin.
	Keyword   string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	MaxBytes  int64
	UserAgent string
}

func (c *Config) applyDefaults() {
	if c.Keyword == "" {
		c.Keyword = DefaultKeyword
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
}

// Fetcher checks the publisher for new document versions.
type Fetcher struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		f.logger = logger
		return nil
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) error {
		f.client = client
		return nil
	}
}

// New creates a Fetcher.
func New(config Config, opts ...Option) (*Fetcher, error) {
	if config.ListingURL == "" && config.DocumentURL == "" {
		return nil, ErrSourceRequired
	}
	config.applyDefaults()

	f := &Fetcher{
		config:  config,
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	f.logger = f.logger.With("component", "fetcher")
	return f, nil
}

// CheckForUpdate returns the latest document when it differs from the one
// recorded in last, or nil when it is unchanged. last may be nil.
func (f *Fetcher) CheckForUpdate(ctx context.Context, last *core.PipelineState) (*core.SourceDocument, error) {
	docURL, err := f.LatestURL(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := f.download(ctx, docURL, last)
	if err != nil || doc == nil {
		return nil, err
	}

	if last != nil && last.Fingerprint == doc.Fingerprint {
		f.logger.Debug("document unchanged", "url", docURL, "version", doc.Version())
		return nil, nil
	}
	f.logger.Info("new document version", "url", docURL, "version", doc.Version(), "bytes", len(doc.Body))
	return doc, nil
}

// LatestURL resolves the URL of the newest document.
func (f *Fetcher) LatestURL(ctx context.Context) (string, error) {
	if f.config.DocumentURL != "" {
		return f.config.DocumentURL, nil
	}

	body, _, err := f.get(ctx, f.config.ListingURL, nil)
	if err != nil {
		return "", err
	}
	defer body.Close()

	links, err := ExtractLinks(body, f.config.ListingURL, f.config.Keyword)
	if err != nil {
		return "", &core.FetchError{URL: f.config.ListingURL, Err: err}
	}
	if len(links) == 0 {
		return "", &core.FetchError{URL: f.config.ListingURL, Err: ErrNoDocument}
	}
	// The publisher lists bulletins oldest first.
	return links[len(links)-1], nil
}

// ExtractLinks returns absolute URLs of PDF links containing keyword,
// in page order.
func ExtractLinks(r io.Reader, baseURL, keyword string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	page, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	keyword = strings.ToLower(keyword)
	seen := make(map[string]bool)
	var links []string
	page.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		lower := strings.ToLower(href)
		if !strings.HasSuffix(lower, ".pdf") || !strings.Contains(lower, keyword) {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links, nil
}

func (f *Fetcher) download(ctx context.Context, docURL string, last *core.PipelineState) (*core.SourceDocument, error) {
	headers := make(http.Header)
	if last != nil && last.SourceURL == docURL {
		if last.ETag != "" {
			headers.Set("If-None-Match", last.ETag)
		}
		if last.LastModified != "" {
			headers.Set("If-Modified-Since", last.LastModified)
		}
	}

	body, resp, err := f.get(ctx, docURL, headers)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotModified {
		f.logger.Debug("document not modified", "url", docURL)
		return nil, nil
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, f.config.MaxBytes+1))
	if err != nil {
		return nil, &core.FetchError{URL: docURL, Err: err}
	}
	if int64(len(data)) > f.config.MaxBytes {
		return nil, &core.FetchError{URL: docURL, Err: ErrDocumentTooLarge}
	}

	return &core.SourceDocument{
		URL:          docURL,
		Name:         documentName(docURL),
		Fingerprint:  core.Fingerprint(data),
		ContentType:  resp.Header.Get("Content-Type"),
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		FetchedAt:    time.Now().UTC(),
		Body:         data,
	}, nil
}

// get issues a rate-limited GET bounded by the configured timeout. The
// returned body must be closed unless the status is 304.
func (f *Fetcher) get(ctx context.Context, target string, headers http.Header) (io.ReadCloser, *http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, nil, &core.FetchError{URL: target, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, nil, &core.FetchError{URL: target, Err: err}
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, &core.FetchError{URL: target, Err: err}
	}
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		cancel()
		return nil, resp, nil
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, nil, &core.FetchError{URL: target, Err: fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)}
	}
	return &cancelBody{ReadCloser: resp.Body, cancel: cancel}, resp, nil
}

// cancelBody releases the request context when the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func documentName(docURL string) string {
	u, err := url.Parse(docURL)
	if err != nil {
		return docURL
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return u.Host
	}
	return name
}
