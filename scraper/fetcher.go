// Package scraper downloads source pages, either with a plain HTTP GET or
// through a headless Chrome instance.
package scraper

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"banks-etl/config"
	"banks-etl/models"
	"banks-etl/utils"
)

// Fetcher returns the UTF-8 HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// New returns the Fetcher selected by fetch.mode.
func New(cfg config.FetchConfig, logger *utils.Logger) (Fetcher, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	switch cfg.Mode {
	case "", "http":
		return NewHTTPFetcher(cfg.UserAgent, timeout), nil
	case "browser":
		return NewBrowserFetcher(cfg.ChromeBin, cfg.UserAgent, timeout, logger), nil
	}
	return nil, eris.Errorf("scraper: unknown fetch mode %q", cfg.Mode)
}

// HTTPFetcher performs a single GET per call. There are no retries.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates an HTTPFetcher. A zero timeout means none.
func NewHTTPFetcher(userAgent string, timeout time.Duration) *HTTPFetcher {
	if userAgent == "" {
		userAgent = "banks-etl/1.0"
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads url and decodes the body to UTF-8 using the charset
// declared in the Content-Type header.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, models.Classify(models.ErrNetwork, eris.Wrapf(err, "fetch: build request for %s", url))
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, models.Classify(models.ErrNetwork, eris.Wrapf(err, "fetch: GET %s", url))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.Classify(models.ErrNetwork, eris.Errorf("fetch: GET %s: unexpected status %d", url, resp.StatusCode))
	}

	body, err := decodeBody(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, models.Classify(models.ErrNetwork, eris.Wrapf(err, "fetch: read %s", url))
	}
	return body, nil
}

func decodeBody(r io.Reader, contentType string) ([]byte, error) {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := strings.ToLower(params["charset"]); cs != "" && cs != "utf-8" && cs != "utf8" {
			enc, err := htmlindex.Get(cs)
			if err != nil {
				return nil, eris.Wrapf(err, "unsupported charset %q", cs)
			}
			r = enc.NewDecoder().Reader(r)
		}
	}
	return io.ReadAll(r)
}

// BrowserFetcher renders the page in headless Chrome and returns the
// resulting document. Useful when the page is served through a script
// wall that a plain GET cannot pass.
type BrowserFetcher struct {
	chromeBin string
	userAgent string
	timeout   time.Duration
	logger    *utils.Logger
}

// NewBrowserFetcher creates a BrowserFetcher. An empty chromeBin means the
// binary is looked up on the PATH and in the usual install locations.
func NewBrowserFetcher(chromeBin, userAgent string, timeout time.Duration, logger *utils.Logger) *BrowserFetcher {
	return &BrowserFetcher{chromeBin: chromeBin, userAgent: userAgent, timeout: timeout, logger: logger}
}

// Fetch navigates to url and returns document.documentElement.outerHTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	chromeBin := f.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	f.logger.Info("[fetch] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if f.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.userAgent))
	}
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	if f.timeout > 0 {
		var cancelTimeout context.CancelFunc
		browserCtx, cancelTimeout = context.WithTimeout(browserCtx, f.timeout)
		defer cancelTimeout()
	}

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, models.Classify(models.ErrNetwork, eris.Wrapf(err, "fetch: render %s", url))
	}
	return []byte(html), nil
}

func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
