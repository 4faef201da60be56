// Package fetch retrieves the leaderboard page over HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"

	"github.com/nolasundae/hofmirror/internal/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0"

// Error marks a transport failure or a non-2xx response. It is fatal to the
// whole invocation; there is no partial result to salvage.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Client fetches pages with a fixed request budget.
type Client struct {
	http *retryablehttp.Client
}

// Options tunes the client. Zero values get sensible defaults.
type Options struct {
	Timeout  time.Duration // whole-request budget, default 30s
	RetryMax int           // transport-level retries, default 2
	Proxy    string        // optional proxy URL
}

// New builds a fetch client. Transport-level retries only smooth over
// transient socket errors; invocation-level retries belong to whatever
// schedules the sync.
func New(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = opts.RetryMax
	if opts.RetryMax == 0 {
		rc.RetryMax = 2
	}
	rc.HTTPClient.Timeout = timeout

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", opts.Proxy, err)
		}
		rc.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return &Client{http: rc}, nil
}

// Page retrieves the page body as a string. The page <title> is logged at
// debug level as a cheap canary for upstream redesigns.
func (c *Client) Page(ctx context.Context, pageURL string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &Error{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Cache-Control", "no-transform")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{URL: pageURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{URL: pageURL, StatusCode: resp.StatusCode}
	}

	if title, ok := pageTitle(string(body)); ok {
		utils.Log.Debugf("fetched %s (%q, %d bytes)", pageURL, title, len(body))
	}
	return string(body), nil
}

func pageTitle(body string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	return findTitle(doc)
}

func findTitle(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.Data == "title" {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data), true
		}
		return "", true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title, ok := findTitle(c); ok {
			return title, ok
		}
	}
	return "", false
}
