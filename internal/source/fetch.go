package source

import (
	"context"
	"time"

	"github.com/etfnews/newswatch/internal/failure"
	"github.com/gocolly/colly/v2"
)

// Fetcher downloads pages with a browser-like User-Agent. One attempt per
// call, bounded by the request timeout; there is no retry.
type Fetcher struct {
	userAgent string
	timeout   time.Duration
}

// NewFetcher creates a page fetcher.
func NewFetcher(userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{userAgent: userAgent, timeout: timeout}
}

// Fetch returns the page body decoded to UTF-8. Transport failures,
// timeouts and undecodable bodies come back as failure.Fetch errors.
// Error status pages are returned like any other body.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", failure.New(failure.Fetch, pageURL, err)
	}

	c := colly.NewCollector(
		colly.UserAgent(f.userAgent),
	)
	c.SetRequestTimeout(f.timeout)
	c.ParseHTTPErrorResponse = true
	c.DetectCharset = true

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	if err := c.Visit(pageURL); err != nil {
		return "", failure.New(failure.Fetch, pageURL, err)
	}

	return string(body), nil
}
