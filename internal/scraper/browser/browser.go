// Package browser wraps a headless Chrome session behind a small interface so
// scrapers can be driven by fakes in tests.
package browser

import (
	"context"
	"time"
)

const (
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultNavigationTimeout = 30 * time.Second
	DefaultClickSettle       = time.Second
)

// DefaultHeaders are sent with every request to look like a regular browser.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept-Language": "en-US,en;q=0.9",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	}
}

// Options configure a browser session.
type Options struct {
	Headless          bool
	UserAgent         string
	Headers           map[string]string
	NavigationTimeout time.Duration
	// ClickSettle is how long to wait after clicking a tab for content to render
	ClickSettle      time.Duration
	IgnoreCertErrors bool
	// ExecPath overrides the Chrome binary lookup
	ExecPath string
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Headers == nil {
		o.Headers = DefaultHeaders()
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = DefaultNavigationTimeout
	}
	if o.ClickSettle <= 0 {
		o.ClickSettle = DefaultClickSettle
	}
	return o
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context, opts Options) (Session, error)
}

// Session is one live browser tab. It is owned by a single caller and must be closed.
type Session interface {
	// Navigate loads url and waits for the document, bounded by the navigation timeout.
	Navigate(ctx context.Context, url string) error
	// WaitReady waits up to timeout for an element matching selector.
	WaitReady(ctx context.Context, selector string, timeout time.Duration) error
	// ClickIfPresent clicks the first element matching selector. A missing element
	// is reported as false with a nil error.
	ClickIfPresent(ctx context.Context, selector string) (bool, error)
	// HTML returns the current document markup.
	HTML(ctx context.Context) (string, error)
	// URL returns the current location after redirects.
	URL(ctx context.Context) (string, error)
	Close() error
}
