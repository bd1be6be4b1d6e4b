// Package fetch retrieves remote documents for cloning. A clone fetch is a
// plain GET with no JavaScript execution and no conditional headers, since
// the caller always wants the full live markup.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/miroir/horosafe"
)

// Config configures the fetcher.
type Config struct {
	Timeout  time.Duration // HTTP timeout. Default: 30s.
	MaxBytes int64         // Max response body size. Default: 10MB.
	// UserAgent sent with requests. The default is a realistic browser
	// identity: many sites reject obvious bot agents outright.
	UserAgent string
	// URLValidator validates URLs before fetch (SSRF prevention).
	// Default: horosafe.ValidateURL.
	URLValidator func(string) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024 // 10MB
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if c.URLValidator == nil {
		c.URLValidator = horosafe.ValidateURL
	}
}

// Fetcher performs HTTP document retrieval.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher with SSRF protection on redirects.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch retrieves a URL and returns its body as markup text.
// Network errors, timeouts, and non-2xx statuses all fail.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.config.URLValidator(url); err != nil {
		return "", fmt.Errorf("URL blocked: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("http %d", resp.StatusCode)
	}

	body, err := horosafe.LimitedReadAll(resp.Body, f.config.MaxBytes)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
