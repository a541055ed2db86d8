// Package platform validates and normalizes inbound post URLs against the
// set of supported social platforms.
package platform

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mrb-labs/videograb/internal/domain"
)

// Platform identifies a supported source site.
type Platform string

const (
	PlatformTwitter Platform = "twitter"
	PlatformTikTok  Platform = "tiktok"
)

// Classified is a validated, possibly short-link-expanded post URL.
type Classified struct {
	Platform Platform
	URL      string
}

var patterns = []struct {
	re       *regexp.Regexp
	platform Platform
}{
	{regexp.MustCompile(`(?i)^https?://(www\.|mobile\.)?(twitter\.com|x\.com)/`), PlatformTwitter},
	{regexp.MustCompile(`(?i)^https?://t\.co/`), PlatformTwitter},
	{regexp.MustCompile(`(?i)^https?://(www\.|m\.)?tiktok\.com/`), PlatformTikTok},
	{regexp.MustCompile(`(?i)^https?://(vm|vt)\.tiktok\.com/`), PlatformTikTok},
}

// shortLinkHosts are redirector hosts whose links are expanded to the
// canonical post URL before resolution.
var shortLinkHosts = map[string]bool{
	"t.co":          true,
	"vm.tiktok.com": true,
	"vt.tiktok.com": true,
}

// Classifier validates URLs and expands shortened links.
type Classifier struct {
	client *http.Client
	logger *slog.Logger
}

// NewClassifier creates a classifier. The timeout bounds short-link
// expansion requests only.
func NewClassifier(timeout time.Duration, logger *slog.Logger) *Classifier {
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	return &Classifier{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Classify matches rawURL against the supported-platform patterns and
// expands short links. It returns domain.ErrUnsupportedURL when nothing
// matches; short-link expansion failures fall back to the original URL and
// never fail the request.
func (c *Classifier) Classify(ctx context.Context, rawURL string) (Classified, error) {
	rawURL = strings.TrimSpace(rawURL)

	for _, p := range patterns {
		if !p.re.MatchString(rawURL) {
			continue
		}
		out := Classified{Platform: p.platform, URL: rawURL}
		if isShortLink(rawURL) {
			out.URL = c.expand(ctx, rawURL)
		}
		return out, nil
	}

	return Classified{}, domain.ErrUnsupportedURL
}

func isShortLink(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return shortLinkHosts[strings.ToLower(u.Hostname())]
}

// expand follows redirects to the canonical URL. Any failure returns the
// original URL unchanged; the resolver gets to make its own attempt.
func (c *Classifier) expand(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("short link expansion failed", "url", rawURL, "error", err)
		return rawURL
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if final == "" {
		return rawURL
	}
	return final
}
