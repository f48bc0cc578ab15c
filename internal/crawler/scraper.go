// Package crawler implements the crawl executor: a single-URL fetcher that
// consults the politeness engine and rate limiter before touching the
// network, and records every attempt in a compliance audit log.
package crawler

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/lexfield/regscout/internal/domain"
	"github.com/lexfield/regscout/internal/politeness"
	"github.com/lexfield/regscout/internal/ratelimit"
)

const maxBodyBytes = 10 << 20

var (
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	descRe  = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]*content=["']([^"']*)["']`)
	// Some pages put content before name.
	descRevRe = regexp.MustCompile(`(?is)<meta[^>]+content=["']([^"']*)["'][^>]*name=["']description["']`)
)

// Scraper fetches single URLs subject to crawl policy and rate budget.
type Scraper struct {
	client    *http.Client
	rules     *politeness.Cache
	limiter   *ratelimit.Limiter
	audit     *AuditLog
	userAgent string
	now       func() time.Time
}

// Config holds Scraper settings.
type Config struct {
	UserAgent    string
	FetchTimeout time.Duration
}

// New creates a Scraper. A nil client gets a default with the configured
// fetch timeout.
func New(client *http.Client, rules *politeness.Cache, limiter *ratelimit.Limiter, cfg Config) *Scraper {
	if client == nil {
		timeout := cfg.FetchTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Scraper{
		client:    client,
		rules:     rules,
		limiter:   limiter,
		audit:     NewAuditLog(),
		userAgent: cfg.UserAgent,
		now:       time.Now,
	}
}

// Audit returns the scraper's compliance audit log.
func (s *Scraper) Audit() *AuditLog {
	return s.audit
}

// Scrape fetches one URL. It fails with *domain.RobotsDisallowedError when
// the crawl policy denies the path and *domain.FetchError on non-success
// responses. Every attempt is recorded in the audit log.
func (s *Scraper) Scrape(ctx context.Context, rawURL string) (*domain.ScrapeResult, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	rules, err := s.rules.Rules(ctx, u)
	if err != nil {
		s.audit.Append(AuditEntry{
			URL:       rawURL,
			Timestamp: s.now().UTC(),
			Allowed:   false,
			Reason:    fmt.Sprintf("crawl policy unavailable: %v", err),
		})
		return nil, fmt.Errorf("crawl policy for %s: %w", u.Hostname(), err)
	}

	decision := rules.IsAllowed(u.Path, agentToken(s.userAgent))
	if !decision.Allowed {
		log.Printf("robots disallowed %s (matched %q)", rawURL, decision.Pattern)
		s.audit.Append(AuditEntry{
			URL:       rawURL,
			Timestamp: s.now().UTC(),
			Allowed:   false,
			Reason:    fmt.Sprintf("disallowed by pattern %q", decision.Pattern),
		})
		return nil, &domain.RobotsDisallowedError{URL: rawURL, Pattern: decision.Pattern}
	}

	if err := s.limiter.WaitForSlot(ctx, u.Hostname()); err != nil {
		s.audit.Append(AuditEntry{
			URL:       rawURL,
			Timestamp: s.now().UTC(),
			Allowed:   true,
			Reason:    fmt.Sprintf("rate limit wait aborted: %v", err),
		})
		return nil, err
	}

	result, fetchErr := s.fetch(ctx, rawURL)

	entry := AuditEntry{
		URL:       rawURL,
		Timestamp: s.now().UTC(),
		Allowed:   true,
	}
	if result != nil {
		entry.StatusCode = result.StatusCode
	}
	if fetchErr != nil {
		entry.Reason = fetchErr.Error()
		if fe, ok := fetchErr.(*domain.FetchError); ok {
			entry.StatusCode = fe.StatusCode
		}
	}
	s.audit.Append(entry)

	if fetchErr != nil {
		return nil, fetchErr
	}
	return result, nil
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) (*domain.ScrapeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	content := string(body)
	return &domain.ScrapeResult{
		URL:         rawURL,
		Content:     content,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		Title:       extractTitle(content),
		Description: extractDescription(content),
		ScrapedAt:   s.now().UTC(),
	}, nil
}

// extractTitle pulls the document title via best-effort regex; no parse
// tree is built.
func extractTitle(markup string) string {
	if m := titleRe.FindStringSubmatch(markup); m != nil {
		return collapse(m[1])
	}
	return ""
}

func extractDescription(markup string) string {
	if m := descRe.FindStringSubmatch(markup); m != nil {
		return collapse(m[1])
	}
	if m := descRevRe.FindStringSubmatch(markup); m != nil {
		return collapse(m[1])
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// agentToken reduces a full agent string to the product name robots.txt
// groups are keyed by ("RegScoutBot/1.0 (+...)" matches "RegScoutBot").
func agentToken(userAgent string) string {
	token := userAgent
	if i := strings.IndexAny(token, "/ "); i >= 0 {
		token = token[:i]
	}
	return token
}
