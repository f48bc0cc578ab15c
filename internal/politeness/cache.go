package politeness

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// DefaultTTL bounds how long a parsed rule set is served before the
	// policy document is re-fetched.
	DefaultTTL = time.Hour

	maxRobotsBytes = 2 << 20
)

// target is the cached crawl policy for one host.
type target struct {
	rules     *RuleSet
	fetchedAt time.Time
}

// Cache lazily fetches and caches per-host crawl policies. Entries expire
// after the configured TTL so a changed policy is eventually honored.
type Cache struct {
	mu        sync.Mutex
	targets   map[string]*target
	client    *http.Client
	userAgent string
	ttl       time.Duration
	now       func() time.Time
}

// NewCache creates a Cache fetching policies with the given client and
// agent string. A nil client falls back to a default with a sane timeout.
func NewCache(client *http.Client, userAgent string, ttl time.Duration) *Cache {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		targets:   make(map[string]*target),
		client:    client,
		userAgent: userAgent,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Rules returns the rule set for the URL's host, fetching and parsing the
// policy document on first use or after expiry. An unreachable document
// yields an unrestricted rule set (absence of policy, fail-open); a policy
// that was fetched but contains uncompilable rules is an error.
func (c *Cache) Rules(ctx context.Context, u *url.URL) (*RuleSet, error) {
	host := u.Hostname()

	c.mu.Lock()
	entry, ok := c.targets[host]
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		rules := entry.rules
		c.mu.Unlock()
		return rules, nil
	}
	c.mu.Unlock()

	rules, err := c.fetch(ctx, u)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.targets[host] = &target{rules: rules, fetchedAt: c.now()}
	c.mu.Unlock()

	return rules, nil
}

func (c *Cache) fetch(ctx context.Context, u *url.URL) (*RuleSet, error) {
	robotsURL := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("robots fetch failed for %s, treating as unrestricted: %v", u.Hostname(), err)
		return unrestricted(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("robots fetch for %s returned %d, treating as unrestricted", u.Hostname(), resp.StatusCode)
		return unrestricted(), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		log.Printf("robots read failed for %s, treating as unrestricted: %v", u.Hostname(), err)
		return unrestricted(), nil
	}

	return ParseRules(string(body))
}

func unrestricted() *RuleSet {
	return &RuleSet{groups: make(map[string]*group)}
}
