// Package politeness parses robots.txt crawl policies and answers
// allow/deny and crawl-delay questions for a given agent.
package politeness

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// rule is one compiled allow or disallow pattern, kept in listed order.
type rule struct {
	pattern string
	re      *regexp.Regexp
}

// group holds the rules for one user-agent name.
type group struct {
	allows     []rule
	disallows  []rule
	crawlDelay time.Duration
	hasDelay   bool
}

// RuleSet is the parsed rule table for one robots.txt document,
// keyed by lower-cased agent name.
type RuleSet struct {
	groups   map[string]*group
	sitemaps []string
}

// Decision is the outcome of an IsAllowed check.
type Decision struct {
	Allowed bool
	// Pattern is the matched pattern when a rule decided the outcome;
	// empty when access was allowed by default.
	Pattern string
}

// ParseRules builds a RuleSet from raw robots.txt text. Pattern compilation
// failures are returned as errors rather than silently treated as "allow";
// an unreachable document is the caller's fail-open case, a broken rule in a
// fetched document is not.
func ParseRules(text string) (*RuleSet, error) {
	rs := &RuleSet{groups: make(map[string]*group)}

	var current []*group
	sawRule := false

	for _, raw := range strings.Split(text, "\n") {
		line := raw
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		field = strings.ToLower(strings.TrimSpace(field))
		value = strings.TrimSpace(value)

		switch field {
		case "user-agent":
			agent := strings.ToLower(value)
			if agent == "" {
				continue
			}
			g, exists := rs.groups[agent]
			if !exists {
				g = &group{}
				rs.groups[agent] = g
			}
			// Consecutive user-agent lines share the rules that follow.
			if sawRule {
				current = []*group{g}
			} else {
				current = append(current, g)
			}
			sawRule = false
		case "allow", "disallow":
			if len(current) == 0 {
				continue
			}
			sawRule = true
			if value == "" {
				// An empty disallow means "allow everything"; an empty
				// allow carries no information. Neither adds a rule.
				continue
			}
			re, err := compilePattern(value)
			if err != nil {
				return nil, fmt.Errorf("invalid %s pattern %q: %w", field, value, err)
			}
			r := rule{pattern: value, re: re}
			for _, g := range current {
				if field == "allow" {
					g.allows = append(g.allows, r)
				} else {
					g.disallows = append(g.disallows, r)
				}
			}
		case "crawl-delay":
			if len(current) == 0 {
				continue
			}
			sawRule = true
			secs, err := strconv.ParseFloat(value, 64)
			if err != nil || secs < 0 {
				continue
			}
			d := time.Duration(secs * float64(time.Second))
			for _, g := range current {
				g.crawlDelay = d
				g.hasDelay = true
			}
		case "sitemap":
			if value != "" {
				rs.sitemaps = append(rs.sitemaps, value)
			}
		}
	}

	return rs, nil
}

// compilePattern converts a robots path pattern into an anchored prefix
// regexp: "*" matches any sequence, a trailing "$" anchors end-of-string,
// and every other metacharacter is escaped.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	anchored := strings.HasSuffix(pattern, "$")
	if anchored {
		pattern = strings.TrimSuffix(pattern, "$")
	}

	var b strings.Builder
	b.WriteString("^")
	for _, part := range strings.Split(pattern, "*") {
		if b.Len() > 1 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	if anchored {
		b.WriteString("$")
	}

	return regexp.Compile(b.String())
}

// selectGroup picks the rule group for an agent: exact name, else the
// wildcard group, else nil (no restrictions).
func (rs *RuleSet) selectGroup(agent string) *group {
	if g, ok := rs.groups[strings.ToLower(agent)]; ok {
		return g
	}
	if g, ok := rs.groups["*"]; ok {
		return g
	}
	return nil
}

// IsAllowed reports whether the agent may fetch the given URL path.
// Allow patterns are checked first in listed order and take precedence over
// disallow regardless of specificity (first-match-wins, not longest-match).
func (rs *RuleSet) IsAllowed(path, agent string) Decision {
	if rs == nil {
		return Decision{Allowed: true}
	}
	g := rs.selectGroup(agent)
	if g == nil {
		return Decision{Allowed: true}
	}
	if path == "" {
		path = "/"
	}

	for _, r := range g.allows {
		if r.re.MatchString(path) {
			return Decision{Allowed: true, Pattern: r.pattern}
		}
	}
	for _, r := range g.disallows {
		if r.re.MatchString(path) {
			return Decision{Allowed: false, Pattern: r.pattern}
		}
	}
	return Decision{Allowed: true}
}

// CrawlDelay returns the crawl-delay declared for the agent, if any.
func (rs *RuleSet) CrawlDelay(agent string) (time.Duration, bool) {
	if rs == nil {
		return 0, false
	}
	g := rs.selectGroup(agent)
	if g == nil || !g.hasDelay {
		return 0, false
	}
	return g.crawlDelay, true
}

// Sitemaps returns the sitemap URLs declared in the document.
func (rs *RuleSet) Sitemaps() []string {
	if rs == nil {
		return nil
	}
	return rs.sitemaps
}
