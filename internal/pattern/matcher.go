// Package pattern implements the glob matching used for ownership paths
// and caller rules. Patterns are anchored and case-sensitive: `**` matches
// zero or more path segments, `*` matches any run of characters within a
// single segment.
package pattern

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const cacheSize = 4096

// Matcher compiles patterns once and caches them by pattern string.
// Safe for concurrent use.
type Matcher struct {
	cache *lru.Cache[string, *compiled]
}

// NewMatcher with the default cache size.
func NewMatcher() *Matcher {
	cache, err := lru.New[string, *compiled](cacheSize)
	if err != nil {
		// lru.New only fails on non-positive size
		panic(err)
	}
	return &Matcher{cache: cache}
}

// Match reports whether candidate matches pattern over the full string.
func (m *Matcher) Match(pattern, candidate string) bool {
	c := m.compile(pattern)
	return c.match(strings.Split(candidate, "/"))
}

// LiteralPrefix returns the leading literal portion of a pattern, up to
// the first wildcard. Its length is the pattern's specificity for
// ownership tie-breaking.
func (m *Matcher) LiteralPrefix(pattern string) string {
	if i := strings.IndexByte(pattern, '*'); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// MatchAny reports whether candidate matches any of the patterns, and
// returns the first matching pattern in declaration order.
func (m *Matcher) MatchAny(patterns []string, candidate string) (string, bool) {
	for _, p := range patterns {
		if m.Match(p, candidate) {
			return p, true
		}
	}
	return "", false
}

func (m *Matcher) compile(pattern string) *compiled {
	if c, ok := m.cache.Get(pattern); ok {
		return c
	}
	c := &compiled{segments: strings.Split(pattern, "/")}
	m.cache.Add(pattern, c)
	return c
}

type compiled struct {
	segments []string
}

func (c *compiled) match(parts []string) bool {
	return matchSegments(c.segments, parts)
}

func matchSegments(pat, parts []string) bool {
	if len(pat) == 0 {
		return len(parts) == 0
	}

	if pat[0] == "**" {
		// zero segments
		if matchSegments(pat[1:], parts) {
			return true
		}
		// one or more segments
		return len(parts) > 0 && matchSegments(pat, parts[1:])
	}

	if len(parts) == 0 {
		return false
	}

	if !matchSegment(pat[0], parts[0]) {
		return false
	}
	return matchSegments(pat[1:], parts[1:])
}

// matchSegment matches a single segment pattern where `*` stands for any
// run of characters (never crossing a separator).
func matchSegment(pat, s string) bool {
	// iterative wildcard match with single-star backtracking
	var starIdx, matchIdx = -1, 0
	pi, si := 0, 0

	for si < len(s) {
		if pi < len(pat) && (pat[pi] == s[si]) {
			pi++
			si++
			continue
		}
		if pi < len(pat) && pat[pi] == '*' {
			starIdx = pi
			matchIdx = si
			pi++
			continue
		}
		if starIdx >= 0 {
			pi = starIdx + 1
			matchIdx++
			si = matchIdx
			continue
		}
		return false
	}

	for pi < len(pat) && pat[pi] == '*' {
		pi++
	}
	return pi == len(pat)
}
