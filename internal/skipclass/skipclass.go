// Package skipclass buckets fetch-tool diagnostic lines into intentional
// skips versus unexpected errors.
//
// Skip lines mark items the source refuses to serve (private, region
// blocked, copyright claimed). Anything else carrying an error token counts
// as an unexpected failure. Classification is rule-table driven so the
// patterns stay testable apart from subprocess plumbing.
package skipclass

import (
	"regexp"
	"strings"
)

// Category is the classification of one diagnostic line.
type Category int

const (
	// None marks lines with no diagnostic significance.
	None Category = iota
	// Skip marks items intentionally withheld by the source.
	Skip
	// Error marks unexpected failures.
	Error
)

type rule struct {
	pattern  *regexp.Regexp
	category Category
}

// Rules are ordered: the first match wins, and skip patterns are checked
// before the generic error token.
var rules = []rule{
	{regexp.MustCompile(`(?i)private (video|content)`), Skip},
	{regexp.MustCompile(`(?i)members[- ]only`), Skip},
	{regexp.MustCompile(`(?i)join this channel`), Skip},
	{regexp.MustCompile(`(?i)not available in your (country|region)`), Skip},
	{regexp.MustCompile(`(?i)geo[- ]?(blocked|restricted)`), Skip},
	{regexp.MustCompile(`(?i)blocked (it )?(in|on)`), Skip},
	{regexp.MustCompile(`(?i)copyright (claim|grounds|infringement)`), Skip},
	{regexp.MustCompile(`(?i)age[- ]restricted`), Skip},
	{regexp.MustCompile(`(?i)confirm your age`), Skip},
	{regexp.MustCompile(`(?i)video (is |has been )?(unavailable|removed)`), Skip},
	{regexp.MustCompile(`(?i)account.*(terminated|closed)`), Skip},
	{regexp.MustCompile(`(?i)this (video|content) is no longer available`), Skip},
	{regexp.MustCompile(`(?i)\berror\b`), Error},
	{regexp.MustCompile(`(?i)unable to (download|extract)`), Error},
}

// Classifier counts skip and error lines for one queue run, deduplicating
// by normalized line so multi-line diagnostics count once.
type Classifier struct {
	seen    map[string]struct{}
	skips   int
	errors  int
	lastLog string
}

// NewClassifier returns a Classifier with empty counters.
func NewClassifier() *Classifier {
	return &Classifier{seen: make(map[string]struct{})}
}

// Classify categorizes a single line without touching counters.
func Classify(line string) Category {
	for _, r := range rules {
		if r.pattern.MatchString(line) {
			return r.category
		}
	}
	return None
}

// Observe classifies the line and updates counters. Repeated lines are
// counted once.
func (c *Classifier) Observe(line string) Category {
	category := Classify(line)
	if category == None {
		return None
	}

	key := normalizeLine(line)
	if _, dup := c.seen[key]; dup {
		return category
	}
	c.seen[key] = struct{}{}

	switch category {
	case Skip:
		c.skips++
	case Error:
		c.errors++
	}
	c.lastLog = strings.TrimSpace(line)
	return category
}

// Skips returns the deduplicated skip count.
func (c *Classifier) Skips() int { return c.skips }

// Errors returns the deduplicated error count.
func (c *Classifier) Errors() int { return c.errors }

// LastLog returns the most recent counted line.
func (c *Classifier) LastLog() string { return c.lastLog }

// Reconcile returns the final skip count for a finished queue run. The
// fetch tool sometimes drops an item without a recognizable line, so the
// arithmetic shortfall declaredTotal-successes is trusted when it exceeds
// the live count.
func (c *Classifier) Reconcile(declaredTotal, successes int) int {
	shortfall := declaredTotal - successes - c.errors
	if shortfall > c.skips {
		return shortfall
	}
	return c.skips
}

func normalizeLine(line string) string {
	return strings.Join(strings.Fields(strings.ToLower(line)), " ")
}
