package filter

import (
	"path/filepath"
	"time"

	"github.com/dyluth/papernet/internal/timespec"
	"github.com/dyluth/papernet/pkg/paper"
)

// Criteria defines filtering criteria for papers.
// All filters are ANDed together - a paper must match ALL criteria to pass.
type Criteria struct {
	States       []paper.State // Any of these states, empty = no filter
	Exporter     string        // Exact match on exporter, empty = no filter
	CategoryGlob string        // Glob pattern for product category, empty = no filter
	Since        time.Time     // Submitted at or after, zero = no filter
	Until        time.Time     // Submitted at or before, zero = no filter
}

// Matches returns true if the paper matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
// With a time bound set, papers whose submit time cannot be parsed never match.
func (c *Criteria) Matches(p *paper.ImportPaper) bool {
	if len(c.States) > 0 && !containsState(c.States, p.State()) {
		return false
	}

	if c.Exporter != "" && p.Exporter() != c.Exporter {
		return false
	}

	if c.CategoryGlob != "" {
		matched, err := filepath.Match(c.CategoryGlob, p.ProductCategory())
		if err != nil || !matched {
			return false
		}
	}

	if !c.Since.IsZero() || !c.Until.IsZero() {
		submitted, ok := timespec.ParseTimestamp(p.SubmitDateTime())
		if !ok {
			return false
		}
		if !c.Since.IsZero() && submitted.Before(c.Since) {
			return false
		}
		if !c.Until.IsZero() && submitted.After(c.Until) {
			return false
		}
	}

	return true
}

// Apply returns the papers that match, preserving order.
func (c *Criteria) Apply(papers []*paper.ImportPaper) []*paper.ImportPaper {
	if !c.HasFilters() {
		return papers
	}
	out := make([]*paper.ImportPaper, 0, len(papers))
	for _, p := range papers {
		if c.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return len(c.States) > 0 ||
		c.Exporter != "" ||
		c.CategoryGlob != "" ||
		!c.Since.IsZero() ||
		!c.Until.IsZero()
}

func containsState(states []paper.State, s paper.State) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}
