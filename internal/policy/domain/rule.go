package domain

import (
	"slices"
	"sort"
	"strings"
)

// Rule is one access-control statement: a path pattern plus the capabilities
// it grants, or an absolute denial of the pattern when Deny is set.
//
// Patterns support exact matching, the full wildcard "*", and a trailing
// wildcard "prefix/*". General regex matching is deliberately not supported
// so that every authorization decision stays auditable by inspection.
type Rule struct {
	Path         string       `json:"path"`
	Capabilities []Capability `json:"capabilities,omitempty"`
	Deny         bool         `json:"deny,omitempty"`
}

// RuleSet is the ordered, deduplicated set of rules governing one session.
type RuleSet []Rule

// matchPattern checks if the request path matches the rule path pattern.
//
// Examples:
//   - "*" matches any path
//   - "secret/alpha/*" matches "secret/alpha/app" and "secret/alpha/app/db"
//   - "secret/alpha" matches only "secret/alpha"
func matchPattern(pattern, requestPath string) bool {
	if pattern == "*" {
		return true
	}

	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		return requestPath == prefix || strings.HasPrefix(requestPath, prefix+"/")
	}

	return pattern == requestPath
}

// specificity returns the literal-prefix length of a pattern, used to pick
// the most specific match. The full wildcard has zero specificity; a trailing
// wildcard counts its literal prefix; an exact pattern counts its whole length.
func specificity(pattern string) int {
	if pattern == "*" {
		return 0
	}
	if strings.HasSuffix(pattern, "/*") {
		return len(strings.TrimSuffix(pattern, "/*"))
	}
	return len(pattern)
}

// Allows reports whether the rule set permits the capability on the literal
// request path.
//
// Evaluation rules:
//   - A matching deny rule is absolute: it overrides every allow, including
//     allows on more specific patterns. Deny wins by construction, never by
//     rule ordering.
//   - Among matching allow rules, the most specific pattern (longest literal
//     prefix) decides; capabilities of equally specific allows are combined.
//   - No matching rule means denied.
func (rs RuleSet) Allows(path string, capability Capability) bool {
	if path == "" || capability == "" {
		return false
	}

	best := -1
	var granted []Capability

	for _, rule := range rs {
		if !matchPattern(rule.Path, path) {
			continue
		}

		if rule.Deny {
			return false
		}

		spec := specificity(rule.Path)
		switch {
		case spec > best:
			best = spec
			granted = append(granted[:0], rule.Capabilities...)
		case spec == best:
			granted = append(granted, rule.Capabilities...)
		}
	}

	return slices.Contains(granted, capability)
}

// Normalize returns a deduplicated, deterministically ordered copy of the
// rule set. Rules with the same path and deny flag are merged; capabilities
// are sorted and deduplicated; the set is ordered by path with deny rules
// first. Resolving the same domain state always yields an identical result.
func (rs RuleSet) Normalize() RuleSet {
	type key struct {
		path string
		deny bool
	}

	merged := make(map[key][]Capability, len(rs))
	for _, rule := range rs {
		k := key{path: rule.Path, deny: rule.Deny}
		merged[k] = append(merged[k], rule.Capabilities...)
	}

	out := make(RuleSet, 0, len(merged))
	for k, caps := range merged {
		slices.Sort(caps)
		caps = slices.Compact(caps)
		if k.deny {
			// Denials carry no grants.
			caps = nil
		}
		out = append(out, Rule{Path: k.path, Capabilities: caps, Deny: k.deny})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Deny && !out[j].Deny
	})

	return out
}
