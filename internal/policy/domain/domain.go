package domain

import (
	"strings"
	"time"
)

// Domain represents one tenant boundary. Its identity is immutable after
// onboarding; the rule material (prefixes, deny patterns) is mutable and
// applied atomically relative to in-flight resolutions.
type Domain struct {
	// ID is the unique, immutable domain identifier (e.g., "alpha").
	ID string
	// Description is a human-readable note set by the operator.
	Description string
	// Namespace is the workload namespace this domain is bound to. Identity
	// bindings for the domain must carry this namespace in their subject
	// pattern, which makes cross-domain assertion reuse structurally impossible.
	Namespace string
	// SecretPathPrefixes are the KV path prefixes this domain may touch.
	SecretPathPrefixes []string
	// DenyPatterns are operator-supplied absolute denials layered over the
	// composed allow fragments. A matching denial always wins.
	DenyPatterns []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// kvCapabilities are the operations granted on a domain's own secret prefixes.
var kvCapabilities = []Capability{
	CreateCapability,
	ReadCapability,
	UpdateCapability,
	DeleteCapability,
	ListCapability,
}

// ComposeRules builds the domain's full capability rule set from its template
// fragments: KV access under each declared prefix, read access to each dynamic
// credential role path, self-service session management, and the domain's
// explicit deny patterns. Paths outside the declared prefixes are denied by
// the absence of any matching allow.
//
// The result is normalized, so identical domain state always composes to an
// identical rule set.
func (d *Domain) ComposeRules(credentialRoles []string) RuleSet {
	rules := make(RuleSet, 0, 2*len(d.SecretPathPrefixes)+len(credentialRoles)+len(d.DenyPatterns)+2)

	// KV fragment: full CRUD+list on each declared prefix and everything under it.
	for _, prefix := range d.SecretPathPrefixes {
		prefix = strings.Trim(prefix, "/")
		if prefix == "" {
			continue
		}
		rules = append(rules,
			Rule{Path: prefix, Capabilities: kvCapabilities},
			Rule{Path: prefix + "/*", Capabilities: kvCapabilities},
		)
	}

	// Dynamic credential fragment: read on each role's credential path.
	for _, role := range credentialRoles {
		rules = append(rules, Rule{
			Path:         CredentialPath(d.ID, role),
			Capabilities: []Capability{ReadCapability},
		})
	}

	// Self-service fragment: a session may renew and revoke itself.
	rules = append(rules,
		Rule{Path: SessionRenewPath, Capabilities: []Capability{UpdateCapability}},
		Rule{Path: SessionRevokePath, Capabilities: []Capability{UpdateCapability}},
	)

	// Explicit deny fragment.
	for _, pattern := range d.DenyPatterns {
		rules = append(rules, Rule{Path: pattern, Deny: true})
	}

	return rules.Normalize()
}
