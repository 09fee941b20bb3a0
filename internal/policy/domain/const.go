// Package domain defines tenant domains and capability-based access rules.
// Every request carries a resolved rule set; rule evaluation is pure and
// deterministic so results can be cached and audited.
package domain

// Capability defines the types of operations that can be performed on resources.
// Capabilities are used in capability rules to control what a session may do.
type Capability string

const (
	// CreateCapability allows creating a resource at a path.
	CreateCapability Capability = "create"

	// ReadCapability allows reading resource data.
	ReadCapability Capability = "read"

	// UpdateCapability allows updating existing resource data.
	UpdateCapability Capability = "update"

	// DeleteCapability allows removing resource data.
	DeleteCapability Capability = "delete"

	// ListCapability allows enumerating resources under a path.
	ListCapability Capability = "list"
)

// SessionRenewPath and SessionRevokePath are the self-service paths every
// domain may hit to manage its own session.
const (
	SessionRenewPath  = "auth/session/renew"
	SessionRevokePath = "auth/session/revoke"
)

// CredentialPath returns the rule-set path guarding dynamic credential
// issuance for a role within a domain.
func CredentialPath(domainID, role string) string {
	return "creds/" + domainID + "/" + role
}
