package auth

import "github.com/brindlehq/talentbase/internal/models"

// Capability names an action a role may or may not perform. Authorization
// decisions go through Can so the role-to-capability policy lives in one
// place instead of ad hoc role checks at call sites.
type Capability string

const (
	CapManageSecurityPolicy Capability = "security_policy:manage"
	CapViewSecurityPolicy   Capability = "security_policy:view"
	CapViewAuditLog         Capability = "audit_log:view"
)

var roleCapabilities = map[string]map[Capability]bool{
	models.RoleAdmin: {
		CapManageSecurityPolicy: true,
		CapViewSecurityPolicy:   true,
		CapViewAuditLog:         true,
	},
	models.RoleHRAdmin: {
		CapViewSecurityPolicy: true,
		CapViewAuditLog:       true,
	},
	models.RoleEmployee: {
		CapViewSecurityPolicy: true,
	},
}

// Can reports whether the given role holds the capability. Unknown roles
// hold nothing.
func Can(role string, capability Capability) bool {
	caps, ok := roleCapabilities[role]
	if !ok {
		return false
	}
	return caps[capability]
}
