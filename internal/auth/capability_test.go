package auth

import (
	"testing"

	"github.com/brindlehq/talentbase/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role       string
		capability Capability
		want       bool
	}{
		{models.RoleAdmin, CapManageSecurityPolicy, true},
		{models.RoleAdmin, CapViewAuditLog, true},
		{models.RoleHRAdmin, CapViewAuditLog, true},
		{models.RoleHRAdmin, CapManageSecurityPolicy, false},
		{models.RoleEmployee, CapViewSecurityPolicy, true},
		{models.RoleEmployee, CapViewAuditLog, false},
		{models.RoleEmployee, CapManageSecurityPolicy, false},
		{"contractor", CapViewSecurityPolicy, false},
		{"", CapViewAuditLog, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Can(tt.role, tt.capability),
			"Can(%q, %q)", tt.role, tt.capability)
	}
}
