package access_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shivanand-hulikatti/conference-lifecycle/internal/access"
)

func can(role access.Role, action string) bool {
	ctx := access.WithPrincipal(context.Background(), access.Principal{Role: role})
	return access.RoleAuthorizer{}.Can(ctx, action)
}

func Test_RoleAuthorizer_Grants(t *testing.T) {
	tests := []struct {
		action string
		public bool
		viewer bool
		staff  bool
		admin  bool
	}{
		{action: access.EventRead, public: true, viewer: true, staff: true, admin: true},
		{action: access.RegCreate, public: true, viewer: true, staff: true, admin: true},
		{action: access.CertVerify, public: true, viewer: true, staff: true, admin: true},
		{action: access.RegRead, viewer: true, staff: true, admin: true},
		{action: access.EventStats, viewer: true, staff: true, admin: true},
		{action: access.RegConfirm, staff: true, admin: true},
		{action: access.RegAttend, staff: true, admin: true},
		{action: access.CertGenerate, staff: true, admin: true},
		{action: access.EventPublish, admin: true},
		{action: access.CertRevoke, admin: true},
		{action: access.RegGateway, admin: true},
		{action: access.MetricsScrape, admin: true},
		{action: "registration.delete"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			assert.Equal(t, tt.public, can(access.RolePublic, tt.action))
			assert.Equal(t, tt.viewer, can(access.RoleViewer, tt.action))
			assert.Equal(t, tt.staff, can(access.RoleStaff, tt.action))
			assert.Equal(t, tt.admin, can(access.RoleAdmin, tt.action))
		})
	}
}

func Test_PrincipalFrom_DefaultsToPublic(t *testing.T) {
	p := access.PrincipalFrom(context.Background())

	assert.Equal(t, access.RolePublic, p.Role)
	assert.False(t, access.RoleAuthorizer{}.Can(context.Background(), access.RegRead))
}

func Test_ParseRole(t *testing.T) {
	assert.Equal(t, access.RoleAdmin, access.ParseRole(" Admin "))
	assert.Equal(t, access.RoleStaff, access.ParseRole("staff"))
	assert.Equal(t, access.RolePublic, access.ParseRole("root"))
	assert.Equal(t, access.RolePublic, access.ParseRole(""))
}
