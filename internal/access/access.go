// Package access answers "may this caller attempt X". It is consulted before
// an action is exposed or attempted; lifecycle rules still apply afterwards.
package access

import (
	"context"
	"strings"
)

// Role is a caller's role as asserted by the authentication layer.
type Role string

const (
	RolePublic Role = "public"
	RoleViewer Role = "viewer"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

// Actions checked by the HTTP layer.
const (
	EventRead     = "event.read"
	EventCreate   = "event.create"
	EventUpdate   = "event.update"
	EventPublish  = "event.publish"
	EventCancel   = "event.cancel"
	EventStats    = "event.stats"
	RegCreate     = "registration.create"
	RegRead       = "registration.read"
	RegConfirm    = "registration.confirm"
	RegPromote    = "registration.promote"
	RegAttend     = "registration.attend"
	RegCancel     = "registration.cancel"
	RegPayment    = "registration.payment"
	RegGateway    = "registration.gateway"
	CertGenerate  = "certificate.generate"
	CertIssue     = "certificate.issue"
	CertRevoke    = "certificate.revoke"
	CertRegen     = "certificate.regenerate"
	CertDownload  = "certificate.download"
	CertVerify    = "certificate.verify"
	MetricsScrape = "metrics.scrape"
)

var public = []string{EventRead, RegCreate, CertVerify}

var viewer = append(append([]string{}, public...), RegRead, EventStats, CertDownload)

var staff = append(append([]string{}, viewer...),
	RegConfirm, RegPromote, RegAttend, RegCancel, RegPayment,
	CertGenerate, CertIssue, CertDownload,
)

var admin = append(append([]string{}, staff...),
	EventCreate, EventUpdate, EventPublish, EventCancel,
	RegGateway, CertRevoke, CertRegen, MetricsScrape,
)

var grants = map[Role]map[string]bool{
	RolePublic: set(public),
	RoleViewer: set(viewer),
	RoleStaff:  set(staff),
	RoleAdmin:  set(admin),
}

func set(actions []string) map[string]bool {
	m := make(map[string]bool, len(actions))
	for _, a := range actions {
		m[a] = true
	}
	return m
}

// Principal identifies the caller of a request.
type Principal struct {
	UserID string
	Role   Role
}

// ParseRole maps a header value onto a Role. Unknown values are public.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleViewer, RoleStaff, RoleAdmin:
		return r
	default:
		return RolePublic
	}
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller attached to ctx, or an anonymous public
// principal.
func PrincipalFrom(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey{}).(Principal); ok {
		return p
	}
	return Principal{Role: RolePublic}
}

// Authorizer reports whether the caller in ctx may attempt action.
type Authorizer interface {
	Can(ctx context.Context, action string) bool
}

// RoleAuthorizer grants actions from a fixed role table.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Can(ctx context.Context, action string) bool {
	return grants[PrincipalFrom(ctx).Role][action]
}
