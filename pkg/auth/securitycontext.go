package auth

import "fmt"

// SecurityContext is the result of a successful authentication decision.
// It is immutable once built and safe to share across goroutines.
type SecurityContext struct {
	principal *Principal
	roles     RoleSet
	scheme    string
	secure    bool
}

// NewSecurityContext builds an authenticated context. The principal must be
// non-nil; anonymous outcomes go through AnonymousContext instead.
func NewSecurityContext(p *Principal, roles RoleSet, scheme string, secure bool) (*SecurityContext, error) {
	if p == nil {
		return nil, fmt.Errorf("authenticated security context requires a principal")
	}
	granted := NewRoleSet(RoleUser)
	granted = granted.Union(roles)
	return &SecurityContext{
		principal: p,
		roles:     granted,
		scheme:    scheme,
		secure:    secure,
	}, nil
}

// AnonymousContext builds the context handed out when authentication was
// optional and no usable credential was presented. It carries no principal
// and only the OPTIONAL role, so optional endpoints can still match it.
func AnonymousContext(scheme string, secure bool) *SecurityContext {
	return &SecurityContext{
		roles:  NewRoleSet(RoleOptional),
		scheme: scheme,
		secure: secure,
	}
}

// Principal returns the authenticated principal, or nil for anonymous contexts.
func (sc *SecurityContext) Principal() *Principal {
	return sc.principal
}

// IsAnonymous reports whether no principal was authenticated.
func (sc *SecurityContext) IsAnonymous() bool {
	return sc.principal == nil
}

// IsUserInRole reports whether the context holds the given role.
func (sc *SecurityContext) IsUserInRole(role Role) bool {
	return sc.roles.Contains(role)
}

// Roles returns a copy of the granted role set.
func (sc *SecurityContext) Roles() RoleSet {
	return NewRoleSet().Union(sc.roles)
}

// AuthenticationScheme returns the scheme used, for example "OAuth2.0 Bearer".
func (sc *SecurityContext) AuthenticationScheme() string {
	return sc.scheme
}

// IsSecure reports whether the request arrived over a secure channel.
func (sc *SecurityContext) IsSecure() bool {
	return sc.secure
}

// String renders the context without leaking token material.
func (sc *SecurityContext) String() string {
	if sc.IsAnonymous() {
		return "SecurityContext{anonymous}"
	}
	return fmt.Sprintf("SecurityContext{principal: %s, roles: %s}", sc.principal, sc.roles)
}
