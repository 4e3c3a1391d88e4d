package auth

import "context"

// PolicyResolver maps an incoming request to the roles it requires. A
// returned set containing RoleOptional marks authentication as best-effort
// for that request.
type PolicyResolver interface {
	RequiredRoles(ctx context.Context, req RequestContext) (RoleSet, error)
}

// PolicyFunc adapts a function to PolicyResolver.
type PolicyFunc func(ctx context.Context, req RequestContext) (RoleSet, error)

func (f PolicyFunc) RequiredRoles(ctx context.Context, req RequestContext) (RoleSet, error) {
	return f(ctx, req)
}

// StaticPolicy requires the same roles for every request.
type StaticPolicy struct {
	Roles RoleSet
}

func (s *StaticPolicy) RequiredRoles(context.Context, RequestContext) (RoleSet, error) {
	return s.Roles, nil
}

// RequireUser is a policy demanding an authenticated user on every request.
func RequireUser() PolicyResolver {
	return &StaticPolicy{Roles: NewRoleSet(RoleUser)}
}

// AllowAnonymous is a policy that authenticates when possible but never
// rejects for missing or invalid credentials.
func AllowAnonymous() PolicyResolver {
	return &StaticPolicy{Roles: NewRoleSet(RoleUser, RoleOptional)}
}
