package gate

import (
	"context"
	"strings"
)

// Permission is a "resource:action" grant. Either side may be "*".
type Permission string

const (
	Wildcard             = "*"
	PermissionSuperAdmin = Permission("*:*")
)

func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits p into its resource and action. Malformed values yield empty strings.
func (p Permission) Parse() (string, Action) {
	res, act, ok := strings.Cut(string(p), ":")
	if !ok {
		return "", ""
	}
	return res, Action(act)
}

// Matches reports whether holding p grants requested.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res != "" && res == reqRes && string(act) == Wildcard
}

// Profile is a named set of permissions assigned to a user.
type Profile interface {
	ID() uint
	Name() string
	HasPermission(Permission) bool
	Permissions() []Permission
}

// ProfileResolver finds the profile of a user. A nil profile with a nil
// error means the user has none.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Profile, error)
}

// HasAny reports whether any of perms grants requested.
func HasAny(perms []Permission, requested Permission) bool {
	for _, p := range perms {
		if p.Matches(requested) {
			return true
		}
	}
	return false
}

// StaticProfile is an in-memory Profile.
type StaticProfile struct {
	id    uint
	name  string
	perms []Permission
}

func NewStaticProfile(id uint, name string, perms ...Permission) *StaticProfile {
	return &StaticProfile{id: id, name: name, perms: append([]Permission(nil), perms...)}
}

func (p *StaticProfile) ID() uint                  { return p.id }
func (p *StaticProfile) Name() string              { return p.name }
func (p *StaticProfile) Permissions() []Permission { return append([]Permission(nil), p.perms...) }

func (p *StaticProfile) HasPermission(requested Permission) bool {
	return HasAny(p.perms, requested)
}

// StaticResolver maps users to fixed profiles.
type StaticResolver[U comparable] struct {
	profiles map[U]Profile
}

func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

func (r *StaticResolver[U]) Set(user U, p Profile) { r.profiles[user] = p }

func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Profile, error) {
	return r.profiles[user], nil
}
