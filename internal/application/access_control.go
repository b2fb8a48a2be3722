package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// RoleRepository stores role membership.
type RoleRepository interface {
	AddRoleMember(ctx context.Context, role Role, principal Principal) error
	HasRoleMember(ctx context.Context, role Role, principal Principal) (bool, error)
	CountRoleMembers(ctx context.Context, role Role) (int, error)
}

// AccessControl maintains the admin and enforcer principal sets shared by the registries.
//
// Each set starts uninitialized. The first bootstrap call seeds it with the caller; from
// then on only existing members may add principals. Sets only ever grow, so a set is
// initialized exactly when it has at least one member.
type AccessControl struct {
	mu     sync.Mutex
	roles  RoleRepository
	logger *slog.Logger
}

// NewAccessControl constructs an access control instance backed by the given repository.
func NewAccessControl(roles RoleRepository) *AccessControl {
	return NewAccessControlWithLogger(roles, nil)
}

// NewAccessControlWithLogger constructs an access control instance with a specified logger.
func NewAccessControlWithLogger(roles RoleRepository, logger *slog.Logger) *AccessControl {
	return &AccessControl{roles: roles, logger: defaultLogger(logger)}
}

func (a *AccessControl) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, a.logger, "AccessControl", operation, attrs...)
}

// IsAdmin reports whether p belongs to the admin set.
func (a *AccessControl) IsAdmin(ctx context.Context, p Principal) (bool, error) {
	return a.HasRole(ctx, RoleAdmin, p)
}

// IsEnforcer reports whether p belongs to the enforcer set.
func (a *AccessControl) IsEnforcer(ctx context.Context, p Principal) (bool, error) {
	return a.HasRole(ctx, RoleEnforcer, p)
}

// InitializeAdmins seeds the admin set with the caller.
func (a *AccessControl) InitializeAdmins(ctx context.Context, caller Principal) error {
	return a.Initialize(ctx, RoleAdmin, caller)
}

// InitializeEnforcers seeds the enforcer set with the caller.
func (a *AccessControl) InitializeEnforcers(ctx context.Context, caller Principal) error {
	return a.Initialize(ctx, RoleEnforcer, caller)
}

// AddAdmin adds p to the admin set on behalf of an existing admin.
func (a *AccessControl) AddAdmin(ctx context.Context, caller, p Principal) error {
	return a.AddMember(ctx, RoleAdmin, caller, p)
}

// AddEnforcer adds p to the enforcer set on behalf of an existing enforcer.
func (a *AccessControl) AddEnforcer(ctx context.Context, caller, p Principal) error {
	return a.AddMember(ctx, RoleEnforcer, caller, p)
}

// HasRole reports whether p belongs to the given role set. The zero principal never does.
func (a *AccessControl) HasRole(ctx context.Context, role Role, p Principal) (bool, error) {
	if a == nil || a.roles == nil {
		return false, fmt.Errorf("access control not configured")
	}
	if p.IsZero() {
		return false, nil
	}
	return a.roles.HasRoleMember(ctx, role, p)
}

// Initialize performs the one-shot bootstrap of a role set.
func (a *AccessControl) Initialize(ctx context.Context, role Role, caller Principal) (err error) {
	if a == nil || a.roles == nil {
		return fmt.Errorf("access control not configured")
	}

	logger := a.loggerWith(ctx, "Initialize", "role", string(role), "principal", caller.String())
	defer func() {
		logOutcome(ctx, logger, err, "failed to initialize role", "role initialized")
	}()

	if caller.IsZero() {
		err = ErrForbidden
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var count int
	count, err = a.roles.CountRoleMembers(ctx, role)
	if err != nil {
		return
	}
	if count > 0 {
		err = ErrAlreadyInitialized
		return
	}

	err = a.roles.AddRoleMember(ctx, role, caller)
	return
}

// AddMember adds p to the role set when the caller already belongs to it. Re-adding a member succeeds.
func (a *AccessControl) AddMember(ctx context.Context, role Role, caller, p Principal) (err error) {
	if a == nil || a.roles == nil {
		return fmt.Errorf("access control not configured")
	}

	logger := a.loggerWith(ctx, "AddMember", "role", string(role), "principal", caller.String(), "member", p.String())
	defer func() {
		logOutcome(ctx, logger, err, "failed to add role member", "role member added")
	}()

	a.mu.Lock()
	defer a.mu.Unlock()

	var allowed bool
	allowed, err = a.HasRole(ctx, role, caller)
	if err != nil {
		return
	}
	if !allowed {
		err = ErrForbidden
		return
	}
	if p.IsZero() {
		err = invalidField("principal", "principal is required")
		return
	}

	var exists bool
	exists, err = a.roles.HasRoleMember(ctx, role, p)
	if err != nil || exists {
		return
	}

	err = a.roles.AddRoleMember(ctx, role, p)
	return
}
