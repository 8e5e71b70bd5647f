/*

Role-based access gating for administrative operations. The real deployment
delegates to an external permission service; inside this module it is modeled as
the single-method Authorizer capability so the accounting core stays testable
without a permission subsystem.

*/

package auth

import (
	"sync"

	"github.com/custodia-labs/vaultd/internal/logger"
)

var authLogger = logger.GetForComponent("auth")

// Actions gated by the permission layer.
const (
	ActionConfigureAsset = "configure_asset"
)

// Role identifiers mirrored from the external permission service.
const (
	RoleSuperAdmin = "super_admin"
	RoleBankAdmin  = "bank_admin"
)

// Authorizer is the capability check injected into admin-gated paths.
type Authorizer interface {
	Authorize(identity, action string) bool
}

// RoleTable is an in-memory Authorizer keyed by identity and role. At
// initialization the deploying identity is granted both the super-admin and the
// operational bank-admin role.
type RoleTable struct {
	mu    sync.RWMutex
	roles map[string]map[string]bool
}

// NewRoleTable creates a role table with the deployer granted both admin roles.
func NewRoleTable(deployer string) *RoleTable {
	t := &RoleTable{roles: make(map[string]map[string]bool)}
	t.Grant(deployer, RoleSuperAdmin)
	t.Grant(deployer, RoleBankAdmin)
	return t
}

// Grant gives identity the named role.
func (t *RoleTable) Grant(identity, role string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.roles[identity] == nil {
		t.roles[identity] = make(map[string]bool)
	}
	t.roles[identity][role] = true
	authLogger.Debug().Str("identity", identity).Str("role", role).Msg("Granted role")
}

// HasRole reports whether identity holds the named role.
func (t *RoleTable) HasRole(identity, role string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.roles[identity][role]
}

// Authorize implements Authorizer. Asset configuration requires the operational
// bank-admin role; super-admin implies it.
func (t *RoleTable) Authorize(identity, action string) bool {
	switch action {
	case ActionConfigureAsset:
		return t.HasRole(identity, RoleBankAdmin) || t.HasRole(identity, RoleSuperAdmin)
	default:
		return false
	}
}
