package auth

import (
	"github.com/google/uuid"

	"github.com/omarashraf/dokkan-backend/pkg/enums"
)

// Capability names one privileged action a principal may perform.
type Capability string

const (
	CapManageOrders      Capability = "manage_orders"
	CapAssignTransporter Capability = "assign_transporter"
	CapMarkDelivered     Capability = "mark_delivered"
	CapManagePromos      Capability = "manage_promos"
	CapViewDashboards    Capability = "view_dashboards"
)

var capabilitiesByRole = map[enums.Role][]Capability{
	enums.RoleCustomer: {},
	enums.RoleTransporter: {
		CapMarkDelivered,
		CapViewDashboards,
	},
	enums.RoleModerator: {
		CapManageOrders,
		CapAssignTransporter,
		CapMarkDelivered,
		CapManagePromos,
		CapViewDashboards,
	},
	enums.RoleAdmin: {
		CapManageOrders,
		CapAssignTransporter,
		CapMarkDelivered,
		CapManagePromos,
		CapViewDashboards,
	},
}

// Principal is the pre-validated acting identity handed to lifecycle
// operations. Services check capabilities on it and never compare role
// strings themselves.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

// PrincipalFromClaims builds a Principal out of verified token claims.
func PrincipalFromClaims(claims *AccessTokenClaims) Principal {
	if claims == nil {
		return Principal{}
	}
	return Principal{UserID: claims.UserID, Role: claims.Role}
}

// Can reports whether the principal's role grants the capability.
func (p Principal) Can(cap Capability) bool {
	for _, granted := range capabilitiesByRole[p.Role] {
		if granted == cap {
			return true
		}
	}
	return false
}

// IsTransporter reports whether delivery confirmation must additionally match
// the assigned transporter.
func (p Principal) IsTransporter() bool {
	return p.Role == enums.RoleTransporter
}
