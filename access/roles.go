/*
Package access defines the role model and the static role-to-permission
table consulted by the presentation layer.

PURPOSE:
  Three fixed roles share the system: accountant, contract specialist and
  manager. Each role maps to a fixed set of boolean permissions. The core
  ledger logic never consults permissions; only the HTTP layer does.

DESIGN:
  Role is a closed enum and PermissionsFor is a total function over it.
  Adding a role without defining its permissions is therefore a local,
  reviewable change in exactly one switch statement instead of a dynamic
  map lookup that silently yields nothing.

SEE ALSO:
  - api/session.go: resolves the authenticated user's role
  - api/server.go: permission-gated route groups
*/
package access

import "fmt"

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleAccountant         Role = "accountant"
	RoleContractSpecialist Role = "contract_specialist"
	RoleManager            Role = "manager"
)

// ParseRole validates a raw role string against the closed enum.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAccountant, RoleContractSpecialist, RoleManager:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Valid reports whether r is one of the three defined roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// DisplayName returns the Russian UI label for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleAccountant:
		return "Бухгалтер"
	case RoleContractSpecialist:
		return "Договорной специалист"
	case RoleManager:
		return "Руководитель"
	}
	return string(r)
}

// =============================================================================
// PERMISSIONS
// =============================================================================

// PermissionSet is the fixed set of capabilities attached to a role.
type PermissionSet struct {
	ViewContracts   bool
	ViewPayments    bool
	ViewReports     bool
	ExportData      bool
	MarkPaymentPaid bool
	AddContract     bool
	EditContract    bool
	DeleteContract  bool
	ManageUsers     bool
}

// PermissionsFor returns the permission set for a role.
// Unknown roles get the zero set: no access to anything.
func PermissionsFor(role Role) PermissionSet {
	switch role {
	case RoleAccountant:
		return PermissionSet{
			ViewContracts:   true,
			ViewPayments:    true,
			ViewReports:     true,
			ExportData:      true,
			MarkPaymentPaid: true,
		}
	case RoleContractSpecialist:
		return PermissionSet{
			ViewContracts:  true,
			ViewPayments:   true,
			ViewReports:    true,
			ExportData:     true,
			AddContract:    true,
			EditContract:   true,
			DeleteContract: true,
		}
	case RoleManager:
		return PermissionSet{
			ViewContracts:  true,
			ViewPayments:   true,
			ViewReports:    true,
			ExportData:     true,
			AddContract:    true,
			EditContract:   true,
			DeleteContract: true,
			ManageUsers:    true,
		}
	default:
		return PermissionSet{}
	}
}
