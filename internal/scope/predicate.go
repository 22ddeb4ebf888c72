package scope

import (
	"fmt"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
)

// OwnerColumn is the tenant owner column shared by clients, templates and servers
const OwnerColumn = "reseller_id"

// ownerColumns maps each resource kind to its owner column. Column names
// only ever come from this table, never from request input.
var ownerColumns = map[domain.ResourceKind]string{
	domain.ResourceClients:   OwnerColumn,
	domain.ResourceTemplates: OwnerColumn,
	domain.ResourceServers:   OwnerColumn,
}

// Predicate is the row filter a data layer must apply for one request.
// It is either unrestricted or an equality on an owner column.
// The zero value matches nothing.
type Predicate struct {
	unrestricted bool
	column       string
	value        string
}

// Unrestricted returns the admin predicate
func Unrestricted() Predicate {
	return Predicate{unrestricted: true}
}

// ownedBy returns column = owner
func ownedBy(column, owner string) Predicate {
	return Predicate{column: column, value: owner}
}

// IsUnrestricted reports whether the predicate filters nothing
func (p Predicate) IsUnrestricted() bool {
	return p.unrestricted
}

// Column returns the owner column, empty when unrestricted
func (p Predicate) Column() string {
	return p.column
}

// Value returns the owner id the column is bound to
func (p Predicate) Value() string {
	return p.value
}

// SQL renders the predicate as a WHERE fragment using positional parameter
// argIndex. It returns the clause, its args and the next free index.
// Unrestricted yields an empty clause; the zero value yields FALSE.
func (p Predicate) SQL(argIndex int) (string, []any, int) {
	switch {
	case p.unrestricted:
		return "", nil, argIndex
	case p.column == "" || p.value == "":
		return "FALSE", nil, argIndex
	default:
		return fmt.Sprintf("%s = $%d", p.column, argIndex), []any{p.value}, argIndex + 1
	}
}

// Matches reports whether a row owned by ownerID passes the predicate
func (p Predicate) Matches(ownerID string) bool {
	if p.unrestricted {
		return true
	}
	return p.column != "" && p.value != "" && ownerID == p.value
}

func (p Predicate) String() string {
	if p.unrestricted {
		return "unrestricted"
	}
	if p.column == "" {
		return "none"
	}
	return p.column + " = ?"
}
