// Package scope is the tenant boundary: every read is filtered through a
// Predicate from ScopeFor and every mutation passes AuthorizeMutation.
package scope

import (
	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/metrics"
)

// Decision label values
const (
	DecisionUnrestricted = "unrestricted"
	DecisionScoped       = "scoped"
	DecisionAllow        = "allow"
	DecisionDeny         = "deny"
)

// Guard decides tenant visibility and mutation rights
type Guard struct {
	metrics *metrics.Metrics
}

// NewGuard creates a Guard
func NewGuard(m *metrics.Metrics) *Guard {
	return &Guard{metrics: m}
}

// ScopeFor returns the read predicate for principal on kind.
// Admins are unrestricted; resellers and clients are bound to their own id.
func (g *Guard) ScopeFor(p domain.Principal, kind domain.ResourceKind) (Predicate, error) {
	column, ok := ownerColumns[kind]
	if !ok {
		return Predicate{}, domain.ErrUnknownResource
	}

	switch p.Role {
	case domain.RoleAdmin:
		g.metrics.ObserveScopeDecision(DecisionUnrestricted)
		return Unrestricted(), nil
	case domain.RoleReseller, domain.RoleClient:
		if p.ID == "" {
			g.metrics.ObserveScopeDecision(DecisionDeny)
			return Predicate{}, domain.ErrForbidden
		}
		g.metrics.ObserveScopeDecision(DecisionScoped)
		return ownedBy(column, p.ID), nil
	default:
		g.metrics.ObserveScopeDecision(DecisionDeny)
		return Predicate{}, domain.ErrForbidden
	}
}

// ScopeForOwner returns a predicate bound to an explicit tenant. Only admins
// may name a tenant other than themselves.
func (g *Guard) ScopeForOwner(p domain.Principal, kind domain.ResourceKind, ownerID string) (Predicate, error) {
	column, ok := ownerColumns[kind]
	if !ok {
		return Predicate{}, domain.ErrUnknownResource
	}
	if ownerID == "" || (!p.IsAdmin() && ownerID != p.ID) {
		g.metrics.ObserveScopeDecision(DecisionDeny)
		return Predicate{}, domain.ErrForbidden
	}
	if !p.Role.Valid() {
		g.metrics.ObserveScopeDecision(DecisionDeny)
		return Predicate{}, domain.ErrForbidden
	}

	g.metrics.ObserveScopeDecision(DecisionScoped)
	return ownedBy(column, ownerID), nil
}

// AuthorizeMutation allows a create, update or delete on a row owned by
// ownerID iff the principal is an admin or the owner. Suspended non-admin
// accounts may not mutate anything.
func (g *Guard) AuthorizeMutation(p domain.Principal, ownerID string) error {
	allowed := false
	switch {
	case p.IsAdmin():
		allowed = true
	case !p.Role.Valid(), p.IsSuspended():
	case p.ID != "" && ownerID == p.ID:
		allowed = true
	}

	if !allowed {
		g.metrics.ObserveScopeDecision(DecisionDeny)
		return domain.ErrForbidden
	}
	g.metrics.ObserveScopeDecision(DecisionAllow)
	return nil
}

// MutationScope runs AuthorizeMutation and returns the predicate the write
// must carry. The predicate binds the write to ownerID, so a row that changed
// hands after the owner was read is left untouched.
func (g *Guard) MutationScope(p domain.Principal, kind domain.ResourceKind, ownerID string) (Predicate, error) {
	column, ok := ownerColumns[kind]
	if !ok {
		return Predicate{}, domain.ErrUnknownResource
	}
	if err := g.AuthorizeMutation(p, ownerID); err != nil {
		return Predicate{}, err
	}
	return ownedBy(column, ownerID), nil
}
