package domain

import "time"

// ResourceKind names a tenant-owned resource table
type ResourceKind string

const (
	ResourceClients   ResourceKind = "clients"
	ResourceTemplates ResourceKind = "templates"
	ResourceServers   ResourceKind = "servers"
)

// ResourceKinds lists every tenant-owned resource kind
var ResourceKinds = []ResourceKind{ResourceClients, ResourceTemplates, ResourceServers}

// ParseResourceKind converts a path segment into a ResourceKind
func ParseResourceKind(s string) (ResourceKind, error) {
	for _, k := range ResourceKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrUnknownResource
}

// Resource is a tenant-owned row (client, template or server).
// ResellerID is the owner column.
type Resource struct {
	ID         string       `json:"id"`
	Kind       ResourceKind `json:"kind"`
	ResellerID string       `json:"reseller_id"`
	Name       string       `json:"name"`
	CreatedAt  time.Time    `json:"created_at"`
}
