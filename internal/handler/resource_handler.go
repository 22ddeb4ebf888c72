package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/dto"
	"github.com/Keviin77777/Gestor-php-sub003/internal/middleware"
	"github.com/Keviin77777/Gestor-php-sub003/internal/repository"
	"github.com/Keviin77777/Gestor-php-sub003/internal/scope"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/logger"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/response"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/telemetry"
)

// ResourceHandler serves tenant-owned rows. Every read goes through the
// caller's scope predicate and every delete through AuthorizeMutation.
type ResourceHandler struct {
	repo  repository.ResourceRepository
	guard *scope.Guard
	authz *middleware.Authorizer
	log   *logger.Logger
}

// NewResourceHandler creates a new ResourceHandler
func NewResourceHandler(repo repository.ResourceRepository, guard *scope.Guard, authz *middleware.Authorizer, log *logger.Logger) *ResourceHandler {
	if log == nil {
		log = logger.Get()
	}
	return &ResourceHandler{repo: repo, guard: guard, authz: authz, log: log}
}

func (h *ResourceHandler) kind(c *gin.Context) (domain.ResourceKind, bool) {
	kind, err := domain.ParseResourceKind(c.Param("kind"))
	if err != nil {
		response.NotFound(c, "Resource not found")
		return "", false
	}
	return kind, true
}

// scoped resolves the caller's predicate for kind, answering the error itself on failure
func (h *ResourceHandler) scoped(c *gin.Context, kind domain.ResourceKind) (domain.Principal, scope.Predicate, bool) {
	p, pred, err := middleware.ResolveAndScope(c, kind)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrForbidden):
			h.authz.Deny(c, p)
		case errors.Is(err, domain.ErrUnknownResource):
			response.NotFound(c, "Resource not found")
		default:
			response.Unauthorized(c)
		}
		return p, pred, false
	}
	return p, pred, true
}

func (h *ResourceHandler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, domain.ErrResourceNotFound) || errors.Is(err, domain.ErrUnknownResource) {
		response.NotFound(c, "Resource not found")
		return
	}
	h.log.Error("Resource "+op+" failed", zap.Error(err))
	response.InternalError(c)
}

// List returns the rows of kind visible to the caller
// GET /api/v1/:kind
func (h *ResourceHandler) List(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	_, pred, ok := h.scoped(c, kind)
	if !ok {
		return
	}
	h.list(c, kind, pred)
}

func (h *ResourceHandler) list(c *gin.Context, kind domain.ResourceKind, pred scope.Predicate) {
	var q dto.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid paging parameters")
		return
	}

	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.resource.list")
	defer span.End()
	span.SetAttributes(
		attribute.String("resource.kind", string(kind)),
		attribute.Bool("scope.unrestricted", pred.IsUnrestricted()),
	)

	rows, err := h.repo.List(ctx, kind, pred, q.Limit, q.Offset)
	if err != nil {
		telemetry.SetSpanError(span, err)
		h.fail(c, "list", err)
		return
	}
	response.List(c, rows, len(rows))
}

// Get returns one row; rows outside the caller's scope answer 404
// GET /api/v1/:kind/:id
func (h *ResourceHandler) Get(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	_, pred, ok := h.scoped(c, kind)
	if !ok {
		return
	}

	res, err := h.repo.GetByID(c.Request.Context(), kind, c.Param("id"), pred)
	if err != nil {
		h.fail(c, "get", err)
		return
	}
	response.Success(c, res)
}

// Delete removes a row owned by the caller, or any row for admins
// DELETE /api/v1/:kind/:id
func (h *ResourceHandler) Delete(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	owner, err := h.repo.OwnerOf(ctx, kind, id)
	if err != nil {
		h.fail(c, "delete", err)
		return
	}
	pred, err := h.guard.MutationScope(p, kind, owner)
	if err != nil {
		h.authz.Deny(c, p)
		return
	}

	if err := h.repo.Delete(ctx, kind, id, pred); err != nil {
		h.fail(c, "delete", err)
		return
	}
	response.Success(c, gin.H{"id": id, "deleted": true})
}

// ListForReseller lets an admin list another tenant's rows
// GET /api/v1/admin/resellers/:id/:kind
func (h *ResourceHandler) ListForReseller(c *gin.Context) {
	kind, ok := h.kind(c)
	if !ok {
		return
	}
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c)
		return
	}

	pred, err := h.guard.ScopeForOwner(p, kind, c.Param("id"))
	if err != nil {
		h.authz.Deny(c, p)
		return
	}
	h.list(c, kind, pred)
}
