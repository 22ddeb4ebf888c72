package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Keviin77777/Gestor-php-sub003/internal/domain"
	"github.com/Keviin77777/Gestor-php-sub003/internal/scope"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/database"
)

// resourceTables maps resource kinds to table names. Table names only ever come from here.
var resourceTables = map[domain.ResourceKind]string{
	domain.ResourceClients:   "clients",
	domain.ResourceTemplates: "templates",
	domain.ResourceServers:   "servers",
}

func tableFor(kind domain.ResourceKind) (string, error) {
	table, ok := resourceTables[kind]
	if !ok {
		return "", domain.ErrUnknownResource
	}
	return table, nil
}

// PostgresResourceRepository implements ResourceRepository using PostgreSQL
type PostgresResourceRepository struct {
	db database.Querier
}

// NewPostgresResourceRepository creates a new PostgresResourceRepository
func NewPostgresResourceRepository(db database.Querier) *PostgresResourceRepository {
	return &PostgresResourceRepository{db: db}
}

// buildScopedQuery renders a SELECT on table filtered by pred and, when id
// is non-empty, by id. It returns the query, its args and the next free
// parameter index.
func buildScopedQuery(table string, pred scope.Predicate, id string) (string, []any, int) {
	var conditions []string
	var args []any
	argIndex := 1

	clause, predArgs, next := pred.SQL(argIndex)
	if clause != "" {
		conditions = append(conditions, clause)
		args = append(args, predArgs...)
		argIndex = next
	}

	if id != "" {
		conditions = append(conditions, fmt.Sprintf("id = $%d", argIndex))
		args = append(args, id)
		argIndex++
	}

	query := fmt.Sprintf("SELECT id, %s, name, created_at FROM %s", scope.OwnerColumn, table)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query, args, argIndex
}

// List returns rows visible under pred
func (r *PostgresResourceRepository) List(ctx context.Context, kind domain.ResourceKind, pred scope.Predicate, limit, offset int) ([]*domain.Resource, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	limit, offset = ClampPage(limit, offset)

	query, args, argIndex := buildScopedQuery(table, pred, "")
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	resources := make([]*domain.Resource, 0)
	for rows.Next() {
		res := &domain.Resource{Kind: kind}
		if err := rows.Scan(&res.ID, &res.ResellerID, &res.Name, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return resources, nil
}

// GetByID returns a row only if pred admits it
func (r *PostgresResourceRepository) GetByID(ctx context.Context, kind domain.ResourceKind, id string, pred scope.Predicate) (*domain.Resource, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, domain.ErrResourceNotFound
	}

	query, args, _ := buildScopedQuery(table, pred, id)

	res := &domain.Resource{Kind: kind}
	err = r.db.QueryRow(ctx, query, args...).Scan(&res.ID, &res.ResellerID, &res.Name, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResourceNotFound
		}
		return nil, fmt.Errorf("get %s: %w", table, err)
	}
	return res, nil
}

// OwnerOf returns the owner column of a row
func (r *PostgresResourceRepository) OwnerOf(ctx context.Context, kind domain.ResourceKind, id string) (string, error) {
	table, err := tableFor(kind)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", scope.OwnerColumn, table)

	var owner string
	if err := r.db.QueryRow(ctx, query, id).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrResourceNotFound
		}
		return "", fmt.Errorf("owner of %s: %w", table, err)
	}
	return owner, nil
}

// Delete removes a row by id, filtered by pred in the same statement
func (r *PostgresResourceRepository) Delete(ctx context.Context, kind domain.ResourceKind, id string, pred scope.Predicate) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", table)
	args := []any{id}
	if clause, predArgs, _ := pred.SQL(2); clause != "" {
		query += " AND " + clause
		args = append(args, predArgs...)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}
