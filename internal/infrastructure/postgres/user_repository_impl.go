package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, is_active, created_at, updated_at, deleted_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindOne(ctx context.Context, f repository.UserFilter) (*entity.User, error) {
	if f.ID != "" && !validUUID(f.ID) {
		return nil, repository.ErrNotFound
	}
	where, args := whereClause(f)
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users`+where+` LIMIT 1`, args...)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindPage(ctx context.Context, f repository.UserFilter, limit, offset int) ([]*entity.User, error) {
	if f.ID != "" && !validUUID(f.ID) {
		return []*entity.User{}, nil
	}
	where, args := whereClause(f)
	args = append(args, limit, offset)
	q := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY seq ASC LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context, f repository.UserFilter) (int, error) {
	if f.ID != "" && !validUUID(f.ID) {
		return 0, nil
	}
	where, args := whereClause(f)
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		u.ID, u.Email, u.Name, u.IsActive, u.CreatedAt, u.UpdatedAt)

	stored, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return stored, nil
}

func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields repository.UserFields) (*entity.User, error) {
	if !validUUID(id) {
		return nil, repository.ErrNotFound
	}

	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if fields.Email != nil {
		set("email", *fields.Email)
	}
	if fields.Name != nil {
		set("name", *fields.Name)
	}
	if fields.IsActive != nil {
		set("is_active", *fields.IsActive)
	}
	if fields.UpdatedAt != nil {
		set("updated_at", *fields.UpdatedAt)
	}
	if fields.DeletedAt != nil {
		set("deleted_at", *fields.DeletedAt)
	}
	if len(sets) == 0 {
		return r.FindOne(ctx, repository.UserFilter{ID: id})
	}

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d AND deleted_at IS NULL RETURNING %s`,
		strings.Join(sets, ", "), len(args), userColumns)

	stored, err := scanUser(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, repository.ErrNotFound
		case isUniqueViolation(err):
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return stored, nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func whereClause(f repository.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	eq := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.ID != "" {
		eq("id", f.ID)
	}
	if f.Email != "" {
		eq("email", f.Email)
	}
	if f.Active != nil {
		eq("is_active", *f.Active)
	}
	if !f.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ids are uuid columns; anything else can't match and would only raise 22P02.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
