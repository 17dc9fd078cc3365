package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain/repository"
)

const userColumns = `id, email, name, is_active, created_at, updated_at, deleted_at`

// userRow mirrors the table; timestamps are stored as unix nanoseconds.
type userRow struct {
	ID        string        `db:"id"`
	Email     string        `db:"email"`
	Name      string        `db:"name"`
	IsActive  bool          `db:"is_active"`
	CreatedAt int64         `db:"created_at"`
	UpdatedAt sql.NullInt64 `db:"updated_at"`
	DeletedAt sql.NullInt64 `db:"deleted_at"`
}

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindOne(ctx context.Context, f repository.UserFilter) (*entity.User, error) {
	where, args := whereClause(f)

	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users`+where+` LIMIT 1`, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.toEntity(), nil
}

func (r *UserRepository) FindPage(ctx context.Context, f repository.UserFilter, limit, offset int) ([]*entity.User, error) {
	where, args := whereClause(f)
	args = append(args, limit, offset)

	var rows []userRow
	q := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY rowid ASC LIMIT ? OFFSET ?`
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}

	users := make([]*entity.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toEntity())
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context, f repository.UserFilter) (int, error) {
	where, args := whereClause(f)
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`+where, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) (*entity.User, error) {
	row := fromEntity(u)
	const q = `INSERT INTO users (id, email, name, is_active, created_at, updated_at, deleted_at)
		VALUES (:id, :email, :name, :is_active, :created_at, :updated_at, :deleted_at)`

	if _, err := r.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return r.FindOne(ctx, repository.UserFilter{ID: u.ID})
}

// UpdateFields runs the update and the read-back in one transaction so the
// returned row is the one this call wrote.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields repository.UserFields) (*entity.User, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
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
		set("updated_at", fields.UpdatedAt.UnixNano())
	}
	if fields.DeletedAt != nil {
		set("deleted_at", fields.DeletedAt.UnixNano())
	}
	if len(sets) == 0 {
		return r.FindOne(ctx, repository.UserFilter{ID: id})
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	args = append(args, id)
	q := fmt.Sprintf(`UPDATE users SET %s WHERE id = ? AND deleted_at IS NULL`, strings.Join(sets, ", "))
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, repository.ErrNotFound
	}

	var row userRow
	if err := tx.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func whereClause(f repository.UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.ID != "" {
		conds = append(conds, "id = ?")
		args = append(args, f.ID)
	}
	if f.Email != "" {
		conds = append(conds, "email = ?")
		args = append(args, f.Email)
	}
	if f.Active != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *f.Active)
	}
	if !f.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func fromEntity(u *entity.User) userRow {
	row := userRow{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UnixNano(),
	}
	if u.UpdatedAt != nil {
		row.UpdatedAt = sql.NullInt64{Int64: u.UpdatedAt.UnixNano(), Valid: true}
	}
	if u.DeletedAt != nil {
		row.DeletedAt = sql.NullInt64{Int64: u.DeletedAt.UnixNano(), Valid: true}
	}
	return row
}

func (row userRow) toEntity() *entity.User {
	u := &entity.User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		IsActive:  row.IsActive,
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
	}
	if row.UpdatedAt.Valid {
		t := time.Unix(0, row.UpdatedAt.Int64).UTC()
		u.UpdatedAt = &t
	}
	if row.DeletedAt.Valid {
		t := time.Unix(0, row.DeletedAt.Int64).UTC()
		u.DeletedAt = &t
	}
	return u
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ repository.UserRepository = (*UserRepository)(nil)
