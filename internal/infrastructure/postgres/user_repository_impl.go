package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/grpc-user-service/internal/domain/entity"
	"github.com/oksasatya/grpc-user-service/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = "id, name, email, age, phone, status, created_at, updated_at, version"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Age, &u.Phone, &u.Status,
		&u.CreatedAt, &u.UpdatedAt, &u.Version)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func collectUsers(rows pgx.Rows) ([]*entity.User, error) {
	defer rows.Close()
	users := make([]*entity.User, 0)
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

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, age, phone, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at, version
	`, u.Name, u.Email, u.Age, u.Phone, u.Status)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Version); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64, includeDeleted bool) (*entity.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE id = $1"
	if !includeDeleted {
		q += " AND status <> 'DELETED'"
	}
	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string, includeDeleted bool) (*entity.User, error) {
	q := "SELECT " + userColumns + " FROM users WHERE email = $1"
	if !includeDeleted {
		q += " AND status <> 'DELETED'"
	}
	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) ExistsByEmailExcluding(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE email = $1 AND id <> $2 AND status <> 'DELETED'
		)
	`, email, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("email exists check: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) ListByStatus(ctx context.Context, status entity.UserStatus) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE status = $1
		ORDER BY created_at DESC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("list users by status: %w", err)
	}
	return collectUsers(rows)
}

func (r *UserRepository) PageByStatus(ctx context.Context, status entity.UserStatus, pageIndex, pageSize int) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, status, pageSize, pageIndex*pageSize)
	if err != nil {
		return nil, fmt.Errorf("page users by status: %w", err)
	}
	return collectUsers(rows)
}

func (r *UserRepository) CountByStatus(ctx context.Context, status entity.UserStatus) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE status = $1`, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users by status: %w", err)
	}
	return n, nil
}

// Update applies a conditional write: the row is only touched when the stored
// version equals u.Version. Rows are never removed, so zero affected rows
// always means a concurrent writer won.
func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $1, email = $2, age = $3, phone = $4, status = $5,
		    updated_at = now(), version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING updated_at, version
	`, u.Name, u.Email, u.Age, u.Phone, u.Status, u.ID, u.Version)

	if err := row.Scan(&u.UpdatedAt, &u.Version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrConflict
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// likeEscaper neutralizes LIKE metacharacters so a fragment such as "100%"
// matches literally instead of as a wildcard pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(fragment string) string {
	return likeEscaper.Replace(fragment)
}

func (r *UserRepository) SearchByName(ctx context.Context, fragment string) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE name ILIKE '%' || $1 || '%' ESCAPE '\' AND status <> 'DELETED'
		ORDER BY created_at DESC
	`, escapeLike(fragment))
	if err != nil {
		return nil, fmt.Errorf("search users by name: %w", err)
	}
	return collectUsers(rows)
}

func (r *UserRepository) RecentByStatus(ctx context.Context, status entity.UserStatus, limit int) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("recent users by status: %w", err)
	}
	return collectUsers(rows)
}

var _ repository.UserRepository = (*UserRepository)(nil)
