package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/grpc-user-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned by Update when the stored version no longer
	// matches the version supplied by the caller.
	ErrConflict = errors.New("user version conflict")
	// ErrDuplicateEmail is returned when the partial unique index on email
	// rejects a write.
	ErrDuplicateEmail = errors.New("email already in use")
)

// UserRepository is the persistence contract for the users table. It enforces
// no business rules; callers decide what a missing row or a conflict means.
type UserRepository interface {
	// Insert assigns ID, timestamps and version 0 on the given user in place.
	Insert(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id int64, includeDeleted bool) (*entity.User, error)
	GetByEmail(ctx context.Context, email string, includeDeleted bool) (*entity.User, error)
	// ExistsByEmailExcluding reports whether the email is used by a
	// non-deleted user other than excludeID.
	ExistsByEmailExcluding(ctx context.Context, email string, excludeID int64) (bool, error)
	ListByStatus(ctx context.Context, status entity.UserStatus) ([]*entity.User, error)
	// PageByStatus returns the pageIndex-th (0-based) page ordered by
	// created_at descending.
	PageByStatus(ctx context.Context, status entity.UserStatus, pageIndex, pageSize int) ([]*entity.User, error)
	CountByStatus(ctx context.Context, status entity.UserStatus) (int64, error)
	// Update is a conditional write on u.Version. On success it refreshes
	// UpdatedAt and Version in place; on a version mismatch it returns
	// ErrConflict and leaves the row untouched.
	Update(ctx context.Context, u *entity.User) error
	// SearchByName matches the fragment case-insensitively against name,
	// excluding deleted users, ordered by created_at descending.
	SearchByName(ctx context.Context, fragment string) ([]*entity.User, error)
	RecentByStatus(ctx context.Context, status entity.UserStatus, limit int) ([]*entity.User, error)
}
