package application

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/grpc-user-service/internal/domain/entity"
	repo "github.com/oksasatya/grpc-user-service/internal/domain/repository"
	"github.com/oksasatya/grpc-user-service/pkg/validation"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrUpdateConflict means another writer updated the row between our read
	// and our conditional write. Callers should reload and retry; the service
	// never retries on its own.
	ErrUpdateConflict = errors.New("user was modified concurrently")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	defaultRecent   = 10
)

// ValidationError reports client-correctable input problems.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func newValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// CreateUserInput carries the fields a caller may set on creation. Status is
// not included; new users are always ACTIVE.
type CreateUserInput struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Age   int32  `json:"age" validate:"gte=0"`
	Phone string `json:"phone"`
}

// UpdateUserInput is a partial update: empty strings and a non-positive age
// mean "leave the current value alone". Setting age to 0 or clearing a field
// through this path is therefore not possible; that mirrors the wire
// contract, where absent proto3 fields arrive as zero values.
type UpdateUserInput struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Age   int32  `json:"age"`
	Phone string `json:"phone"`
}

// UserCache is the read-aside view the service coordinates with the store.
// Get methods report a miss as ok=false; Set and Evict methods are
// best-effort and must never fail the calling operation.
type UserCache interface {
	GetByID(ctx context.Context, id int64) (*entity.User, bool)
	SetByID(ctx context.Context, u *entity.User)
	GetStatusList(ctx context.Context, status entity.UserStatus) ([]*entity.User, bool)
	SetStatusList(ctx context.Context, status entity.UserStatus, users []*entity.User)
	GetCount(ctx context.Context, status entity.UserStatus) (int64, bool)
	SetCount(ctx context.Context, status entity.UserStatus, n int64)
	EvictUser(ctx context.Context, id int64, email string)
	EvictCollections(ctx context.Context)
}

// Service enforces the user business rules and mediates between the cache
// and the backing store. All writes go store-first; cache eviction follows
// the commit, never precedes it. A nil cache disables caching.
type Service struct {
	Repo   repo.UserRepository
	Cache  UserCache
	Logger *logrus.Logger

	validate *validator.Validate
}

func NewService(r repo.UserRepository, c UserCache, logger *logrus.Logger) *Service {
	return &Service{
		Repo:     r,
		Cache:    c,
		Logger:   logger,
		validate: validation.New(),
	}
}

func (s *Service) checkInput(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return newValidationError(validation.FirstMessage(err))
	}
	return nil
}

// evictAfterWrite drops the single-user entries plus every collection entry.
// Collection membership may have changed on any write, so the whole
// collection key space goes.
func (s *Service) evictAfterWrite(ctx context.Context, id int64, emails ...string) {
	if s.Cache == nil {
		return
	}
	for _, email := range emails {
		s.Cache.EvictUser(ctx, id, email)
	}
	if len(emails) == 0 {
		s.Cache.EvictUser(ctx, id, "")
	}
	s.Cache.EvictCollections(ctx)
}

// CreateUser validates input, enforces email uniqueness among non-deleted
// users and stores the new record with status ACTIVE.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	// Uniqueness check goes straight to the store; a stale cached entry must
	// not hide a live duplicate.
	_, err := s.Repo.GetByEmail(ctx, in.Email, false)
	switch {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, repo.ErrNotFound):
		return nil, err
	}

	u := &entity.User{
		Name:   in.Name,
		Email:  in.Email,
		Age:    in.Age,
		Phone:  in.Phone,
		Status: entity.StatusActive,
	}
	if err := s.Repo.Insert(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	s.evictAfterWrite(ctx, u.ID, u.Email)
	s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user created")
	return u, nil
}

// GetByID reads through the id cache, excluding deleted users.
func (s *Service) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if s.Cache != nil {
		if u, ok := s.Cache.GetByID(ctx, id); ok && !u.IsDeleted() {
			return u, nil
		}
	}

	u, err := s.Repo.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.SetByID(ctx, u)
	}
	return u, nil
}

// GetByEmail excludes deleted users. It reads the store directly; the email
// key space exists for eviction scope, and routing reads around it keeps the
// uniqueness path free of staleness.
func (s *Service) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// ListActive returns all ACTIVE users through the status-collection cache.
func (s *Service) ListActive(ctx context.Context) ([]*entity.User, error) {
	if s.Cache != nil {
		if users, ok := s.Cache.GetStatusList(ctx, entity.StatusActive); ok {
			return users, nil
		}
	}
	users, err := s.Repo.ListByStatus(ctx, entity.StatusActive)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.SetStatusList(ctx, entity.StatusActive, users)
	}
	return users, nil
}

// Page returns a page of ACTIVE users ordered by creation time descending.
// The page argument is 1-based; out-of-range arguments are clamped, never
// rejected: page <= 0 becomes page 1, pageSize <= 0 becomes 20, pageSize is
// capped at 100.
func (s *Service) Page(ctx context.Context, page, pageSize int) ([]*entity.User, error) {
	pageIndex := page - 1
	if pageIndex < 0 {
		pageIndex = 0
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	} else if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.Repo.PageByStatus(ctx, entity.StatusActive, pageIndex, pageSize)
}

// UpdateUser merges the supplied fields into the stored record and submits a
// conditional write with the version read at load time. A concurrent writer
// surfaces as ErrUpdateConflict.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*entity.User, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	u, err := s.Repo.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	prevEmail := u.Email

	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Email != "" && in.Email != u.Email {
		taken, err := s.Repo.ExistsByEmailExcluding(ctx, in.Email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateEmail
		}
		u.Email = in.Email
	}
	if in.Age > 0 {
		u.Age = in.Age
	}
	if in.Phone != "" {
		u.Phone = in.Phone
	}

	if err := s.Repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repo.ErrConflict):
			return nil, ErrUpdateConflict
		case errors.Is(err, repo.ErrDuplicateEmail):
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	s.evictAfterWrite(ctx, u.ID, prevEmail, u.Email)
	s.Logger.WithField("user_id", u.ID).Info("user updated")
	return u, nil
}

// DeleteUser flips the user's status to DELETED through the conditional-write
// path. A missing or already-deleted user yields false without error; the two
// cases are deliberately indistinguishable.
func (s *Service) DeleteUser(ctx context.Context, id int64) (bool, error) {
	u, err := s.Repo.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Logger.WithField("user_id", id).Warn("delete requested for missing user")
			return false, nil
		}
		return false, err
	}

	u.SoftDelete()
	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return false, ErrUpdateConflict
		}
		return false, err
	}

	s.evictAfterWrite(ctx, u.ID, u.Email)
	s.Logger.WithField("user_id", id).Info("user soft-deleted")
	return true, nil
}

// EmailExists is a pre-check for callers that want to know whether an email
// is taken without mutating anything. excludeID <= 0 means "no exclusion".
func (s *Service) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	if excludeID > 0 {
		return s.Repo.ExistsByEmailExcluding(ctx, email, excludeID)
	}
	_, err := s.Repo.GetByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CountActive returns the number of ACTIVE users through the count cache.
func (s *Service) CountActive(ctx context.Context) (int64, error) {
	if s.Cache != nil {
		if n, ok := s.Cache.GetCount(ctx, entity.StatusActive); ok {
			return n, nil
		}
	}
	n, err := s.Repo.CountByStatus(ctx, entity.StatusActive)
	if err != nil {
		return 0, err
	}
	if s.Cache != nil {
		s.Cache.SetCount(ctx, entity.StatusActive, n)
	}
	return n, nil
}

// RecentActive returns the most recently created ACTIVE users. The limit is
// clamped the same way page sizes are.
func (s *Service) RecentActive(ctx context.Context, limit int) ([]*entity.User, error) {
	if limit <= 0 {
		limit = defaultRecent
	} else if limit > maxPageSize {
		limit = maxPageSize
	}
	return s.Repo.RecentByStatus(ctx, entity.StatusActive, limit)
}

// SearchByName matches the fragment case-insensitively against user names,
// excluding deleted users.
func (s *Service) SearchByName(ctx context.Context, fragment string) ([]*entity.User, error) {
	return s.Repo.SearchByName(ctx, fragment)
}
