package application

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/grpc-user-service/internal/domain/entity"
	repo "github.com/oksasatya/grpc-user-service/internal/domain/repository"
)

// fakeRepo is an in-memory UserRepository with the same conditional-write
// semantics as the Postgres implementation.
type fakeRepo struct {
	mu    sync.Mutex
	seq   int64
	base  time.Time
	users map[int64]*entity.User

	forceConflict bool
	lastPageIndex int
	lastPageSize  int
	lastLimit     int
	getByIDCalls  int
	listCalls     int
	countCalls    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		base:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		users: make(map[int64]*entity.User),
	}
}

func clone(u *entity.User) *entity.User {
	cp := *u
	return &cp
}

func (f *fakeRepo) emailTaken(email string, excludeID int64) bool {
	for _, u := range f.users {
		if u.Email == email && u.ID != excludeID && !u.IsDeleted() {
			return true
		}
	}
	return false
}

func (f *fakeRepo) Insert(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailTaken(u.Email, 0) {
		return repo.ErrDuplicateEmail
	}
	f.seq++
	u.ID = f.seq
	u.CreatedAt = f.base.Add(time.Duration(f.seq) * time.Minute)
	u.UpdatedAt = u.CreatedAt
	u.Version = 0
	f.users[u.ID] = clone(u)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id int64, includeDeleted bool) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getByIDCalls++
	u, ok := f.users[id]
	if !ok || (!includeDeleted && u.IsDeleted()) {
		return nil, repo.ErrNotFound
	}
	return clone(u), nil
}

func (f *fakeRepo) GetByEmail(_ context.Context, email string, includeDeleted bool) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && (includeDeleted || !u.IsDeleted()) {
			return clone(u), nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeRepo) ExistsByEmailExcluding(_ context.Context, email string, excludeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emailTaken(email, excludeID), nil
}

func (f *fakeRepo) byStatusDesc(status entity.UserStatus) []*entity.User {
	out := make([]*entity.User, 0)
	for _, u := range f.users {
		if u.Status == status {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (f *fakeRepo) ListByStatus(_ context.Context, status entity.UserStatus) ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.byStatusDesc(status), nil
}

func (f *fakeRepo) PageByStatus(_ context.Context, status entity.UserStatus, pageIndex, pageSize int) ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPageIndex = pageIndex
	f.lastPageSize = pageSize
	all := f.byStatusDesc(status)
	start := pageIndex * pageSize
	if start >= len(all) {
		return []*entity.User{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeRepo) CountByStatus(_ context.Context, status entity.UserStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	var n int64
	for _, u := range f.users {
		if u.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) Update(_ context.Context, u *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forceConflict {
		return repo.ErrConflict
	}
	stored, ok := f.users[u.ID]
	if !ok || stored.Version != u.Version {
		return repo.ErrConflict
	}
	if f.emailTaken(u.Email, u.ID) {
		return repo.ErrDuplicateEmail
	}
	u.Version++
	u.UpdatedAt = stored.UpdatedAt.Add(time.Minute)
	f.users[u.ID] = clone(u)
	return nil
}

func (f *fakeRepo) SearchByName(_ context.Context, fragment string) ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frag := strings.ToLower(fragment)
	out := make([]*entity.User, 0)
	for _, u := range f.users {
		if u.IsDeleted() {
			continue
		}
		if strings.Contains(strings.ToLower(u.Name), frag) {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeRepo) RecentByStatus(_ context.Context, status entity.UserStatus, limit int) ([]*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	all := f.byStatusDesc(status)
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

var _ repo.UserRepository = (*fakeRepo)(nil)

// spyCache is an in-memory UserCache that behaves like the real one (entries
// stay until evicted) and records every eviction.
type spyCache struct {
	byID   map[int64]*entity.User
	lists  map[entity.UserStatus][]*entity.User
	counts map[entity.UserStatus]int64

	evictUserCalls       int
	evictCollectionCalls int
	evictedEmails        []string
}

func newSpyCache() *spyCache {
	return &spyCache{
		byID:   make(map[int64]*entity.User),
		lists:  make(map[entity.UserStatus][]*entity.User),
		counts: make(map[entity.UserStatus]int64),
	}
}

func (c *spyCache) GetByID(_ context.Context, id int64) (*entity.User, bool) {
	u, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return clone(u), true
}

func (c *spyCache) SetByID(_ context.Context, u *entity.User) {
	c.byID[u.ID] = clone(u)
}

func (c *spyCache) GetStatusList(_ context.Context, status entity.UserStatus) ([]*entity.User, bool) {
	users, ok := c.lists[status]
	return users, ok
}

func (c *spyCache) SetStatusList(_ context.Context, status entity.UserStatus, users []*entity.User) {
	c.lists[status] = users
}

func (c *spyCache) GetCount(_ context.Context, status entity.UserStatus) (int64, bool) {
	n, ok := c.counts[status]
	return n, ok
}

func (c *spyCache) SetCount(_ context.Context, status entity.UserStatus, n int64) {
	c.counts[status] = n
}

func (c *spyCache) EvictUser(_ context.Context, id int64, email string) {
	c.evictUserCalls++
	c.evictedEmails = append(c.evictedEmails, email)
	delete(c.byID, id)
}

func (c *spyCache) EvictCollections(context.Context) {
	c.evictCollectionCalls++
	c.lists = make(map[entity.UserStatus][]*entity.User)
	c.counts = make(map[entity.UserStatus]int64)
}

var _ UserCache = (*spyCache)(nil)

func newTestService() (*Service, *fakeRepo) {
	f := newFakeRepo()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(f, nil, logger), f
}

func newCachedTestService() (*Service, *fakeRepo, *spyCache) {
	f := newFakeRepo()
	c := newSpyCache()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewService(f, c, logger), f, c
}

func mustCreate(t *testing.T, svc *Service, name, email string) *entity.User {
	t.Helper()
	u, err := svc.CreateUser(context.Background(), CreateUserInput{Name: name, Email: email, Age: 30})
	require.NoError(t, err)
	return u
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateUserInput
	}{
		{"empty name", CreateUserInput{Email: "a@example.com"}},
		{"empty email", CreateUserInput{Name: "Alice"}},
		{"bad email", CreateUserInput{Name: "Alice", Email: "not-an-email"}},
		{"negative age", CreateUserInput{Name: "Alice", Email: "a@example.com", Age: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tc.in)
			require.Error(t, err)
			require.True(t, IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreateUserRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserInput{
		Name:  "Alice",
		Email: "alice@example.com",
		Age:   28,
		Phone: "13800000001",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, entity.StatusActive, created.Status)
	require.EqualValues(t, 0, created.Version)
	require.False(t, created.CreatedAt.IsZero())

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Name, got.Name)
	require.Equal(t, created.Email, got.Email)
	require.Equal(t, created.Age, got.Age)
	require.Equal(t, created.Phone, got.Phone)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u := mustCreate(t, svc, "Alice", "alice@example.com")

	_, err := svc.CreateUser(ctx, CreateUserInput{Name: "Other", Email: "alice@example.com"})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	// A soft-deleted user frees the email for reuse.
	deleted, err := svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	again, err := svc.CreateUser(ctx, CreateUserInput{Name: "Other", Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotEqual(t, u.ID, again.ID)
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.GetByID(ctx, 42)
	require.ErrorIs(t, err, ErrNotFound)

	u := mustCreate(t, svc, "Alice", "alice@example.com")
	_, err = svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPageClamping(t *testing.T) {
	svc, f := newTestService()
	ctx := context.Background()

	_, err := svc.Page(ctx, 0, -5)
	require.NoError(t, err)
	require.Equal(t, 0, f.lastPageIndex)
	require.Equal(t, 20, f.lastPageSize)

	_, err = svc.Page(ctx, 2, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, f.lastPageIndex)
	require.Equal(t, 100, f.lastPageSize)
}

func TestPagePagination(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		mustCreate(t, svc, "User", "user"+strings.Repeat("x", i)+"@example.com")
	}

	seen := make(map[int64]bool)
	sizes := []int{10, 10, 5}
	var prev *entity.User
	for page := 1; page <= 3; page++ {
		users, err := svc.Page(ctx, page, 10)
		require.NoError(t, err)
		require.Len(t, users, sizes[page-1])
		for _, u := range users {
			require.False(t, seen[u.ID], "user %d appeared twice", u.ID)
			seen[u.ID] = true
			if prev != nil {
				require.False(t, u.CreatedAt.After(prev.CreatedAt), "ordering broken")
			}
			prev = u
		}
	}
	require.Len(t, seen, 25)
}

func TestUpdateUserPartialMerge(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, CreateUserInput{
		Name: "Alice", Email: "alice@example.com", Age: 28, Phone: "13800000001",
	})
	require.NoError(t, err)

	// Only name supplied: everything else keeps its prior value, including
	// zero age and empty phone which mean "unchanged".
	updated, err := svc.UpdateUser(ctx, u.ID, UpdateUserInput{Name: "Alicia"})
	require.NoError(t, err)
	require.Equal(t, "Alicia", updated.Name)
	require.Equal(t, "alice@example.com", updated.Email)
	require.EqualValues(t, 28, updated.Age)
	require.Equal(t, "13800000001", updated.Phone)
	require.EqualValues(t, 1, updated.Version)

	updated, err = svc.UpdateUser(ctx, u.ID, UpdateUserInput{Age: 29, Phone: "13800000009"})
	require.NoError(t, err)
	require.Equal(t, "Alicia", updated.Name)
	require.EqualValues(t, 29, updated.Age)
	require.Equal(t, "13800000009", updated.Phone)
	require.EqualValues(t, 2, updated.Version)
}

func TestUpdateUserDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mustCreate(t, svc, "Alice", "alice@example.com")
	bob := mustCreate(t, svc, "Bob", "bob@example.com")

	_, err := svc.UpdateUser(ctx, bob.ID, UpdateUserInput{Email: "alice@example.com"})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUpdateUserNotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.UpdateUser(context.Background(), 404, UpdateUserInput{Name: "Nobody"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserConflict(t *testing.T) {
	svc, f := newTestService()
	ctx := context.Background()

	u := mustCreate(t, svc, "Alice", "alice@example.com")

	// Two writers load the same version; the second conditional write loses.
	first, err := f.GetByID(ctx, u.ID, false)
	require.NoError(t, err)
	second, err := f.GetByID(ctx, u.ID, false)
	require.NoError(t, err)

	first.Name = "First"
	require.NoError(t, f.Update(ctx, first))
	require.EqualValues(t, u.Version+1, first.Version)

	second.Name = "Second"
	require.ErrorIs(t, f.Update(ctx, second), repo.ErrConflict)

	// And the service surfaces the repository conflict as ErrUpdateConflict.
	f.forceConflict = true
	_, err = svc.UpdateUser(ctx, u.ID, UpdateUserInput{Name: "Third"})
	require.ErrorIs(t, err, ErrUpdateConflict)
}

func TestDeleteUser(t *testing.T) {
	svc, f := newTestService()
	ctx := context.Background()

	u := mustCreate(t, svc, "Alice", "alice@example.com")

	deleted, err := svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = svc.GetByID(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)

	// The row still exists with status DELETED.
	row, err := f.GetByID(ctx, u.ID, true)
	require.NoError(t, err)
	require.Equal(t, entity.StatusDeleted, row.Status)

	// Deleting again is indistinguishable from deleting a missing user.
	deleted, err = svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = svc.DeleteUser(ctx, 9999)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestEmailExists(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u := mustCreate(t, svc, "Alice", "alice@example.com")

	taken, err := svc.EmailExists(ctx, "alice@example.com", 0)
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = svc.EmailExists(ctx, "alice@example.com", u.ID)
	require.NoError(t, err)
	require.False(t, taken)

	taken, err = svc.EmailExists(ctx, "nobody@example.com", 0)
	require.NoError(t, err)
	require.False(t, taken)
}

func TestSearchByName(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mustCreate(t, svc, "Alice Johnson", "alice@example.com")
	bob := mustCreate(t, svc, "Bob Smith", "bob@example.com")
	mustCreate(t, svc, "alison brown", "alison@example.com")

	users, err := svc.SearchByName(ctx, "ALI")
	require.NoError(t, err)
	require.Len(t, users, 2)

	_, err = svc.DeleteUser(ctx, bob.ID)
	require.NoError(t, err)
	users, err = svc.SearchByName(ctx, "smith")
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestCountActiveAndRecent(t *testing.T) {
	svc, f := newTestService()
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		mustCreate(t, svc, "User", email)
	}

	n, err := svc.CountActive(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	users, err := svc.RecentActive(ctx, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.True(t, users[0].CreatedAt.After(users[1].CreatedAt))

	_, err = svc.RecentActive(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, 10, f.lastLimit)

	_, err = svc.RecentActive(ctx, 500)
	require.NoError(t, err)
	require.Equal(t, 100, f.lastLimit)
}

func TestGetByIDReadsThroughCache(t *testing.T) {
	svc, f, c := newCachedTestService()
	ctx := context.Background()

	u := mustCreate(t, svc, "Alice", "alice@example.com")

	// First read misses the cache and populates it.
	f.getByIDCalls = 0
	_, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.getByIDCalls)
	require.Contains(t, c.byID, u.ID)

	// Second read is served from the cache.
	_, err = svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, f.getByIDCalls)
}

// After an update changes a user's email, a read by id must never return the
// pre-update record, even though it was cached.
func TestGetByIDNeverServesStaleRecordAfterUpdate(t *testing.T) {
	svc, _, c := newCachedTestService()
	ctx := context.Background()

	u := mustCreate(t, svc, "Alice", "alice@example.com")

	got, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", got.Email)
	require.Contains(t, c.byID, u.ID)

	_, err = svc.UpdateUser(ctx, u.ID, UpdateUserInput{Email: "alicia@example.com"})
	require.NoError(t, err)

	got, err = svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alicia@example.com", got.Email)
}

// A cached record must stop being served once the user is soft-deleted.
func TestGetByIDNeverServesDeletedRecord(t *testing.T) {
	svc, _, _ := newCachedTestService()
	ctx := context.Background()

	u := mustCreate(t, svc, "Alice", "alice@example.com")
	_, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)

	deleted, err := svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = svc.GetByID(ctx, u.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWritesEvictUserAndCollections(t *testing.T) {
	svc, _, c := newCachedTestService()
	ctx := context.Background()

	u := mustCreate(t, svc, "Alice", "alice@example.com")
	require.Equal(t, 1, c.evictUserCalls)
	require.Equal(t, 1, c.evictCollectionCalls)

	_, err := svc.UpdateUser(ctx, u.ID, UpdateUserInput{Email: "alicia@example.com"})
	require.NoError(t, err)
	// An email change evicts both the old and the new email entry.
	require.Equal(t, 3, c.evictUserCalls)
	require.Equal(t, 2, c.evictCollectionCalls)
	require.Contains(t, c.evictedEmails, "alice@example.com")
	require.Contains(t, c.evictedEmails, "alicia@example.com")

	_, err = svc.DeleteUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 4, c.evictUserCalls)
	require.Equal(t, 3, c.evictCollectionCalls)
}

func TestListAndCountCachesInvalidatedByWrites(t *testing.T) {
	svc, f, _ := newCachedTestService()
	ctx := context.Background()

	mustCreate(t, svc, "Alice", "alice@example.com")

	users, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	n, err := svc.CountActive(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// Cached: repeating the reads does not touch the store.
	f.listCalls, f.countCalls = 0, 0
	_, err = svc.ListActive(ctx)
	require.NoError(t, err)
	n, err = svc.CountActive(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Zero(t, f.listCalls)
	require.Zero(t, f.countCalls)

	// A write invalidates the collections; the next reads see the new user.
	mustCreate(t, svc, "Bob", "bob@example.com")
	users, err = svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	n, err = svc.CountActive(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
}
