package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/grpc-user-service/internal/application"
	"github.com/oksasatya/grpc-user-service/internal/domain/entity"
	"github.com/oksasatya/grpc-user-service/pkg/helpers"
)

var _ application.UserCache = (*UserCache)(nil)

// UserCache is a read-aside view of the users table with three key spaces:
// single users by id, single users by email, and per-status collections plus
// counts. The backing store stays the source of truth; losing every key only
// costs extra round-trips.
//
// Collection membership changes on any write, so writers evict the whole
// collection key space instead of computing deltas. Statuses are a closed
// set, which keeps that a fixed multi-key DEL.
type UserCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewUserCache builds a cache around rdb. A zero ttl means entries live until
// the next write-triggered eviction. A nil rdb disables the cache entirely,
// which unit tests rely on.
func NewUserCache(rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *UserCache {
	return &UserCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *UserCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

func userIDKey(id int64) string {
	return "user:id:" + strconv.FormatInt(id, 10)
}

func userEmailKey(email string) string {
	return "user:email:" + email
}

func statusKey(status entity.UserStatus) string {
	return "users:status:" + string(status)
}

func countKey(status entity.UserStatus) string {
	return "users:count:" + string(status)
}

func (c *UserCache) warn(op, key string, err error) {
	if c.logger != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{"op": op, "key": key}).Warn("user cache unavailable")
	}
}

// GetByID returns the cached user and whether the lookup hit.
func (c *UserCache) GetByID(ctx context.Context, id int64) (*entity.User, bool) {
	if !c.Enabled() {
		return nil, false
	}
	var u entity.User
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, userIDKey(id), &u)
	if err != nil {
		c.warn("get", userIDKey(id), err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &u, true
}

func (c *UserCache) SetByID(ctx context.Context, u *entity.User) {
	if !c.Enabled() || u == nil {
		return
	}
	if err := helpers.RedisSetJSON(ctx, c.rdb, userIDKey(u.ID), u, c.ttl); err != nil {
		c.warn("set", userIDKey(u.ID), err)
	}
}

func (c *UserCache) GetByEmail(ctx context.Context, email string) (*entity.User, bool) {
	if !c.Enabled() {
		return nil, false
	}
	var u entity.User
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, userEmailKey(email), &u)
	if err != nil {
		c.warn("get", userEmailKey(email), err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return &u, true
}

func (c *UserCache) SetByEmail(ctx context.Context, u *entity.User) {
	if !c.Enabled() || u == nil {
		return
	}
	if err := helpers.RedisSetJSON(ctx, c.rdb, userEmailKey(u.Email), u, c.ttl); err != nil {
		c.warn("set", userEmailKey(u.Email), err)
	}
}

func (c *UserCache) GetStatusList(ctx context.Context, status entity.UserStatus) ([]*entity.User, bool) {
	if !c.Enabled() {
		return nil, false
	}
	var users []*entity.User
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, statusKey(status), &users)
	if err != nil {
		c.warn("get", statusKey(status), err)
		return nil, false
	}
	return users, ok
}

func (c *UserCache) SetStatusList(ctx context.Context, status entity.UserStatus, users []*entity.User) {
	if !c.Enabled() {
		return
	}
	if err := helpers.RedisSetJSON(ctx, c.rdb, statusKey(status), users, c.ttl); err != nil {
		c.warn("set", statusKey(status), err)
	}
}

func (c *UserCache) GetCount(ctx context.Context, status entity.UserStatus) (int64, bool) {
	if !c.Enabled() {
		return 0, false
	}
	var n int64
	ok, err := helpers.RedisGetJSON(ctx, c.rdb, countKey(status), &n)
	if err != nil {
		c.warn("get", countKey(status), err)
		return 0, false
	}
	return n, ok
}

func (c *UserCache) SetCount(ctx context.Context, status entity.UserStatus, n int64) {
	if !c.Enabled() {
		return
	}
	if err := helpers.RedisSetJSON(ctx, c.rdb, countKey(status), n, c.ttl); err != nil {
		c.warn("set", countKey(status), err)
	}
}

// EvictUser drops the id and email entries for a single user. Callers invoke
// it strictly after the store write commits.
func (c *UserCache) EvictUser(ctx context.Context, id int64, email string) {
	if !c.Enabled() {
		return
	}
	keys := []string{userIDKey(id)}
	if email != "" {
		keys = append(keys, userEmailKey(email))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.warn("evict", userIDKey(id), err)
	}
}

// EvictCollections drops every status collection and count entry.
func (c *UserCache) EvictCollections(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	statuses := []entity.UserStatus{entity.StatusActive, entity.StatusInactive, entity.StatusDeleted}
	keys := make([]string, 0, len(statuses)*2)
	for _, s := range statuses {
		keys = append(keys, statusKey(s), countKey(s))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.warn("evict", "users:status:*", err)
	}
}
