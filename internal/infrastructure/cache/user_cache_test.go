package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oksasatya/grpc-user-service/internal/domain/entity"
)

// A disabled cache must behave as a permanent miss, never panic.
func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()

	for name, c := range map[string]*UserCache{
		"nil receiver": nil,
		"nil client":   NewUserCache(nil, 0, nil),
	} {
		t.Run(name, func(t *testing.T) {
			require.False(t, c.Enabled())

			u, ok := c.GetByID(ctx, 1)
			require.False(t, ok)
			require.Nil(t, u)

			u, ok = c.GetByEmail(ctx, "alice@example.com")
			require.False(t, ok)
			require.Nil(t, u)

			users, ok := c.GetStatusList(ctx, entity.StatusActive)
			require.False(t, ok)
			require.Nil(t, users)

			n, ok := c.GetCount(ctx, entity.StatusActive)
			require.False(t, ok)
			require.Zero(t, n)

			c.SetByID(ctx, &entity.User{ID: 1})
			c.SetByEmail(ctx, &entity.User{ID: 1, Email: "alice@example.com"})
			c.SetStatusList(ctx, entity.StatusActive, nil)
			c.SetCount(ctx, entity.StatusActive, 3)
			c.EvictUser(ctx, 1, "alice@example.com")
			c.EvictCollections(ctx)
		})
	}
}

func TestKeyLayout(t *testing.T) {
	require.Equal(t, "user:id:42", userIDKey(42))
	require.Equal(t, "user:email:alice@example.com", userEmailKey("alice@example.com"))
	require.Equal(t, "users:status:ACTIVE", statusKey(entity.StatusActive))
	require.Equal(t, "users:count:DELETED", countKey(entity.StatusDeleted))
}
