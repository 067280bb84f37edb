package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserStatusTransitions(t *testing.T) {
	u := &User{Name: "Alice", Status: StatusActive}
	require.True(t, u.IsActive())
	require.False(t, u.IsDeleted())

	u.SoftDelete()
	require.Equal(t, StatusDeleted, u.Status)
	require.True(t, u.IsDeleted())
	require.False(t, u.IsActive())

	u.Activate()
	require.Equal(t, StatusActive, u.Status)
	require.True(t, u.IsActive())
}
