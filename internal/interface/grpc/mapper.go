package grpc

import (
	"time"

	"github.com/oksasatya/grpc-user-service/internal/domain/entity"
	"github.com/oksasatya/grpc-user-service/pkg/userpb"
)

// epochMillis converts a timestamp to UTC epoch milliseconds, preserving the
// "unset timestamp is 0" wire convention.
func epochMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

// ToProto maps a domain user onto its wire representation.
func ToProto(u *entity.User) *userpb.UserInfo {
	if u == nil {
		return nil
	}
	return &userpb.UserInfo{
		Id:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Age:         u.Age,
		Phone:       u.Phone,
		CreatedTime: epochMillis(u.CreatedAt),
		UpdatedTime: epochMillis(u.UpdatedAt),
		Status:      string(u.Status),
	}
}
