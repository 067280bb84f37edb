// Package userpb holds the wire types and the gRPC service definition for
// the user service. Messages are exchanged with the JSON codec registered in
// codec.go instead of protoc-generated code; api/user.proto documents the
// contract the types mirror.
package userpb

// UserInfo is the user record as it appears on the wire. CreatedTime and
// UpdatedTime are epoch milliseconds in UTC; an unset timestamp is 0.
type UserInfo struct {
	Id          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Age         int32  `json:"age"`
	Phone       string `json:"phone"`
	CreatedTime int64  `json:"createdTime"`
	UpdatedTime int64  `json:"updatedTime"`
	Status      string `json:"status"`
}

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int32  `json:"age"`
	Phone string `json:"phone"`
}

type CreateUserResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	User    *UserInfo `json:"user,omitempty"`
}

type GetUserRequest struct {
	UserId int64 `json:"userId"`
}

type GetUserResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	User    *UserInfo `json:"user,omitempty"`
}

// ListUsersRequest pages through active users. Page is 1-based; the server
// clamps PageSize to at most 100 and defaults it to 20.
type ListUsersRequest struct {
	Page     int32 `json:"page"`
	PageSize int32 `json:"pageSize"`
}

// UserResponse is a single item of a streamed listing.
type UserResponse struct {
	User *UserInfo `json:"user,omitempty"`
}

// UpdateUserRequest is a partial update: empty strings and zero age mean
// "leave unchanged".
type UpdateUserRequest struct {
	UserId int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Age    int32  `json:"age"`
	Phone  string `json:"phone"`
}

type UpdateUserResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	User    *UserInfo `json:"user,omitempty"`
}

type DeleteUserRequest struct {
	UserId int64 `json:"userId"`
}

type DeleteUserResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SearchUsersRequest struct {
	Keyword string `json:"keyword"`
	Limit   int32  `json:"limit"`
}
