// Package grpcclient wraps the generated-style stub with blocking helpers.
// The HTTP test façade uses it to exercise the RPC surface end to end.
package grpcclient

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/oksasatya/grpc-user-service/pkg/userpb"
)

type Client struct {
	conn *grpc.ClientConn
	stub userpb.UserServiceClient
}

// New dials the user service in plaintext and selects the JSON codec for
// every call.
func New(target string) (*Client, error) {
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(userpb.CodecName)),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, stub: userpb.NewUserServiceClient(conn)}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) CreateUser(ctx context.Context, name, email string, age int32, phone string) (*userpb.CreateUserResponse, error) {
	return c.stub.CreateUser(ctx, &userpb.CreateUserRequest{
		Name:  name,
		Email: email,
		Age:   age,
		Phone: phone,
	})
}

func (c *Client) GetUser(ctx context.Context, userID int64) (*userpb.GetUserResponse, error) {
	return c.stub.GetUser(ctx, &userpb.GetUserRequest{UserId: userID})
}

// ListUsers drains the server stream and returns the collected items.
func (c *Client) ListUsers(ctx context.Context, page, pageSize int32) ([]*userpb.UserInfo, error) {
	stream, err := c.stub.ListUsers(ctx, &userpb.ListUsersRequest{Page: page, PageSize: pageSize})
	if err != nil {
		return nil, err
	}
	return drain(stream)
}

func (c *Client) UpdateUser(ctx context.Context, userID int64, name, email string, age int32, phone string) (*userpb.UpdateUserResponse, error) {
	return c.stub.UpdateUser(ctx, &userpb.UpdateUserRequest{
		UserId: userID,
		Name:   name,
		Email:  email,
		Age:    age,
		Phone:  phone,
	})
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) (*userpb.DeleteUserResponse, error) {
	return c.stub.DeleteUser(ctx, &userpb.DeleteUserRequest{UserId: userID})
}

func (c *Client) SearchUsers(ctx context.Context, keyword string, limit int32) ([]*userpb.UserInfo, error) {
	stream, err := c.stub.SearchUsers(ctx, &userpb.SearchUsersRequest{Keyword: keyword, Limit: limit})
	if err != nil {
		return nil, err
	}
	return drain(stream)
}

type recvStream interface {
	Recv() (*userpb.UserResponse, error)
}

func drain(stream recvStream) ([]*userpb.UserInfo, error) {
	users := make([]*userpb.UserInfo, 0)
	for {
		item, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return users, nil
		}
		if err != nil {
			return nil, err
		}
		users = append(users, item.User)
	}
}
