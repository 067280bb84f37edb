package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/oksasatya/grpc-user-service/internal/application"
	"github.com/oksasatya/grpc-user-service/internal/domain/entity"
	"github.com/oksasatya/grpc-user-service/pkg/userpb"
)

const internalErrMsg = "internal server error"

// UserService is the slice of the domain service the façade needs.
type UserService interface {
	CreateUser(ctx context.Context, in application.CreateUserInput) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	Page(ctx context.Context, page, pageSize int) ([]*entity.User, error)
	UpdateUser(ctx context.Context, id int64, in application.UpdateUserInput) (*entity.User, error)
	DeleteUser(ctx context.Context, id int64) (bool, error)
	SearchByName(ctx context.Context, fragment string) ([]*entity.User, error)
}

// UserServer translates wire messages to domain calls and back. It is
// stateless apart from its collaborators; every inbound call runs on its own
// goroutine under the grpc runtime.
type UserServer struct {
	Svc    UserService
	Logger *logrus.Logger

	// StreamDelay paces streamed items to bound downstream consumption;
	// zero disables pacing.
	StreamDelay time.Duration
}

func NewUserServer(svc UserService, logger *logrus.Logger, streamDelay time.Duration) *UserServer {
	return &UserServer{Svc: svc, Logger: logger, StreamDelay: streamDelay}
}

// clientFault reports whether the error should be surfaced to the caller
// verbatim via the success/message envelope rather than a transport error.
func clientFault(err error) bool {
	return application.IsValidation(err) ||
		errors.Is(err, application.ErrDuplicateEmail) ||
		errors.Is(err, application.ErrNotFound) ||
		errors.Is(err, application.ErrUpdateConflict)
}

func (s *UserServer) CreateUser(ctx context.Context, req *userpb.CreateUserRequest) (*userpb.CreateUserResponse, error) {
	s.Logger.WithField("email", req.Email).Info("grpc create user")

	u, err := s.Svc.CreateUser(ctx, application.CreateUserInput{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Age:   req.Age,
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		if clientFault(err) {
			s.Logger.WithError(err).Warn("create user rejected")
			return &userpb.CreateUserResponse{Success: false, Message: err.Error()}, nil
		}
		s.Logger.WithError(err).Error("create user failed")
		return &userpb.CreateUserResponse{Success: false, Message: internalErrMsg}, nil
	}

	return &userpb.CreateUserResponse{
		Success: true,
		Message: "user created",
		User:    ToProto(u),
	}, nil
}

func (s *UserServer) GetUser(ctx context.Context, req *userpb.GetUserRequest) (*userpb.GetUserResponse, error) {
	s.Logger.WithField("user_id", req.UserId).Debug("grpc get user")

	u, err := s.Svc.GetByID(ctx, req.UserId)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			return &userpb.GetUserResponse{Success: false, Message: "user not found"}, nil
		}
		s.Logger.WithError(err).WithField("user_id", req.UserId).Error("get user failed")
		return nil, status.Error(codes.Internal, internalErrMsg)
	}

	return &userpb.GetUserResponse{
		Success: true,
		Message: "user found",
		User:    ToProto(u),
	}, nil
}

func (s *UserServer) ListUsers(req *userpb.ListUsersRequest, stream userpb.UserService_ListUsersServer) error {
	s.Logger.WithFields(logrus.Fields{"page": req.Page, "page_size": req.PageSize}).Debug("grpc list users")

	users, err := s.Svc.Page(stream.Context(), int(req.Page), int(req.PageSize))
	if err != nil {
		s.Logger.WithError(err).Error("list users failed")
		return status.Error(codes.Internal, internalErrMsg)
	}
	return s.sendAll(stream.Context(), users, stream.Send)
}

func (s *UserServer) UpdateUser(ctx context.Context, req *userpb.UpdateUserRequest) (*userpb.UpdateUserResponse, error) {
	s.Logger.WithField("user_id", req.UserId).Info("grpc update user")

	u, err := s.Svc.UpdateUser(ctx, req.UserId, application.UpdateUserInput{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Age:   req.Age,
		Phone: strings.TrimSpace(req.Phone),
	})
	if err != nil {
		if clientFault(err) {
			s.Logger.WithError(err).WithField("user_id", req.UserId).Warn("update user rejected")
			return &userpb.UpdateUserResponse{Success: false, Message: err.Error()}, nil
		}
		s.Logger.WithError(err).WithField("user_id", req.UserId).Error("update user failed")
		return &userpb.UpdateUserResponse{Success: false, Message: internalErrMsg}, nil
	}

	return &userpb.UpdateUserResponse{
		Success: true,
		Message: "user updated",
		User:    ToProto(u),
	}, nil
}

func (s *UserServer) DeleteUser(ctx context.Context, req *userpb.DeleteUserRequest) (*userpb.DeleteUserResponse, error) {
	s.Logger.WithField("user_id", req.UserId).Info("grpc delete user")

	deleted, err := s.Svc.DeleteUser(ctx, req.UserId)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", req.UserId).Error("delete user failed")
		return nil, status.Error(codes.Internal, internalErrMsg)
	}

	msg := "user deleted"
	if !deleted {
		msg = "user not found"
	}
	return &userpb.DeleteUserResponse{Success: deleted, Message: msg}, nil
}

func (s *UserServer) SearchUsers(req *userpb.SearchUsersRequest, stream userpb.UserService_SearchUsersServer) error {
	s.Logger.WithField("keyword", req.Keyword).Debug("grpc search users")

	users, err := s.Svc.SearchByName(stream.Context(), req.Keyword)
	if err != nil {
		s.Logger.WithError(err).Error("search users failed")
		return status.Error(codes.Internal, internalErrMsg)
	}
	if req.Limit > 0 && int(req.Limit) < len(users) {
		users = users[:req.Limit]
	}
	return s.sendAll(stream.Context(), users, stream.Send)
}

// sendAll emits users one at a time in the order the service returned them,
// stopping as soon as the caller goes away. Pacing sleeps only this stream's
// goroutine.
func (s *UserServer) sendAll(ctx context.Context, users []*entity.User, send func(*userpb.UserResponse) error) error {
	for i, u := range users {
		if err := ctx.Err(); err != nil {
			return status.FromContextError(err).Err()
		}
		if err := send(&userpb.UserResponse{User: ToProto(u)}); err != nil {
			return err
		}
		if s.StreamDelay > 0 && i < len(users)-1 {
			select {
			case <-ctx.Done():
				return status.FromContextError(ctx.Err()).Err()
			case <-time.After(s.StreamDelay):
			}
		}
	}
	return nil
}

var _ userpb.UserServiceServer = (*UserServer)(nil)
