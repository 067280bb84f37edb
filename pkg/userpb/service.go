package userpb

import (
	"context"

	"google.golang.org/grpc"
)

// Method names as they appear on the wire.
const (
	ServiceName = "user.UserService"

	methodCreateUser  = "/user.UserService/CreateUser"
	methodGetUser     = "/user.UserService/GetUser"
	methodListUsers   = "/user.UserService/ListUsers"
	methodUpdateUser  = "/user.UserService/UpdateUser"
	methodDeleteUser  = "/user.UserService/DeleteUser"
	methodSearchUsers = "/user.UserService/SearchUsers"
)

// UserServiceServer is the server API for the user service.
type UserServiceServer interface {
	CreateUser(ctx context.Context, in *CreateUserRequest) (*CreateUserResponse, error)
	GetUser(ctx context.Context, in *GetUserRequest) (*GetUserResponse, error)
	ListUsers(in *ListUsersRequest, stream UserService_ListUsersServer) error
	UpdateUser(ctx context.Context, in *UpdateUserRequest) (*UpdateUserResponse, error)
	DeleteUser(ctx context.Context, in *DeleteUserRequest) (*DeleteUserResponse, error)
	SearchUsers(in *SearchUsersRequest, stream UserService_SearchUsersServer) error
}

// UserService_ListUsersServer is the server side of the ListUsers stream.
type UserService_ListUsersServer interface {
	Send(*UserResponse) error
	grpc.ServerStream
}

type userServiceListUsersServer struct {
	grpc.ServerStream
}

func (x *userServiceListUsersServer) Send(m *UserResponse) error {
	return x.ServerStream.SendMsg(m)
}

// UserService_SearchUsersServer is the server side of the SearchUsers stream.
type UserService_SearchUsersServer interface {
	Send(*UserResponse) error
	grpc.ServerStream
}

type userServiceSearchUsersServer struct {
	grpc.ServerStream
}

func (x *userServiceSearchUsersServer) Send(m *UserResponse) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserServiceDesc, srv)
}

func _UserService_CreateUser_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateUserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceServer).CreateUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCreateUser}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UserServiceServer).CreateUser(ctx, req.(*CreateUserRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _UserService_GetUser_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetUserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceServer).GetUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetUser}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UserServiceServer).GetUser(ctx, req.(*GetUserRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _UserService_UpdateUser_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateUserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceServer).UpdateUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodUpdateUser}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UserServiceServer).UpdateUser(ctx, req.(*UpdateUserRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _UserService_DeleteUser_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DeleteUserRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(UserServiceServer).DeleteUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDeleteUser}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(UserServiceServer).DeleteUser(ctx, req.(*DeleteUserRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _UserService_ListUsers_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(ListUsersRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(UserServiceServer).ListUsers(in, &userServiceListUsersServer{stream})
}

func _UserService_SearchUsers_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(SearchUsersRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(UserServiceServer).SearchUsers(in, &userServiceSearchUsersServer{stream})
}

// UserServiceDesc wires the handlers above into the grpc runtime the same way
// protoc-generated code does.
var UserServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateUser", Handler: _UserService_CreateUser_Handler},
		{MethodName: "GetUser", Handler: _UserService_GetUser_Handler},
		{MethodName: "UpdateUser", Handler: _UserService_UpdateUser_Handler},
		{MethodName: "DeleteUser", Handler: _UserService_DeleteUser_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ListUsers", Handler: _UserService_ListUsers_Handler, ServerStreams: true},
		{StreamName: "SearchUsers", Handler: _UserService_SearchUsers_Handler, ServerStreams: true},
	},
	Metadata: "api/user.proto",
}

// UserServiceClient is the client API for the user service.
type UserServiceClient interface {
	CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*CreateUserResponse, error)
	GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*GetUserResponse, error)
	ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (UserService_ListUsersClient, error)
	UpdateUser(ctx context.Context, in *UpdateUserRequest, opts ...grpc.CallOption) (*UpdateUserResponse, error)
	DeleteUser(ctx context.Context, in *DeleteUserRequest, opts ...grpc.CallOption) (*DeleteUserResponse, error)
	SearchUsers(ctx context.Context, in *SearchUsersRequest, opts ...grpc.CallOption) (UserService_SearchUsersClient, error)
}

type userServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewUserServiceClient(cc grpc.ClientConnInterface) UserServiceClient {
	return &userServiceClient{cc: cc}
}

func (c *userServiceClient) CreateUser(ctx context.Context, in *CreateUserRequest, opts ...grpc.CallOption) (*CreateUserResponse, error) {
	out := new(CreateUserResponse)
	if err := c.cc.Invoke(ctx, methodCreateUser, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) GetUser(ctx context.Context, in *GetUserRequest, opts ...grpc.CallOption) (*GetUserResponse, error) {
	out := new(GetUserResponse)
	if err := c.cc.Invoke(ctx, methodGetUser, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) UpdateUser(ctx context.Context, in *UpdateUserRequest, opts ...grpc.CallOption) (*UpdateUserResponse, error) {
	out := new(UpdateUserResponse)
	if err := c.cc.Invoke(ctx, methodUpdateUser, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *userServiceClient) DeleteUser(ctx context.Context, in *DeleteUserRequest, opts ...grpc.CallOption) (*DeleteUserResponse, error) {
	out := new(DeleteUserResponse)
	if err := c.cc.Invoke(ctx, methodDeleteUser, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// UserService_ListUsersClient is the client side of the ListUsers stream.
type UserService_ListUsersClient interface {
	Recv() (*UserResponse, error)
	grpc.ClientStream
}

type userServiceListUsersClient struct {
	grpc.ClientStream
}

func (x *userServiceListUsersClient) Recv() (*UserResponse, error) {
	m := new(UserResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *userServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (UserService_ListUsersClient, error) {
	stream, err := c.cc.NewStream(ctx, &UserServiceDesc.Streams[0], methodListUsers, opts...)
	if err != nil {
		return nil, err
	}
	x := &userServiceListUsersClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// UserService_SearchUsersClient is the client side of the SearchUsers stream.
type UserService_SearchUsersClient interface {
	Recv() (*UserResponse, error)
	grpc.ClientStream
}

type userServiceSearchUsersClient struct {
	grpc.ClientStream
}

func (x *userServiceSearchUsersClient) Recv() (*UserResponse, error) {
	m := new(UserResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *userServiceClient) SearchUsers(ctx context.Context, in *SearchUsersRequest, opts ...grpc.CallOption) (UserService_SearchUsersClient, error) {
	stream, err := c.cc.NewStream(ctx, &UserServiceDesc.Streams[1], methodSearchUsers, opts...)
	if err != nil {
		return nil, err
	}
	x := &userServiceSearchUsersClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
