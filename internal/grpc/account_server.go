package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"userAuthService/internal/auth"
	"userAuthService/internal/service"
	"userAuthService/models"
)

// AccountServiceName is the fully-qualified gRPC service name.
const AccountServiceName = "useraccount.v1.AccountService"

// Full method names, used by the auth interceptor allowlist and by clients.
const (
	MethodRegister  = "/" + AccountServiceName + "/Register"
	MethodLogin     = "/" + AccountServiceName + "/Login"
	MethodMe        = "/" + AccountServiceName + "/Me"
	MethodListUsers = "/" + AccountServiceName + "/ListUsers"
)

// AccountService is the server API. Messages are google.protobuf.Struct:
//
//	Register  {username, password, role?} -> {message}
//	Login     {username, password}        -> {token}
//	Me        {}                          -> {userId, username}
//	ListUsers {}                          -> {users: [{id, username, role}]}
type AccountService interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Me(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// AccountServer implements AccountService on top of service.AuthService.
type AccountServer struct {
	Auth *service.AuthService
}

var _ AccountService = (*AccountServer)(nil)

func (s *AccountServer) Register(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	err := s.Auth.Register(ctx, service.RegisterRequest{
		Username: stringField(req, "username"),
		Password: stringField(req, "password"),
		Role:     stringField(req, "role"),
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"message": "registered"})
}

func (s *AccountServer) Login(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tok, err := s.Auth.Login(ctx, stringField(req, "username"), stringField(req, "password"))
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"token": tok})
}

func (s *AccountServer) Me(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	me, err := s.Auth.CurrentUser(p)
	if err != nil {
		return nil, toStatus(err)
	}
	return structpb.NewStruct(map[string]any{"userId": me.UserID, "username": me.Username})
}

func (s *AccountServer) ListUsers(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireRole(ctx, models.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := s.Auth.ListUsers(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	list := make([]any, 0, len(users))
	for _, u := range users {
		list = append(list, map[string]any{"id": u.ID, "username": u.Username, "role": u.Role})
	}
	return structpb.NewStruct(map[string]any{"users": list})
}

// toStatus maps domain errors onto gRPC codes; unknown errors are not echoed.
func toStatus(err error) error {
	switch {
	case errors.Is(err, service.ErrDuplicateUsername):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return status.Error(codes.Unauthenticated, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func stringField(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	return s.GetFields()[key].GetStringValue()
}

func unaryHandler(method string, call func(AccountService, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AccountService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AccountService), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// accountServiceDesc is written by hand; the messages are well-known types so no codegen is involved.
var accountServiceDesc = grpc.ServiceDesc{
	ServiceName: AccountServiceName,
	HandlerType: (*AccountService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(MethodRegister, AccountService.Register)},
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, AccountService.Login)},
		{MethodName: "Me", Handler: unaryHandler(MethodMe, AccountService.Me)},
		{MethodName: "ListUsers", Handler: unaryHandler(MethodListUsers, AccountService.ListUsers)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "useraccount/v1/account.proto",
}

// RegisterAccountServiceServer registers srv on s.
func RegisterAccountServiceServer(s grpc.ServiceRegistrar, srv AccountService) {
	s.RegisterService(&accountServiceDesc, srv)
}
