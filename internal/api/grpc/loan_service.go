package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const LoanServiceName = "library.v1.LoanService"

const (
	LoanService_CreateLoan_FullMethodName       = "/library.v1.LoanService/CreateLoan"
	LoanService_ReturnLoan_FullMethodName       = "/library.v1.LoanService/ReturnLoan"
	LoanService_ExtendLoan_FullMethodName       = "/library.v1.LoanService/ExtendLoan"
	LoanService_GetLoan_FullMethodName          = "/library.v1.LoanService/GetLoan"
	LoanService_ListActiveLoans_FullMethodName  = "/library.v1.LoanService/ListActiveLoans"
	LoanService_ListOverdueLoans_FullMethodName = "/library.v1.LoanService/ListOverdueLoans"
	LoanService_ListLoansByUser_FullMethodName  = "/library.v1.LoanService/ListLoansByUser"
	LoanService_ListLoansByBook_FullMethodName  = "/library.v1.LoanService/ListLoansByBook"
)

// LoanServiceServer is the server API for library.v1.LoanService. Requests and
// responses are google.protobuf.Struct documents.
type LoanServiceServer interface {
	CreateLoan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReturnLoan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtendLoan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLoan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListActiveLoans(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListOverdueLoans(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLoansByUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLoansByBook(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structMethod func(LoanServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call structMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LoanServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LoanServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var LoanService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: LoanServiceName,
	HandlerType: (*LoanServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateLoan", Handler: unaryHandler(LoanService_CreateLoan_FullMethodName, LoanServiceServer.CreateLoan)},
		{MethodName: "ReturnLoan", Handler: unaryHandler(LoanService_ReturnLoan_FullMethodName, LoanServiceServer.ReturnLoan)},
		{MethodName: "ExtendLoan", Handler: unaryHandler(LoanService_ExtendLoan_FullMethodName, LoanServiceServer.ExtendLoan)},
		{MethodName: "GetLoan", Handler: unaryHandler(LoanService_GetLoan_FullMethodName, LoanServiceServer.GetLoan)},
		{MethodName: "ListActiveLoans", Handler: unaryHandler(LoanService_ListActiveLoans_FullMethodName, LoanServiceServer.ListActiveLoans)},
		{MethodName: "ListOverdueLoans", Handler: unaryHandler(LoanService_ListOverdueLoans_FullMethodName, LoanServiceServer.ListOverdueLoans)},
		{MethodName: "ListLoansByUser", Handler: unaryHandler(LoanService_ListLoansByUser_FullMethodName, LoanServiceServer.ListLoansByUser)},
		{MethodName: "ListLoansByBook", Handler: unaryHandler(LoanService_ListLoansByBook_FullMethodName, LoanServiceServer.ListLoansByBook)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "library/v1/loan.proto",
}

func RegisterLoanServiceServer(s grpc.ServiceRegistrar, srv LoanServiceServer) {
	s.RegisterService(&LoanService_ServiceDesc, srv)
}

// LoanServiceClient is the client API for library.v1.LoanService.
type LoanServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLoanServiceClient(cc grpc.ClientConnInterface) *LoanServiceClient {
	return &LoanServiceClient{cc: cc}
}

// Call invokes one LoanService method by its full name.
func (c *LoanServiceClient) Call(ctx context.Context, fullMethod string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
