package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the valuation admin service
const ServiceName = "financeserver.valuation.v1.ValuationService"

// ValuationServiceServer is the server API for the valuation admin service.
// Messages are protobuf well-known types so no generated code is needed on either side.
type ValuationServiceServer interface {
	Calculate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetLatestSnapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListSnapshots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RecomputeAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetRecomputeReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetNetWorth(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	CreateRatePeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateRatePeriod(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteRatePeriod(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
	CreateBankAccount(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RecordBankBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateCryptoExchange(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SaveCryptoBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreatePortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ReplaceFundHoldings(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterValuationServiceServer registers srv on s
func RegisterValuationServiceServer(s grpc.ServiceRegistrar, srv ValuationServiceServer) {
	s.RegisterService(&ValuationServiceDesc, srv)
}

// ValuationServiceDesc is the grpc.ServiceDesc of the valuation admin service
var ValuationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ValuationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Calculate", newStruct, ValuationServiceServer.Calculate),
		unary("GetLatestSnapshot", newStruct, ValuationServiceServer.GetLatestSnapshot),
		unary("ListSnapshots", newStruct, ValuationServiceServer.ListSnapshots),
		unary("RecomputeAll", newStruct, ValuationServiceServer.RecomputeAll),
		unary("GetRecomputeReport", newStruct, ValuationServiceServer.GetRecomputeReport),
		unary("GetNetWorth", newEmpty, ValuationServiceServer.GetNetWorth),
		unary("CreateRatePeriod", newStruct, ValuationServiceServer.CreateRatePeriod),
		unary("UpdateRatePeriod", newStruct, ValuationServiceServer.UpdateRatePeriod),
		unary("DeleteRatePeriod", newStruct, ValuationServiceServer.DeleteRatePeriod),
		unary("CreateBankAccount", newStruct, ValuationServiceServer.CreateBankAccount),
		unary("RecordBankBalance", newStruct, ValuationServiceServer.RecordBankBalance),
		unary("CreateCryptoExchange", newStruct, ValuationServiceServer.CreateCryptoExchange),
		unary("SaveCryptoBalance", newStruct, ValuationServiceServer.SaveCryptoBalance),
		unary("CreatePortfolio", newStruct, ValuationServiceServer.CreatePortfolio),
		unary("ReplaceFundHoldings", newStruct, ValuationServiceServer.ReplaceFundHoldings),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "financeserver/valuation/v1/valuation.proto",
}

func newStruct() *structpb.Struct { return &structpb.Struct{} }
func newEmpty() *emptypb.Empty    { return &emptypb.Empty{} }

// unary builds the method descriptor of one RPC, running the server interceptor chain
func unary[Req, Resp proto.Message](
	name string,
	newReq func() Req,
	call func(ValuationServiceServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ValuationServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ValuationServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the valuation admin service over cc
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out proto.Message, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *Client) callStruct(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Calculate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "Calculate", in, opts...)
}

func (c *Client) GetLatestSnapshot(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "GetLatestSnapshot", in, opts...)
}

func (c *Client) ListSnapshots(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "ListSnapshots", in, opts...)
}

func (c *Client) RecomputeAll(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "RecomputeAll", in, opts...)
}

func (c *Client) GetRecomputeReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "GetRecomputeReport", in, opts...)
}

func (c *Client) GetNetWorth(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "GetNetWorth", &emptypb.Empty{}, opts...)
}

func (c *Client) CreateRatePeriod(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "CreateRatePeriod", in, opts...)
}

func (c *Client) UpdateRatePeriod(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "UpdateRatePeriod", in, opts...)
}

func (c *Client) DeleteRatePeriod(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) error {
	return c.invoke(ctx, "DeleteRatePeriod", in, &emptypb.Empty{}, opts...)
}

func (c *Client) CreateBankAccount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "CreateBankAccount", in, opts...)
}

func (c *Client) RecordBankBalance(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "RecordBankBalance", in, opts...)
}

func (c *Client) CreateCryptoExchange(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "CreateCryptoExchange", in, opts...)
}

func (c *Client) SaveCryptoBalance(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "SaveCryptoBalance", in, opts...)
}

func (c *Client) CreatePortfolio(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "CreatePortfolio", in, opts...)
}

func (c *Client) ReplaceFundHoldings(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.callStruct(ctx, "ReplaceFundHoldings", in, opts...)
}
