package dataapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "recommender.v1.RecommendationService"

const (
	methodGetRecommendations = "/" + ServiceName + "/GetRecommendations"
	methodGetRuleStatistic   = "/" + ServiceName + "/GetRuleStatistic"
)

// RecommendationServiceServer is the server contract of the read plane.
// Requests and responses use protobuf well-known types so any gRPC client
// can call the service without generated stubs.
type RecommendationServiceServer interface {
	// GetRecommendations takes a user id and returns
	// {"user_id": string, "recommendations": [{"id","name","text"}]}.
	GetRecommendations(ctx context.Context, userID *wrapperspb.StringValue) (*structpb.Struct, error)

	// GetRuleStatistic takes a product id and returns its trigger counter.
	GetRuleStatistic(ctx context.Context, productID *wrapperspb.StringValue) (*structpb.Struct, error)
}

// ServiceDesc describes RecommendationService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecommendationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetRecommendations", Handler: getRecommendationsHandler},
		{MethodName: "GetRuleStatistic", Handler: getRuleStatisticHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func getRecommendationsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecommendationServiceServer).GetRecommendations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetRecommendations}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecommendationServiceServer).GetRecommendations(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getRuleStatisticHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecommendationServiceServer).GetRuleStatistic(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetRuleStatistic}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecommendationServiceServer).GetRuleStatistic(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls RecommendationService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a client connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// GetRecommendations returns the recommendations of one user.
func (c *Client) GetRecommendations(ctx context.Context, userID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetRecommendations, wrapperspb.String(userID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRuleStatistic returns the trigger counter of one product.
func (c *Client) GetRuleStatistic(ctx context.Context, productID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetRuleStatistic, wrapperspb.String(productID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
