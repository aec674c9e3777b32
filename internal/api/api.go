// Package api describes the CyberCompanion gRPC service.
//
// All methods are unary and exchange google.protobuf.Struct messages, so the
// service needs no generated stubs: ServiceDesc is declared by hand and the
// default proto codec handles the wire format.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "cybercompanion.v1.CyberCompanion"

// Method names.
const (
	MethodAnalyzePassword   = "AnalyzePassword"
	MethodRecordAction      = "RecordAction"
	MethodCheckBreach       = "CheckBreach"
	MethodRecomputeMood     = "RecomputeMood"
	MethodWeeklyScore       = "WeeklyScore"
	MethodOverallGrade      = "OverallGrade"
	MethodDashboard         = "Dashboard"
	MethodMoodDiary         = "MoodDiary"
	MethodTips              = "Tips"
	MethodSetTwoFactor      = "SetTwoFactor"
	MethodRenamePet         = "RenamePet"
	MethodUpdatePreferences = "UpdatePreferences"
	MethodDeleteAccount     = "DeleteAccount"
)

// FullMethod returns "/cybercompanion.v1.CyberCompanion/<method>".
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// CompanionServer is the server API of the service.
type CompanionServer interface {
	AnalyzePassword(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckBreach(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecomputeMood(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WeeklyScore(context.Context, *structpb.Struct) (*structpb.Struct, error)
	OverallGrade(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Dashboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MoodDiary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Tips(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetTwoFactor(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenamePet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePreferences(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(CompanionServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

var calls = []struct {
	name string
	call unaryCall
}{
	{MethodAnalyzePassword, CompanionServer.AnalyzePassword},
	{MethodRecordAction, CompanionServer.RecordAction},
	{MethodCheckBreach, CompanionServer.CheckBreach},
	{MethodRecomputeMood, CompanionServer.RecomputeMood},
	{MethodWeeklyScore, CompanionServer.WeeklyScore},
	{MethodOverallGrade, CompanionServer.OverallGrade},
	{MethodDashboard, CompanionServer.Dashboard},
	{MethodMoodDiary, CompanionServer.MoodDiary},
	{MethodTips, CompanionServer.Tips},
	{MethodSetTwoFactor, CompanionServer.SetTwoFactor},
	{MethodRenamePet, CompanionServer.RenamePet},
	{MethodUpdatePreferences, CompanionServer.UpdatePreferences},
	{MethodDeleteAccount, CompanionServer.DeleteAccount},
}

// Methods lists every method name in declaration order.
func Methods() []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.name
	}
	return out
}

func handler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CompanionServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		next := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CompanionServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, next)
	}
}

// ServiceDesc is the grpc.ServiceDesc for CompanionServer.
var ServiceDesc = func() grpc.ServiceDesc {
	desc := grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*CompanionServer)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "cybercompanion/v1/companion.proto",
	}
	for _, c := range calls {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: c.name, Handler: handler(c.name, c.call)})
	}
	return desc
}()

// RegisterCompanionServer registers srv on s.
func RegisterCompanionServer(s grpc.ServiceRegistrar, srv CompanionServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the service over a client connection.
type Client struct{ cc grpc.ClientConnInterface }

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

// Call invokes a unary method. A nil request is sent as an empty struct.
func (c *Client) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
