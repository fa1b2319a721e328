package grpc_control

import (
	"context"

	"github.com/ahfrd/grpc-stream-client-side/src/models"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------
// Wire surface. The control plane shares the JSON codec with the data plane,
// so no generated stubs are involved. Clients invoke the method paths below
// with the request structs marshalled as JSON.
// -----------------------------------------------------------------------------

const ControlServiceName = "streamclient.StreamControl"

const (
	MethodConnect       = "/streamclient.StreamControl/Connect"
	MethodDisconnect    = "/streamclient.StreamControl/Disconnect"
	MethodSetParameters = "/streamclient.StreamControl/SetParameters"
	MethodGetState      = "/streamclient.StreamControl/GetState"
)

// -----------------------------------------------------------------------------

// MControlRequest is the empty request body for Connect, Disconnect and
// GetState.
type MControlRequest struct{}

// MParametersRequest carries the new subscription parameters.
type MParametersRequest struct {
	Filter  string `json:"filter"`
	SortKey string `json:"sort_key"`
}

// MControlResponse reports the outcome of a lifecycle command together with
// the connection state after the command.
type MControlResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	State   models.MConnectionState `json:"state"`
}

// MStateResponse is the full status surface for gRPC callers.
type MStateResponse struct {
	State       models.MConnectionState    `json:"state"`
	Params      models.MSubscriptionParams `json:"params"`
	Instruments int                        `json:"instruments"`
	Summary     models.MMarketSummary      `json:"summary"`
	Stats       models.MStreamStats        `json:"stats"`
}

// -----------------------------------------------------------------------------
// Service registration
// -----------------------------------------------------------------------------

// RegisterControlServer attaches the control service to a gRPC server. The
// server must use the shared JSON codec.
func RegisterControlServer(s grpc.ServiceRegistrar, svc *ControlService) {
	s.RegisterService(&controlServiceDesc, svc)
}

var controlServiceDesc = grpc.ServiceDesc{
	ServiceName: ControlServiceName,
	HandlerType: (*interface{})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Connect", Handler: connectHandler},
		{MethodName: "Disconnect", Handler: disconnectHandler},
		{MethodName: "SetParameters", Handler: setParametersHandler},
		{MethodName: "GetState", Handler: getStateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "streamclient",
}

// -----------------------------------------------------------------------------

func connectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MControlRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*ControlService).Connect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodConnect}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*ControlService).Connect(ctx, req.(*MControlRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func disconnectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MControlRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*ControlService).Disconnect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodDisconnect}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*ControlService).Disconnect(ctx, req.(*MControlRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func setParametersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MParametersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*ControlService).SetParameters(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodSetParameters}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*ControlService).SetParameters(ctx, req.(*MParametersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MControlRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*ControlService).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodGetState}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*ControlService).GetState(ctx, req.(*MControlRequest))
	}
	return interceptor(ctx, in, info, handler)
}
