package device

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/agribot/internal/model/messages"
)

// ControlClient calls ControlService without generated stubs.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) call(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+controlServiceName+"/"+method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ControlClient) GetState(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.call(ctx, "GetState", opts...)
}

// Toggle flips a; an unknown actuator maps to no method and fails with Unimplemented.
func (c *ControlClient) Toggle(ctx context.Context, a messages.Actuator, opts ...grpc.CallOption) (*structpb.Struct, error) {
	method := "Toggle"
	switch a {
	case messages.ActuatorIrrigation:
		method = "ToggleIrrigation"
	case messages.ActuatorSecurity:
		method = "ToggleSecurity"
	case messages.ActuatorCamera:
		method = "ToggleCamera"
	}
	return c.call(ctx, method, opts...)
}

// SubscribeClient receives sensorUpdate frames.
type SubscribeClient struct {
	stream grpc.ClientStream
}

func (c *ControlClient) Subscribe(ctx context.Context, opts ...grpc.CallOption) (*SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &ControlServiceDesc.Streams[0], "/"+controlServiceName+"/Subscribe", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SubscribeClient{stream: stream}, nil
}

func (s *SubscribeClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := s.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
