package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/agribot/internal/broadcast"
	"github.com/LeonardoBeccarini/agribot/internal/model/messages"
	"github.com/LeonardoBeccarini/agribot/internal/store"
)

const controlServiceName = "agribot.v1.ControlService"

// ControlServer is the gRPC face of the device service. Messages are
// well-known protobuf types; every response is the JSON shape of the HTTP API.
type ControlServer interface {
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ToggleIrrigation(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ToggleSecurity(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ToggleCamera(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Subscribe(*emptypb.Empty, grpc.ServerStream) error
}

type unaryCall func(ControlServer, context.Context, *emptypb.Empty) (*structpb.Struct, error)

func unary(method string, call unaryCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ControlServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + controlServiceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ControlServer), ctx, req.(*emptypb.Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).Subscribe(in, stream)
}

var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: controlServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: unary("GetState", ControlServer.GetState)},
		{MethodName: "ToggleIrrigation", Handler: unary("ToggleIrrigation", ControlServer.ToggleIrrigation)},
		{MethodName: "ToggleSecurity", Handler: unary("ToggleSecurity", ControlServer.ToggleSecurity)},
		{MethodName: "ToggleCamera", Handler: unary("ToggleCamera", ControlServer.ToggleCamera)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "agribot/v1/control.proto",
}

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

// GrpcHandler implementa ControlServer sopra DeviceService e l'hub.
type GrpcHandler struct {
	svc    *DeviceService
	hub    *broadcast.Hub
	logger *log.Logger
}

func NewGrpcHandler(svc *DeviceService, hub *broadcast.Hub, logger *log.Logger) *GrpcHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &GrpcHandler{svc: svc, hub: hub, logger: logger}
}

// ============== RPC: GetState ==============

func (h *GrpcHandler) GetState(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(frameOf(h.svc.State()))
}

// ============== RPC: Toggle* ==============

func (h *GrpcHandler) ToggleIrrigation(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	irr, err := h.svc.ToggleIrrigation(messages.SourceGRPC)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"success": true, "irrigation": irr})
}

func (h *GrpcHandler) ToggleSecurity(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	sec, err := h.svc.ToggleSecurity(messages.SourceGRPC)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"success": true, "security": sec})
}

func (h *GrpcHandler) ToggleCamera(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	cam, err := h.svc.ToggleCamera(messages.SourceGRPC)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"success": true, "camera": cam})
}

// ============== RPC: Subscribe ==============

// Subscribe streams the current snapshot and then one frame per tick.
func (h *GrpcHandler) Subscribe(_ *emptypb.Empty, stream grpc.ServerStream) error {
	id := "grpc/" + uuid.NewString()
	sub, err := h.hub.Subscribe(id)
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}
	defer h.hub.Unsubscribe(id)
	h.logger.Printf("device: grpc subscriber %s", id)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-sub.C():
			if !ok {
				return status.Error(codes.Unavailable, "broadcast closed")
			}
			frame, err := toStruct(frameOf(snap))
			if err != nil {
				return err
			}
			if err := stream.SendMsg(frame); err != nil {
				return err
			}
		}
	}
}

// ============== Helpers ==============

func frameOf(snap store.Snapshot) messages.SensorUpdate {
	return messages.SensorUpdate{
		Type:      messages.TypeSensorUpdate,
		Version:   snap.Version,
		Timestamp: snap.TakenAt,
		Data:      snap.State,
	}
}

// toStruct passa per JSON così i nomi dei campi coincidono con l'API HTTP.
func toStruct(v interface{}) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return s, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, store.ErrStoreClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, messages.ErrUnknownActuator):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, fmt.Sprintf("toggle failed: %v", err))
}
