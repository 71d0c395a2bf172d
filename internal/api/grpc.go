package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"tradelab/internal/engine"
	"tradelab/internal/httpapi"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tradelab.v1.Backtest"

const runMethod = "/" + ServiceName + "/Run"

// BacktestServer is the server API for the Backtest service. Requests and
// responses are the JSON payloads of the HTTP API carried as
// google.protobuf.Struct.
type BacktestServer interface {
	Run(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var backtestServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BacktestServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Run", Handler: runHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tradelab/v1/backtest.proto",
}

func runHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BacktestServer).Run(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BacktestServer).Run(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterBacktestServer registers srv on gs.
func RegisterBacktestServer(gs grpc.ServiceRegistrar, srv BacktestServer) {
	gs.RegisterService(&backtestServiceDesc, srv)
}

// BacktestService implements BacktestServer on top of a Runner.
type BacktestService struct {
	runner httpapi.Runner
	log    *slog.Logger
}

// Compile-time interface check.
var _ BacktestServer = (*BacktestService)(nil)

// NewBacktestService creates a BacktestService backed by runner.
func NewBacktestService(runner httpapi.Runner, log *slog.Logger) *BacktestService {
	if log == nil {
		log = slog.Default()
	}
	return &BacktestService{runner: runner, log: log.With("component", "grpc")}
}

// Run decodes a BacktestRequest, runs it and encodes the BacktestResponse.
func (s *BacktestService) Run(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var body httpapi.BacktestRequest
	if err := fromStruct(in, &body); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decoding request: %v", err)
	}
	req, err := body.EngineRequest()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	results, err := s.runner.Run(ctx, req)
	if err != nil {
		return nil, statusFor(err)
	}
	s.log.Info("backtest served", "strategies", len(req.Strategies), "results", len(results))

	out, err := toStruct(httpapi.BacktestResponse{Results: results})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

func statusFor(err error) error {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// NewGRPCServer creates a gRPC server with the Backtest and health services
// registered.
func NewGRPCServer(runner httpapi.Runner, log *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	gs := grpc.NewServer(opts...)
	RegisterBacktestServer(gs, NewBacktestService(runner, log))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// BacktestClient calls the Backtest service.
type BacktestClient struct {
	cc grpc.ClientConnInterface
}

// NewBacktestClient wraps an existing connection.
func NewBacktestClient(cc grpc.ClientConnInterface) *BacktestClient {
	return &BacktestClient{cc: cc}
}

// Run sends req and decodes the response.
func (c *BacktestClient) Run(ctx context.Context, req httpapi.BacktestRequest, opts ...grpc.CallOption) (*httpapi.BacktestResponse, error) {
	in, err := toStruct(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, runMethod, in, out, opts...); err != nil {
		return nil, err
	}
	var resp httpapi.BacktestResponse
	if err := fromStruct(out, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// fromStruct decodes s into v through its JSON encoding.
func fromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
