// Package grpcapi implements the formulaverifier.v1.Formulas gRPC service.
//
// Messages are google.protobuf.Struct values carrying the same JSON
// documents the REST API accepts and returns, so no generated code is
// needed on either side.
package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lemonberrylabs/formula-verifier/pkg/catalog"
	"github.com/lemonberrylabs/formula-verifier/pkg/service"
	"github.com/lemonberrylabs/formula-verifier/pkg/types"
	"github.com/lemonberrylabs/formula-verifier/pkg/verify"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "formulaverifier.v1.Formulas"

// FormulasServer is the server API for the Formulas service.
type FormulasServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Verify(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Rearrange(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(FormulasServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(FormulasServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(FormulasServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Formulas service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FormulasServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Evaluate", FormulasServer.Evaluate),
		unaryMethod("Verify", FormulasServer.Verify),
		unaryMethod("Rearrange", FormulasServer.Rearrange),
		unaryMethod("Submit", FormulasServer.Submit),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "formulaverifier/v1/formulas.proto",
}

// Server implements FormulasServer over a service.Service.
type Server struct {
	svc  *service.Service
	grpc *grpc.Server
}

// New creates a new gRPC server wrapping the given service.
func New(svc *service.Service) *Server {
	srv := &Server{svc: svc}

	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(logErrors))
	gs.RegisterService(&ServiceDesc, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)

	srv.grpc = gs
	return srv
}

// Serve starts listening on the given address and serves gRPC requests.
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	return s.grpc.Serve(lis)
}

// GracefulStop gracefully stops the gRPC server.
func (s *Server) GracefulStop() {
	s.grpc.GracefulStop()
}

// submitRequest is the Submit payload: a problem id plus the submission.
type submitRequest struct {
	ProblemID string `json:"problemId"`
	verify.Submission
}

func (s *Server) Evaluate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req service.EvaluateRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	res, err := s.svc.Evaluate(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(res)
}

func (s *Server) Verify(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req service.VerifyRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	res, err := s.svc.Verify(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(res)
}

func (s *Server) Rearrange(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req service.RearrangeRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	res, err := s.svc.Rearrange(req)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(res)
}

func (s *Server) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req submitRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, err
	}
	if req.ProblemID == "" {
		return nil, status.Error(codes.InvalidArgument, "problemId is required")
	}
	report, err := s.svc.Submit(req.ProblemID, req.Submission)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(report)
}

// --- Conversion Helpers ---

func fromStruct(in *structpb.Struct, v any) error {
	b, err := protojson.Marshal(in)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encoding response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	var fe *types.FormulaError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &fe):
		return status.Error(codes.FailedPrecondition, fe.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func logErrors(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	if status.Code(err) == codes.Internal {
		log.Printf("gRPC %s failed: %v", info.FullMethod, err)
	}
	return resp, err
}
