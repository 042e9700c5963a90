package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/md-rashed-zaman/appointbook/libs/grpcx"
	"github.com/md-rashed-zaman/appointbook/services/booking-service/internal/availability"
)

const (
	AvailabilityServiceName    = "appointbook.availability.v1.AvailabilityService"
	GetTodayAvailabilityMethod = "/" + AvailabilityServiceName + "/GetTodayAvailability"
)

type Snapshotter interface {
	Today(ctx context.Context, businessID string) (availability.Snapshot, error)
	Snapshot(ctx context.Context, businessID string, asOf time.Time) (availability.Snapshot, error)
}

// AvailabilityServer takes {business_id, as_of?} and returns the same document as the
// HTTP availability endpoint.
type AvailabilityServer interface {
	GetTodayAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type availabilityServer struct {
	snapshots Snapshotter
	logger    *slog.Logger
}

func (s *availabilityServer) GetTodayAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	businessID := fields["business_id"].GetStringValue()
	if businessID == "" {
		return nil, status.Error(codes.InvalidArgument, "business_id is required")
	}

	var (
		snap availability.Snapshot
		err  error
	)
	if raw := fields["as_of"].GetStringValue(); raw != "" {
		asOf, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			return nil, status.Error(codes.InvalidArgument, "as_of must be RFC3339")
		}
		snap, err = s.snapshots.Snapshot(ctx, businessID, asOf)
	} else {
		snap, err = s.snapshots.Today(ctx, businessID)
	}
	if err != nil {
		s.logger.Error("availability snapshot failed", "business_id", businessID, "err", err)
		return nil, status.Error(codes.Internal, "snapshot failed")
	}

	out, err := structpb.NewStruct(snap.Document())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode snapshot: %v", err)
	}
	return out, nil
}

func getTodayAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AvailabilityServer).GetTodayAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetTodayAvailabilityMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AvailabilityServer).GetTodayAvailability(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: AvailabilityServiceName,
	HandlerType: (*AvailabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetTodayAvailability", Handler: getTodayAvailabilityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appointbook/availability/v1/availability.proto",
}

func NewServer(logger *slog.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	)
}

// Register adds the availability and health services to srv.
func Register(srv *grpc.Server, snapshots Snapshotter, logger *slog.Logger) *health.Server {
	srv.RegisterService(&availabilityServiceDesc, &availabilityServer{snapshots: snapshots, logger: logger})
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(AvailabilityServiceName, healthpb.HealthCheckResponse_SERVING)
	return hs
}

// Serve runs srv on lis until ctx is done, then stops it gracefully.
func Serve(ctx context.Context, logger *slog.Logger, srv *grpc.Server, lis net.Listener) {
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
}
